// Package color names the terminal colors vodkit output uses.
package color

import "github.com/charmbracelet/lipgloss"

// ANSI colors, so output follows the terminal theme.
const (
	Red    = lipgloss.Color("1")
	Green  = lipgloss.Color("2")
	Yellow = lipgloss.Color("3")
	Blue   = lipgloss.Color("4")
	Purple = lipgloss.Color("5")
	Cyan   = lipgloss.Color("6")

	HiRed    = lipgloss.Color("9")
	HiBlue   = lipgloss.Color("12")
	HiPurple = lipgloss.Color("13")
)
