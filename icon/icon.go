// Package icon renders the symbols printed next to CLI messages.
// The variant is chosen with icons.variant.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/key"
)

type variant int

const (
	emoji variant = iota
	nerd
	plain
	kaomoji
	squares
	variantCount
)

var variantNames = map[string]variant{
	"emoji":   emoji,
	"nerd":    nerd,
	"plain":   plain,
	"kaomoji": kaomoji,
	"squares": squares,
}

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{"emoji", "nerd", "plain", "kaomoji", "squares"}
}

// glyphs holds one rendering per variant, indexed by variant.
type glyphs [variantCount]string

// Get renders i in the configured variant. Unknown variants render as plain text.
func Get(i Icon) string {
	g, ok := icons[i]
	if !ok {
		return ""
	}

	v, ok := variantNames[viper.GetString(key.IconsVariant)]
	if !ok {
		v = plain
	}

	return g[v]
}
