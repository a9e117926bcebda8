// Package util holds small helpers shared by the CLI and adapters.
package util

import (
	"fmt"
	"os"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/filesystem"
	"golang.org/x/exp/constraints"
	"golang.org/x/term"
)

var (
	unsafeChars = regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s]`)
	underscores = regexp.MustCompile(`__+`)
	separators  = regexp.MustCompile(`^[_\-.]+|[_\-.]+$`)
)

// SanitizeFilename makes name safe to use as a file name on every platform.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	return separators.ReplaceAllString(name, "")
}

// Quantify formats count with the singular or plural label.
func Quantify(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, lo.Ternary(count == 1, singular, plural))
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// Ignore calls f and drops its error. Meant for deferred Close calls.
func Ignore(f func() error) {
	_ = f()
}

// Max returns the largest of items, or the zero value when there are none.
func Max[T constraints.Ordered](items ...T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return lo.Max(items)
}

// Delete removes path, recursively when it is a directory.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
