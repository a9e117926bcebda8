package adapter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/vodkit-cli/vodkit/constant"
)

// DeriveID returns the stable identifier of an adapter loaded from sourceURL:
// ext_<file name>_<first 8 hex digits of the URL hash>.
// The same URL always yields the same identifier.
func DeriveID(sourceURL string) string {
	file := sourceURL
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}

	for _, ext := range []string{".lua", ".js"} {
		file = strings.Replace(file, ext, "", 1)
	}

	return constant.ExternalIDPrefix + file + "_" + hash8(sourceURL)
}

// hash8 is the 31-multiplier string hash over UTF-16 code units, wrapped to 32 bits,
// rendered as the hex of its absolute value and cut to 8 digits.
// Identifiers persisted by earlier clients depend on this exact derivation.
func hash8(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	hex := strconv.FormatInt(abs, 16)
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return hex
}

// ResolveID picks the identifier of an adapter by precedence:
// an explicit configured mapping for the source URL, then the adapter-declared ID, then the derived ID.
func ResolveID(configured map[string]string, declared, sourceURL string) string {
	if id, ok := configured[sourceURL]; ok && id != "" {
		return id
	}

	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}

	return DeriveID(sourceURL)
}

// NameFromID turns an identifier into a display name: first letter upper-cased, underscores as spaces.
func NameFromID(id string) string {
	if id == "" {
		return "Unnamed source"
	}

	first, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(first)) + strings.ReplaceAll(id[size:], "_", " ")
}
