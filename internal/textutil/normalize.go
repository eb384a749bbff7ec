package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticsFold strips combining marks so accented characters reduce
// to their base letter ("Café" -> "Cafe") before canonicalization.
var diacriticsFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeColumn converts a raw column header to canonical lowercase
// underscore form: a separator is inserted at every camelCase boundary
// (lowercase letter or digit followed by an uppercase letter), each
// maximal run of non-alphanumeric characters collapses to a single
// underscore, and the result carries no leading or trailing separator.
//
// The function is total and idempotent; the empty string maps to itself.
func NormalizeColumn(raw string) string {
	folded, _, err := transform.String(diacriticsFold, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded) + 4)
	pendingSep := false
	var prev rune
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			boundary := unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev))
			if (pendingSep || boundary) && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			prev = r
			continue
		}
		pendingSep = true
		prev = 0
	}
	return b.String()
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept,
// everything else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
