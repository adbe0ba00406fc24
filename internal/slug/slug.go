// Package slug turns free text into URL path segments.
package slug

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// MaxLength caps a slug. Longer input is cut at a hyphen boundary when possible.
const MaxLength = 60

// Make transliterates s to ASCII, lower-cases it and joins the alphanumeric
// runs with single hyphens: "Noël 2025 – Famille!" becomes "noel-2025-famille".
// The result is empty when s has no letters or digits.
func Make(s string) string {
	ascii := strings.ToLower(unidecode.Unidecode(s))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	out := b.String()
	if len(out) > MaxLength {
		out = out[:MaxLength]
		if i := strings.LastIndexByte(out, '-'); i > MaxLength/2 {
			out = out[:i]
		}
		out = strings.TrimRight(out, "-")
	}
	return out
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}
