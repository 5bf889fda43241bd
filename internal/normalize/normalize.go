// Package normalize provides the canonical string forms used for cache keys
// and fuzzy matching of titles and authors.
package normalize

import (
	"strings"
	"unicode"
)

// Fold converts a string to its canonical comparison form: lowercase,
// trimmed, with runs of whitespace collapsed to a single space.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Key builds the canonical title|author cache key.
func Key(title, author string) string {
	return Fold(title) + "|" + Fold(author)
}

// Slug converts a title and author into a stable identifier: lowercase,
// non-alphanumerics collapsed to single hyphens.
func Slug(title, author string) string {
	s := Fold(title) + " " + Fold(author)
	var b strings.Builder
	b.Grow(len(s))

	prevHyphen := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevHyphen = false
			continue
		}
		if !prevHyphen && b.Len() > 0 {
			b.WriteRune('-')
			prevHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// EitherContains reports whether either folded string contains the other.
// Both inputs must be non-empty after folding.
func EitherContains(a, b string) bool {
	a, b = Fold(a), Fold(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Equal reports whether two strings are equal after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
