// Package book defines the cached book record, its provenance classes and
// the merge rules applied on every write.
package book

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shelfscan/bookdex/internal/normalize"
)

// Source classifies the origin of the most authoritative field stored on an
// entry. It determines both trust and time-to-live.
type Source string

const (
	// SourceCatalogPrimary marks data from the primary title-search catalog.
	SourceCatalogPrimary Source = "catalog-primary"

	// SourceCatalogFallback marks data from the fallback library catalog.
	SourceCatalogFallback Source = "catalog-fallback"

	// SourceGenerative marks entries carrying a rating or summary produced
	// by the generative text provider. Only generative ratings are trusted.
	SourceGenerative Source = "generative"

	// SourceUserSaved marks entries saved explicitly by a user.
	SourceUserSaved Source = "user-saved"
)

// Valid reports whether s is a known source class.
func (s Source) Valid() bool {
	switch s {
	case SourceCatalogPrimary, SourceCatalogFallback, SourceGenerative, SourceUserSaved:
		return true
	}
	return false
}

// TTL returns the lifetime for entries of this source class. Catalog-primary
// and user-saved data is stable; fallback-catalog data carries
// availability-like fields and goes stale quickly; generative content is
// long-lived but refreshed a few times a year.
func (s Source) TTL() time.Duration {
	switch s {
	case SourceCatalogFallback:
		return 7 * 24 * time.Hour
	case SourceGenerative:
		return 100 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// Entry is one persisted record per distinct book. Title and Author are
// stored in their folded canonical form.
type Entry struct {
	// ID is the stable row identifier: the ISBN when one was known at
	// insert time, otherwise a slug of the normalized title and author.
	ID string

	Title  string
	Author string
	ISBN   string

	CoverURL string

	// Rating is a decimal string in [1.0, 5.0] with one fractional digit,
	// or empty when no rating is known.
	Rating string

	Summary string

	Source Source

	// Metadata is an opaque structured blob carried for callers.
	Metadata map[string]string

	ExpiresAt time.Time
}

// Key returns the canonical title|author key for the entry.
func (e *Entry) Key() string {
	return normalize.Key(e.Title, e.Author)
}

// Expired reports whether the entry is no longer servable at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// ratingPattern is the only accepted stored rating shape.
var ratingPattern = regexp.MustCompile(`^\d\.\d$`)

// ValidRating reports whether s is a well-formed stored rating: one integer
// digit, one fractional digit, numerically within [1.0, 5.0].
func ValidRating(s string) bool {
	if !ratingPattern.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return v >= 1.0 && v <= 5.0
}

// FormatRating renders v as a one-fractional-digit rating string,
// truncating (not rounding) extra precision. Returns false when v is
// outside [1.0, 5.0]. Truncation works on the shortest decimal form of v,
// not on scaled float arithmetic, so 2.3 stays "2.3" rather than losing a
// tenth to the binary representation.
func FormatRating(v float64) (string, bool) {
	if v < 1.0 || v > 5.0 {
		return "", false
	}
	whole, frac, found := strings.Cut(strconv.FormatFloat(v, 'f', -1, 64), ".")
	if !found || frac == "" {
		return whole + ".0", true
	}
	return whole + "." + frac[:1], true
}
