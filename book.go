package bookdex

import (
	"strconv"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/provider"
)

// Candidate is a book detected for the current request. Candidates are
// transient: they are never persisted as-is, only their enriched fields
// flow into the cache.
type Candidate struct {
	// Title and Author as detected, not yet normalized.
	Title  string
	Author string

	// ISBN is optional; when present and at least 10 characters it is
	// used as a secondary cache key.
	ISBN string

	// CoverURL is a link to cover art, if a catalog supplied one.
	CoverURL string

	// Rating is a decimal string in [1.0, 5.0] with one fractional
	// digit. Empty means no rating has been resolved yet.
	Rating string

	// Summary is free text, possibly empty.
	Summary string

	// Categories are genre/subject labels from catalog metadata.
	Categories []string

	// DetectedFrom records where this candidate came from: a scan
	// region, a catalog name, or a caller-supplied tag.
	DetectedFrom string
}

// HasRating reports whether a rating was resolved. Callers should render
// candidates without one as "no rating available" rather than zero.
func (c *Candidate) HasRating() bool {
	return c.Rating != ""
}

// RatingValue returns the numeric rating, or 0 if absent or malformed.
func (c *Candidate) RatingValue() float64 {
	v, err := strconv.ParseFloat(c.Rating, 64)
	if err != nil {
		return 0
	}
	return v
}

// ScoredCandidate is a Candidate annotated by the recommendation scorer.
type ScoredCandidate struct {
	Candidate

	// Score is the computed match score, never negative.
	Score float64

	// MatchScore is Score rounded to the nearest integer, for display.
	MatchScore int

	// AlreadyRead is true when the candidate matched the read history.
	AlreadyRead bool

	// OriginalReadTitle is the history entry's title that matched, set
	// only when AlreadyRead is true.
	OriginalReadTitle string
}

// HistoryEntry is one previously consumed book in the read history.
type HistoryEntry struct {
	Title  string
	Author string

	// Rating is the user's own rating. Only entries with a positive
	// rating count as actually read.
	Rating float64
}

// Preferences drives the recommendation scorer. The core never mutates
// it.
type Preferences struct {
	// Genres the user prefers; matched case-insensitively against
	// candidate categories.
	Genres []string

	// ReadHistory of previously consumed books.
	ReadHistory []HistoryEntry
}

// resultToCandidate converts a catalog adapter result to a public
// Candidate tagged with the providing adapter's name.
func resultToCandidate(r provider.Result, providerName string) Candidate {
	return Candidate{
		Title:        r.Title,
		Author:       r.Author,
		ISBN:         r.ISBN,
		CoverURL:     r.CoverURL,
		Categories:   r.Categories,
		DetectedFrom: providerName,
	}
}

// resultToEntry converts a catalog result to a cache entry carrying the
// given source class. Ratings and summaries never come from catalogs, so
// none are set here.
func resultToEntry(r provider.Result, source book.Source) book.Entry {
	return book.Entry{
		Title:    r.Title,
		Author:   r.Author,
		ISBN:     r.ISBN,
		CoverURL: r.CoverURL,
		Source:   source,
	}
}
