package enrich

import (
	"github.com/shelfscan/bookdex/internal/normalize"
	"github.com/shelfscan/bookdex/internal/store"
)

// VerifiedRating is a hand-checked rating for a well-known title. The
// table is consulted after the cache and before any generative call, so
// books on it never spend provider quota.
type VerifiedRating struct {
	Title  string
	Author string
	Rating string
}

// DefaultVerified returns the built-in verified table.
func DefaultVerified() []VerifiedRating {
	return []VerifiedRating{
		{Title: "Dune", Author: "Frank Herbert", Rating: "4.7"},
		{Title: "Atomic Habits", Author: "James Clear", Rating: "4.8"},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Rating: "4.7"},
		{Title: "Project Hail Mary", Author: "Andy Weir", Rating: "4.6"},
		{Title: "Thinking, Fast and Slow", Author: "Daniel Kahneman", Rating: "4.2"},
		{Title: "The Name of the Wind", Author: "Patrick Rothfuss", Rating: "4.5"},
		{Title: "Sapiens", Author: "Yuval Noah Harari", Rating: "4.4"},
	}
}

// LookupVerified matches title and author against the table. Titles match
// exactly after normalization or by bidirectional containment, so series
// entries and subtitled editions still hit; authors match on bidirectional
// containment so "Herbert, Frank" and initialed forms still hit. Exact
// title matches take precedence over containment.
func LookupVerified(table []VerifiedRating, title, author string) (string, bool) {
	ft := normalize.Fold(title)
	fa := normalize.Fold(author)
	if ft == "" {
		return "", false
	}

	authorOK := func(v VerifiedRating) bool {
		va := normalize.Fold(v.Author)
		return fa == "" || va == fa || normalize.EitherContains(va, fa)
	}

	for _, v := range table {
		if normalize.Fold(v.Title) == ft && authorOK(v) {
			return v.Rating, true
		}
	}

	// Containment carries the same length floor the stores apply, so a
	// very short title cannot sweep up unrelated rows.
	if len([]rune(ft)) < store.DefaultFuzzyMinLength {
		return "", false
	}
	for _, v := range table {
		if normalize.EitherContains(v.Title, ft) && authorOK(v) {
			return v.Rating, true
		}
	}
	return "", false
}
