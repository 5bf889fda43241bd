// Package store defines the persistence contract for cached book entries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
)

// ErrNotFound is returned when no matching entry exists in the store.
var ErrNotFound = errors.New("store: entry not found")

// DefaultFuzzyMinLength is the minimum folded-title length eligible for
// substring matching. Shorter titles only match exactly; one-word titles
// like "It" over-match badly otherwise.
const DefaultFuzzyMinLength = 4

// ResetOptions controls Reset. The zero value with no filter wipes the
// whole store.
type ResetOptions struct {
	// PreserveSummaries forces matching entries to expire without touching
	// their summary or rating, so the next read refreshes them without
	// re-incurring generative-provider cost.
	PreserveSummaries bool

	// TitleFilter restricts the operation to entries whose title contains
	// this substring (after folding). Empty matches every entry.
	TitleFilter string
}

// Store is the persistence contract for cached book entries.
// Implementations must be safe for concurrent use, and Upsert must not
// produce duplicate rows for the same normalized title|author key under
// concurrent writers.
type Store interface {
	// FindByTitleAuthor looks up a non-expired entry: exact normalized
	// match first (title equality, author equality or containment in
	// either direction), then a bidirectional substring match on both
	// title and author. Returns ErrNotFound when nothing matches.
	// Tie-breaks within a tier follow the store's default row order.
	FindByTitleAuthor(ctx context.Context, title, author string) (*book.Entry, error)

	// FindByISBN looks up a non-expired entry by exact ISBN. ISBNs shorter
	// than 10 characters are rejected with ErrNotFound.
	FindByISBN(ctx context.Context, isbn string) (*book.Entry, error)

	// Upsert merges incoming into the entry resolved by exact key match,
	// then fuzzy match, inserting a new row only when neither resolves.
	// Field precedence and expiry follow book.Merge. Returns the stored
	// result.
	Upsert(ctx context.Context, incoming book.Entry) (*book.Entry, error)

	// ExpireOlderThan deletes all entries with expiresAt <= now and
	// returns the number removed.
	ExpireOlderThan(ctx context.Context, now time.Time) (int, error)

	// PurgeNonAuthoritativeRatings clears the rating on every entry whose
	// source is not generative, leaving other fields untouched, and
	// returns the number of entries changed.
	PurgeNonAuthoritativeRatings(ctx context.Context) (int, error)

	// Reset applies ResetOptions and returns the number of entries
	// affected. See ResetOptions.
	Reset(ctx context.Context, opts ResetOptions) (int, error)

	// All returns every entry, expired or not, in the store's default
	// order. Used by snapshots and analysis.
	All(ctx context.Context) ([]book.Entry, error)

	// Close releases any resources held by the store.
	Close() error
}
