// Package memstore provides an in-memory store implementation for tests
// and fx wiring without a database file.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/normalize"
	"github.com/shelfscan/bookdex/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store. Entries iterate in insertion order, which is
// the deterministic tie-break order for fuzzy matches.
type Store struct {
	mu       sync.Mutex
	entries  []book.Entry
	now      func() time.Time
	fuzzyMin int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFuzzyMinLength sets the minimum folded-title length eligible for
// substring matching. Zero restores the unbounded original behavior.
func WithFuzzyMinLength(n int) Option {
	return func(s *Store) { s.fuzzyMin = n }
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		fuzzyMin: store.DefaultFuzzyMinLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindByTitleAuthor implements store.Store.
func (s *Store) FindByTitleAuthor(ctx context.Context, title, author string) (*book.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	title, author = normalize.Fold(title), normalize.Fold(author)
	if title == "" {
		return nil, store.ErrNotFound
	}

	// Exact tier: title equality plus author equality or containment.
	// An empty input author matches on title alone.
	for i := range s.entries {
		e := &s.entries[i]
		if e.Expired(now) || e.Title != title {
			continue
		}
		if author == "" || e.Author == author || normalize.EitherContains(e.Author, author) {
			return copyEntry(e), nil
		}
	}

	if len([]rune(title)) < s.fuzzyMin {
		return nil, store.ErrNotFound
	}

	// Fuzzy tier: bidirectional containment on title and author.
	for i := range s.entries {
		e := &s.entries[i]
		if e.Expired(now) {
			continue
		}
		if !normalize.EitherContains(e.Title, title) {
			continue
		}
		if author == "" || normalize.EitherContains(e.Author, author) {
			return copyEntry(e), nil
		}
	}

	return nil, store.ErrNotFound
}

// FindByISBN implements store.Store.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (*book.Entry, error) {
	if len(isbn) < 10 {
		return nil, store.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.entries {
		e := &s.entries[i]
		if e.ISBN == isbn && !e.Expired(now) {
			return copyEntry(e), nil
		}
	}
	return nil, store.ErrNotFound
}

// Upsert implements store.Store. Resolution checks the exact key first,
// expired rows included, so a stale row is refreshed rather than
// duplicated; the fuzzy tier only sees live rows.
func (s *Store) Upsert(ctx context.Context, incoming book.Entry) (*book.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := normalize.Key(incoming.Title, incoming.Author)

	idx := -1
	for i := range s.entries {
		if s.entries[i].Key() == key {
			idx = i
			break
		}
	}

	if idx < 0 {
		title := normalize.Fold(incoming.Title)
		if len([]rune(title)) >= s.fuzzyMin {
			for i := range s.entries {
				e := &s.entries[i]
				if e.Expired(now) {
					continue
				}
				if normalize.EitherContains(e.Title, incoming.Title) &&
					normalize.EitherContains(e.Author, incoming.Author) {
					idx = i
					break
				}
			}
		}
	}

	if idx >= 0 {
		s.entries[idx] = book.Merge(s.entries[idx], incoming, now)
		return copyEntry(&s.entries[idx]), nil
	}

	fresh := book.Merge(book.Entry{ID: book.NewID(incoming)}, incoming, now)
	s.entries = append(s.entries, fresh)
	return copyEntry(&fresh), nil
}

// ExpireOlderThan implements store.Store.
func (s *Store) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	s.entries = kept
	return removed, nil
}

// PurgeNonAuthoritativeRatings implements store.Store.
func (s *Store) PurgeNonAuthoritativeRatings(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.entries {
		e := &s.entries[i]
		if e.Source != book.SourceGenerative && e.Rating != "" {
			e.Rating = ""
			changed++
		}
	}
	return changed, nil
}

// Reset implements store.Store.
func (s *Store) Reset(ctx context.Context, opts store.ResetOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.PreserveSummaries && opts.TitleFilter == "" {
		n := len(s.entries)
		s.entries = nil
		return n, nil
	}

	filter := normalize.Fold(opts.TitleFilter)
	past := s.now().Add(-time.Second)

	affected := 0
	for i := range s.entries {
		e := &s.entries[i]
		if filter != "" && !strings.Contains(e.Title, filter) {
			continue
		}
		e.ExpiresAt = past
		if !opts.PreserveSummaries {
			e.Summary = ""
		}
		affected++
	}
	return affected, nil
}

// All implements store.Store.
func (s *Store) All(ctx context.Context) ([]book.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]book.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

// copyEntry returns a detached copy so callers cannot mutate stored state.
func copyEntry(e *book.Entry) *book.Entry {
	out := *e
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
