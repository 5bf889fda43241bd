// Package cachedstore wraps a store.Store with an in-process LRU over the
// title|author lookup path. Writes and maintenance operations invalidate,
// so the memory layer never serves data the backing store has dropped.
package cachedstore

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/normalize"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a read-through cache over another store.
type Store struct {
	underlying store.Store
	cache      *lru.Cache[string, book.Entry]
	stats      stats.Collector
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a cached store with the given capacity.
// If collector is nil, metrics are discarded.
func New(underlying store.Store, capacity int, collector stats.Collector, opts ...Option) (*Store, error) {
	cache, err := lru.New[string, book.Entry](capacity)
	if err != nil {
		return nil, err
	}
	if collector == nil {
		collector = stats.NewNoop()
	}
	s := &Store{
		underlying: underlying,
		cache:      cache,
		stats:      collector,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FindByTitleAuthor checks the memory layer before the underlying store.
// Only exact-key hits are served from memory; fuzzy matches always go to
// the store, whose tie-break order must stay authoritative.
func (s *Store) FindByTitleAuthor(ctx context.Context, title, author string) (*book.Entry, error) {
	key := normalize.Key(title, author)

	if entry, ok := s.cache.Get(key); ok {
		if !entry.Expired(s.now()) {
			s.stats.IncCounter(stats.MetricMemCacheHits, 1)
			return copyEntry(entry), nil
		}
		s.cache.Remove(key)
	}
	s.stats.IncCounter(stats.MetricMemCacheMiss, 1)

	entry, err := s.underlying.FindByTitleAuthor(ctx, title, author)
	if err != nil {
		return nil, err
	}

	// Cache under the entry's own key: a fuzzy hit for a different query
	// key must not shadow the exact entry for that key.
	s.cache.Add(entry.Key(), *entry)
	s.stats.SetGauge(stats.MetricMemCacheSize, int64(s.cache.Len()))
	return entry, nil
}

// FindByISBN always goes to the underlying store.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (*book.Entry, error) {
	return s.underlying.FindByISBN(ctx, isbn)
}

// Upsert writes through and refreshes the memory layer for the result key.
func (s *Store) Upsert(ctx context.Context, incoming book.Entry) (*book.Entry, error) {
	key := normalize.Key(incoming.Title, incoming.Author)
	s.cache.Remove(key)

	entry, err := s.underlying.Upsert(ctx, incoming)
	if err != nil {
		return nil, err
	}

	// A fuzzy-matched upsert can merge into and rename a row stored under
	// a different key, and the store does not report which key that was.
	// Any sign the write landed on another row drops the whole memory
	// layer, or the renamed row's old key would keep serving pre-merge
	// data.
	if entry.ID != book.NewID(incoming) || entry.Key() != key {
		s.cache.Purge()
	}

	s.cache.Add(entry.Key(), *entry)
	return entry, nil
}

// ExpireOlderThan drops the whole memory layer along with expired rows.
func (s *Store) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	s.cache.Purge()
	return s.underlying.ExpireOlderThan(ctx, now)
}

// PurgeNonAuthoritativeRatings invalidates the memory layer.
func (s *Store) PurgeNonAuthoritativeRatings(ctx context.Context) (int, error) {
	s.cache.Purge()
	return s.underlying.PurgeNonAuthoritativeRatings(ctx)
}

// Reset invalidates the memory layer.
func (s *Store) Reset(ctx context.Context, opts store.ResetOptions) (int, error) {
	s.cache.Purge()
	return s.underlying.Reset(ctx, opts)
}

// All bypasses the memory layer.
func (s *Store) All(ctx context.Context) ([]book.Entry, error) {
	return s.underlying.All(ctx)
}

// Close closes the underlying store.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.underlying.Close()
}

func copyEntry(e book.Entry) *book.Entry {
	out := e
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
