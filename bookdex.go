// Package bookdex enriches detected book candidates with ratings,
// summaries and catalog metadata, and ranks them against user
// preferences. It sits behind whatever detects the books (a shelf
// scanner, a CSV import, a manual list) and in front of whatever renders
// them.
//
// Example usage:
//
//	st, err := sqlitestore.Open("/var/lib/bookdex/cache.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := bookdex.New(
//	    bookdex.WithStore(st),
//	    bookdex.WithGenerative(ollama.New(limiter)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	rating, err := client.EnrichRating(ctx, "Dune", "Frank Herbert", "")
package bookdex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/enrich"
	"github.com/shelfscan/bookdex/internal/provider"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/store"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("bookdex: client closed")

	// ErrNoStore indicates no store was provided.
	ErrNoStore = errors.New("bookdex: no store provided")
)

// Client is the enrichment and recommendation facade.
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	store    store.Store
	catalogs []provider.Catalog
	enricher *enrich.Orchestrator
	bonuses  []BonusRule
	stats    stats.Collector
	logger   *zap.Logger
	closed   atomic.Bool
}

// New creates a new Client with the given options.
// A store is required; everything else has a working default.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.store == nil {
		return nil, ErrNoStore
	}

	var catalogs []provider.Catalog
	for _, c := range []provider.Catalog{cfg.catalog, cfg.fallback} {
		if c != nil {
			catalogs = append(catalogs, c)
		}
	}

	c := &Client{
		store:    cfg.store,
		catalogs: catalogs,
		bonuses:  cfg.bonuses,
		stats:    cfg.stats,
		logger:   cfg.logger,
		enricher: enrich.New(enrich.Config{
			Store:      cfg.store,
			Generative: cfg.generative,
			Verified:   cfg.verified,
			Stats:      cfg.stats,
			Logger:     cfg.logger,
			Clock:      cfg.clock,
		}),
	}

	c.logger.Debug("client initialized",
		zap.Int("catalogs", len(c.catalogs)),
		zap.Bool("generative", cfg.generative != nil),
	)

	return c, nil
}

// EnrichRating resolves a rating for the given book. The returned string
// always matches one fractional digit in [1.0, 5.0]; when every source
// fails it carries a deterministic estimate rather than being empty.
func (c *Client) EnrichRating(ctx context.Context, title, author, isbn string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	return c.enricher.ResolveRating(ctx, title, author, isbn), nil
}

// EnrichSummary resolves a summary for the given book, preferring cached
// generative text, then fresh synthesis, then the existing value. The
// result may be empty.
func (c *Client) EnrichSummary(ctx context.Context, title, author, existing string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	return c.enricher.ResolveSummary(ctx, title, author, existing), nil
}

// Search queries the catalogs in fallback order and returns candidates
// from the first one with a non-empty result set. Results are persisted
// to the cache tagged with the providing catalog's source class. Adapter
// failures are logged and treated as empty results.
func (c *Client) Search(ctx context.Context, title string) ([]Candidate, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	for i, cat := range c.catalogs {
		results, err := cat.Search(ctx, title)
		if err != nil {
			c.stats.IncCounter(stats.MetricProviderFailures, 1)
			c.logger.Warn("catalog search failed",
				zap.String("provider", cat.Name()), zap.Error(err))
			continue
		}
		if len(results) == 0 {
			continue
		}

		source := book.SourceCatalogPrimary
		if i > 0 {
			source = book.SourceCatalogFallback
		}

		candidates := make([]Candidate, 0, len(results))
		for _, r := range results {
			if _, err := c.store.Upsert(ctx, resultToEntry(r, source)); err != nil {
				c.logger.Warn("caching search result failed",
					zap.String("title", r.Title), zap.Error(err))
			}
			candidates = append(candidates, resultToCandidate(r, cat.Name()))
		}
		return candidates, nil
	}

	return nil, nil
}

// EnrichAll resolves ratings and summaries for a batch of candidates
// concurrently. Output order matches input order regardless of completion
// order. Individual failures degrade to estimated or empty fields; the
// batch itself never fails once started.
func (c *Client) EnrichAll(ctx context.Context, candidates []Candidate) ([]Candidate, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	out := make([]Candidate, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand Candidate) {
			defer wg.Done()
			cand.Rating = c.enricher.ResolveRating(ctx, cand.Title, cand.Author, cand.ISBN)
			cand.Summary = c.enricher.ResolveSummary(ctx, cand.Title, cand.Author, cand.Summary)
			out[i] = cand
		}(i, cand)
	}
	wg.Wait()

	return out, nil
}

// RunSweep deletes expired cache entries and returns the number removed.
// Intended to be called on a low-frequency schedule.
func (c *Client) RunSweep(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.enricher.Sweep(ctx)
}

// Store returns the storage backend used by this client.
func (c *Client) Store() store.Store {
	return c.store
}

// Close releases all resources associated with the client.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if err := c.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	return nil
}
