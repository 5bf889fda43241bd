// Package enrich resolves ratings and summaries for book candidates,
// mediating between the cache, the verified table and the generative
// provider.
//
// Rating resolution is an ordered chain of resolvers; the first one that
// produces a value wins and later ones are never consulted. No resolver
// failure aborts the chain; the final estimator cannot fail, so every
// lookup produces a usable rating.
package enrich

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/provider"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/store"
)

// Config wires an Orchestrator. Store is required; everything else has a
// working default.
type Config struct {
	Store      store.Store
	Generative provider.Generative // nil disables live synthesis
	Verified   []VerifiedRating
	Stats      stats.Collector
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Orchestrator owns the rating and summary resolution policy.
type Orchestrator struct {
	store    store.Store
	gen      provider.Generative
	verified []VerifiedRating
	stats    stats.Collector
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:    cfg.Store,
		gen:      cfg.Generative,
		verified: cfg.Verified,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if o.stats == nil {
		o.stats = stats.NewNoop()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// ResolveRating returns a rating string for the given book. It never
// fails: the deterministic estimator is the final fallback. Resolutions
// that produced new information are persisted; store write failures are
// logged and swallowed, the resolved value is still returned.
func (o *Orchestrator) ResolveRating(ctx context.Context, title, author, isbn string) string {
	o.stats.IncCounter(stats.MetricRatingLookups, 1)

	// Non-expired generative-sourced cache entry wins outright.
	if entry, err := o.store.FindByTitleAuthor(ctx, title, author); err == nil {
		o.stats.IncCounter(stats.MetricCacheHits, 1)
		if entry.Source == book.SourceGenerative && book.ValidRating(entry.Rating) {
			return entry.Rating
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		o.logger.Warn("cache read failed", zap.String("title", title), zap.Error(err))
	} else {
		o.stats.IncCounter(stats.MetricCacheMisses, 1)
	}

	// ISBN-keyed entry with a usable rating, written back under the
	// title/author key so the next lookup hits directly.
	if len(isbn) >= 10 {
		if entry, err := o.store.FindByISBN(ctx, isbn); err == nil && book.ValidRating(entry.Rating) {
			o.persist(ctx, book.Entry{
				Title:  title,
				Author: author,
				ISBN:   isbn,
				Rating: entry.Rating,
			})
			return entry.Rating
		}
	}

	if rating, ok := LookupVerified(o.verified, title, author); ok {
		o.persist(ctx, book.Entry{Title: title, Author: author, ISBN: isbn, Rating: rating})
		return rating
	}

	if o.gen != nil {
		if rating, ok := o.generativeRating(ctx, title, author); ok {
			o.persist(ctx, book.Entry{Title: title, Author: author, ISBN: isbn, Rating: rating})
			return rating
		}
	}

	// The estimate is derivable from the key alone, so it is not
	// persisted: a stored estimate would masquerade as a generative
	// rating and short-circuit future resolution.
	o.stats.IncCounter(stats.MetricRatingEstimates, 1)
	return EstimateRating(title, author)
}

// generativeRating calls the provider and extracts a bounded rating.
func (o *Orchestrator) generativeRating(ctx context.Context, title, author string) (string, bool) {
	o.stats.IncCounter(stats.MetricProviderCalls, 1)

	text, err := o.gen.Rate(ctx, title, author)
	if err != nil {
		o.stats.IncCounter(stats.MetricProviderFailures, 1)
		o.logger.Warn("generative rating failed",
			zap.String("title", title), zap.Error(err))
		return "", false
	}

	rating, ok := ParseRating(text)
	if !ok && text != "" {
		o.logger.Warn("unparseable generative rating",
			zap.String("title", title), zap.String("response", text))
	}
	return rating, ok
}

// ResolveSummary returns the best available summary. Preference order:
// non-expired generative-sourced cache entry, fresh synthesis, then the
// previously-known value (possibly empty). It never fails.
func (o *Orchestrator) ResolveSummary(ctx context.Context, title, author, existing string) string {
	o.stats.IncCounter(stats.MetricSummaryLookups, 1)

	known := existing
	if entry, err := o.store.FindByTitleAuthor(ctx, title, author); err == nil {
		if entry.Source == book.SourceGenerative && entry.Summary != "" {
			return entry.Summary
		}
		if entry.Summary != "" {
			known = entry.Summary
		}
	}

	if o.gen != nil {
		o.stats.IncCounter(stats.MetricProviderCalls, 1)
		text, err := o.gen.Summarize(ctx, title, author)
		if err != nil {
			o.stats.IncCounter(stats.MetricProviderFailures, 1)
			o.logger.Warn("generative summary failed",
				zap.String("title", title), zap.Error(err))
		} else if text != "" {
			o.persist(ctx, book.Entry{Title: title, Author: author, Summary: text})
			return text
		}
	}

	return known
}

// Sweep deletes expired entries and returns the number removed.
func (o *Orchestrator) Sweep(ctx context.Context) (int, error) {
	n, err := o.store.ExpireOlderThan(ctx, o.now())
	if err != nil {
		return 0, err
	}
	o.stats.IncCounter(stats.MetricExpiredRows, int64(n))
	return n, nil
}

// persist upserts best-effort; persistence failures never surface.
func (o *Orchestrator) persist(ctx context.Context, e book.Entry) {
	if _, err := o.store.Upsert(ctx, e); err != nil {
		o.logger.Warn("cache write failed",
			zap.String("title", e.Title), zap.Error(err))
		return
	}
	o.stats.IncCounter(stats.MetricUpserts, 1)
}

// numberPattern extracts the first decimal number, with or without a
// fractional part, from freeform provider text.
var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseRating extracts a rating from freeform text. The first number
// found is bounds-checked against [1.0, 5.0] by book.FormatRating, which
// truncates extra fractional digits rather than rounding and gives bare
// integers a ".0" suffix.
func ParseRating(text string) (string, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return "", false
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return "", false
	}
	return book.FormatRating(v)
}
