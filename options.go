package bookdex

import (
	"time"

	"go.uber.org/zap"

	"github.com/shelfscan/bookdex/internal/enrich"
	"github.com/shelfscan/bookdex/internal/provider"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/store"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	store      store.Store
	catalog    provider.Catalog
	fallback   provider.Catalog
	generative provider.Generative
	verified   []enrich.VerifiedRating
	bonuses    []BonusRule
	stats      stats.Collector
	logger     *zap.Logger
	clock      func() time.Time
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		verified: enrich.DefaultVerified(),
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
		clock:    time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithStore sets the cache storage backend. A store is required.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithCatalog sets the primary title-search catalog.
// If not set, Search consults only the fallback catalog, if any.
func WithCatalog(c provider.Catalog) Option {
	return optionFunc(func(o *options) {
		o.catalog = c
	})
}

// WithFallbackCatalog sets the secondary catalog, consulted only when the
// primary returned nothing.
func WithFallbackCatalog(c provider.Catalog) Option {
	return optionFunc(func(o *options) {
		o.fallback = c
	})
}

// WithGenerative sets the generative text provider used for rating and
// summary synthesis. If not set, ratings fall back to the verified table
// and the deterministic estimator, and summaries are never synthesized.
func WithGenerative(g provider.Generative) Option {
	return optionFunc(func(o *options) {
		o.generative = g
	})
}

// WithVerifiedTable replaces the built-in verified rating table.
// Pass nil to disable it.
func WithVerifiedTable(table []enrich.VerifiedRating) Option {
	return optionFunc(func(o *options) {
		o.verified = table
	})
}

// WithBonusTable sets the scorer's special-case bonus rules.
// If not set, no special-case bonuses apply.
func WithBonusTable(rules []BonusRule) Option {
	return optionFunc(func(o *options) {
		o.bonuses = rules
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.clock = now
	})
}
