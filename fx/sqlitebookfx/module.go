// Package sqlitebookfx provides an fx module for a SQLite-backed bookdex
// client with live provider adapters.
package sqlitebookfx

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shelfscan/bookdex"
	"github.com/shelfscan/bookdex/internal/provider/googlebooks"
	"github.com/shelfscan/bookdex/internal/provider/ollama"
	"github.com/shelfscan/bookdex/internal/provider/openlibrary"
	"github.com/shelfscan/bookdex/internal/ratelimit"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/stats/logger"
	promstats "github.com/shelfscan/bookdex/internal/stats/prometheus"
	"github.com/shelfscan/bookdex/internal/store/cachedstore"
	"github.com/shelfscan/bookdex/internal/store/sqlitestore"
)

// Config holds configuration for the SQLite-backed bookdex client.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string

	// MemCacheSize is the number of entries held in the in-process
	// read-through cache. Default is 512.
	MemCacheSize int

	// CatalogCallsPerMinute budgets each catalog adapter. Default is 30.
	CatalogCallsPerMinute int

	// GenerativeCallsPerMinute budgets the generative provider.
	// Default is 10.
	GenerativeCallsPerMinute int

	// OllamaModel overrides the generative model name.
	OllamaModel string

	// Metrics, when set, exports collector metrics to this Prometheus
	// registry instead of the debug logger.
	Metrics prometheus.Registerer
}

// Module provides a SQLite-backed bookdex client.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("sqlitebook",
	fx.Provide(
		newStatsCollector,
		newLimiter,
		newClient,
	),
)

func newStatsCollector(cfg Config, log *zap.Logger) stats.Collector {
	if cfg.Metrics != nil {
		return promstats.New(cfg.Metrics)
	}
	return logger.New(log.Named("bookdex.stats"))
}

func newLimiter(cfg Config, col stats.Collector) *ratelimit.Limiter {
	catalog := cfg.CatalogCallsPerMinute
	if catalog <= 0 {
		catalog = 30
	}
	generative := cfg.GenerativeCallsPerMinute
	if generative <= 0 {
		generative = 10
	}

	return ratelimit.New(map[string]ratelimit.Budget{
		googlebooks.ProviderKey: {Limit: catalog, Window: time.Minute},
		openlibrary.ProviderKey: {Limit: catalog, Window: time.Minute},
		ollama.ProviderKey:      {Limit: generative, Window: time.Minute},
	}, ratelimit.WithStats(col))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Limiter   *ratelimit.Limiter
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *bookdex.Client
}

func newClient(p Params) (Result, error) {
	cacheSize := p.Config.MemCacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}

	base, err := sqlitestore.Open(p.Config.DBPath)
	if err != nil {
		return Result{}, err
	}

	st, err := cachedstore.New(base, cacheSize, p.Collector)
	if err != nil {
		return Result{}, err
	}

	var ollamaOpts []ollama.Option
	if p.Config.OllamaModel != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithModel(p.Config.OllamaModel))
	}
	ollamaOpts = append(ollamaOpts, ollama.WithLogger(p.Logger.Named("ollama")))

	client, err := bookdex.New(
		bookdex.WithStore(st),
		bookdex.WithCatalog(googlebooks.New(p.Limiter, googlebooks.WithLogger(p.Logger.Named("googlebooks")))),
		bookdex.WithFallbackCatalog(openlibrary.New(p.Limiter, openlibrary.WithLogger(p.Logger.Named("openlibrary")))),
		bookdex.WithGenerative(ollama.New(p.Limiter, ollamaOpts...)),
		bookdex.WithStats(p.Collector),
		bookdex.WithLogger(p.Logger.Named("bookdex")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
