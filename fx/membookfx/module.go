// Package membookfx provides an fx module for an in-memory bookdex client.
// Useful for testing.
package membookfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shelfscan/bookdex"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/stats/logger"
	"github.com/shelfscan/bookdex/internal/store/memstore"
)

// Module provides an in-memory bookdex client for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("membook",
	fx.Provide(
		newStatsCollector,
		newMemStore,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("bookdex.stats"))
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Store     *memstore.Store
	Lifecycle fx.Lifecycle
}

// Result holds the provided client. The *memstore.Store itself is also
// in the graph, exposed for test setup.
type Result struct {
	fx.Out

	Client *bookdex.Client
}

func newClient(p Params) (Result, error) {
	client, err := bookdex.New(
		bookdex.WithStore(p.Store),
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
