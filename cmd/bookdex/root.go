package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfscan/bookdex"
	"github.com/shelfscan/bookdex/internal/provider/googlebooks"
	"github.com/shelfscan/bookdex/internal/provider/ollama"
	"github.com/shelfscan/bookdex/internal/provider/openlibrary"
	"github.com/shelfscan/bookdex/internal/ratelimit"
	"github.com/shelfscan/bookdex/internal/stats"
	"github.com/shelfscan/bookdex/internal/store/cachedstore"
	"github.com/shelfscan/bookdex/internal/store/sqlitestore"
)

var (
	// Global flags.
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bookdex",
	Short: "Enrich and rank books against a local metadata cache",
	Long: `Bookdex enriches detected book titles with ratings, summaries and
catalog metadata, caching everything locally so repeat lookups never
re-spend provider quota.

Examples:
  # Resolve a rating
  bookdex enrich "Dune" --author "Frank Herbert"

  # Search the catalogs
  bookdex search "Atomic Habits"

  # Remove expired cache entries
  bookdex sweep`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./bookdex.db", "SQLite cache database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger builds the CLI logger; verbose switches on development output.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openClient opens the cache database and wires the live provider stack.
func openClient() (*bookdex.Client, error) {
	base, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	st, err := cachedstore.New(base, 512, stats.NewNoop())
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}

	limiter := ratelimit.New(map[string]ratelimit.Budget{
		googlebooks.ProviderKey: {Limit: 30, Window: time.Minute},
		openlibrary.ProviderKey: {Limit: 30, Window: time.Minute},
		ollama.ProviderKey:      {Limit: 10, Window: time.Minute},
	})

	logger := newLogger()
	client, err := bookdex.New(
		bookdex.WithStore(st),
		bookdex.WithCatalog(googlebooks.New(limiter, googlebooks.WithLogger(logger.Named("googlebooks")))),
		bookdex.WithFallbackCatalog(openlibrary.New(limiter, openlibrary.WithLogger(logger.Named("openlibrary")))),
		bookdex.WithGenerative(ollama.New(limiter, ollama.WithLogger(logger.Named("ollama")))),
		bookdex.WithLogger(logger.Named("bookdex")),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return client, nil
}
