package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfscan/bookdex/internal/store"
	"github.com/shelfscan/bookdex/internal/store/sqlitestore"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-ratings",
	Short: "Clear ratings not produced by the generative provider",
	Long: `Clear the rating field on every cache entry whose source is not
"generative". Catalog-carried ratings are presentational metadata from
upstream and are not trusted; this enforces that policy retroactively on
entries written before it existed.`,
	RunE: runPurge,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Expire or wipe cache entries",
	Long: `Force cache entries to expire so the next lookup re-resolves them.

With --preserve-summaries the summaries (and ratings) stay in place and
only the expiry moves into the past; without it matching summaries are
cleared too. With neither --preserve-summaries nor --title the entire
cache is wiped.

Examples:
  # Force re-resolution of everything matching "dune", keeping summaries
  bookdex reset --title dune --preserve-summaries

  # Full wipe
  bookdex reset`,
	RunE: runReset,
}

var (
	preserveSummaries bool
	resetTitleFilter  string
)

func init() {
	resetCmd.Flags().BoolVar(&preserveSummaries, "preserve-summaries", false, "expire entries without clearing summaries")
	resetCmd.Flags().StringVar(&resetTitleFilter, "title", "", "only affect entries whose title contains this substring")
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(resetCmd)
}

// openStore opens the cache database directly for maintenance commands
// that bypass the client facade.
func openStore() (store.Store, error) {
	st, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	return st, nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.PurgeNonAuthoritativeRatings(context.Background())
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Printf("Cleared ratings on %d entries.\n", n)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Reset(context.Background(), store.ResetOptions{
		PreserveSummaries: preserveSummaries,
		TitleFilter:       resetTitleFilter,
	})
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Printf("Affected %d entries.\n", n)
	return nil
}
