package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfscan/bookdex/internal/analysis"
	"github.com/shelfscan/bookdex/internal/book"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics about the metadata cache",
	Long: `Display statistics about the metadata cache including entry counts
per source class and the rating distribution.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	r, err := analysis.Analyze(context.Background(), st, time.Now())
	if err != nil {
		return fmt.Errorf("analyzing cache: %w", err)
	}

	fmt.Printf("Database:    %s\n", dbPath)
	fmt.Printf("Entries:     %d (%d expired)\n", r.TotalEntries, r.ExpiredEntries)
	fmt.Printf("Summaries:   %d\n", r.WithSummary)

	if len(r.BySource) > 0 {
		sources := make([]string, 0, len(r.BySource))
		for s := range r.BySource {
			sources = append(sources, string(s))
		}
		sort.Strings(sources)
		fmt.Println("By source:")
		for _, s := range sources {
			fmt.Printf("  %-17s %d\n", s, r.BySource[book.Source(s)])
		}
	}

	if r.RatedEntries == 0 {
		fmt.Println("No rated entries.")
		return nil
	}

	fmt.Printf("Ratings:     %d\n", r.RatedEntries)
	fmt.Printf("  mean %.2f  stddev %.2f  p25 %.1f  median %.1f  p75 %.1f\n",
		r.MeanRating, r.StdDevRating, r.P25Rating, r.MedianRating, r.P75Rating)

	return nil
}
