package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfscan/bookdex"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [TITLE]...",
	Short: "Rank a list of books against your preferences",
	Long: `Enrich each given title and rank the list: unread books first, each
partition sorted by match score.

Read history entries take the form "title=rating"; genre preferences are
matched case-insensitively against catalog categories.

Example:
  bookdex recommend "Dune" "The Hobbit" "Project Hail Mary" \
    --genre "science fiction" \
    --read "dune=5"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

var (
	prefGenres  []string
	readEntries []string
)

func init() {
	recommendCmd.Flags().StringSliceVar(&prefGenres, "genre", nil, "preferred genre (repeatable)")
	recommendCmd.Flags().StringSliceVar(&readEntries, "read", nil, "read history entry as title=rating (repeatable)")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	prefs := bookdex.Preferences{Genres: prefGenres}
	for _, raw := range readEntries {
		title, ratingStr, found := strings.Cut(raw, "=")
		if !found {
			return fmt.Errorf("malformed --read entry %q, want title=rating", raw)
		}
		rating, err := strconv.ParseFloat(ratingStr, 64)
		if err != nil {
			return fmt.Errorf("malformed rating in --read entry %q: %w", raw, err)
		}
		prefs.ReadHistory = append(prefs.ReadHistory, bookdex.HistoryEntry{
			Title:  title,
			Rating: rating,
		})
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	candidates := make([]bookdex.Candidate, len(args))
	for i, title := range args {
		candidates[i] = bookdex.Candidate{Title: title, DetectedFrom: "cli"}
	}

	enriched, err := client.EnrichAll(context.Background(), candidates)
	if err != nil {
		return fmt.Errorf("enriching candidates: %w", err)
	}

	ranked := client.Recommend(enriched, prefs)
	for i, sc := range ranked {
		marker := " "
		if sc.AlreadyRead {
			marker = "R"
		}
		rating := sc.Rating
		if !sc.HasRating() {
			rating = "no rating available"
		}
		fmt.Printf("%2d. [%s] %-40s score %d  (%s)\n", i+1, marker, sc.Title, sc.MatchScore, rating)
	}

	return nil
}
