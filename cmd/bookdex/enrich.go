package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [TITLE]",
	Short: "Resolve a rating and summary for a book",
	Long: `Resolve a rating and summary for a book, consulting the cache, the
verified table and the generative provider in precedence order.

Examples:
  bookdex enrich "Dune" --author "Frank Herbert"
  bookdex enrich "Project Hail Mary" --author "Andy Weir" --isbn 9780593135204`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

var (
	enrichAuthor string
	enrichISBN   string
	skipSummary  bool
)

func init() {
	enrichCmd.Flags().StringVar(&enrichAuthor, "author", "", "book author")
	enrichCmd.Flags().StringVar(&enrichISBN, "isbn", "", "ISBN, used as a secondary cache key")
	enrichCmd.Flags().BoolVar(&skipSummary, "no-summary", false, "resolve the rating only")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	title := args[0]

	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	rating, err := client.EnrichRating(ctx, title, enrichAuthor, enrichISBN)
	if err != nil {
		return fmt.Errorf("resolving rating: %w", err)
	}
	fmt.Printf("Title:  %s\n", title)
	if enrichAuthor != "" {
		fmt.Printf("Author: %s\n", enrichAuthor)
	}
	fmt.Printf("Rating: %s\n", rating)

	if skipSummary {
		return nil
	}

	summary, err := client.EnrichSummary(ctx, title, enrichAuthor, "")
	if err != nil {
		return fmt.Errorf("resolving summary: %w", err)
	}
	if summary == "" {
		fmt.Println("Summary: (none available)")
	} else {
		fmt.Printf("Summary: %s\n", summary)
	}

	return nil
}
