package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [TITLE]",
	Short: "Search the book catalogs by title",
	Long: `Search the catalogs in fallback order (primary first) and print the
candidates from the first catalog that answered. Results are cached.

Example:
  bookdex search "Atomic Habits"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.Search(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, c := range results {
		fmt.Printf("%d. %s", i+1, c.Title)
		if c.Author != "" {
			fmt.Printf(" by %s", c.Author)
		}
		fmt.Println()
		if c.ISBN != "" {
			fmt.Printf("   ISBN:       %s\n", c.ISBN)
		}
		if len(c.Categories) > 0 {
			fmt.Printf("   Categories: %s\n", strings.Join(c.Categories, ", "))
		}
		fmt.Printf("   Source:     %s\n", c.DetectedFrom)
	}

	return nil
}
