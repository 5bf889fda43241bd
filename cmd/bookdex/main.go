// Package main provides the bookdex CLI tool for enriching, ranking and
// maintaining the book metadata cache.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
