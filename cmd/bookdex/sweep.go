package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.RunSweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Printf("Removed %d expired entries.\n", n)
	return nil
}
