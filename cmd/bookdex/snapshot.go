package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfscan/bookdex/internal/codec"
	"github.com/shelfscan/bookdex/internal/codec/gzipcodec"
	"github.com/shelfscan/bookdex/internal/codec/noopcodec"
	"github.com/shelfscan/bookdex/internal/codec/zstdcodec"
	"github.com/shelfscan/bookdex/internal/snapshot"
	"github.com/shelfscan/bookdex/internal/snapshot/dirsink"
	"github.com/shelfscan/bookdex/internal/snapshot/gcssink"
	"github.com/shelfscan/bookdex/internal/snapshot/s3sink"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Publish or restore cache snapshots",
	Long: `Publish the cache as a portable archive, or restore one into the
current database. Restores go through the normal upsert path, so merge
rules apply and restoring over live data never duplicates rows.

Destinations: a local directory (--dir), a GCS bucket (--gcs-bucket) or
an S3 bucket (--s3-bucket).

Examples:
  bookdex snapshot publish --dir ./snapshots
  bookdex snapshot restore --dir ./snapshots
  bookdex snapshot publish --gcs-bucket my-bucket --prefix bookdex/prod`,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Export the cache to a snapshot",
	RunE:  runPublish,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Import a snapshot into the cache",
	RunE:  runRestore,
}

var (
	snapDir       string
	snapGCSBucket string
	snapS3Bucket  string
	snapS3Region  string
	snapPrefix    string
	snapCodec     string
)

func init() {
	for _, cmd := range []*cobra.Command{publishCmd, restoreCmd} {
		cmd.Flags().StringVar(&snapDir, "dir", "", "local snapshot directory")
		cmd.Flags().StringVar(&snapGCSBucket, "gcs-bucket", "", "GCS bucket name")
		cmd.Flags().StringVar(&snapS3Bucket, "s3-bucket", "", "S3 bucket name")
		cmd.Flags().StringVar(&snapS3Region, "s3-region", "", "S3 bucket region")
		cmd.Flags().StringVar(&snapPrefix, "prefix", "", "object key prefix for bucket destinations")
		cmd.Flags().StringVar(&snapCodec, "codec", "zstd", "compression: zstd, gzip or none")
		snapshotCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(snapshotCmd)
}

// openSink builds the snapshot sink from the destination flags.
// Exactly one destination must be given.
func openSink(ctx context.Context) (snapshot.Sink, error) {
	set := 0
	for _, s := range []string{snapDir, snapGCSBucket, snapS3Bucket} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("specify exactly one of --dir, --gcs-bucket, --s3-bucket")
	}

	switch {
	case snapDir != "":
		return dirsink.New(snapDir)
	case snapGCSBucket != "":
		return gcssink.New(ctx, snapGCSBucket, gcssink.WithPrefix(snapPrefix))
	default:
		opts := []s3sink.Option{s3sink.WithPrefix(snapPrefix)}
		if snapS3Region != "" {
			opts = append(opts, s3sink.WithRegion(snapS3Region))
		}
		return s3sink.New(ctx, snapS3Bucket, opts...)
	}
}

// snapshotCodec maps the --codec flag to a codec.
func snapshotCodec() (codec.Codec, error) {
	switch snapCodec {
	case "zstd":
		return zstdcodec.New(), nil
	case "gzip":
		return gzipcodec.New(), nil
	case "none":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q, want zstd, gzip or none", snapCodec)
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := snapshotCodec()
	if err != nil {
		return err
	}
	sink, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	m, err := snapshot.Publish(ctx, st, sink, c)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	fmt.Printf("Published %d entries (compression: %s).\n", m.EntryCount, m.Compression)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := snapshotCodec()
	if err != nil {
		return err
	}
	sink, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := snapshot.Restore(ctx, sink, c, st)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Printf("Restored %d entries.\n", n)
	return nil
}
