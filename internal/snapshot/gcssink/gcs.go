// Package gcssink implements a snapshot sink on Google Cloud Storage.
package gcssink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/shelfscan/bookdex/internal/snapshot"
)

// Compile-time check that Sink implements snapshot.Sink.
var _ snapshot.Sink = (*Sink)(nil)

// Sink stores snapshot objects in a GCS bucket.
type Sink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// New creates a GCS sink. The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Sink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Sink{
		client: client,
		bucket: client.Bucket(bucketName),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Sink.
type Option func(*Sink)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// Put implements snapshot.Sink.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	w := s.bucket.Object(s.prefix + key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", key, err)
	}
	return nil
}

// Get implements snapshot.Sink.
func (s *Sink) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.bucket.Object(s.prefix + key).NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	return reader, nil
}

// Close releases resources.
func (s *Sink) Close() error {
	return s.client.Close()
}
