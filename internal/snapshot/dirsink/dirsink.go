// Package dirsink implements a snapshot sink on a local directory.
package dirsink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shelfscan/bookdex/internal/snapshot"
)

// Compile-time check that Sink implements snapshot.Sink.
var _ snapshot.Sink = (*Sink)(nil)

// Sink stores snapshot objects as files under a root directory.
type Sink struct {
	root string
}

// New creates a directory sink, creating the root if necessary.
func New(root string) (*Sink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &Sink{root: root}, nil
}

// Put implements snapshot.Sink. Objects are written via a temp file and
// renamed, so a crashed publish never leaves a torn object behind.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := os.CreateTemp(s.root, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(f.Name(), filepath.Join(s.root, key)); err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	return nil
}

// Get implements snapshot.Sink.
func (s *Sink) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	return f, nil
}

// Close releases any resources held by the sink.
func (s *Sink) Close() error {
	return nil
}
