// Package snapshot publishes the cache contents as a portable JSONL
// archive and restores them elsewhere. Snapshots let a freshly deployed
// instance start with a warm cache instead of re-spending provider quota.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/codec"
	"github.com/shelfscan/bookdex/internal/store"
)

// ErrNotFound indicates the requested object does not exist in the sink.
var ErrNotFound = errors.New("snapshot: object not found")

const (
	manifestKey  = "manifest.json"
	entriesKey   = "entries.jsonl"
	manifestVers = 1
)

// Manifest describes a published snapshot.
type Manifest struct {
	Version     int       `json:"version"`
	EntryCount  int       `json:"entry_count"`
	Compression string    `json:"compression"`
	BuiltAt     time.Time `json:"built_at"`
}

// Sink is the object storage surface snapshots are written to and read
// from. Implementations exist for local directories, GCS and S3.
type Sink interface {
	// Put writes the object under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object under key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Close releases resources.
	Close() error
}

// record is the wire shape of one entry. Kept separate from book.Entry
// so the archive format does not shift when internal fields do.
type record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	ISBN      string            `json:"isbn,omitempty"`
	CoverURL  string            `json:"cover_url,omitempty"`
	Rating    string            `json:"rating,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func toRecord(e book.Entry) record {
	return record{
		ID:        e.ID,
		Title:     e.Title,
		Author:    e.Author,
		ISBN:      e.ISBN,
		CoverURL:  e.CoverURL,
		Rating:    e.Rating,
		Summary:   e.Summary,
		Source:    string(e.Source),
		Metadata:  e.Metadata,
		ExpiresAt: e.ExpiresAt,
	}
}

func (r record) entry() book.Entry {
	return book.Entry{
		ID:        r.ID,
		Title:     r.Title,
		Author:    r.Author,
		ISBN:      r.ISBN,
		CoverURL:  r.CoverURL,
		Rating:    r.Rating,
		Summary:   r.Summary,
		Source:    book.Source(r.Source),
		Metadata:  r.Metadata,
		ExpiresAt: r.ExpiresAt,
	}
}

// Publish exports every cache entry, expired rows included, as one JSONL
// object plus a manifest. The data object is compressed with the given
// codec; the manifest never is.
func Publish(ctx context.Context, st store.Store, sink Sink, c codec.Codec) (*Manifest, error) {
	entries, err := st.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(toRecord(e)); err != nil {
			w.Close()
			return nil, fmt.Errorf("encoding entry %q: %w", e.ID, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flushing compressor: %w", err)
	}

	if err := sink.Put(ctx, dataKey(c), &buf); err != nil {
		return nil, fmt.Errorf("writing entries: %w", err)
	}

	m := &Manifest{
		Version:     manifestVers,
		EntryCount:  len(entries),
		Compression: compressionName(c),
		BuiltAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := sink.Put(ctx, manifestKey, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return m, nil
}

// ReadManifest fetches and parses the snapshot manifest.
func ReadManifest(ctx context.Context, sink Sink) (*Manifest, error) {
	rc, err := sink.Get(ctx, manifestKey)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != manifestVers {
		return nil, fmt.Errorf("unsupported snapshot version %d", m.Version)
	}
	return &m, nil
}

// Restore imports a snapshot into the store. Every record goes through
// Upsert, so the merge and source-precedence rules apply and restoring
// over live data never duplicates rows. Returns the number of records
// imported.
func Restore(ctx context.Context, sink Sink, c codec.Codec, st store.Store) (int, error) {
	if _, err := ReadManifest(ctx, sink); err != nil {
		return 0, err
	}

	rc, err := sink.Get(ctx, dataKey(c))
	if err != nil {
		return 0, fmt.Errorf("reading entries: %w", err)
	}
	defer rc.Close()

	dec, err := c.Reader(rc)
	if err != nil {
		return 0, fmt.Errorf("creating decompressor: %w", err)
	}
	defer dec.Close()

	n := 0
	scanner := json.NewDecoder(dec)
	for {
		var r record
		if err := scanner.Decode(&r); err == io.EOF {
			break
		} else if err != nil {
			return n, fmt.Errorf("decoding record %d: %w", n, err)
		}
		if _, err := st.Upsert(ctx, r.entry()); err != nil {
			return n, fmt.Errorf("importing %q: %w", r.Title, err)
		}
		n++
	}
	return n, nil
}

// dataKey returns the entries object key with the codec's extension.
func dataKey(c codec.Codec) string {
	if ext := c.Extension(); ext != "" {
		return entriesKey + "." + ext
	}
	return entriesKey
}

// compressionName maps a codec to its manifest label.
func compressionName(c codec.Codec) string {
	if ext := c.Extension(); ext != "" {
		return ext
	}
	return "none"
}
