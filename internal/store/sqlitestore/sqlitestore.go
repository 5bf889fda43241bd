// Package sqlitestore implements the cache store on SQLite.
//
// SQLite provides the two properties the cache contract leans on: a
// store-level unique constraint on the normalized key (so concurrent
// upserts for the same book cannot produce duplicate rows) and substring
// queries for the fuzzy lookup tier.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/normalize"
	"github.com/shelfscan/bookdex/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS book_cache (
	id         TEXT PRIMARY KEY,
	norm_key   TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	isbn       TEXT NOT NULL DEFAULT '',
	cover_url  TEXT NOT NULL DEFAULT '',
	rating     TEXT NOT NULL DEFAULT '',
	summary    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_book_cache_isbn ON book_cache(isbn);
CREATE INDEX IF NOT EXISTS idx_book_cache_expires ON book_cache(expires_at);
`

const columns = "id, norm_key, title, author, isbn, cover_url, rating, summary, source, metadata, expires_at"

// Store is a SQLite-backed cache store.
type Store struct {
	db       *sql.DB
	now      func() time.Time
	fuzzyMin int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFuzzyMinLength sets the minimum folded-title length eligible for
// substring matching. Zero restores the unbounded original behavior.
func WithFuzzyMinLength(n int) Option {
	return func(s *Store) { s.fuzzyMin = n }
}

// Open opens (creating if needed) a SQLite-backed store at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	// Immediate transactions take the write lock up front, so two
	// concurrent upserts serialize instead of deadlocking on lock upgrade.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:       db,
		now:      time.Now,
		fuzzyMin: store.DefaultFuzzyMinLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FindByTitleAuthor implements store.Store.
func (s *Store) FindByTitleAuthor(ctx context.Context, title, author string) (*book.Entry, error) {
	title, author = normalize.Fold(title), normalize.Fold(author)
	if title == "" {
		return nil, store.ErrNotFound
	}
	now := s.now().Unix()

	// Exact tier: stored titles are folded, so equality is
	// case-insensitive by construction. An empty input author matches on
	// title alone; containment requires a non-empty stored author, since
	// instr treats an empty needle as found.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM book_cache
		WHERE title = ?
		  AND expires_at > ?
		  AND (? = '' OR author = ?
		       OR (author != '' AND (instr(author, ?) > 0 OR instr(?, author) > 0)))
		ORDER BY rowid
		LIMIT 1`,
		title, now, author, author, author, author)

	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}

	if len([]rune(title)) < s.fuzzyMin {
		return nil, store.ErrNotFound
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM book_cache
		WHERE expires_at > ?
		  AND (instr(title, ?) > 0 OR instr(?, title) > 0)
		  AND (? = '' OR (author != '' AND (instr(author, ?) > 0 OR instr(?, author) > 0)))
		ORDER BY rowid
		LIMIT 1`,
		now, title, title, author, author, author)

	entry, err = scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fuzzy lookup: %w", err)
	}
	return entry, nil
}

// FindByISBN implements store.Store.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (*book.Entry, error) {
	if len(isbn) < 10 {
		return nil, store.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM book_cache
		WHERE isbn = ? AND expires_at > ?
		ORDER BY rowid
		LIMIT 1`,
		isbn, s.now().Unix())

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("isbn lookup: %w", err)
	}
	return entry, nil
}

// Upsert implements store.Store. A lost insert race surfaces as a unique
// constraint violation on norm_key and is retried as an update.
func (s *Store) Upsert(ctx context.Context, incoming book.Entry) (*book.Entry, error) {
	entry, err := s.upsertOnce(ctx, incoming)
	if isUniqueViolation(err) {
		entry, err = s.upsertOnce(ctx, incoming)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) upsertOnce(ctx context.Context, incoming book.Entry) (*book.Entry, error) {
	now := s.now()
	key := normalize.Key(incoming.Title, incoming.Author)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	// Resolution order: exact key (expired rows included, so stale rows
	// refresh in place), then fuzzy over live rows, then insert.
	existing, err := scanEntry(tx.QueryRowContext(ctx,
		`SELECT `+columns+` FROM book_cache WHERE norm_key = ? LIMIT 1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		existing, err = s.fuzzyInTx(ctx, tx, incoming, now)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve upsert target: %w", err)
	}

	if existing != nil {
		merged := book.Merge(*existing, incoming, now)
		meta, err := encodeMetadata(merged.Metadata)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE book_cache
			SET norm_key = ?, title = ?, author = ?, isbn = ?, cover_url = ?,
			    rating = ?, summary = ?, source = ?, metadata = ?, expires_at = ?
			WHERE id = ?`,
			merged.Key(), merged.Title, merged.Author, merged.ISBN, merged.CoverURL,
			merged.Rating, merged.Summary, string(merged.Source), meta,
			merged.ExpiresAt.Unix(), merged.ID,
		); err != nil {
			return nil, fmt.Errorf("update entry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit upsert: %w", err)
		}
		return &merged, nil
	}

	fresh := book.Merge(book.Entry{ID: book.NewID(incoming)}, incoming, now)
	meta, err := encodeMetadata(fresh.Metadata)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO book_cache (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fresh.ID, fresh.Key(), fresh.Title, fresh.Author, fresh.ISBN, fresh.CoverURL,
		fresh.Rating, fresh.Summary, string(fresh.Source), meta, fresh.ExpiresAt.Unix(),
	); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return &fresh, nil
}

func (s *Store) fuzzyInTx(ctx context.Context, tx *sql.Tx, incoming book.Entry, now time.Time) (*book.Entry, error) {
	title := normalize.Fold(incoming.Title)
	author := normalize.Fold(incoming.Author)
	if title == "" || len([]rune(title)) < s.fuzzyMin {
		return nil, sql.ErrNoRows
	}

	return scanEntry(tx.QueryRowContext(ctx, `
		SELECT `+columns+` FROM book_cache
		WHERE expires_at > ?
		  AND (instr(title, ?) > 0 OR instr(?, title) > 0)
		  AND (? = '' OR (author != '' AND (instr(author, ?) > 0 OR instr(?, author) > 0)))
		ORDER BY rowid
		LIMIT 1`,
		now.Unix(), title, title, author, author, author))
}

// ExpireOlderThan implements store.Store.
func (s *Store) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM book_cache WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("expire entries: %w", err)
	}
	return rowsAffected(res)
}

// PurgeNonAuthoritativeRatings implements store.Store.
func (s *Store) PurgeNonAuthoritativeRatings(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE book_cache SET rating = ''
		WHERE source != ? AND rating != ''`,
		string(book.SourceGenerative))
	if err != nil {
		return 0, fmt.Errorf("purge ratings: %w", err)
	}
	return rowsAffected(res)
}

// Reset implements store.Store.
func (s *Store) Reset(ctx context.Context, opts store.ResetOptions) (int, error) {
	if !opts.PreserveSummaries && opts.TitleFilter == "" {
		res, err := s.db.ExecContext(ctx, `DELETE FROM book_cache`)
		if err != nil {
			return 0, fmt.Errorf("wipe cache: %w", err)
		}
		return rowsAffected(res)
	}

	filter := normalize.Fold(opts.TitleFilter)
	past := s.now().Add(-time.Second).Unix()

	query := `UPDATE book_cache SET expires_at = ?`
	if !opts.PreserveSummaries {
		query += `, summary = ''`
	}
	args := []any{past}
	if filter != "" {
		query += ` WHERE instr(title, ?) > 0`
		args = append(args, filter)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset cache: %w", err)
	}
	return rowsAffected(res)
}

// All implements store.Store.
func (s *Store) All(ctx context.Context) ([]book.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM book_cache ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []book.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*book.Entry, error) {
	var (
		e       book.Entry
		normKey string
		source  string
		meta    string
		expires int64
	)
	if err := row.Scan(&e.ID, &normKey, &e.Title, &e.Author, &e.ISBN, &e.CoverURL,
		&e.Rating, &e.Summary, &source, &meta, &expires); err != nil {
		return nil, err
	}
	e.Source = book.Source(source)
	e.ExpiresAt = time.Unix(expires, 0).UTC()
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &e, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
