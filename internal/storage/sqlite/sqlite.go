// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/officevote/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	maxAttempts int
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxAttempts sets how many times a transaction is attempted.
func WithMaxAttempts(n int) Option {
	return func(s *SQLiteStore) { s.maxAttempts = n }
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes commits, so version checks and writes
	// inside one SQL transaction cannot interleave with another commit.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteStore{db: db, maxAttempts: storage.DefaultMaxAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves the document at path.
func (s *SQLiteStore) Get(ctx context.Context, path string) (storage.Doc, error) {
	doc, _, err := s.read(ctx, s.db, path)
	return doc, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// read returns the document and its version. A missing document has version 0,
// a deleted one keeps its last version.
func (s *SQLiteStore) read(ctx context.Context, q queryer, path string) (storage.Doc, int64, error) {
	if err := storage.ValidatePath(path); err != nil {
		return storage.Doc{}, 0, err
	}
	var (
		data    string
		version int64
		deleted bool
	)
	err := q.QueryRowContext(ctx,
		"SELECT data, version, deleted FROM documents WHERE path = ?", path,
	).Scan(&data, &version, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Doc{}, 0, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Doc{}, 0, fmt.Errorf("failed to get document: %w", err)
	}
	if deleted {
		return storage.Doc{}, version, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	return storage.Doc{Path: path, Data: []byte(data)}, version, nil
}

// Query returns matching documents in collection ordered by document ID.
// Filters are evaluated by SQLite with json_extract.
func (s *SQLiteStore) Query(ctx context.Context, collection string, filters ...storage.Filter) ([]storage.Doc, error) {
	var b strings.Builder
	b.WriteString("SELECT path, data FROM documents WHERE collection = ? AND deleted = 0")
	args := []any{collection}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, " AND json_extract(data, ?) %s ?", sqlOp(f.Op))
		args = append(args, jsonPath(f), sqlValue(f.Value))
	}
	b.WriteString(" ORDER BY path")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []storage.Doc
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, storage.Doc{Path: path, Data: []byte(data)})
	}
	return docs, rows.Err()
}

// BatchWrite applies every write in one SQL transaction.
func (s *SQLiteStore) BatchWrite(ctx context.Context, writes []storage.Write) error {
	for _, w := range writes {
		if err := storage.ValidatePath(w.Path); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyWrites(ctx, tx, writes); err != nil {
		return err
	}
	return tx.Commit()
}

func applyWrites(ctx context.Context, tx *sql.Tx, writes []storage.Write) error {
	now := time.Now().UnixMilli()
	for _, w := range writes {
		if w.Delete {
			_, err := tx.ExecContext(ctx,
				"UPDATE documents SET deleted = 1, data = '{}', version = version + 1, updated_at = ? WHERE path = ? AND deleted = 0",
				now, w.Path,
			)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", w.Path, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (path, collection, data, version, deleted, updated_at)
			VALUES (?, ?, ?, 1, 0, ?)
			ON CONFLICT(path) DO UPDATE SET
				data = excluded.data,
				deleted = 0,
				version = documents.version + 1,
				updated_at = excluded.updated_at`,
			w.Path, storage.Collection(w.Path), string(w.Data), now,
		)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", w.Path, err)
		}
	}
	return nil
}

func sqlOp(op storage.Op) string {
	if op == storage.Eq {
		return "="
	}
	return string(op)
}

// jsonPath quotes each segment, e.g. participated.elder_1 -> $."participated"."elder_1".
// Segments are already restricted to [A-Za-z0-9_] by Filter.Validate.
func jsonPath(f storage.Filter) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range f.Segments() {
		b.WriteString(`."`)
		b.WriteString(seg)
		b.WriteString(`"`)
	}
	return b.String()
}

// sqlValue maps a filter value to what json_extract yields for it.
// JSON booleans come back as integers.
func sqlValue(v any) any {
	n, _ := storage.Normalize(v)
	if b, ok := n.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return n
}
