// Package memory provides an in-process implementation of the storage.Store interface.
//
// Every document carries a version that is bumped on each write. A transaction
// remembers the version of everything it read and commits only if none of
// them moved, which mirrors the optimistic behavior of the managed stores.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/officevote/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type entry struct {
	data    []byte
	version int64
}

// Store is a map-backed document store. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	docs        map[string]entry
	clock       int64
	maxAttempts int

	// test hooks
	failCommits  int
	beforeCommit func(attempt int)
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts sets how many times a transaction is attempted.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]entry),
		maxAttempts: storage.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailCommits makes the next n transaction commits fail with a conflict
// after the transaction function has run.
func (s *Store) FailCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits = n
}

// BeforeCommit installs fn to run after each transaction function returns
// and before its commit is attempted. fn runs without the store lock held,
// so it may write to the store to simulate a concurrent client.
func (s *Store) BeforeCommit(fn func(attempt int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = fn
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Get retrieves the document at path.
func (s *Store) Get(ctx context.Context, path string) (storage.Doc, error) {
	if err := ctx.Err(); err != nil {
		return storage.Doc{}, err
	}
	doc, _, err := s.read(path)
	return doc, err
}

func (s *Store) read(path string) (storage.Doc, int64, error) {
	if err := storage.ValidatePath(path); err != nil {
		return storage.Doc{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[path]
	if !ok {
		return storage.Doc{}, 0, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	return storage.Doc{Path: path, Data: clone(e.data)}, e.version, nil
}

// Query returns matching documents in collection ordered by document ID.
func (s *Store) Query(ctx context.Context, collection string, filters ...storage.Filter) ([]storage.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	var docs []storage.Doc
	for path, e := range s.docs {
		if storage.Collection(path) == collection {
			docs = append(docs, storage.Doc{Path: path, Data: clone(e.data)})
		}
	}
	s.mu.Unlock()

	out := docs[:0]
	for _, d := range docs {
		ok, err := storage.Match(d.Data, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to match %s: %w", d.Path, err)
		}
		if ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// BatchWrite applies every write under a single lock.
func (s *Store) BatchWrite(ctx context.Context, writes []storage.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range writes {
		if err := storage.ValidatePath(w.Path); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(writes)
	return nil
}

// RunTransaction runs fn, retrying when a document it read changed before commit.
func (s *Store) RunTransaction(ctx context.Context, fn storage.TxnFunc) error {
	return storage.Retry(ctx, s.maxAttempts, func(attempt int) error {
		tx := &txn{store: s, reads: make(map[string]int64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}

		s.mu.Lock()
		hook := s.beforeCommit
		s.mu.Unlock()
		if hook != nil {
			hook(attempt)
		}
		return s.commit(tx)
	})
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCommits > 0 {
		s.failCommits--
		return storage.ErrConflict
	}
	for path, version := range tx.reads {
		if s.docs[path].version != version {
			return storage.ErrConflict
		}
	}
	s.apply(tx.writes)
	return nil
}

// apply must be called with s.mu held.
func (s *Store) apply(writes []storage.Write) {
	for _, w := range writes {
		if w.Delete {
			delete(s.docs, w.Path)
			continue
		}
		s.clock++
		s.docs[w.Path] = entry{data: clone(w.Data), version: s.clock}
	}
}

type txn struct {
	store  *Store
	reads  map[string]int64
	writes []storage.Write
}

func (t *txn) Get(ctx context.Context, path string) (storage.Doc, error) {
	if err := ctx.Err(); err != nil {
		return storage.Doc{}, err
	}
	if len(t.writes) > 0 {
		return storage.Doc{}, storage.ErrReadAfterWrite
	}
	doc, version, err := t.store.read(path)
	if err != nil && !storage.IsNotFound(err) {
		return storage.Doc{}, err
	}
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = version
	}
	return doc, err
}

func (t *txn) Set(path string, v any) error {
	if err := storage.ValidatePath(path); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	t.writes = append(t.writes, storage.Write{Path: path, Data: data})
	return nil
}

func (t *txn) Delete(path string) {
	t.writes = append(t.writes, storage.DeleteWrite(path))
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
