package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmynk/officevote/internal/storage"
)

// RunTransaction runs fn against a snapshot of versioned reads and commits
// its writes only if none of the documents it read changed in the meantime.
func (s *SQLiteStore) RunTransaction(ctx context.Context, fn storage.TxnFunc) error {
	return storage.Retry(ctx, s.maxAttempts, func(int) error {
		t := &txn{store: s, reads: make(map[string]int64)}
		if err := fn(ctx, t); err != nil {
			return err
		}
		return s.commit(ctx, t)
	})
}

func (s *SQLiteStore) commit(ctx context.Context, t *txn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for path, version := range t.reads {
		_, current, err := s.read(ctx, tx, path)
		if err != nil && !storage.IsNotFound(err) {
			return err
		}
		if current != version {
			return storage.ErrConflict
		}
	}
	if err := applyWrites(ctx, tx, t.writes); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txn struct {
	store  *SQLiteStore
	reads  map[string]int64
	writes []storage.Write
}

func (t *txn) Get(ctx context.Context, path string) (storage.Doc, error) {
	if len(t.writes) > 0 {
		return storage.Doc{}, storage.ErrReadAfterWrite
	}
	doc, version, err := t.store.read(ctx, t.store.db, path)
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
