// Package storagetest holds the behavior every storage.Store must share.
// Adapter packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmynk/officevote/internal/storage"
)

type counter struct {
	N int `json:"n"`
}

type person struct {
	Name   string          `json:"name"`
	Office string          `json:"office"`
	Round  int             `json:"round"`
	Flags  map[string]bool `json:"flags,omitempty"`
}

// Run exercises a store built by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	mustBatch := func(t *testing.T, s storage.Store, docs map[string]any) {
		t.Helper()
		var writes []storage.Write
		for path, v := range docs {
			w, err := storage.SetWrite(path, v)
			if err != nil {
				t.Fatalf("SetWrite failed: %v", err)
			}
			writes = append(writes, w)
		}
		if err := s.BatchWrite(ctx, writes); err != nil {
			t.Fatalf("BatchWrite failed: %v", err)
		}
	}

	t.Run("Get missing document returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "c/missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Get rejects collection paths", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "c/d/sub")
		if !errors.Is(err, storage.ErrInvalidPath) {
			t.Fatalf("Expected ErrInvalidPath, got %v", err)
		}
	})

	t.Run("Query filters and orders by document ID", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{
			"people/c": person{Name: "C", Office: "elder", Round: 1, Flags: map[string]bool{"elder_1": true}},
			"people/a": person{Name: "A", Office: "elder", Round: 1},
			"people/b": person{Name: "B", Office: "elder", Round: 2},
			"people/d": person{Name: "D", Office: "deacon", Round: 1},
			"other/a":  person{Name: "X", Office: "elder", Round: 1},
			// nested collection must not leak into its parent
			"people/a/notes/n1": person{Name: "N", Office: "elder", Round: 1},
		})

		tests := []struct {
			name    string
			filters []storage.Filter
			want    []string
		}{
			{"no filters", nil, []string{"a", "b", "c", "d"}},
			{"string equality", []storage.Filter{storage.Where("office", storage.Eq, "elder")}, []string{"a", "b", "c"}},
			{"two filters", []storage.Filter{
				storage.Where("office", storage.Eq, "elder"),
				storage.Where("round", storage.Eq, 1),
			}, []string{"a", "c"}},
			{"number range", []storage.Filter{storage.Where("round", storage.Gte, 2)}, []string{"b"}},
			{"not equal", []storage.Filter{storage.Where("office", storage.Neq, "elder")}, []string{"d"}},
			{"nested bool", []storage.Filter{storage.Where("flags.elder_1", storage.Eq, true)}, []string{"c"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				docs, err := s.Query(ctx, "people", tt.filters...)
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				var got []string
				for _, d := range docs {
					got = append(got, d.ID())
				}
				if len(got) != len(tt.want) {
					t.Fatalf("Expected %v, got %v", tt.want, got)
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("Expected %v, got %v", tt.want, got)
						break
					}
				}
			})
		}
	})

	t.Run("Query rejects malformed fields", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Query(ctx, "people", storage.Where("name') OR 1=1 --", storage.Eq, "x"))
		if err == nil {
			t.Fatal("Expected error for malformed field")
		}
	})

	t.Run("BatchWrite deletes documents", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{"c/a": counter{N: 1}, "c/b": counter{N: 2}})
		if err := s.BatchWrite(ctx, []storage.Write{storage.DeleteWrite("c/a")}); err != nil {
			t.Fatalf("BatchWrite failed: %v", err)
		}
		if _, err := s.Get(ctx, "c/a"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected deleted document to be gone, got %v", err)
		}
		docs, err := s.Query(ctx, "c")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(docs) != 1 || docs[0].ID() != "b" {
			t.Errorf("Expected only c/b to remain, got %v", docs)
		}
	})

	t.Run("Transaction commits every write", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{"c/a": counter{N: 1}})

		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			doc, err := tx.Get(ctx, "c/a")
			if err != nil {
				return err
			}
			var c counter
			if err := doc.Decode(&c); err != nil {
				return err
			}
			if _, err := tx.Get(ctx, "c/new"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected ErrNotFound inside transaction, got %v", err)
			}
			c.N++
			if err := tx.Set("c/a", c); err != nil {
				return err
			}
			return tx.Set("c/new", counter{N: 10})
		})
		if err != nil {
			t.Fatalf("RunTransaction failed: %v", err)
		}
		if got := read(t, s, "c/a"); got != 2 {
			t.Errorf("Expected c/a = 2, got %d", got)
		}
		if got := read(t, s, "c/new"); got != 10 {
			t.Errorf("Expected c/new = 10, got %d", got)
		}
	})

	t.Run("Transaction error discards writes", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{"c/a": counter{N: 1}})
		boom := errors.New("boom")

		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			if err := tx.Set("c/a", counter{N: 99}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected function error, got %v", err)
		}
		if got := read(t, s, "c/a"); got != 1 {
			t.Errorf("Expected c/a unchanged at 1, got %d", got)
		}
	})

	t.Run("Transaction rejects reads after writes", func(t *testing.T) {
		s := newStore(t)
		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			if err := tx.Set("c/a", counter{N: 1}); err != nil {
				return err
			}
			_, err := tx.Get(ctx, "c/a")
			return err
		})
		if !errors.Is(err, storage.ErrReadAfterWrite) {
			t.Fatalf("Expected ErrReadAfterWrite, got %v", err)
		}
	})

	t.Run("Transaction retries after a concurrent write", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{"c/a": counter{N: 1}})

		runs := 0
		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			runs++
			doc, err := tx.Get(ctx, "c/a")
			if err != nil {
				return err
			}
			var c counter
			if err := doc.Decode(&c); err != nil {
				return err
			}
			if runs == 1 {
				// Another client deletes and re-creates the document mid-flight.
				if err := s.BatchWrite(ctx, []storage.Write{storage.DeleteWrite("c/a")}); err != nil {
					return err
				}
				mustBatch(t, s, map[string]any{"c/a": counter{N: 5}})
			}
			c.N++
			return tx.Set("c/a", c)
		})
		if err != nil {
			t.Fatalf("RunTransaction failed: %v", err)
		}
		if runs != 2 {
			t.Errorf("Expected 2 runs, got %d", runs)
		}
		if got := read(t, s, "c/a"); got != 6 {
			t.Errorf("Expected c/a = 6, got %d", got)
		}
	})

	t.Run("Concurrent increments are never lost", func(t *testing.T) {
		s := newStore(t)
		mustBatch(t, s, map[string]any{"c/a": counter{}})

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
					doc, err := tx.Get(ctx, "c/a")
					if err != nil {
						return err
					}
					var c counter
					if err := doc.Decode(&c); err != nil {
						return err
					}
					c.N++
					return tx.Set("c/a", c)
				})
				if err != nil && !errors.Is(err, storage.ErrConflict) {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if succeeded == 0 {
			t.Fatal("Expected at least one transaction to succeed")
		}
		if got := read(t, s, "c/a"); got != succeeded {
			t.Errorf("Expected counter %d to equal successful transactions %d", got, succeeded)
		}
	})

	t.Run("Canceled context stops the transaction", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.RunTransaction(cctx, func(ctx context.Context, tx storage.Txn) error {
			return tx.Set("c/a", counter{N: 1})
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	})
}

func read(t *testing.T, s storage.Store, path string) int {
	t.Helper()
	doc, err := s.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("Get %s failed: %v", path, err)
	}
	var c counter
	if err := doc.Decode(&c); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return c.N
}
