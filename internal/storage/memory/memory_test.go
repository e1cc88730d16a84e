package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestFailCommits(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until injected failures are used up", func(t *testing.T) {
		s := New(WithMaxAttempts(5))
		s.FailCommits(2)

		runs := 0
		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			runs++
			return tx.Set("c/a", map[string]int{"n": runs})
		})
		if err != nil {
			t.Fatalf("RunTransaction failed: %v", err)
		}
		if runs != 3 {
			t.Errorf("Expected 3 runs, got %d", runs)
		}
	})

	t.Run("reports conflict when attempts are exhausted", func(t *testing.T) {
		s := New(WithMaxAttempts(3))
		s.FailCommits(10)

		runs := 0
		err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
			runs++
			return tx.Set("c/a", map[string]int{"n": 1})
		})
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}
		if runs != 3 {
			t.Errorf("Expected 3 runs, got %d", runs)
		}
		if _, err := s.Get(ctx, "c/a"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected nothing committed, got %v", err)
		}
	})
}

func TestBeforeCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.BatchWrite(ctx, []storage.Write{{Path: "c/a", Data: []byte(`{"n":1}`)}}); err != nil {
		t.Fatalf("BatchWrite failed: %v", err)
	}

	s.BeforeCommit(func(attempt int) {
		if attempt == 1 {
			// Simulate another client writing between our read and our commit.
			_ = s.BatchWrite(ctx, []storage.Write{{Path: "c/a", Data: []byte(`{"n":100}`)}})
		}
	})

	var seen []int
	err := s.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		doc, err := tx.Get(ctx, "c/a")
		if err != nil {
			return err
		}
		var v struct{ N int }
		if err := doc.Decode(&v); err != nil {
			return err
		}
		seen = append(seen, v.N)
		v.N++
		return tx.Set("c/a", map[string]int{"n": v.N})
	})
	if err != nil {
		t.Fatalf("RunTransaction failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 100 {
		t.Errorf("Expected reads [1 100], got %v", seen)
	}
	doc, err := s.Get(ctx, "c/a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(doc.Data) != `{"n":101}` {
		t.Errorf("Expected {\"n\":101}, got %s", doc.Data)
	}
}
