package datastore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/storage/storagetest"
)

// TestStore needs the Datastore emulator:
//
//	gcloud beta emulators datastore start --no-store-on-disk
//	$(gcloud beta emulators datastore env-init)
func TestStore(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(ctx, "officevote-test", nil, WithNamespace("t"+uuid.NewString()[:8]))
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFlatten(t *testing.T) {
	e, err := newEntity("elections/e1/voters/v1", []byte(`{
		"name": "김철수",
		"participated": {"elder_1": true},
		"votesByRound": {"1": 3},
		"electionList": ["a", "b"],
		"votedAt": null,
		"ratio": 0.5
	}`))
	if err != nil {
		t.Fatalf("newEntity failed: %v", err)
	}
	if e.collection != "elections/e1/voters" {
		t.Errorf("Expected collection elections/e1/voters, got %s", e.collection)
	}

	got := make(map[string]any)
	for _, p := range e.fields {
		got[p.Name] = p.Value
	}
	want := map[string]any{
		"name":                 "김철수",
		"participated.elder_1": true,
		"votesByRound.1":       int64(3),
		"ratio":                0.5,
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d properties, got %v", len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Property %s: expected %v (%T), got %v (%T)", k, v, v, got[k], got[k])
		}
	}
}
