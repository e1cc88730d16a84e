package ballot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/storage/memory"
	"github.com/mmynk/officevote/internal/storage/sqlite"
)

const testElection = "e1"

type fixture struct {
	settings   models.ElectionSettings
	candidates []models.Candidate
	voters     []models.Voter
}

func seed(t *testing.T, store storage.Store, f fixture) {
	t.Helper()
	var writes []storage.Write
	add := func(path string, v any) {
		w, err := storage.SetWrite(path, v)
		if err != nil {
			t.Fatalf("SetWrite failed: %v", err)
		}
		writes = append(writes, w)
	}
	add(election.SettingsPath(testElection), f.settings)
	for _, c := range f.candidates {
		add(election.CandidatePath(testElection, c.ID), c)
	}
	for _, v := range f.voters {
		add(election.VoterPath(testElection, v.ID), v)
	}
	if err := store.BatchWrite(context.Background(), writes); err != nil {
		t.Fatalf("BatchWrite failed: %v", err)
	}
}

func getCandidate(t *testing.T, store storage.Store, id string) models.Candidate {
	t.Helper()
	doc, err := store.Get(context.Background(), election.CandidatePath(testElection, id))
	if err != nil {
		t.Fatalf("Get candidate %s failed: %v", id, err)
	}
	c := models.Candidate{ID: id}
	if err := doc.Decode(&c); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return c
}

func getVoter(t *testing.T, store storage.Store, id string) models.Voter {
	t.Helper()
	doc, err := store.Get(context.Background(), election.VoterPath(testElection, id))
	if err != nil {
		t.Fatalf("Get voter %s failed: %v", id, err)
	}
	v := models.Voter{ID: id}
	if err := doc.Decode(&v); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return v
}

func elderSettings(maxVotes int) models.ElectionSettings {
	s := models.DefaultSettings()
	s.MaxVotesPerOffice[models.OfficeElder] = maxVotes
	return s
}

// scenarioFixture is election E with elder max 2 round 1, candidates A and B, voter V.
func scenarioFixture() fixture {
	return fixture{
		settings: elderSettings(2),
		candidates: []models.Candidate{
			{ID: "A", Name: "A", Office: models.OfficeElder, Round: 1},
			{ID: "B", Name: "B", Office: models.OfficeElder, Round: 1},
		},
		voters: []models.Voter{{ID: "V", Name: "V"}},
	}
}

func TestSubmitBallotScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("first ballot counts every selection", func(t *testing.T) {
		store := memory.New()
		seed(t, store, scenarioFixture())
		engine := NewEngine(store)

		receipt, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A", "B"}})
		if err != nil {
			t.Fatalf("SubmitBallot failed: %v", err)
		}
		if receipt.Votes != 2 || receipt.Rounds[models.OfficeElder] != 1 {
			t.Errorf("Unexpected receipt %+v", receipt)
		}

		for _, id := range []string{"A", "B"} {
			c := getCandidate(t, store, id)
			if c.Votes(1) != 1 || c.VoteCount != 1 {
				t.Errorf("Expected %s to have 1 vote in round 1, got %v (total %d)", id, c.VotesByRound, c.VoteCount)
			}
		}
		v := getVoter(t, store, "V")
		if !v.Participated["elder_1"] {
			t.Errorf("Expected elder_1 participation, got %v", v.Participated)
		}
		if !v.HasVoted || v.VotedAt == nil {
			t.Error("Expected legacy hasVoted and votedAt to be set")
		}
	})

	t.Run("second ballot for the same office round is rejected", func(t *testing.T) {
		store := memory.New()
		seed(t, store, scenarioFixture())
		engine := NewEngine(store)

		if _, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A", "B"}}); err != nil {
			t.Fatalf("First SubmitBallot failed: %v", err)
		}
		_, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A"}})

		var already *AlreadyVotedError
		if !errors.As(err, &already) {
			t.Fatalf("Expected AlreadyVotedError, got %v", err)
		}
		if already.Office != models.OfficeElder || already.Round != 1 {
			t.Errorf("Expected elder round 1, got %s round %d", already.Office, already.Round)
		}
		if c := getCandidate(t, store, "A"); c.Votes(1) != 1 {
			t.Errorf("Expected A to stay at 1 vote, got %d", c.Votes(1))
		}
	})

	t.Run("rehearsal voter votes repeatedly when enabled", func(t *testing.T) {
		store := memory.New()
		f := scenarioFixture()
		f.voters = append(f.voters, models.Voter{ID: "T", Name: "테스트", Rehearsal: true})
		seed(t, store, f)
		engine := NewEngine(store, WithRehearsal(true))

		for i := 0; i < 2; i++ {
			receipt, err := engine.SubmitBallot(ctx, testElection, "T", Selections{models.OfficeElder: {"A"}})
			if err != nil {
				t.Fatalf("SubmitBallot %d failed: %v", i+1, err)
			}
			if !receipt.Rehearsal {
				t.Error("Expected rehearsal receipt")
			}
		}
		if c := getCandidate(t, store, "A"); c.Votes(1) != 2 {
			t.Errorf("Expected A to have 2 votes, got %d", c.Votes(1))
		}
		v := getVoter(t, store, "T")
		if len(v.Participated) != 0 || v.HasVoted || v.VotedAt != nil {
			t.Errorf("Expected rehearsal voter to stay untouched, got %+v", v)
		}
	})

	t.Run("rehearsal flag is ignored when rehearsal mode is off", func(t *testing.T) {
		store := memory.New()
		f := scenarioFixture()
		f.voters = append(f.voters, models.Voter{ID: "T", Name: "테스트", Rehearsal: true})
		seed(t, store, f)
		engine := NewEngine(store)

		if _, err := engine.SubmitBallot(ctx, testElection, "T", Selections{models.OfficeElder: {"A"}}); err != nil {
			t.Fatalf("SubmitBallot failed: %v", err)
		}
		_, err := engine.SubmitBallot(ctx, testElection, "T", Selections{models.OfficeElder: {"A"}})
		var already *AlreadyVotedError
		if !errors.As(err, &already) {
			t.Fatalf("Expected AlreadyVotedError, got %v", err)
		}
		if !getVoter(t, store, "T").Participated["elder_1"] {
			t.Error("Expected participation to be recorded")
		}
	})
}

func TestSubmitBallotRejections(t *testing.T) {
	ctx := context.Background()
	settings := elderSettings(2)
	settings.RoundPerOffice[models.OfficeDeacon] = 2
	base := fixture{
		settings: settings,
		candidates: []models.Candidate{
			{ID: "A", Office: models.OfficeElder, Round: 1},
			{ID: "B", Office: models.OfficeElder, Round: 1},
			{ID: "C", Office: models.OfficeElder, Round: 1},
			{ID: "D1", Office: models.OfficeDeacon, Round: 1},
			{ID: "D2", Office: models.OfficeDeacon, Round: 2},
		},
		voters: []models.Voter{
			{ID: "V"},
			{ID: "P", Participated: map[string]bool{"deacon_2": true}},
		},
	}

	tests := []struct {
		name       string
		voter      string
		selections Selections
		check      func(t *testing.T, err error)
	}{
		{
			name:       "empty ballot",
			voter:      "V",
			selections: Selections{},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyBallot) {
					t.Errorf("Expected ErrEmptyBallot, got %v", err)
				}
			},
		},
		{
			name:       "unknown office",
			voter:      "V",
			selections: Selections{"pastor": {"A"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnknownOffice) {
					t.Errorf("Expected ErrUnknownOffice, got %v", err)
				}
			},
		},
		{
			name:       "missing voter",
			voter:      "nobody",
			selections: Selections{models.OfficeElder: {"A"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrVoterNotFound) {
					t.Errorf("Expected ErrVoterNotFound, got %v", err)
				}
			},
		},
		{
			name:       "over the cap",
			voter:      "V",
			selections: Selections{models.OfficeElder: {"A", "B", "C"}},
			check: func(t *testing.T, err error) {
				var limit *SelectionLimitError
				if !errors.As(err, &limit) || limit.Max != 2 || limit.Got != 3 {
					t.Errorf("Expected SelectionLimitError 2/3, got %v", err)
				}
			},
		},
		{
			name:       "duplicates count once toward the cap",
			voter:      "V",
			selections: Selections{models.OfficeElder: {"A", "A", "B"}},
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Errorf("Expected success, got %v", err)
				}
			},
		},
		{
			name:       "candidate from a past round",
			voter:      "V",
			selections: Selections{models.OfficeDeacon: {"D1"}},
			check: func(t *testing.T, err error) {
				var ne *CandidateNotEligibleError
				if !errors.As(err, &ne) || ne.ID != "D1" || ne.Round != 2 {
					t.Errorf("Expected CandidateNotEligibleError for D1 round 2, got %v", err)
				}
			},
		},
		{
			name:       "candidate under the wrong office",
			voter:      "V",
			selections: Selections{models.OfficeDeacon: {"A"}},
			check: func(t *testing.T, err error) {
				var ne *CandidateNotEligibleError
				if !errors.As(err, &ne) {
					t.Errorf("Expected CandidateNotEligibleError, got %v", err)
				}
			},
		},
		{
			name:       "missing candidate",
			voter:      "V",
			selections: Selections{models.OfficeElder: {"A", "ghost"}},
			check: func(t *testing.T, err error) {
				var nf *CandidateNotFoundError
				if !errors.As(err, &nf) || nf.ID != "ghost" || nf.Office != models.OfficeElder {
					t.Errorf("Expected CandidateNotFoundError for ghost, got %v", err)
				}
			},
		},
		{
			name:       "missing candidate in one office aborts the other",
			voter:      "V",
			selections: Selections{models.OfficeElder: {"A", "B"}, models.OfficeDeacon: {"D2", "ghost"}},
			check: func(t *testing.T, err error) {
				var nf *CandidateNotFoundError
				if !errors.As(err, &nf) || nf.ID != "ghost" || nf.Office != models.OfficeDeacon {
					t.Errorf("Expected CandidateNotFoundError for deacon ghost, got %v", err)
				}
			},
		},
		{
			name:       "one voted office aborts the whole ballot",
			voter:      "P",
			selections: Selections{models.OfficeElder: {"A"}, models.OfficeDeacon: {"D2"}},
			check: func(t *testing.T, err error) {
				var already *AlreadyVotedError
				if !errors.As(err, &already) || already.Office != models.OfficeDeacon || already.Round != 2 {
					t.Errorf("Expected AlreadyVotedError deacon 2, got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			seed(t, store, base)
			_, err := NewEngine(store).SubmitBallot(ctx, testElection, tt.voter, tt.selections)
			tt.check(t, err)

			if err == nil {
				return
			}
			// A rejected ballot leaves every counter and the voter untouched.
			for _, c := range base.candidates {
				if got := getCandidate(t, store, c.ID); got.VoteCount != 0 {
					t.Errorf("Expected %s untouched, got %d votes", c.ID, got.VoteCount)
				}
			}
			if v, ok := findVoter(base, tt.voter); ok {
				got := getVoter(t, store, tt.voter)
				if len(got.Participated) != len(v.Participated) || got.HasVoted {
					t.Errorf("Expected voter %s untouched, got %+v", tt.voter, got)
				}
			}
		})
	}
}

func findVoter(f fixture, id string) (models.Voter, bool) {
	for _, v := range f.voters {
		if v.ID == id {
			return v, true
		}
	}
	return models.Voter{}, false
}

func TestSubmitBallotMultiOffice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	settings := models.DefaultSettings()
	settings.RoundPerOffice[models.OfficeDeaconess] = 2
	seed(t, store, fixture{
		settings: settings,
		candidates: []models.Candidate{
			{ID: "E1", Office: models.OfficeElder, Round: 1},
			{ID: "K2", Office: models.OfficeDeaconess, Round: 2, VoteCount: 7, VotesByRound: map[int]int{1: 7}},
		},
		voters: []models.Voter{{ID: "V"}},
	})
	fixed := time.Date(2026, 10, 18, 11, 30, 0, 0, time.UTC)
	engine := NewEngine(store, WithClock(func() time.Time { return fixed }))

	receipt, err := engine.SubmitBallot(ctx, testElection, "V", Selections{
		models.OfficeDeaconess: {"K2"},
		models.OfficeElder:     {"E1"},
		models.OfficeDeacon:    {},
	})
	if err != nil {
		t.Fatalf("SubmitBallot failed: %v", err)
	}
	want := []models.Office{models.OfficeElder, models.OfficeDeacon, models.OfficeDeaconess}
	if fmt.Sprint(receipt.Offices) != fmt.Sprint(want) {
		t.Errorf("Expected offices %v, got %v", want, receipt.Offices)
	}

	k := getCandidate(t, store, "K2")
	if k.Votes(2) != 1 || k.Votes(1) != 7 || k.VoteCount != 8 || !k.Consistent() {
		t.Errorf("Unexpected K2 counters %v total %d", k.VotesByRound, k.VoteCount)
	}
	v := getVoter(t, store, "V")
	for _, key := range []string{"elder_1", "deacon_1", "deaconess_2"} {
		if !v.Participated[key] {
			t.Errorf("Expected %s participation, got %v", key, v.Participated)
		}
	}
	if v.VotedAt == nil || !v.VotedAt.Equal(fixed) {
		t.Errorf("Expected votedAt %v, got %v", fixed, v.VotedAt)
	}

	// A new deaconess round opens that office again without reopening the others.
	settings.RoundPerOffice[models.OfficeDeaconess] = 3
	seed(t, store, fixture{
		settings:   settings,
		candidates: []models.Candidate{{ID: "K3", Office: models.OfficeDeaconess, Round: 3}},
	})
	if _, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeDeaconess: {"K3"}}); err != nil {
		t.Fatalf("SubmitBallot for round 3 failed: %v", err)
	}
	_, err = engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"E1"}})
	var already *AlreadyVotedError
	if !errors.As(err, &already) {
		t.Errorf("Expected elder to stay closed, got %v", err)
	}
}

func TestSubmitBallotRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("injected conflicts apply the ballot exactly once", func(t *testing.T) {
		store := memory.New()
		seed(t, store, scenarioFixture())
		store.FailCommits(3)

		receipt, err := NewEngine(store).SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A", "B"}})
		if err != nil {
			t.Fatalf("SubmitBallot failed: %v", err)
		}
		if receipt.Attempts != 4 {
			t.Errorf("Expected 4 attempts, got %d", receipt.Attempts)
		}
		for _, id := range []string{"A", "B"} {
			if c := getCandidate(t, store, id); c.Votes(1) != 1 || c.VoteCount != 1 {
				t.Errorf("Expected %s counted once, got %v", id, c.VotesByRound)
			}
		}
	})

	t.Run("exhausted retries leave nothing behind", func(t *testing.T) {
		store := memory.New(memory.WithMaxAttempts(3))
		seed(t, store, scenarioFixture())
		store.FailCommits(3)

		_, err := NewEngine(store).SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A"}})
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}
		if c := getCandidate(t, store, "A"); c.VoteCount != 0 {
			t.Errorf("Expected no votes, got %d", c.VoteCount)
		}
		if v := getVoter(t, store, "V"); v.HasVoted {
			t.Error("Expected voter untouched")
		}

		// The voter can simply try again.
		if _, err := NewEngine(store).SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A"}}); err != nil {
			t.Fatalf("Retry after failure failed: %v", err)
		}
	})

	t.Run("candidate deleted mid-transaction aborts on retry", func(t *testing.T) {
		store := memory.New()
		seed(t, store, scenarioFixture())
		store.BeforeCommit(func(attempt int) {
			if attempt == 1 {
				_ = store.BatchWrite(ctx, []storage.Write{storage.DeleteWrite(election.CandidatePath(testElection, "B"))})
			}
		})

		_, err := NewEngine(store).SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A", "B"}})
		var nf *CandidateNotFoundError
		if !errors.As(err, &nf) || nf.ID != "B" {
			t.Fatalf("Expected CandidateNotFoundError for B, got %v", err)
		}
		if c := getCandidate(t, store, "A"); c.VoteCount != 0 {
			t.Errorf("Expected A untouched, got %d", c.VoteCount)
		}
		if v := getVoter(t, store, "V"); len(v.Participated) != 0 {
			t.Errorf("Expected no participation, got %v", v.Participated)
		}
	})

	t.Run("deacon candidate deleted mid-transaction aborts the elder selection", func(t *testing.T) {
		store := memory.New()
		f := scenarioFixture()
		f.candidates = append(f.candidates, models.Candidate{ID: "D", Name: "D", Office: models.OfficeDeacon, Round: 1})
		seed(t, store, f)
		store.BeforeCommit(func(attempt int) {
			if attempt == 1 {
				_ = store.BatchWrite(ctx, []storage.Write{storage.DeleteWrite(election.CandidatePath(testElection, "D"))})
			}
		})

		_, err := NewEngine(store).SubmitBallot(ctx, testElection, "V", Selections{
			models.OfficeElder:  {"A", "B"},
			models.OfficeDeacon: {"D"},
		})
		var nf *CandidateNotFoundError
		if !errors.As(err, &nf) || nf.ID != "D" || nf.Office != models.OfficeDeacon {
			t.Fatalf("Expected CandidateNotFoundError for deacon D, got %v", err)
		}
		for _, id := range []string{"A", "B"} {
			if c := getCandidate(t, store, id); c.VoteCount != 0 || len(c.VotesByRound) != 0 {
				t.Errorf("Expected %s untouched, got %v (total %d)", id, c.VotesByRound, c.VoteCount)
			}
		}
		if v := getVoter(t, store, "V"); len(v.Participated) != 0 || v.HasVoted {
			t.Errorf("Expected no participation, got %+v", v)
		}
	})

	t.Run("concurrent ballot from the same voter in another tab", func(t *testing.T) {
		store := memory.New()
		seed(t, store, scenarioFixture())
		engine := NewEngine(store)
		store.BeforeCommit(func(attempt int) {
			if attempt == 1 {
				store.BeforeCommit(nil)
				if _, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"B"}}); err != nil {
					t.Errorf("Inner SubmitBallot failed: %v", err)
				}
			}
		})

		_, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"A"}})
		var already *AlreadyVotedError
		if !errors.As(err, &already) {
			t.Fatalf("Expected AlreadyVotedError after losing the race, got %v", err)
		}
		if a, b := getCandidate(t, store, "A"), getCandidate(t, store, "B"); a.VoteCount != 0 || b.VoteCount != 1 {
			t.Errorf("Expected A=0 B=1, got A=%d B=%d", a.VoteCount, b.VoteCount)
		}
	})
}

func TestSubmitBallotConcurrentVoters(t *testing.T) {
	stores := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store {
			return memory.New(memory.WithMaxAttempts(10))
		},
		"sqlite": func(t *testing.T) storage.Store {
			s, err := sqlite.New(filepath.Join(t.TempDir(), "votes.db"), sqlite.WithMaxAttempts(10))
			if err != nil {
				t.Fatalf("Failed to create store: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			const voters = 12
			f := scenarioFixture()
			f.voters = nil
			for i := 0; i < voters; i++ {
				f.voters = append(f.voters, models.Voter{ID: fmt.Sprintf("v%02d", i)})
			}
			seed(t, store, f)
			engine := NewEngine(store)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for _, v := range f.voters {
				for dup := 0; dup < 2; dup++ {
					wg.Add(1)
					go func(id string) {
						defer wg.Done()
						_, err := engine.SubmitBallot(ctx, testElection, id, Selections{models.OfficeElder: {"A", "B"}})
						var already *AlreadyVotedError
						switch {
						case err == nil:
							mu.Lock()
							accepted++
							mu.Unlock()
						case errors.As(err, &already), errors.Is(err, storage.ErrConflict):
						default:
							t.Errorf("Unexpected error for %s: %v", id, err)
						}
					}(v.ID)
				}
			}
			wg.Wait()

			if accepted == 0 || accepted > voters {
				t.Fatalf("Expected between 1 and %d accepted ballots, got %d", voters, accepted)
			}
			for _, id := range []string{"A", "B"} {
				c := getCandidate(t, store, id)
				if c.Votes(1) != accepted || !c.Consistent() {
					t.Errorf("Expected %s to have %d votes, got %v (total %d)", id, accepted, c.VotesByRound, c.VoteCount)
				}
			}
			participated := 0
			for _, v := range f.voters {
				if getVoter(t, store, v.ID).Participated["elder_1"] {
					participated++
				}
			}
			if participated != accepted {
				t.Errorf("Expected %d voters marked, got %d", accepted, participated)
			}
		})
	}
}
