package ballot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/storage/memory"
)

func sessionFixture() fixture {
	s := models.DefaultSettings()
	s.MaxVotesPerOffice[models.OfficeElder] = 1
	s.RoundPerOffice[models.OfficeDeaconess] = 2
	return fixture{
		settings: s,
		candidates: []models.Candidate{
			{ID: "e-hong", Name: "홍길동", Office: models.OfficeElder, Round: 1},
			{ID: "e-kim", Name: "김철수", Office: models.OfficeElder, Round: 1},
			{ID: "d-park", Name: "박영희", Office: models.OfficeDeacon, Round: 1},
			{ID: "k-old", Name: "이순자", Office: models.OfficeDeaconess, Round: 1},
			{ID: "k-new", Name: "최민지", Office: models.OfficeDeaconess, Round: 2},
		},
		voters: []models.Voter{{ID: "V", Name: "유권자"}},
	}
}

func TestNewSession(t *testing.T) {
	f := sessionFixture()

	t.Run("orders offices and candidates", func(t *testing.T) {
		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		v := s.View()
		if v.State != AwaitingOffice || v.Step != 1 || v.Steps != 3 {
			t.Fatalf("Unexpected view %+v", v)
		}
		if v.Current.Office != models.OfficeElder || v.Current.MaxVotes != 1 {
			t.Errorf("Expected elder with cap 1, got %s cap %d", v.Current.Office, v.Current.MaxVotes)
		}
		if v.Current.Candidates[0].Name != "김철수" || v.Current.Candidates[1].Name != "홍길동" {
			t.Errorf("Expected Korean name order, got %v", v.Current.Candidates)
		}
	})

	t.Run("skips offices already voted at the live round", func(t *testing.T) {
		voter := models.Voter{ID: "V", Participated: map[string]bool{"elder_1": true, "deaconess_1": true}}
		s, err := NewSession(testElection, voter, f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		v := s.View()
		want := []models.Office{models.OfficeDeacon, models.OfficeDeaconess}
		if len(v.Offices) != 2 || v.Offices[0] != want[0] || v.Offices[1] != want[1] {
			t.Errorf("Expected %v, got %v", want, v.Offices)
		}
	})

	t.Run("rehearsal keeps voted offices", func(t *testing.T) {
		voter := models.Voter{ID: "T", Rehearsal: true, Participated: map[string]bool{"elder_1": true}}
		s, err := NewSession(testElection, voter, f.settings, f.candidates, true)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		if s.View().Steps != 3 {
			t.Errorf("Expected all 3 offices, got %v", s.View().Offices)
		}
	})

	t.Run("nothing to vote", func(t *testing.T) {
		voter := models.Voter{ID: "V", Participated: map[string]bool{"elder_1": true, "deacon_1": true, "deaconess_2": true}}
		if _, err := NewSession(testElection, voter, f.settings, f.candidates, false); !errors.Is(err, ErrNothingToVote) {
			t.Errorf("Expected ErrNothingToVote, got %v", err)
		}
	})
}

func TestSessionFlow(t *testing.T) {
	ctx := context.Background()
	f := sessionFixture()
	store := memory.New()
	seed(t, store, f)
	engine := NewEngine(store)

	s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if _, err := s.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on Back from first office, got %v", err)
	}
	if _, err := s.Submit(ctx, engine); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before review, got %v", err)
	}

	// elder: cap 1
	if _, err := s.Select("e-kim", true); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	_, err = s.Select("e-hong", true)
	var limit *SelectionLimitError
	if !errors.As(err, &limit) || limit.Max != 1 {
		t.Errorf("Expected SelectionLimitError, got %v", err)
	}
	if _, err := s.Select("d-park", true); !errors.Is(err, ErrNotOnBallot) {
		t.Errorf("Expected ErrNotOnBallot for a deacon on the elder page, got %v", err)
	}

	// swap the choice
	if _, err := s.Select("e-kim", false); err != nil {
		t.Fatalf("Deselect failed: %v", err)
	}
	if _, err := s.Select("e-hong", true); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// deacon: leave empty, deaconess: pick the live-round candidate
	if v, _ := s.Advance(); v.Current.Office != models.OfficeDeacon {
		t.Fatalf("Expected deacon page, got %+v", v)
	}
	v, _ := s.Advance()
	if v.Current.Office != models.OfficeDeaconess || len(v.Current.Candidates) != 1 {
		t.Fatalf("Expected deaconess page with 1 candidate, got %+v", v.Current)
	}
	if _, err := s.Select("k-new", true); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if v, _ := s.Advance(); v.State != ReviewPending {
		t.Fatalf("Expected review, got %s", v.State)
	}
	if _, err := s.Advance(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition past review, got %v", err)
	}
	if v, _ := s.Back(); v.State != AwaitingOffice || v.Current.Office != models.OfficeDeaconess {
		t.Errorf("Expected Back from review to land on deaconess, got %+v", v)
	}
	if v, _ := s.Advance(); v.State != ReviewPending {
		t.Fatalf("Expected review, got %s", v.State)
	}

	receipt, err := s.Submit(ctx, engine)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if receipt.Votes != 2 || len(receipt.Offices) != 3 {
		t.Errorf("Unexpected receipt %+v", receipt)
	}
	if s.View().State != Completed {
		t.Errorf("Expected completed, got %s", s.View().State)
	}
	if _, err := s.Submit(ctx, engine); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Expected ErrSessionCompleted on resubmit, got %v", err)
	}
	if _, err := s.Select("e-kim", true); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Expected ErrSessionCompleted on select, got %v", err)
	}

	voter := getVoter(t, store, "V")
	for _, key := range []string{"elder_1", "deacon_1", "deaconess_2"} {
		if !voter.Participated[key] {
			t.Errorf("Expected %s, got %v", key, voter.Participated)
		}
	}
	if c := getCandidate(t, store, "e-hong"); c.Votes(1) != 1 {
		t.Errorf("Expected e-hong to have 1 vote, got %d", c.Votes(1))
	}
	if c := getCandidate(t, store, "e-kim"); c.VoteCount != 0 {
		t.Errorf("Expected e-kim to have no votes, got %d", c.VoteCount)
	}
}

func TestSessionSubmitRecovers(t *testing.T) {
	ctx := context.Background()

	t.Run("vanished candidate sends the voter back to that office", func(t *testing.T) {
		f := sessionFixture()
		store := memory.New()
		seed(t, store, f)

		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		s.Select("e-kim", true)
		s.Advance()
		s.Select("d-park", true)
		s.Advance()
		s.Advance()

		if err := store.BatchWrite(ctx, []storage.Write{storage.DeleteWrite(election.CandidatePath(testElection, "e-kim"))}); err != nil {
			t.Fatalf("BatchWrite failed: %v", err)
		}

		_, err = s.Submit(ctx, NewEngine(store))
		var nf *CandidateNotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("Expected CandidateNotFoundError, got %v", err)
		}
		v := s.View()
		if v.State != AwaitingOffice || v.Current.Office != models.OfficeElder {
			t.Fatalf("Expected to be back on the elder page, got %+v", v)
		}
		if len(v.Current.Candidates) != 1 || len(v.Selected[models.OfficeElder]) != 0 {
			t.Errorf("Expected e-kim removed from page and selection, got %+v", v)
		}
		if got := v.Selected[models.OfficeDeacon]; len(got) != 1 || got[0] != "d-park" {
			t.Errorf("Expected deacon selection kept, got %v", got)
		}

		s.Select("e-hong", true)
		s.Advance()
		s.Advance()
		s.Advance()
		if _, err := s.Submit(ctx, NewEngine(store)); err != nil {
			t.Fatalf("Second Submit failed: %v", err)
		}
	})

	t.Run("candidate moved to another round is dropped from the page", func(t *testing.T) {
		f := sessionFixture()
		store := memory.New()
		seed(t, store, f)

		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		s.Select("e-kim", true)
		s.Advance()
		s.Select("d-park", true)
		s.Advance()
		s.Advance()

		moved := f.candidates[1]
		moved.Round = 2
		w, err := storage.SetWrite(election.CandidatePath(testElection, "e-kim"), moved)
		if err != nil {
			t.Fatalf("SetWrite failed: %v", err)
		}
		if err := store.BatchWrite(ctx, []storage.Write{w}); err != nil {
			t.Fatalf("BatchWrite failed: %v", err)
		}

		_, err = s.Submit(ctx, NewEngine(store))
		var ne *CandidateNotEligibleError
		if !errors.As(err, &ne) || errors.Is(err, ErrBallotOutdated) {
			t.Fatalf("Expected CandidateNotEligibleError, got %v", err)
		}
		v := s.View()
		if v.State != AwaitingOffice || v.Current.Office != models.OfficeElder {
			t.Fatalf("Expected to be back on the elder page, got %+v", v)
		}
		if len(v.Current.Candidates) != 1 || v.Current.Candidates[0].ID != "e-hong" || len(v.Selected[models.OfficeElder]) != 0 {
			t.Errorf("Expected e-kim removed from page and selection, got %+v", v)
		}
		if got := v.Selected[models.OfficeDeacon]; len(got) != 1 || got[0] != "d-park" {
			t.Errorf("Expected deacon selection kept, got %v", got)
		}

		s.Select("e-hong", true)
		s.Advance()
		s.Advance()
		s.Advance()
		if _, err := s.Submit(ctx, NewEngine(store)); err != nil {
			t.Fatalf("Second Submit failed: %v", err)
		}
		if got := getCandidate(t, store, "e-hong").VoteCount; got != 1 {
			t.Errorf("Expected 1 vote for e-hong, got %d", got)
		}
		if got := getCandidate(t, store, "e-kim").VoteCount; got != 0 {
			t.Errorf("Expected no vote for e-kim, got %d", got)
		}
	})

	t.Run("office moved to a new round expires the session", func(t *testing.T) {
		f := sessionFixture()
		store := memory.New()
		seed(t, store, f)

		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		s.Select("e-kim", true)
		s.Advance()
		s.Advance()
		s.Advance()

		settings := f.settings
		settings.RoundPerOffice = map[models.Office]int{
			models.OfficeElder:     2,
			models.OfficeDeacon:    1,
			models.OfficeDeaconess: 2,
		}
		w, err := storage.SetWrite(election.SettingsPath(testElection), settings)
		if err != nil {
			t.Fatalf("SetWrite failed: %v", err)
		}
		if err := store.BatchWrite(ctx, []storage.Write{w}); err != nil {
			t.Fatalf("BatchWrite failed: %v", err)
		}

		_, err = s.Submit(ctx, NewEngine(store))
		var ne *CandidateNotEligibleError
		if !errors.Is(err, ErrBallotOutdated) || !errors.As(err, &ne) {
			t.Fatalf("Expected ErrBallotOutdated wrapping CandidateNotEligibleError, got %v", err)
		}
		if v := s.View(); v.State != Expired || v.Current != nil {
			t.Fatalf("Expected expired session, got %+v", v)
		}
		if _, err := s.Submit(ctx, NewEngine(store)); !errors.Is(err, ErrBallotOutdated) {
			t.Errorf("Expected ErrBallotOutdated on retry, got %v", err)
		}
		if _, err := s.Back(); !errors.Is(err, ErrBallotOutdated) {
			t.Errorf("Expected ErrBallotOutdated on Back, got %v", err)
		}
		if got := getCandidate(t, store, "e-kim").VoteCount; got != 0 {
			t.Errorf("Expected no vote recorded, got %d", got)
		}
	})

	t.Run("office voted elsewhere is dropped", func(t *testing.T) {
		f := sessionFixture()
		store := memory.New()
		seed(t, store, f)
		engine := NewEngine(store)

		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		s.Advance()
		s.Advance()
		s.Advance()

		// Another session finishes the elder ballot first.
		if _, err := engine.SubmitBallot(ctx, testElection, "V", Selections{models.OfficeElder: {"e-hong"}}); err != nil {
			t.Fatalf("SubmitBallot failed: %v", err)
		}

		_, err = s.Submit(ctx, engine)
		var already *AlreadyVotedError
		if !errors.As(err, &already) {
			t.Fatalf("Expected AlreadyVotedError, got %v", err)
		}
		v := s.View()
		if v.Steps != 2 || v.State != ReviewPending {
			t.Fatalf("Expected 2 remaining offices in review, got %+v", v)
		}
		if _, err := s.Submit(ctx, engine); err != nil {
			t.Fatalf("Submit of remaining offices failed: %v", err)
		}
	})

	t.Run("transient failure keeps the ballot for retry", func(t *testing.T) {
		f := sessionFixture()
		store := memory.New(memory.WithMaxAttempts(2))
		seed(t, store, f)

		s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		s.Select("e-kim", true)
		s.Advance()
		s.Advance()
		s.Advance()

		store.FailCommits(2)
		if _, err := s.Submit(ctx, NewEngine(store)); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}
		if v := s.View(); v.State != ReviewPending || len(v.Selected[models.OfficeElder]) != 1 {
			t.Fatalf("Expected ballot kept in review, got %+v", v)
		}
		if _, err := s.Submit(ctx, NewEngine(store)); err != nil {
			t.Fatalf("Retry failed: %v", err)
		}
	})
}

func TestSessionStore(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	st := NewSessionStore(10 * time.Minute)
	st.now = func() time.Time { return now }

	f := sessionFixture()
	s, err := NewSession(testElection, f.voters[0], f.settings, f.candidates, false)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	st.Put(s)

	now = now.Add(9 * time.Minute)
	if _, ok := st.Get(s.ID); !ok {
		t.Fatal("Expected session before expiry")
	}
	// Get extended the lifetime.
	now = now.Add(9 * time.Minute)
	if _, ok := st.Get(s.ID); !ok {
		t.Fatal("Expected session after sliding expiry")
	}
	now = now.Add(11 * time.Minute)
	if _, ok := st.Get(s.ID); ok {
		t.Error("Expected session to expire")
	}

	st.Put(s)
	st.Delete(s.ID)
	if st.Len() != 0 {
		t.Errorf("Expected empty store, got %d", st.Len())
	}
}
