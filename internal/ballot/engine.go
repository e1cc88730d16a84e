// Package ballot records ballots and walks voters through them.
//
// Engine.SubmitBallot is the only code that changes vote counters or voter
// participation. It does so in one store transaction: every read happens
// first, every write is derived from those reads, and the store retries the
// whole function if a document it read changed before commit. Because the
// function can run more than once it touches nothing outside the transaction.
package ballot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

// TransactionRunner runs a function as one atomic, retried transaction.
// storage.Store satisfies it.
type TransactionRunner interface {
	RunTransaction(ctx context.Context, fn storage.TxnFunc) error
}

// Selections maps each office on the ballot to the chosen candidate IDs.
// An office with no IDs is an abstention: participation is still recorded.
type Selections map[models.Office][]string

// Receipt describes a committed ballot.
type Receipt struct {
	ElectionID string
	VoterID    string

	// Offices lists the offices on the ballot in ballot order.
	Offices []models.Office

	// Rounds holds the live round each office was voted in.
	Rounds map[models.Office]int

	// Votes is the total number of candidate votes applied.
	Votes int

	// Rehearsal is true when the ballot came from a rehearsal voter and
	// participation was not recorded.
	Rehearsal bool

	// Attempts is how many times the transaction body ran.
	Attempts int
}

// Engine applies ballots.
type Engine struct {
	runner    TransactionRunner
	rehearsal bool
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRehearsal enables rehearsal mode. Only then may voters flagged as
// rehearsal voters vote repeatedly.
func WithRehearsal(enabled bool) Option {
	return func(e *Engine) { e.rehearsal = enabled }
}

// WithClock overrides the time source used for votedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine that runs its transactions on runner.
func NewEngine(runner TransactionRunner, opts ...Option) *Engine {
	e := &Engine{runner: runner, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RehearsalEnabled reports whether rehearsal voters bypass duplicate checks.
func (e *Engine) RehearsalEnabled() bool {
	return e.rehearsal
}

// IsRehearsal reports whether v votes as a rehearsal voter under this engine.
func (e *Engine) IsRehearsal(v models.Voter) bool {
	return e.rehearsal && v.Rehearsal
}

type officeSelection struct {
	office models.Office
	ids    []string
}

// SubmitBallot atomically records one voter's selections for one or more
// offices at their live rounds.
//
// It fails without writing anything when the voter is missing, has already
// voted in any of the offices at the live round, selected more candidates
// than an office allows, or selected a candidate that is missing or not
// standing in that office's live round.
func (e *Engine) SubmitBallot(ctx context.Context, electionID, voterID string, selections Selections) (*Receipt, error) {
	ballot, err := normalize(selections)
	if err != nil {
		return nil, err
	}
	votedAt := e.now().UTC()

	var receipt *Receipt
	attempts := 0
	err = e.runner.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		attempts++
		r, err := e.apply(ctx, tx, electionID, voterID, ballot, votedAt)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	receipt.Attempts = attempts
	return receipt, nil
}

// apply is the transaction body. Reads: voter, settings, candidates. Then writes.
func (e *Engine) apply(ctx context.Context, tx storage.Txn, electionID, voterID string, ballot []officeSelection, votedAt time.Time) (*Receipt, error) {
	doc, err := tx.Get(ctx, election.VoterPath(electionID, voterID))
	if storage.IsNotFound(err) {
		return nil, ErrVoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read voter: %w", err)
	}
	var voter models.Voter
	if err := doc.Decode(&voter); err != nil {
		return nil, fmt.Errorf("failed to decode voter: %w", err)
	}
	rehearsal := e.IsRehearsal(voter)

	settings, err := election.LoadSettings(ctx, tx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	receipt := &Receipt{
		ElectionID: electionID,
		VoterID:    voterID,
		Rounds:     make(map[models.Office]int, len(ballot)),
		Rehearsal:  rehearsal,
	}
	for _, b := range ballot {
		round := settings.Round(b.office)
		if !rehearsal && voter.HasParticipated(b.office, round) {
			return nil, &AlreadyVotedError{Office: b.office, Round: round}
		}
		if limit := settings.MaxVotes(b.office); len(b.ids) > limit {
			return nil, &SelectionLimitError{Office: b.office, Max: limit, Got: len(b.ids)}
		}
		receipt.Offices = append(receipt.Offices, b.office)
		receipt.Rounds[b.office] = round
	}

	candidates := make(map[string]*models.Candidate)
	var order []string
	for _, b := range ballot {
		round := receipt.Rounds[b.office]
		for _, id := range b.ids {
			c, ok := candidates[id]
			if !ok {
				doc, err := tx.Get(ctx, election.CandidatePath(electionID, id))
				if storage.IsNotFound(err) {
					return nil, &CandidateNotFoundError{ID: id, Office: b.office}
				}
				if err != nil {
					return nil, fmt.Errorf("failed to read candidate %s: %w", id, err)
				}
				c = &models.Candidate{ID: id}
				if err := doc.Decode(c); err != nil {
					return nil, fmt.Errorf("failed to decode candidate %s: %w", id, err)
				}
				candidates[id] = c
				order = append(order, id)
			}
			if c.Office != b.office || c.Round != round {
				return nil, &CandidateNotEligibleError{ID: id, Office: b.office, Round: round}
			}
		}
	}

	// All reads are done. Compute and buffer writes.
	for _, b := range ballot {
		for _, id := range b.ids {
			candidates[id].AddVote()
			receipt.Votes++
		}
	}
	for _, id := range order {
		if err := tx.Set(election.CandidatePath(electionID, id), candidates[id]); err != nil {
			return nil, err
		}
	}
	if !rehearsal {
		voter.MarkParticipated(settings, receipt.Offices, votedAt)
		if err := tx.Set(election.VoterPath(electionID, voterID), voter); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

// normalize validates offices, drops duplicate IDs and orders the ballot.
func normalize(selections Selections) ([]officeSelection, error) {
	if len(selections) == 0 {
		return nil, ErrEmptyBallot
	}
	ballot := make([]officeSelection, 0, len(selections))
	for office, ids := range selections {
		if !office.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOffice, office)
		}
		seen := make(map[string]bool, len(ids))
		unique := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == "" || storage.ValidatePath(storage.Join("c", id)) != nil {
				return nil, &CandidateNotFoundError{ID: id, Office: office}
			}
			if !seen[id] {
				seen[id] = true
				unique = append(unique, id)
			}
		}
		ballot = append(ballot, officeSelection{office: office, ids: unique})
	}
	sort.Slice(ballot, func(i, j int) bool {
		return ballot[i].office.Index() < ballot[j].office.Index()
	})
	return ballot, nil
}
