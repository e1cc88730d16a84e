package ballot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/officevote/internal/hangul"
	"github.com/mmynk/officevote/internal/models"
)

var (
	// ErrNothingToVote means every office is either already voted or has no candidates.
	ErrNothingToVote = errors.New("nothing left to vote for")

	// ErrSessionCompleted is returned for any action after a successful submit.
	ErrSessionCompleted = errors.New("voting session already completed")

	// ErrNotReady is returned when submitting before every office was reviewed.
	ErrNotReady = errors.New("ballot is not ready for submission")

	// ErrInvalidTransition is returned for Advance or Back when the session cannot move that way.
	ErrInvalidTransition = errors.New("invalid ballot step")

	// ErrNotOnBallot is returned when selecting a candidate who is not on the current office's ballot.
	ErrNotOnBallot = errors.New("candidate is not on this ballot")

	// ErrSubmitInProgress is returned when a second submit arrives while one is running.
	ErrSubmitInProgress = errors.New("submission already in progress")

	// ErrBallotOutdated means an office moved to a new round after the ballot
	// was built. The voter has to log in again to get the new ballot.
	ErrBallotOutdated = errors.New("ballot is outdated, please log in again")
)

// State is the position of a Session in the voting flow.
type State int

const (
	// AwaitingOffice means the voter is choosing candidates for the current office.
	AwaitingOffice State = iota
	// ReviewPending means every office was visited and the ballot awaits submission.
	ReviewPending
	// Completed means the ballot was committed. It is terminal.
	Completed
	// Expired means the ballot no longer matches the election. It is terminal.
	Expired
)

func (s State) String() string {
	switch s {
	case AwaitingOffice:
		return "awaiting_office"
	case ReviewPending:
		return "review_pending"
	case Completed:
		return "completed"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Submitter records a ballot. *Engine satisfies it.
type Submitter interface {
	SubmitBallot(ctx context.Context, electionID, voterID string, selections Selections) (*Receipt, error)
}

// OfficeBallot is one office's page of the ballot.
type OfficeBallot struct {
	Office     models.Office
	Round      int
	MaxVotes   int
	Candidates []models.Candidate
}

func (b *OfficeBallot) has(id string) bool {
	return slices.ContainsFunc(b.Candidates, func(c models.Candidate) bool { return c.ID == id })
}

// Session walks one voter through every office they still have to vote for,
// in ballot order, and submits them all at once. It is safe for concurrent use.
type Session struct {
	ID         string
	ElectionID string
	VoterID    string
	VoterName  string
	Rehearsal  bool

	mu         sync.Mutex
	ballots    []*OfficeBallot
	selected   map[models.Office][]string
	pos        int
	state      State
	submitting bool
}

// NewSession builds the ballot for voter from the election's candidates.
// Offices the voter already voted in at the live round are skipped unless
// rehearsal is set, as are offices with no eligible candidates. Candidates on
// each page are sorted by name in Korean order.
func NewSession(electionID string, voter models.Voter, settings models.ElectionSettings, candidates []models.Candidate, rehearsal bool) (*Session, error) {
	byOffice := make(map[models.Office][]models.Candidate)
	for _, c := range candidates {
		if c.Office.Valid() && c.Round == settings.Round(c.Office) {
			byOffice[c.Office] = append(byOffice[c.Office], c)
		}
	}

	sorter := hangul.NewSorter()
	var ballots []*OfficeBallot
	for _, o := range models.Offices {
		round := settings.Round(o)
		if !rehearsal && voter.HasParticipated(o, round) {
			continue
		}
		eligible := byOffice[o]
		if len(eligible) == 0 {
			continue
		}
		hangul.SortFunc(sorter, eligible, func(c models.Candidate) string { return c.Name })
		ballots = append(ballots, &OfficeBallot{
			Office:     o,
			Round:      round,
			MaxVotes:   settings.MaxVotes(o),
			Candidates: eligible,
		})
	}
	if len(ballots) == 0 {
		return nil, ErrNothingToVote
	}

	return &Session{
		ID:         uuid.New().String(),
		ElectionID: electionID,
		VoterID:    voter.ID,
		VoterName:  voter.Name,
		Rehearsal:  rehearsal,
		ballots:    ballots,
		selected:   make(map[models.Office][]string),
	}, nil
}

// View is a snapshot of a Session.
type View struct {
	State State

	// Current is the office being chosen; nil unless State is AwaitingOffice.
	Current *OfficeBallot

	// Step is the 1-based index of the current office, Steps the number of offices.
	Step  int
	Steps int

	// Offices lists the offices on this ballot in order.
	Offices []models.Office

	// Selected holds the chosen candidate IDs per office, in selection order.
	Selected map[models.Office][]string
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	v := View{
		State:    s.state,
		Steps:    len(s.ballots),
		Selected: make(map[models.Office][]string, len(s.selected)),
	}
	for _, b := range s.ballots {
		v.Offices = append(v.Offices, b.Office)
	}
	for o, ids := range s.selected {
		v.Selected[o] = slices.Clone(ids)
	}
	if s.state == AwaitingOffice {
		cur := *s.ballots[s.pos]
		cur.Candidates = slices.Clone(cur.Candidates)
		v.Current = &cur
		v.Step = s.pos + 1
	} else {
		v.Step = len(s.ballots)
	}
	return v
}

// Select adds or removes a candidate on the current office's page.
// Adding beyond the office's cap returns *SelectionLimitError.
func (s *Session) Select(candidateID string, selected bool) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return s.view(), err
	}
	if s.state != AwaitingOffice {
		return s.view(), ErrInvalidTransition
	}
	b := s.ballots[s.pos]
	if !b.has(candidateID) {
		return s.view(), ErrNotOnBallot
	}

	ids := s.selected[b.Office]
	i := slices.Index(ids, candidateID)
	switch {
	case selected && i >= 0, !selected && i < 0:
		// already in the requested state
	case selected:
		if len(ids) >= b.MaxVotes {
			return s.view(), &SelectionLimitError{Office: b.Office, Max: b.MaxVotes, Got: len(ids) + 1}
		}
		s.selected[b.Office] = append(ids, candidateID)
	default:
		s.selected[b.Office] = slices.Delete(ids, i, i+1)
	}
	return s.view(), nil
}

// Advance moves to the next office, or to review after the last one.
func (s *Session) Advance() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return s.view(), err
	}
	if s.state != AwaitingOffice {
		return s.view(), ErrInvalidTransition
	}
	s.pos++
	if s.pos == len(s.ballots) {
		s.pos = len(s.ballots) - 1
		s.state = ReviewPending
	}
	return s.view(), nil
}

// Back returns to the previous office, or from review to the last office.
func (s *Session) Back() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return s.view(), err
	}
	switch {
	case s.state == ReviewPending:
		s.state = AwaitingOffice
	case s.pos > 0:
		s.pos--
	default:
		return s.view(), ErrInvalidTransition
	}
	return s.view(), nil
}

// Submit records every office on the ballot in a single SubmitBallot call.
// Offices with nothing selected are submitted as abstentions.
//
// On success the session is Completed. If a selected candidate has vanished
// or now stands for another office or round, the candidate is dropped and the
// session returns to that office so the voter can choose again. If the office
// itself moved to a new round the session is Expired and the error wraps
// ErrBallotOutdated. If an office turns out to be already voted it is dropped
// from the ballot. Other errors leave the session in review so the voter can
// retry.
func (s *Session) Submit(ctx context.Context, submitter Submitter) (*Receipt, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.state != ReviewPending {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	sel := make(Selections, len(s.ballots))
	for _, b := range s.ballots {
		sel[b.Office] = slices.Clone(s.selected[b.Office])
	}
	s.submitting = true
	s.mu.Unlock()

	receipt, err := submitter.SubmitBallot(ctx, s.ElectionID, s.VoterID, sel)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	var (
		notFound    *CandidateNotFoundError
		notEligible *CandidateNotEligibleError
		already     *AlreadyVotedError
	)
	switch {
	case err == nil:
		s.state = Completed
	case errors.As(err, &notFound):
		s.dropCandidate(notFound.Office, notFound.ID)
	case errors.As(err, &notEligible):
		if s.roundOf(notEligible.Office) != notEligible.Round {
			s.state = Expired
			return nil, fmt.Errorf("%w: %w", ErrBallotOutdated, err)
		}
		s.dropCandidate(notEligible.Office, notEligible.ID)
	case errors.As(err, &already):
		s.dropOffice(already.Office)
	}
	return receipt, err
}

func (s *Session) checkOpen() error {
	switch s.state {
	case Completed:
		return ErrSessionCompleted
	case Expired:
		return ErrBallotOutdated
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	return nil
}

// roundOf returns the round office's page was built for, or 0.
func (s *Session) roundOf(office models.Office) int {
	for _, b := range s.ballots {
		if b.Office == office {
			return b.Round
		}
	}
	return 0
}

func (s *Session) dropCandidate(office models.Office, id string) {
	for i, b := range s.ballots {
		if b.Office != office {
			continue
		}
		b.Candidates = slices.DeleteFunc(b.Candidates, func(c models.Candidate) bool { return c.ID == id })
		s.selected[office] = slices.DeleteFunc(s.selected[office], func(x string) bool { return x == id })
		if len(b.Candidates) == 0 {
			s.dropOffice(office)
			return
		}
		s.pos = i
		s.state = AwaitingOffice
		return
	}
}

func (s *Session) dropOffice(office models.Office) {
	i := slices.IndexFunc(s.ballots, func(b *OfficeBallot) bool { return b.Office == office })
	if i < 0 {
		return
	}
	s.ballots = slices.Delete(s.ballots, i, i+1)
	delete(s.selected, office)
	if len(s.ballots) == 0 {
		s.state = Completed
		return
	}
	if s.pos >= len(s.ballots) {
		s.pos = len(s.ballots) - 1
	}
}
