package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxVotes is the selection cap used when settings omit an office.
	DefaultMaxVotes = 5

	// DefaultRound is the live round used when settings omit an office.
	DefaultRound = 1
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid election settings")

// SystemPointer is the single deployment-wide document naming the active election.
type SystemPointer struct {
	// ActiveElectionID is the election every voter-facing call operates on.
	ActiveElectionID string `json:"activeElectionId"`

	// ElectionList holds every election ever created, in creation order.
	// Elections are never removed from it.
	ElectionList []string `json:"electionList"`
}

// Has reports whether id is a known election.
func (p SystemPointer) Has(id string) bool {
	for _, e := range p.ElectionList {
		if e == id {
			return true
		}
	}
	return false
}

// ElectionSettings holds the per-election configuration.
type ElectionSettings struct {
	// MaxVotesPerOffice caps how many candidates a voter may select per office.
	MaxVotesPerOffice map[Office]int `json:"maxVotesPerOffice"`

	// RoundPerOffice names the live round of each office. A candidate can only
	// receive votes while their Round equals this value.
	RoundPerOffice map[Office]int `json:"roundPerOffice"`

	// VotingWindow optionally restricts when ballots are accepted.
	VotingWindow *VotingWindow `json:"votingWindow,omitempty"`
}

// VotingWindow bounds the period in which voters may log in and submit.
// A nil bound is open-ended.
type VotingWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// WindowStatus describes where a moment falls relative to the voting window.
type WindowStatus int

const (
	WindowOpen WindowStatus = iota
	WindowNotStarted
	WindowClosed
)

func (s WindowStatus) String() string {
	switch s {
	case WindowNotStarted:
		return "not_started"
	case WindowClosed:
		return "closed"
	default:
		return "open"
	}
}

// DefaultSettings returns settings with the default cap and round for every office.
func DefaultSettings() ElectionSettings {
	s := ElectionSettings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in a cap and a live round for any office that lacks one.
func (s *ElectionSettings) ApplyDefaults() {
	if s.MaxVotesPerOffice == nil {
		s.MaxVotesPerOffice = make(map[Office]int, len(Offices))
	}
	if s.RoundPerOffice == nil {
		s.RoundPerOffice = make(map[Office]int, len(Offices))
	}
	for _, o := range Offices {
		if s.MaxVotesPerOffice[o] <= 0 {
			s.MaxVotesPerOffice[o] = DefaultMaxVotes
		}
		if s.RoundPerOffice[o] <= 0 {
			s.RoundPerOffice[o] = DefaultRound
		}
	}
}

// MaxVotes returns the selection cap for office.
func (s ElectionSettings) MaxVotes(office Office) int {
	if n := s.MaxVotesPerOffice[office]; n > 0 {
		return n
	}
	return DefaultMaxVotes
}

// Round returns the live round for office.
func (s ElectionSettings) Round(office Office) int {
	if n := s.RoundPerOffice[office]; n > 0 {
		return n
	}
	return DefaultRound
}

// Validate rejects unknown offices, non-positive values and inverted windows.
func (s ElectionSettings) Validate() error {
	for o, n := range s.MaxVotesPerOffice {
		if !o.Valid() {
			return fmt.Errorf("%w: maxVotesPerOffice: unknown office %q", ErrInvalidSettings, o)
		}
		if n <= 0 {
			return fmt.Errorf("%w: maxVotesPerOffice[%s] must be positive, got %d", ErrInvalidSettings, o, n)
		}
	}
	for o, n := range s.RoundPerOffice {
		if !o.Valid() {
			return fmt.Errorf("%w: roundPerOffice: unknown office %q", ErrInvalidSettings, o)
		}
		if n <= 0 {
			return fmt.Errorf("%w: roundPerOffice[%s] must be positive, got %d", ErrInvalidSettings, o, n)
		}
	}
	if w := s.VotingWindow; w != nil && w.Start != nil && w.End != nil && !w.End.After(*w.Start) {
		return fmt.Errorf("%w: votingWindow: end must be after start", ErrInvalidSettings)
	}
	return nil
}

// WindowStatus reports whether now is inside the voting window.
func (s ElectionSettings) WindowStatus(now time.Time) WindowStatus {
	w := s.VotingWindow
	if w == nil {
		return WindowOpen
	}
	if w.Start != nil && now.Before(*w.Start) {
		return WindowNotStarted
	}
	if w.End != nil && !now.Before(*w.End) {
		return WindowClosed
	}
	return WindowOpen
}
