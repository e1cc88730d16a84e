package ballot

import (
	"errors"
	"fmt"

	"github.com/mmynk/officevote/internal/models"
)

var (
	// ErrVoterNotFound means the voter record is gone; the voter must log in again.
	ErrVoterNotFound = errors.New("voter not found")

	// ErrEmptyBallot is returned when a ballot names no office at all.
	ErrEmptyBallot = errors.New("ballot has no offices")

	// ErrUnknownOffice is returned for an office outside models.Offices.
	ErrUnknownOffice = errors.New("unknown office")
)

// AlreadyVotedError means the voter has already cast a ballot for Office in
// Round. Nothing was written.
type AlreadyVotedError struct {
	Office models.Office
	Round  int
}

func (e *AlreadyVotedError) Error() string {
	return fmt.Sprintf("already voted for %s round %d", e.Office, e.Round)
}

// CandidateNotFoundError means a selected candidate no longer exists. The
// roster changed while the voter was choosing.
type CandidateNotFoundError struct {
	ID     string
	Office models.Office
}

func (e *CandidateNotFoundError) Error() string {
	return fmt.Sprintf("candidate %q for %s not found", e.ID, e.Office)
}

// SelectionLimitError means more candidates were selected than the office allows.
type SelectionLimitError struct {
	Office models.Office
	Max    int
	Got    int
}

func (e *SelectionLimitError) Error() string {
	return fmt.Sprintf("%s allows at most %d selections, got %d", e.Office, e.Max, e.Got)
}

// CandidateNotEligibleError means a candidate was selected under an office or
// round they are not standing in.
type CandidateNotEligibleError struct {
	ID     string
	Office models.Office
	Round  int
}

func (e *CandidateNotEligibleError) Error() string {
	return fmt.Sprintf("candidate %q is not eligible for %s round %d", e.ID, e.Office, e.Round)
}
