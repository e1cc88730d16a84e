package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/admin"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/ballot"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
	"github.com/mmynk/officevote/internal/storage"
)

var (
	ErrVotingNotStarted = errors.New("voting has not started yet")
	ErrVotingClosed     = errors.New("voting has ended")
	ErrSessionExpired   = errors.New("voting session expired, please log in again")
	ErrSheetsDisabled   = errors.New("google sheets import is not configured")
)

// errorCode maps domain errors to Connect codes.
func errorCode(err error) connect.Code {
	var (
		alreadyVoted *ballot.AlreadyVotedError
		notFound     *ballot.CandidateNotFoundError
		limit        *ballot.SelectionLimitError
		notEligible  *ballot.CandidateNotEligibleError
	)
	switch {
	case errors.Is(err, ballot.ErrBallotOutdated):
		return connect.CodeUnauthenticated

	case errors.As(err, &alreadyVoted),
		errors.Is(err, ballot.ErrNothingToVote),
		errors.Is(err, election.ErrElectionExists):
		return connect.CodeAlreadyExists

	case errors.As(err, &notFound),
		errors.Is(err, ballot.ErrVoterNotFound),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, election.ErrUnknownElection),
		errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound

	case errors.As(err, &limit),
		errors.As(err, &notEligible),
		errors.Is(err, ballot.ErrEmptyBallot),
		errors.Is(err, ballot.ErrUnknownOffice),
		errors.Is(err, ballot.ErrNotOnBallot),
		errors.Is(err, election.ErrInvalidElectionID),
		errors.Is(err, models.ErrInvalidSettings),
		errors.Is(err, admin.ErrInvalidCandidate),
		errors.Is(err, admin.ErrInvalidVoter),
		errors.Is(err, admin.ErrNotImage),
		errors.Is(err, admin.ErrPhotoTooLarge),
		errors.Is(err, admin.ErrNothingToReset),
		errors.Is(err, roster.ErrEmptyRoster),
		errors.Is(err, storage.ErrInvalidPath):
		return connect.CodeInvalidArgument

	case errors.Is(err, ErrVotingNotStarted),
		errors.Is(err, ErrVotingClosed),
		errors.Is(err, ErrSheetsDisabled),
		errors.Is(err, ballot.ErrSessionCompleted),
		errors.Is(err, ballot.ErrNotReady),
		errors.Is(err, ballot.ErrInvalidTransition),
		errors.Is(err, ballot.ErrSubmitInProgress),
		errors.Is(err, admin.ErrPhotosDisabled):
		return connect.CodeFailedPrecondition

	case errors.Is(err, ErrSessionExpired),
		errors.Is(err, auth.ErrCodeMismatch),
		errors.Is(err, auth.ErrCodeExpired),
		errors.Is(err, auth.ErrWrongPassword),
		errors.Is(err, auth.ErrInvalidToken):
		return connect.CodeUnauthenticated

	case errors.Is(err, auth.ErrTooManyAttempts),
		errors.Is(err, auth.ErrCodeThrottled):
		return connect.CodeResourceExhausted

	case errors.Is(err, storage.ErrConflict):
		return connect.CodeAborted
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}

// toConnectError wraps err with its Connect code. Internal errors are logged.
func toConnectError(op string, err error) error {
	code := errorCode(err)
	if code == connect.CodeInternal {
		slog.Error(op+" failed", "error", err)
	} else {
		slog.Info(op+" rejected", "code", code, "error", err)
	}
	return connect.NewError(code, err)
}

// invalid wraps a request validation error.
func invalid(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}
