package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

var ErrNothingToReset = errors.New("nothing selected to reset")

// ResetOptions selects what ResetElection clears.
type ResetOptions struct {
	// Candidates deletes every candidate.
	Candidates bool

	// Voters deletes every voter.
	Voters bool

	// VotesOnly keeps the rosters and clears vote counters and participation.
	// Ignored for a roster that is being deleted.
	VotesOnly bool
}

// ResetResult counts the documents touched by ResetElection.
type ResetResult struct {
	CandidatesDeleted int
	VotersDeleted     int
	CandidatesReset   int
	VotersReset       int
}

// ResetElection clears an election's data. It is not atomic: it should only
// be run while voting is closed.
func (c *Console) ResetElection(ctx context.Context, electionID string, opts ResetOptions, progress Progress) (ResetResult, error) {
	if !opts.Candidates && !opts.Voters && !opts.VotesOnly {
		return ResetResult{}, ErrNothingToReset
	}
	start := time.Now()

	var res ResetResult
	var writes []storage.Write

	candidates, err := c.store.Query(ctx, election.CandidatesPath(electionID))
	if err != nil {
		return res, fmt.Errorf("failed to list candidates: %w", err)
	}
	for _, d := range candidates {
		switch {
		case opts.Candidates:
			writes = append(writes, storage.DeleteWrite(d.Path))
			res.CandidatesDeleted++
		case opts.VotesOnly:
			var cand models.Candidate
			if err := d.Decode(&cand); err != nil {
				return res, fmt.Errorf("failed to decode candidate %s: %w", d.ID(), err)
			}
			cand.ResetVotes()
			w, err := storage.SetWrite(d.Path, cand)
			if err != nil {
				return res, err
			}
			writes = append(writes, w)
			res.CandidatesReset++
		}
	}

	voters, err := c.store.Query(ctx, election.VotersPath(electionID))
	if err != nil {
		return res, fmt.Errorf("failed to list voters: %w", err)
	}
	for _, d := range voters {
		switch {
		case opts.Voters:
			writes = append(writes, storage.DeleteWrite(d.Path))
			res.VotersDeleted++
		case opts.VotesOnly:
			var v models.Voter
			if err := d.Decode(&v); err != nil {
				return res, fmt.Errorf("failed to decode voter %s: %w", d.ID(), err)
			}
			v.ResetParticipation()
			w, err := storage.SetWrite(d.Path, v)
			if err != nil {
				return res, err
			}
			writes = append(writes, w)
			res.VotersReset++
		}
	}

	if err := c.writeBatches(ctx, writes, progress); err != nil {
		return res, err
	}
	slog.Warn("Election reset",
		"election_id", electionID,
		"candidates_deleted", res.CandidatesDeleted,
		"voters_deleted", res.VotersDeleted,
		"candidates_reset", res.CandidatesReset,
		"voters_reset", res.VotersReset,
		"took", since(start),
	)
	return res, nil
}
