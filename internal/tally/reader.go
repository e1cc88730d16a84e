package tally

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

// Standing is one candidate's result in an office round.
type Standing struct {
	CandidateID string
	Name        string
	PhotoURL    string
	Votes       int

	// Rank is 1-based; tied candidates share a rank (1, 2, 2, 4).
	Rank int

	Elected bool
}

// Standings is the result of one office round.
type Standings struct {
	ElectionID string
	Office     models.Office
	Round      int

	// BallotsCast counts voters who submitted a ballot for this office round.
	BallotsCast int

	// RequiredVotes is the smallest vote count that is elected.
	RequiredVotes int

	Candidates []Standing
}

// Overview summarizes every office at its live round.
type Overview struct {
	ElectionID string
	Offices    []Standings

	// TotalVoters is the roster size; Turnout counts voters who took part in
	// at least one office round.
	TotalVoters int
	Turnout     int
}

// Reader reads results. It never writes and its snapshots are not transactional.
type Reader struct {
	store storage.Store
	dir   *election.Directory
}

// NewReader creates a Reader.
func NewReader(store storage.Store, dir *election.Directory) *Reader {
	return &Reader{store: store, dir: dir}
}

// Results returns the standings of office in round. A round of 0 means the
// office's live round.
//
// Candidates are sorted by votes in that round, highest first. Ties keep
// document ID order.
func (r *Reader) Results(ctx context.Context, electionID string, office models.Office, round int) (*Standings, error) {
	if !office.Valid() {
		return nil, fmt.Errorf("unknown office %q", office)
	}
	if round <= 0 {
		settings, err := r.dir.Settings(ctx, electionID)
		if err != nil {
			return nil, err
		}
		round = settings.Round(office)
	}

	docs, err := r.store.Query(ctx, election.CandidatesPath(electionID),
		storage.Where("office", storage.Eq, string(office)),
		storage.Where("round", storage.Eq, round),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	voters, err := r.store.Query(ctx, election.VotersPath(electionID),
		storage.Where("participated."+models.ParticipationKey(office, round), storage.Eq, true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count ballots: %w", err)
	}

	s := &Standings{
		ElectionID:    electionID,
		Office:        office,
		Round:         round,
		BallotsCast:   len(voters),
		RequiredVotes: RequiredVotes(office, len(voters)),
	}
	for _, d := range docs {
		var c models.Candidate
		if err := d.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode candidate %s: %w", d.ID(), err)
		}
		votes := c.Votes(round)
		s.Candidates = append(s.Candidates, Standing{
			CandidateID: d.ID(),
			Name:        c.Name,
			PhotoURL:    c.PhotoURL,
			Votes:       votes,
			Elected:     IsElected(office, votes, s.BallotsCast),
		})
	}
	Rank(s.Candidates)
	return s, nil
}

// Rank sorts standings by votes, highest first, keeping the existing order for
// ties, and assigns competition ranks.
func Rank(standings []Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Votes > standings[j].Votes
	})
	for i := range standings {
		if i > 0 && standings[i].Votes == standings[i-1].Votes {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
}

// Overview returns the live-round standings of every office and the turnout.
func (r *Reader) Overview(ctx context.Context, electionID string) (*Overview, error) {
	settings, err := r.dir.Settings(ctx, electionID)
	if err != nil {
		return nil, err
	}
	o := &Overview{ElectionID: electionID}
	for _, office := range models.Offices {
		s, err := r.Results(ctx, electionID, office, settings.Round(office))
		if err != nil {
			return nil, err
		}
		o.Offices = append(o.Offices, *s)
	}

	docs, err := r.store.Query(ctx, election.VotersPath(electionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	o.TotalVoters = len(docs)
	for _, d := range docs {
		var v models.Voter
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode voter %s: %w", d.ID(), err)
		}
		for _, done := range v.Participated {
			if done {
				o.Turnout++
				break
			}
		}
	}
	return o, nil
}
