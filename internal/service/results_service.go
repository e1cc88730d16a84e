package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/tally"
)

// ResultsService implements the Connect ResultsService. It is public and
// read-only.
type ResultsService struct {
	dir    *election.Directory
	reader *tally.Reader
}

// NewResultsService creates a new ResultsService.
func NewResultsService(dir *election.Directory, reader *tally.Reader) *ResultsService {
	return &ResultsService{dir: dir, reader: reader}
}

// GetResults returns the standings of one office round.
func (s *ResultsService) GetResults(ctx context.Context, req *connect.Request[api.GetResultsRequest]) (*connect.Response[api.Standings], error) {
	slog.Info("GetResults request received",
		"election_id", req.Msg.ElectionID,
		"office", req.Msg.Office,
		"round", req.Msg.Round,
	)

	office, err := models.ParseOffice(req.Msg.Office)
	if err != nil {
		return nil, invalid(err)
	}
	electionID, err := s.dir.Resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("GetResults", err)
	}
	standings, err := s.reader.Results(ctx, electionID, office, req.Msg.Round)
	if err != nil {
		return nil, toConnectError("GetResults", err)
	}
	return connect.NewResponse(toStandings(standings)), nil
}

// GetOverview returns every office at its live round and the turnout.
func (s *ResultsService) GetOverview(ctx context.Context, req *connect.Request[api.GetOverviewRequest]) (*connect.Response[api.Overview], error) {
	electionID, err := s.dir.Resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("GetOverview", err)
	}
	o, err := s.reader.Overview(ctx, electionID)
	if err != nil {
		return nil, toConnectError("GetOverview", err)
	}

	resp := &api.Overview{
		ElectionID:  o.ElectionID,
		TotalVoters: o.TotalVoters,
		Turnout:     o.Turnout,
	}
	for i := range o.Offices {
		resp.Offices = append(resp.Offices, *toStandings(&o.Offices[i]))
	}
	slog.Info("GetOverview successful", "election_id", electionID, "turnout", o.Turnout)
	return connect.NewResponse(resp), nil
}

func toStandings(s *tally.Standings) *api.Standings {
	out := &api.Standings{
		ElectionID:    s.ElectionID,
		Office:        string(s.Office),
		Label:         s.Office.Label(),
		Round:         s.Round,
		BallotsCast:   s.BallotsCast,
		RequiredVotes: s.RequiredVotes,
		Candidates:    make([]api.Standing, len(s.Candidates)),
	}
	for i, c := range s.Candidates {
		out.Candidates[i] = api.Standing{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			PhotoURL:    c.PhotoURL,
			Votes:       c.Votes,
			Rank:        c.Rank,
			Elected:     c.Elected,
		}
	}
	return out
}
