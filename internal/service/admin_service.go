package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/admin"
	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
)

// SheetReader reads roster rows from a spreadsheet. *roster.SheetsSource
// satisfies it.
type SheetReader interface {
	Rows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
}

// AdminService implements the Connect AdminService. Every procedure except
// Login requires an admin token.
type AdminService struct {
	console *admin.Console
	gate    *auth.AdminGate
	jwt     *auth.JWTManager
	sheets  SheetReader
}

// NewAdminService creates a new AdminService. sheets may be nil, which
// disables Google Sheets imports.
func NewAdminService(console *admin.Console, gate *auth.AdminGate, jwtManager *auth.JWTManager, sheets SheetReader) *AdminService {
	return &AdminService{
		console: console,
		gate:    gate,
		jwt:     jwtManager,
		sheets:  sheets,
	}
}

// Login exchanges the admin password for an admin token.
func (s *AdminService) Login(ctx context.Context, req *connect.Request[api.AdminLoginRequest]) (*connect.Response[api.AdminLoginResponse], error) {
	if err := s.gate.Check(req.Msg.Password); err != nil {
		slog.Warn("Admin login failed")
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	token, err := s.jwt.GenerateAdmin()
	if err != nil {
		return nil, toConnectError("AdminLogin", err)
	}
	slog.Info("Admin logged in")
	return connect.NewResponse(&api.AdminLoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwt.AdminTTL()),
	}), nil
}

func (s *AdminService) resolve(ctx context.Context, electionID string) (string, error) {
	return s.console.Directory().Resolve(ctx, electionID)
}

func (s *AdminService) elections(ctx context.Context, op string) (*connect.Response[api.ListElectionsResponse], error) {
	p, err := s.console.ListElections(ctx)
	if err != nil {
		return nil, toConnectError(op, err)
	}
	return connect.NewResponse(&api.ListElectionsResponse{
		ActiveElectionID: p.ActiveElectionID,
		Elections:        slices.Clone(p.ElectionList),
	}), nil
}

// ListElections returns every election and the active one.
func (s *AdminService) ListElections(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.ListElectionsResponse], error) {
	return s.elections(ctx, "ListElections")
}

// CreateElection adds an election. The active election does not change.
func (s *AdminService) CreateElection(ctx context.Context, req *connect.Request[api.ElectionRequest]) (*connect.Response[api.ListElectionsResponse], error) {
	slog.Info("CreateElection request received", "election_id", req.Msg.ElectionID)
	if err := s.console.CreateElection(ctx, req.Msg.ElectionID); err != nil {
		return nil, toConnectError("CreateElection", err)
	}
	return s.elections(ctx, "CreateElection")
}

// SwitchElection changes the active election.
func (s *AdminService) SwitchElection(ctx context.Context, req *connect.Request[api.ElectionRequest]) (*connect.Response[api.ListElectionsResponse], error) {
	slog.Info("SwitchElection request received", "election_id", req.Msg.ElectionID)
	if err := s.console.SwitchElection(ctx, req.Msg.ElectionID); err != nil {
		return nil, toConnectError("SwitchElection", err)
	}
	return s.elections(ctx, "SwitchElection")
}

// GetSettings returns an election's settings.
func (s *AdminService) GetSettings(ctx context.Context, req *connect.Request[api.ElectionRequest]) (*connect.Response[api.Settings], error) {
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("GetSettings", err)
	}
	settings, err := s.console.Directory().Settings(ctx, electionID)
	if err != nil {
		return nil, toConnectError("GetSettings", err)
	}
	return connect.NewResponse(toSettings(electionID, settings)), nil
}

// UpdateSettings replaces an election's settings.
func (s *AdminService) UpdateSettings(ctx context.Context, req *connect.Request[api.Settings]) (*connect.Response[api.Settings], error) {
	slog.Info("UpdateSettings request received", "election_id", req.Msg.ElectionID)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("UpdateSettings", err)
	}
	settings, err := fromSettings(req.Msg)
	if err != nil {
		return nil, invalid(err)
	}
	saved, err := s.console.UpdateSettings(ctx, electionID, settings)
	if err != nil {
		return nil, toConnectError("UpdateSettings", err)
	}
	return connect.NewResponse(toSettings(electionID, saved)), nil
}

// readRows loads the rows of an import request.
func (s *AdminService) readRows(ctx context.Context, req *api.ImportRequest) ([][]string, error) {
	format, err := roster.ParseFormat(req.Format)
	if err != nil {
		return nil, invalid(err)
	}
	if format == roster.FormatSheets {
		if s.sheets == nil {
			return nil, connect.NewError(connect.CodeFailedPrecondition, ErrSheetsDisabled)
		}
		if req.SpreadsheetID == "" {
			return nil, invalid(fmt.Errorf("spreadsheetId is required"))
		}
		rows, err := s.sheets.Rows(ctx, req.SpreadsheetID, req.Range)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		return rows, nil
	}
	rows, err := roster.ReadRows(format, req.Data)
	if err != nil {
		return nil, invalid(err)
	}
	return rows, nil
}

func skippedRows(skipped []roster.RowError) []string {
	out := make([]string, len(skipped))
	for i, e := range skipped {
		out[i] = e.String()
	}
	return out
}

// ImportCandidates adds every usable row of a candidate roster.
func (s *AdminService) ImportCandidates(ctx context.Context, req *connect.Request[api.ImportRequest]) (*connect.Response[api.ImportResponse], error) {
	slog.Info("ImportCandidates request received",
		"election_id", req.Msg.ElectionID,
		"format", req.Msg.Format,
		"bytes", len(req.Msg.Data),
	)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("ImportCandidates", err)
	}
	rows, err := s.readRows(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	candidates, skipped, err := roster.ParseCandidates(rows, req.Msg.DefaultRound)
	if err != nil {
		return nil, invalid(err)
	}
	n, err := s.console.ImportCandidates(ctx, electionID, candidates, nil)
	if err != nil {
		return nil, toConnectError("ImportCandidates", err)
	}
	return connect.NewResponse(&api.ImportResponse{Imported: n, Skipped: skippedRows(skipped)}), nil
}

// ImportVoters adds every usable row of a voter roster.
func (s *AdminService) ImportVoters(ctx context.Context, req *connect.Request[api.ImportRequest]) (*connect.Response[api.ImportResponse], error) {
	slog.Info("ImportVoters request received",
		"election_id", req.Msg.ElectionID,
		"format", req.Msg.Format,
		"bytes", len(req.Msg.Data),
	)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("ImportVoters", err)
	}
	rows, err := s.readRows(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	voters, skipped, err := roster.ParseVoters(rows)
	if err != nil {
		return nil, invalid(err)
	}
	n, err := s.console.ImportVoters(ctx, electionID, voters, nil)
	if err != nil {
		return nil, toConnectError("ImportVoters", err)
	}
	return connect.NewResponse(&api.ImportResponse{Imported: n, Skipped: skippedRows(skipped)}), nil
}

// ListCandidates returns candidates with their counters.
func (s *AdminService) ListCandidates(ctx context.Context, req *connect.Request[api.ListCandidatesRequest]) (*connect.Response[api.ListCandidatesResponse], error) {
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("ListCandidates", err)
	}
	var office models.Office
	if req.Msg.Office != "" {
		if office, err = models.ParseOffice(req.Msg.Office); err != nil {
			return nil, invalid(err)
		}
	}
	cands, err := s.console.ListCandidates(ctx, electionID, office, req.Msg.Round)
	if err != nil {
		return nil, toConnectError("ListCandidates", err)
	}
	resp := &api.ListCandidatesResponse{Candidates: make([]api.Candidate, len(cands))}
	now := time.Now()
	for i, c := range cands {
		resp.Candidates[i] = toCandidate(c, now)
	}
	return connect.NewResponse(resp), nil
}

// AddCandidate creates one candidate.
func (s *AdminService) AddCandidate(ctx context.Context, req *connect.Request[api.AddCandidateRequest]) (*connect.Response[api.Candidate], error) {
	slog.Info("AddCandidate request received", "election_id", req.Msg.ElectionID, "name", req.Msg.Name, "office", req.Msg.Office)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("AddCandidate", err)
	}
	office, err := models.ParseOffice(req.Msg.Office)
	if err != nil {
		return nil, invalid(err)
	}
	c, err := s.console.AddCandidate(ctx, electionID, models.Candidate{
		Name:      req.Msg.Name,
		Office:    office,
		Round:     req.Msg.Round,
		PhotoURL:  roster.DriveImageURL(req.Msg.PhotoURL),
		Bio:       req.Msg.Bio,
		Birthdate: roster.NormalizeBirthdate(req.Msg.Birthdate),
	})
	if err != nil {
		return nil, toConnectError("AddCandidate", err)
	}
	return connect.NewResponse(ptr(toCandidate(c, time.Now()))), nil
}

// UpdateCandidate changes a candidate's name, bio or photo URL.
func (s *AdminService) UpdateCandidate(ctx context.Context, req *connect.Request[api.UpdateCandidateRequest]) (*connect.Response[api.Candidate], error) {
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("UpdateCandidate", err)
	}
	c, err := s.console.UpdateCandidateProfile(ctx, electionID, req.Msg.CandidateID, req.Msg.Name, req.Msg.Bio, roster.DriveImageURL(req.Msg.PhotoURL))
	if err != nil {
		return nil, toConnectError("UpdateCandidate", err)
	}
	return connect.NewResponse(ptr(toCandidate(c, time.Now()))), nil
}

// DeleteCandidate removes a candidate and its votes.
func (s *AdminService) DeleteCandidate(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.Empty], error) {
	slog.Info("DeleteCandidate request received", "election_id", req.Msg.ElectionID, "candidate_id", req.Msg.ID)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("DeleteCandidate", err)
	}
	if err := s.console.DeleteCandidate(ctx, electionID, req.Msg.ID); err != nil {
		return nil, toConnectError("DeleteCandidate", err)
	}
	return connect.NewResponse(&api.Empty{}), nil
}

// UploadCandidatePhoto stores a photo and sets the candidate's photo URL.
func (s *AdminService) UploadCandidatePhoto(ctx context.Context, req *connect.Request[api.UploadPhotoRequest]) (*connect.Response[api.Candidate], error) {
	slog.Info("UploadCandidatePhoto request received",
		"election_id", req.Msg.ElectionID,
		"candidate_id", req.Msg.CandidateID,
		"filename", req.Msg.Filename,
		"bytes", len(req.Msg.Data),
	)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("UploadCandidatePhoto", err)
	}
	c, err := s.console.UploadCandidatePhoto(ctx, electionID, req.Msg.CandidateID, req.Msg.Filename, req.Msg.Data)
	if err != nil {
		return nil, toConnectError("UploadCandidatePhoto", err)
	}
	return connect.NewResponse(ptr(toCandidate(c, time.Now()))), nil
}

// ListVoters returns the voter roster with participation.
func (s *AdminService) ListVoters(ctx context.Context, req *connect.Request[api.ElectionRequest]) (*connect.Response[api.ListVotersResponse], error) {
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("ListVoters", err)
	}
	voters, err := s.console.ListVoters(ctx, electionID)
	if err != nil {
		return nil, toConnectError("ListVoters", err)
	}
	resp := &api.ListVotersResponse{Voters: make([]api.Voter, len(voters))}
	for i, v := range voters {
		resp.Voters[i] = toVoter(v)
	}
	return connect.NewResponse(resp), nil
}

// AddVoter creates one voter.
func (s *AdminService) AddVoter(ctx context.Context, req *connect.Request[api.AddVoterRequest]) (*connect.Response[api.Voter], error) {
	slog.Info("AddVoter request received", "election_id", req.Msg.ElectionID, "name", req.Msg.Name, "rehearsal", req.Msg.Rehearsal)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("AddVoter", err)
	}
	v, err := s.console.AddVoter(ctx, electionID, models.Voter{
		Name:      req.Msg.Name,
		Phone:     roster.NormalizePhone(req.Msg.Phone),
		Birthdate: roster.NormalizeBirthdate(req.Msg.Birthdate),
		Rehearsal: req.Msg.Rehearsal,
	})
	if err != nil {
		return nil, toConnectError("AddVoter", err)
	}
	return connect.NewResponse(ptr(toVoter(v))), nil
}

// DeleteVoter removes a voter.
func (s *AdminService) DeleteVoter(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.Empty], error) {
	slog.Info("DeleteVoter request received", "election_id", req.Msg.ElectionID, "voter_id", req.Msg.ID)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("DeleteVoter", err)
	}
	if err := s.console.DeleteVoter(ctx, electionID, req.Msg.ID); err != nil {
		return nil, toConnectError("DeleteVoter", err)
	}
	return connect.NewResponse(&api.Empty{}), nil
}

// ResetElection clears rosters or votes.
func (s *AdminService) ResetElection(ctx context.Context, req *connect.Request[api.ResetRequest]) (*connect.Response[api.ResetResponse], error) {
	slog.Warn("ResetElection request received",
		"election_id", req.Msg.ElectionID,
		"candidates", req.Msg.Candidates,
		"voters", req.Msg.Voters,
		"votes_only", req.Msg.VotesOnly,
	)
	electionID, err := s.resolve(ctx, req.Msg.ElectionID)
	if err != nil {
		return nil, toConnectError("ResetElection", err)
	}
	res, err := s.console.ResetElection(ctx, electionID, admin.ResetOptions{
		Candidates: req.Msg.Candidates,
		Voters:     req.Msg.Voters,
		VotesOnly:  req.Msg.VotesOnly,
	}, nil)
	if err != nil {
		return nil, toConnectError("ResetElection", err)
	}
	return connect.NewResponse(&api.ResetResponse{
		CandidatesDeleted: res.CandidatesDeleted,
		VotersDeleted:     res.VotersDeleted,
		CandidatesReset:   res.CandidatesReset,
		VotersReset:       res.VotersReset,
	}), nil
}

func ptr[T any](v T) *T { return &v }
