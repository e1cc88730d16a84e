package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/ballot"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/hangul"
	"github.com/mmynk/officevote/internal/middleware"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
)

// BallotObserver is told about every submission. *metrics.Metrics satisfies it.
type BallotObserver interface {
	ObserveBallot(*ballot.Receipt)
	ObserveRejection(error)
}

type noopObserver struct{}

func (noopObserver) ObserveBallot(*ballot.Receipt) {}
func (noopObserver) ObserveRejection(error) {}

// VotingService implements the Connect VotingService.
type VotingService struct {
	dir      *election.Directory
	authn    auth.Authenticator
	verifier *auth.PhoneVerifier
	engine   *ballot.Engine
	sessions *ballot.SessionStore
	jwt      *auth.JWTManager
	observer BallotObserver
	now      func() time.Time
}

// NewVotingService creates a VotingService. observer may be nil.
func NewVotingService(dir *election.Directory, authn auth.Authenticator, verifier *auth.PhoneVerifier, engine *ballot.Engine, sessions *ballot.SessionStore, jwtManager *auth.JWTManager, observer BallotObserver) *VotingService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &VotingService{
		dir:      dir,
		authn:    authn,
		verifier: verifier,
		engine:   engine,
		sessions: sessions,
		jwt:      jwtManager,
		observer: observer,
		now:      time.Now,
	}
}

// checkWindow rejects calls outside the election's voting window.
func (s *VotingService) checkWindow(ctx context.Context, electionID string) (models.ElectionSettings, error) {
	settings, err := s.dir.Settings(ctx, electionID)
	if err != nil {
		return settings, err
	}
	switch settings.WindowStatus(s.now()) {
	case models.WindowNotStarted:
		return settings, ErrVotingNotStarted
	case models.WindowClosed:
		return settings, ErrVotingClosed
	}
	return settings, nil
}

// RequestCode matches the voter against the active election's roster and
// sends a login code to their phone. Voters with nothing left to vote for are
// turned away before any code is sent.
func (s *VotingService) RequestCode(ctx context.Context, req *connect.Request[api.RequestCodeRequest]) (*connect.Response[api.RequestCodeResponse], error) {
	slog.Info("Login code request received", "name", req.Msg.Name)

	electionID, err := s.dir.Active(ctx)
	if err != nil {
		return nil, toConnectError("RequestCode", err)
	}
	settings, err := s.checkWindow(ctx, electionID)
	if err != nil {
		return nil, toConnectError("RequestCode", err)
	}
	voter, err := s.authn.Authenticate(ctx, electionID, req.Msg.Name, req.Msg.Phone, req.Msg.Birthdate)
	if err != nil {
		return nil, toConnectError("RequestCode", err)
	}
	if _, err := s.newSession(ctx, electionID, *voter, settings); err != nil {
		return nil, toConnectError("RequestCode", err)
	}

	challenge, err := s.verifier.Issue(ctx, electionID, *voter)
	if err != nil {
		return nil, toConnectError("RequestCode", err)
	}
	slog.Info("Login code sent",
		"election_id", electionID,
		"voter_id", voter.ID,
		"verification_id", challenge.ID,
	)
	return connect.NewResponse(&api.RequestCodeResponse{
		VerificationID: challenge.ID,
		ExpiresAt:      challenge.ExpiresAt,
	}), nil
}

// Login confirms the code sent by RequestCode and opens a voting session for
// the election the code was issued in.
func (s *VotingService) Login(ctx context.Context, req *connect.Request[api.VoterLoginRequest]) (*connect.Response[api.VoterLoginResponse], error) {
	if req.Msg.VerificationID == "" || req.Msg.Code == "" {
		return nil, invalid(errors.New("verification id and code are required"))
	}
	electionID, voter, err := s.verifier.Verify(req.Msg.VerificationID, req.Msg.Code)
	if err != nil {
		return nil, toConnectError("Login", err)
	}
	settings, err := s.checkWindow(ctx, electionID)
	if err != nil {
		return nil, toConnectError("Login", err)
	}
	session, err := s.newSession(ctx, electionID, voter, settings)
	if err != nil {
		return nil, toConnectError("Login", err)
	}
	token, err := s.jwt.GenerateVoter(electionID, voter.ID, session.ID)
	if err != nil {
		return nil, toConnectError("Login", err)
	}
	s.sessions.Put(session)

	view := session.View()
	pending := make([]string, len(view.Offices))
	for i, o := range view.Offices {
		pending[i] = string(o)
	}
	slog.Info("Voter logged in",
		"election_id", electionID,
		"voter_id", voter.ID,
		"session_id", session.ID,
		"pending_offices", pending,
		"rehearsal", session.Rehearsal,
	)

	return connect.NewResponse(&api.VoterLoginResponse{
		Token:          token,
		ExpiresAt:      s.now().Add(s.jwt.VoterTTL()),
		ElectionID:     electionID,
		VoterName:      voter.Name,
		PendingOffices: pending,
		Rehearsal:      session.Rehearsal,
	}), nil
}

func (s *VotingService) newSession(ctx context.Context, electionID string, voter models.Voter, settings models.ElectionSettings) (*ballot.Session, error) {
	candidates, err := s.dir.Candidates(ctx, electionID, "")
	if err != nil {
		return nil, err
	}
	return ballot.NewSession(electionID, voter, settings, candidates, s.engine.IsRehearsal(voter))
}

// session returns the caller's voting session.
func (s *VotingService) session(ctx context.Context) (*ballot.Session, error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil || claims.Role != auth.RoleVoter {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	session, ok := s.sessions.Get(claims.SessionID)
	if !ok || session.VoterID != claims.VoterID || session.ElectionID != claims.ElectionID {
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrSessionExpired)
	}
	return session, nil
}

// GetBallot returns the current state of the caller's session.
func (s *VotingService) GetBallot(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.BallotView], error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(s.toBallotView(session, session.View())), nil
}

// Select toggles a candidate on the current office page.
func (s *VotingService) Select(ctx context.Context, req *connect.Request[api.SelectRequest]) (*connect.Response[api.BallotView], error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	view, err := session.Select(req.Msg.CandidateID, req.Msg.Selected)
	if err != nil {
		return nil, toConnectError("Select", err)
	}
	return connect.NewResponse(s.toBallotView(session, view)), nil
}

// Advance moves to the next office or to review.
func (s *VotingService) Advance(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.BallotView], error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	view, err := session.Advance()
	if err != nil {
		return nil, toConnectError("Advance", err)
	}
	return connect.NewResponse(s.toBallotView(session, view)), nil
}

// Back returns to the previous office.
func (s *VotingService) Back(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.BallotView], error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	view, err := session.Back()
	if err != nil {
		return nil, toConnectError("Back", err)
	}
	return connect.NewResponse(s.toBallotView(session, view)), nil
}

// Submit casts the reviewed ballot. The session is discarded once it is
// complete, so the same token cannot submit twice.
func (s *VotingService) Submit(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.SubmitResponse], error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Submit request received",
		"election_id", session.ElectionID,
		"voter_id", session.VoterID,
		"session_id", session.ID,
	)
	if _, err := s.checkWindow(ctx, session.ElectionID); err != nil {
		return nil, toConnectError("Submit", err)
	}

	receipt, err := session.Submit(ctx, s.engine)
	if st := session.View().State; st == ballot.Completed || st == ballot.Expired {
		s.sessions.Delete(session.ID)
	}
	if err != nil {
		if !errors.Is(err, ballot.ErrNotReady) && !errors.Is(err, ballot.ErrSubmitInProgress) {
			s.observer.ObserveRejection(err)
		}
		return nil, toConnectError("Submit", err)
	}
	s.observer.ObserveBallot(receipt)

	resp := &api.SubmitResponse{
		Rounds:    make(map[string]int, len(receipt.Rounds)),
		Votes:     receipt.Votes,
		Rehearsal: receipt.Rehearsal,
	}
	for _, o := range receipt.Offices {
		resp.SubmittedOffices = append(resp.SubmittedOffices, string(o))
		resp.Rounds[string(o)] = receipt.Rounds[o]
	}
	slog.Info("Ballot submitted",
		"election_id", receipt.ElectionID,
		"voter_id", receipt.VoterID,
		"offices", resp.SubmittedOffices,
		"votes", receipt.Votes,
		"attempts", receipt.Attempts,
		"rehearsal", receipt.Rehearsal,
	)
	return connect.NewResponse(resp), nil
}

func (s *VotingService) toBallotView(session *ballot.Session, v ballot.View) *api.BallotView {
	out := &api.BallotView{
		State:     v.State.String(),
		Step:      v.Step,
		Steps:     v.Steps,
		Selected:  make(map[string][]string, len(v.Selected)),
		Rehearsal: session.Rehearsal,
	}
	for _, o := range v.Offices {
		out.Offices = append(out.Offices, string(o))
	}
	for o, ids := range v.Selected {
		out.Selected[string(o)] = ids
	}
	if v.Current != nil {
		now := s.now()
		cur := &api.OfficeBallot{
			Office:     string(v.Current.Office),
			Label:      v.Current.Office.Label(),
			Round:      v.Current.Round,
			MaxVotes:   v.Current.MaxVotes,
			Candidates: make([]api.BallotCandidate, len(v.Current.Candidates)),
		}
		for i, c := range v.Current.Candidates {
			age, _ := roster.AgeFromBirthdate(c.Birthdate, now)
			cur.Candidates[i] = api.BallotCandidate{
				ID:       c.ID,
				Name:     c.Name,
				PhotoURL: c.PhotoURL,
				Bio:      c.Bio,
				Age:      age,
				Initial:  hangul.Initial(c.Name),
			}
		}
		out.Current = cur
	}
	return out
}
