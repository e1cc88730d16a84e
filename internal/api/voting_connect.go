package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const VotingServiceName = "officevote.v1.VotingService"

const (
	VotingServiceRequestCodeProcedure = "/officevote.v1.VotingService/RequestCode"
	VotingServiceLoginProcedure       = "/officevote.v1.VotingService/Login"
	VotingServiceGetBallotProcedure   = "/officevote.v1.VotingService/GetBallot"
	VotingServiceSelectProcedure      = "/officevote.v1.VotingService/Select"
	VotingServiceAdvanceProcedure     = "/officevote.v1.VotingService/Advance"
	VotingServiceBackProcedure        = "/officevote.v1.VotingService/Back"
	VotingServiceSubmitProcedure      = "/officevote.v1.VotingService/Submit"
)

// VotingServiceHandler is implemented by the voting service.
type VotingServiceHandler interface {
	RequestCode(context.Context, *connect.Request[RequestCodeRequest]) (*connect.Response[RequestCodeResponse], error)
	Login(context.Context, *connect.Request[VoterLoginRequest]) (*connect.Response[VoterLoginResponse], error)
	GetBallot(context.Context, *connect.Request[Empty]) (*connect.Response[BallotView], error)
	Select(context.Context, *connect.Request[SelectRequest]) (*connect.Response[BallotView], error)
	Advance(context.Context, *connect.Request[Empty]) (*connect.Response[BallotView], error)
	Back(context.Context, *connect.Request[Empty]) (*connect.Response[BallotView], error)
	Submit(context.Context, *connect.Request[Empty]) (*connect.Response[SubmitResponse], error)
}

// NewVotingServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewVotingServiceHandler(svc VotingServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSON())
	mux := http.NewServeMux()
	mux.Handle(VotingServiceRequestCodeProcedure, connect.NewUnaryHandler(VotingServiceRequestCodeProcedure, svc.RequestCode, opts...))
	mux.Handle(VotingServiceLoginProcedure, connect.NewUnaryHandler(VotingServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(VotingServiceGetBallotProcedure, connect.NewUnaryHandler(VotingServiceGetBallotProcedure, svc.GetBallot, opts...))
	mux.Handle(VotingServiceSelectProcedure, connect.NewUnaryHandler(VotingServiceSelectProcedure, svc.Select, opts...))
	mux.Handle(VotingServiceAdvanceProcedure, connect.NewUnaryHandler(VotingServiceAdvanceProcedure, svc.Advance, opts...))
	mux.Handle(VotingServiceBackProcedure, connect.NewUnaryHandler(VotingServiceBackProcedure, svc.Back, opts...))
	mux.Handle(VotingServiceSubmitProcedure, connect.NewUnaryHandler(VotingServiceSubmitProcedure, svc.Submit, opts...))
	return "/" + VotingServiceName + "/", mux
}

// VotingServiceClient calls the voting service.
type VotingServiceClient struct {
	requestCode *connect.Client[RequestCodeRequest, RequestCodeResponse]
	login       *connect.Client[VoterLoginRequest, VoterLoginResponse]
	getBallot   *connect.Client[Empty, BallotView]
	sel         *connect.Client[SelectRequest, BallotView]
	advance     *connect.Client[Empty, BallotView]
	back        *connect.Client[Empty, BallotView]
	submit      *connect.Client[Empty, SubmitResponse]
}

// NewVotingServiceClient creates a client for the service at baseURL.
func NewVotingServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *VotingServiceClient {
	opts = append(opts, WithJSON())
	return &VotingServiceClient{
		requestCode: connect.NewClient[RequestCodeRequest, RequestCodeResponse](httpClient, baseURL+VotingServiceRequestCodeProcedure, opts...),
		login:       connect.NewClient[VoterLoginRequest, VoterLoginResponse](httpClient, baseURL+VotingServiceLoginProcedure, opts...),
		getBallot:   connect.NewClient[Empty, BallotView](httpClient, baseURL+VotingServiceGetBallotProcedure, opts...),
		sel:         connect.NewClient[SelectRequest, BallotView](httpClient, baseURL+VotingServiceSelectProcedure, opts...),
		advance:     connect.NewClient[Empty, BallotView](httpClient, baseURL+VotingServiceAdvanceProcedure, opts...),
		back:        connect.NewClient[Empty, BallotView](httpClient, baseURL+VotingServiceBackProcedure, opts...),
		submit:      connect.NewClient[Empty, SubmitResponse](httpClient, baseURL+VotingServiceSubmitProcedure, opts...),
	}
}

func (c *VotingServiceClient) RequestCode(ctx context.Context, req *connect.Request[RequestCodeRequest]) (*connect.Response[RequestCodeResponse], error) {
	return c.requestCode.CallUnary(ctx, req)
}

func (c *VotingServiceClient) Login(ctx context.Context, req *connect.Request[VoterLoginRequest]) (*connect.Response[VoterLoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *VotingServiceClient) GetBallot(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BallotView], error) {
	return c.getBallot.CallUnary(ctx, req)
}

func (c *VotingServiceClient) Select(ctx context.Context, req *connect.Request[SelectRequest]) (*connect.Response[BallotView], error) {
	return c.sel.CallUnary(ctx, req)
}

func (c *VotingServiceClient) Advance(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BallotView], error) {
	return c.advance.CallUnary(ctx, req)
}

func (c *VotingServiceClient) Back(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BallotView], error) {
	return c.back.CallUnary(ctx, req)
}

func (c *VotingServiceClient) Submit(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[SubmitResponse], error) {
	return c.submit.CallUnary(ctx, req)
}
