package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const AdminServiceName = "officevote.v1.AdminService"

const (
	AdminServiceLoginProcedure                = "/officevote.v1.AdminService/Login"
	AdminServiceListElectionsProcedure        = "/officevote.v1.AdminService/ListElections"
	AdminServiceCreateElectionProcedure       = "/officevote.v1.AdminService/CreateElection"
	AdminServiceSwitchElectionProcedure       = "/officevote.v1.AdminService/SwitchElection"
	AdminServiceGetSettingsProcedure          = "/officevote.v1.AdminService/GetSettings"
	AdminServiceUpdateSettingsProcedure       = "/officevote.v1.AdminService/UpdateSettings"
	AdminServiceImportCandidatesProcedure     = "/officevote.v1.AdminService/ImportCandidates"
	AdminServiceImportVotersProcedure         = "/officevote.v1.AdminService/ImportVoters"
	AdminServiceListCandidatesProcedure       = "/officevote.v1.AdminService/ListCandidates"
	AdminServiceAddCandidateProcedure         = "/officevote.v1.AdminService/AddCandidate"
	AdminServiceUpdateCandidateProcedure      = "/officevote.v1.AdminService/UpdateCandidate"
	AdminServiceDeleteCandidateProcedure      = "/officevote.v1.AdminService/DeleteCandidate"
	AdminServiceUploadCandidatePhotoProcedure = "/officevote.v1.AdminService/UploadCandidatePhoto"
	AdminServiceListVotersProcedure           = "/officevote.v1.AdminService/ListVoters"
	AdminServiceAddVoterProcedure             = "/officevote.v1.AdminService/AddVoter"
	AdminServiceDeleteVoterProcedure          = "/officevote.v1.AdminService/DeleteVoter"
	AdminServiceResetElectionProcedure        = "/officevote.v1.AdminService/ResetElection"
)

// AdminServiceHandler is implemented by the admin service.
type AdminServiceHandler interface {
	Login(context.Context, *connect.Request[AdminLoginRequest]) (*connect.Response[AdminLoginResponse], error)
	ListElections(context.Context, *connect.Request[Empty]) (*connect.Response[ListElectionsResponse], error)
	CreateElection(context.Context, *connect.Request[ElectionRequest]) (*connect.Response[ListElectionsResponse], error)
	SwitchElection(context.Context, *connect.Request[ElectionRequest]) (*connect.Response[ListElectionsResponse], error)
	GetSettings(context.Context, *connect.Request[ElectionRequest]) (*connect.Response[Settings], error)
	UpdateSettings(context.Context, *connect.Request[Settings]) (*connect.Response[Settings], error)
	ImportCandidates(context.Context, *connect.Request[ImportRequest]) (*connect.Response[ImportResponse], error)
	ImportVoters(context.Context, *connect.Request[ImportRequest]) (*connect.Response[ImportResponse], error)
	ListCandidates(context.Context, *connect.Request[ListCandidatesRequest]) (*connect.Response[ListCandidatesResponse], error)
	AddCandidate(context.Context, *connect.Request[AddCandidateRequest]) (*connect.Response[Candidate], error)
	UpdateCandidate(context.Context, *connect.Request[UpdateCandidateRequest]) (*connect.Response[Candidate], error)
	DeleteCandidate(context.Context, *connect.Request[DeleteRequest]) (*connect.Response[Empty], error)
	UploadCandidatePhoto(context.Context, *connect.Request[UploadPhotoRequest]) (*connect.Response[Candidate], error)
	ListVoters(context.Context, *connect.Request[ElectionRequest]) (*connect.Response[ListVotersResponse], error)
	AddVoter(context.Context, *connect.Request[AddVoterRequest]) (*connect.Response[Voter], error)
	DeleteVoter(context.Context, *connect.Request[DeleteRequest]) (*connect.Response[Empty], error)
	ResetElection(context.Context, *connect.Request[ResetRequest]) (*connect.Response[ResetResponse], error)
}

// NewAdminServiceHandler builds an HTTP handler from the service implementation.
func NewAdminServiceHandler(svc AdminServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSON())
	mux := http.NewServeMux()
	mux.Handle(AdminServiceLoginProcedure, connect.NewUnaryHandler(AdminServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AdminServiceListElectionsProcedure, connect.NewUnaryHandler(AdminServiceListElectionsProcedure, svc.ListElections, opts...))
	mux.Handle(AdminServiceCreateElectionProcedure, connect.NewUnaryHandler(AdminServiceCreateElectionProcedure, svc.CreateElection, opts...))
	mux.Handle(AdminServiceSwitchElectionProcedure, connect.NewUnaryHandler(AdminServiceSwitchElectionProcedure, svc.SwitchElection, opts...))
	mux.Handle(AdminServiceGetSettingsProcedure, connect.NewUnaryHandler(AdminServiceGetSettingsProcedure, svc.GetSettings, opts...))
	mux.Handle(AdminServiceUpdateSettingsProcedure, connect.NewUnaryHandler(AdminServiceUpdateSettingsProcedure, svc.UpdateSettings, opts...))
	mux.Handle(AdminServiceImportCandidatesProcedure, connect.NewUnaryHandler(AdminServiceImportCandidatesProcedure, svc.ImportCandidates, opts...))
	mux.Handle(AdminServiceImportVotersProcedure, connect.NewUnaryHandler(AdminServiceImportVotersProcedure, svc.ImportVoters, opts...))
	mux.Handle(AdminServiceListCandidatesProcedure, connect.NewUnaryHandler(AdminServiceListCandidatesProcedure, svc.ListCandidates, opts...))
	mux.Handle(AdminServiceAddCandidateProcedure, connect.NewUnaryHandler(AdminServiceAddCandidateProcedure, svc.AddCandidate, opts...))
	mux.Handle(AdminServiceUpdateCandidateProcedure, connect.NewUnaryHandler(AdminServiceUpdateCandidateProcedure, svc.UpdateCandidate, opts...))
	mux.Handle(AdminServiceDeleteCandidateProcedure, connect.NewUnaryHandler(AdminServiceDeleteCandidateProcedure, svc.DeleteCandidate, opts...))
	mux.Handle(AdminServiceUploadCandidatePhotoProcedure, connect.NewUnaryHandler(AdminServiceUploadCandidatePhotoProcedure, svc.UploadCandidatePhoto, opts...))
	mux.Handle(AdminServiceListVotersProcedure, connect.NewUnaryHandler(AdminServiceListVotersProcedure, svc.ListVoters, opts...))
	mux.Handle(AdminServiceAddVoterProcedure, connect.NewUnaryHandler(AdminServiceAddVoterProcedure, svc.AddVoter, opts...))
	mux.Handle(AdminServiceDeleteVoterProcedure, connect.NewUnaryHandler(AdminServiceDeleteVoterProcedure, svc.DeleteVoter, opts...))
	mux.Handle(AdminServiceResetElectionProcedure, connect.NewUnaryHandler(AdminServiceResetElectionProcedure, svc.ResetElection, opts...))
	return "/" + AdminServiceName + "/", mux
}

// AdminServiceClient calls the admin service.
type AdminServiceClient struct {
	login                *connect.Client[AdminLoginRequest, AdminLoginResponse]
	listElections        *connect.Client[Empty, ListElectionsResponse]
	createElection       *connect.Client[ElectionRequest, ListElectionsResponse]
	switchElection       *connect.Client[ElectionRequest, ListElectionsResponse]
	getSettings          *connect.Client[ElectionRequest, Settings]
	updateSettings       *connect.Client[Settings, Settings]
	importCandidates     *connect.Client[ImportRequest, ImportResponse]
	importVoters         *connect.Client[ImportRequest, ImportResponse]
	listCandidates       *connect.Client[ListCandidatesRequest, ListCandidatesResponse]
	addCandidate         *connect.Client[AddCandidateRequest, Candidate]
	updateCandidate      *connect.Client[UpdateCandidateRequest, Candidate]
	deleteCandidate      *connect.Client[DeleteRequest, Empty]
	uploadCandidatePhoto *connect.Client[UploadPhotoRequest, Candidate]
	listVoters           *connect.Client[ElectionRequest, ListVotersResponse]
	addVoter             *connect.Client[AddVoterRequest, Voter]
	deleteVoter          *connect.Client[DeleteRequest, Empty]
	resetElection        *connect.Client[ResetRequest, ResetResponse]
}

// NewAdminServiceClient creates a client for the service at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	opts = append(opts, WithJSON())
	return &AdminServiceClient{
		login:                connect.NewClient[AdminLoginRequest, AdminLoginResponse](httpClient, baseURL+AdminServiceLoginProcedure, opts...),
		listElections:        connect.NewClient[Empty, ListElectionsResponse](httpClient, baseURL+AdminServiceListElectionsProcedure, opts...),
		createElection:       connect.NewClient[ElectionRequest, ListElectionsResponse](httpClient, baseURL+AdminServiceCreateElectionProcedure, opts...),
		switchElection:       connect.NewClient[ElectionRequest, ListElectionsResponse](httpClient, baseURL+AdminServiceSwitchElectionProcedure, opts...),
		getSettings:          connect.NewClient[ElectionRequest, Settings](httpClient, baseURL+AdminServiceGetSettingsProcedure, opts...),
		updateSettings:       connect.NewClient[Settings, Settings](httpClient, baseURL+AdminServiceUpdateSettingsProcedure, opts...),
		importCandidates:     connect.NewClient[ImportRequest, ImportResponse](httpClient, baseURL+AdminServiceImportCandidatesProcedure, opts...),
		importVoters:         connect.NewClient[ImportRequest, ImportResponse](httpClient, baseURL+AdminServiceImportVotersProcedure, opts...),
		listCandidates:       connect.NewClient[ListCandidatesRequest, ListCandidatesResponse](httpClient, baseURL+AdminServiceListCandidatesProcedure, opts...),
		addCandidate:         connect.NewClient[AddCandidateRequest, Candidate](httpClient, baseURL+AdminServiceAddCandidateProcedure, opts...),
		updateCandidate:      connect.NewClient[UpdateCandidateRequest, Candidate](httpClient, baseURL+AdminServiceUpdateCandidateProcedure, opts...),
		deleteCandidate:      connect.NewClient[DeleteRequest, Empty](httpClient, baseURL+AdminServiceDeleteCandidateProcedure, opts...),
		uploadCandidatePhoto: connect.NewClient[UploadPhotoRequest, Candidate](httpClient, baseURL+AdminServiceUploadCandidatePhotoProcedure, opts...),
		listVoters:           connect.NewClient[ElectionRequest, ListVotersResponse](httpClient, baseURL+AdminServiceListVotersProcedure, opts...),
		addVoter:             connect.NewClient[AddVoterRequest, Voter](httpClient, baseURL+AdminServiceAddVoterProcedure, opts...),
		deleteVoter:          connect.NewClient[DeleteRequest, Empty](httpClient, baseURL+AdminServiceDeleteVoterProcedure, opts...),
		resetElection:        connect.NewClient[ResetRequest, ResetResponse](httpClient, baseURL+AdminServiceResetElectionProcedure, opts...),
	}
}

func (c *AdminServiceClient) Login(ctx context.Context, req *connect.Request[AdminLoginRequest]) (*connect.Response[AdminLoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ListElections(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListElectionsResponse], error) {
	return c.listElections.CallUnary(ctx, req)
}

func (c *AdminServiceClient) CreateElection(ctx context.Context, req *connect.Request[ElectionRequest]) (*connect.Response[ListElectionsResponse], error) {
	return c.createElection.CallUnary(ctx, req)
}

func (c *AdminServiceClient) SwitchElection(ctx context.Context, req *connect.Request[ElectionRequest]) (*connect.Response[ListElectionsResponse], error) {
	return c.switchElection.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetSettings(ctx context.Context, req *connect.Request[ElectionRequest]) (*connect.Response[Settings], error) {
	return c.getSettings.CallUnary(ctx, req)
}

func (c *AdminServiceClient) UpdateSettings(ctx context.Context, req *connect.Request[Settings]) (*connect.Response[Settings], error) {
	return c.updateSettings.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ImportCandidates(ctx context.Context, req *connect.Request[ImportRequest]) (*connect.Response[ImportResponse], error) {
	return c.importCandidates.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ImportVoters(ctx context.Context, req *connect.Request[ImportRequest]) (*connect.Response[ImportResponse], error) {
	return c.importVoters.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ListCandidates(ctx context.Context, req *connect.Request[ListCandidatesRequest]) (*connect.Response[ListCandidatesResponse], error) {
	return c.listCandidates.CallUnary(ctx, req)
}

func (c *AdminServiceClient) AddCandidate(ctx context.Context, req *connect.Request[AddCandidateRequest]) (*connect.Response[Candidate], error) {
	return c.addCandidate.CallUnary(ctx, req)
}

func (c *AdminServiceClient) UpdateCandidate(ctx context.Context, req *connect.Request[UpdateCandidateRequest]) (*connect.Response[Candidate], error) {
	return c.updateCandidate.CallUnary(ctx, req)
}

func (c *AdminServiceClient) DeleteCandidate(ctx context.Context, req *connect.Request[DeleteRequest]) (*connect.Response[Empty], error) {
	return c.deleteCandidate.CallUnary(ctx, req)
}

func (c *AdminServiceClient) UploadCandidatePhoto(ctx context.Context, req *connect.Request[UploadPhotoRequest]) (*connect.Response[Candidate], error) {
	return c.uploadCandidatePhoto.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ListVoters(ctx context.Context, req *connect.Request[ElectionRequest]) (*connect.Response[ListVotersResponse], error) {
	return c.listVoters.CallUnary(ctx, req)
}

func (c *AdminServiceClient) AddVoter(ctx context.Context, req *connect.Request[AddVoterRequest]) (*connect.Response[Voter], error) {
	return c.addVoter.CallUnary(ctx, req)
}

func (c *AdminServiceClient) DeleteVoter(ctx context.Context, req *connect.Request[DeleteRequest]) (*connect.Response[Empty], error) {
	return c.deleteVoter.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ResetElection(ctx context.Context, req *connect.Request[ResetRequest]) (*connect.Response[ResetResponse], error) {
	return c.resetElection.CallUnary(ctx, req)
}
