package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const ResultsServiceName = "officevote.v1.ResultsService"

const (
	ResultsServiceGetResultsProcedure  = "/officevote.v1.ResultsService/GetResults"
	ResultsServiceGetOverviewProcedure = "/officevote.v1.ResultsService/GetOverview"
)

// ResultsServiceHandler is implemented by the results service.
type ResultsServiceHandler interface {
	GetResults(context.Context, *connect.Request[GetResultsRequest]) (*connect.Response[Standings], error)
	GetOverview(context.Context, *connect.Request[GetOverviewRequest]) (*connect.Response[Overview], error)
}

// NewResultsServiceHandler builds an HTTP handler from the service implementation.
func NewResultsServiceHandler(svc ResultsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSON())
	mux := http.NewServeMux()
	mux.Handle(ResultsServiceGetResultsProcedure, connect.NewUnaryHandler(ResultsServiceGetResultsProcedure, svc.GetResults, opts...))
	mux.Handle(ResultsServiceGetOverviewProcedure, connect.NewUnaryHandler(ResultsServiceGetOverviewProcedure, svc.GetOverview, opts...))
	return "/" + ResultsServiceName + "/", mux
}

// ResultsServiceClient calls the results service.
type ResultsServiceClient struct {
	getResults  *connect.Client[GetResultsRequest, Standings]
	getOverview *connect.Client[GetOverviewRequest, Overview]
}

// NewResultsServiceClient creates a client for the service at baseURL.
func NewResultsServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ResultsServiceClient {
	opts = append(opts, WithJSON())
	return &ResultsServiceClient{
		getResults:  connect.NewClient[GetResultsRequest, Standings](httpClient, baseURL+ResultsServiceGetResultsProcedure, opts...),
		getOverview: connect.NewClient[GetOverviewRequest, Overview](httpClient, baseURL+ResultsServiceGetOverviewProcedure, opts...),
	}
}

func (c *ResultsServiceClient) GetResults(ctx context.Context, req *connect.Request[GetResultsRequest]) (*connect.Response[Standings], error) {
	return c.getResults.CallUnary(ctx, req)
}

func (c *ResultsServiceClient) GetOverview(ctx context.Context, req *connect.Request[GetOverviewRequest]) (*connect.Response[Overview], error) {
	return c.getOverview.CallUnary(ctx, req)
}
