package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// electionScoped is implemented by requests that name an election.
type electionScoped interface {
	GetElectionID() string
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with the caller's role, election, duration and any error code.
// Install it inside RequireRole so the token claims are in the context.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			attrs := callAttrs(ctx, req)

			resp, err := next(ctx, req)

			attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())
			if err == nil {
				slog.Info("RPC ok", attrs...)
				return resp, nil
			}
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			} else {
				slog.Error("RPC error", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}

func callAttrs(ctx context.Context, req connect.AnyRequest) []any {
	attrs := []any{"procedure", req.Spec().Procedure}

	var electionID string
	if c := GetClaims(ctx); c != nil {
		attrs = append(attrs, "role", c.Role)
		if c.VoterID != "" {
			attrs = append(attrs, "voter_id", c.VoterID, "session_id", c.SessionID)
		}
		electionID = c.ElectionID
	} else {
		attrs = append(attrs, "role", "anonymous")
	}
	if electionID == "" {
		if m, ok := req.Any().(electionScoped); ok {
			electionID = m.GetElectionID()
		}
	}
	if electionID != "" {
		attrs = append(attrs, "election_id", electionID)
	}
	return attrs
}
