package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/auth"
)

// stubRequest is enough of a connect.AnyRequest for interceptors.
type stubRequest struct {
	connect.AnyRequest
	procedure string
	header    http.Header
	msg       any
}

func (r *stubRequest) Spec() connect.Spec { return connect.Spec{Procedure: r.procedure} }
func (r *stubRequest) Header() http.Header { return r.header }
func (r *stubRequest) Any() any { return r.msg }

func TestRequireRole(t *testing.T) {
	jwtm := auth.NewJWTManager("secret", time.Hour, time.Hour)
	voterToken, _ := jwtm.GenerateVoter("e1", "v1", "s1")
	adminToken, _ := jwtm.GenerateAdmin()

	var seen *auth.Claims
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetClaims(ctx)
		return nil, nil
	}
	handler := RequireRole(jwtm, auth.RoleVoter, "/svc/Login")(next)

	tests := []struct {
		name      string
		procedure string
		header    string
		wantCode  connect.Code
		wantVoter string
	}{
		{"public procedure", "/svc/Login", "", 0, ""},
		{"voter token", "/svc/Submit", "Bearer " + voterToken, 0, "v1"},
		{"missing token", "/svc/Submit", "", connect.CodeUnauthenticated, ""},
		{"malformed header", "/svc/Submit", voterToken, connect.CodeUnauthenticated, ""},
		{"garbage token", "/svc/Submit", "Bearer abc", connect.CodeUnauthenticated, ""},
		{"admin token", "/svc/Submit", "Bearer " + adminToken, connect.CodePermissionDenied, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := &stubRequest{procedure: tt.procedure, header: http.Header{}}
			if tt.header != "" {
				req.header.Set("Authorization", tt.header)
			}
			_, err := handler(context.Background(), req)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("Expected success, got %v", err)
				}
				if tt.wantVoter != "" && (seen == nil || seen.VoterID != tt.wantVoter) {
					t.Errorf("Expected claims for %s, got %+v", tt.wantVoter, seen)
				}
				return
			}
			var connectErr *connect.Error
			if !errors.As(err, &connectErr) || connectErr.Code() != tt.wantCode {
				t.Errorf("Expected code %v, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	tests := []struct {
		name   string
		claims *auth.Claims
		msg    any
		err    error
		want   map[string]any
		absent []string
	}{
		{
			name:   "admin call logs role and requested election",
			claims: &auth.Claims{Role: auth.RoleAdmin},
			msg:    &api.ElectionRequest{ElectionID: "2026-spring"},
			want:   map[string]any{"msg": "RPC ok", "role": "admin", "election_id": "2026-spring"},
			absent: []string{"voter_id"},
		},
		{
			name:   "voter call logs the token's election",
			claims: &auth.Claims{Role: auth.RoleVoter, ElectionID: "e1", VoterID: "v1", SessionID: "s1"},
			msg:    &api.Empty{},
			want:   map[string]any{"role": "voter", "election_id": "e1", "voter_id": "v1", "session_id": "s1"},
		},
		{
			name:   "anonymous call with an error code",
			msg:    &api.GetOverviewRequest{},
			err:    connect.NewError(connect.CodeNotFound, errors.New("no such election")),
			want:   map[string]any{"msg": "RPC error", "role": "anonymous", "level": "WARN", "code": "not_found"},
			absent: []string{"election_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				return nil, tt.err
			}
			ctx := context.Background()
			if tt.claims != nil {
				ctx = WithClaims(ctx, tt.claims)
			}
			req := &stubRequest{procedure: "/svc/Call", header: http.Header{}, msg: tt.msg}
			LoggingInterceptor()(next)(ctx, req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse log line %q: %v", buf.String(), err)
			}
			if entry["procedure"] != "/svc/Call" {
				t.Errorf("Expected procedure in log, got %v", entry)
			}
			for k, v := range tt.want {
				if entry[k] != v {
					t.Errorf("Expected %s=%v, got %v", k, v, entry[k])
				}
			}
			for _, k := range tt.absent {
				if _, ok := entry[k]; ok {
					t.Errorf("Expected no %s, got %v", k, entry[k])
				}
			}
		})
	}
}
