package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>투표</h1>"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return config.Config{
		Server: config.Server{StaticPath: static},
		Store:  config.Store{Backend: "memory", TxnMaxAttempts: 5},
		Auth: config.Auth{
			JWTSecret:     "test-secret",
			VoterTokenTTL: 30 * time.Minute,
			AdminTokenTTL: time.Hour,
			AdminPassword: "hunter2",
		},
		Photos: config.Photos{Backend: "local", Dir: t.TempDir(), PublicURL: config.DefaultPhotoURL},
		SMS:    config.SMS{Provider: "log", CodeTTL: 5 * time.Minute},
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h, err := a.Handler()
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	server := httptest.NewServer(h)
	return server, func() {
		server.Close()
		a.Close()
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRoutes(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if code, body := get(t, server.URL+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("healthz: got %d %q", code, body)
	}
	if code, body := get(t, server.URL+"/some/page"); code != http.StatusOK || !strings.Contains(body, "투표") {
		t.Errorf("static fallback: got %d %q", code, body)
	}

	client := api.NewAdminServiceClient(http.DefaultClient, server.URL)
	if _, err := client.Login(context.Background(), connect.NewRequest(&api.AdminLoginRequest{Password: "wrong"})); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}
	if _, err := client.Login(context.Background(), connect.NewRequest(&api.AdminLoginRequest{Password: "hunter2"})); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// both login steps are reachable without a token
	voting := api.NewVotingServiceClient(http.DefaultClient, server.URL)
	_, err := voting.RequestCode(context.Background(), connect.NewRequest(&api.RequestCodeRequest{Name: "홍길동", Phone: "01012345678", Birthdate: "19650302"}))
	if code := connect.CodeOf(err); code == connect.CodeUnauthenticated || code == connect.CodePermissionDenied {
		t.Errorf("Expected RequestCode to be public, got %v", err)
	}
	_, err = voting.Login(context.Background(), connect.NewRequest(&api.VoterLoginRequest{VerificationID: "nope", Code: "000000"}))
	var ce *connect.Error
	if !errors.As(err, &ce) || ce.Message() != auth.ErrCodeExpired.Error() {
		t.Errorf("Expected an expired code from Login, got %v", err)
	}

	code, body := get(t, server.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics: got %d", code)
	}
	for _, want := range []string{
		`officevote_rpc_requests_total{code="ok",procedure="/officevote.v1.AdminService/Login"} 1`,
		`officevote_rpc_requests_total{code="unauthenticated",procedure="/officevote.v1.AdminService/Login"} 1`,
		"officevote_voting_sessions_open 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodOptions, server.URL+api.VotingServiceLoginProcedure, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Errorf("Unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.AdminPassword = ""
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected an error without an admin password")
	}

	cfg = testConfig(t)
	cfg.SMS.Provider = "fax"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected an error for an unknown SMS provider")
	}

	cfg = testConfig(t)
	cfg.Store.Backend = "mongo"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected an error for an unknown store")
	}
}
