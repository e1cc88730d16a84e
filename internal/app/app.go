// Package app wires the stores, services and HTTP routes of the server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/officevote/internal/admin"
	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/ballot"
	"github.com/mmynk/officevote/internal/config"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/metrics"
	"github.com/mmynk/officevote/internal/middleware"
	"github.com/mmynk/officevote/internal/service"
	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/tally"
)

// App holds everything the server needs.
type App struct {
	cfg      config.Config
	store    storage.Store
	sessions *ballot.SessionStore
	metrics  *metrics.Metrics
	jwt      *auth.JWTManager

	voting  *service.VotingService
	results *service.ResultsService
	admin   *service.AdminService

	closers []func() error
}

// New opens the store and photo backend and builds the services.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	gate, err := auth.NewAdminGate(cfg.Auth.AdminPassword, cfg.Auth.AdminPasswordHash)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &App{cfg: cfg, store: store, closers: []func() error{store.Close}}

	photos, closePhotos, err := OpenPhotos(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open photo storage: %w", err)
	}
	a.closers = append(a.closers, closePhotos)

	var sheets service.SheetReader
	if src, err := OpenSheets(ctx, cfg); err != nil {
		slog.Warn("Google Sheets import disabled", "error", err)
	} else if src != nil {
		sheets = src
	}

	dir := election.NewDirectory(store)
	if _, err := dir.Pointer(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to read election directory: %w", err)
	}

	engine := ballot.NewEngine(store, ballot.WithRehearsal(cfg.RehearsalMode))
	if cfg.RehearsalMode {
		slog.Warn("Rehearsal mode enabled, rehearsal voters may vote repeatedly")
	}

	a.sessions = ballot.NewSessionStore(cfg.Auth.VoterTokenTTL)
	a.metrics = metrics.New(a.sessions.Len)
	a.jwt = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.VoterTokenTTL, cfg.Auth.AdminTokenTTL)

	sender, err := OpenCodeSender(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open SMS sender: %w", err)
	}
	verifier := auth.NewPhoneVerifier(sender, cfg.SMS.CodeTTL)

	a.voting = service.NewVotingService(dir, auth.NewRosterAuthenticator(store), verifier, engine, a.sessions, a.jwt, a.metrics)
	a.results = service.NewResultsService(dir, tally.NewReader(store, dir))
	a.admin = service.NewAdminService(admin.NewConsole(store, dir, photos), gate, a.jwt, sheets)
	return a, nil
}

// Store returns the document store.
func (a *App) Store() storage.Store {
	return a.store
}

// Handler returns the HTTP handler serving the Connect services, metrics,
// health checks, photos and the static frontend.
func (a *App) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// metrics see every call, including the ones auth rejects
	interceptors := func(role auth.Role, public ...string) connect.HandlerOption {
		return connect.WithInterceptors(
			a.metrics.Interceptor(),
			middleware.RequireRole(a.jwt, role, public...),
			middleware.LoggingInterceptor(),
		)
	}

	mux.Handle(api.NewVotingServiceHandler(a.voting, interceptors(auth.RoleVoter,
		api.VotingServiceRequestCodeProcedure,
		api.VotingServiceLoginProcedure,
	)))
	mux.Handle(api.NewAdminServiceHandler(a.admin, interceptors(auth.RoleAdmin, api.AdminServiceLoginProcedure)))
	mux.Handle(api.NewResultsServiceHandler(a.results, connect.WithInterceptors(
		a.metrics.Interceptor(),
		middleware.LoggingInterceptor(),
	)))

	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", a.healthz)

	if a.cfg.Photos.Backend == "local" && a.cfg.Photos.PublicURL == config.DefaultPhotoURL {
		prefix := config.DefaultPhotoURL + "/"
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(a.cfg.Photos.Dir))))
	}

	static, err := staticHandler(a.cfg.Server.StaticPath)
	if err != nil {
		return nil, err
	}
	mux.Handle("/", static)

	return loggingMiddleware(corsMiddleware(mux)), nil
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := a.store.Get(r.Context(), election.SystemPath); err != nil && !storage.IsNotFound(err) {
		slog.Error("Health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Close releases the store and photo backend.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// staticHandler serves the frontend. Unknown paths get index.html.
func staticHandler(staticPath string) (http.Handler, error) {
	staticDir, err := filepath.Abs(staticPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/officevote.v1.") {
			http.NotFound(w, r)
			return
		}
		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}
		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	}), nil
}
