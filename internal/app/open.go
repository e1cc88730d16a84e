package app

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/config"
	"github.com/mmynk/officevote/internal/filestorage"
	"github.com/mmynk/officevote/internal/roster"
	"github.com/mmynk/officevote/internal/storage"
	"github.com/mmynk/officevote/internal/storage/datastore"
	"github.com/mmynk/officevote/internal/storage/memory"
	"github.com/mmynk/officevote/internal/storage/sqlite"
)

func googleOptions(cfg config.Config) []option.ClientOption {
	if cfg.Google.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.Google.CredentialsFile)}
}

// OpenStore opens the document store named by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	attempts := cfg.Store.TxnMaxAttempts
	switch cfg.Store.Backend {
	case "memory":
		slog.Warn("Using in-memory store, data is lost on restart")
		return memory.New(memory.WithMaxAttempts(attempts)), nil
	case "sqlite":
		store, err := sqlite.New(cfg.Store.DBPath, sqlite.WithMaxAttempts(attempts))
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.Store.DBPath)
		return store, nil
	case "datastore":
		store, err := datastore.New(ctx, cfg.Store.DatastoreProject, googleOptions(cfg),
			datastore.WithNamespace(cfg.Store.DatastoreNamespace),
			datastore.WithMaxAttempts(attempts),
		)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized",
			"backend", "datastore",
			"project", cfg.Store.DatastoreProject,
			"namespace", cfg.Store.DatastoreNamespace,
		)
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// OpenPhotos opens the photo backend. It returns nil storage when photos are
// disabled. The returned close function is never nil.
func OpenPhotos(ctx context.Context, cfg config.Config) (filestorage.FileStorage, func() error, error) {
	noop := func() error { return nil }
	p := cfg.Photos
	switch p.Backend {
	case "", "none":
		slog.Info("Photo uploads disabled")
		return nil, noop, nil
	case "local":
		slog.Info("Photo storage initialized", "backend", "local", "dir", p.Dir)
		return filestorage.NewLocalStorage(p.Dir, p.PublicURL), noop, nil
	case "gcs":
		publicURL := p.PublicURL
		if publicURL == config.DefaultPhotoURL {
			publicURL = ""
		}
		client, err := filestorage.NewGCSClient(ctx, p.Bucket, publicURL, googleOptions(cfg)...)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Photo storage initialized", "backend", "gcs", "bucket", p.Bucket)
		return client, client.Close, nil
	case "s3":
		client, err := filestorage.NewS3Client(cfg.AWS.Region, p.Bucket, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Photo storage initialized", "backend", "s3", "bucket", p.Bucket, "region", cfg.AWS.Region)
		return client, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown photo backend %q", p.Backend)
}

// OpenCodeSender returns the SMS provider for voter login codes.
func OpenCodeSender(cfg config.Config) (auth.CodeSender, error) {
	switch cfg.SMS.Provider {
	case "log":
		slog.Warn("SMS disabled, voter login codes are written to the log")
		return auth.LogSender{}, nil
	case "sns":
		sender, err := auth.NewSNSSender(cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.SMS.SenderID)
		if err != nil {
			return nil, err
		}
		slog.Info("SMS sender initialized", "provider", "sns", "region", cfg.AWS.Region)
		return sender, nil
	}
	return nil, fmt.Errorf("unknown SMS provider %q", cfg.SMS.Provider)
}

// OpenSheets returns a Sheets reader, or nil when no credentials are configured.
func OpenSheets(ctx context.Context, cfg config.Config) (*roster.SheetsSource, error) {
	if cfg.Google.CredentialsFile == "" {
		return nil, nil
	}
	return roster.NewSheetsSource(ctx, cfg.Google.CredentialsFile)
}
