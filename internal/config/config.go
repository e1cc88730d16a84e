// Package config loads server and CLI settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server  Server
	Store   Store
	Auth    Auth
	Photos  Photos
	SMS     SMS
	AWS     AWS
	Google  Google
	Logging Logging

	// RehearsalMode lets voters flagged as rehearsal vote repeatedly.
	RehearsalMode bool `env:"REHEARSAL_MODE" envDefault:"false"`
}

type Server struct {
	Addr       string `env:"HTTP_ADDR" envDefault:":8080"`
	StaticPath string `env:"STATIC_PATH" envDefault:"./static"`
}

type Store struct {
	// Backend is memory, sqlite or datastore.
	Backend            string `env:"STORE" envDefault:"sqlite"`
	DBPath             string `env:"DB_PATH" envDefault:"./data/officevote.db"`
	DatastoreProject   string `env:"DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"DATASTORE_NAMESPACE"`
	TxnMaxAttempts     int    `env:"TXN_MAX_ATTEMPTS" envDefault:"5"`
}

type Auth struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	VoterTokenTTL     time.Duration `env:"VOTER_TOKEN_TTL" envDefault:"30m"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
}

type Photos struct {
	// Backend is local, gcs, s3 or none.
	Backend   string `env:"PHOTO_BACKEND" envDefault:"local"`
	Dir       string `env:"PHOTO_DIR" envDefault:"./data/photos"`
	Bucket    string `env:"PHOTO_BUCKET"`
	PublicURL string `env:"PHOTO_PUBLIC_URL" envDefault:"/photos"`
}

// SMS configures how voter login codes are delivered.
type SMS struct {
	// Provider is sns, or log to print codes instead of sending them.
	Provider string        `env:"SMS_PROVIDER" envDefault:"log"`
	SenderID string        `env:"SMS_SENDER_ID"`
	CodeTTL  time.Duration `env:"LOGIN_CODE_TTL" envDefault:"5m"`
}

// AWS is shared by the s3 photo backend and the sns SMS provider.
type AWS struct {
	Region          string `env:"AWS_REGION" envDefault:"ap-northeast-2"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type Google struct {
	// CredentialsFile is a service account key used for Sheets and GCS.
	// Sheets import is disabled when it is empty.
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

type Logging struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// DefaultPhotoURL is where the server mounts the local photo directory.
const DefaultPhotoURL = "/photos"

var (
	ErrNoJWTSecret = errors.New("JWT_SECRET is required")
	ErrNoProject   = errors.New("DATASTORE_PROJECT is required for the datastore store")
	ErrNoBucket    = errors.New("PHOTO_BUCKET is required for the gcs and s3 photo backends")
)

// Load reads an optional .env file and then the environment. Variables that
// are already set win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ValidateServer checks the settings the HTTP server needs.
func (c Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	switch c.SMS.Provider {
	case "log", "sns":
	default:
		return fmt.Errorf("unknown SMS_PROVIDER %q", c.SMS.Provider)
	}
	return c.ValidateStore()
}

// ValidateStore checks the store and photo backend settings.
func (c Config) ValidateStore() error {
	switch c.Store.Backend {
	case "memory", "sqlite":
	case "datastore":
		if c.Store.DatastoreProject == "" {
			return ErrNoProject
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store.Backend)
	}
	switch c.Photos.Backend {
	case "local", "none", "":
	case "gcs", "s3":
		if c.Photos.Bucket == "" {
			return ErrNoBucket
		}
	default:
		return fmt.Errorf("unknown PHOTO_BACKEND %q", c.Photos.Backend)
	}
	return nil
}
