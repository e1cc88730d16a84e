package filestorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type localStorage struct {
	dir       string
	publicURL string
}

// NewLocalStorage stores files under dir. Returned URLs are publicURL joined
// with the file name, so the directory must be served at publicURL.
func NewLocalStorage(dir, publicURL string) FileStorage {
	return &localStorage{dir: dir, publicURL: publicURL}
}

func (l *localStorage) Upload(ctx context.Context, b []byte, name, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(full, b, 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", full, err)
	}
	return joinURL(l.publicURL, name), nil
}
