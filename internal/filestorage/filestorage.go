// Package filestorage stores candidate photos and returns their public URLs.
package filestorage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

const timeout = 50 * time.Second

// FileStorage uploads a file under name and returns the URL it can be read from.
type FileStorage interface {
	Upload(ctx context.Context, b []byte, name, contentType string) (string, error)
}

// ObjectName builds a storage key like "candidates/<election>/<candidate>.jpg".
func ObjectName(electionID, candidateID, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join("candidates", electionID, fmt.Sprintf("%s.%s", candidateID, ext))
}

func joinURL(base, name string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(name, "/")
}
