package admin

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/filestorage"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// UploadCandidatePhoto stores an image and points the candidate at it.
// The candidate must exist before anything is uploaded.
func (c *Console) UploadCandidatePhoto(ctx context.Context, electionID, candidateID, filename string, data []byte) (models.Candidate, error) {
	if c.photos == nil {
		return models.Candidate{}, ErrPhotosDisabled
	}
	if len(data) > MaxPhotoSize {
		return models.Candidate{}, fmt.Errorf("%w: %d bytes", ErrPhotoTooLarge, len(data))
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExt[contentType]
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: %s is %s", ErrNotImage, filename, contentType)
	}
	if e := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); e != "" {
		if t := mime.TypeByExtension("." + e); t == contentType {
			ext = e
		}
	}

	path := election.CandidatePath(electionID, candidateID)
	if err := storage.ValidatePath(path); err != nil {
		return models.Candidate{}, err
	}
	if _, err := c.store.Get(ctx, path); err != nil {
		return models.Candidate{}, fmt.Errorf("failed to read candidate %s: %w", candidateID, err)
	}

	url, err := c.photos.Upload(ctx, data, filestorage.ObjectName(electionID, candidateID, ext), contentType)
	if err != nil {
		return models.Candidate{}, err
	}
	cand, err := c.candidateUpdate(ctx, electionID, candidateID, func(cand *models.Candidate) {
		cand.PhotoURL = url
	})
	if err != nil {
		return models.Candidate{}, err
	}
	slog.Info("Candidate photo uploaded", "election_id", electionID, "candidate_id", candidateID, "url", url, "bytes", len(data))
	return cand, nil
}
