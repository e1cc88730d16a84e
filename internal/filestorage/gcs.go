package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSClient stores files in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	publicURL string
}

// NewGCSClient returns a GCS backed FileStorage. When publicURL is empty the
// storage.googleapis.com URL of the bucket is used.
func NewGCSClient(ctx context.Context, bucket, publicURL string, opts ...option.ClientOption) (*GCSClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSClient{client: client, bucket: bucket, publicURL: publicURL}, nil
}

func (g *GCSClient) Upload(ctx context.Context, b []byte, name, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	wc := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, bytes.NewReader(b)); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy %s to bucket %s: %w", name, g.bucket, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for %s/%s: %w", g.bucket, name, err)
	}
	return joinURL(g.publicURL, name), nil
}

// Close releases the underlying client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}
