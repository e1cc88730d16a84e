package filestorage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const acl = "public-read"

// S3Client stores files in an S3 bucket with a public-read ACL.
type S3Client struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3Client returns an S3 backed FileStorage. Static credentials are used
// when accessKeyID is set, otherwise the default AWS credential chain.
func NewS3Client(region, bucket, accessKeyID, secretAccessKey string) (*S3Client, error) {
	cfg := aws.Config{Region: aws.String(region)}
	if accessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}
	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Client{uploader: s3manager.NewUploader(sess), bucket: bucket}, nil
}

func (c *S3Client) Upload(ctx context.Context, b []byte, name, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	up, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		ACL:         aws.String(acl),
		Key:         aws.String(name),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(b),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send %s to bucket %s: %w", name, c.bucket, err)
	}
	return up.Location, nil
}
