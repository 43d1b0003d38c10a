// Package publish uploads generated reports to S3.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidURL is returned for destinations that are not s3://bucket[/prefix].
var ErrInvalidURL = errors.New("invalid S3 URL")

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Destination is a parsed s3:// URL.
type Destination struct {
	Bucket string
	Prefix string
}

// ParseS3URL parses s3://bucket or s3://bucket/some/prefix.
func ParseS3URL(raw string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("%q: %v: %w", raw, err, ErrInvalidURL)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Destination{}, fmt.Errorf("%q: expected s3://bucket/prefix: %w", raw, ErrInvalidURL)
	}
	return Destination{
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Key returns the object key for a file name under the destination prefix.
func (d Destination) Key(name string) string {
	if d.Prefix == "" {
		return name
	}
	return path.Join(d.Prefix, name)
}

// URL renders the object location.
func (d Destination) URL(name string) string {
	return "s3://" + d.Bucket + "/" + d.Key(name)
}

// Uploader puts report files into a bucket.
type Uploader struct {
	client PutObjectAPI
	logger *slog.Logger
}

// NewUploader creates an Uploader. A nil logger uses slog.Default().
func NewUploader(client PutObjectAPI, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, logger: logger}
}

// NewS3Uploader creates an Uploader from a resolved AWS configuration.
func NewS3Uploader(cfg aws.Config, logger *slog.Logger) *Uploader {
	return NewUploader(s3.NewFromConfig(cfg), logger)
}

// Upload stores the local file under the destination and returns its URL.
// The run ID is attached as object metadata.
func (u *Uploader) Upload(ctx context.Context, dest Destination, localPath, runID string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat report: %w", err)
	}

	name := filepath.Base(localPath)
	key := dest.Key(name)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(dest.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(name)),
	}
	if runID != "" {
		input.Metadata = map[string]string{"run-id": runID}
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		u.logger.Error("failed to upload report",
			"error", err,
			"bucket", dest.Bucket,
			"key", key)
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	location := dest.URL(name)
	u.logger.Info("report uploaded", "url", location, "size", info.Size())
	return location, nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".text", ".tsung":
		return "text/plain; charset=utf-8"
	case ".bin":
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
