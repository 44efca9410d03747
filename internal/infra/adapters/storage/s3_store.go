package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"whatsapp-image-bot/internal/config"
	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

var _ adapter.MediaStore = (*S3Store)(nil)

// S3Store uploads artifacts to an S3-compatible bucket and returns the public
// URL. The bucket is expected to allow public reads; making it so is an
// operational concern, not this adapter's.
type S3Store struct {
	client        *minio.Client
	bucket        string
	region        string
	endpoint      string
	useSSL        bool
	publicBaseURL string
}

func NewS3Store(cfg *config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket empty")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials not configured")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{
		client:        cli,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		useSSL:        cfg.UseSSL,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3Store) Store(ctx context.Context, data []byte, contentType, objectKey string) (string, error) {
	if len(data) == 0 || objectKey == "" {
		return "", domain.ErrInvalidArgument
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put %s: %v: %w", objectKey, err, domain.ErrStorageUnavailable)
	}
	return s.publicURL(objectKey), nil
}

func (s *S3Store) publicURL(objectKey string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + objectKey
	}
	// Virtual-hosted AWS URL when talking to AWS proper, path-style otherwise
	// (MinIO and friends).
	if strings.HasSuffix(s.endpoint, "amazonaws.com") {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectKey)
}
