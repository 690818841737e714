// services/storage.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appconfig "elms-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// BlobStore resolves object keys of tenant documents and complaint images.
// Uploads happen outside this service; records only hold the key.
type BlobStore interface {
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3BlobStore talks to any S3-compatible bucket (AWS S3, MinIO).
type S3BlobStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

func NewS3BlobStore(ctx context.Context, cfg appconfig.StorageConfig, logger *zap.Logger) (*S3BlobStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage bucket and credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	expiration := cfg.PresignExpiration
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}

	return &S3BlobStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: expiration,
		logger:            logger.Named("storage"),
	}, nil
}

func (s *S3BlobStore) PresignGet(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	s.logger.Debug("object deleted", zap.String("key", key))
	return nil
}

// NopBlobStore is used when no bucket is configured. Records keep their keys but get no URL.
type NopBlobStore struct{}

func (NopBlobStore) PresignGet(ctx context.Context, key string) (string, error) { return "", nil }
func (NopBlobStore) Delete(ctx context.Context, key string) error              { return nil }

// NewBlobStore picks the S3 store when storage is configured and the no-op store otherwise.
func NewBlobStore(ctx context.Context, cfg appconfig.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	if !cfg.Enabled() {
		logger.Info("object storage not configured, attachment URLs disabled")
		return NopBlobStore{}, nil
	}
	return NewS3BlobStore(ctx, cfg, logger)
}

// presignAll fills a URL per key. A failed presign leaves the URL empty and is logged.
func presignAll(ctx context.Context, blobs BlobStore, logger *zap.Logger, n int, key func(int) string, set func(int, string)) {
	for i := 0; i < n; i++ {
		url, err := blobs.PresignGet(ctx, key(i))
		if err != nil {
			logger.Warn("presign failed", zap.String("key", key(i)), zap.Error(err))
			continue
		}
		set(i, url)
	}
}
