package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vaquita/internal/adapters/awsclient"
	"vaquita/internal/domain"
)

// Config selects the file storage provider.
type Config struct {
	Provider string
	Bucket   string
	AWS      awsclient.Config
}

type s3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewFileStorage returns the File Storage collaborator. Provider "s3" uses
// the configured bucket; "noop" or unknown keeps nothing.
func NewFileStorage(config Config, logger *slog.Logger) domain.FileStorage {
	switch config.Provider {
	case "s3":
		return &s3Storage{client: s3.NewFromConfig(config.AWS.AWS()), bucket: config.Bucket, logger: logger}
	case "noop":
		return &noopStorage{logger: logger}
	default:
		logger.Warn("unknown storage provider, using noop", "provider", config.Provider)
		return &noopStorage{logger: logger}
	}
}

type s3Storage struct {
	client s3API
	bucket string
	logger *slog.Logger
}

func (s *s3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", s.bucket, path, err)
	}
	s.logger.DebugContext(ctx, "object deleted", "bucket", s.bucket, "path", path)
	return nil
}

func (s *s3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

type noopStorage struct {
	logger *slog.Logger
}

func (n *noopStorage) Delete(ctx context.Context, path string) error {
	n.logger.InfoContext(ctx, "object would be deleted (noop)", "path", path)
	return nil
}

func (n *noopStorage) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}
