package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
)

const bucketTimeout = 10 * time.Second

// ObjectStore keeps files in an S3-compatible bucket; the reference is the object key
type ObjectStore struct {
	client *minio.Client
	bucket string
	logger *logging.Logger
}

// NewObjectStore connects to the endpoint and creates the bucket if missing
func NewObjectStore(cfg config.StorageConfig, logger *logging.Logger) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), bucketTimeout)
	defer cancel()

	if err := ensureBucket(ctx, client, cfg.BucketName, cfg.Region); err != nil {
		return nil, err
	}

	return &ObjectStore{client: client, bucket: cfg.BucketName, logger: logging.OrNop(logger)}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *ObjectStore) Write(ctx context.Context, name string, reader io.Reader, size int64) (string, error) {
	start := time.Now()

	info, err := s.client.PutObject(ctx, s.bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	s.logger.LogStorageOperation("write", s.bucket, name, info.Size, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return name, nil
}

// Open streams the object. The size comes from a stat so connectors can set
// Content-Length on their own uploads.
func (s *ObjectStore) Open(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	object, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download object: %w", err)
	}

	info, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, fmt.Errorf("failed to stat object %s: %w", ref, err)
	}
	return object, info.Size, nil
}

func (s *ObjectStore) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return true, nil
	case minio.ToErrorResponse(err).Code == "NoSuchKey":
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat object %s: %w", ref, err)
	}
}

func (s *ObjectStore) Delete(ctx context.Context, ref string) error {
	start := time.Now()

	err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{})
	s.logger.LogStorageOperation("delete", s.bucket, ref, 0, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
