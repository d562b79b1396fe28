package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fulfillment-workers/internal/common/config"
)

// Store reads and writes whole objects.
type Store interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, data []byte, originalName, uploadPath string) (string, error)
}

// MinIOBucket is a Store over one S3-compatible bucket.
type MinIOBucket struct {
	client *minio.Client
	bucket string
	// keepExt appends the original file extension to the upload path.
	keepExt bool
}

func NewMinIOBucket(cfg config.BucketConfig, keepExt bool) (*MinIOBucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOBucket{client: client, bucket: cfg.Bucket, keepExt: keepExt}, nil
}

func (b *MinIOBucket) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s not found: %w", key, err)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (b *MinIOBucket) Store(ctx context.Context, data []byte, originalName, uploadPath string) (string, error) {
	key := objectKey(uploadPath, originalName, b.keepExt)

	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", key, err)
	}
	return key, nil
}

func (b *MinIOBucket) Ping(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", b.bucket)
	}
	return nil
}

// objectKey falls back to a random key when no upload path is given.
func objectKey(uploadPath, originalName string, keepExt bool) string {
	key := uploadPath
	if key == "" {
		key = uuid.New().String()
	}
	if keepExt {
		key += path.Ext(originalName)
	}
	return key
}
