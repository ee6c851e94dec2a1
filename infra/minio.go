package infra

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chainboard/asset-service/config"
)

// MinioClient is the object store gateway: put, copy and delete by key
// against a single public bucket, plus an admin client used by the health
// probe. Public URLs are composed as {base}/{bucket}/{key}; the key is
// always recoverable as the last URL path segment.
type MinioClient struct {
	Admin         *madmin.AdminClient
	Client        *minio.Client
	Endpoint      string
	Bucket        string
	PublicBaseURL string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, cfg.Minio.UseSSL)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	return &MinioClient{
		Admin:         madminClient,
		Client:        minioClient,
		Endpoint:      endpoint,
		Bucket:        cfg.Minio.Bucket,
		PublicBaseURL: cfg.Minio.PublicBaseURL,
	}
}

// PublicURL returns the publicly resolvable URL of the object at key.
func (m *MinioClient) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.PublicBaseURL, m.Bucket, key)
}

// PutObject uploads data, overwriting any existing object at key, and
// returns the public URL. Partial uploads are never visible.
func (m *MinioClient) PutObject(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}

	_, err := m.Client.PutObject(ctx, m.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return m.PublicURL(key), nil
}

// CopyObject performs a server-side copy and returns the public URL of the
// destination. Fails when the source does not exist.
func (m *MinioClient) CopyObject(ctx context.Context, srcKey, destKey string) (string, error) {
	if srcKey == "" || destKey == "" {
		return "", fmt.Errorf("source and destination keys cannot be empty")
	}

	_, err := m.Client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.Bucket, Object: destKey},
		minio.CopySrcOptions{Bucket: m.Bucket, Object: srcKey},
	)
	if err != nil {
		return "", fmt.Errorf("failed to copy object %s to %s: %w", srcKey, destKey, err)
	}

	return m.PublicURL(destKey), nil
}

// RemoveObject deletes the object at key. Idempotent: removing a missing
// key is not an error, so retries and already-cleaned state are tolerated.
func (m *MinioClient) RemoveObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	if err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the asset bucket if it doesn't exist and opens it for
// anonymous reads so variant URLs resolve publicly.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	policyJSON := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.Bucket)

	if err := m.Client.SetBucketPolicy(ctx, m.Bucket, policyJSON); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// HealthCheck probes the storage cluster through the admin API.
func (m *MinioClient) HealthCheck(ctx context.Context) error {
	if _, err := m.Admin.ServerInfo(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
