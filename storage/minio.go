package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"montage/config"
	"montage/logger"
)

// AssetStore resolves media asset object keys to local files the
// frame extractor can seek in. Assets are immutable for the lifetime
// of an editing session, so a downloaded copy stays valid.
type AssetStore struct {
	client  *minio.Client
	bucket  string
	workDir string
}

// NewAssetStore connects to MinIO and verifies the bucket exists,
// creating it when missing.
func NewAssetStore(cfg *config.Config) (*AssetStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logger.Info("bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	workDir := filepath.Join(cfg.WorkDir, "montage-assets")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	logger.Info("asset store ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &AssetStore{client: client, bucket: cfg.MinioBucket, workDir: workDir}, nil
}

// Localize downloads an object into the work dir and returns the
// local path. An already-downloaded asset is reused.
func (s *AssetStore) Localize(ctx context.Context, objectKey string) (string, error) {
	local := filepath.Join(s.workDir, filepath.Base(objectKey))
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		return local, nil
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get object %s: %w", objectKey, err)
	}
	defer obj.Close()

	tmp := local + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}
	n, err := io.Copy(out, obj)
	out.Close()
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", objectKey, err)
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return "", err
	}

	logger.Debug("asset localized",
		logger.String("objectKey", objectKey),
		logger.Int64("bytes", n))
	return local, nil
}

// GetBytes reads a whole object into memory. Used for small objects
// like precomputed thumbnails.
func (s *AssetStore) GetBytes(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", objectKey, err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// ListObjects walks the bucket under a prefix, calling fn per object.
// Used by the minio diagnostic command.
func (s *AssetStore) ListObjects(ctx context.Context, prefix string, fn func(key string, size int64) error) error {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := fn(obj.Key, obj.Size); err != nil {
			return err
		}
	}
	return nil
}

// Bucket returns the configured bucket name.
func (s *AssetStore) Bucket() string {
	return s.bucket
}
