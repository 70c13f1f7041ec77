// AngelaMos | 2026
// storage.go

package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/carterperez-dev/fortune-api/internal/config"
)

const maxPresignExpiry = 7 * 24 * time.Hour

type ObjectStore interface {
	Put(
		ctx context.Context,
		key string,
		r io.Reader,
		size int64,
		contentType string,
	) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

type Storage struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewStorage(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	s := &Storage{client: client, cfg: cfg}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, bucket := range []string{cfg.ThumbnailBucket, cfg.PDFBucket} {
		if err := s.ensureBucket(checkCtx, bucket); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Storage) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
		Region: s.cfg.Region,
	})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	return nil
}

func (s *Storage) Bucket(name string) *Bucket {
	return &Bucket{storage: s, name: name}
}

func (s *Storage) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.client.BucketExists(pingCtx, s.cfg.ThumbnailBucket); err != nil {
		return fmt.Errorf("storage ping failed: %w", err)
	}

	return nil
}

// Bucket is an ObjectStore scoped to a single bucket. Returned URLs are
// public when storage.public_base_url is set and presigned otherwise.
type Bucket struct {
	storage *Storage
	name    string
}

func (b *Bucket) Put(
	ctx context.Context,
	key string,
	r io.Reader,
	size int64,
	contentType string,
) (string, error) {
	_, err := b.storage.client.PutObject(
		ctx,
		b.name,
		key,
		r,
		size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return b.url(ctx, key)
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.storage.client.RemoveObject(
		ctx,
		b.name,
		key,
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (b *Bucket) KeyFromURL(url string) (string, bool) {
	prefix := b.publicPrefix()
	if prefix == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

func (b *Bucket) url(ctx context.Context, key string) (string, error) {
	if prefix := b.publicPrefix(); prefix != "" {
		return prefix + key, nil
	}

	u, err := b.storage.client.PresignedGetObject(
		ctx,
		b.name,
		key,
		maxPresignExpiry,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

func (b *Bucket) publicPrefix() string {
	base := strings.TrimRight(b.storage.cfg.PublicBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/" + b.name + "/"
}
