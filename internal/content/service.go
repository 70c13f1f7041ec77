// AngelaMos | 2026
// service.go

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const exposedCacheKey = "content:exposed"

type Service struct {
	repo     Repository
	store    core.ObjectStore
	cache    redis.Cmdable
	cacheTTL time.Duration
}

func NewService(
	repo Repository,
	store core.ObjectStore,
	cache redis.Cmdable,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) List(
	ctx context.Context,
	params ListContentsParams,
) ([]Content, int, error) {
	return s.repo.List(ctx, params)
}

// ListExposed serves the storefront list from redis when possible.
func (s *Service) ListExposed(ctx context.Context) ([]PublicContent, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, exposedCacheKey).Bytes()
		switch {
		case err == nil:
			var cached []PublicContent
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		case !errors.Is(err, redis.Nil):
			slog.Warn("content cache read failed", "error", err)
		}
	}

	contents, err := s.repo.ListExposed(ctx)
	if err != nil {
		return nil, err
	}

	public := make([]PublicContent, 0, len(contents))
	for i := range contents {
		public = append(public, ToPublicContent(&contents[i]))
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if raw, err := json.Marshal(public); err == nil {
			if err := s.cache.Set(ctx, exposedCacheKey, raw, s.cacheTTL).Err(); err != nil {
				slog.Warn("content cache write failed", "error", err)
			}
		}
	}

	return public, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Content, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req SaveContentRequest) (*Content, error) {
	c := &Content{}
	req.apply(c)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return c, nil
}

func (s *Service) Update(
	ctx context.Context,
	id int64,
	req SaveContentRequest,
) (*Content, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.apply(c)

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)

	if s.store == nil {
		return nil
	}
	for _, u := range c.ThumbnailURLs() {
		key, ok := s.store.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			slog.Warn("delete thumbnail failed",
				"content_id", id,
				"key", key,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Service) UploadThumbnail(
	ctx context.Context,
	filename, contentType string,
	size int64,
	r io.Reader,
) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("upload thumbnail: storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("upload thumbnail: %w", core.ErrInvalidInput)
	}

	key := fmt.Sprintf("content/%s%s", uuid.NewString(), strings.ToLower(path.Ext(filename)))

	url, err := s.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}

	return url, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, exposedCacheKey).Err(); err != nil {
		slog.Warn("content cache invalidation failed", "error", err)
	}
}
