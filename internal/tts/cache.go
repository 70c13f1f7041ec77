// AngelaMos | 2026
// cache.go

package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const audioKeyPrefix = "tts:audio:"

type AudioCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAudioCache(client redis.Cmdable, ttl time.Duration) *AudioCache {
	return &AudioCache{client: client, ttl: ttl}
}

func CacheKey(provider, voice, text string) string {
	sum := sha256.Sum256([]byte(provider + "|" + voice + "|" + text))
	return audioKeyPrefix + hex.EncodeToString(sum[:])
}

// Get reports a miss as (nil, false, nil).
func (c *AudioCache) Get(
	ctx context.Context,
	provider, voice, text string,
) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}

	audio, err := c.client.Get(ctx, CacheKey(provider, voice, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached audio: %w", err)
	}

	return audio, true, nil
}

func (c *AudioCache) Set(
	ctx context.Context,
	provider, voice, text string,
	audio []byte,
) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}

	err := c.client.Set(ctx, CacheKey(provider, voice, text), audio, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("cache audio: %w", err)
	}
	return nil
}
