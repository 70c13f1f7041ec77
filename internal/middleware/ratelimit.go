// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	rateLimitPrefix = "ratelimit:"
	bucketIdleTTL   = 10 * time.Minute
	sweepEvery      = 5 * time.Minute
)

type RateLimitConfig struct {
	Scope      string
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	BypassFunc func(*http.Request) bool
}

// RateLimiter counts in redis so limits hold across replicas. Without a
// client, or while redis is failing, each process keeps its own buckets.
type RateLimiter struct {
	shared   *redis_rate.Limiter
	local    *localBuckets
	cfg      RateLimitConfig
	degraded atomic.Bool
}

type decision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Scope == "" {
		cfg.Scope = "global"
	}

	rl := &RateLimiter{
		local: newLocalBuckets(cfg.Limit),
		cfg:   cfg,
	}
	if rdb != nil {
		rl.shared = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.BypassFunc != nil && rl.cfg.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rateLimitPrefix + rl.cfg.Scope + ":" + rl.cfg.KeyFunc(r)
		d := rl.decide(r.Context(), key)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))

		if !d.allowed {
			secs := max(int(d.retryAfter.Round(time.Second).Seconds()), 1)
			h.Set("Retry-After", strconv.Itoa(secs))
			core.JSONError(w, core.NewAppError(
				nil,
				fmt.Sprintf("too many requests, retry in %d seconds", secs),
				http.StatusTooManyRequests,
				"RATE_LIMITED",
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) decide(ctx context.Context, key string) decision {
	if rl.shared == nil {
		return rl.local.take(key)
	}

	res, err := rl.shared.Allow(ctx, key, rl.cfg.Limit)
	if err != nil {
		if rl.degraded.CompareAndSwap(false, true) {
			slog.Warn("rate limiter using local buckets",
				"scope", rl.cfg.Scope,
				"error", err,
			)
		}
		return rl.local.take(key)
	}

	if rl.degraded.CompareAndSwap(true, false) {
		slog.Info("rate limiter back on redis", "scope", rl.cfg.Scope)
	}

	return decision{
		allowed:    res.Allowed > 0,
		remaining:  res.Remaining,
		retryAfter: res.RetryAfter,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localBuckets struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLocalBuckets(l redis_rate.Limit) *localBuckets {
	return &localBuckets{
		limit:     rate.Limit(float64(l.Rate) / l.Period.Seconds()),
		burst:     l.Burst,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (lb *localBuckets) take(key string) decision {
	now := time.Now()

	lb.mu.Lock()
	defer lb.mu.Unlock()

	if now.Sub(lb.lastSweep) >= sweepEvery {
		for k, b := range lb.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(lb.buckets, k)
			}
		}
		lb.lastSweep = now
	}

	b, ok := lb.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(lb.limit, lb.burst)}
		lb.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return decision{retryAfter: wait}
	}

	return decision{
		allowed:   true,
		remaining: max(int(b.limiter.TokensAt(now)), 0),
	}
}

// ClientIP trusts the last X-Forwarded-For hop, which is the one our
// own proxy appended.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

func KeyByAdmin(r *http.Request) string {
	if id := GetAdminID(r.Context()); id != "" {
		return "admin:" + id
	}
	return KeyByIP(r)
}

// KeyByIPAndEndpoint gives each generation route its own budget per client.
func KeyByIPAndEndpoint(r *http.Request) string {
	return KeyByIP(r) + ":" + normalizeEndpoint(r.URL.Path)
}

func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func looksLikeID(seg string) bool {
	if len(seg) == 36 && seg[8] == '-' && seg[13] == '-' && seg[18] == '-' && seg[23] == '-' {
		return true
	}
	if seg == "" {
		return false
	}
	_, err := strconv.ParseUint(seg, 10, 64)
	return err == nil
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return Every(time.Minute, requests, burst)
}

func PerHour(requests, burst int) redis_rate.Limit {
	return Every(time.Hour, requests, burst)
}

func Every(window time.Duration, requests, burst int) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{
		Rate:   requests,
		Burst:  burst,
		Period: window,
	}
}
