// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const probeTimeout = 2 * time.Second

type Counter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

// HandlerConfig wires the stats sources. Any of them may be nil; the
// matching section is then reported as unknown.
type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
	Counter    Counter
}

type Handler struct {
	src       HandlerConfig
	startedAt time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{src: cfg, startedAt: time.Now()}
}

// RegisterAdminRoutes expects r to already be behind the admin session check.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/system/stats", h.GetSystemStats)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.snapshot(r.Context()))
}

// snapshot probes every source concurrently. A failing probe marks its
// section unhealthy instead of failing the whole report.
func (h *Handler) snapshot(ctx context.Context) SystemStatsResponse {
	resp := SystemStatsResponse{
		Database: DatabaseStatus{Healthy: h.src.DBPing != nil},
		Redis:    RedisStatus{Healthy: h.src.RedisPing != nil},
		Runtime:  readRuntime(h.startedAt),
	}

	if h.src.DBStats != nil {
		resp.Database.Stats = toDBPoolStats(h.src.DBStats())
	}
	if h.src.RedisStats != nil {
		resp.Redis.Stats = toRedisPoolStats(h.src.RedisStats())
	}

	var g errgroup.Group

	if ping := h.src.DBPing; ping != nil {
		g.Go(func() error {
			resp.Database.Healthy = probe(ctx, ping) == nil
			return nil
		})
	}
	if ping := h.src.RedisPing; ping != nil {
		g.Go(func() error {
			resp.Redis.Healthy = probe(ctx, ping) == nil
			return nil
		})
	}
	if h.src.Counter != nil {
		g.Go(func() error {
			counts, err := h.src.Counter.Counts(ctx)
			if err != nil {
				slog.Warn("collect table counts failed", "error", err)
				return nil
			}
			resp.Counts = counts
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // probes never return errors

	return resp
}

func probe(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return ping(ctx)
}
