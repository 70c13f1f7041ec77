// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/health"
	"github.com/carterperez-dev/fortune-api/internal/middleware"
	"github.com/carterperez-dev/fortune-api/internal/reading"
	"github.com/carterperez-dev/fortune-api/internal/server"
)

const drainDelay = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("relay error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.LoadRelay(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"default_model", cfg.Gemini.DefaultModel,
	)

	var limiterClient *redis.Client
	if cfg.Redis.URL != "" {
		cache, cacheErr := core.NewRedis(ctx, cfg.Redis)
		if cacheErr != nil {
			return cacheErr
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		limiterClient = cache.Client
		logger.Info("redis connected, rate limits are shared")
	} else {
		logger.Info("redis not configured, rate limits are per-process")
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return err
	}

	readingHandler := reading.NewHandler(reading.NewService(geminiClient, reading.Options{
		GenerationTimeout: cfg.Gemini.GenerationTimeout,
		Retry:             gemini.NewRetryPolicy(cfg.Gemini.MaxAttempts, cfg.Gemini.RetryDelay),
		Logger:            logger,
	}))

	healthHandler := health.NewHandler()

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.CORS(cfg.CORS))

	generationLimiter := middleware.NewRateLimiter(limiterClient, middleware.RateLimitConfig{
		Scope: "relay",
		Limit: middleware.PerMinute(
			cfg.RateLimit.GenerationRequests,
			cfg.RateLimit.GenerationBurst,
		),
	}).Handler

	router.Get("/health", healthHandler.Ping)
	readingHandler.RegisterRoutes(router, "/chat", generationLimiter)

	if err := srv.Run(ctx, cfg.Server.ShutdownTimeout, drainDelay); err != nil {
		return err
	}

	logger.Info("relay stopped")
	return nil
}
