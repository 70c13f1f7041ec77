// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/fortune-api/internal/admin"
	"github.com/carterperez-dev/fortune-api/internal/auth"
	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/content"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/health"
	"github.com/carterperez-dev/fortune-api/internal/middleware"
	"github.com/carterperez-dev/fortune-api/internal/payment"
	"github.com/carterperez-dev/fortune-api/internal/pdf"
	"github.com/carterperez-dev/fortune-api/internal/question"
	"github.com/carterperez-dev/fortune-api/internal/reading"
	"github.com/carterperez-dev/fortune-api/internal/savedresult"
	"github.com/carterperez-dev/fortune-api/internal/server"
	"github.com/carterperez-dev/fortune-api/internal/settings"
	"github.com/carterperez-dev/fortune-api/internal/tts"
	"github.com/carterperez-dev/fortune-api/internal/voice"
	"github.com/carterperez-dev/fortune-api/migrations"
)

const (
	drainDelay = 5 * time.Second

	lookupRequestsPerHour = 30
	lookupBurst           = 5
	loginRequestsPerMin   = 5
	loginBurst            = 3
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	migrateOnly := flag.Bool("migrate", false, "apply pending database migrations and exit")
	flag.Parse()

	if err := run(*configPath, *generateKeys, *migrateOnly); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string, generateKeys, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if generateKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private_key", cfg.JWT.PrivateKeyPath,
			"public_key", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Otel.Endpoint)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if migrateOnly || cfg.Database.AutoMigrate {
		applied, migrateErr := core.Migrate(ctx, db.DB, migrations.FS)
		if migrateErr != nil {
			_ = db.Close() //nolint:errcheck // exiting on migration failure
			return migrateErr
		}
		logger.Info("migrations applied", "count", len(applied), "versions", applied)

		if migrateOnly {
			return db.Close()
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	healthDeps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var thumbnails, pdfs core.ObjectStore
	if cfg.Storage.Endpoint != "" {
		storage, storageErr := core.NewStorage(ctx, cfg.Storage)
		if storageErr != nil {
			return storageErr
		}
		healthDeps = append(healthDeps, health.Dependency{Name: "storage", Checker: storage})
		thumbnails = storage.Bucket(cfg.Storage.ThumbnailBucket)
		pdfs = storage.Bucket(cfg.Storage.PDFBucket)
		logger.Info("object storage connected",
			"endpoint", cfg.Storage.Endpoint,
			"thumbnail_bucket", cfg.Storage.ThumbnailBucket,
			"pdf_bucket", cfg.Storage.PDFBucket,
		)
	} else {
		logger.Warn("object storage not configured, uploads and pdf export disabled")
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return err
	}
	retry := gemini.NewRetryPolicy(cfg.Gemini.MaxAttempts, cfg.Gemini.RetryDelay)

	liveKey := cfg.Voice.LiveAPIKey
	if liveKey == "" {
		liveKey = cfg.Gemini.APIKey
	}
	liveClient, err := gemini.NewLiveClient(ctx, liveKey)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	settingsRepo := settings.NewRepository(db.DB)
	settingsSvc := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(settingsSvc)

	contentRepo := content.NewRepository(db.DB)
	contentSvc := content.NewService(contentRepo, thumbnails, redis.Client, cfg.Content.CacheTTL)
	contentHandler := content.NewHandler(contentSvc, cfg.Storage.MaxUploadBytes)

	paymentRepo := payment.NewRepository(db.DB)
	paymentSvc := payment.NewService(paymentRepo, contentRepo)
	paymentHandler := payment.NewHandler(paymentSvc)

	readingSvc := reading.NewService(geminiClient, reading.Options{
		GenerationTimeout: cfg.Gemini.GenerationTimeout,
		Retry:             retry,
		Logger:            logger,
	})
	readingHandler := reading.NewHandler(readingSvc)

	questionSvc := question.NewService(geminiClient, retry, cfg.Gemini.MaxAnswerChars)
	questionHandler := question.NewHandler(questionSvc)

	ttsSvc := tts.NewServiceFromConfig(
		cfg.TTS,
		settingsSvc,
		tts.NewAudioCache(redis.Client, cfg.TTS.CacheTTL),
		logger,
	)
	ttsHandler := tts.NewHandler(ttsSvc, cfg.TTS.MaxTextLength)

	var savedHandler *savedresult.Handler
	if cfg.Credentials.EncryptionKey != "" {
		cipher, cipherErr := core.NewFieldCipher(cfg.Credentials.EncryptionKey)
		if cipherErr != nil {
			return cipherErr
		}

		var renderer savedresult.PDFRenderer
		if pdfs != nil {
			renderer = pdf.NewRenderer(pdf.NewChrome(cfg.PDF), cfg.PDF)
		}

		savedSvc := savedresult.NewService(
			savedresult.NewRepository(db.DB),
			cipher,
			renderer,
			pdfs,
			cfg.Credentials.LookupBatch,
		)
		savedHandler = savedresult.NewHandler(savedSvc)
	} else {
		logger.Warn("CREDENTIAL_ENCRYPTION_KEY not set, saved results disabled")
	}

	voiceSvc := voice.NewService(voice.NewRepository(db.DB), cfg.Voice.LiveModel)
	voiceRelay := voice.NewRelay(voiceSvc, liveClient, cfg.CORS.AllowedOrigins, logger)
	voiceHandler := voice.NewHandler(voiceSvc, voiceRelay)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, redis.Client)
	authHandler := auth.NewHandler(authSvc, cfg.Admin)

	created, err := authSvc.EnsureAdmin(ctx, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("bootstrap admin created", "username", cfg.Admin.BootstrapUsername)
	}

	healthHandler := health.NewHandler(healthDeps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Counter:    admin.NewTableCounter(db.DB),
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Every(
				cfg.RateLimit.Window,
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
		}).Handler,
	)

	generationLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Scope: "generation",
		Limit: middleware.PerMinute(
			cfg.RateLimit.GenerationRequests,
			cfg.RateLimit.GenerationBurst,
		),
		KeyFunc: middleware.KeyByIPAndEndpoint,
	}).Handler

	lookupLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Scope: "lookup",
		Limit: middleware.PerHour(lookupRequestsPerHour, lookupBurst),
	}).Handler

	loginLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Scope: "admin-login",
		Limit: middleware.PerMinute(loginRequestsPerMin, loginBurst),
	}).Handler

	authenticator := middleware.Authenticator(authSvc, cfg.Admin.CookieName)

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	router.Route("/api", func(r chi.Router) {
		readingHandler.RegisterRoutes(r, "/jeminai", generationLimiter)
		questionHandler.RegisterRoutes(r, generationLimiter)
		ttsHandler.RegisterRoutes(r, generationLimiter)
		contentHandler.RegisterRoutes(r)
		voiceHandler.RegisterRoutes(r)
		if savedHandler != nil {
			savedHandler.RegisterRoutes(r, lookupLimiter)
		}

		r.Route("/admin", func(r chi.Router) {
			authHandler.RegisterRoutes(r, authenticator, loginLimiter)

			r.Group(func(r chi.Router) {
				r.Use(authenticator)

				contentHandler.RegisterAdminRoutes(r)
				settingsHandler.RegisterAdminRoutes(r)
				paymentHandler.RegisterAdminRoutes(r)
				voiceHandler.RegisterAdminRoutes(r)
				adminHandler.RegisterAdminRoutes(r)
				if savedHandler != nil {
					savedHandler.RegisterAdminRoutes(r)
				}
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		core.NotFound(w, "route")
	})

	defer func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
		if err := redis.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
		logger.Info("application stopped")
	}()

	return srv.Run(ctx, cfg.Server.ShutdownTimeout, drainDelay)
}
