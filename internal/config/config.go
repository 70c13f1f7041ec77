// AngelaMos | 2026
// config.go

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App         AppConfig         `koanf:"app"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	JWT         JWTConfig         `koanf:"jwt"`
	Admin       AdminConfig       `koanf:"admin"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	CORS        CORSConfig        `koanf:"cors"`
	Log         LogConfig         `koanf:"log"`
	Otel        OtelConfig        `koanf:"otel"`
	Gemini      GeminiConfig      `koanf:"gemini"`
	TTS         TTSConfig         `koanf:"tts"`
	Storage     StorageConfig     `koanf:"storage"`
	PDF         PDFConfig         `koanf:"pdf"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Voice       VoiceConfig       `koanf:"voice"`
	Content     ContentConfig     `koanf:"content"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

// AdminConfig controls the cookie that carries the admin session token.
type AdminConfig struct {
	CookieName        string `koanf:"cookie_name"`
	CookieDomain      string `koanf:"cookie_domain"`
	CookieSecure      bool   `koanf:"cookie_secure"`
	BootstrapUsername string `koanf:"bootstrap_username"`
	BootstrapPassword string `koanf:"bootstrap_password"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`

	GenerationRequests int `koanf:"generation_requests"`
	GenerationBurst    int `koanf:"generation_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type GeminiConfig struct {
	APIKey            string        `koanf:"api_key"`
	DefaultModel      string        `koanf:"default_model"`
	AllowedModels     []string      `koanf:"allowed_models"`
	MaxOutputTokens   int32         `koanf:"max_output_tokens"`
	Temperature       float32       `koanf:"temperature"`
	MaxAttempts       int           `koanf:"max_attempts"`
	RetryDelay        time.Duration `koanf:"retry_delay"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
	MaxAnswerChars    int           `koanf:"max_answer_chars"`
}

type TTSConfig struct {
	TypecastAPIKey    string        `koanf:"typecast_api_key"`
	TypecastURL       string        `koanf:"typecast_url"`
	TypecastModel     string        `koanf:"typecast_model"`
	NaverClientID     string        `koanf:"naver_client_id"`
	NaverClientSecret string        `koanf:"naver_client_secret"`
	NaverURL          string        `koanf:"naver_url"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	MaxTextLength     int           `koanf:"max_text_length"`
}

// StorageConfig points at an S3-compatible endpoint. Supabase Storage
// exposes one, so the same settings work against it and against MinIO.
type StorageConfig struct {
	Endpoint        string `koanf:"endpoint"`
	AccessKey       string `koanf:"access_key"`
	SecretKey       string `koanf:"secret_key"`
	Region          string `koanf:"region"`
	UseSSL          bool   `koanf:"use_ssl"`
	PublicBaseURL   string `koanf:"public_base_url"`
	ThumbnailBucket string `koanf:"thumbnail_bucket"`
	PDFBucket       string `koanf:"pdf_bucket"`
	MaxUploadBytes  int64  `koanf:"max_upload_bytes"`
}

type PDFConfig struct {
	ChromeBin   string        `koanf:"chrome_bin"`
	NoSandbox   bool          `koanf:"no_sandbox"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxHeightPx int           `koanf:"max_height_px"`
	PageWidthPx int           `koanf:"page_width_px"`
}

type CredentialsConfig struct {
	EncryptionKey string `koanf:"encryption_key"`
	LookupBatch   int    `koanf:"lookup_batch"`
}

type VoiceConfig struct {
	LiveAPIKey string `koanf:"live_api_key"`
	LiveModel  string `koanf:"live_model"`
}

type ContentConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Load reads the API configuration: built-in defaults, then the optional
// YAML file, then mapped environment variables.
func Load(configPath string) (*Config, error) {
	return load(configPath, validate)
}

// LoadRelay loads configuration for the standalone relay, which needs
// neither the database nor admin signing keys.
func LoadRelay(configPath string) (*Config, error) {
	return load(configPath, validateRelay)
}

func load(configPath string, validateFn func(*Config) error) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateFn(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "Fortune API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "330s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "12h",
		"jwt.issuer":              "fortune-api",
		"jwt.audience":            "fortune-admin",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"admin.cookie_name":   "admin_session",
		"admin.cookie_secure": true,

		"rate_limit.requests":            100,
		"rate_limit.window":              "1m",
		"rate_limit.burst":               20,
		"rate_limit.generation_requests": 10,
		"rate_limit.generation_burst":    3,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "fortune-api",

		"gemini.default_model": "gemini-2.5-flash",
		"gemini.allowed_models": []string{
			"gemini-2.5-flash",
			"gemini-2.5-pro",
			"gemini-3-pro-preview",
		},
		"gemini.max_output_tokens":  65536,
		"gemini.temperature":        0.7,
		"gemini.max_attempts":       3,
		"gemini.retry_delay":        "2s",
		"gemini.generation_timeout": "280s",
		"gemini.max_answer_chars":   1000,

		"tts.typecast_url":     "https://api.typecast.ai/v1/text-to-speech",
		"tts.typecast_model":   "ssfm-v21",
		"tts.naver_url":        "https://naveropenapi.apigw.ntruss.com/tts-premium/v1/tts",
		"tts.request_timeout":  "30s",
		"tts.max_retries":      3,
		"tts.retry_base_delay": "500ms",
		"tts.cache_ttl":        "24h",
		"tts.max_text_length":  5000,

		"storage.region":           "ap-northeast-2",
		"storage.use_ssl":          true,
		"storage.thumbnail_bucket": "thumbnails",
		"storage.pdf_bucket":       "pdfs",
		"storage.max_upload_bytes": 10 << 20,

		"pdf.no_sandbox":    true,
		"pdf.timeout":       "60s",
		"pdf.max_height_px": 54000,
		"pdf.page_width_px": 896,

		"credentials.lookup_batch": 500,

		"voice.live_model": "gemini-2.5-flash-native-audio-preview-09-2025",

		"content.cache_ttl": "5m",
	}
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                    "database.url",
	"DATABASE_AUTO_MIGRATE":           "database.auto_migrate",
	"REDIS_URL":                       "redis.url",
	"ENVIRONMENT":                     "app.environment",
	"HOST":                            "server.host",
	"PORT":                            "server.port",
	"LOG_LEVEL":                       "log.level",
	"LOG_FORMAT":                      "log.format",
	"JWT_PRIVATE_KEY_PATH":            "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":             "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":         "jwt.access_token_expire",
	"JWT_ISSUER":                      "jwt.issuer",
	"JWT_AUDIENCE":                    "jwt.audience",
	"ADMIN_COOKIE_NAME":               "admin.cookie_name",
	"ADMIN_COOKIE_DOMAIN":             "admin.cookie_domain",
	"ADMIN_COOKIE_SECURE":             "admin.cookie_secure",
	"ADMIN_USERNAME":                  "admin.bootstrap_username",
	"ADMIN_PASSWORD":                  "admin.bootstrap_password",
	"RATE_LIMIT_REQUESTS":             "rate_limit.requests",
	"RATE_LIMIT_WINDOW":               "rate_limit.window",
	"RATE_LIMIT_BURST":                "rate_limit.burst",
	"OTEL_ENDPOINT":                   "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":     "otel.endpoint",
	"OTEL_SERVICE_NAME":               "otel.service_name",
	"OTEL_ENABLED":                    "otel.enabled",
	"OTEL_INSECURE":                   "otel.insecure",
	"OTEL_SAMPLE_RATE":                "otel.sample_rate",
	"NEXT_PUBLIC_JEMINAI_API_URL":     "gemini.api_key",
	"GEMINI_API_KEY":                  "gemini.api_key",
	"GEMINI_DEFAULT_MODEL":            "gemini.default_model",
	"GEMINI_GENERATION_TIMEOUT":       "gemini.generation_timeout",
	"TYPECAST_API_KEY":                "tts.typecast_api_key",
	"NAVER_CLOVA_CLIENT_ID":           "tts.naver_client_id",
	"NAVER_CLOVA_CLIENT_SECRET":       "tts.naver_client_secret",
	"STORAGE_ENDPOINT":                "storage.endpoint",
	"STORAGE_ACCESS_KEY":              "storage.access_key",
	"STORAGE_SECRET_KEY":              "storage.secret_key",
	"STORAGE_REGION":                  "storage.region",
	"STORAGE_PUBLIC_BASE_URL":         "storage.public_base_url",
	"PDF_CHROME_BIN":                  "pdf.chrome_bin",
	"PDF_MAX_HEIGHT_PX":               "pdf.max_height_px",
	"CREDENTIAL_ENCRYPTION_KEY":       "credentials.encryption_key",
	"NEXT_PUBLIC_GEMINI_LIVE_API_KEY": "voice.live_api_key",
	"GEMINI_LIVE_MODEL":               "voice.live_model",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

type rule struct {
	broken  func(*Config) bool
	problem string
}

func check(c *Config, rules ...[]rule) error {
	var errs []error
	for _, set := range rules {
		for _, r := range set {
			if r.broken(c) {
				errs = append(errs, errors.New(r.problem))
			}
		}
	}
	return errors.Join(errs...)
}

var sharedRules = []rule{
	{
		func(c *Config) bool {
			return c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*")
		},
		"CORS wildcard '*' cannot be used with AllowCredentials",
	},
	{
		func(c *Config) bool { return c.IsProduction() && c.Otel.Enabled && c.Otel.Insecure },
		"OTEL_INSECURE must be false in production",
	},
	{
		func(c *Config) bool { return c.Server.ReadTimeout <= 0 },
		"server.read_timeout must be positive",
	},
	{
		func(c *Config) bool { return c.Server.WriteTimeout <= 0 },
		"server.write_timeout must be positive",
	},
	{
		func(c *Config) bool { return c.Gemini.MaxAttempts < 1 },
		"gemini.max_attempts must be at least 1",
	},
}

var apiRules = []rule{
	{func(c *Config) bool { return c.Database.URL == "" }, "DATABASE_URL is required"},
	{func(c *Config) bool { return c.Redis.URL == "" }, "REDIS_URL is required"},
	{func(c *Config) bool { return c.JWT.PrivateKeyPath == "" }, "JWT_PRIVATE_KEY_PATH is required"},
	{func(c *Config) bool { return c.JWT.PublicKeyPath == "" }, "JWT_PUBLIC_KEY_PATH is required"},
	{
		func(c *Config) bool {
			if c.Credentials.EncryptionKey == "" {
				return false
			}
			key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Credentials.EncryptionKey))
			return err != nil || len(key) != 32
		},
		"CREDENTIAL_ENCRYPTION_KEY must be 32 bytes of base64",
	},
	{
		func(c *Config) bool { return c.PDF.MaxHeightPx <= 0 },
		"pdf.max_height_px must be positive",
	},
	{
		func(c *Config) bool {
			return c.Admin.BootstrapUsername != "" && len(c.Admin.BootstrapPassword) < 8
		},
		"ADMIN_PASSWORD must be at least 8 characters",
	},
}

var relayRules = []rule{
	{func(c *Config) bool { return c.Gemini.APIKey == "" }, "GEMINI_API_KEY is required"},
}

func validate(c *Config) error {
	return check(c, apiRules, sharedRules)
}

func validateRelay(c *Config) error {
	return check(c, relayRules, sharedRules)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsAllowed reports whether model may be requested by callers.
func (g *GeminiConfig) IsAllowed(model string) bool {
	return slices.Contains(g.AllowedModels, model)
}

// ResolveModel returns model when it is allowed and the default otherwise.
func (g *GeminiConfig) ResolveModel(model string) string {
	model = strings.TrimSpace(model)
	if model != "" && g.IsAllowed(model) {
		return model
	}
	return g.DefaultModel
}
