// AngelaMos | 2026
// config_test.go

package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	t.Setenv("GEMINI_API_KEY", "test-key")
	c, err := LoadRelay("")
	require.NoError(t, err)

	c.Database.URL = "postgres://localhost/fortune"
	c.Redis.URL = "redis://localhost:6379/0"
	return c
}

func TestLoadRelayDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_DEFAULT_MODEL", "gemini-2.5-pro")

	c, err := LoadRelay("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", c.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", c.Gemini.DefaultModel)
	assert.Equal(t, 3, c.Gemini.MaxAttempts)
	assert.Equal(t, 2*time.Second, c.Gemini.RetryDelay)
	assert.Equal(t, int32(65536), c.Gemini.MaxOutputTokens)
	assert.Equal(t, 54000, c.PDF.MaxHeightPx)
	assert.Equal(t, 60*time.Second, c.PDF.Timeout)
	assert.Equal(t, "admin_session", c.Admin.CookieName)
	assert.Equal(t, "thumbnails", c.Storage.ThumbnailBucket)
	assert.Equal(t, "pdfs", c.Storage.PDFBucket)
}

func TestLoadRelayRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("NEXT_PUBLIC_JEMINAI_API_URL", "")

	_, err := LoadRelay("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidate(t *testing.T) {
	key32 := base64.StdEncoding.EncodeToString(make([]byte, 32))
	key16 := base64.StdEncoding.EncodeToString(make([]byte, 16))

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Credentials.EncryptionKey = key32 },
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "missing redis",
			mutate:  func(c *Config) { c.Redis.URL = "" },
			wantErr: "REDIS_URL",
		},
		{
			name: "wildcard cors with credentials",
			mutate: func(c *Config) {
				c.CORS.AllowedOrigins = []string{"*"}
				c.CORS.AllowCredentials = true
			},
			wantErr: "CORS",
		},
		{
			name:    "short credential key",
			mutate:  func(c *Config) { c.Credentials.EncryptionKey = key16 },
			wantErr: "CREDENTIAL_ENCRYPTION_KEY",
		},
		{
			name:    "non-positive pdf height",
			mutate:  func(c *Config) { c.PDF.MaxHeightPx = 0 },
			wantErr: "max_height_px",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Gemini.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(c)

			err := validate(c)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveModel(t *testing.T) {
	g := GeminiConfig{
		DefaultModel:  "gemini-2.5-flash",
		AllowedModels: []string{"gemini-2.5-flash", "gemini-2.5-pro"},
	}

	assert.Equal(t, "gemini-2.5-pro", g.ResolveModel("gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-pro", g.ResolveModel("  gemini-2.5-pro "))
	assert.Equal(t, "gemini-2.5-flash", g.ResolveModel("gpt-4"))
	assert.Equal(t, "gemini-2.5-flash", g.ResolveModel(""))
	assert.False(t, g.IsAllowed("gpt-4"))
}
