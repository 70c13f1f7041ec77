// AngelaMos | 2026
// tts_test.go

package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/settings"
)

type staticSettings struct {
	s   *settings.AppSettings
	err error
}

func (f staticSettings) Get(context.Context) (*settings.AppSettings, error) {
	return f.s, f.err
}

type vendorServers struct {
	typecast      *httptest.Server
	naver         *httptest.Server
	typecastCalls atomic.Int32
	naverCalls    atomic.Int32
	typecastCodes []int
	naverForms    []url.Values
}

func newVendorServers(t *testing.T, typecastCodes ...int) *vendorServers {
	t.Helper()
	v := &vendorServers{typecastCodes: typecastCodes}

	v.typecast = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(v.typecastCalls.Add(1)) - 1

		assert.Equal(t, "tc-key", r.Header.Get("X-API-KEY"))

		var body typecastRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "kor", body.Language)
		assert.Equal(t, "mp3", body.Output.AudioFormat)

		code := http.StatusOK
		if n < len(v.typecastCodes) {
			code = v.typecastCodes[n]
		}
		if code != http.StatusOK {
			http.Error(w, "vendor error", code)
			return
		}
		_, _ = w.Write([]byte("TYPECAST:" + body.VoiceID))
	}))

	v.naver = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.naverCalls.Add(1)

		assert.Equal(t, "nc-id", r.Header.Get("X-NCP-APIGW-API-KEY-ID"))
		assert.Equal(t, "nc-secret", r.Header.Get("X-NCP-APIGW-API-KEY"))
		assert.NoError(t, r.ParseForm())
		v.naverForms = append(v.naverForms, r.PostForm)

		_, _ = w.Write([]byte("NAVER:" + r.PostForm.Get("speaker") + ";"))
	}))

	t.Cleanup(v.typecast.Close)
	t.Cleanup(v.naver.Close)
	return v
}

func (v *vendorServers) config() config.TTSConfig {
	return config.TTSConfig{
		TypecastAPIKey:    "tc-key",
		TypecastURL:       v.typecast.URL,
		TypecastModel:     "ssfm-v21",
		NaverClientID:     "nc-id",
		NaverClientSecret: "nc-secret",
		NaverURL:          v.naver.URL,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    500 * time.Millisecond,
		CacheTTL:          time.Hour,
		MaxTextLength:     5000,
	}
}

func newTestService(
	t *testing.T,
	cfg config.TTSConfig,
	reader SettingsReader,
	cache *AudioCache,
	waits *[]time.Duration,
) *Service {
	t.Helper()

	svc := NewServiceFromConfig(cfg, reader, cache, nil)
	svc.opts.Sleep = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return svc
}

func typecastSelected(voice string) staticSettings {
	return staticSettings{s: &settings.AppSettings{
		SelectedTTSProvider:     settings.ProviderTypecast,
		SelectedTypecastVoiceID: voice,
		SelectedNaverSpeaker:    "nminsang",
	}}
}

func TestSynthesizeUsesTypecast(t *testing.T) {
	v := newVendorServers(t)
	svc := newTestService(t, v.config(), typecastSelected("tc_123"), nil, nil)

	audio, err := svc.Synthesize(context.Background(), "안녕하세요")
	require.NoError(t, err)

	assert.Equal(t, settings.ProviderTypecast, audio.Provider)
	assert.Equal(t, "TYPECAST:tc_123", string(audio.Data))
	assert.Equal(t, int32(0), v.naverCalls.Load())
}

func TestSynthesizeFallsBackToNaver(t *testing.T) {
	tests := []struct {
		name          string
		codes         []int
		typecastCalls int32
	}{
		{"payment required", []int{http.StatusPaymentRequired}, 1},
		{"server error", []int{http.StatusInternalServerError}, 1},
		{"rate limited past retries", []int{429, 429, 429, 429}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVendorServers(t, tt.codes...)
			svc := newTestService(t, v.config(), typecastSelected("tc_123"), nil, nil)

			audio, err := svc.Synthesize(context.Background(), "안녕하세요")
			require.NoError(t, err)

			assert.Equal(t, settings.ProviderNaver, audio.Provider)
			assert.Equal(t, "NAVER:nminsang;", string(audio.Data))
			assert.Equal(t, tt.typecastCalls, v.typecastCalls.Load())
		})
	}
}

func TestSynthesizeRetriesRateLimit(t *testing.T) {
	v := newVendorServers(t, 429, 429)
	var waits []time.Duration
	svc := newTestService(t, v.config(), typecastSelected("tc_123"), nil, &waits)

	audio, err := svc.Synthesize(context.Background(), "안녕")
	require.NoError(t, err)

	assert.Equal(t, settings.ProviderTypecast, audio.Provider)
	assert.Equal(t, int32(3), v.typecastCalls.Load())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, waits)
}

func TestSynthesizeSkipsTypecastWithoutCall(t *testing.T) {
	t.Run("voice without prefix", func(t *testing.T) {
		v := newVendorServers(t)
		svc := newTestService(t, v.config(), typecastSelected("voice-1"), nil, nil)

		audio, err := svc.Synthesize(context.Background(), "안녕")
		require.NoError(t, err)
		assert.Equal(t, settings.ProviderNaver, audio.Provider)
		assert.Equal(t, int32(0), v.typecastCalls.Load())
	})

	t.Run("missing api key", func(t *testing.T) {
		v := newVendorServers(t)
		cfg := v.config()
		cfg.TypecastAPIKey = ""
		svc := newTestService(t, cfg, typecastSelected("tc_123"), nil, nil)

		audio, err := svc.Synthesize(context.Background(), "안녕")
		require.NoError(t, err)
		assert.Equal(t, settings.ProviderNaver, audio.Provider)
		assert.Equal(t, int32(0), v.typecastCalls.Load())
	})

	t.Run("settings error", func(t *testing.T) {
		v := newVendorServers(t)
		svc := newTestService(t, v.config(), staticSettings{err: errors.New("db down")}, nil, nil)

		audio, err := svc.Synthesize(context.Background(), "안녕")
		require.NoError(t, err)
		assert.Equal(t, settings.ProviderNaver, audio.Provider)
		assert.Equal(t, "NAVER:"+settings.DefaultNaverSpeaker+";", string(audio.Data))
		assert.Equal(t, int32(0), v.typecastCalls.Load())
	})
}

func TestSynthesizeCachesAudio(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	v := newVendorServers(t)
	cache := NewAudioCache(client, time.Hour)
	svc := newTestService(t, v.config(), typecastSelected("tc_123"), cache, nil)

	first, err := svc.Synthesize(context.Background(), "반갑습니다")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Synthesize(context.Background(), "반갑습니다")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, int32(1), v.typecastCalls.Load())

	assert.True(t, mr.Exists(CacheKey(settings.ProviderTypecast, "tc_123", "반갑습니다")))
	assert.Greater(t, mr.TTL(CacheKey(settings.ProviderTypecast, "tc_123", "반갑습니다")), time.Duration(0))
}

func TestNaverSplitsLongText(t *testing.T) {
	v := newVendorServers(t)
	client := NewNaverClient(http.DefaultClient, v.config())

	sentence := strings.Repeat("가", 999) + "."
	text := strings.Repeat(sentence, 5)

	audio, err := client.Synthesize(context.Background(), "nara", text)
	require.NoError(t, err)

	require.Len(t, v.naverForms, 3)
	for _, form := range v.naverForms {
		assert.LessOrEqual(t, len([]rune(form.Get("text"))), naverMaxChunkRunes)
		assert.Equal(t, "mp3", form.Get("format"))
	}
	assert.Equal(t, strings.Repeat("NAVER:nara;", 3), string(audio))
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "안녕하세요.", 10, []string{"안녕하세요."}},
		{"empty", "   ", 10, nil},
		{"sentence boundary", "하나. 둘. 셋.", 6, []string{"하나. 둘.", "셋."}},
		{"hard cut", "가나다라마바사", 3, []string{"가나다", "라마바", "사"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitText(tt.text, tt.limit))
		})
	}
}

func TestHandlerReturnsAudio(t *testing.T) {
	v := newVendorServers(t)
	svc := newTestService(t, v.config(), typecastSelected("tc_123"), nil, nil)
	h := NewHandler(svc, 5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tts",
		strings.NewReader(`{"text":"가나다라마바사","provider":"naver","voice_id":"x"}`))

	h.Synthesize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, settings.ProviderTypecast, rec.Header().Get("X-TTS-Provider"))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "TYPECAST:tc_123", string(body))
}

func TestHandlerRejectsEmptyText(t *testing.T) {
	v := newVendorServers(t)
	h := NewHandler(newTestService(t, v.config(), typecastSelected("tc_123"), nil, nil), 100)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(`{"text":"  "}`))

	h.Synthesize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
