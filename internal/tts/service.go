// AngelaMos | 2026
// service.go

package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/settings"
)

const typecastVoicePrefix = "tc_"

type SettingsReader interface {
	Get(ctx context.Context) (*settings.AppSettings, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

type Audio struct {
	Data     []byte
	Provider string
	Voice    string
	Cached   bool
}

type Options struct {
	TypecastConfigured bool
	MaxRetries         int
	RetryBaseDelay     time.Duration
	Sleep              func(ctx context.Context, d time.Duration) error
	Logger             *slog.Logger
}

type Service struct {
	settings SettingsReader
	typecast Synthesizer
	naver    Synthesizer
	cache    *AudioCache
	opts     Options
}

func NewService(
	settingsReader SettingsReader,
	typecast, naver Synthesizer,
	cache *AudioCache,
	opts Options,
) *Service {
	if opts.Sleep == nil {
		opts.Sleep = gemini.SleepContext
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		settings: settingsReader,
		typecast: typecast,
		naver:    naver,
		cache:    cache,
		opts:     opts,
	}
}

// NewServiceFromConfig wires the vendor clients over a shared HTTP client.
func NewServiceFromConfig(
	cfg config.TTSConfig,
	settingsReader SettingsReader,
	cache *AudioCache,
	logger *slog.Logger,
) *Service {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	typecast := NewTypecastClient(httpClient, cfg)

	return NewService(
		settingsReader,
		typecast,
		NewNaverClient(httpClient, cfg),
		cache,
		Options{
			TypecastConfigured: typecast.Configured(),
			MaxRetries:         cfg.MaxRetries,
			RetryBaseDelay:     cfg.RetryBaseDelay,
			Logger:             logger,
		},
	)
}

type selection struct {
	provider      string
	typecastVoice string
	naverSpeaker  string
}

func (s *Service) selectProvider(ctx context.Context) selection {
	sel := selection{
		provider:     settings.ProviderNaver,
		naverSpeaker: settings.DefaultNaverSpeaker,
	}

	current, err := s.settings.Get(ctx)
	if err != nil {
		s.opts.Logger.Warn("tts settings unavailable, using naver", "error", err)
		return sel
	}

	if speaker := strings.TrimSpace(current.SelectedNaverSpeaker); speaker != "" {
		sel.naverSpeaker = speaker
	}

	if current.SelectedTTSProvider != settings.ProviderTypecast {
		return sel
	}

	voice := strings.TrimSpace(current.SelectedTypecastVoiceID)
	if !s.opts.TypecastConfigured || !strings.HasPrefix(voice, typecastVoicePrefix) {
		return sel
	}

	sel.provider = settings.ProviderTypecast
	sel.typecastVoice = voice
	return sel
}

func (s *Service) Synthesize(ctx context.Context, text string) (*Audio, error) {
	sel := s.selectProvider(ctx)

	if sel.provider == settings.ProviderTypecast {
		audio, err := s.cachedOrCall(ctx, settings.ProviderTypecast, sel.typecastVoice, text,
			func(ctx context.Context) ([]byte, error) {
				return s.callTypecast(ctx, sel.typecastVoice, text)
			})
		if err == nil {
			return audio, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		s.opts.Logger.Warn("typecast failed, falling back to naver",
			"voice", sel.typecastVoice,
			"error", err,
		)
	}

	audio, err := s.cachedOrCall(ctx, settings.ProviderNaver, sel.naverSpeaker, text,
		func(ctx context.Context) ([]byte, error) {
			return s.naver.Synthesize(ctx, sel.naverSpeaker, text)
		})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	return audio, nil
}

func (s *Service) cachedOrCall(
	ctx context.Context,
	provider, voice, text string,
	call func(context.Context) ([]byte, error),
) (*Audio, error) {
	data, hit, err := s.cache.Get(ctx, provider, voice, text)
	if err != nil {
		s.opts.Logger.Warn("tts cache read failed", "error", err)
	}
	if hit {
		return &Audio{Data: data, Provider: provider, Voice: voice, Cached: true}, nil
	}

	data, err = call(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, provider, voice, text, data); err != nil {
		s.opts.Logger.Warn("tts cache write failed", "error", err)
	}

	return &Audio{Data: data, Provider: provider, Voice: voice}, nil
}

// callTypecast retries only on 429. Every other failure returns at once so
// the caller can fall back.
func (s *Service) callTypecast(ctx context.Context, voice, text string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		audio, err := s.typecast.Synthesize(ctx, voice, text)
		if err == nil {
			return audio, nil
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) ||
			statusErr.StatusCode != http.StatusTooManyRequests ||
			attempt >= s.opts.MaxRetries {
			return nil, err
		}

		wait := s.opts.RetryBaseDelay * time.Duration(1<<attempt)
		s.opts.Logger.Info("typecast rate limited, backing off",
			"attempt", attempt+1,
			"wait", wait,
		)

		if err := s.opts.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}
