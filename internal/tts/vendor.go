// AngelaMos | 2026
// vendor.go

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	naverMaxChunkRunes = 2000
	maxAudioBytes      = 50 << 20
	maxErrorBodyBytes  = 2048
)

// StatusError is returned when a vendor answers with a non-2xx status.
type StatusError struct {
	Vendor     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Vendor, e.StatusCode, e.Body)
}

type TypecastClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	model      string
}

func NewTypecastClient(httpClient *http.Client, cfg config.TTSConfig) *TypecastClient {
	return &TypecastClient{
		httpClient: httpClient,
		apiKey:     strings.TrimSpace(cfg.TypecastAPIKey),
		endpoint:   cfg.TypecastURL,
		model:      cfg.TypecastModel,
	}
}

func (c *TypecastClient) Configured() bool {
	return c.apiKey != ""
}

type typecastRequest struct {
	VoiceID  string         `json:"voice_id"`
	Text     string         `json:"text"`
	Model    string         `json:"model"`
	Language string         `json:"language"`
	Prompt   typecastPrompt `json:"prompt"`
	Output   typecastOutput `json:"output"`
}

type typecastPrompt struct {
	EmotionPreset    string  `json:"emotion_preset"`
	EmotionIntensity float64 `json:"emotion_intensity"`
}

type typecastOutput struct {
	AudioFormat string `json:"audio_format"`
	Volume      int    `json:"volume"`
	AudioTempo  int    `json:"audio_tempo"`
}

func (c *TypecastClient) Synthesize(
	ctx context.Context,
	voiceID, text string,
) ([]byte, error) {
	ctx, span := core.StartSpan(ctx, "tts.typecast",
		attribute.String("tts.voice", voiceID),
		attribute.Int("tts.text_runes", utf8.RuneCountInString(text)),
	)
	defer span.End()

	body, err := json.Marshal(typecastRequest{
		VoiceID:  voiceID,
		Text:     text,
		Model:    c.model,
		Language: "kor",
		Prompt: typecastPrompt{
			EmotionPreset:    "normal",
			EmotionIntensity: 1,
		},
		Output: typecastOutput{
			AudioFormat: "mp3",
			Volume:      100,
			AudioTempo:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal typecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build typecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	audio, err := doAudio(c.httpClient, req, "typecast")
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	return audio, nil
}

type NaverClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	endpoint     string
}

func NewNaverClient(httpClient *http.Client, cfg config.TTSConfig) *NaverClient {
	return &NaverClient{
		httpClient:   httpClient,
		clientID:     strings.TrimSpace(cfg.NaverClientID),
		clientSecret: strings.TrimSpace(cfg.NaverClientSecret),
		endpoint:     cfg.NaverURL,
	}
}

// Synthesize splits text into sentence-aligned chunks the vendor accepts
// and concatenates the resulting MP3 frames.
func (c *NaverClient) Synthesize(
	ctx context.Context,
	speaker, text string,
) ([]byte, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, fmt.Errorf("naver clova credentials are not configured")
	}

	ctx, span := core.StartSpan(ctx, "tts.naver",
		attribute.String("tts.voice", speaker),
		attribute.Int("tts.text_runes", utf8.RuneCountInString(text)),
	)
	defer span.End()

	chunks := SplitText(text, naverMaxChunkRunes)
	span.SetAttributes(attribute.Int("tts.chunks", len(chunks)))

	var out bytes.Buffer
	for i, chunk := range chunks {
		audio, err := c.synthesizeChunk(ctx, speaker, chunk)
		if err != nil {
			core.SetSpanError(ctx, err)
			return nil, fmt.Errorf("naver chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out.Write(audio)
	}

	return out.Bytes(), nil
}

func (c *NaverClient) synthesizeChunk(
	ctx context.Context,
	speaker, text string,
) ([]byte, error) {
	form := url.Values{}
	form.Set("speaker", speaker)
	form.Set("volume", "0")
	form.Set("speed", "0")
	form.Set("pitch", "0")
	form.Set("format", "mp3")
	form.Set("text", text)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("build naver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", c.clientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", c.clientSecret)

	return doAudio(c.httpClient, req, "naver")
}

func doAudio(client *http.Client, req *http.Request, vendor string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", vendor, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		//nolint:errcheck // best-effort error detail
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{
			Vendor:     vendor,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s audio: %w", vendor, err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("%s returned empty audio", vendor)
	}

	return audio, nil
}

// SplitText breaks text into pieces of at most limit runes, cutting after
// sentence punctuation or line breaks where possible.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current []rune
	)

	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
	}

	for _, sentence := range splitSentences(text) {
		runes := []rune(sentence)

		for len(runes) > limit {
			flush()
			chunks = append(chunks, strings.TrimSpace(string(runes[:limit])))
			runes = runes[limit:]
		}

		if len(current)+len(runes) > limit {
			flush()
		}
		current = append(current, runes...)
	}
	flush()

	return chunks
}

func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '.', '!', '?', '\n', '。':
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}
