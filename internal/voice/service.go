// AngelaMos | 2026
// service.go

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
)

var (
	ErrVoiceDisabled = errors.New("voice mvp is disabled")
	ErrSessionEnded  = errors.New("voice session has ended")
)

type Service struct {
	repo         Repository
	defaultModel string
	now          func() time.Time
}

func NewService(repo Repository, defaultModel string) *Service {
	return &Service{repo: repo, defaultModel: defaultModel, now: time.Now}
}

func (s *Service) Config(ctx context.Context) (*Config, error) {
	c, err := s.repo.GetConfig(ctx)
	if errors.Is(err, core.ErrNotFound) {
		c = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	if c.Model == "" {
		c.Model = s.defaultModel
	}
	return c, nil
}

func (s *Service) UpdateConfig(ctx context.Context, req UpdateConfigRequest) (*Config, error) {
	c, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}

	if req.Modes != nil {
		c.Modes = core.NewJSONB(req.Modes)
	}
	if req.DefaultMode != nil {
		c.DefaultMode = *req.DefaultMode
	}
	if req.Model != nil {
		c.Model = strings.TrimSpace(*req.Model)
	}
	if req.Enabled != nil {
		c.Enabled = *req.Enabled
	}

	if _, ok := c.Modes.V[c.DefaultMode]; !ok {
		return nil, fmt.Errorf("default mode %q has no preset: %w", c.DefaultMode, core.ErrInvalidInput)
	}

	if err := s.repo.UpsertConfig(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	c, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	if !c.Enabled {
		return nil, ErrVoiceDisabled
	}

	mode, _, ok := c.Preset(req.Mode)
	if !ok {
		return nil, fmt.Errorf("mode %q has no preset: %w", req.Mode, core.ErrInvalidInput)
	}

	session := &Session{
		Mode:       mode,
		Profile:    core.NewJSONB(nullIfEmpty(req.Profile)),
		ManseRyeok: core.NewJSONB(nullIfEmpty(req.ManseRyeok)),
		Transcript: core.NewJSONB([]TranscriptEntry{}),
		Status:     StatusActive,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) AppendTranscript(ctx context.Context, id string, inputs []TranscriptInput) error {
	now := s.now().UTC()

	entries := make([]TranscriptEntry, 0, len(inputs))
	for _, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			continue
		}
		entries = append(entries, TranscriptEntry{Role: in.Role, Text: text, At: now})
	}
	if len(entries) == 0 {
		return nil
	}

	return s.repo.AppendTranscript(ctx, id, entries)
}

func (s *Service) EndSession(ctx context.Context, id string) (*Session, error) {
	return s.repo.EndSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, params ListSessionsParams) ([]Session, int, error) {
	return s.repo.ListSessions(ctx, params)
}

// LiveOptions resolves the preset and system instruction for a live call.
func (s *Service) LiveOptions(ctx context.Context, session *Session) (gemini.LiveOptions, string, error) {
	c, err := s.Config(ctx)
	if err != nil {
		return gemini.LiveOptions{}, "", err
	}
	if !c.Enabled {
		return gemini.LiveOptions{}, "", ErrVoiceDisabled
	}

	_, preset, ok := c.Preset(session.Mode)
	if !ok {
		return gemini.LiveOptions{}, "", fmt.Errorf("mode %q has no preset: %w", session.Mode, core.ErrInvalidInput)
	}

	return gemini.LiveOptions{
		Model:             c.Model,
		VoiceName:         preset.VoiceName,
		SystemInstruction: BuildSystemInstruction(preset, session),
	}, preset.Greeting, nil
}

func BuildSystemInstruction(preset ModePreset, session *Session) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(preset.SystemPrompt))
	b.WriteString("\n")

	if preset.Persona != "" {
		fmt.Fprintf(&b, "\n[페르소나]\n%s\n", preset.Persona)
	}

	writeJSONSection(&b, "의뢰인 정보", session.Profile.V)
	writeJSONSection(&b, "만세력", session.ManseRyeok.V)

	if preset.Greeting != "" {
		fmt.Fprintf(&b, "\n[첫 인사]\n대화를 시작하면 먼저 다음과 같이 인사하세요: %s\n", preset.Greeting)
	}

	return strings.TrimSpace(b.String())
}

func writeJSONSection(b *strings.Builder, label string, raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return
	}
	fmt.Fprintf(b, "\n[%s]\n%s\n", label, pretty.String())
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
