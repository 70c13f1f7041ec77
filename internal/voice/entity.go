// AngelaMos | 2026
// entity.go

package voice

import (
	"encoding/json"
	"time"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"

	RoleUser  = "user"
	RoleModel = "model"

	DefaultMode = "saju"
)

type ModePreset struct {
	VoiceName    string `json:"voice_name"    validate:"max=50"`
	Persona      string `json:"persona"       validate:"max=200"`
	SystemPrompt string `json:"system_prompt" validate:"max=20000"`
	Greeting     string `json:"greeting"      validate:"max=1000"`
}

type Config struct {
	ID          int                               `db:"id"           json:"-"`
	Modes       core.JSONB[map[string]ModePreset] `db:"modes"        json:"modes"`
	DefaultMode string                            `db:"default_mode" json:"default_mode"`
	Model       string                            `db:"model"        json:"model"`
	Enabled     bool                              `db:"enabled"      json:"enabled"`
	UpdatedAt   time.Time                         `db:"updated_at"   json:"updated_at"`
}

// Preset returns the preset for mode, falling back to the default mode.
func (c *Config) Preset(mode string) (string, ModePreset, bool) {
	if p, ok := c.Modes.V[mode]; ok {
		return mode, p, true
	}
	p, ok := c.Modes.V[c.DefaultMode]
	return c.DefaultMode, p, ok
}

func DefaultConfig() *Config {
	return &Config{
		ID: 1,
		Modes: core.NewJSONB(map[string]ModePreset{
			DefaultMode: {
				VoiceName:    "Kore",
				Persona:      "따뜻한 명리 상담가",
				SystemPrompt: "당신은 사주 명리학에 정통한 상담가입니다. 의뢰인의 만세력과 프로필을 바탕으로 존댓말로 짧고 또렷하게 답하세요.",
				Greeting:     "안녕하세요. 오늘은 어떤 고민을 함께 살펴볼까요?",
			},
		}),
		DefaultMode: DefaultMode,
		Enabled:     true,
	}
}

type TranscriptEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Session struct {
	ID         string                        `db:"id"          json:"id"`
	Mode       string                        `db:"mode"        json:"mode"`
	Profile    core.JSONB[json.RawMessage]   `db:"profile"     json:"profile"`
	ManseRyeok core.JSONB[json.RawMessage]   `db:"manse_ryeok" json:"manse_ryeok"`
	Transcript core.JSONB[[]TranscriptEntry] `db:"transcript"  json:"transcript"`
	Status     string                        `db:"status"      json:"status"`
	CreatedAt  time.Time                     `db:"created_at"  json:"created_at"`
	EndedAt    *time.Time                    `db:"ended_at"    json:"ended_at"`
}

func (s *Session) Active() bool {
	return s.Status == StatusActive
}
