// AngelaMos | 2026
// dto.go

package voice

import (
	"encoding/json"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type UpdateConfigRequest struct {
	Modes       map[string]ModePreset `json:"modes"        validate:"omitempty,dive,keys,required,max=50,endkeys"`
	DefaultMode *string               `json:"default_mode" validate:"omitempty,min=1,max=50"`
	Model       *string               `json:"model"        validate:"omitempty,max=100"`
	Enabled     *bool                 `json:"enabled"`
}

// PublicConfig omits system prompts.
type PublicConfig struct {
	Enabled     bool                  `json:"enabled"`
	DefaultMode string                `json:"default_mode"`
	Modes       map[string]PublicMode `json:"modes"`
}

type PublicMode struct {
	VoiceName string `json:"voice_name"`
	Persona   string `json:"persona"`
	Greeting  string `json:"greeting"`
}

type CreateSessionRequest struct {
	Mode       string          `json:"mode"        validate:"max=50"`
	Profile    json.RawMessage `json:"profile"`
	ManseRyeok json.RawMessage `json:"manse_ryeok"`
}

type AppendTranscriptRequest struct {
	Entries []TranscriptInput `json:"entries" validate:"required,min=1,max=100,dive"`
}

type TranscriptInput struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required,max=10000"`
}

type ListSessionsParams struct {
	core.PageParams
	Status string
}

func ToPublicConfig(c *Config) PublicConfig {
	modes := make(map[string]PublicMode, len(c.Modes.V))
	for name, p := range c.Modes.V {
		modes[name] = PublicMode{
			VoiceName: p.VoiceName,
			Persona:   p.Persona,
			Greeting:  p.Greeting,
		}
	}
	return PublicConfig{
		Enabled:     c.Enabled,
		DefaultMode: c.DefaultMode,
		Modes:       modes,
	}
}
