// AngelaMos | 2026
// dto.go

package settings

import (
	"time"
)

type UpdateSettingsRequest struct {
	SelectedTTSProvider     *string `json:"selected_tts_provider,omitempty"      validate:"omitempty,oneof=typecast naver"`
	SelectedTypecastVoiceID *string `json:"selected_typecast_voice_id,omitempty" validate:"omitempty,max=100"`
	SelectedNaverSpeaker    *string `json:"selected_naver_speaker,omitempty"     validate:"omitempty,min=1,max=50"`
}

type SettingsResponse struct {
	SelectedTTSProvider     string    `json:"selected_tts_provider"`
	SelectedTypecastVoiceID string    `json:"selected_typecast_voice_id"`
	SelectedNaverSpeaker    string    `json:"selected_naver_speaker"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func ToSettingsResponse(s *AppSettings) SettingsResponse {
	return SettingsResponse{
		SelectedTTSProvider:     s.SelectedTTSProvider,
		SelectedTypecastVoiceID: s.SelectedTypecastVoiceID,
		SelectedNaverSpeaker:    s.SelectedNaverSpeaker,
		UpdatedAt:               s.UpdatedAt,
	}
}
