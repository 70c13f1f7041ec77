// AngelaMos | 2026
// entity.go

package settings

import (
	"time"
)

const (
	ProviderTypecast = "typecast"
	ProviderNaver    = "naver"

	DefaultNaverSpeaker = "nara"
)

type AppSettings struct {
	ID                      int       `db:"id"`
	SelectedTTSProvider     string    `db:"selected_tts_provider"`
	SelectedTypecastVoiceID string    `db:"selected_typecast_voice_id"`
	SelectedNaverSpeaker    string    `db:"selected_naver_speaker"`
	UpdatedAt               time.Time `db:"updated_at"`
}

func Defaults() *AppSettings {
	return &AppSettings{
		ID:                   1,
		SelectedTTSProvider:  ProviderNaver,
		SelectedNaverSpeaker: DefaultNaverSpeaker,
	}
}
