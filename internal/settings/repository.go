// AngelaMos | 2026
// repository.go

package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const singletonID = 1

type Repository interface {
	Get(ctx context.Context) (*AppSettings, error)
	Upsert(ctx context.Context, s *AppSettings) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context) (*AppSettings, error) {
	query := `
		SELECT id, selected_tts_provider,
		       COALESCE(selected_typecast_voice_id, '') AS selected_typecast_voice_id,
		       COALESCE(selected_naver_speaker, '') AS selected_naver_speaker,
		       updated_at
		FROM app_settings
		WHERE id = $1`

	var s AppSettings
	err := r.db.GetContext(ctx, &s, query, singletonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get settings: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &s, nil
}

func (r *repository) Upsert(ctx context.Context, s *AppSettings) error {
	query := `
		INSERT INTO app_settings (
			id, selected_tts_provider, selected_typecast_voice_id,
			selected_naver_speaker, updated_at
		)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			selected_tts_provider = EXCLUDED.selected_tts_provider,
			selected_typecast_voice_id = EXCLUDED.selected_typecast_voice_id,
			selected_naver_speaker = EXCLUDED.selected_naver_speaker,
			updated_at = NOW()
		RETURNING updated_at`

	s.ID = singletonID
	err := r.db.GetContext(ctx, &s.UpdatedAt, query,
		s.ID,
		s.SelectedTTSProvider,
		s.SelectedTypecastVoiceID,
		s.SelectedNaverSpeaker,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	return nil
}
