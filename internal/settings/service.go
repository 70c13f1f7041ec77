// AngelaMos | 2026
// service.go

package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored settings, or the defaults when the row has not
// been written yet.
func (s *Service) Get(ctx context.Context) (*AppSettings, error) {
	current, err := s.repo.Get(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) Update(
	ctx context.Context,
	req UpdateSettingsRequest,
) (*AppSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.SelectedTTSProvider != nil {
		current.SelectedTTSProvider = *req.SelectedTTSProvider
	}
	if req.SelectedTypecastVoiceID != nil {
		current.SelectedTypecastVoiceID = *req.SelectedTypecastVoiceID
	}
	if req.SelectedNaverSpeaker != nil {
		current.SelectedNaverSpeaker = *req.SelectedNaverSpeaker
	}

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	return current, nil
}
