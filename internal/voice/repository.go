// AngelaMos | 2026
// repository.go

package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Repository interface {
	GetConfig(ctx context.Context) (*Config, error)
	UpsertConfig(ctx context.Context, c *Config) error
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	AppendTranscript(ctx context.Context, id string, entries []TranscriptEntry) error
	EndSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, params ListSessionsParams) ([]Session, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const sessionColumns = `id, mode, profile, manse_ryeok, transcript, status, created_at, ended_at`

func (r *repository) GetConfig(ctx context.Context) (*Config, error) {
	query := `
		SELECT id, modes, default_mode, model, enabled, updated_at
		FROM voice_mvp_config
		WHERE id = 1`

	var c Config
	err := r.db.GetContext(ctx, &c, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get voice config: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get voice config: %w", err)
	}

	return &c, nil
}

func (r *repository) UpsertConfig(ctx context.Context, c *Config) error {
	query := `
		INSERT INTO voice_mvp_config (id, modes, default_mode, model, enabled)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET modes = EXCLUDED.modes, default_mode = EXCLUDED.default_mode,
		    model = EXCLUDED.model, enabled = EXCLUDED.enabled,
		    updated_at = NOW()
		RETURNING updated_at`

	c.ID = 1
	if err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.Modes,
		c.DefaultMode,
		c.Model,
		c.Enabled,
	); err != nil {
		return fmt.Errorf("upsert voice config: %w", err)
	}

	return nil
}

func (r *repository) CreateSession(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO voice_mvp_sessions (mode, profile, manse_ryeok, transcript, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	row := r.db.QueryRowxContext(ctx, query,
		s.Mode,
		s.Profile,
		s.ManseRyeok,
		s.Transcript,
		s.Status,
	)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("create voice session: %w", err)
	}

	return nil
}

func (r *repository) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM voice_mvp_sessions WHERE id = $1`

	var s Session
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get voice session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get voice session: %w", err)
	}

	return &s, nil
}

// AppendTranscript concatenates entries onto the stored jsonb array in
// one statement so concurrent appends do not overwrite each other.
func (r *repository) AppendTranscript(
	ctx context.Context,
	id string,
	entries []TranscriptEntry,
) error {
	query := `
		UPDATE voice_mvp_sessions
		SET transcript = COALESCE(transcript, '[]'::jsonb) || $2::jsonb
		WHERE id = $1 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, id, core.NewJSONB(entries))
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("append transcript: %w", r.inactiveReason(ctx, id))
	}

	return nil
}

// inactiveReason tells a missing session apart from one that has ended.
func (r *repository) inactiveReason(ctx context.Context, id string) error {
	var status string
	err := r.db.GetContext(ctx, &status,
		`SELECT status FROM voice_mvp_sessions WHERE id = $1`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotFound
	case err != nil:
		return err
	case status != StatusActive:
		return ErrSessionEnded
	default:
		return core.ErrNotFound
	}
}

func (r *repository) EndSession(ctx context.Context, id string) (*Session, error) {
	query := `
		UPDATE voice_mvp_sessions
		SET status = 'ended', ended_at = COALESCE(ended_at, NOW())
		WHERE id = $1
		RETURNING ` + sessionColumns

	var s Session
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("end voice session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("end voice session: %w", err)
	}

	return &s, nil
}

func (r *repository) ListSessions(
	ctx context.Context,
	params ListSessionsParams,
) ([]Session, int, error) {
	params.Normalize()

	whereClause := "TRUE"
	var args []any
	if params.Status != "" {
		whereClause = "status = $1"
		args = append(args, params.Status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM voice_mvp_sessions WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count voice sessions: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM voice_mvp_sessions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		sessionColumns, whereClause, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list voice sessions: %w", err)
	}

	return sessions, total, nil
}
