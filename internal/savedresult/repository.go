// AngelaMos | 2026
// repository.go

package savedresult

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, cred *UserCredential, result *SavedResult) error
	GetByID(ctx context.Context, id string) (*SavedResult, error)
	List(ctx context.Context, params ListParams) ([]SavedResult, int, error)
	Delete(ctx context.Context, id string) error
	SetPDFURL(ctx context.Context, id, url string) error
	CredentialBatch(ctx context.Context, after *CredentialCursor, limit int) ([]UserCredential, error)
	ListByCredentials(ctx context.Context, credentialIDs []string) ([]SavedResult, error)
}

// CredentialCursor is the keyset position of the last credential seen.
type CredentialCursor struct {
	CreatedAt time.Time
	ID        string
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const resultColumns = `
		id, content_id, title, html, model, user_name, user_info,
		menu_items, pdf_url, credential_id, created_at`

func (r *repository) Create(
	ctx context.Context,
	cred *UserCredential,
	result *SavedResult,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, cred, `
			INSERT INTO user_credentials (phone_encrypted, password_encrypted)
			VALUES ($1, $2)
			RETURNING id, phone_encrypted, password_encrypted, created_at`,
			cred.PhoneEncrypted,
			cred.PasswordEncrypted,
		)
		if err != nil {
			return fmt.Errorf("create credential: %w", err)
		}

		result.CredentialID = &cred.ID

		row := tx.QueryRowxContext(ctx, `
			INSERT INTO saved_results (
				content_id, title, html, model, user_name, user_info,
				menu_items, credential_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`,
			result.ContentID,
			result.Title,
			result.HTML,
			result.Model,
			result.UserName,
			result.UserInfo,
			result.MenuItems,
			result.CredentialID,
		)
		if err := row.Scan(&result.ID, &result.CreatedAt); err != nil {
			if core.IsForeignKeyError(err) {
				return fmt.Errorf("create saved result: %w", core.ErrInvalidInput)
			}
			return fmt.Errorf("create saved result: %w", err)
		}

		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*SavedResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM saved_results
		WHERE id = $1`

	var result SavedResult
	err := r.db.GetContext(ctx, &result, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get saved result: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get saved result: %w", err)
	}

	return &result, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]SavedResult, int, error) {
	params.Normalize()

	whereClause := "TRUE"
	var args []any
	if params.Search != "" {
		whereClause = "(title ILIKE $1 OR user_name ILIKE $1)"
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM saved_results WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count saved results: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM saved_results
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		resultColumns, whereClause, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var results []SavedResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list saved results: %w", err)
	}

	return results, total, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete saved result: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved result: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete saved result: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) SetPDFURL(ctx context.Context, id, url string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE saved_results SET pdf_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set pdf url: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pdf url: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set pdf url: %w", core.ErrNotFound)
	}

	return nil
}

// CredentialBatch pages through credentials newest first.
func (r *repository) CredentialBatch(
	ctx context.Context,
	after *CredentialCursor,
	limit int,
) ([]UserCredential, error) {
	var (
		creds []UserCredential
		err   error
	)

	if after == nil {
		err = r.db.SelectContext(ctx, &creds, `
			SELECT id, phone_encrypted, password_encrypted, created_at
			FROM user_credentials
			ORDER BY created_at DESC, id DESC
			LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &creds, `
			SELECT id, phone_encrypted, password_encrypted, created_at
			FROM user_credentials
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scan credentials: %w", err)
	}

	return creds, nil
}

func (r *repository) ListByCredentials(
	ctx context.Context,
	credentialIDs []string,
) ([]SavedResult, error) {
	if len(credentialIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+resultColumns+`
		FROM saved_results
		WHERE credential_id IN (?)
		ORDER BY created_at DESC`, credentialIDs)
	if err != nil {
		return nil, fmt.Errorf("list results by credential: %w", err)
	}

	var results []SavedResult
	if err := r.db.SelectContext(ctx, &results, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list results by credential: %w", err)
	}

	return results, nil
}
