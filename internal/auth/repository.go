// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, a *AdminAccount) error
	GetByID(ctx context.Context, id string) (*AdminAccount, error)
	GetByUsername(ctx context.Context, username string) (*AdminAccount, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	TouchLogin(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const adminColumns = `id, username, password_hash, token_version, created_at, last_login_at`

func (r *repository) Create(ctx context.Context, a *AdminAccount) error {
	query := `
		INSERT INTO admin_accounts (username, password_hash)
		VALUES ($1, $2)
		RETURNING ` + adminColumns

	err := r.db.GetContext(ctx, a, query, a.Username, a.PasswordHash)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create admin: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create admin: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*AdminAccount, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_accounts WHERE id = $1`

	var a AdminAccount
	err := r.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return &a, nil
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*AdminAccount, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_accounts WHERE LOWER(username) = LOWER($1)`

	var a AdminAccount
	err := r.db.GetContext(ctx, &a, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin by username: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by username: %w", err)
	}

	return &a, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE admin_accounts SET password_hash = $2 WHERE id = $1`
	return r.execOne(ctx, "update admin password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	query := `UPDATE admin_accounts SET token_version = token_version + 1 WHERE id = $1`
	return r.execOne(ctx, "increment token version", query, id)
}

func (r *repository) TouchLogin(ctx context.Context, id string) error {
	query := `UPDATE admin_accounts SET last_login_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "touch admin login", query, id)
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}
