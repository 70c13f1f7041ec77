// AngelaMos | 2026
// repository.go

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, c *Content) error
	GetByID(ctx context.Context, id int64) (*Content, error)
	Update(ctx context.Context, c *Content) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListContentsParams) ([]Content, int, error)
	ListExposed(ctx context.Context) ([]Content, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const contentColumns = `
		id, content_type, content_name, role_prompt, restrictions,
		thumbnail_url, price, summary, introduction, recommendation,
		menu_font_size, subtitle_font_size, body_font_size, font_family,
		menu_items, is_exposed, is_new, preview_thumbnails,
		created_at, updated_at`

func (r *repository) Create(ctx context.Context, c *Content) error {
	query := `
		INSERT INTO contents (
			content_type, content_name, role_prompt, restrictions,
			thumbnail_url, price, summary, introduction, recommendation,
			menu_font_size, subtitle_font_size, body_font_size, font_family,
			menu_items, is_exposed, is_new, preview_thumbnails
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		c.ContentType,
		c.ContentName,
		c.RolePrompt,
		c.Restrictions,
		c.ThumbnailURL,
		c.Price,
		c.Summary,
		c.Introduction,
		c.Recommendation,
		c.MenuFontSize,
		c.SubtitleFontSize,
		c.BodyFontSize,
		c.FontFamily,
		c.MenuItems,
		c.IsExposed,
		c.IsNew,
		c.PreviewThumbnails,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create content: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create content: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Content, error) {
	query := `SELECT ` + contentColumns + `
		FROM contents
		WHERE id = $1`

	var c Content
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get content: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	return &c, nil
}

func (r *repository) Update(ctx context.Context, c *Content) error {
	query := `
		UPDATE contents
		SET content_type = $2, content_name = $3, role_prompt = $4,
		    restrictions = $5, thumbnail_url = $6, price = $7, summary = $8,
		    introduction = $9, recommendation = $10, menu_font_size = $11,
		    subtitle_font_size = $12, body_font_size = $13, font_family = $14,
		    menu_items = $15, is_exposed = $16, is_new = $17,
		    preview_thumbnails = $18, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID,
		c.ContentType,
		c.ContentName,
		c.RolePrompt,
		c.Restrictions,
		c.ThumbnailURL,
		c.Price,
		c.Summary,
		c.Introduction,
		c.Recommendation,
		c.MenuFontSize,
		c.SubtitleFontSize,
		c.BodyFontSize,
		c.FontFamily,
		c.MenuItems,
		c.IsExposed,
		c.IsNew,
		c.PreviewThumbnails,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update content: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("delete content: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("delete content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete content: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListContentsParams,
) ([]Content, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("content_name ILIKE $%d", argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	if params.ContentType != "" {
		conditions = append(conditions, fmt.Sprintf("content_type = $%d", argIdx))
		args = append(args, params.ContentType)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM contents WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contents: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM contents
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		contentColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var contents []Content
	if err := r.db.SelectContext(ctx, &contents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contents: %w", err)
	}

	return contents, total, nil
}

func (r *repository) ListExposed(ctx context.Context) ([]Content, error) {
	query := `SELECT ` + contentColumns + `
		FROM contents
		WHERE is_exposed = TRUE
		ORDER BY created_at DESC`

	var contents []Content
	if err := r.db.SelectContext(ctx, &contents, query); err != nil {
		return nil, fmt.Errorf("list exposed contents: %w", err)
	}

	return contents, nil
}

func (r *repository) Names(
	ctx context.Context,
	ids []int64,
) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, content_name FROM contents WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("content names: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"content_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("content names: %w", err)
	}

	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
