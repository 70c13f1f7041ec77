// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Repository interface {
	List(ctx context.Context, filter StatsFilter) ([]Payment, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filter StatsFilter) ([]Payment, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("completed_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("completed_at < $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	if filter.ContentID != nil {
		conditions = append(conditions, fmt.Sprintf("content_id = $%d", argIdx))
		args = append(args, *filter.ContentID)
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, status, pay, COALESCE(payment_type, '') AS payment_type,
		       COALESCE(gender, '') AS gender, content_id, completed_at
		FROM payments
		WHERE %s
		ORDER BY completed_at`, whereClause)

	var rows []Payment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return rows, nil
}
