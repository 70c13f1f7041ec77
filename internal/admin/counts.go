// AngelaMos | 2026
// counts.go

package admin

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

var countQueries = map[string]string{
	"contents":              `SELECT COUNT(*) FROM contents`,
	"exposed_contents":      `SELECT COUNT(*) FROM contents WHERE is_exposed`,
	"saved_results":         `SELECT COUNT(*) FROM saved_results`,
	"payments":              `SELECT COUNT(*) FROM payments`,
	"active_voice_sessions": `SELECT COUNT(*) FROM voice_mvp_sessions WHERE status = 'active'`,
}

type TableCounter struct {
	db core.DBTX
}

func NewTableCounter(db core.DBTX) *TableCounter {
	return &TableCounter{db: db}
}

func (c *TableCounter) Counts(ctx context.Context) (map[string]int64, error) {
	var mu sync.Mutex
	out := make(map[string]int64, len(countQueries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for name, query := range countQueries {
		g.Go(func() error {
			var n int64
			if err := c.db.GetContext(ctx, &n, query); err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}

			mu.Lock()
			out[name] = n
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
