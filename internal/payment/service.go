// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	nameBatchSize   = 100
	nameConcurrency = 4
)

type ContentNamer interface {
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

type Service struct {
	repo  Repository
	names ContentNamer
}

func NewService(repo Repository, names ContentNamer) *Service {
	return &Service{repo: repo, names: names}
}

func (s *Service) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	ctx, span := core.StartSpan(ctx, "payment.stats")
	defer span.End()

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	names, err := s.contentNames(ctx, ContentIDs(rows))
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	stats := Aggregate(rows, names)
	return &stats, nil
}

func (s *Service) contentNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 || s.names == nil {
		return names, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameConcurrency)

	for start := 0; start < len(ids); start += nameBatchSize {
		end := min(start+nameBatchSize, len(ids))
		batch := ids[start:end]

		g.Go(func() error {
			found, err := s.names.Names(gctx, batch)
			if err != nil {
				return err
			}

			mu.Lock()
			for id, name := range found {
				names[id] = name
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch content names: %w", err)
	}

	return names, nil
}
