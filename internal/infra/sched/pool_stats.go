package sched

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/infra/metrics"
	"content-studio/internal/usecase"
)

// PoolStatsSampler refreshes gauges that are cheaper to poll than to track:
// pgx pool usage and jobs by status.
type PoolStatsSampler struct {
	pool  *pgxpool.Pool
	stats usecase.StatsUseCase
}

// NewPoolStatsSampler accepts a nil pool in dev mode.
func NewPoolStatsSampler(pool *pgxpool.Pool, stats usecase.StatsUseCase) *PoolStatsSampler {
	return &PoolStatsSampler{pool: pool, stats: stats}
}

func (s *PoolStatsSampler) Sample(ctx context.Context) error {
	if s.pool != nil {
		st := s.pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
	}
	if s.stats != nil {
		if _, err := s.stats.Totals(ctx); err != nil {
			return err
		}
	}
	return nil
}
