package usecase

import (
	"context"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Totals is the admin dashboard aggregate.
type Totals struct {
	JobsByStatus   map[model.JobStatus]int  `json:"jobsByStatus"`
	EntitiesByType map[model.EntityType]int `json:"entitiesByType"`
	InFlight       int                      `json:"inFlight"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Totals, error)
}

type statsUC struct {
	jobs     repository.JobRepository
	entities repository.EntityRepository

	log *zerolog.Logger
}

func NewStatsUseCase(jobs repository.JobRepository, entities repository.EntityRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{jobs: jobs, entities: entities, log: logger}
}

// Totals also refreshes the jobs_by_status gauge as a side effect.
func (s *statsUC) Totals(ctx context.Context) (*Totals, error) {
	byStatus, err := s.jobs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byType, err := s.entities.CountByType(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	gauge := make(map[string]int, len(byStatus))
	for st, n := range byStatus {
		gauge[string(st)] = n
	}
	metrics.SetJobsByStatus(gauge)

	return &Totals{
		JobsByStatus:   byStatus,
		EntitiesByType: byType,
		InFlight:       byStatus[model.JobStatusPending] + byStatus[model.JobStatusRunning],
	}, nil
}
