package service

import (
	"context"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

// statsService implements the StatsService interface
type statsService struct {
	Deps
}

// NewStatsService creates a new StatsService
func NewStatsService(deps Deps) StatsService {
	return &statsService{Deps: deps.withDefaults()}
}

func (s *statsService) GetStats(ctx context.Context) (*domain.Stats, error) {
	var stats *domain.Stats
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		var err error
		stats, err = a.GetStats(ctx)
		return adaptorErr("get_stats", err)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
