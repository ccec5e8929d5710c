package service

import (
	"context"

	"github.com/zonegrid/presence-service/internal/domain"
)

// StatsService — статус-поверхность: счётчики зоны плюс точный COUNT открытых
// записей журнала. Инкрементальный счётчик и точный COUNT обязаны сходиться.
type StatsService struct {
	stats  Stats
	ledger Ledger
	areas  AreaDirectory
}

func NewStatsService(stats Stats, ledger Ledger, areas AreaDirectory) *StatsService {
	return &StatsService{stats: stats, ledger: ledger, areas: areas}
}

// AreaStatistics возвращает счётчики и точное число открытых участий.
// Строка статистики создаётся лениво при первом обращении.
func (s *StatsService) AreaStatistics(ctx context.Context, areaID string) (*domain.AreaStatistics, int64, error) {
	if _, err := s.areas.Get(ctx, areaID); err != nil {
		return nil, 0, err
	}
	if err := s.stats.EnsureExists(ctx, areaID); err != nil {
		return nil, 0, err
	}

	st, err := s.stats.Get(ctx, areaID)
	if err != nil {
		return nil, 0, err
	}
	open, err := s.ledger.CountOpenByArea(ctx, areaID)
	if err != nil {
		return nil, 0, err
	}
	return st, open, nil
}

func (s *StatsService) Participants(ctx context.Context, areaID string) ([]domain.AreaParticipant, error) {
	if _, err := s.areas.Get(ctx, areaID); err != nil {
		return nil, err
	}
	return s.ledger.ListOpenByArea(ctx, areaID)
}
