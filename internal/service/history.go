package service

import (
	"context"

	"github.com/zonegrid/presence-service/internal/domain"
)

type HistoryService struct {
	ledger Ledger
}

func NewHistoryService(ledger Ledger) *HistoryService {
	return &HistoryService{ledger: ledger}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// AreaHistory возвращает историю участий зоны с курсорной пагинацией.
func (s *HistoryService) AreaHistory(ctx context.Context, areaID, cursor string, limit int) ([]domain.ParticipationLog, string, error) {
	return s.ledger.ListByArea(ctx, areaID, cursor, clampLimit(limit))
}

// UserHistory возвращает историю участий пользователя.
func (s *HistoryService) UserHistory(ctx context.Context, userID, cursor string, limit int) ([]domain.ParticipationLog, string, error) {
	return s.ledger.ListByUser(ctx, userID, cursor, clampLimit(limit))
}
