package service

import (
	"context"
	"time"

	"github.com/zonegrid/presence-service/internal/domain"
)

// Порты ядра. Postgres-репозитории реализуют их; тесты подставляют фейки.

// Ledger — журнал участий (см. ParticipationRepository).
type Ledger interface {
	Open(ctx context.Context, userID, areaID string) (*domain.ParticipationLog, error)
	Close(ctx context.Context, userID, areaID string, exitedAt time.Time) (int64, error)
	ListOpenByUser(ctx context.Context, userID string) ([]domain.ParticipationLog, error)
	ListOpenByArea(ctx context.Context, areaID string) ([]domain.AreaParticipant, error)
	CountOpenByArea(ctx context.Context, areaID string) (int64, error)
	ListByArea(ctx context.Context, areaID, cursor string, limit int) ([]domain.ParticipationLog, string, error)
	ListByUser(ctx context.Context, userID, cursor string, limit int) ([]domain.ParticipationLog, string, error)
}

// Stats — инкрементальные счётчики по зонам.
type Stats interface {
	EnsureExists(ctx context.Context, areaID string) error
	OnEnter(ctx context.Context, areaID string) error
	OnExit(ctx context.Context, areaID string, closedEntry bool) error
	Get(ctx context.Context, areaID string) (*domain.AreaStatistics, error)
}

// Samples — сырые location-сэмплы.
type Samples interface {
	Insert(ctx context.Context, s *domain.LocationSample) error
	DeleteForUserArea(ctx context.Context, userID, areaID string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AreaDirectory — зоны и членства; внешний коллаборатор, здесь только чтение.
type AreaDirectory interface {
	Get(ctx context.Context, id string) (*domain.Area, error)
	ListMemberships(ctx context.Context, userID string) ([]domain.AreaMembership, error)
	IsMember(ctx context.Context, areaID, userID string) (bool, error)
}

// UserDirectory — профиль и граф друзей; внешний коллаборатор.
type UserDirectory interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	SetCurrentArea(ctx context.Context, userID, areaID string) error
	ClearCurrentArea(ctx context.Context, userID, areaID string) error
	ListFriends(ctx context.Context, userID string) ([]domain.Friend, error)
}

// PushSender — транспорт пушей; fire-and-forget, ошибка никогда не блокирует
// presence-логику.
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}
