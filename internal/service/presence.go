package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zonegrid/presence-service/internal/domain"
	"github.com/zonegrid/presence-service/internal/geo"
)

type TransitionKind string

const (
	TransitionEntered TransitionKind = "entered"
	TransitionExited  TransitionKind = "exited"
)

// Transition — одно изменение presence-состояния (user, area).
type Transition struct {
	Kind            TransitionKind
	UserID          string
	AreaID          string
	AreaName        string
	At              time.Time
	DurationSeconds int64 // только для exited; 0 если запись не закрывалась
}

type cacheEntry struct {
	areaID    string
	enteredAt time.Time
}

// PresenceService — единый детектор переходов. Через него идут оба пути
// обнаружения: polygon-детекция по сэмплам (HandleSample, ошибки хранилища
// глотаются) и явные enter/exit (ошибки поднимаются наверх). Кэш текущей зоны
// принадлежит только этому сервису и никем больше не мутируется; он не
// авторитетен — источник истины всегда журнал с его уникальным индексом.
type PresenceService struct {
	ledger Ledger
	stats  Stats
	areas  AreaDirectory

	mu    sync.Mutex
	cache map[string]cacheEntry // userID -> текущая зона

	events chan Transition
	now    func() time.Time
}

func NewPresenceService(ledger Ledger, stats Stats, areas AreaDirectory, eventBuffer int) *PresenceService {
	if eventBuffer <= 0 {
		eventBuffer = 256
	}
	return &PresenceService{
		ledger: ledger,
		stats:  stats,
		areas:  areas,
		cache:  make(map[string]cacheEntry),
		events: make(chan Transition, eventBuffer),
		now:    time.Now,
	}
}

// Events — исходящая очередь переходов; её разбирает notifier.
func (s *PresenceService) Events() <-chan Transition { return s.events }

// HandleSample превращает сырой сэмпл в ноль и более переходов. Ошибки
// персистентности здесь логируются и глотаются: presence-сигнал best-effort,
// доступность важнее консистентности. Already/NoOpen трактуются как «уже
// согласовано».
func (s *PresenceService) HandleSample(ctx context.Context, userID string, lat, lng float64) []Transition {
	pt := domain.Point{Latitude: lat, Longitude: lng}
	if !geo.ValidPoint(pt) {
		slog.Warn("presence: dropping sample with invalid coordinates",
			"user", userID, "lat", lat, "lng", lng)
		return nil
	}

	memberships, err := s.areas.ListMemberships(ctx, userID)
	if err != nil {
		slog.Error("presence: list memberships failed", "user", userID, "err", err)
		return nil
	}

	var out []Transition
	for _, m := range memberships {
		inside := geo.Contains(pt, m.Polygon)
		cached, hasCache := s.currentArea(userID)
		// одна активная зона: если кэш указывает на другую зону,
		// эта зона считается «не текущей» независимо от полигона
		wasInside := hasCache && cached.areaID == m.AreaID

		switch {
		case inside && !wasInside:
			if hasCache && cached.areaID != m.AreaID {
				// сначала синтетический выход из прежней зоны
				out = append(out, s.exitBestEffort(ctx, userID, cached.areaID))
			}
			out = append(out, s.enterBestEffort(ctx, userID, m.AreaID, m.AreaName))
		case !inside && wasInside:
			out = append(out, s.exitBestEffort(ctx, userID, m.AreaID))
		default:
			// без изменений — ни одной записи
		}
	}
	return out
}

// EnterArea — ручной вход (REST / joinArea). Ошибки поднимаются: манул-путь
// отдаёт 409 на AlreadyParticipating, 5xx на ошибку хранилища.
func (s *PresenceService) EnterArea(ctx context.Context, userID, areaID string) (*domain.ParticipationLog, error) {
	member, err := s.areas.IsMember(ctx, areaID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotMember
	}

	// «одна активная зона»: прежнюю зону закрываем синтетическим выходом
	if cached, ok := s.currentArea(userID); ok && cached.areaID != areaID {
		s.exitBestEffort(ctx, userID, cached.areaID)
	}

	p, err := s.ledger.Open(ctx, userID, areaID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyParticipating) {
			// открытая запись пережила рестарт процесса, кэш — нет;
			// без восстановления последующий Disconnect её не закроет
			s.rehydrateOpen(ctx, userID, areaID)
		}
		return nil, err
	}
	if err := s.stats.EnsureExists(ctx, areaID); err != nil {
		s.rollbackOpen(ctx, userID, areaID)
		return nil, err
	}
	if err := s.stats.OnEnter(ctx, areaID); err != nil {
		s.rollbackOpen(ctx, userID, areaID)
		return nil, err
	}

	s.setCache(userID, areaID, p.EnteredAt)
	s.emit(s.transitionFor(ctx, TransitionEntered, userID, areaID, p.EnteredAt, 0))
	return p, nil
}

// ExitArea — ручной выход.
func (s *PresenceService) ExitArea(ctx context.Context, userID, areaID string) (int64, error) {
	exitedAt := s.now()
	duration, err := s.ledger.Close(ctx, userID, areaID, exitedAt)
	if err != nil {
		return 0, err
	}
	if err := s.stats.EnsureExists(ctx, areaID); err != nil {
		return 0, err
	}
	if err := s.stats.OnExit(ctx, areaID, true); err != nil {
		return 0, err
	}

	s.clearCache(userID, areaID)
	s.emit(s.transitionFor(ctx, TransitionExited, userID, areaID, exitedAt, duration))
	return duration, nil
}

// Disconnect — неявный выход при разрыве соединения. Возвращает переход,
// если пользователь числился в зоне, иначе nil.
func (s *PresenceService) Disconnect(ctx context.Context, userID string) *Transition {
	cached, ok := s.currentArea(userID)
	if !ok {
		return nil
	}
	tr := s.exitBestEffort(ctx, userID, cached.areaID)
	return &tr
}

// Status — открытые участия пользователя; считается из журнала, не из кэша.
func (s *PresenceService) Status(ctx context.Context, userID string) ([]domain.ParticipationLog, error) {
	return s.ledger.ListOpenByUser(ctx, userID)
}

// CurrentArea — текущая зона по кэшу ("" если нет).
func (s *PresenceService) CurrentArea(userID string) string {
	if c, ok := s.currentArea(userID); ok {
		return c.areaID
	}
	return ""
}

// Resume восстанавливает кэш пользователя из журнала при реконнекте: кэш
// процесса теряется на рестарте, открытые записи — нет. Возвращает areaID
// восстановленной зоны ("" если открытых участий нет).
func (s *PresenceService) Resume(ctx context.Context, userID string) string {
	if c, ok := s.currentArea(userID); ok {
		return c.areaID
	}
	open, err := s.ledger.ListOpenByUser(ctx, userID)
	if err != nil {
		slog.Error("presence: cache rehydrate failed", "user", userID, "err", err)
		return ""
	}
	var latest *domain.ParticipationLog
	for i := range open {
		if latest == nil || open[i].EnteredAt.After(latest.EnteredAt) {
			latest = &open[i]
		}
	}
	if latest == nil {
		return ""
	}
	s.setCache(userID, latest.AreaID, latest.EnteredAt)
	return latest.AreaID
}

// --- внутренние переходы (best-effort путь) ---

func (s *PresenceService) enterBestEffort(ctx context.Context, userID, areaID, areaName string) Transition {
	at := s.now()
	opened := false
	if p, err := s.ledger.Open(ctx, userID, areaID); err != nil {
		if !errors.Is(err, domain.ErrAlreadyParticipating) {
			slog.Error("presence: open entry failed", "user", userID, "area", areaID, "err", err)
		}
		// AlreadyParticipating: запись уже есть, счётчики уже учтены
	} else {
		opened = true
		at = p.EnteredAt
	}

	if opened {
		if err := s.stats.EnsureExists(ctx, areaID); err != nil {
			slog.Error("presence: ensure stats failed", "area", areaID, "err", err)
		}
		if err := s.stats.OnEnter(ctx, areaID); err != nil {
			slog.Error("presence: stats on-enter failed", "area", areaID, "err", err)
		}
	}

	s.setCache(userID, areaID, at)
	tr := Transition{Kind: TransitionEntered, UserID: userID, AreaID: areaID, AreaName: areaName, At: at}
	if tr.AreaName == "" {
		tr = s.transitionFor(ctx, TransitionEntered, userID, areaID, at, 0)
	}
	s.emit(tr)
	return tr
}

func (s *PresenceService) exitBestEffort(ctx context.Context, userID, areaID string) Transition {
	exitedAt := s.now()
	var duration int64
	closed := false
	if d, err := s.ledger.Close(ctx, userID, areaID, exitedAt); err != nil {
		if !errors.Is(err, domain.ErrNoOpenParticipation) {
			slog.Error("presence: close entry failed", "user", userID, "area", areaID, "err", err)
		}
	} else {
		duration = d
		closed = true
	}

	// декремент только вместе с закрытой записью — счётчик обязан сходиться
	// с COUNT открытых строк
	if closed {
		if err := s.stats.EnsureExists(ctx, areaID); err != nil {
			slog.Error("presence: ensure stats failed", "area", areaID, "err", err)
		}
		if err := s.stats.OnExit(ctx, areaID, true); err != nil {
			slog.Error("presence: stats on-exit failed", "area", areaID, "err", err)
		}
	}

	s.clearCache(userID, areaID)
	tr := s.transitionFor(ctx, TransitionExited, userID, areaID, exitedAt, duration)
	s.emit(tr)
	return tr
}

// rehydrateOpen подтягивает в кэш открытую запись (userID, areaID), если она
// есть в журнале.
func (s *PresenceService) rehydrateOpen(ctx context.Context, userID, areaID string) {
	open, err := s.ledger.ListOpenByUser(ctx, userID)
	if err != nil {
		slog.Error("presence: cache rehydrate failed", "user", userID, "err", err)
		return
	}
	for _, p := range open {
		if p.AreaID == areaID {
			s.setCache(userID, areaID, p.EnteredAt)
			return
		}
	}
}

// rollbackOpen закрывает только что открытую запись, когда инкремент
// статистики не прошёл: наружу уходит ошибка, и открытой строки с неучтённым
// счётчиком не остаётся.
func (s *PresenceService) rollbackOpen(ctx context.Context, userID, areaID string) {
	if _, err := s.ledger.Close(ctx, userID, areaID, s.now()); err != nil {
		slog.Error("presence: rollback open entry failed", "user", userID, "area", areaID, "err", err)
	}
}

func (s *PresenceService) transitionFor(ctx context.Context, kind TransitionKind, userID, areaID string, at time.Time, duration int64) Transition {
	tr := Transition{Kind: kind, UserID: userID, AreaID: areaID, At: at, DurationSeconds: duration}
	if a, err := s.areas.Get(ctx, areaID); err == nil {
		tr.AreaName = a.Name
	}
	return tr
}

func (s *PresenceService) emit(tr Transition) {
	select {
	case s.events <- tr:
	default:
		slog.Warn("presence: event buffer full, dropping transition",
			"user", tr.UserID, "area", tr.AreaID, "kind", tr.Kind)
	}
}

// --- кэш ---

func (s *PresenceService) currentArea(userID string) (cacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[userID]
	return c, ok
}

func (s *PresenceService) setCache(userID, areaID string, enteredAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[userID] = cacheEntry{areaID: areaID, enteredAt: enteredAt}
}

// clearCache удаляет запись, только если она всё ещё указывает на areaID.
func (s *PresenceService) clearCache(userID, areaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache[userID]; ok && c.areaID == areaID {
		delete(s.cache, userID)
	}
}
