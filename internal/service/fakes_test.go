package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zonegrid/presence-service/internal/domain"
)

// Общие фейки для тестов сервисного слоя. Поведение повторяет контракт
// postgres-репозиториев: единственность открытой записи, floor у duration,
// GREATEST(...,0) у счётчика.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{t: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeLedger struct {
	mu     sync.Mutex
	clk    *fakeClock
	open   map[string]*domain.ParticipationLog // userID|areaID -> open row
	closed []domain.ParticipationLog

	openErr  error
	closeErr error
}

func newFakeLedger(clk *fakeClock) *fakeLedger {
	return &fakeLedger{clk: clk, open: make(map[string]*domain.ParticipationLog)}
}

func key(userID, areaID string) string { return userID + "|" + areaID }

func (l *fakeLedger) Open(_ context.Context, userID, areaID string) (*domain.ParticipationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return nil, l.openErr
	}
	if _, ok := l.open[key(userID, areaID)]; ok {
		return nil, domain.ErrAlreadyParticipating
	}
	p := &domain.ParticipationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		AreaID:    areaID,
		EnteredAt: l.clk.Now(),
	}
	l.open[key(userID, areaID)] = p
	return p, nil
}

func (l *fakeLedger) Close(_ context.Context, userID, areaID string, exitedAt time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closeErr != nil {
		return 0, l.closeErr
	}
	p, ok := l.open[key(userID, areaID)]
	if !ok {
		return 0, domain.ErrNoOpenParticipation
	}
	delete(l.open, key(userID, areaID))

	duration := int64(exitedAt.Sub(p.EnteredAt) / time.Second) // floor
	p.ExitedAt = &exitedAt
	p.DurationSeconds = &duration
	l.closed = append(l.closed, *p)
	return duration, nil
}

func (l *fakeLedger) ListOpenByUser(_ context.Context, userID string) ([]domain.ParticipationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ParticipationLog
	for _, p := range l.open {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (l *fakeLedger) ListOpenByArea(_ context.Context, areaID string) ([]domain.AreaParticipant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.AreaParticipant
	for _, p := range l.open {
		if p.AreaID == areaID {
			out = append(out, domain.AreaParticipant{UserID: p.UserID, EnteredAt: p.EnteredAt})
		}
	}
	return out, nil
}

func (l *fakeLedger) CountOpenByArea(_ context.Context, areaID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, p := range l.open {
		if p.AreaID == areaID {
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) ListByArea(_ context.Context, areaID, _ string, limit int) ([]domain.ParticipationLog, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ParticipationLog
	for _, p := range l.closed {
		if p.AreaID == areaID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.After(out[j].EnteredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

func (l *fakeLedger) ListByUser(_ context.Context, userID, _ string, limit int) ([]domain.ParticipationLog, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ParticipationLog
	for _, p := range l.closed {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

func (l *fakeLedger) closedDurations(areaID string) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int64
	for _, p := range l.closed {
		if p.AreaID == areaID && p.DurationSeconds != nil {
			out = append(out, *p.DurationSeconds)
		}
	}
	return out
}

type fakeStats struct {
	mu     sync.Mutex
	clk    *fakeClock
	ledger *fakeLedger
	m      map[string]*domain.AreaStatistics

	enterErr error
	exitErr  error
}

func newFakeStats(clk *fakeClock, ledger *fakeLedger) *fakeStats {
	return &fakeStats{clk: clk, ledger: ledger, m: make(map[string]*domain.AreaStatistics)}
}

func (s *fakeStats) EnsureExists(_ context.Context, areaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[areaID]; !ok {
		s.m[areaID] = &domain.AreaStatistics{AreaID: areaID, LastActivity: s.clk.Now()}
	}
	return nil
}

func (s *fakeStats) OnEnter(_ context.Context, areaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enterErr != nil {
		return s.enterErr
	}
	st := s.m[areaID]
	st.CurrentParticipants++
	st.TotalVisits++
	st.LastActivity = s.clk.Now()
	return nil
}

func (s *fakeStats) OnExit(_ context.Context, areaID string, closedEntry bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exitErr != nil {
		return s.exitErr
	}
	st := s.m[areaID]
	st.CurrentParticipants--
	if st.CurrentParticipants < 0 {
		st.CurrentParticipants = 0
	}
	st.LastActivity = s.clk.Now()
	if closedEntry {
		durations := s.ledger.closedDurations(areaID)
		var sum int64
		for _, d := range durations {
			sum += d
		}
		if len(durations) > 0 {
			st.AverageStaySeconds = float64(sum) / float64(len(durations))
		} else {
			st.AverageStaySeconds = 0
		}
	}
	return nil
}

func (s *fakeStats) Get(_ context.Context, areaID string) (*domain.AreaStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[areaID]
	if !ok {
		return nil, domain.ErrAreaNotFound
	}
	cp := *st
	return &cp, nil
}

type fakeAreas struct {
	areas       map[string]*domain.Area
	memberships map[string][]domain.AreaMembership
}

func newFakeAreas() *fakeAreas {
	return &fakeAreas{
		areas:       make(map[string]*domain.Area),
		memberships: make(map[string][]domain.AreaMembership),
	}
}

func (a *fakeAreas) add(area *domain.Area, userIDs ...string) {
	a.areas[area.ID] = area
	for _, uid := range userIDs {
		a.memberships[uid] = append(a.memberships[uid], domain.AreaMembership{
			AreaID:   area.ID,
			UserID:   uid,
			AreaName: area.Name,
			Polygon:  area.Vertices,
		})
	}
}

func (a *fakeAreas) Get(_ context.Context, id string) (*domain.Area, error) {
	area, ok := a.areas[id]
	if !ok {
		return nil, domain.ErrAreaNotFound
	}
	return area, nil
}

func (a *fakeAreas) ListMemberships(_ context.Context, userID string) ([]domain.AreaMembership, error) {
	return a.memberships[userID], nil
}

func (a *fakeAreas) IsMember(_ context.Context, areaID, userID string) (bool, error) {
	for _, m := range a.memberships[userID] {
		if m.AreaID == areaID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSamples struct {
	mu        sync.Mutex
	inserted  []domain.LocationSample
	purged    []string // userID|areaID
	cutoffs   []time.Time
	deleteN   int64
	deleteErr error
}

func (f *fakeSamples) Insert(_ context.Context, s *domain.LocationSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, *s)
	return nil
}

func (f *fakeSamples) DeleteForUserArea(_ context.Context, userID, areaID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, key(userID, areaID))
	return 0, nil
}

func (f *fakeSamples) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleteN, f.deleteErr
}

type fakeUsers struct {
	profiles map[string]*domain.Profile
	friends  map[string][]domain.Friend
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		profiles: make(map[string]*domain.Profile),
		friends:  make(map[string][]domain.Friend),
	}
}

func (u *fakeUsers) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := u.profiles[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

func (u *fakeUsers) SetCurrentArea(_ context.Context, userID, areaID string) error {
	if p, ok := u.profiles[userID]; ok {
		p.CurrentAreaID = &areaID
	}
	return nil
}

func (u *fakeUsers) ClearCurrentArea(_ context.Context, userID, areaID string) error {
	if p, ok := u.profiles[userID]; ok && p.CurrentAreaID != nil && *p.CurrentAreaID == areaID {
		p.CurrentAreaID = nil
	}
	return nil
}

func (u *fakeUsers) ListFriends(_ context.Context, userID string) ([]domain.Friend, error) {
	return u.friends[userID], nil
}

type fakePush struct {
	mu    sync.Mutex
	sent  []string // token
	calls []map[string]string
}

func (p *fakePush) SendPush(_ context.Context, token, _, _ string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, token)
	p.calls = append(p.calls, data)
	return nil
}
