package ws

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zonegrid/presence-service/internal/auth"
	"github.com/zonegrid/presence-service/internal/domain"
	"github.com/zonegrid/presence-service/internal/geo"
	"github.com/zonegrid/presence-service/internal/service"
)

type Presence interface {
	HandleSample(ctx context.Context, userID string, lat, lng float64) []service.Transition
	EnterArea(ctx context.Context, userID, areaID string) (*domain.ParticipationLog, error)
	ExitArea(ctx context.Context, userID, areaID string) (int64, error)
	Resume(ctx context.Context, userID string) string
	Disconnect(ctx context.Context, userID string) *service.Transition
}

type SampleStore interface {
	Insert(ctx context.Context, s *domain.LocationSample) error
	DeleteForUserArea(ctx context.Context, userID, areaID string) (int64, error)
}

type Directory interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	SetCurrentArea(ctx context.Context, userID, areaID string) error
	ClearCurrentArea(ctx context.Context, userID, areaID string) error
	ListFriends(ctx context.Context, userID string) ([]domain.Friend, error)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// session — состояние одного соединения:
// Connected → Authenticated → (InArea(x) ↔ Authenticated)* → Disconnected.
type session struct {
	conn Conn
	srv  *Server

	authed        bool
	userID        string
	displayName   string
	currentAreaID string // "" вне зоны
}

func (s *session) sendError(text string) {
	_ = s.conn.Send(Message{Type: TypeError, Payload: ErrorPayload{Message: text}})
}

func (s *session) handleMessage(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeAuthenticate:
		var p AuthenticatePayload
		if decode(msg.Payload, &p) != nil {
			s.sendError("malformed authenticate payload")
			return
		}
		s.handleAuthenticate(ctx, p)
	case TypeJoinArea:
		var p AreaPayload
		if decode(msg.Payload, &p) != nil || p.AreaID == "" {
			s.sendError("missing areaId")
			return
		}
		s.handleJoinArea(ctx, p.AreaID)
	case TypeLeaveArea:
		var p AreaPayload
		if decode(msg.Payload, &p) != nil || p.AreaID == "" {
			s.sendError("missing areaId")
			return
		}
		s.handleLeaveArea(ctx, p.AreaID)
	case TypeLocationUpdate:
		var p LocationUpdatePayload
		if decode(msg.Payload, &p) != nil {
			s.sendError("malformed location payload")
			return
		}
		s.handleLocationUpdate(ctx, p)
	default:
		// неизвестные типы игнорируем
	}
}

func (s *session) handleAuthenticate(ctx context.Context, p AuthenticatePayload) {
	claims, err := s.srv.tokens.Verify(p.Token)
	if err != nil {
		s.sendError("authentication failed")
		return
	}

	s.authed = true
	s.userID = claims.UserID
	s.displayName = claims.DisplayName
	s.srv.hub.Join(UserRoom(s.userID), s.conn)

	// открытое участие переживает реконнект: детектор восстанавливает кэш
	// из журнала, и сессия возвращается в комнату зоны
	if areaID := s.srv.presence.Resume(ctx, s.userID); areaID != "" {
		s.currentAreaID = areaID
		s.srv.hub.Join(AreaRoom(areaID), s.conn)
	}

	// профиль — запасной источник текущей зоны и имени
	if profile, err := s.srv.users.GetProfile(ctx, s.userID); err == nil {
		if s.displayName == "" {
			s.displayName = profile.DisplayName
		}
		if s.currentAreaID == "" && profile.CurrentAreaID != nil && *profile.CurrentAreaID != "" {
			s.currentAreaID = *profile.CurrentAreaID
			s.srv.hub.Join(AreaRoom(s.currentAreaID), s.conn)
		}
	} else {
		slog.Debug("ws get profile failed", "user", s.userID, "err", err)
	}

	_ = s.conn.Send(Message{Type: TypeAuthenticated, Payload: AuthenticatedPayload{
		UserID:        s.userID,
		CurrentAreaID: s.currentAreaID,
	}})

	s.broadcastToFriends(ctx, Message{Type: TypeFriendStatus, Payload: FriendStatusPayload{
		UserID:   s.userID,
		IsOnline: true,
		LastSeen: time.Now().Unix(),
	}})
}

func (s *session) handleJoinArea(ctx context.Context, areaID string) {
	if !s.authed {
		s.sendError("not authenticated")
		return
	}

	if _, err := s.srv.presence.EnterArea(ctx, s.userID, areaID); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyParticipating):
			// повторный join после reconnect — уже согласовано
		case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrAreaNotFound):
			s.sendError(err.Error())
			_ = s.conn.Send(Message{Type: TypeAreaJoined, Payload: AreaAckPayload{AreaID: areaID, Success: false}})
			return
		default:
			slog.Error("ws join area failed", "user", s.userID, "area", areaID, "err", err)
			s.sendError("join failed")
			_ = s.conn.Send(Message{Type: TypeAreaJoined, Payload: AreaAckPayload{AreaID: areaID, Success: false}})
			return
		}
	}

	if s.currentAreaID != "" && s.currentAreaID != areaID {
		s.srv.hub.Leave(AreaRoom(s.currentAreaID), s.conn)
	}
	s.currentAreaID = areaID
	s.srv.hub.Join(AreaRoom(areaID), s.conn)

	if err := s.srv.users.SetCurrentArea(ctx, s.userID, areaID); err != nil {
		slog.Warn("ws persist current area failed", "user", s.userID, "err", err)
	}

	_ = s.conn.Send(Message{Type: TypeAreaJoined, Payload: AreaAckPayload{AreaID: areaID, Success: true}})

	now := time.Now().Unix()
	s.srv.hub.BroadcastExcept(AreaRoom(areaID), s.conn, Message{Type: TypeLocation, Payload: LocationData{
		Action:    ActionUserJoinedArea,
		UserID:    s.userID,
		UserName:  s.displayName,
		AreaID:    areaID,
		Timestamp: now,
	}})
	s.fanOutFriendAreaEvent(ctx, "entered", areaID, now)
}

func (s *session) handleLeaveArea(ctx context.Context, areaID string) {
	if !s.authed {
		s.sendError("not authenticated")
		return
	}

	if _, err := s.srv.presence.ExitArea(ctx, s.userID, areaID); err != nil {
		if !errors.Is(err, domain.ErrNoOpenParticipation) {
			slog.Error("ws leave area failed", "user", s.userID, "area", areaID, "err", err)
			s.sendError("leave failed")
			_ = s.conn.Send(Message{Type: TypeAreaLeft, Payload: AreaAckPayload{AreaID: areaID, Success: false}})
			return
		}
		// нет открытой записи — уже согласовано
	}

	s.srv.hub.Leave(AreaRoom(areaID), s.conn)
	if s.currentAreaID == areaID {
		s.currentAreaID = ""
	}
	if err := s.srv.users.ClearCurrentArea(ctx, s.userID, areaID); err != nil {
		slog.Warn("ws clear current area failed", "user", s.userID, "err", err)
	}

	_ = s.conn.Send(Message{Type: TypeAreaLeft, Payload: AreaAckPayload{AreaID: areaID, Success: true}})

	now := time.Now().Unix()
	s.srv.hub.Broadcast(AreaRoom(areaID), Message{Type: TypeLocation, Payload: LocationData{
		Action:    ActionUserLeftArea,
		UserID:    s.userID,
		UserName:  s.displayName,
		AreaID:    areaID,
		Timestamp: now,
	}})
	s.fanOutFriendAreaEvent(ctx, "exited", areaID, now)
}

// handleLocationUpdate — приём сэмпла. Отвергается, если отправитель не
// аутентифицирован, userId не совпадает с сессией или areaId не равен текущей
// зоне сессии: вне присоединённой зоны location-трафика нет.
func (s *session) handleLocationUpdate(ctx context.Context, p LocationUpdatePayload) {
	if !s.authed {
		s.sendError("not authenticated")
		return
	}
	if p.UserID != s.userID {
		s.sendError("userId mismatch")
		return
	}
	if s.currentAreaID == "" || p.AreaID != s.currentAreaID {
		s.sendError("location update outside joined area")
		return
	}
	if !geo.ValidPoint(domain.Point{Latitude: p.Latitude, Longitude: p.Longitude}) {
		s.sendError(domain.ErrInvalidCoordinates.Error())
		return
	}

	recordedAt := time.Now()
	if p.Timestamp > 0 {
		recordedAt = time.Unix(p.Timestamp, 0)
	}
	sample := &domain.LocationSample{
		UserID:     s.userID,
		AreaID:     p.AreaID,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		RecordedAt: recordedAt,
	}
	if err := s.srv.samples.Insert(ctx, sample); err != nil {
		slog.Warn("ws persist sample failed", "user", s.userID, "err", err)
	}

	for _, tr := range s.srv.presence.HandleSample(ctx, s.userID, p.Latitude, p.Longitude) {
		s.broadcastTransition(ctx, tr)
	}

	lat, lng := p.Latitude, p.Longitude
	s.srv.hub.BroadcastExcept(AreaRoom(p.AreaID), s.conn, Message{Type: TypeLocation, Payload: LocationData{
		Action:    ActionFriendLocation,
		UserID:    s.userID,
		UserName:  s.displayName,
		Latitude:  &lat,
		Longitude: &lng,
		AreaID:    p.AreaID,
		Timestamp: recordedAt.Unix(),
	}})
}

// broadcastTransition разносит переход детектора: событие в комнату зоны
// (без отправителя) и friend_area_event в комнаты друзей. После выхода из
// зоны её сэмплы пользователя вычищаются.
func (s *session) broadcastTransition(ctx context.Context, tr service.Transition) {
	action := ActionUserJoinedArea
	event := "entered"
	if tr.Kind == service.TransitionExited {
		action = ActionUserLeftArea
		event = "exited"

		if _, err := s.srv.samples.DeleteForUserArea(ctx, s.userID, tr.AreaID); err != nil {
			slog.Debug("ws purge samples failed", "user", s.userID, "area", tr.AreaID, "err", err)
		}
	}

	s.srv.hub.BroadcastExcept(AreaRoom(tr.AreaID), s.conn, Message{Type: TypeLocation, Payload: LocationData{
		Action:    action,
		UserID:    tr.UserID,
		UserName:  s.displayName,
		AreaID:    tr.AreaID,
		Timestamp: tr.At.Unix(),
	}})

	s.broadcastToFriends(ctx, Message{Type: TypeFriendAreaEvent, Payload: FriendAreaEventPayload{
		FriendName: s.displayName,
		Event:      event,
		AreaName:   tr.AreaName,
		Timestamp:  tr.At.Unix(),
	}})
}

func (s *session) fanOutFriendAreaEvent(ctx context.Context, event, areaID string, ts int64) {
	areaName := areaID
	if a, err := s.srv.areas.Get(ctx, areaID); err == nil {
		areaName = a.Name
	}
	s.broadcastToFriends(ctx, Message{Type: TypeFriendAreaEvent, Payload: FriendAreaEventPayload{
		FriendName: s.displayName,
		Event:      event,
		AreaName:   areaName,
		Timestamp:  ts,
	}})
}

func (s *session) broadcastToFriends(ctx context.Context, msg Message) {
	friends, err := s.srv.users.ListFriends(ctx, s.userID)
	if err != nil {
		slog.Debug("ws list friends failed", "user", s.userID, "err", err)
		return
	}
	for _, f := range friends {
		s.srv.hub.Broadcast(UserRoom(f.ID), msg)
	}
}

// disconnect — терминальное состояние: неявный выход из зоны, все комнаты
// покидаются, друзья получают offline-статус (скоуп — друзья, не все пиры).
func (s *session) disconnect(ctx context.Context) {
	if !s.authed {
		s.srv.hub.LeaveAll(s.conn)
		return
	}

	if tr := s.srv.presence.Disconnect(ctx, s.userID); tr != nil {
		s.broadcastTransition(ctx, *tr)
	}

	s.broadcastToFriends(ctx, Message{Type: TypeFriendStatus, Payload: FriendStatusPayload{
		UserID:   s.userID,
		IsOnline: false,
		LastSeen: time.Now().Unix(),
	}})
	s.srv.hub.LeaveAll(s.conn)
}
