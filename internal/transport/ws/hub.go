package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Имена комнат: личная комната пользователя и комната зоны.
func UserRoom(userID string) string { return "user_" + userID }
func AreaRoom(areaID string) string { return "area_" + areaID }

// Hub держит членство соединений в комнатах. Соединение может состоять в
// нескольких комнатах одновременно (user_<id> плюс не более одной area_<id>).
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // room -> set of connections
	conns map[Conn]map[string]struct{} // connection -> set of rooms
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]map[string]struct{}),
	}
}

func (h *Hub) Join(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}

	cs, ok := h.conns[c]
	if !ok {
		cs = make(map[string]struct{})
		h.conns[c] = cs
	}
	cs[room] = struct{}{}
}

func (h *Hub) Leave(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll выводит соединение из всех комнат и возвращает их список.
func (h *Hub) LeaveAll(c Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms := make([]string, 0, len(h.conns[c]))
	for room := range h.conns[c] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		h.leaveLocked(room, c)
	}
	return rooms
}

func (h *Hub) leaveLocked(room string, c Conn) {
	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
	if cs, ok := h.conns[c]; ok {
		delete(cs, room)
		if len(cs) == 0 {
			delete(h.conns, c)
		}
	}
}

// Broadcast — best-effort рассылка всем в комнате.
func (h *Hub) Broadcast(room string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			_ = c.Send(msg)
		}
	}
}

// BroadcastExcept — то же, но отправитель своё событие не получает.
func (h *Hub) BroadcastExcept(room string, sender Conn, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			if c == sender {
				continue
			}
			_ = c.Send(msg)
		}
	}
}
