package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/gorilla/websocket"
)

type AreaLookup interface {
	Get(ctx context.Context, id string) (*domain.Area, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub

	presence Presence
	samples  SampleStore
	users    Directory
	areas    AreaLookup
	tokens   TokenVerifier

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence Presence, samples SampleStore, users Directory, areas AreaLookup, tokens TokenVerifier) *Server {
	return &Server{
		hub:      hub,
		presence: presence,
		samples:  samples,
		users:    users,
		areas:    areas,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws. Соединение начинается неаутентифицированным; первым
// сообщением клиент шлёт authenticate(token).
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	sess := &session{conn: c, srv: s}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), sess, c)

	sess.disconnect(r.Context())

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", sess.userID, "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, sess *session, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("malformed message")
			continue
		}
		sess.handleMessage(ctx, msg)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
