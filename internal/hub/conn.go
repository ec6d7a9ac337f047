package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/errmap"
	"github.com/parlorchat/parlor/pkg/protocol"
)

const writeTimeout = 10 * time.Second

// ConnectLimiter bounds how fast a single user may open new connections.
// Implementations return domain.ErrRateLimited when the budget is spent.
type ConnectLimiter interface {
	Allow(ctx context.Context, userID int64) error
}

// wsSession is the production Session: one WebSocket connection with a
// buffered outbound queue drained by a dedicated write pump.
type wsSession struct {
	id     string
	claims *auth.Claims
	conn   *websocket.Conn
	send   chan protocol.Event

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSession(conn *websocket.Conn, claims *auth.Claims) *wsSession {
	return &wsSession{
		id:     uuid.NewString(),
		claims: claims,
		conn:   conn,
		send:   make(chan protocol.Event, domain.OutboundBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *wsSession) ID() string           { return s.id }
func (s *wsSession) Claims() *auth.Claims { return s.claims }

// Send queues an event for the write pump. It never blocks: a full queue
// means the consumer is too slow and the event is dropped with an error so
// the registry can count it.
func (s *wsSession) Send(ev protocol.Event) error {
	select {
	case <-s.done:
		return fmt.Errorf("session closed: %w", domain.ErrUnavailable)
	default:
	}
	select {
	case s.send <- ev:
		return nil
	default:
		return fmt.Errorf("outbound queue full: %w", domain.ErrUnavailable)
	}
}

func (s *wsSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Handler upgrades HTTP requests to hub sessions. It owns the connection
// lifecycle: token validation, connect rate limiting, the read/write pumps,
// and teardown through Router.Disconnected.
type Handler struct {
	validator *auth.Validator
	limiter   ConnectLimiter
	router    *Router
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// HandlerConfig holds the dependencies for Handler.
type HandlerConfig struct {
	Validator *auth.Validator
	Limiter   ConnectLimiter
	Router    *Router
	Logger    *slog.Logger
}

// NewHandler creates a WebSocket upgrade handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		validator: cfg.Validator,
		limiter:   cfg.Limiter,
		router:    cfg.Router,
		logger:    cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	claims, err := h.validator.ValidateAccessToken(bearerToken(r))
	if err != nil {
		h.logger.InfoContext(r.Context(), "connection rejected", "error", err)
		closeWith(conn, errmap.WebSocketClose{Code: errmap.CloseUnauthorized, Reason: "unauthorized"})
		return
	}

	session := newWSSession(conn, claims)
	ctx := context.Background()

	connected := h.router.Connected(ctx, session)
	if connected.IsErr() {
		closeWith(conn, errmap.WebSocketClose{Code: errmap.CloseUnauthorized, Reason: "unauthorized"})
		return
	}
	userID := connected.Unwrap()

	if err := h.limiter.Allow(ctx, userID); err != nil {
		h.logger.InfoContext(ctx, "connection rate limited", "user_id", userID)
		h.router.Disconnected(ctx, session, nil)
		closeWith(conn, errmap.ToWebSocketClose(err))
		return
	}

	go h.writePump(ctx, session)
	h.readPump(ctx, session)
}

// readPump owns the connection's read side. It returns when the peer goes
// away or a deadline fires, tearing the session down on the way out.
func (h *Handler) readPump(ctx context.Context, s *wsSession) {
	var closeErr error
	defer func() {
		s.close()
		h.router.Disconnected(ctx, s, closeErr)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(domain.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(domain.HeartbeatTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(domain.HeartbeatTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeErr = err
			}
			return
		}

		var inv protocol.Invocation
		if err := json.Unmarshal(raw, &inv); err != nil {
			h.logger.DebugContext(ctx, "malformed frame dropped",
				"session_id", s.id, "error", err)
			continue
		}
		h.router.Dispatch(ctx, s, inv)
	}
}

// writePump owns the connection's write side: queued events and heartbeat
// pings. Exactly one writer per connection.
func (h *Handler) writePump(ctx context.Context, s *wsSession) {
	ticker := time.NewTicker(domain.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(ev); err != nil {
				h.logger.DebugContext(ctx, "write failed",
					"session_id", s.id, "event", ev.Event, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// bearerToken extracts the access token from the Authorization header or,
// for browser clients that cannot set headers on a WebSocket, from the
// access_token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func closeWith(conn *websocket.Conn, wc errmap.WebSocketClose) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(wc.Code, wc.Reason))
	_ = conn.Close()
}
