package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eleven-am/live-captions/internal/relay"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Sessions opens and releases the relay state bound to a socket.
type Sessions interface {
	Open(conn *WSConn) EventHandler
	Close(ctx context.Context, connID string)
}

type managerSessions struct {
	manager *relay.Manager
}

func (m managerSessions) Open(conn *WSConn) EventHandler {
	return m.manager.Open(conn)
}

func (m managerSessions) Close(ctx context.Context, connID string) {
	m.manager.Close(ctx, connID)
}

func RelaySessions(manager *relay.Manager) Sessions {
	return managerSessions{manager: manager}
}

type WSServer struct {
	sessions Sessions
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSServer(sessions Sessions, allowedOrigins []string, logger *slog.Logger) *WSServer {
	return &WSServer{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With("component", "ws_server"),
	}
}

func (s *WSServer) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.Index)
	e.GET("/ws", s.HandleConnection)
}

func (s *WSServer) Index(c echo.Context) error {
	return c.String(http.StatusOK, "backend is running")
}

func (s *WSServer) HandleConnection(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := NewWSConn(ws, s.logger)
	handler := s.sessions.Open(conn)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer func() {
		cancel()
		s.sessions.Close(context.WithoutCancel(ctx), conn.ID())
	}()

	go conn.writePump(ctx)
	conn.readPump(ctx, handler)
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
