package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/live-captions/internal/shared"
	"github.com/eleven-am/live-captions/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 128
)

type EventHandler interface {
	HandleEvent(ctx context.Context, evt transport.ClientEvent)
}

type EventHandlerFunc func(ctx context.Context, evt transport.ClientEvent)

func (f EventHandlerFunc) HandleEvent(ctx context.Context, evt transport.ClientEvent) {
	f(ctx, evt)
}

type WSConn struct {
	ws     *websocket.Conn
	id     string
	logger *slog.Logger
	send   chan transport.ServerEvent
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewWSConn(ws *websocket.Conn, logger *slog.Logger) *WSConn {
	id := shared.NewID("conn_")
	return &WSConn{
		ws:     ws,
		id:     id,
		logger: logger.With("conn_id", id),
		send:   make(chan transport.ServerEvent, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *WSConn) ID() string {
	return c.id
}

func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

func (c *WSConn) Send(_ context.Context, evt transport.ServerEvent) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}

	select {
	case c.send <- evt:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping event", "event", evt.Name)
		return nil
	}
}

func (c *WSConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

func (c *WSConn) readPump(ctx context.Context, handler EventHandler) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var evt transport.ClientEvent
		switch messageType {
		case websocket.BinaryMessage:
			evt, err = transport.DecodeBinary(message)
		case websocket.TextMessage:
			evt, err = transport.DecodeText(message)
		default:
			continue
		}
		if err != nil {
			c.logger.Warn("rejected client event", "error", err)
			_ = c.Send(ctx, transport.Error(clientErrorMessage(err)))
			continue
		}

		handler.HandleEvent(ctx, evt)
	}
}

func (c *WSConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case evt := <-c.send:
			data, err := json.Marshal(evt)
			if err != nil {
				c.logger.Error("failed to marshal event", "error", err)
				continue
			}

			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func clientErrorMessage(err error) string {
	switch {
	case errors.Is(err, transport.ErrEmptyRoomID):
		return "room id must not be empty"
	case errors.Is(err, transport.ErrEmptyAudio):
		return "audio chunk must not be empty"
	case errors.Is(err, transport.ErrUnknownEvent):
		return "unknown event"
	default:
		return "malformed event"
	}
}
