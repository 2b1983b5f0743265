package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotOpen       = errors.New("provider session not open")
	ErrMissingAPIKey = errors.New("deepgram api key not configured")
)

type Client struct {
	cfg    Config
	opts   SessionOptions
	cb     Callbacks
	logger *slog.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	writeMu sync.Mutex

	state     atomic.Int32
	opened    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config, opts SessionOptions, cb Callbacks) *Client {
	cfg = normalizeConfig(cfg)
	c := &Client{
		cfg:    cfg,
		opts:   opts,
		cb:     cb,
		logger: cfg.Logger.With("component", "deepgram"),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) IsOpen() bool {
	return c.State() == StateOpen
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) listenURL() string {
	sep := "?"
	if strings.Contains(c.cfg.URL, "?") {
		sep = "&"
	}
	return c.cfg.URL + sep + c.opts.Query().Encode()
}

// Connect performs the websocket handshake. A Close issued while the
// handshake is in flight wins: the socket is dropped as soon as it opens.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		c.finish()
		return ErrMissingAPIKey
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+c.cfg.APIKey)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	ws, resp, err := c.cfg.Dialer.DialContext(dialCtx, c.listenURL(), header)
	if err != nil {
		c.finish()
		if resp != nil {
			return fmt.Errorf("dial deepgram: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial deepgram: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		c.logger.Debug("session closed during handshake")
		_ = ws.Close()
		c.finish()
		return nil
	}

	c.opened.Store(true)
	c.logger.Info("deepgram: connected")

	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	go c.readLoop(ws)
	go c.keepAliveLoop()
	return nil
}

func (c *Client) SendAudio(data []byte) error {
	if !c.IsOpen() {
		return ErrNotOpen
	}
	return c.write(websocket.BinaryMessage, data)
}

func (c *Client) KeepAlive() error {
	if !c.IsOpen() {
		return ErrNotOpen
	}
	return c.writeControl("KeepAlive")
}

func (c *Client) Finalize() error {
	if !c.IsOpen() {
		return ErrNotOpen
	}
	return c.writeControl("Finalize")
}

// Close asks the vendor to flush and end the stream. The socket is torn
// down when the vendor closes it or after CloseTimeout, whichever is first.
func (c *Client) Close() error {
	for {
		s := c.State()
		if s == StateClosing || s == StateClosed {
			return nil
		}
		if c.state.CompareAndSwap(int32(s), int32(StateClosing)) {
			break
		}
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return nil
	}

	err := c.writeControl("CloseStream")
	if err != nil {
		_ = ws.Close()
	}

	go func() {
		select {
		case <-c.done:
		case <-time.After(c.cfg.CloseTimeout):
			c.logger.Warn("deepgram: close timed out, dropping socket")
			_ = ws.Close()
		}
	}()

	return err
}

func (c *Client) writeControl(msgType string) error {
	data, err := json.Marshal(controlMessage{Type: msgType})
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(messageType, data)
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.IsOpen() {
				continue
			}
			c.logger.Debug("deepgram: keepalive")
			if err := c.KeepAlive(); err != nil {
				c.logger.Warn("deepgram: keepalive failed", "error", err)
			}
		}
	}
}

func (c *Client) readLoop(ws *websocket.Conn) {
	defer func() {
		_ = ws.Close()
		c.finish()
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			closing := c.State() == StateClosing
			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Error("deepgram: read error", "error", err)
				c.emitError(fmt.Errorf("deepgram read: %w", err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var header messageHeader
	if err := json.Unmarshal(data, &header); err != nil {
		c.logger.Warn("deepgram: undecodable message", "error", err)
		return
	}

	switch header.Type {
	case "Results":
		var msg resultsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("deepgram: bad results message", "error", err)
			return
		}
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		c.logger.Debug("deepgram: transcript received", "final", msg.IsFinal)
		if c.cb.OnTranscript != nil {
			c.cb.OnTranscript(TranscriptEvent{
				Text:        strings.TrimSpace(alt.Transcript),
				IsFinal:     msg.IsFinal,
				SpeechFinal: msg.SpeechFinal,
				Start:       msg.Start,
				Duration:    msg.Duration,
				Confidence:  alt.Confidence,
				Words:       alt.Words,
			})
		}
	case "Metadata":
		var msg metadataMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		c.logger.Debug("deepgram: metadata received", "request_id", msg.RequestID)
		if c.cb.OnMetadata != nil {
			c.cb.OnMetadata(MetadataEvent{
				RequestID: msg.RequestID,
				Created:   msg.Created,
				Duration:  msg.Duration,
				Channels:  msg.Channels,
			})
		}
	case "SpeechStarted":
		var msg speechStartedMessage
		if err := json.Unmarshal(data, &msg); err == nil && c.cb.OnSpeechStarted != nil {
			c.cb.OnSpeechStarted(msg.Timestamp)
		}
	case "UtteranceEnd":
		var msg utteranceEndMessage
		if err := json.Unmarshal(data, &msg); err == nil && c.cb.OnUtteranceEnd != nil {
			c.cb.OnUtteranceEnd(msg.LastWordEnd)
		}
	case "Error":
		var msg errorMessage
		_ = json.Unmarshal(data, &msg)
		c.logger.Error("deepgram: error received", "error", msg.text())
		c.emitError(fmt.Errorf("deepgram: %s", msg.text()))
	default:
		c.logger.Warn("deepgram: unhandled event", "type", header.Type)
	}
}

func (c *Client) emitError(err error) {
	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
}

func (c *Client) finish() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		if c.opened.Load() {
			c.logger.Info("deepgram: disconnected")
			if c.cb.OnClose != nil {
				c.cb.OnClose()
			}
		}
	})
}
