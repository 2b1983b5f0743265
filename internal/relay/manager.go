package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/eleven-am/live-captions/internal/transcription"
	"github.com/eleven-am/live-captions/internal/transport"
)

type Manager struct {
	rooms    Rooms
	provider transcription.Provider
	recorder Recorder
	opts     transcription.SessionOptions
	interim  bool
	sessions map[string]*Session
	mu       sync.RWMutex
	log      *slog.Logger
}

type ManagerConfig struct {
	Rooms           Rooms
	Provider        transcription.Provider
	Recorder        Recorder
	SessionOptions  transcription.SessionOptions
	InterimCaptions bool
	Log             *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}

	return &Manager{
		rooms:    cfg.Rooms,
		provider: cfg.Provider,
		recorder: cfg.Recorder,
		opts:     cfg.SessionOptions,
		interim:  cfg.InterimCaptions,
		sessions: make(map[string]*Session),
		log:      cfg.Log.With("component", "relay_manager"),
	}
}

func (m *Manager) Open(conn transport.Connection) *Session {
	s := &Session{
		conn:     conn,
		rooms:    m.rooms,
		provider: m.provider,
		recorder: m.recorder,
		opts:     m.opts,
		interim:  m.interim,
		logger:   m.log.With("conn_id", conn.ID()),
	}

	m.mu.Lock()
	m.sessions[conn.ID()] = s
	m.mu.Unlock()

	m.log.Info("socket: client connected", "conn_id", conn.ID())
	return s
}

func (m *Manager) Get(connID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[connID]
	return s, ok
}

func (m *Manager) Close(ctx context.Context, connID string) {
	m.mu.Lock()
	s, ok := m.sessions[connID]
	if ok {
		delete(m.sessions, connID)
	}
	m.mu.Unlock()

	if s != nil {
		s.Close(ctx)
		m.log.Info("socket: client disconnected", "conn_id", connID)
	}
}

type SessionInfo struct {
	ConnID        string `json:"conn_id"`
	RoomID        string `json:"room_id,omitempty"`
	LessonID      string `json:"lesson_id,omitempty"`
	ProviderState string `json:"provider_state"`
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) ActiveLessonCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.LessonID() != "" {
			n++
		}
	}
	return n
}

func (m *Manager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, SessionInfo{
			ConnID:        s.ConnID(),
			RoomID:        s.RoomID(),
			LessonID:      s.LessonID(),
			ProviderState: s.ProviderState().String(),
		})
	}
	return sessions
}

func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}
}

type noopRecorder struct{}

func (noopRecorder) LessonStarted(context.Context, string, string, string) error { return nil }

func (noopRecorder) CaptionPublished(context.Context, string, string, lesson.CaptionInput) error {
	return nil
}

func (noopRecorder) LessonEnded(context.Context, string, lesson.Status) error { return nil }
