package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/eleven-am/live-captions/internal/shared"
	"github.com/eleven-am/live-captions/internal/transcription"
	"github.com/eleven-am/live-captions/internal/transport"
)

var (
	ErrNoRoom   = errors.New("join a room first")
	ErrNoLesson = errors.New("no active lesson")
)

type Rooms interface {
	Join(ctx context.Context, roomID string, conn transport.Connection) error
	Leave(roomID, connID string)
	Publish(ctx context.Context, roomID string, evt transport.ServerEvent) error
}

type Recorder interface {
	LessonStarted(ctx context.Context, lessonID, roomID, connID string) error
	CaptionPublished(ctx context.Context, lessonID, roomID string, caption lesson.CaptionInput) error
	LessonEnded(ctx context.Context, lessonID string, status lesson.Status) error
}

// Session relays one client connection to at most one provider session.
type Session struct {
	conn     transport.Connection
	rooms    Rooms
	provider transcription.Provider
	recorder Recorder
	opts     transcription.SessionOptions
	interim  bool
	logger   *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	roomID      string
	lessonID    string
	announced   bool
	failed      bool
	closed      bool
	transcriber transcription.Transcriber
	generation  uint64
}

func (s *Session) ConnID() string {
	return s.conn.ID()
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) LessonID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lessonID
}

func (s *Session) ProviderState() transcription.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcriber == nil {
		return transcription.StateClosed
	}
	return s.transcriber.State()
}

func (s *Session) HandleEvent(ctx context.Context, evt transport.ClientEvent) {
	switch evt.Name {
	case transport.EventJoinRoom:
		s.joinRoom(ctx, evt.RoomID)
	case transport.EventStartLesson:
		s.startLesson(ctx)
	case transport.EventSendAudio:
		s.sendAudio(ctx, evt.Audio)
	case transport.EventStopLesson:
		s.stopLesson(ctx)
	default:
		s.logger.Warn("unhandled client event", "event", evt.Name)
	}
}

func (s *Session) joinRoom(ctx context.Context, roomID string) {
	s.mu.Lock()
	prev := s.roomID
	s.mu.Unlock()
	if prev == roomID {
		return
	}

	if err := s.rooms.Join(ctx, roomID, s.conn); err != nil {
		s.logger.Error("join room failed", "error", err, "room_id", roomID)
		s.emit(ctx, transport.Error("failed to join room"))
		return
	}
	if prev != "" {
		s.rooms.Leave(prev, s.conn.ID())
	}

	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()
	s.logger.Info("socket: joined room", "room_id", roomID, "previous_room_id", prev)
}

func (s *Session) startLesson(ctx context.Context) {
	s.mu.Lock()
	roomID := s.roomID
	if roomID == "" {
		s.mu.Unlock()
		s.emit(ctx, transport.Error(ErrNoRoom.Error()))
		return
	}
	old, oldLesson, oldFailed := s.retireLocked()
	lessonID := shared.NewID("lesson_")
	s.lessonID = lessonID
	s.announced = false
	s.failed = false
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if oldLesson != "" {
		s.endLesson(ctx, oldLesson, oldFailed)
	}

	if err := s.recorder.LessonStarted(ctx, lessonID, roomID, s.conn.ID()); err != nil {
		s.logger.Warn("record lesson start failed", "error", err, "lesson_id", lessonID)
	}
	s.logger.Info("lesson starting", "lesson_id", lessonID, "room_id", roomID)
	s.open(ctx, lessonID)
}

func (s *Session) sendAudio(ctx context.Context, audio []byte) {
	s.mu.Lock()
	t := s.transcriber
	lessonID := s.lessonID
	s.mu.Unlock()

	if lessonID == "" {
		s.emit(ctx, transport.Error(ErrNoLesson.Error()))
		return
	}
	if t == nil {
		s.logger.Info("socket: no provider session, reopening", "lesson_id", lessonID)
		s.open(ctx, lessonID)
		return
	}

	switch t.State() {
	case transcription.StateOpen:
		if err := t.SendAudio(audio); err != nil {
			s.logger.Warn("socket: data couldn't be sent to deepgram", "error", err)
		}
	case transcription.StateClosing, transcription.StateClosed:
		s.logger.Info("socket: retrying connection to deepgram", "lesson_id", lessonID)
		s.mu.Lock()
		if s.transcriber == t {
			s.transcriber = nil
			s.generation++
		}
		s.mu.Unlock()
		_ = t.Close()
		s.open(ctx, lessonID)
	default:
		s.logger.Debug("socket: data couldn't be sent to deepgram", "state", t.State().String())
	}
}

func (s *Session) stopLesson(ctx context.Context) {
	s.mu.Lock()
	t, lessonID, failed := s.retireLocked()
	s.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	if lessonID != "" {
		s.endLesson(ctx, lessonID, failed)
		s.logger.Info("lesson stopped", "lesson_id", lessonID)
	}
	s.emit(ctx, transport.LessonEnded())
}

// Close releases the provider session and room membership without
// emitting anything to the client. The room is remembered so captions the
// provider flushes after CloseStream still reach the other members.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	t, lessonID, failed := s.retireLocked()
	roomID := s.roomID
	s.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	if lessonID != "" {
		s.endLesson(ctx, lessonID, failed)
	}
	if roomID != "" {
		s.rooms.Leave(roomID, s.conn.ID())
	}
}

func (s *Session) retireLocked() (transcription.Transcriber, string, bool) {
	t := s.transcriber
	lessonID := s.lessonID
	failed := s.failed
	s.transcriber = nil
	s.lessonID = ""
	s.announced = false
	s.failed = false
	s.generation++
	return t, lessonID, failed
}

func (s *Session) endLesson(ctx context.Context, lessonID string, failed bool) {
	status := lesson.StatusEnded
	if failed {
		status = lesson.StatusError
	}
	if err := s.recorder.LessonEnded(context.WithoutCancel(ctx), lessonID, status); err != nil {
		s.logger.Warn("record lesson end failed", "error", err, "lesson_id", lessonID)
	}
}

func (s *Session) open(ctx context.Context, lessonID string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	t, err := s.provider.Open(ctx, s.opts, s.callbacks(gen, lessonID))
	if err != nil {
		s.logger.Error("open provider session failed", "error", err, "lesson_id", lessonID)
		s.markFailed(gen)
		s.emit(ctx, transport.Error("transcription unavailable"))
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		_ = t.Close()
		return
	}
	s.transcriber = t
	s.mu.Unlock()
}

func (s *Session) callbacks(gen uint64, lessonID string) transcription.Callbacks {
	return transcription.Callbacks{
		OnOpen: func() {
			s.mu.Lock()
			current := gen == s.generation
			announce := current && !s.announced
			if announce {
				s.announced = true
			}
			if current {
				s.failed = false
			}
			ctx := s.ctx
			s.mu.Unlock()

			if announce {
				s.emit(ctx, transport.LessonStarted())
			}
		},
		OnTranscript: func(evt transcription.TranscriptEvent) {
			s.relayTranscript(lessonID, evt)
		},
		OnError: func(err error) {
			s.logger.Error("deepgram: error received", "error", err, "lesson_id", lessonID)
			if s.markFailed(gen) {
				s.emit(s.context(), transport.Error(err.Error()))
			}
		},
		OnClose: func() {
			s.logger.Info("deepgram: session closed", "lesson_id", lessonID)
		},
	}
}

// markFailed flags the lesson as errored and reports whether the failure
// should be surfaced: gen must belong to the live provider session and the
// lesson must not already be failing.
func (s *Session) markFailed(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.failed {
		return false
	}
	if s.lessonID != "" {
		s.failed = true
	}
	return true
}

func (s *Session) relayTranscript(lessonID string, evt transcription.TranscriptEvent) {
	if evt.Text == "" {
		return
	}
	if !evt.IsFinal && !s.interim {
		return
	}

	s.mu.Lock()
	roomID := s.roomID
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if roomID == "" {
		s.emit(ctx, transport.Caption(evt.Text))
	} else if err := s.rooms.Publish(ctx, roomID, transport.Caption(evt.Text)); err != nil {
		s.logger.Error("publish caption failed", "error", err, "room_id", roomID)
		s.emit(ctx, transport.Caption(evt.Text))
	}

	if evt.IsFinal {
		caption := lesson.CaptionInput{
			Text:       evt.Text,
			Start:      evt.Start,
			Duration:   evt.Duration,
			Confidence: evt.Confidence,
		}
		if err := s.recorder.CaptionPublished(context.WithoutCancel(ctx), lessonID, roomID, caption); err != nil {
			s.logger.Warn("record caption failed", "error", err, "lesson_id", lessonID)
		}
	}
}

func (s *Session) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Session) emit(ctx context.Context, evt transport.ServerEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.conn.Send(ctx, evt); err != nil {
		s.logger.Warn("socket: emit failed", "error", err, "event", evt.Name)
	}
}
