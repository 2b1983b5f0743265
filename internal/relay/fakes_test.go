package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/eleven-am/live-captions/internal/transcription"
	"github.com/eleven-am/live-captions/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []transport.ServerEvent
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(_ context.Context, evt transport.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Events() []transport.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transport.ServerEvent(nil), c.events...)
}

func (c *fakeConn) count(name transport.EventName) int {
	n := 0
	for _, evt := range c.Events() {
		if evt.Name == name {
			n++
		}
	}
	return n
}

type fakeRooms struct {
	mu         sync.Mutex
	members    map[string]map[string]transport.Connection
	published  []transport.ServerEvent
	publishErr error
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{members: make(map[string]map[string]transport.Connection)}
}

func (r *fakeRooms) Join(_ context.Context, roomID string, conn transport.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]transport.Connection)
	}
	r.members[roomID][conn.ID()] = conn
	return nil
}

func (r *fakeRooms) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[roomID], connID)
	if len(r.members[roomID]) == 0 {
		delete(r.members, roomID)
	}
}

func (r *fakeRooms) Publish(ctx context.Context, roomID string, evt transport.ServerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	if r.publishErr != nil {
		r.mu.Unlock()
		return r.publishErr
	}
	r.published = append(r.published, evt)
	members := make([]transport.Connection, 0, len(r.members[roomID]))
	for _, conn := range r.members[roomID] {
		members = append(members, conn)
	}
	r.mu.Unlock()

	for _, conn := range members {
		_ = conn.Send(ctx, evt)
	}
	return nil
}

func (r *fakeRooms) isMember(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[roomID][connID]
	return ok
}

func (r *fakeRooms) Published() []transport.ServerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.ServerEvent(nil), r.published...)
}

type fakeTranscriber struct {
	mu     sync.Mutex
	state  transcription.State
	audio  [][]byte
	cb     transcription.Callbacks
	closed bool
	done   chan struct{}
}

func (t *fakeTranscriber) State() transcription.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *fakeTranscriber) IsOpen() bool {
	return t.State() == transcription.StateOpen
}

func (t *fakeTranscriber) SendAudio(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != transcription.StateOpen {
		return transcription.ErrNotOpen
	}
	t.audio = append(t.audio, data)
	return nil
}

func (t *fakeTranscriber) KeepAlive() error { return nil }

func (t *fakeTranscriber) Finalize() error { return nil }

func (t *fakeTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	t.state = transcription.StateClosed
	return nil
}

func (t *fakeTranscriber) Done() <-chan struct{} { return t.done }

// open simulates the vendor accepting the stream.
func (t *fakeTranscriber) open() {
	t.mu.Lock()
	t.state = transcription.StateOpen
	t.mu.Unlock()
	if t.cb.OnOpen != nil {
		t.cb.OnOpen()
	}
}

func (t *fakeTranscriber) setState(s transcription.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *fakeTranscriber) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTranscriber) Audio() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.audio...)
}

func (t *fakeTranscriber) transcript(text string, final bool) {
	t.cb.OnTranscript(transcription.TranscriptEvent{Text: text, IsFinal: final, Confidence: 0.9})
}

type fakeProvider struct {
	mu       sync.Mutex
	autoOpen bool
	err      error
	opened   []*fakeTranscriber
	opts     []transcription.SessionOptions
}

func (p *fakeProvider) Open(_ context.Context, opts transcription.SessionOptions, cb transcription.Callbacks) (transcription.Transcriber, error) {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return nil, p.err
	}
	t := &fakeTranscriber{state: transcription.StateConnecting, cb: cb, done: make(chan struct{})}
	p.opened = append(p.opened, t)
	p.opts = append(p.opts, opts)
	autoOpen := p.autoOpen
	p.mu.Unlock()

	if autoOpen {
		t.open()
	}
	return t, nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

func (p *fakeProvider) last() *fakeTranscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.opened) == 0 {
		return nil
	}
	return p.opened[len(p.opened)-1]
}

func (p *fakeProvider) live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.opened {
		if !t.isClosed() {
			n++
		}
	}
	return n
}

type recordedEnd struct {
	lessonID string
	status   lesson.Status
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  []string
	captions []lesson.CaptionInput
	ended    []recordedEnd
}

func (r *fakeRecorder) LessonStarted(_ context.Context, lessonID, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, lessonID)
	return nil
}

func (r *fakeRecorder) CaptionPublished(_ context.Context, _, _ string, caption lesson.CaptionInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captions = append(r.captions, caption)
	return nil
}

func (r *fakeRecorder) LessonEnded(_ context.Context, lessonID string, status lesson.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, recordedEnd{lessonID: lessonID, status: status})
	return nil
}

func (r *fakeRecorder) Ended() []recordedEnd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEnd(nil), r.ended...)
}

func (r *fakeRecorder) Captions() []lesson.CaptionInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lesson.CaptionInput(nil), r.captions...)
}

var errVendorDown = errors.New("vendor down")
