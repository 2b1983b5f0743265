package relay

import (
	"context"
	"testing"

	"github.com/eleven-am/live-captions/internal/transcription"
	"github.com/eleven-am/live-captions/internal/transport"
)

func newTestManager(provider transcription.Provider, rooms Rooms) *Manager {
	return NewManager(ManagerConfig{
		Rooms:          rooms,
		Provider:       provider,
		SessionOptions: transcription.DefaultSessionOptions(),
		Log:            testLogger(),
	})
}

func TestManager_OpenGetClose(t *testing.T) {
	rooms := newFakeRooms()
	m := newTestManager(&fakeProvider{autoOpen: true}, rooms)
	conn := &fakeConn{id: "conn_1"}

	s := m.Open(conn)
	if s.ConnID() != "conn_1" {
		t.Errorf("expected conn_1, got %q", s.ConnID())
	}
	if got, ok := m.Get("conn_1"); !ok || got != s {
		t.Error("expected session to be registered")
	}
	if m.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", m.SessionCount())
	}

	s.HandleEvent(context.Background(), transport.ClientEvent{Name: transport.EventJoinRoom, RoomID: "room-1"})
	m.Close(context.Background(), "conn_1")

	if _, ok := m.Get("conn_1"); ok {
		t.Error("session should be removed after close")
	}
	if rooms.isMember("room-1", "conn_1") {
		t.Error("closing the session should leave its room")
	}

	// closing twice is harmless
	m.Close(context.Background(), "conn_1")
}

func TestManager_NilRecorderIsNoop(t *testing.T) {
	m := newTestManager(&fakeProvider{autoOpen: true}, newFakeRooms())
	conn := &fakeConn{id: "conn_1"}
	s := m.Open(conn)
	ctx := context.Background()

	s.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventJoinRoom, RoomID: "room-1"})
	s.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventStartLesson})
	s.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventStopLesson})

	if conn.count(transport.EventLessonStarted) != 1 || conn.count(transport.EventLessonEnded) != 1 {
		t.Errorf("unexpected events: %+v", conn.Events())
	}
}

func TestManager_ListSessionsAndActiveLessons(t *testing.T) {
	m := newTestManager(&fakeProvider{autoOpen: true}, newFakeRooms())
	ctx := context.Background()

	presenter := m.Open(&fakeConn{id: "conn_presenter"})
	m.Open(&fakeConn{id: "conn_student"})

	presenter.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventJoinRoom, RoomID: "room-1"})
	presenter.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventStartLesson})

	if m.ActiveLessonCount() != 1 {
		t.Errorf("expected 1 active lesson, got %d", m.ActiveLessonCount())
	}

	infos := make(map[string]SessionInfo)
	for _, info := range m.ListSessions() {
		infos[info.ConnID] = info
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}

	pi := infos["conn_presenter"]
	if pi.RoomID != "room-1" || pi.LessonID == "" || pi.ProviderState != "open" {
		t.Errorf("unexpected presenter session info: %+v", pi)
	}
	if si := infos["conn_student"]; si.ProviderState != "closed" || si.LessonID != "" {
		t.Errorf("unexpected student session info: %+v", si)
	}
}

func TestManager_CloseAll(t *testing.T) {
	provider := &fakeProvider{autoOpen: true}
	m := newTestManager(provider, newFakeRooms())
	ctx := context.Background()

	for _, id := range []string{"conn_1", "conn_2"} {
		s := m.Open(&fakeConn{id: id})
		s.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventJoinRoom, RoomID: "room-1"})
		s.HandleEvent(ctx, transport.ClientEvent{Name: transport.EventStartLesson})
	}

	m.CloseAll(ctx)

	if m.SessionCount() != 0 {
		t.Errorf("expected no sessions, got %d", m.SessionCount())
	}
	if provider.live() != 0 {
		t.Errorf("expected all provider sessions closed, got %d live", provider.live())
	}
}
