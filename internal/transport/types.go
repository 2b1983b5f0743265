package transport

import (
	"context"
	"encoding/json"
	"errors"
)

type EventName string

const (
	EventJoinRoom    EventName = "join_room"
	EventStartLesson EventName = "start_lesson"
	EventSendAudio   EventName = "send_audio"
	EventStopLesson  EventName = "stop_lesson"

	EventCaption       EventName = "caption"
	EventLessonStarted EventName = "lesson_started"
	EventLessonEnded   EventName = "lesson_ended"
	EventError         EventName = "error"
)

var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrEmptyRoomID   = errors.New("room id must not be empty")
	ErrEmptyAudio    = errors.New("audio chunk must not be empty")
	ErrMalformedData = errors.New("malformed event payload")
)

// Envelope is the JSON shape of every text frame in both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ClientEvent struct {
	Name   EventName
	RoomID string
	Audio  []byte
}

type ServerEvent struct {
	Name EventName
	Text string
}

func (e ServerEvent) MarshalJSON() ([]byte, error) {
	env := Envelope{Event: e.Name}
	if e.Name == EventCaption || e.Name == EventError {
		data, err := json.Marshal(e.Text)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

func (e *ServerEvent) UnmarshalJSON(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	e.Name = env.Event
	e.Text = ""
	if len(env.Data) > 0 {
		return json.Unmarshal(env.Data, &e.Text)
	}
	return nil
}

func Caption(text string) ServerEvent {
	return ServerEvent{Name: EventCaption, Text: text}
}

func LessonStarted() ServerEvent {
	return ServerEvent{Name: EventLessonStarted}
}

func LessonEnded() ServerEvent {
	return ServerEvent{Name: EventLessonEnded}
}

func Error(message string) ServerEvent {
	return ServerEvent{Name: EventError, Text: message}
}

type Connection interface {
	ID() string
	Send(ctx context.Context, event ServerEvent) error
	Close() error
}
