package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

func DecodeText(data []byte) (ClientEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientEvent{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	evt := ClientEvent{Name: env.Event}
	switch env.Event {
	case EventJoinRoom:
		var room string
		if err := json.Unmarshal(env.Data, &room); err != nil {
			return ClientEvent{}, fmt.Errorf("%w: join_room expects a string", ErrMalformedData)
		}
		room = strings.TrimSpace(room)
		if room == "" {
			return ClientEvent{}, ErrEmptyRoomID
		}
		evt.RoomID = room
	case EventSendAudio:
		var audio []byte
		if err := json.Unmarshal(env.Data, &audio); err != nil {
			return ClientEvent{}, fmt.Errorf("%w: send_audio expects base64 data", ErrMalformedData)
		}
		if len(audio) == 0 {
			return ClientEvent{}, ErrEmptyAudio
		}
		evt.Audio = audio
	case EventStartLesson, EventStopLesson:
	default:
		return ClientEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return evt, nil
}

// DecodeBinary treats a binary frame as a send_audio event.
func DecodeBinary(data []byte) (ClientEvent, error) {
	if len(data) == 0 {
		return ClientEvent{}, ErrEmptyAudio
	}
	return ClientEvent{Name: EventSendAudio, Audio: data}, nil
}

// Encode builds a text frame for the given event. A nil data omits the
// payload.
func Encode(name EventName, data any) ([]byte, error) {
	env := Envelope{Event: name}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
