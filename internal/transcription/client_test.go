package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeDeepgram struct {
	mu       sync.Mutex
	auth     string
	query    url.Values
	audio    [][]byte
	controls []string
	reply    string
}

func newFakeDeepgram(t *testing.T) (*fakeDeepgram, *httptest.Server) {
	t.Helper()
	fake := &fakeDeepgram{reply: "hello world"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		fake.auth = r.Header.Get("Authorization")
		fake.query = r.URL.Query()
		fake.mu.Unlock()

		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			switch mt {
			case websocket.BinaryMessage:
				fake.mu.Lock()
				fake.audio = append(fake.audio, data)
				reply := fake.reply
				fake.mu.Unlock()
				_ = ws.WriteMessage(websocket.TextMessage, resultsJSON(reply, true))
			case websocket.TextMessage:
				var msg controlMessage
				_ = json.Unmarshal(data, &msg)
				fake.mu.Lock()
				fake.controls = append(fake.controls, msg.Type)
				fake.mu.Unlock()
				if msg.Type == "CloseStream" {
					_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"req-1","duration":1.5,"channels":1}`))
					_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}))
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeDeepgram) controlCount(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.controls {
		if c == msgType {
			n++
		}
	}
	return n
}

func resultsJSON(text string, final bool) []byte {
	msg := map[string]any{
		"type":         "Results",
		"start":        0.5,
		"duration":     1.25,
		"is_final":     final,
		"speech_final": final,
		"channel": map[string]any{
			"alternatives": []map[string]any{
				{"transcript": text, "confidence": 0.98, "words": []map[string]any{}},
			},
		},
	}
	data, _ := json.Marshal(msg)
	return data
}

func wsURL(server *httptest.Server) string {
	return "ws" + server.URL[4:]
}

func testConfig(server *httptest.Server) Config {
	return Config{
		APIKey:       "test-key",
		URL:          wsURL(server),
		CloseTimeout: time.Second,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSessionOptions_Query(t *testing.T) {
	q := DefaultSessionOptions().Query()
	if q.Get("model") != "nova-3" {
		t.Errorf("model = %q, want nova-3", q.Get("model"))
	}
	if q.Get("language") != "en" {
		t.Errorf("language = %q, want en", q.Get("language"))
	}
	if q.Get("smart_format") != "true" {
		t.Errorf("smart_format = %q, want true", q.Get("smart_format"))
	}
	if q.Has("encoding") || q.Has("sample_rate") {
		t.Error("encoding and sample_rate should be omitted for container audio")
	}

	q = SessionOptions{
		InterimResults: true,
		UtteranceEndMs: 1000,
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
	}.Query()
	if q.Get("model") != DefaultModel {
		t.Errorf("empty model should default to %s, got %q", DefaultModel, q.Get("model"))
	}
	if q.Get("interim_results") != "true" {
		t.Error("interim_results not set")
	}
	if q.Get("utterance_end_ms") != "1000" {
		t.Errorf("utterance_end_ms = %q", q.Get("utterance_end_ms"))
	}
	if q.Get("sample_rate") != "16000" || q.Get("encoding") != "linear16" || q.Get("channels") != "1" {
		t.Errorf("raw audio params not set: %v", q)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateClosing, "closing"},
		{StateClosed, "closed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestClient_ConnectAndTranscribe(t *testing.T) {
	fake, server := newFakeDeepgram(t)

	opened := make(chan struct{}, 1)
	transcripts := make(chan TranscriptEvent, 4)
	client := New(testConfig(server), DefaultSessionOptions(), Callbacks{
		OnOpen:       func() { opened <- struct{}{} },
		OnTranscript: func(evt TranscriptEvent) { transcripts <- evt },
	})

	if client.State() != StateConnecting {
		t.Fatalf("new client state = %s, want connecting", client.State())
	}
	if err := client.SendAudio([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("SendAudio before open: expected ErrNotOpen, got %v", err)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer client.Close()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("OnOpen not called")
	}
	if !client.IsOpen() {
		t.Fatalf("state = %s, want open", client.State())
	}

	fake.mu.Lock()
	auth, query := fake.auth, fake.query
	fake.mu.Unlock()
	if auth != "Token test-key" {
		t.Errorf("Authorization = %q, want %q", auth, "Token test-key")
	}
	if query.Get("model") != "nova-3" {
		t.Errorf("model query = %q, want nova-3", query.Get("model"))
	}

	if err := client.SendAudio([]byte{0x1a, 0x45, 0xdf, 0xa3}); err != nil {
		t.Fatalf("SendAudio error: %v", err)
	}

	select {
	case evt := <-transcripts:
		if evt.Text != "hello world" {
			t.Errorf("Text = %q, want %q", evt.Text, "hello world")
		}
		if !evt.IsFinal {
			t.Error("expected final transcript")
		}
		if evt.Duration != 1.25 {
			t.Errorf("Duration = %v, want 1.25", evt.Duration)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript received")
	}

	fake.mu.Lock()
	chunks := len(fake.audio)
	fake.mu.Unlock()
	if chunks != 1 {
		t.Errorf("server received %d audio chunks, want 1", chunks)
	}
}

func TestClient_CloseSendsCloseStream(t *testing.T) {
	fake, server := newFakeDeepgram(t)

	closed := make(chan struct{}, 1)
	metadata := make(chan MetadataEvent, 1)
	client := New(testConfig(server), DefaultSessionOptions(), Callbacks{
		OnClose:    func() { closed <- struct{}{} },
		OnMetadata: func(evt MetadataEvent) { metadata <- evt },
		OnError:    func(err error) { t.Errorf("unexpected error: %v", err) },
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.State() != StateClosing && client.State() != StateClosed {
		t.Errorf("state after Close = %s", client.State())
	}

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not finish after CloseStream")
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("OnClose not called")
	}

	select {
	case evt := <-metadata:
		if evt.RequestID != "req-1" {
			t.Errorf("RequestID = %q, want req-1", evt.RequestID)
		}
	default:
		t.Error("metadata flushed before close was not delivered")
	}

	if fake.controlCount("CloseStream") != 1 {
		t.Errorf("expected one CloseStream message, got %d", fake.controlCount("CloseStream"))
	}
	if client.State() != StateClosed {
		t.Errorf("state = %s, want closed", client.State())
	}
	if err := client.SendAudio([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SendAudio after close: expected ErrNotOpen, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestClient_KeepAlive(t *testing.T) {
	fake, server := newFakeDeepgram(t)

	cfg := testConfig(server)
	cfg.KeepAlive = 20 * time.Millisecond
	client := New(cfg, DefaultSessionOptions(), Callbacks{})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer client.Close()

	waitFor(t, func() bool { return fake.controlCount("KeepAlive") >= 2 }, 2*time.Second)
}

func TestClient_CloseDuringHandshake(t *testing.T) {
	_, server := newFakeDeepgram(t)

	opened := make(chan struct{}, 1)
	client := New(testConfig(server), DefaultSessionOptions(), Callbacks{
		OnOpen: func() { opened <- struct{}{} },
	})
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client should finish when closed before the handshake completed")
	}
	select {
	case <-opened:
		t.Error("OnOpen should not fire for a session closed during handshake")
	default:
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := New(Config{}, DefaultSessionOptions(), Callbacks{})
	if err := client.Connect(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if client.State() != StateClosed {
		t.Errorf("state = %s, want closed", client.State())
	}
}

func TestClient_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(testConfig(server), DefaultSessionOptions(), Callbacks{})
	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}

	select {
	case <-client.Done():
	default:
		t.Error("Done should be closed after a failed dial")
	}
}

func TestClient_HandleMessage(t *testing.T) {
	var (
		speechAt float64
		endAt    float64
		gotErr   error
		texts    []string
	)
	client := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, SessionOptions{}, Callbacks{
		OnSpeechStarted: func(ts float64) { speechAt = ts },
		OnUtteranceEnd:  func(ts float64) { endAt = ts },
		OnError:         func(err error) { gotErr = err },
		OnTranscript:    func(evt TranscriptEvent) { texts = append(texts, evt.Text) },
	})

	client.handleMessage([]byte(`{"type":"SpeechStarted","channel":[0,1],"timestamp":1.5}`))
	client.handleMessage([]byte(`{"type":"UtteranceEnd","channel":[0,1],"last_word_end":2.75}`))
	client.handleMessage([]byte(`{"type":"Error","description":"bad audio"}`))
	client.handleMessage([]byte(`{"type":"Results","channel":{"alternatives":[{"transcript":"  padded  "}]}}`))
	client.handleMessage([]byte(`{"type":"Results","channel":{"alternatives":[]}}`))
	client.handleMessage([]byte(`{"type":"Mystery"}`))
	client.handleMessage([]byte(`not json`))

	if speechAt != 1.5 {
		t.Errorf("speech started at %v, want 1.5", speechAt)
	}
	if endAt != 2.75 {
		t.Errorf("utterance end at %v, want 2.75", endAt)
	}
	if gotErr == nil || gotErr.Error() != "deepgram: bad audio" {
		t.Errorf("unexpected error callback: %v", gotErr)
	}
	if len(texts) != 1 || texts[0] != "padded" {
		t.Errorf("transcripts = %v, want [padded]", texts)
	}
}

func TestProvider_Open(t *testing.T) {
	if _, err := NewProvider(Config{}).Open(context.Background(), DefaultSessionOptions(), Callbacks{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	_, server := newFakeDeepgram(t)
	opened := make(chan struct{}, 1)
	provider := NewProvider(testConfig(server))
	if !provider.Configured() {
		t.Fatal("provider with api key should be configured")
	}

	session, err := provider.Open(context.Background(), DefaultSessionOptions(), Callbacks{
		OnOpen: func() { opened <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer session.Close()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("session did not open")
	}
	if !session.IsOpen() {
		t.Errorf("state = %s, want open", session.State())
	}
}
