package transcription

import (
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultURL       = "wss://api.deepgram.com/v1/listen"
	DefaultModel     = "nova-3"
	DefaultLanguage  = "en"
	DefaultKeepAlive = 10 * time.Second

	defaultDialTimeout  = 10 * time.Second
	defaultCloseTimeout = 5 * time.Second
	writeWait           = 5 * time.Second
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Config struct {
	APIKey       string
	URL          string
	KeepAlive    time.Duration
	DialTimeout  time.Duration
	CloseTimeout time.Duration
	Dialer       *websocket.Dialer
	Logger       *slog.Logger
}

func normalizeConfig(cfg Config) Config {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaultCloseTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// SessionOptions map onto the live listen query string. Encoding and
// SampleRate stay empty for containerized audio such as webm/opus.
type SessionOptions struct {
	Model          string
	Language       string
	SmartFormat    bool
	Punctuate      bool
	InterimResults bool
	VADEvents      bool
	UtteranceEndMs int
	Encoding       string
	SampleRate     int
	Channels       int
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Model:       DefaultModel,
		Language:    DefaultLanguage,
		SmartFormat: true,
	}
}

func (o SessionOptions) Query() url.Values {
	q := url.Values{}
	model := o.Model
	if model == "" {
		model = DefaultModel
	}
	q.Set("model", model)
	if o.Language != "" {
		q.Set("language", o.Language)
	}
	if o.SmartFormat {
		q.Set("smart_format", "true")
	}
	if o.Punctuate {
		q.Set("punctuate", "true")
	}
	if o.InterimResults {
		q.Set("interim_results", "true")
	}
	if o.VADEvents {
		q.Set("vad_events", "true")
	}
	if o.UtteranceEndMs > 0 {
		q.Set("utterance_end_ms", strconv.Itoa(o.UtteranceEndMs))
	}
	if o.Encoding != "" {
		q.Set("encoding", o.Encoding)
	}
	if o.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(o.SampleRate))
	}
	if o.Channels > 0 {
		q.Set("channels", strconv.Itoa(o.Channels))
	}
	return q
}

type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
}

type TranscriptEvent struct {
	Text        string
	IsFinal     bool
	SpeechFinal bool
	Start       float64
	Duration    float64
	Confidence  float64
	Words       []Word
}

type MetadataEvent struct {
	RequestID string
	Created   string
	Duration  float64
	Channels  int
}

type Callbacks struct {
	OnOpen          func()
	OnTranscript    func(event TranscriptEvent)
	OnMetadata      func(event MetadataEvent)
	OnSpeechStarted func(timestamp float64)
	OnUtteranceEnd  func(lastWordEnd float64)
	OnClose         func()
	OnError         func(error)
}

type controlMessage struct {
	Type string `json:"type"`
}

type messageHeader struct {
	Type string `json:"type"`
}

type resultsMessage struct {
	Type        string  `json:"type"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []Word  `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type metadataMessage struct {
	Type      string  `json:"type"`
	RequestID string  `json:"request_id"`
	Created   string  `json:"created"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

type speechStartedMessage struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

type utteranceEndMessage struct {
	Type        string  `json:"type"`
	LastWordEnd float64 `json:"last_word_end"`
}

type errorMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
	ErrCode     string `json:"err_code"`
	ErrMsg      string `json:"err_msg"`
}

func (m errorMessage) text() string {
	for _, s := range []string{m.Description, m.Message, m.ErrMsg, m.ErrCode} {
		if s != "" {
			return s
		}
	}
	return "unknown provider error"
}
