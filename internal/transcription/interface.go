package transcription

import "context"

type Transcriber interface {
	State() State
	IsOpen() bool
	SendAudio(data []byte) error
	KeepAlive() error
	Finalize() error
	Close() error
	Done() <-chan struct{}
}

// Provider opens provider sessions. The returned Transcriber starts in
// StateConnecting and reports OnOpen once the vendor accepts the stream.
type Provider interface {
	Open(ctx context.Context, opts SessionOptions, cb Callbacks) (Transcriber, error)
}
