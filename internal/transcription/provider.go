package transcription

import (
	"context"
	"log/slog"
)

type DeepgramProvider struct {
	cfg    Config
	logger *slog.Logger
}

func NewProvider(cfg Config) *DeepgramProvider {
	cfg = normalizeConfig(cfg)
	return &DeepgramProvider{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "deepgram_provider"),
	}
}

func (p *DeepgramProvider) Configured() bool {
	return p.cfg.APIKey != ""
}

// Open returns immediately with a connecting session; the handshake runs
// in the background and failures surface through cb.OnError.
func (p *DeepgramProvider) Open(ctx context.Context, opts SessionOptions, cb Callbacks) (Transcriber, error) {
	if !p.Configured() {
		return nil, ErrMissingAPIKey
	}

	client := New(p.cfg, opts, cb)
	go func() {
		if err := client.Connect(ctx); err != nil {
			p.logger.Error("deepgram: connect failed", "error", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
		}
	}()
	return client, nil
}
