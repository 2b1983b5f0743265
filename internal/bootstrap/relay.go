package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/live-captions/internal/gateway"
	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/eleven-am/live-captions/internal/relay"
	"github.com/eleven-am/live-captions/internal/transcription"
	"go.uber.org/fx"
)

func ProvideTranscriptionConfig(cfg *Config, logger *slog.Logger) transcription.Config {
	return transcription.Config{
		APIKey:    cfg.DeepgramAPIKey,
		URL:       cfg.DeepgramURL,
		KeepAlive: cfg.DeepgramKeepAlive,
		Logger:    logger,
	}
}

func ProvideSessionOptions(cfg *Config) transcription.SessionOptions {
	opts := transcription.DefaultSessionOptions()
	opts.Model = cfg.DeepgramModel
	opts.Language = cfg.DeepgramLanguage
	opts.InterimResults = cfg.InterimCaptions
	return opts
}

func ProvideDeepgramProvider(cfg transcription.Config, logger *slog.Logger) *transcription.DeepgramProvider {
	p := transcription.NewProvider(cfg)
	if !p.Configured() {
		logger.Warn("DEEPGRAM_API_KEY not set, lessons will fail to start")
	}
	return p
}

func ProvideProvider(p *transcription.DeepgramProvider) transcription.Provider {
	return p
}

func ProvideGatewayConfig(cfg *Config) gateway.ServerConfig {
	return gateway.ServerConfig{AllowedOrigins: cfg.CORSOrigins}
}

type ManagerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Rooms     relay.Rooms
	Provider  transcription.Provider
	Recorder  *lesson.Recorder
	Options   transcription.SessionOptions
	Config    *Config
	Logger    *slog.Logger
}

func ProvideRelayManager(p ManagerParams) *relay.Manager {
	manager := relay.NewManager(relay.ManagerConfig{
		Rooms:           p.Rooms,
		Provider:        p.Provider,
		Recorder:        p.Recorder,
		SessionOptions:  p.Options,
		InterimCaptions: p.Config.InterimCaptions,
		Log:             p.Logger,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			manager.CloseAll(ctx)
			return nil
		},
	})
	return manager
}

var RelayModule = fx.Options(
	fx.Provide(
		ProvideTranscriptionConfig,
		ProvideSessionOptions,
		ProvideDeepgramProvider,
		ProvideProvider,
		ProvideGatewayConfig,
		ProvideRelayManager,
	),
)
