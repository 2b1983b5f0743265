package gateway

import (
	"context"
	"log/slog"

	"github.com/eleven-am/live-captions/internal/relay"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type ServerConfig struct {
	AllowedOrigins []string
}

func ProvideHub(lc fx.Lifecycle, redisClient *redis.Client, logger *slog.Logger) *Hub {
	hub := NewHub(redisClient, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return hub.Close()
		},
	})
	return hub
}

func ProvideRooms(hub *Hub) relay.Rooms {
	return hub
}

func ProvideWSServer(manager *relay.Manager, cfg ServerConfig, logger *slog.Logger) *WSServer {
	return NewWSServer(RelaySessions(manager), cfg.AllowedOrigins, logger)
}

var Module = fx.Options(
	fx.Provide(
		ProvideHub,
		ProvideRooms,
		ProvideWSServer,
	),
)
