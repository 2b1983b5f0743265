package bootstrap

import (
	"github.com/eleven-am/live-captions/internal/gateway"
	"github.com/eleven-am/live-captions/internal/health"
	"github.com/eleven-am/live-captions/internal/relay"
	"github.com/eleven-am/live-captions/internal/transcription"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	provider *transcription.DeepgramProvider,
	manager *relay.Manager,
	hub *gateway.Hub,
) *health.Handler {
	return health.NewHandler(db, redis, provider, manager, hub, version)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.Middleware())
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
