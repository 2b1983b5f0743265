package bootstrap

import (
	"log/slog"
	"os"

	_ "github.com/eleven-am/live-captions/docs"
	"github.com/eleven-am/live-captions/internal/gateway"
	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	WSServer      *gateway.WSServer
	LessonHandler *lesson.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.WSServer.RegisterRoutes(e)
	params.LessonHandler.RegisterRoutes(e.Group("/v1"))

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideLessonHandler(store *lesson.Store, archive *lesson.Archive, logger *slog.Logger) *lesson.Handler {
	return lesson.NewHandler(store, archive, logger.With("handler", "lesson"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLessonHandler,
	),
	fx.Invoke(RegisterRoutes),
)
