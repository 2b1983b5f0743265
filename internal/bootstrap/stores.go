package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/live-captions/internal/lesson"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideLessonStore(redisClient *redis.Client) *lesson.Store {
	return lesson.NewStore(redisClient)
}

func ProvideArchive(db *gorm.DB) *lesson.Archive {
	if db == nil {
		return nil
	}
	return lesson.NewArchive(db)
}

func ProvideRecorder(store *lesson.Store, archive *lesson.Archive, logger *slog.Logger) *lesson.Recorder {
	return lesson.NewRecorder(store, archive, logger)
}

func RunMigrations(archive *lesson.Archive) error {
	if archive == nil {
		return nil
	}
	return archive.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideLessonStore,
		ProvideArchive,
		ProvideRecorder,
	),
	fx.Invoke(RunMigrations),
)
