package lesson

import (
	"context"
	"fmt"

	"github.com/eleven-am/live-captions/internal/shared"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Archive struct {
	db *gorm.DB
}

func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) Migrate() error {
	return a.db.AutoMigrate(&Caption{})
}

func (a *Archive) SaveCaption(ctx context.Context, c *Caption) error {
	if c.LessonID == "" || c.Text == "" {
		return shared.ErrInvalidPayload
	}
	return a.db.WithContext(ctx).Create(c).Error
}

func (a *Archive) ListByLesson(ctx context.Context, lessonID string) ([]Caption, error) {
	var captions []Caption
	err := a.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("id ASC").
		Find(&captions).Error
	return captions, err
}

// ListByRoom returns the most recent captions for a room in the order they
// were spoken.
func (a *Archive) ListByRoom(ctx context.Context, roomID string, limit int) ([]Caption, error) {
	limit = clampLimit(limit)

	var captions []Caption
	err := a.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&captions).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(captions)-1; i < j; i, j = i+1, j-1 {
		captions[i], captions[j] = captions[j], captions[i]
	}
	return captions, nil
}

func (a *Archive) DeleteLesson(ctx context.Context, lessonID string) (int64, error) {
	res := a.db.WithContext(ctx).Where("lesson_id = ?", lessonID).Delete(&Caption{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, shared.ErrNotFound
	}
	return res.RowsAffected, nil
}

func (a *Archive) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
