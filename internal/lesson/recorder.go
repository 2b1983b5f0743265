package lesson

import (
	"context"
	"log/slog"
)

// Recorder persists lesson lifecycle events. The archive is optional; when
// nil only the redis records are kept.
type Recorder struct {
	store   *Store
	archive *Archive
	logger  *slog.Logger
}

func NewRecorder(store *Store, archive *Archive, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		archive: archive,
		logger:  logger.With("component", "lesson_recorder"),
	}
}

func (r *Recorder) LessonStarted(ctx context.Context, lessonID, roomID, connID string) error {
	return r.store.Start(ctx, &Lesson{
		ID:     lessonID,
		RoomID: roomID,
		ConnID: connID,
	})
}

func (r *Recorder) CaptionPublished(ctx context.Context, lessonID, roomID string, in CaptionInput) error {
	if _, err := r.store.IncrementCaptions(ctx, lessonID); err != nil {
		return err
	}
	if r.archive == nil {
		return nil
	}
	return r.archive.SaveCaption(ctx, &Caption{
		LessonID:    lessonID,
		RoomID:      roomID,
		Text:        in.Text,
		StartSec:    in.Start,
		DurationSec: in.Duration,
		Confidence:  in.Confidence,
	})
}

func (r *Recorder) LessonEnded(ctx context.Context, lessonID string, status Status) error {
	l, err := r.store.End(ctx, lessonID, status)
	if err != nil {
		return err
	}
	r.logger.Info("lesson recorded",
		"lesson_id", l.ID,
		"room_id", l.RoomID,
		"status", l.Status,
		"duration_s", l.DurationSeconds(),
		"captions", l.Captions)
	return nil
}
