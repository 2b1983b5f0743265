package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/eleven-am/live-captions/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	lessonTTL     = 24 * time.Hour
	usageTTL      = 24 * time.Hour
	totalUsageKey = "total_usage"
)

type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) Start(ctx context.Context, l *Lesson) error {
	if l.ID == "" {
		l.ID = shared.NewID("lesson_")
	}
	l.Status = StatusActive
	l.StartedAt = time.Now().UTC()
	l.EndedAt = nil

	data, err := json.Marshal(l)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, l.RedisKey(), data, lessonTTL)
	pipe.ZAdd(ctx, roomLessonsKey(l.RoomID), redis.Z{Score: float64(l.StartedAt.UnixMilli()), Member: l.ID})
	pipe.Expire(ctx, roomLessonsKey(l.RoomID), lessonTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Lesson, error) {
	data, err := s.redis.Get(ctx, lessonKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var l Lesson
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}

	count, err := s.redis.Get(ctx, captionCountKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	l.Captions = count
	return &l, nil
}

// End marks the lesson finished and adds its duration to the room's usage.
// Ending an already finished lesson is a no-op.
func (s *Store) End(ctx context.Context, id string, status Status) (*Lesson, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return l, nil
	}

	now := time.Now().UTC()
	l.Status = status
	l.EndedAt = &now

	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}

	duration := l.DurationSeconds()
	usageKey := roomUsageKey(l.RoomID)

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, l.RedisKey(), data, lessonTTL)
	pipe.HIncrBy(ctx, usageKey, l.ConnID, duration)
	pipe.HIncrBy(ctx, usageKey, totalUsageKey, duration)
	pipe.Expire(ctx, usageKey, usageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) IncrementCaptions(ctx context.Context, id string) (int64, error) {
	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, captionCountKey(id))
	pipe.Expire(ctx, captionCountKey(id), lessonTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *Store) ListRoomLessons(ctx context.Context, roomID string) ([]*Lesson, error) {
	ids, err := s.redis.ZRange(ctx, roomLessonsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	lessons := make([]*Lesson, 0, len(ids))
	for _, id := range ids {
		l, err := s.Get(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

func (s *Store) RoomUsage(ctx context.Context, roomID string) (*Usage, error) {
	data, err := s.redis.HGetAll(ctx, roomUsageKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	usage := &Usage{
		RoomID:      roomID,
		Connections: make(map[string]int64, len(data)),
	}
	for field, value := range data {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		if field == totalUsageKey {
			usage.TotalSeconds = n
			continue
		}
		usage.Connections[field] = n
	}
	return usage, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
