package lesson

import (
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
	StatusError  Status = "error"
)

type Lesson struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	ConnID    string     `json:"conn_id"`
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Captions  int64      `json:"captions"`
}

func (l *Lesson) RedisKey() string {
	return lessonKey(l.ID)
}

func (l *Lesson) DurationSeconds() int64 {
	end := time.Now()
	if l.EndedAt != nil {
		end = *l.EndedAt
	}
	d := int64(end.Sub(l.StartedAt).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

type CaptionInput struct {
	Text       string
	Start      float64
	Duration   float64
	Confidence float64
}

type Caption struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LessonID    string    `gorm:"index;not null" json:"lesson_id"`
	RoomID      string    `gorm:"index" json:"room_id"`
	Text        string    `gorm:"not null" json:"text"`
	StartSec    float64   `json:"start_sec"`
	DurationSec float64   `json:"duration_sec"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Caption) TableName() string {
	return "captions"
}

type Usage struct {
	RoomID       string           `json:"room_id"`
	TotalSeconds int64            `json:"total_seconds"`
	Connections  map[string]int64 `json:"connections"`
}

type CaptionsResponse struct {
	Total    int       `json:"total"`
	Captions []Caption `json:"captions"`
}

type LessonsResponse struct {
	Total   int       `json:"total"`
	Lessons []*Lesson `json:"lessons"`
}

func lessonKey(id string) string {
	return "lesson:" + id
}

func captionCountKey(id string) string {
	return "lesson:" + id + ":captions"
}

func roomLessonsKey(roomID string) string {
	return "room:" + roomID + ":lessons"
}

func roomUsageKey(roomID string) string {
	return "room:" + roomID + ":usage"
}
