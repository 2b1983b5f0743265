package lesson

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/live-captions/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store   *Store
	archive *Archive
	logger  *slog.Logger
}

func NewHandler(store *Store, archive *Archive, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		archive: archive,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/lessons/:id", h.GetLesson)
	g.GET("/lessons/:id/captions", h.GetLessonCaptions)
	g.GET("/rooms/:id/lessons", h.ListRoomLessons)
	g.GET("/rooms/:id/captions", h.ListRoomCaptions)
	g.GET("/rooms/:id/usage", h.GetRoomUsage)
}

// GetLesson godoc
// @Summary      Get a lesson
// @Tags         lessons
// @Produce      json
// @Param        id   path      string  true  "Lesson ID"
// @Success      200  {object}  Lesson
// @Failure      404  {object}  shared.APIError
// @Router       /lessons/{id} [get]
func (h *Handler) GetLesson(c echo.Context) error {
	l, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("lesson_not_found", "lesson not found")
		}
		h.logger.Error("failed to get lesson", "error", err, "lesson_id", c.Param("id"))
		return shared.InternalError("get_failed", "failed to get lesson")
	}
	return c.JSON(http.StatusOK, l)
}

// GetLessonCaptions godoc
// @Summary      List the archived captions of a lesson
// @Tags         lessons
// @Produce      json
// @Param        id   path      string  true  "Lesson ID"
// @Success      200  {object}  CaptionsResponse
// @Failure      503  {object}  shared.APIError  "Archive disabled"
// @Router       /lessons/{id}/captions [get]
func (h *Handler) GetLessonCaptions(c echo.Context) error {
	if h.archive == nil {
		return shared.ServiceUnavailable("archive_disabled", "caption archive is not configured")
	}

	captions, err := h.archive.ListByLesson(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list lesson captions", "error", err, "lesson_id", c.Param("id"))
		return shared.InternalError("list_failed", "failed to list captions")
	}
	return c.JSON(http.StatusOK, CaptionsResponse{Total: len(captions), Captions: captions})
}

// ListRoomLessons godoc
// @Summary      List lessons held in a room during the last day
// @Tags         rooms
// @Produce      json
// @Param        id   path      string  true  "Room ID"
// @Success      200  {object}  LessonsResponse
// @Router       /rooms/{id}/lessons [get]
func (h *Handler) ListRoomLessons(c echo.Context) error {
	lessons, err := h.store.ListRoomLessons(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list room lessons", "error", err, "room_id", c.Param("id"))
		return shared.InternalError("list_failed", "failed to list lessons")
	}
	return c.JSON(http.StatusOK, LessonsResponse{Total: len(lessons), Lessons: lessons})
}

// ListRoomCaptions godoc
// @Summary      List the most recent archived captions of a room
// @Tags         rooms
// @Produce      json
// @Param        id     path      string  true   "Room ID"
// @Param        limit  query     int     false  "Maximum captions (default 50, max 500)"
// @Success      200    {object}  CaptionsResponse
// @Failure      400    {object}  shared.APIError
// @Failure      503    {object}  shared.APIError  "Archive disabled"
// @Router       /rooms/{id}/captions [get]
func (h *Handler) ListRoomCaptions(c echo.Context) error {
	if h.archive == nil {
		return shared.ServiceUnavailable("archive_disabled", "caption archive is not configured")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	captions, err := h.archive.ListByRoom(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("failed to list room captions", "error", err, "room_id", c.Param("id"))
		return shared.InternalError("list_failed", "failed to list captions")
	}
	return c.JSON(http.StatusOK, CaptionsResponse{Total: len(captions), Captions: captions})
}

// GetRoomUsage godoc
// @Summary      Transcription seconds used by a room during the last day
// @Tags         rooms
// @Produce      json
// @Param        id   path      string  true  "Room ID"
// @Success      200  {object}  Usage
// @Router       /rooms/{id}/usage [get]
func (h *Handler) GetRoomUsage(c echo.Context) error {
	usage, err := h.store.RoomUsage(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to get room usage", "error", err, "room_id", c.Param("id"))
		return shared.InternalError("usage_failed", "failed to get room usage")
	}
	return c.JSON(http.StatusOK, usage)
}
