package events

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/middleware"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/pkg/response"
)

// Recorder persists ingested events.
type Recorder interface {
	InsertResourceView(ctx context.Context, courseID uuid.UUID, ev *models.ResourceView) error
	InsertVideoWatch(ctx context.Context, courseID uuid.UUID, ev *models.VideoWatch) error
}

// Handler handles event ingestion.
type Handler struct {
	rec    Recorder
	logger *zap.Logger
}

// NewHandler creates an ingest handler.
func NewHandler(rec Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{rec: rec, logger: logger}
}

// ResourceViewRequest is the body for POST /courses/:id/events/resource-views.
type ResourceViewRequest struct {
	ResourceID string     `json:"resource_id" binding:"required"`
	SessionID  string     `json:"session_id" binding:"required"`
	Duration   *float64   `json:"duration" binding:"omitempty,gte=0"`
	Timestamp  *time.Time `json:"timestamp"`
}

// VideoWatchRequest is the body for POST /courses/:id/events/video-watches.
type VideoWatchRequest struct {
	ResourceViewRequest
	WatchType    models.WatchType `json:"watch_type" binding:"omitempty,oneof=watch skip"`
	MaxDuration  *float64         `json:"max_duration" binding:"omitempty,gt=0"`
	VideoEndTime *float64         `json:"video_end_time" binding:"omitempty,gte=0"`
}

func (r ResourceViewRequest) header(user *models.User) models.EventHeader {
	h := models.EventHeader{
		User:       user,
		ResourceID: r.ResourceID,
		SessionID:  r.SessionID,
		Duration:   r.Duration,
	}
	if r.Timestamp != nil {
		h.Timestamp = r.Timestamp.UTC()
	}
	return h
}

// RecordResourceView handles POST /courses/:id/events/resource-views.
func (h *Handler) RecordResourceView(c *gin.Context) {
	courseID, user, ok := h.target(c)
	if !ok {
		return
	}
	var req ResourceViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ev := &models.ResourceView{EventHeader: req.header(user)}
	if err := h.rec.InsertResourceView(c.Request.Context(), courseID, ev); err != nil {
		h.logger.Error("record resource view", zap.Error(err), zap.String("course_id", courseID.String()))
		response.Internal(c, "failed to record event")
		return
	}
	response.Created(c, gin.H{"recorded": true})
}

// RecordVideoWatch handles POST /courses/:id/events/video-watches.
func (h *Handler) RecordVideoWatch(c *gin.Context) {
	courseID, user, ok := h.target(c)
	if !ok {
		return
	}
	var req VideoWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.WatchType == "" {
		req.WatchType = models.WatchTypeWatch
	}
	ev := &models.VideoWatch{
		EventHeader:  req.header(user),
		WatchType:    req.WatchType,
		MaxDuration:  req.MaxDuration,
		VideoEndTime: req.VideoEndTime,
	}
	if err := h.rec.InsertVideoWatch(c.Request.Context(), courseID, ev); err != nil {
		h.logger.Error("record video watch", zap.Error(err), zap.String("course_id", courseID.String()))
		response.Internal(c, "failed to record event")
		return
	}
	response.Created(c, gin.H{"recorded": true})
}

func (h *Handler) target(c *gin.Context) (uuid.UUID, *models.User, bool) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return uuid.Nil, nil, false
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return uuid.Nil, nil, false
	}
	return courseID, user, true
}
