package analytics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/metrics"
	"github.com/aura-webinar/coursestats/internal/middleware"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/usagestats"
	"github.com/aura-webinar/coursestats/pkg/queue"
	"github.com/aura-webinar/coursestats/pkg/response"
)

// ExportQueue accepts export jobs and reports their status.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) (*queue.Job, error)
	Status(ctx context.Context, jobID string) (*queue.Status, error)
}

// Presigner turns a stored export into a download URL.
type Presigner interface {
	PresignReport(ctx context.Context, key string) (string, error)
}

// Handler serves the course stats endpoints.
type Handler struct {
	svc     *Service
	exports ExportQueue
	presign Presigner
	logger  *zap.Logger
}

// NewHandler creates a stats handler. exports and presign may be nil, which
// disables the export endpoints.
func NewHandler(svc *Service, exports ExportQueue, presign Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, exports: exports, presign: presign, logger: logger}
}

// StatsResponse is the JSON shape for the stats endpoints.
type StatsResponse struct {
	CourseID uuid.UUID   `json:"course_id"`
	Kind     string      `json:"kind"`
	Scope    string      `json:"scope,omitempty"`
	Top      int         `json:"top,omitempty"`
	Records  interface{} `json:"records"`
}

// ExportRequest is the body for POST /courses/:id/exports.
type ExportRequest struct {
	Kind  models.EventKind `json:"kind" binding:"required,oneof=resources videos"`
	Scope string           `json:"scope"`
}

// ExportResponse describes a queued or finished export.
type ExportResponse struct {
	queue.Status
	DownloadURL string `json:"download_url,omitempty"`
}

// ResourceStats handles GET /courses/:id/stats/resources?scope=&top=&since=&until=.
func (h *Handler) ResourceStats(c *gin.Context) {
	h.courseStats(c, models.KindResources)
}

// VideoStats handles GET /courses/:id/stats/videos?scope=&top=&since=&until=.
func (h *Handler) VideoStats(c *gin.Context) {
	h.courseStats(c, models.KindVideos)
}

func (h *Handler) courseStats(c *gin.Context, kind models.EventKind) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	top, err := parseTop(c, h.svc.TopN())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	b, err := h.svc.Builders(ctx, courseID, window)
	if err != nil {
		h.fail(c, "build stats", err)
		return
	}

	scope := c.Query("scope")
	out := StatsResponse{CourseID: courseID, Kind: string(kind), Scope: usagestats.ScopeName(scope), Top: top}
	switch kind {
	case models.KindVideos:
		if top > 0 {
			out.Records, err = b.Videos.TopStats(ctx, top, scope)
		} else {
			out.Records, err = b.Videos.Stats(ctx, scope)
		}
	default:
		if top > 0 {
			out.Records, err = b.Resources.TopStats(ctx, top, scope)
		} else {
			out.Records, err = b.Resources.Stats(ctx, scope)
		}
	}
	if err != nil {
		h.fail(c, "build stats", err)
		return
	}
	response.OK(c, out)
}

// MyStats handles GET /courses/:id/stats/me?kind=resources|videos. Staff
// exclusion does not apply: every user sees their own activity.
func (h *Handler) MyStats(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	kind := models.EventKind(c.DefaultQuery("kind", string(models.KindResources)))
	if !kind.Valid() {
		response.BadRequest(c, "kind must be resources or videos")
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	b, err := h.svc.Builders(ctx, courseID, window)
	if err != nil {
		h.fail(c, "build stats", err)
		return
	}

	out := StatsResponse{CourseID: courseID, Kind: string(kind)}
	if kind == models.KindVideos {
		out.Records, err = b.Videos.StatsForUser(ctx, user)
	} else {
		out.Records, err = b.Resources.StatsForUser(ctx, user)
	}
	if err != nil {
		h.fail(c, "build user stats", err)
		return
	}
	response.OK(c, out)
}

// CreateExport handles POST /courses/:id/exports.
func (h *Handler) CreateExport(c *gin.Context) {
	if h.exports == nil {
		response.ServiceUnavailable(c, "exports not configured")
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, _ := middleware.CurrentUser(c)
	payload := queue.ExportPayload{
		CourseID: courseID,
		Kind:     string(req.Kind),
		Scope:    usagestats.ScopeName(req.Scope),
	}
	if user != nil {
		payload.RequestedBy = user.Username
	}
	job, err := h.exports.EnqueueExport(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, "enqueue export", err)
		return
	}
	metrics.ExportJobs.WithLabelValues(string(queue.StateQueued)).Inc()
	response.Accepted(c, ExportResponse{Status: queue.Status{
		JobID:     job.ID,
		State:     queue.StateQueued,
		UpdatedAt: job.CreatedAt,
	}})
}

// GetExport handles GET /exports/:jobId.
func (h *Handler) GetExport(c *gin.Context) {
	if h.exports == nil {
		response.ServiceUnavailable(c, "exports not configured")
		return
	}
	ctx := c.Request.Context()
	status, err := h.exports.Status(ctx, c.Param("jobId"))
	if errors.Is(err, queue.ErrJobNotFound) {
		response.NotFound(c, "export not found")
		return
	}
	if err != nil {
		h.fail(c, "load export status", err)
		return
	}
	out := ExportResponse{Status: *status}
	if status.State == queue.StateDone && status.ObjectKey != "" && h.presign != nil {
		url, err := h.presign.PresignReport(ctx, status.ObjectKey)
		if err != nil {
			h.fail(c, "presign export", err)
			return
		}
		out.DownloadURL = url
	}
	response.OK(c, out)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, usagestats.ErrUnknownKind) {
		response.BadRequest(c, err.Error())
		return
	}
	h.logger.Error(op, zap.Error(err), zap.String("path", c.FullPath()))
	response.Internal(c, "failed to "+op)
}

var errBadTop = errors.New("top must be a positive integer")

// parseTop returns 0 when the parameter is absent and def when it has no value.
func parseTop(c *gin.Context, def int) (int, error) {
	v, ok := c.GetQuery("top")
	if !ok {
		return 0, nil
	}
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errBadTop
	}
	return n, nil
}

func parseWindow(c *gin.Context) (Window, error) {
	var w Window
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &w.Since}, {"until", &w.Until}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			return Window{}, errors.New(p.name + " must be RFC 3339 or YYYY-MM-DD")
		}
		*p.dst = &t
	}
	if w.Since != nil && w.Until != nil && !w.Until.After(*w.Since) {
		return Window{}, errors.New("until must be after since")
	}
	return w, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
