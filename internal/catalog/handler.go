package catalog

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/pkg/response"
)

// ResourceStore lists and renames course content.
type ResourceStore interface {
	ListResources(ctx context.Context, courseID uuid.UUID, kind models.EventKind) ([]models.CourseResource, error)
	RenameResource(ctx context.Context, courseID uuid.UUID, resourceID, title string) error
}

// Invalidator drops cached titles.
type Invalidator interface {
	Invalidate(ctx context.Context, resourceIDs ...string) error
}

// Handler serves course content listings for staff.
type Handler struct {
	resources ResourceStore
	titles    Invalidator
	logger    *zap.Logger
}

// NewHandler creates a catalog handler. titles may be nil when no cache is in front of the repository.
func NewHandler(resources ResourceStore, titles Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resources: resources, titles: titles, logger: logger}
}

// RenameRequest is the body for PUT /courses/:id/resources/:resourceId.
type RenameRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

// ListResources handles GET /courses/:id/resources?kind=resources|videos.
func (h *Handler) ListResources(c *gin.Context) {
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
	list, err := h.resources.ListResources(c.Request.Context(), courseID, kind)
	if err != nil {
		h.logger.Error("list resources", zap.String("course_id", courseID.String()), zap.Error(err))
		response.Internal(c, "failed to list resources")
		return
	}
	if list == nil {
		list = []models.CourseResource{}
	}
	response.OK(c, list)
}

// RenameResource handles PUT /courses/:id/resources/:resourceId. The cached
// title is dropped so the next build picks up the new one.
func (h *Handler) RenameResource(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	resourceID := c.Param("resourceId")
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err = h.resources.RenameResource(c.Request.Context(), courseID, resourceID, req.Title)
	if errors.Is(err, ErrResourceNotFound) {
		response.NotFound(c, "resource not found")
		return
	}
	if err != nil {
		h.logger.Error("rename resource", zap.String("resource_id", resourceID), zap.Error(err))
		response.Internal(c, "failed to rename resource")
		return
	}
	if h.titles != nil {
		if err := h.titles.Invalidate(c.Request.Context(), resourceID); err != nil {
			h.logger.Warn("title cache invalidate failed", zap.String("resource_id", resourceID), zap.Error(err))
		}
	}
	response.OK(c, gin.H{"id": resourceID, "title": req.Title})
}
