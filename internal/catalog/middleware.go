package catalog

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/coursestats/internal/middleware"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/pkg/response"
)

// ContextCourse is the gin context key for the course loaded by the access middlewares.
const ContextCourse = "course"

// CourseStore loads courses.
type CourseStore interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// Membership answers course access questions.
type Membership interface {
	IsEnrolled(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
	IsInstructor(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

// RequireCourseStaff allows admins and the course's instructors. Call after JWT.
func RequireCourseStaff(courses CourseStore, members Membership) gin.HandlerFunc {
	return requireCourse(courses, func(ctx context.Context, courseID uuid.UUID, u *models.User) (bool, error) {
		if u.Role.IsAdmin() {
			return true, nil
		}
		return members.IsInstructor(ctx, courseID, u.ID)
	})
}

// RequireCourseMember allows staff and any enrolled user. Call after JWT.
func RequireCourseMember(courses CourseStore, members Membership) gin.HandlerFunc {
	return requireCourse(courses, func(ctx context.Context, courseID uuid.UUID, u *models.User) (bool, error) {
		if u.Role.IsAdmin() {
			return true, nil
		}
		ok, err := members.IsEnrolled(ctx, courseID, u.ID)
		if err != nil || ok {
			return ok, err
		}
		return members.IsInstructor(ctx, courseID, u.ID)
	})
}

func requireCourse(courses CourseStore, allow func(context.Context, uuid.UUID, *models.User) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid course id")
			c.Abort()
			return
		}
		course, err := courses.GetCourse(c.Request.Context(), courseID)
		if errors.Is(err, ErrCourseNotFound) {
			response.NotFound(c, "course not found")
			c.Abort()
			return
		}
		if err != nil {
			response.Internal(c, "failed to load course")
			c.Abort()
			return
		}
		user, ok := middleware.CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		ok, err = allow(c.Request.Context(), courseID, user)
		if err != nil {
			response.Internal(c, "failed to check course access")
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "not authorized for this course")
			c.Abort()
			return
		}
		c.Set(ContextCourse, course)
		c.Next()
	}
}
