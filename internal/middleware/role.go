package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/pkg/response"
)

// StaffRoles may read course-wide stats and exports.
var StaffRoles = []models.Role{models.RoleSiteAdmin, models.RoleAdmin, models.RoleInstructor}

// RequireRole allows only users holding one of roles. Call after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !allowed[user.Role] {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
