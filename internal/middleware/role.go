package middleware

import (
	"net/http"

	"labbooking/internal/domain"
	"labbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireCapability lets the request through only when the caller's role
// grants c. Must run after JWTAuth.
func RequireCapability(capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !actor.Role.Can(capability) {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

func TeacherOnly() gin.HandlerFunc {
	return RequireCapability(domain.CapManageEquipment)
}

func AdminOnly() gin.HandlerFunc {
	return RequireCapability(domain.CapViewAllBookings)
}
