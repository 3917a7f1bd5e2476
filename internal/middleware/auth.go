package middleware

import (
	"net/http"
	"strings"

	"labbooking/internal/domain"
	"labbooking/internal/pkg/jwt"
	"labbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// JWTAuth rejects requests without a valid bearer token and stores the
// token's user id, username and role on the context.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
			return
		}
		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token carries an unknown role")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// ActorFrom returns the authenticated caller. ok is false when JWTAuth did
// not run or rejected the request.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	id := c.GetInt64(CtxUserID)
	v, exists := c.Get(CtxRole)
	role, isRole := v.(domain.UserRole)
	if id <= 0 || !exists || !isRole {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: id, Role: role}, true
}

// MustActor is ActorFrom for handlers mounted behind JWTAuth. It writes a
// 401 and returns false when no actor is present.
func MustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := ActorFrom(c)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return actor, ok
}
