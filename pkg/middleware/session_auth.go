package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"text-rpg/backend/pkg/errors"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
)

// SessionClaimsKey is the gin context key holding the validated *jwt.SessionClaims
const SessionClaimsKey = "sessionClaims"

// SessionAuth requires a bearer token issued for the session named by the :id path parameter
func SessionAuth(tokens *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			_ = c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := tokens.ValidateForSession(token, c.Param("id"))
		if err != nil {
			log.Warn("Invalid session token", "error", err.Error(), "session_id", c.Param("id"))
			_ = c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired session token"))
			c.Abort()
			return
		}

		c.Set(SessionClaimsKey, claims)
		c.Next()
	}
}
