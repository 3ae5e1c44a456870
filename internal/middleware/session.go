package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clc-lbu/timetable-api/internal/service"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the admin session claims.
const ContextSessionKey = "adminSession"

// AdminSession protects admin routes by requiring a valid session token.
// The claims carried on the request are the sole source of truth for the
// authenticated state; nothing is kept in process memory between requests.
func AdminSession(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "admin login required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, claims)
		c.Next()
	}
}
