package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/models"
)

// Audit records an audit log entry after successful requests.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := ""
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				actor = user.Username
			}
		}

		logger.Info("audit",
			zap.String("action", action),
			zap.String("actor", actor),
			zap.String("path", c.FullPath()),
			zap.String("resource_id", c.Param("id")),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
		)
	}
}
