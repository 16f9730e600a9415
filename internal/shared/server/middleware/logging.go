package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/telemetry"
)

const (
	// JobIDKey is set by handlers that create or read a generation job.
	JobIDKey = "jobId"
	// EmailKey is set by handlers that resolve a requester email.
	EmailKey = "requesterEmail"
	// StageKey is set by handlers that stopped at a pipeline stage.
	StageKey = "stage"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  reqID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"job_id":      c.GetString(JobIDKey),
			"email":       c.GetString(EmailKey),
			"stage":       c.GetString(StageKey),
			"is_admin":    IsAdmin(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
