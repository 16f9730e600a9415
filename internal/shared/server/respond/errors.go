package respond

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts with the standardized error envelope.
// 5xx responses log at error level, everything else at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.FullPath(),
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if fields["path"] == "" {
		fields["path"] = c.Request.URL.Path
	}
	if jobID := c.GetString("jobId"); jobID != "" {
		fields["job_id"] = jobID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// RetryAfter sets Retry-After in whole seconds (minimum one) and writes the
// error. Details gain retryAfterMs for clients that want finer timing.
func RetryAfter(c *gin.Context, status int, code, message string, wait time.Duration) {
	ms := wait.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	secs := int(math.Ceil(float64(ms) / 1000))
	c.Header("Retry-After", strconv.Itoa(secs))
	Error(c, status, code, message, gin.H{"retryAfterMs": ms})
}
