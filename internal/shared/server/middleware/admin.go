package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
)

const (
	adminHeader = "X-Admin-Token"
	adminKey    = "isAdmin"
)

// AdminAuth guards operator endpoints with a shared token. An empty token
// disables the admin surface entirely.
func AdminAuth(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if len(expected) == 0 {
			respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
			return
		}
		got := []byte(strings.TrimSpace(c.GetHeader(adminHeader)))
		if len(got) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token", nil)
			return
		}
		c.Set(adminKey, true)
		c.Next()
	}
}

// IsAdmin reports whether AdminAuth accepted the request.
func IsAdmin(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(adminKey)
}
