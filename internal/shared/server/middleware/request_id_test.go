package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDReusesOrReplacesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{name: "absent", inbound: "", reuse: false},
		{name: "token", inbound: "req-123_abc.def:1", reuse: true},
		{name: "newline injection", inbound: "abc\nlevel=error", reuse: false},
		{name: "spaces", inbound: "a b", reuse: false},
		{name: "too long", inbound: strings.Repeat("a", maxRequestIDLen+1), reuse: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID())
			var seen string
			r.GET("/", func(c *gin.Context) {
				seen = RequestIDFromContext(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header[requestIDHeader] = []string{tt.inbound}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, seen, w.Header().Get(requestIDHeader))
			if tt.reuse {
				assert.Equal(t, tt.inbound, seen)
				return
			}
			_, err := uuid.Parse(seen)
			require.NoError(t, err)
		})
	}
}
