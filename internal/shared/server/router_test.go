package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/shared/config"
	localstore "resume-optimizer/internal/shared/storage/object/local"
	"resume-optimizer/internal/templates"
	"resume-optimizer/internal/usage"
)

func get(r http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterServesBaseRoutes(t *testing.T) {
	r := NewRouter(RouterDeps{
		Config:    config.Config{RateLimitPerMinute: 6, RateLimitBurst: 3},
		Templates: templates.NewHandler(),
	})

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/templates", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/metrics", nil).Code)

	w := get(r, "/api/v1/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAdminRoutesHiddenWithoutToken(t *testing.T) {
	r := NewRouter(RouterDeps{Config: config.Config{}})

	w := get(r, "/api/v1/admin/whitelist", map[string]string{"X-Admin-Token": "anything"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignedFileDownload(t *testing.T) {
	store := localstore.New(t.TempDir(), "http://localhost:8080", "secret")
	_, err := store.SaveWithKey(context.Background(), "generated/abc/job-1.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	r := NewRouter(RouterDeps{Files: store})

	signed, err := store.SignedURL(context.Background(), "generated/abc/job-1.pdf", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	w := get(r, u.RequestURI(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	q := u.Query()
	q.Set("sig", "bad")
	u.RawQuery = q.Encode()
	assert.Equal(t, http.StatusForbidden, get(r, u.RequestURI(), nil).Code)
}

func TestUsageLookupIsRateLimited(t *testing.T) {
	r := NewRouter(RouterDeps{
		Config: config.Config{RateLimitPerMinute: 6, RateLimitBurst: 3, RateLimitLookupPerMinute: 1, RateLimitLookupBurst: 2},
		Usage:  usage.NewHandler(usage.NewService()),
	})

	for i := 0; i < 2; i++ {
		w := get(r, "/api/v1/usage?email=jane@example.com", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := get(r, "/api/v1/usage?email=jane@example.com", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
