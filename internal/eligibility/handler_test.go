package eligibility

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/usage"
)

func newEligibilityRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryWhitelistRepo(), NewMemorySignalRepo(), usage.NewService())
	h := NewHandler(svc)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))
	h.RegisterAdminRoutes(router.Group("/api/v1/admin"))
	return router, svc
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestEligibilityEndpoint(t *testing.T) {
	router, _ := newEligibilityRouter(t)

	resp := postJSON(router, "/api/v1/eligibility", map[string]string{"email": "jane@x.com"})
	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, "standard", body["accountType"])
}

func TestEligibilityEndpointRejectsBadEmail(t *testing.T) {
	router, _ := newEligibilityRouter(t)
	resp := postJSON(router, "/api/v1/eligibility", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminWhitelistLifecycle(t *testing.T) {
	router, _ := newEligibilityRouter(t)

	resp := postJSON(router, "/api/v1/admin/whitelist", map[string]any{
		"matchType":       "domain",
		"matchValue":      "@Partner.org",
		"freeAllowance":   5,
		"discountPercent": 10,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created WhitelistEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "partner.org", created.MatchValue)

	dup := postJSON(router, "/api/v1/admin/whitelist", map[string]any{"matchType": "domain", "matchValue": "partner.org"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	resp = postJSON(router, "/api/v1/eligibility", map[string]string{"email": "pat@partner.org", "templateId": "executive"})
	require.Equal(t, http.StatusOK, resp.Code)
	var decision map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &decision))
	assert.Equal(t, "domain", decision["whitelistType"])

	deact := postJSON(router, "/api/v1/admin/whitelist/"+created.ID+"/deactivate", nil)
	assert.Equal(t, http.StatusOK, deact.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/whitelist", nil)
	list := httptest.NewRecorder()
	router.ServeHTTP(list, req)
	assert.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, "[]", list.Body.String())
}
