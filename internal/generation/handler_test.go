package generation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/shared/server/middleware"
)

func newGenerationRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, okClient())
	h := NewHandler(f.svc)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth("op-token"))
	h.RegisterAdminRoutes(admin)
	return router, f
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func generateBody(email, templateID string, paid bool) map[string]any {
	return map[string]any{
		"email":           email,
		"resumeContent":   resumeText,
		"jobDescription":  jobText,
		"fileName":        "resume.docx",
		"templateId":      templateID,
		"isFirstTimeFlow": true,
		"paymentVerified": paid,
	}
}

func TestGenerateEndpointFlow(t *testing.T) {
	router, _ := newGenerationRouter(t)

	resp := doJSON(router, http.MethodPost, "/api/v1/generate", generateBody("jane@x.com", "ats-optimized", false), nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	session := body["session"].(map[string]any)
	assert.Equal(t, float64(1), session["freeResumesUsed"])
	jobID := body["jobId"].(string)

	resp = doJSON(router, http.MethodGet, "/api/v1/jobs/"+jobID, nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)

	resp = doJSON(router, http.MethodPost, "/api/v1/generate", generateBody("jane@x.com", "ats-optimized", false), nil)
	require.Equal(t, http.StatusPaymentRequired, resp.Code)
	body = map[string]any{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["requiresPayment"])
	assert.Equal(t, "standard_limit_reached", body["reason"])
}

func TestGenerateEndpointIgnoresClientPaymentClaim(t *testing.T) {
	router, f := newGenerationRouter(t)
	_, err := f.ledger.RecordUsage(t.Context(), "claim@x.com")
	require.NoError(t, err)

	resp := doJSON(router, http.MethodPost, "/api/v1/generate", generateBody("claim@x.com", "executive", true), nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.Code)

	resp = doJSON(router, http.MethodPost, "/api/v1/admin/generate", generateBody("claim@x.com", "executive", true), map[string]string{"X-Admin-Token": "op-token"})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestGenerateEndpointValidation(t *testing.T) {
	router, _ := newGenerationRouter(t)

	resp := doJSON(router, http.MethodPost, "/api/v1/generate", map[string]any{"email": "bad"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	body := generateBody("v@x.com", "ats-optimized", false)
	body["fileName"] = "resume.exe"
	resp = doJSON(router, http.MethodPost, "/api/v1/generate", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unsupported_extension")
}

func TestGetJobNotFound(t *testing.T) {
	router, _ := newGenerationRouter(t)
	resp := doJSON(router, http.MethodGet, "/api/v1/jobs/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
