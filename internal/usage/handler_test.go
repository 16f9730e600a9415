package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newUsageRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(svc)
	h.RegisterRoutes(router.Group("/api/v1"))
	h.RegisterAdminRoutes(router.Group("/api/v1/admin"))
	return router
}

func TestGetUsageReturnsCounters(t *testing.T) {
	svc := NewService()
	if _, err := svc.RecordUsage(context.Background(), "jane@x.com"); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	router := newUsageRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?email=JANE@x.com", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["freeResumesUsed"] != float64(1) || body["exists"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGetUsageRequiresEmail(t *testing.T) {
	router := newUsageRouter(NewService())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAdminAccountNotFound(t *testing.T) {
	router := newUsageRouter(NewService())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounts/nobody@x.com", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
