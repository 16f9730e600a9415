package templates

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler().RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Templates []struct {
			ID      string  `json:"id"`
			Premium bool    `json:"premium"`
			Price   float64 `json:"price"`
		} `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Templates, len(All()))
	assert.Equal(t, "ats-optimized", body.Templates[0].ID)
	for _, tpl := range body.Templates {
		assert.Greater(t, tpl.Price, 0.0, tpl.ID)
	}
}
