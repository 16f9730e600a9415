package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/shared/storage/db"
	"resume-optimizer/internal/shared/telemetry"
)

const defaultPingTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	DB          *sql.DB
	PingTimeout time.Duration
}

// NewService constructs a health service. A nil database reports "memory".
func NewService(database *sql.DB) *Service {
	return &Service{DB: database, PingTimeout: defaultPingTimeout}
}

// Status reports overall health and per-dependency state.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	status := map[string]any{"ok": true}
	if s.DB == nil {
		status["database"] = "memory"
		return status, true
	}
	if err := db.Ping(ctx, s.DB, s.PingTimeout); err != nil {
		telemetry.Warn("health.db_ping_failed", map[string]any{"error": err.Error()})
		status["ok"] = false
		status["database"] = "unreachable"
		return status, false
	}
	status["database"] = "ok"
	return status, true
}

// Handler exposes the health endpoint.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	status, ok := h.Svc.Status(c.Request.Context())
	if !ok {
		respond.JSON(c, http.StatusServiceUnavailable, status)
		return
	}
	respond.OK(c, status)
}
