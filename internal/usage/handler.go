package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
)

// Handler exposes ledger read endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.getUsage)
}

// RegisterAdminRoutes attaches operator routes. The group must already be
// guarded by the admin middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/accounts/:email", h.getAccount)
}

func (h *Handler) getUsage(c *gin.Context) {
	email := NormalizeEmail(c.Query("email"))
	if email == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email is required", []map[string]string{
			{"field": "email", "issue": "required"},
		})
		return
	}
	a, err := h.Svc.CheckUsage(c.Request.Context(), email)
	if err != nil {
		writeError(c, err, "failed to fetch usage")
		return
	}
	if a == nil {
		respond.OK(c, gin.H{
			"email":            email,
			"accountType":      AccountTypeStandard,
			"freeResumesUsed":  0,
			"resumesGenerated": 0,
			"exists":           false,
		})
		return
	}
	respond.OK(c, gin.H{
		"email":            a.Email,
		"accountType":      a.AccountType,
		"freeResumesUsed":  a.FreeResumesUsed,
		"resumesGenerated": a.ResumesGenerated,
		"exists":           true,
	})
}

func (h *Handler) getAccount(c *gin.Context) {
	a, err := h.Svc.CheckUsage(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err, "failed to fetch account")
		return
	}
	if a == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
		return
	}
	respond.OK(c, a)
}

func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		respond.Error(c, http.StatusBadRequest, "validation_error", "email is required", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
