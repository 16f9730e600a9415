package eligibility

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/templates"
)

// Handler exposes eligibility and whitelist administration endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches public routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/eligibility", h.checkEligibility)
}

// RegisterAdminRoutes attaches operator routes. The group must already be
// guarded by the admin middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/whitelist", h.listWhitelist)
	rg.POST("/whitelist", h.createWhitelist)
	rg.POST("/whitelist/:id/deactivate", h.deactivateWhitelist)
	rg.GET("/abuse-signals", h.listSignals)
}

type eligibilityRequest struct {
	Email      string `json:"email" binding:"required,email,max=320"`
	TemplateID string `json:"templateId" binding:"omitempty,max=64"`
}

func (h *Handler) checkEligibility(c *gin.Context) {
	var req eligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email is required", []map[string]string{
			{"field": "email", "issue": "invalid"},
		})
		return
	}
	id := NewIdentity(req.Email, c.ClientIP(), c.Request.UserAgent(), c.Request.Referer())

	var (
		d   Decision
		err error
	)
	if req.TemplateID != "" {
		d, err = h.Svc.Quote(c.Request.Context(), id, req.TemplateID)
	} else {
		d, err = h.Svc.CheckEligibility(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err, "failed to check eligibility")
		return
	}
	respond.OK(c, DecisionResponse(d))
}

// DecisionResponse is the public JSON shape of a decision. Prices are in
// dollars.
func DecisionResponse(d Decision) gin.H {
	resp := gin.H{
		"allowed":         d.Allowed,
		"accountType":     d.AccountType,
		"privilegeLevel":  d.PrivilegeLevel,
		"freeResumesUsed": d.FreeResumesUsed,
		"remaining":       d.Remaining,
	}
	if d.Reason != "" {
		resp["reason"] = d.Reason
		resp["message"] = d.Message
	}
	if d.WhitelistType != "" {
		resp["whitelistType"] = d.WhitelistType
	}
	if d.RequiresPayment {
		resp["requiresPayment"] = true
		resp["paymentTemplateName"] = d.PaymentTemplateName
		resp["originalPrice"] = templates.Dollars(d.OriginalPrice)
		resp["discountedPrice"] = templates.Dollars(d.DiscountedPrice)
	}
	return resp
}

type whitelistRequest struct {
	MatchType       string `json:"matchType" binding:"required,oneof=email domain ip_range"`
	MatchValue      string `json:"matchValue" binding:"required,max=320"`
	FreeAllowance   *int   `json:"freeAllowance" binding:"omitempty,min=0"`
	DiscountPercent int    `json:"discountPercent" binding:"min=0,max=100"`
	PremiumAccess   bool   `json:"premiumAccess"`
	AccountTag      string `json:"accountTag" binding:"max=64"`
}

func (h *Handler) createWhitelist(c *gin.Context) {
	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid whitelist entry", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return
	}
	e, err := h.Svc.AddWhitelistEntry(c.Request.Context(), WhitelistEntry{
		MatchType:       MatchType(req.MatchType),
		MatchValue:      req.MatchValue,
		FreeAllowance:   req.FreeAllowance,
		DiscountPercent: req.DiscountPercent,
		PremiumAccess:   req.PremiumAccess,
		AccountTag:      req.AccountTag,
	})
	if err != nil {
		writeError(c, err, "failed to create whitelist entry")
		return
	}
	respond.Created(c, e)
}

func (h *Handler) listWhitelist(c *gin.Context) {
	entries, err := h.Svc.ListWhitelist(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		writeError(c, err, "failed to list whitelist")
		return
	}
	if entries == nil {
		entries = []WhitelistEntry{}
	}
	respond.OK(c, entries)
}

func (h *Handler) deactivateWhitelist(c *gin.Context) {
	if err := h.Svc.DeactivateWhitelistEntry(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to deactivate whitelist entry")
		return
	}
	respond.OK(c, gin.H{"id": c.Param("id"), "active": false})
}

func (h *Handler) listSignals(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}
	signals, err := h.Svc.ListSignals(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err, "failed to list abuse signals")
		return
	}
	if signals == nil {
		signals = []Signal{}
	}
	respond.OK(c, signals)
}

func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidIdentity):
		respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email is required", nil)
	case errors.Is(err, ErrInvalidEntry):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, templates.ErrTemplateNotFound):
		respond.Error(c, http.StatusBadRequest, "unknown_template", "template not found", nil)
	case errors.Is(err, ErrDuplicateEntry):
		respond.Error(c, http.StatusConflict, "conflict", "whitelist entry already exists", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "whitelist entry not found", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
