package generation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/sanitize"
	"resume-optimizer/internal/shared/server/middleware"
	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/templates"
)

// Handler wires HTTP handlers to the generation service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches public generation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
	rg.GET("/jobs/:id", h.getJob)
}

// RegisterAdminRoutes attaches operator routes. Admin generations may set
// paymentVerified, for replaying a paid order by hand.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
	rg.GET("/jobs", h.listJobs)
}

type generateRequest struct {
	Email           string `json:"email" binding:"required,email,max=320"`
	ResumeContent   string `json:"resumeContent" binding:"required"`
	JobDescription  string `json:"jobDescription" binding:"required"`
	FileName        string `json:"fileName" binding:"required,max=255"`
	TemplateID      string `json:"templateId" binding:"required,max=64"`
	IsFirstTimeFlow bool   `json:"isFirstTimeFlow"`
	PaymentVerified bool   `json:"paymentVerified"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid generation request", []map[string]string{
			{"field": "body", "issue": "invalid"},
		})
		return
	}
	c.Set(middleware.EmailKey, req.Email)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Generate(ctx, Request{
		Email:           req.Email,
		ResumeContent:   req.ResumeContent,
		JobDescription:  req.JobDescription,
		FileName:        req.FileName,
		TemplateID:      req.TemplateID,
		IsFirstTimeFlow: req.IsFirstTimeFlow,
		// Only operators may assert payment; customers go through the webhook.
		PaymentVerified: req.PaymentVerified && middleware.IsAdmin(c),
		IP:              c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
		Referrer:        c.Request.Referer(),
	})
	if res.JobID != "" {
		c.Set(middleware.JobIDKey, res.JobID)
	}
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			c.Set(middleware.StageKey, se.Stage)
		}
		writeGenerateError(c, res, err)
		return
	}
	if !res.Success {
		status := http.StatusPaymentRequired
		if res.Reason == eligibility.ReasonAbuseFlagged {
			status = http.StatusForbidden
		}
		c.Set(middleware.StageKey, StageEligibility)
		respond.JSON(c, status, ResultResponse(res))
		return
	}
	respond.OK(c, ResultResponse(res))
}

// ResultResponse is the public JSON shape of a Result. Prices are in dollars.
func ResultResponse(res Result) gin.H {
	resp := gin.H{
		"success": res.Success,
		"message": res.Message,
		"session": res.Session,
	}
	if res.JobID != "" {
		resp["jobId"] = res.JobID
	}
	if res.DownloadURL != "" {
		resp["downloadUrl"] = res.DownloadURL
	}
	if res.Code != "" && !res.Success {
		resp["code"] = res.Code
	}
	if res.Reason != "" {
		resp["reason"] = res.Reason
	}
	if res.RequiresPayment {
		resp["requiresPayment"] = true
		resp["paymentTemplateName"] = res.PaymentTemplateName
		resp["originalPrice"] = templates.Dollars(res.OriginalPrice)
		resp["discountedPrice"] = templates.Dollars(res.DiscountedPrice)
	}
	return resp
}

func writeGenerateError(c *gin.Context, res Result, err error) {
	switch CodeOf(err) {
	case CodeValidationFailed:
		var details []map[string]string
		if rej, ok := sanitize.AsReject(err); ok {
			details = []map[string]string{{"field": rej.Field, "issue": string(rej.Reason)}}
		} else if errors.Is(err, templates.ErrTemplateNotFound) {
			details = []map[string]string{{"field": "templateId", "issue": "unknown_template"}}
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", res.Message, details)
	case CodeUpstreamModelTimeout:
		respond.Error(c, http.StatusGatewayTimeout, CodeUpstreamModelTimeout, res.Message, jobDetails(res))
	case CodeUpstreamModelFailed, CodeUpstreamEmailFailed:
		respond.Error(c, http.StatusBadGateway, CodeOf(err), res.Message, jobDetails(res))
	default:
		respond.Error(c, http.StatusInternalServerError, CodeOf(err), res.Message, jobDetails(res))
	}
}

func jobDetails(res Result) []map[string]string {
	if res.JobID == "" {
		return nil
	}
	return []map[string]string{{"field": "jobId", "issue": res.JobID}}
}

func (h *Handler) getJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set(middleware.JobIDKey, id)
	job, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}
	resp := gin.H{
		"id":         job.ID,
		"status":     job.Status,
		"templateId": job.TemplateID,
		"createdAt":  job.CreatedAt,
	}
	if job.CompletedAt != nil {
		resp["completedAt"] = job.CompletedAt
	}
	if job.Status == StatusFailed {
		resp["errorCode"] = job.ErrorCode
	}
	respond.OK(c, resp)
}

func (h *Handler) listJobs(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email is required", nil)
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	jobs, err := h.Svc.ListByEmail(c.Request.Context(), email, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	respond.OK(c, jobs)
}
