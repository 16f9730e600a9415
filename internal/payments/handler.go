package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"resume-optimizer/internal/shared/server/middleware"
	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/shared/telemetry"
)

const maxWebhookBody = 1 << 20

// Handler receives payment provider webhooks.
type Handler struct {
	Svc    *Service
	Secret string
}

// NewHandler constructs a Handler verifying signatures with secret.
func NewHandler(svc *Service, secret string) *Handler {
	return &Handler{Svc: svc, Secret: secret}
}

// RegisterRoutes attaches the webhook route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.webhook)
}

func (h *Handler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "unable to read body", nil)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		telemetry.Warn("payments.signature_invalid", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err,
		})
		respond.Error(c, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed", nil)
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		respond.OK(c, gin.H{"received": true, "outcome": OutcomeIgnored})
		return
	}

	var session stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_event", "checkout session could not be decoded", nil)
		return
	}

	outcome, err := h.Svc.HandleCheckout(c.Request.Context(), middleware.RequestIDFromContext(c), checkoutFromSession(&session))
	if err != nil {
		if errors.Is(err, ErrInvalidMetadata) {
			telemetry.Warn("payments.metadata_invalid", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"session_id": session.ID,
				"error":      err,
			})
			respond.Error(c, http.StatusBadRequest, "invalid_metadata", "checkout metadata is invalid", nil)
			return
		}
		telemetry.Error("payments.webhook_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"session_id": session.ID,
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unable to process payment event", nil)
		return
	}
	respond.OK(c, gin.H{"received": true, "outcome": outcome})
}

func checkoutFromSession(s *stripe.CheckoutSession) Checkout {
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return Checkout{
		SessionID:     s.ID,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		CustomerEmail: email,
		Metadata:      s.Metadata,
	}
}
