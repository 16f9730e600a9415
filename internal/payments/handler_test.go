package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func newWebhookRouter(t *testing.T, gen Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := inlineService(gen)
	router := gin.New()
	NewHandler(svc, testSecret).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func eventPayload(t *testing.T, eventType string, session map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_1",
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": session},
	})
	require.NoError(t, err)
	return payload
}

func postSigned(router *gin.Engine, payload []byte, secret string) *httptest.ResponseRecorder {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func sessionObject(id string) map[string]any {
	return map[string]any{
		"id":             id,
		"object":         "checkout.session",
		"payment_status": "paid",
		"amount_total":   1499,
		"metadata":       paidCheckout(id).Metadata,
	}
}

func TestWebhookDispatchesPaidCheckout(t *testing.T) {
	gen := &fakeGenerator{jobID: "job-1"}
	router := newWebhookRouter(t, gen)

	payload := eventPayload(t, "checkout.session.completed", sessionObject("cs_web_1"))
	resp := postSigned(router, payload, testSecret)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"dispatched"`)

	resp = postSigned(router, payload, testSecret)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"duplicate"`)

	require.Len(t, gen.calls(), 1)
	assert.True(t, gen.calls()[0].PaymentVerified)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gen := &fakeGenerator{}
	router := newWebhookRouter(t, gen)

	resp := postSigned(router, eventPayload(t, "checkout.session.completed", sessionObject("cs_web_2")), "whsec_wrong")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid_signature")
	assert.Empty(t, gen.calls())
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	gen := &fakeGenerator{}
	router := newWebhookRouter(t, gen)

	resp := postSigned(router, eventPayload(t, "payment_intent.created", map[string]any{"id": "pi_1"}), testSecret)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"ignored"`)
	assert.Empty(t, gen.calls())
}

func TestWebhookRejectsInvalidMetadata(t *testing.T) {
	router := newWebhookRouter(t, &fakeGenerator{})

	session := sessionObject("cs_web_3")
	session["metadata"] = map[string]string{"templateId": "executive"}
	resp := postSigned(router, eventPayload(t, "checkout.session.completed", session), testSecret)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid_metadata")
}
