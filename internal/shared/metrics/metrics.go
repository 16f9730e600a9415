package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generationStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_started_total",
		Help: "Total generation jobs started",
	})
	generationCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_completed_total",
		Help: "Total generation jobs completed",
	})
	generationFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failed_total",
		Help: "Total generation jobs failed, by error code",
	}, []string{"code"})
	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "Generation pipeline duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
	})
	eligibilityDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eligibility_decisions_total",
		Help: "Eligibility decisions by outcome and reason",
	}, []string{"allowed", "reason"})
	parseDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parse_degraded_total",
		Help: "Model responses without recognizable section headers",
	})
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "Language model calls by provider and outcome",
	}, []string{"provider", "outcome"})
	abuseSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abuse_signals_total",
		Help: "Abuse signals observed by pattern type",
	}, []string{"pattern"})
	workerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_messages_total",
		Help: "Queue messages handled by outcome",
	}, []string{"outcome"})
	paymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Checkout webhook events by outcome",
	}, []string{"outcome"})
	httpPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_panics_total",
		Help: "Recovered handler panics by route",
	}, []string{"route"})
)

// IncGenerationStarted increments the started counter.
func IncGenerationStarted() {
	generationStarted.Inc()
}

// IncGenerationCompleted increments the completed counter.
func IncGenerationCompleted() {
	generationCompleted.Inc()
}

// IncGenerationFailed increments the failed counter for an error code.
func IncGenerationFailed(code string) {
	generationFailed.WithLabelValues(code).Inc()
}

// ObserveGenerationDuration records a pipeline duration.
func ObserveGenerationDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	generationDuration.Observe(d.Seconds())
}

// IncEligibilityDecision counts an eligibility decision.
func IncEligibilityDecision(allowed bool, reason string) {
	if reason == "" {
		reason = "none"
	}
	eligibilityDecisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// IncParseDegraded counts a raw-fallback parse.
func IncParseDegraded() {
	parseDegraded.Inc()
}

// IncLLMRequest counts a model call outcome.
func IncLLMRequest(provider, outcome string) {
	llmRequests.WithLabelValues(provider, outcome).Inc()
}

// IncAbuseSignal counts an observed abuse pattern.
func IncAbuseSignal(pattern string) {
	abuseSignals.WithLabelValues(pattern).Inc()
}

// IncWorkerMessage counts a queue message outcome (received, completed, failed, deleted_unrecoverable).
func IncWorkerMessage(outcome string) {
	workerMessages.WithLabelValues(outcome).Inc()
}

// IncPaymentEvent counts a checkout webhook outcome.
func IncPaymentEvent(outcome string) {
	paymentEvents.WithLabelValues(outcome).Inc()
}

// IncHTTPPanic counts a recovered panic on route.
func IncHTTPPanic(route string) {
	httpPanics.WithLabelValues(route).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RegisterDBStats exports pool statistics for database under dbName.
// Registering the same name twice is a no-op.
func RegisterDBStats(database *sql.DB, dbName string) error {
	if database == nil {
		return nil
	}
	err := prometheus.Register(collectors.NewDBStatsCollector(database, dbName))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
