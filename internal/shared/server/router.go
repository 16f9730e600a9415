package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/payments"
	"resume-optimizer/internal/services/health"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/server/middleware"
	"resume-optimizer/internal/templates"
	"resume-optimizer/internal/uploads"
	"resume-optimizer/internal/usage"
)

const (
	rateLimitGroupWrite  = "WRITE"
	rateLimitGroupLookup = "LOOKUP"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are
// skipped.
type RouterDeps struct {
	Config      config.Config
	Health      *health.Handler
	Templates   *templates.Handler
	Eligibility *eligibility.Handler
	Usage       *usage.Handler
	Generation  *generation.Handler
	Uploads     *uploads.Handler
	Payments    *payments.Handler
	// Files serves signed local downloads. Nil when objects live in S3.
	Files       FileVerifier
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	} else {
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
	if deps.Templates != nil {
		deps.Templates.RegisterRoutes(api)
	}
	if deps.Payments != nil {
		deps.Payments.RegisterRoutes(api)
	}
	if deps.Files != nil {
		registerFileRoutes(api, deps.Files)
	}

	// Customer writes and usage lookups are throttled per client IP. Job
	// polling is not, and neither is the webhook: all of its traffic comes
	// from the payment provider.
	rules := map[string]middleware.RateLimitRule{
		rateLimitGroupWrite: middleware.PerMinute(deps.Config.RateLimitPerMinute, deps.Config.RateLimitBurst),
	}
	if deps.Config.RateLimitLookupPerMinute > 0 {
		rules[rateLimitGroupLookup] = middleware.PerMinute(deps.Config.RateLimitLookupPerMinute, deps.Config.RateLimitLookupBurst)
	}
	public := api.Group("", middleware.RateLimit(middleware.RateLimitConfig{
		Rules: rules,
		GroupFor: func(c *gin.Context) string {
			switch {
			case c.Request.Method == http.MethodPost:
				return rateLimitGroupWrite
			case c.FullPath() == "/api/v1/usage":
				return rateLimitGroupLookup
			}
			return ""
		},
		Limiter: deps.RateLimiter,
	}))
	if deps.Usage != nil {
		deps.Usage.RegisterRoutes(public)
	}
	if deps.Eligibility != nil {
		deps.Eligibility.RegisterRoutes(public)
	}
	if deps.Generation != nil {
		deps.Generation.RegisterRoutes(public)
	}
	if deps.Uploads != nil {
		deps.Uploads.RegisterRoutes(public)
	}

	admin := api.Group("/admin", middleware.AdminAuth(deps.Config.AdminToken))
	if deps.Eligibility != nil {
		deps.Eligibility.RegisterAdminRoutes(admin)
	}
	if deps.Usage != nil {
		deps.Usage.RegisterAdminRoutes(admin)
	}
	if deps.Generation != nil {
		deps.Generation.RegisterAdminRoutes(admin)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
