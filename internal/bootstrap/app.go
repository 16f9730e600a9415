package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/intel"
	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/llm/anthropic"
	"resume-optimizer/internal/llm/gemini"
	"resume-optimizer/internal/llm/openai"
	"resume-optimizer/internal/mail"
	"resume-optimizer/internal/payments"
	"resume-optimizer/internal/queue"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/services/health"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/retry"
	"resume-optimizer/internal/shared/server"
	"resume-optimizer/internal/shared/server/middleware"
	"resume-optimizer/internal/shared/storage/db"
	"resume-optimizer/internal/shared/storage/object"
	localstore "resume-optimizer/internal/shared/storage/object/local"
	s3store "resume-optimizer/internal/shared/storage/object/s3"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/templates"
	"resume-optimizer/internal/uploads"
	"resume-optimizer/internal/usage"
)

// Models used when LLM_MODEL is unset.
var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-sonnet-4-20250514",
	"gemini":    "gemini-2.5-flash",
}

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	LLM    llm.Client
	Mail   mail.Sender

	Usage       *usage.Service
	Eligibility *eligibility.Service
	Generation  *generation.Service
	Payments    *payments.Service
	Intel       *intel.Service
}

// Build wires every service and the HTTP router from cfg. Dev-like
// environments fall back to in-memory repositories when no database is
// configured.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := buildMail(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		LLM:    llmClient,
		Mail:   sender,
	}
	buildServices(app)
	if err := metrics.RegisterDBStats(sqlDB, "resume_optimizer"); err != nil {
		log.Printf("bootstrap: register db stats: %v", err)
	}

	deps := server.RouterDeps{
		Config:      cfg,
		Health:      health.NewHandler(health.NewService(sqlDB)),
		Templates:   templates.NewHandler(),
		Eligibility: eligibility.NewHandler(app.Eligibility),
		Usage:       usage.NewHandler(app.Usage),
		Generation:  generation.NewHandler(app.Generation),
		Uploads:     uploads.NewHandler(store),
		RateLimiter: middleware.NewRateLimiter(nil),
	}
	if cfg.StripeWebhookSecret != "" {
		deps.Payments = payments.NewHandler(app.Payments, cfg.StripeWebhookSecret)
	} else {
		log.Printf("bootstrap: STRIPE_WEBHOOK_SECRET empty; payment webhook disabled")
	}
	if files, ok := store.(server.FileVerifier); ok {
		deps.Files = files
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a == nil || a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("bootstrap: close database: %v", err)
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, cfg.SigningSecret), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.GenerationQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.GenerationQueueURL)
}

// buildLLM wraps the provider client in a circuit breaker and then the
// retry policy, so each retry attempt is counted by the breaker.
func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	model := strings.TrimSpace(cfg.LLMModel)
	if model == "" {
		model = defaultModels[cfg.LLMProvider]
	}

	var (
		base llm.Client
		err  error
	)
	switch cfg.LLMProvider {
	case "openai":
		base, err = openai.NewClient(cfg.OpenAIAPIKey, model, cfg.AITimeout)
	case "anthropic":
		base, err = anthropic.NewClient(cfg.AnthropicAPIKey, model, cfg.AITimeout)
	case "gemini":
		base, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, model, cfg.AITimeout)
	default:
		if !cfg.IsDevLike() {
			return nil, fmt.Errorf("LLM_PROVIDER is required outside dev")
		}
		log.Printf("bootstrap: LLM_PROVIDER=none; using sample model output")
		return llm.PlaceholderClient{Response: llm.SampleResponse}, nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: %s client unavailable; using sample model output: %v", cfg.LLMProvider, err)
			return llm.PlaceholderClient{Response: llm.SampleResponse}, nil
		}
		return nil, err
	}

	breaker := llm.NewBreaker(base, cfg.LLMProvider, llm.DefaultBreakerSettings())
	return llm.NewRetrying(breaker, cfg.LLMProvider, retry.DefaultPolicy().WithAttempts(cfg.LLMMaxAttempts)), nil
}

func buildMail(ctx context.Context, cfg config.Config) (mail.Sender, error) {
	var base mail.Sender
	switch cfg.EmailProvider {
	case "ses":
		ses, err := mail.NewSESSender(ctx, cfg.AWSRegion, cfg.EmailFrom)
		if err != nil {
			return nil, err
		}
		base = ses
	default:
		if !cfg.IsDevLike() {
			log.Printf("bootstrap: EMAIL_PROVIDER=%q; emails are logged, not sent", cfg.EmailProvider)
		}
		base = mail.NewLogSender()
	}
	return mail.NewRetrying(base, retry.DefaultPolicy().WithAttempts(cfg.EmailMaxAttempts)), nil
}

func buildServices(app *App) {
	var (
		jobRepo       generation.Repo
		whitelistRepo eligibility.WhitelistRepo
		signalRepo    eligibility.SignalRepo
		intelRepo     intel.Repo
		eventRepo     payments.EventRepo
		usageSvc      *usage.Service
	)
	if app.DB != nil {
		jobRepo = &generation.PGRepo{DB: app.DB}
		whitelistRepo = &eligibility.PGWhitelistRepo{DB: app.DB}
		signalRepo = &eligibility.PGSignalRepo{DB: app.DB}
		intelRepo = &intel.PGRepo{DB: app.DB}
		eventRepo = &payments.PGEventRepo{DB: app.DB}
		usageSvc = usage.NewServiceWithStore(usage.NewPGStore(app.DB))
	} else {
		jobRepo = generation.NewMemoryRepo()
		whitelistRepo = eligibility.NewMemoryWhitelistRepo()
		signalRepo = eligibility.NewMemorySignalRepo()
		intelRepo = intel.NewMemoryRepo()
		eventRepo = payments.NewMemoryEventRepo()
		usageSvc = usage.NewService()
	}

	eligSvc := eligibility.NewService(whitelistRepo, signalRepo, usageSvc)
	eligSvc.DenySeverity = app.Config.AbuseDenySeverity

	intelSvc := intel.NewService(intelRepo)

	genSvc := generation.NewService(jobRepo, eligSvc, usageSvc, app.LLM, render.NewService(), app.Store, app.Mail, intelSvc)
	if app.Config.AITimeout > 0 {
		genSvc.AITimeout = app.Config.AITimeout
	}
	if app.Config.EmailTimeout > 0 {
		genSvc.EmailTimeout = app.Config.EmailTimeout
	}
	if app.Config.SignedURLTTL > 0 {
		genSvc.SignedURLTTL = app.Config.SignedURLTTL
	}

	app.Usage = usageSvc
	app.Eligibility = eligSvc
	app.Intel = intelSvc
	app.Generation = genSvc
	app.Payments = payments.NewService(eventRepo, genSvc, app.Queue)
}
