package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string
	Tracing         string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	SigningSecret   string
	PublicBaseURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	SignedURLTTL    time.Duration

	LLMProvider      string
	LLMModel         string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	AITimeout        time.Duration
	LLMMaxAttempts   int
	EmailTimeout     time.Duration
	EmailMaxAttempts int
	EmailProvider    string
	EmailFrom        string

	StripeWebhookSecret string
	GenerationQueueURL  string
	AdminToken          string
	AbuseDenySeverity   int

	RateLimitPerMinute int
	RateLimitBurst     int
	// Usage lookups by email get their own, looser bucket.
	RateLimitLookupPerMinute int
	RateLimitLookupBurst     int

	WorkerConcurrency     int
	WorkerVisibility      time.Duration
	WorkerShutdownTimeout time.Duration
}

// Load reads configuration from environment variables (and an optional .env
// file for local development) with sensible defaults.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	loadEnvFiles(v, ".env", "cmd/.env")
	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            v.GetString("PORT"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		Tracing:         v.GetString("TRACING"),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		SigningSecret:   v.GetString("LOCAL_SIGNING_SECRET"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		SignedURLTTL:    v.GetDuration("SIGNED_URL_TTL"),

		LLMProvider:      normalizeProvider(v.GetString("LLM_PROVIDER")),
		LLMModel:         v.GetString("LLM_MODEL"),
		OpenAIAPIKey:     v.GetString("OPENAI_API_KEY"),
		AnthropicAPIKey:  v.GetString("ANTHROPIC_API_KEY"),
		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		AITimeout:        v.GetDuration("AI_TIMEOUT"),
		LLMMaxAttempts:   v.GetInt("LLM_MAX_ATTEMPTS"),
		EmailTimeout:     v.GetDuration("EMAIL_TIMEOUT"),
		EmailMaxAttempts: v.GetInt("EMAIL_MAX_ATTEMPTS"),
		EmailProvider:    strings.ToLower(strings.TrimSpace(v.GetString("EMAIL_PROVIDER"))),
		EmailFrom:        v.GetString("EMAIL_FROM"),

		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		GenerationQueueURL:  strings.TrimSpace(v.GetString("GENERATION_QUEUE_URL")),
		AdminToken:          v.GetString("ADMIN_TOKEN"),
		AbuseDenySeverity:   v.GetInt("ABUSE_DENY_SEVERITY"),

		RateLimitPerMinute: v.GetInt("RATE_LIMIT_GENERATE_PER_MIN"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),

		RateLimitLookupPerMinute: v.GetInt("RATE_LIMIT_LOOKUP_PER_MIN"),
		RateLimitLookupBurst:     v.GetInt("RATE_LIMIT_LOOKUP_BURST"),

		WorkerConcurrency:     v.GetInt("WORKER_CONCURRENCY"),
		WorkerVisibility:      v.GetDuration("SQS_VISIBILITY_TIMEOUT"),
		WorkerShutdownTimeout: v.GetDuration("WORKER_SHUTDOWN_TIMEOUT"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACING", "none")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("LOCAL_SIGNING_SECRET", "dev-signing-secret")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("SSE_KMS_KEY_ID", "")
	v.SetDefault("SIGNED_URL_TTL", "72h")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("AI_TIMEOUT", "90s")
	v.SetDefault("LLM_MAX_ATTEMPTS", 3)
	v.SetDefault("EMAIL_TIMEOUT", "20s")
	v.SetDefault("EMAIL_MAX_ATTEMPTS", 3)
	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("EMAIL_FROM", "Resume Optimizer <no-reply@localhost>")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("GENERATION_QUEUE_URL", "")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("ABUSE_DENY_SEVERITY", 0)
	v.SetDefault("RATE_LIMIT_GENERATE_PER_MIN", 6)
	v.SetDefault("RATE_LIMIT_BURST", 3)
	v.SetDefault("RATE_LIMIT_LOOKUP_PER_MIN", 30)
	v.SetDefault("RATE_LIMIT_LOOKUP_BURST", 10)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("SQS_VISIBILITY_TIMEOUT", "20m")
	v.SetDefault("WORKER_SHUTDOWN_TIMEOUT", "30s")
}

// loadEnvFiles merges KEY=VALUE files into viper if they exist. Real
// environment variables still win because AutomaticEnv is consulted first.
func loadEnvFiles(v *viper.Viper, paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "anthropic", "claude":
		return "anthropic"
	case "gemini", "google":
		return "gemini"
	case "none", "":
		return "none"
	default:
		return "openai"
	}
}

// IsDevLike reports whether the environment may fall back to in-memory state.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}
