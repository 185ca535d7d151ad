// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	Port        int    `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"resume-ranker"`

	// AI provider (OpenAI-compatible chat completions endpoint).
	AIAPIKey         string        `env:"AI_API_KEY"`
	AIBaseURL        string        `env:"AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AIPrimaryModel   string        `env:"AI_PRIMARY_MODEL" envDefault:"gpt-4o-mini"`
	AIFallbackModel  string        `env:"AI_FALLBACK_MODEL" envDefault:"gpt-3.5-turbo"`
	AITemperature    float64       `env:"AI_TEMPERATURE" envDefault:"0.3"`
	AIMaxTokens      int           `env:"AI_MAX_TOKENS" envDefault:"4000"`
	AIRequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"45s"`

	// AI Backoff Configuration
	AIBackoffMaxElapsedTime  time.Duration `env:"AI_BACKOFF_MAX_ELAPSED_TIME" envDefault:"60s"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"1s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"10s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"1.5"`

	// Upload limits. PDFs between the partial threshold and the ceiling are
	// extracted from a bounded leading slice only.
	MaxUploadMB      int64 `env:"MAX_UPLOAD_MB" envDefault:"10"`
	PDFPartialReadMB int64 `env:"PDF_PARTIAL_READ_MB" envDefault:"2"`

	// Preprocess budgets (characters).
	ResumeCharBudget int `env:"RESUME_CHAR_BUDGET" envDefault:"4000"`
	JobCharBudget    int `env:"JOB_CHAR_BUDGET" envDefault:"2000"`

	// Batching: ranking is chunked sequentially with an inter-batch delay to
	// avoid provider rate limits.
	RankBatchSize      int           `env:"RANK_BATCH_SIZE" envDefault:"8"`
	RankBatchDelay     time.Duration `env:"RANK_BATCH_DELAY" envDefault:"1s"`
	ExtractConcurrency int           `env:"EXTRACT_CONCURRENCY" envDefault:"3"`

	// Optional YAML file overriding the default weight categories.
	WeightProfilePath string `env:"WEIGHT_PROFILE_PATH"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// GetAIBackoffConfig returns backoff configuration appropriate for the
// current environment. Test environments use much shorter timeouts.
func (c Config) GetAIBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.AIBackoffMaxElapsedTime, c.AIBackoffInitialInterval, c.AIBackoffMaxInterval, c.AIBackoffMultiplier
}
