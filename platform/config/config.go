// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// WebhookConfig provides settings for the CRM webhook intake.
type WebhookConfig interface {
	GetWebhookToken() string
}

// ActiveCampaignConfig provides settings for the CRM-of-record client.
type ActiveCampaignConfig interface {
	GetACAPIURL() string
	GetACAPIKey() string
	GetACTimeout() time.Duration
	GetACRequestsPerSecond() float64
	IsACEnabled() bool
}

// CleanupConfig provides settings for the deals reconciliation job.
type CleanupConfig interface {
	GetCleanupBatchSize() int
	GetCleanupBatchSizeMax() int
	GetCleanupConcurrency() int
	GetCleanupChunkDelay() time.Duration
	GetLossReasonFieldID() string
	GetDisqualReasonFieldID() string
	GetRedisURL() string
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCleanupCron() string
}

// FunnelConfig provides settings for the stage attribution engine.
type FunnelConfig interface {
	GetFunnelUnitsFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	WebhookToken         string
	ACAPIURL             string
	ACAPIKey             string
	ACTimeout            time.Duration
	ACRequestsPerSecond  float64
	CleanupBatchSize     int
	CleanupBatchSizeMax  int
	CleanupConcurrency   int
	CleanupChunkDelay    time.Duration
	LossReasonFieldID    string
	DisqualReasonFieldID string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	CleanupCron          string
	FunnelUnitsFile      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WebhookConfig implementation
func (c *Config) GetWebhookToken() string { return c.WebhookToken }

// ActiveCampaignConfig implementation
func (c *Config) GetACAPIURL() string             { return c.ACAPIURL }
func (c *Config) GetACAPIKey() string             { return c.ACAPIKey }
func (c *Config) GetACTimeout() time.Duration     { return c.ACTimeout }
func (c *Config) GetACRequestsPerSecond() float64 { return c.ACRequestsPerSecond }
func (c *Config) IsACEnabled() bool               { return c.ACAPIURL != "" && c.ACAPIKey != "" }

// CleanupConfig implementation
func (c *Config) GetCleanupBatchSize() int            { return c.CleanupBatchSize }
func (c *Config) GetCleanupBatchSizeMax() int         { return c.CleanupBatchSizeMax }
func (c *Config) GetCleanupConcurrency() int          { return c.CleanupConcurrency }
func (c *Config) GetCleanupChunkDelay() time.Duration { return c.CleanupChunkDelay }
func (c *Config) GetLossReasonFieldID() string        { return c.LossReasonFieldID }
func (c *Config) GetDisqualReasonFieldID() string     { return c.DisqualReasonFieldID }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetCleanupCron() string    { return c.CleanupCron }

// FunnelConfig implementation
func (c *Config) GetFunnelUnitsFile() string { return c.FunnelUnitsFile }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WebhookToken:         getEnv("WEBHOOK_TOKEN", ""),
		ACAPIURL:             strings.TrimRight(getEnv("AC_API_URL", ""), "/"),
		ACAPIKey:             getEnv("AC_API_KEY", ""),
		ACTimeout:            mustDuration(getEnv("AC_TIMEOUT", "10s")),
		ACRequestsPerSecond:  mustFloat(getEnv("AC_REQUESTS_PER_SECOND", "5")),
		CleanupBatchSize:     mustInt(getEnv("CLEANUP_BATCH_SIZE", "20")),
		CleanupBatchSizeMax:  mustInt(getEnv("CLEANUP_BATCH_SIZE_MAX", "30")),
		CleanupConcurrency:   mustInt(getEnv("CLEANUP_CONCURRENCY", "5")),
		CleanupChunkDelay:    mustDuration(getEnv("CLEANUP_CHUNK_DELAY", "50ms")),
		LossReasonFieldID:    getEnv("AC_LOSS_REASON_FIELD_ID", "2"),
		DisqualReasonFieldID: getEnv("AC_DISQUAL_REASON_FIELD_ID", "303"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CleanupCron:          getEnv("CLEANUP_CRON", "0 3 * * *"),
		FunnelUnitsFile:      getEnv("FUNNEL_UNITS_FILE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.CleanupBatchSize < 1 || cfg.CleanupBatchSize > cfg.CleanupBatchSizeMax {
		return nil, fmt.Errorf("CLEANUP_BATCH_SIZE must be between 1 and %d", cfg.CleanupBatchSizeMax)
	}
	if cfg.CleanupConcurrency < 1 {
		return nil, fmt.Errorf("CLEANUP_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
