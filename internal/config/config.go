package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	IdentityJWTSecret  string
	IdentityIssuer     string
	IdentityAudience   string
	CORSAllowedOrigins []string
	TrialCredits       int

	DetectorBaseURL          string
	DetectorAPIKey           string
	DetectorTimeout          time.Duration
	DetectorRateLimitPerMin  int
	DetectorBurst            int
	DetectorAllowPrivateURLs bool

	ScanBatchWorkers   int
	ScanMaxBatchItems  int
	ScanMaxUploadBytes int64

	PaystackBaseURL    string
	PaystackSecretKey  string
	PaymentCallbackURL string
	PaymentCurrency    string
	CreditUnitPrice    int64
	PaymentMaxCredits  int

	SettlementFreeAttempts int
	SettlementBaseDelay    time.Duration
	SettlementMaxDelay     time.Duration
	SettlementResetWindow  time.Duration

	CacheBackend       string
	CacheListTTL       time.Duration
	CacheItemTTL       time.Duration
	CacheProfileTTL    time.Duration
	CacheSweepInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MediaStorageEnabled   bool
	MediaStorageEndpoint  string
	MediaStorageAccessKey string
	MediaStorageSecretKey string
	MediaStorageBucket    string
	MediaStorageUseSSL    bool
	MediaStorageRegion    string

	APIRateLimitPerMin    int
	ScanRateLimitPerMin   int
	RateLimitRedisEnabled bool
	RateLimitFailClosed   bool

	IdempotencyEnabled         bool
	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		IdentityJWTSecret:  os.Getenv("IDENTITY_JWT_SECRET"),
		IdentityIssuer:     getEnv("IDENTITY_ISSUER", "deepscan-identity"),
		IdentityAudience:   getEnv("IDENTITY_AUDIENCE", "deepscan-api"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		TrialCredits:       getEnvInt("TRIAL_CREDITS", 3),

		DetectorBaseURL:          getEnv("DETECTOR_BASE_URL", "http://localhost:9090"),
		DetectorAPIKey:           os.Getenv("DETECTOR_API_KEY"),
		DetectorRateLimitPerMin:  getEnvInt("DETECTOR_RATE_LIMIT_PER_MIN", 60),
		DetectorBurst:            getEnvInt("DETECTOR_BURST", 3),
		DetectorAllowPrivateURLs: getEnvBool("DETECTOR_ALLOW_PRIVATE_MEDIA_URLS", false),

		ScanBatchWorkers:   getEnvInt("SCAN_BATCH_WORKERS", 3),
		ScanMaxBatchItems:  getEnvInt("SCAN_MAX_BATCH_ITEMS", 10),
		ScanMaxUploadBytes: int64(getEnvInt("SCAN_MAX_UPLOAD_BYTES", 50<<20)),

		PaystackBaseURL:    getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:3000/billing/callback"),
		PaymentCurrency:    strings.ToUpper(getEnv("PAYMENT_CURRENCY", "NGN")),
		CreditUnitPrice:    int64(getEnvInt("CREDIT_UNIT_PRICE", 50000)),
		PaymentMaxCredits:  getEnvInt("PAYMENT_MAX_CREDITS", 1000),

		SettlementFreeAttempts: getEnvInt("SETTLEMENT_FREE_ATTEMPTS", 3),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MediaStorageEnabled:   getEnvBool("MEDIA_STORAGE_ENABLED", false),
		MediaStorageEndpoint:  getEnv("MEDIA_STORAGE_ENDPOINT", "localhost:9000"),
		MediaStorageAccessKey: os.Getenv("MEDIA_STORAGE_ACCESS_KEY"),
		MediaStorageSecretKey: os.Getenv("MEDIA_STORAGE_SECRET_KEY"),
		MediaStorageBucket:    getEnv("MEDIA_STORAGE_BUCKET", "deepscan-media"),
		MediaStorageUseSSL:    getEnvBool("MEDIA_STORAGE_USE_SSL", false),
		MediaStorageRegion:    getEnv("MEDIA_STORAGE_REGION", "us-east-1"),

		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		ScanRateLimitPerMin:   getEnvInt("SCAN_RATE_LIMIT_PER_MIN", 20),
		RateLimitRedisEnabled: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitFailClosed:   getEnvBool("RATE_LIMIT_FAIL_CLOSED", false),

		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", true),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "deepscan-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"DETECTOR_TIMEOUT", "30s", &cfg.DetectorTimeout},
		{"CACHE_LIST_TTL", "30s", &cfg.CacheListTTL},
		{"CACHE_ITEM_TTL", "5m", &cfg.CacheItemTTL},
		{"CACHE_PROFILE_TTL", "30s", &cfg.CacheProfileTTL},
		{"CACHE_SWEEP_INTERVAL", "1m", &cfg.CacheSweepInterval},
		{"SETTLEMENT_BASE_DELAY", "2s", &cfg.SettlementBaseDelay},
		{"SETTLEMENT_MAX_DELAY", "5m", &cfg.SettlementMaxDelay},
		{"SETTLEMENT_RESET_WINDOW", "30m", &cfg.SettlementResetWindow},
		{"IDEMPOTENCY_TTL", "24h", &cfg.IdempotencyTTL},
		{"IDEMPOTENCY_CLEANUP_INTERVAL", "10m", &cfg.IdempotencyCleanupInterval},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.IdentityJWTSecret) < 32 {
		errs = append(errs, "IDENTITY_JWT_SECRET must be at least 32 chars")
	}
	if c.IdentityIssuer == "" || c.IdentityAudience == "" {
		errs = append(errs, "IDENTITY_ISSUER and IDENTITY_AUDIENCE are required")
	}
	if c.TrialCredits < 0 {
		errs = append(errs, "TRIAL_CREDITS must be >= 0")
	}
	if _, err := url.ParseRequestURI(c.DetectorBaseURL); err != nil {
		errs = append(errs, "DETECTOR_BASE_URL must be an absolute URL")
	}
	if c.DetectorTimeout <= 0 || c.DetectorTimeout > 5*time.Minute {
		errs = append(errs, "DETECTOR_TIMEOUT must be between 1s and 5m")
	}
	if c.DetectorRateLimitPerMin <= 0 {
		errs = append(errs, "DETECTOR_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.DetectorBurst <= 0 {
		errs = append(errs, "DETECTOR_BURST must be > 0")
	}
	if c.ScanBatchWorkers <= 0 || c.ScanBatchWorkers > 32 {
		errs = append(errs, "SCAN_BATCH_WORKERS must be between 1 and 32")
	}
	if c.ScanMaxBatchItems <= 0 {
		errs = append(errs, "SCAN_MAX_BATCH_ITEMS must be > 0")
	}
	if c.ScanMaxUploadBytes <= 0 {
		errs = append(errs, "SCAN_MAX_UPLOAD_BYTES must be > 0")
	}
	if len(c.PaymentCurrency) != 3 {
		errs = append(errs, "PAYMENT_CURRENCY must be a 3 letter code")
	}
	if c.CreditUnitPrice <= 0 {
		errs = append(errs, "CREDIT_UNIT_PRICE must be > 0")
	}
	if c.PaymentMaxCredits <= 0 {
		errs = append(errs, "PAYMENT_MAX_CREDITS must be > 0")
	}
	if c.SettlementFreeAttempts < 0 {
		errs = append(errs, "SETTLEMENT_FREE_ATTEMPTS must be >= 0")
	}
	switch c.CacheBackend {
	case "memory", "redis", "none":
	default:
		errs = append(errs, "CACHE_BACKEND must be one of memory, redis, none")
	}
	if c.CacheListTTL <= 0 || c.CacheItemTTL <= 0 || c.CacheProfileTTL <= 0 {
		errs = append(errs, "CACHE_*_TTL values must be > 0")
	}
	if (c.CacheBackend == "redis" || c.RateLimitRedisEnabled) && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when redis cache or redis rate limiting is enabled")
	}
	if c.MediaStorageEnabled {
		if c.MediaStorageEndpoint == "" || c.MediaStorageBucket == "" {
			errs = append(errs, "MEDIA_STORAGE_ENDPOINT and MEDIA_STORAGE_BUCKET are required when media storage is enabled")
		}
		if c.MediaStorageAccessKey == "" || c.MediaStorageSecretKey == "" {
			errs = append(errs, "MEDIA_STORAGE_ACCESS_KEY and MEDIA_STORAGE_SECRET_KEY are required when media storage is enabled")
		}
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.ScanRateLimitPerMin <= 0 {
		errs = append(errs, "SCAN_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.IdempotencyEnabled && c.IdempotencyTTL <= 0 {
		errs = append(errs, "IDEMPOTENCY_TTL must be > 0 when idempotency is enabled")
	}
	if c.IdempotencyEnabled && c.IdempotencyCleanupInterval <= 0 {
		errs = append(errs, "IDEMPOTENCY_CLEANUP_INTERVAL must be > 0 when idempotency is enabled")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if !isLocalLikeEnv(c.Env) {
		errs = append(errs, c.productionViolations()...)
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// productionViolations holds the rules that only apply outside local/test
// environments.
func (c *Config) productionViolations() []string {
	var errs []string
	if c.DetectorAPIKey == "" {
		errs = append(errs, "DETECTOR_API_KEY is required in production")
	}
	if c.PaystackSecretKey == "" {
		errs = append(errs, "PAYSTACK_SECRET_KEY is required in production")
	}
	if !strings.HasPrefix(c.DetectorBaseURL, "https://") {
		errs = append(errs, "DETECTOR_BASE_URL must use https in production")
	}
	if c.DetectorAllowPrivateURLs {
		errs = append(errs, "DETECTOR_ALLOW_PRIVATE_MEDIA_URLS must be false in production")
	}
	if !strings.HasPrefix(c.PaystackBaseURL, "https://") {
		errs = append(errs, "PAYSTACK_BASE_URL must use https in production")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * in production")
			break
		}
	}
	if c.MediaStorageEnabled && !c.MediaStorageUseSSL {
		errs = append(errs, "MEDIA_STORAGE_USE_SSL must be true in production")
	}
	return errs
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
