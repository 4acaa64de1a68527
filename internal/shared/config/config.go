package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	ScratchDir      string

	QueueMaxSize      int
	BatchSize         int
	BatchWindow       int
	BatchTimeout      time.Duration
	TranslatorTimeout time.Duration
	TranslatorRetries int
	ReviewMode        bool
	MaxUploadBytes    int64

	FileMaxAge      time.Duration
	CleanupInterval time.Duration

	RateLimitSubmitPerMin float64
	RateLimitSubmitBurst  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is not set; usage statistics will not survive restarts")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		ScratchDir:      getEnv("SCRATCH_DIR", os.TempDir()),

		QueueMaxSize:      getEnvInt("QUEUE_MAX_SIZE", 20),
		BatchSize:         getEnvInt("BATCH_SIZE", 50),
		BatchWindow:       getEnvInt("BATCH_WINDOW", 5),
		BatchTimeout:      getEnvDuration("BATCH_TIMEOUT", 2*time.Minute),
		TranslatorTimeout: getEnvDuration("TRANSLATOR_TIMEOUT", 60*time.Second),
		TranslatorRetries: getEnvInt("TRANSLATOR_RETRIES", 1),
		ReviewMode:        getEnvBool("REVIEW_MODE", true),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 100<<20)),

		FileMaxAge:      getEnvDuration("FILE_MAX_AGE", time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", time.Hour),

		RateLimitSubmitPerMin: float64(getEnvInt("RATE_LIMIT_SUBMIT_PER_MIN", 10)),
		RateLimitSubmitBurst:  getEnvInt("RATE_LIMIT_SUBMIT_BURST", 5),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		if secs, convErr := strconv.Atoi(raw); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return val
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
	case "development", "dev":
		return "dev"
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
