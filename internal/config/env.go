package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before reading the environment when present.
// Variables already set in the process environment win.
var envFile = ".env"

func getEnv(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func getEnvBool(key string, target *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func getEnvInt(key string, target *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func getEnvDuration(key string, target *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

// parseEnv overlays MOMENTS_* environment variables. A missing .env file is
// not an error.
func parseEnv(config *Config) {
	_ = godotenv.Load(envFile)

	getEnv("MOMENTS_MODE", &config.Mode)
	getEnv("MOMENTS_LOCAL_DSN", &config.LocalDSN)
	getEnv("MOMENTS_DATABASE_DSN", &config.DatabaseDSN)
	getEnv("MOMENTS_OBJECT_STORE", &config.ObjectStore)
	getEnv("MOMENTS_S3_ROOT_USER", &config.S3RootUser)
	getEnv("MOMENTS_S3_ROOT_PASSWORD", &config.S3RootPassword)
	getEnv("MOMENTS_S3_BUCKET", &config.S3Bucket)
	getEnv("MOMENTS_S3_REGION", &config.S3Region)
	getEnv("MOMENTS_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	getEnv("MOMENTS_S3_PUBLIC_BASE_URL", &config.S3PublicBaseURL)
	getEnvBool("MOMENTS_S3_USE_SSL", &config.S3UseSSL)
	getEnv("MOMENTS_OWNER_EMAIL", &config.OwnerEmail)
	getEnv("MOMENTS_SECRET_KEY", &config.SecretKey)
	getEnvDuration("MOMENTS_SESSION_VALIDITY", &config.SessionValidityDuration)
	getEnvInt("MOMENTS_UPLOAD_CONCURRENCY", &config.UploadConcurrency)
	getEnv("MOMENTS_EXPORT_DIR", &config.ExportDir)
	getEnv("MOMENTS_LOG_BACKEND", &config.LogBackend)
}
