package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Minio struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	PublicURL  string
}

type Scheduler struct {
	Interval    time.Duration
	MaxInterval time.Duration
	UserID      int64
	LeaseTTL    time.Duration
}

type Config struct {
	Port                  string
	InstagramClientID     string
	InstagramClientSecret string
	TiktokClientKey       string
	TiktokClientSecret    string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	GraphAPIVersion       string
	PostgresURI           string
	RedisURI              string
	KafkaBrokers          string
	KafkaTopic            string
	FrontendURL           string
	StorageBackend        string
	R2                    R2
	Minio                 Minio
	Scheduler             Scheduler
	SecretKey             string
	EncryptionKey         string
	CookieName            string
	LogLevel              string
	OtelEndpoint          string
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		TiktokClientKey:       getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		GraphAPIVersion:       getEnv("GRAPH_API_VERSION", "v21.0"),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		KafkaBrokers:          getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "post-outcomes"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		StorageBackend:        getEnv("STORAGE_BACKEND", "r2"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Minio: Minio{
			Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
			BucketName: getEnv("MINIO_BUCKET_NAME", "media"),
			UseSSL:     getEnvBool("MINIO_USE_SSL", false),
			PublicURL:  getEnv("MINIO_PUBLIC_URL", ""),
		},
		Scheduler: Scheduler{
			Interval:    getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
			MaxInterval: getEnvDuration("SCHEDULER_MAX_INTERVAL", 5*time.Minute),
			UserID:      getEnvInt("SCHEDULER_USER_ID", 0),
			LeaseTTL:    getEnvDuration("SCHEDULER_LEASE", 0),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "session"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OtelEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
