package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	Port    int
	Version string

	// external backend API (users, blocked sites)
	BackendURL       string
	BackendHealthURL string
	BackendTimeout   time.Duration

	// durable client storage
	StorageDriver string
	StorageTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DBURL         string

	// Empty keeps the edge gate presence-only.
	EdgeJWTSecret string

	DBAccessWebhookURL   string
	DBAccessWebhookToken string
	DBAccessDatabaseURL  string

	OTelEnabled  bool
	OTelEndpoint string

	CORSOrigins []string
}

func Load() Config {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "https://pf-backend-x6xf.onrender.com/api/v1"), "/")

	return Config{
		Env:     getEnv("APP_ENV", "dev"),
		Port:    getEnvInt("PORT", 8080),
		Version: getEnv("APP_VERSION", "1.0.0"),

		BackendURL:       backendURL,
		BackendHealthURL: getEnv("BACKEND_HEALTH_URL", "https://pf-backend-x6xf.onrender.com/health"),
		BackendTimeout:   time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,

		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),
		StorageTTL:    time.Duration(getEnvInt("STORAGE_TTL_SECONDS", 86400)) * time.Second,
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DBURL:         buildDBURL(),

		EdgeJWTSecret: getEnv("EDGE_JWT_SECRET", ""),

		DBAccessWebhookURL:   getEnv("DB_ACCESS_WEBHOOK_URL", ""),
		DBAccessWebhookToken: getEnv("DB_ACCESS_WEBHOOK_TOKEN", ""),
		DBAccessDatabaseURL:  getEnv("DB_ACCESS_DATABASE_URL", "https://pf-database.onrender.com"),

		OTelEnabled:  getEnv("OTEL_ENABLED", "false") == "true",
		OTelEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

// IsProd reports whether cookies should carry the Secure attribute
// without exception.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "safeguard")
	pass := getEnv("DB_PASSWORD", "safeguard")
	name := getEnv("DB_NAME", "safeguard")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
