package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; DATABASE_URL and BOT_ACCESS_TOKEN are
// required.
type Config struct {
	// Operational HTTP server (health, metrics)
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Chat platform
	BotBaseURL  string
	BotToken    string
	BotTimeout  time.Duration
	FileBaseURL string // prefix for asset links in composed messages

	// Asset store (S3-compatible)
	S3Bucket      string
	S3Region      string
	S3EndpointURL string // empty in prod; MinIO/LocalStack URL in dev
	S3AccessKeyID string
	S3SecretKey   string

	// Delivery pipeline
	Workers         int
	QueueSize       int
	TickInterval    time.Duration // also the due-window width
	DeliveryTimeout time.Duration // per (card, channel) delivery
	RateLimit       int           // chat platform calls per second
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	botToken := os.Getenv("BOT_ACCESS_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_ACCESS_TOKEN is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		BotBaseURL:  getEnv("BOT_BASE_URL", "https://chat.example.com/api/v3"),
		BotToken:    botToken,
		BotTimeout:  getDuration("BOT_TIMEOUT", 10*time.Second),
		FileBaseURL: getEnv("FILE_BASE_URL", "https://chat.example.com/files"),

		S3Bucket:      getEnv("S3_BUCKET_NAME", "card-images"),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3EndpointURL: getEnv("S3_ENDPOINT_URL", ""),
		S3AccessKeyID: getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),

		Workers:         getInt("DELIVERY_WORKERS", 8),
		QueueSize:       getInt("DELIVERY_QUEUE_SIZE", 1024),
		TickInterval:    getDuration("TICK_INTERVAL", time.Minute),
		DeliveryTimeout: getDuration("DELIVERY_TIMEOUT", 30*time.Second),
		RateLimit:       getInt("BOT_RATE_LIMIT", 20),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
