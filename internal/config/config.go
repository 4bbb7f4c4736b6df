package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/utils"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTSecret           string
	CronSecret          string
	CorsAllowedOrigins  []string
	AnalyticsTimezone   string
	AnalyticsCacheTTL   time.Duration
	OrdersJSONPath      string
	RedisURL            string
	RabbitMQURL         string
	RabbitMQWorkerMode  string
	KafkaBrokers        []string
	KafkaAlertsTopic    string
	TelegramBotToken    string
	TelegramAlertChatID int64
	WSHeartbeatInterval time.Duration
	AlertCooldown       time.Duration
	SnapshotRetention   int
	Tuning              analytics.Tuning

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	defaults := analytics.DefaultTuning()

	cfg := Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8090"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		CronSecret:          getEnv("CRON_SECRET", ""),
		CorsAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		AnalyticsTimezone:   getEnv("ANALYTICS_TIMEZONE", "America/Sao_Paulo"),
		AnalyticsCacheTTL:   getEnvDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),
		OrdersJSONPath:      getEnv("ORDERS_JSON_PATH", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:  getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaAlertsTopic:    getEnv("KAFKA_ALERTS_TOPIC", "analytics.alerts"),
		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAlertChatID: getEnvInt64("TELEGRAM_ALERT_CHAT_ID", 0),
		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		AlertCooldown:       getEnvDuration("ANALYTICS_ALERT_COOLDOWN", 30*time.Minute),
		SnapshotRetention:   int(getEnvInt64("ANALYTICS_SNAPSHOT_RETENTION_DAYS", 90)),
		Tuning: analytics.Tuning{
			FunnelCartFactor:   getEnvFloat("ANALYTICS_FUNNEL_CART_FACTOR", defaults.FunnelCartFactor),
			FunnelViewFactor:   getEnvFloat("ANALYTICS_FUNNEL_VIEW_FACTOR", defaults.FunnelViewFactor),
			OnTimeMinutes:      getEnvFloat("ANALYTICS_ON_TIME_MINUTES", defaults.OnTimeMinutes),
			BagLimit:           int(getEnvInt64("ANALYTICS_BAG_LIMIT", int64(defaults.BagLimit))),
			PrepFallbackFactor: getEnvFloat("ANALYTICS_PREP_FALLBACK_FACTOR", defaults.PrepFallbackFactor),
		},

		// Object store (Cloudflare R2 / S3-compatible)
		ObjectStoreEndpoint:        getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, ""),
		ObjectStoreRegion:          getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto"),
		ObjectStoreAccessKeyID:     getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, ""),
		ObjectStoreSecretAccessKey: getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, ""),
		ObjectStoreBucket:          getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, ""),
		ObjectStorePublicBaseURL:   getEnvFirst([]string{"OBJECT_STORE_PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"}, ""),
		ObjectStoreStorageClass:    getEnvFirst([]string{"OBJECT_STORE_STORAGE_CLASS", "R2_STORAGE_CLASS"}, "STANDARD"),
	}

	if cfg.AnalyticsCacheTTL < 0 {
		cfg.AnalyticsCacheTTL = 0
	}

	// Back-compat: allow R2_ACCOUNT_ID -> endpoint
	if strings.TrimSpace(cfg.ObjectStoreEndpoint) == "" {
		accountID := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID"))
		if accountID != "" {
			cfg.ObjectStoreEndpoint = "https://" + accountID + ".r2.cloudflarestorage.com"
		}
	}

	return cfg
}

// Location resolves AnalyticsTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	return utils.LoadLocation(c.AnalyticsTimezone)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
