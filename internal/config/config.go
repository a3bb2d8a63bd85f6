package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string

	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Redis     RedisConfig
	Kafka     KafkaConfig
	CinetPay  CinetPayConfig
	Shopify   ShopifyConfig
	Scheduler SchedulerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Enabled reports whether at least one broker is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type CinetPayConfig struct {
	APIKey    string
	SiteID    string
	SecretKey string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

type ShopifyConfig struct {
	ShopName      string
	ShopURL       string
	AccessToken   string
	WebhookSecret string
	APIVersion    string
	Timeout       time.Duration
}

// ObservabilityConfig feeds the logger, tracer and meter providers.
// AlwaysSampleRoutes lists path prefixes whose traces bypass the sampling
// ratio; money-moving routes are kept by default.
type ObservabilityConfig struct {
	LogLevel           string
	LogFormat          string
	OtelEnabled        bool
	OtelEndpoint       string
	OtelProtocol       string
	SamplingRatio      float64
	AlwaysSampleRoutes []string
}

// SchedulerConfig drives the background reconciler.
type SchedulerConfig struct {
	Enabled        bool
	Interval       time.Duration
	BatchSize      int
	StalePaymentAt time.Duration
	EnabledJobs    []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "blizz"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		BaseURL:           strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "blizz"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "blizz.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", false),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(getenv("KAFKA_BROKERS", "")),
			Topic:    getenv("KAFKA_TOPIC", "blizz.shop.events"),
			ClientID: getenv("KAFKA_CLIENT_ID", "blizz"),
		},
		CinetPay: CinetPayConfig{
			APIKey:    strings.TrimSpace(getenv("CINETPAY_API_KEY", "")),
			SiteID:    strings.TrimSpace(getenv("CINETPAY_SITE_ID", "")),
			SecretKey: strings.TrimSpace(getenv("CINETPAY_SECRET_KEY", "")),
			BaseURL:   strings.TrimRight(getenv("CINETPAY_BASE_URL", "https://api-checkout.cinetpay.com/v2"), "/"),
			Currency:  strings.ToUpper(getenv("CINETPAY_CURRENCY", "XOF")),
			Timeout:   getenvDuration("CINETPAY_TIMEOUT", 20*time.Second),
		},
		Shopify: ShopifyConfig{
			ShopName:      strings.TrimSpace(getenv("SHOPIFY_SHOP_NAME", "")),
			ShopURL:       strings.TrimRight(strings.TrimSpace(getenv("SHOPIFY_SHOP_URL", "")), "/"),
			AccessToken:   strings.TrimSpace(getenv("SHOPIFY_ACCESS_TOKEN", "")),
			WebhookSecret: strings.TrimSpace(getenv("SHOPIFY_WEBHOOK_SECRET", "")),
			APIVersion:    getenv("SHOPIFY_API_VERSION", "2023-10"),
			Timeout:       getenvDuration("SHOPIFY_TIMEOUT", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:           strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:          strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:        getenvBool("OTEL_ENABLED", false),
			OtelEndpoint:       strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OtelProtocol:       otlpProtocol(),
			SamplingRatio:      getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
			AlwaysSampleRoutes: splitList(getenv("OTEL_ALWAYS_SAMPLE_ROUTES", "/api/shop/payments,/api/shop/orders,/webhooks/shopify")),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			Interval:       getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			BatchSize:      getenvInt("SCHEDULER_BATCH_SIZE", 50),
			StalePaymentAt: getenvDuration("SCHEDULER_STALE_PAYMENT_AFTER", 15*time.Minute),
			EnabledJobs:    splitList(getenv("SCHEDULER_JOBS", "")),
		},
	}

	return cfg
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// otlpProtocol prefers the traces-specific protocol when both are set.
func otlpProtocol() string {
	protocol := getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))
	return strings.ToLower(strings.TrimSpace(protocol))
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
