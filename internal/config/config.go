package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DefaultFaxProvider string
	AllowAnonymousFax  bool
	SenderNumber       string

	Telnyx     TelnyxConfig
	Notifyre   NotifyreConfig
	RevenueCat RevenueCatConfig
	Storage    StorageConfig
	Identity   IdentityConfig
	Reconcile  ReconcileConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// TelnyxConfig configures the staged carrier. The carrier fetches the fax
// document from a public URL, so a connection id and a working storage
// bucket are required in addition to the API key.
type TelnyxConfig struct {
	APIKey        string
	ConnectionID  string
	BaseURL       string
	WebhookSecret string
}

// NotifyreConfig configures the direct carrier. Documents are submitted
// inline, no storage involved.
type NotifyreConfig struct {
	APIKey           string
	BaseURL          string
	WebhookSecret    string
	CoverPageID      string
	IncludeCoverPage bool
}

// RevenueCatConfig configures the billing webhook. RevenueCat sends a static
// shared secret in the Authorization header rather than a signature.
type RevenueCatConfig struct {
	WebhookSecret string
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

type IdentityConfig struct {
	BaseURL    string
	ServiceKey string
}

type ReconcileConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	IntervalSec   int
	StuckAfterSec int
	BatchSize     int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "fax-app-backend"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DefaultFaxProvider: strings.ToLower(getenv("DEFAULT_FAX_PROVIDER", "notifyre")),
		AllowAnonymousFax:  getenvBool("ALLOW_ANONYMOUS_FAX", false),
		SenderNumber:       strings.TrimSpace(getenv("FAX_SENDER_NUMBER", "")),

		Telnyx: TelnyxConfig{
			APIKey:        strings.TrimSpace(getenv("TELNYX_API_KEY", "")),
			ConnectionID:  strings.TrimSpace(getenv("TELNYX_CONNECTION_ID", "")),
			BaseURL:       getenv("TELNYX_BASE_URL", "https://api.telnyx.com/v2"),
			WebhookSecret: strings.TrimSpace(getenv("TELNYX_WEBHOOK_SECRET", "")),
		},
		Notifyre: NotifyreConfig{
			APIKey:           strings.TrimSpace(getenv("NOTIFYRE_API_KEY", "")),
			BaseURL:          getenv("NOTIFYRE_BASE_URL", "https://api.notifyre.com"),
			WebhookSecret:    strings.TrimSpace(getenv("NOTIFYRE_WEBHOOK_SECRET", "")),
			CoverPageID:      strings.TrimSpace(getenv("NOTIFYRE_COVER_PAGE_ID", "")),
			IncludeCoverPage: getenvBool("NOTIFYRE_INCLUDE_COVER_PAGE", false),
		},
		RevenueCat: RevenueCatConfig{
			WebhookSecret: strings.TrimSpace(getenv("REVENUECAT_WEBHOOK_SECRET", "")),
		},
		Storage: StorageConfig{
			Bucket:          strings.TrimSpace(getenv("STORAGE_BUCKET", "")),
			Region:          getenv("STORAGE_REGION", "us-east-1"),
			Endpoint:        strings.TrimSpace(getenv("STORAGE_ENDPOINT", "")),
			PublicBaseURL:   strings.TrimSpace(getenv("STORAGE_PUBLIC_BASE_URL", "")),
			AccessKeyID:     strings.TrimSpace(getenv("STORAGE_ACCESS_KEY_ID", "")),
			SecretAccessKey: strings.TrimSpace(getenv("STORAGE_SECRET_ACCESS_KEY", "")),
		},
		Identity: IdentityConfig{
			BaseURL:    strings.TrimSpace(getenv("IDENTITY_BASE_URL", "")),
			ServiceKey: strings.TrimSpace(getenv("IDENTITY_SERVICE_KEY", "")),
		},
		Reconcile: ReconcileConfig{
			Enabled:       getenvBool("RECONCILE_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RECONCILE_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RECONCILE_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RECONCILE_REDIS_DB", 0),
			IntervalSec:   getenvInt("RECONCILE_INTERVAL_SECONDS", 300),
			StuckAfterSec: getenvInt("RECONCILE_STUCK_AFTER_SECONDS", 900),
			BatchSize:     getenvInt("RECONCILE_BATCH_SIZE", 50),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
	}
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
