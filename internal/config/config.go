// Package config loads runtime configuration from the environment.
//
// An optional .env file is read first (godotenv), then every key is resolved
// through viper with the defaults registered in setDefaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved server configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Email    EmailConfig
	News     NewsConfig
	Stories  StoriesConfig

	ElasticsearchURL   string
	SentryDSN          string
	CORSAllowedOrigins []string
	// RequiredServices must pass their startup check or the server exits
	RequiredServices []string

	Telemetry TelemetryConfig
}

// DatabaseConfig selects and addresses the SQL backend
type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	URL        string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// RedisConfig addresses the optional redis instance
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret                string
	TokenTTL                 time.Duration
	RequireEmailConfirmation bool
}

// StorageConfig selects the image store
type StorageConfig struct {
	Driver        string // s3 | local
	AWSRegion     string
	S3Bucket      string
	CDNBaseURL    string
	LocalPath     string
	PublicBaseURL string
}

// EmailConfig configures outgoing confirmation mail
type EmailConfig struct {
	FromEmail string
	FromName  string
	AWSRegion string
}

// Enabled reports whether SES delivery is configured
func (e EmailConfig) Enabled() bool {
	return e.FromEmail != ""
}

// NewsConfig configures the external headline sources
type NewsConfig struct {
	GNewsAPIKey    string
	GuardianAPIKey string
	CacheTTL       time.Duration
	Timeout        time.Duration
}

// StoriesConfig controls story lifetime
type StoriesConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8787")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "server.log")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "archive")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "archive.db")

	v.SetDefault("REDIS_PORT", "6379")

	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("REQUIRE_EMAIL_CONFIRMATION", false)

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("LOCAL_STORAGE_PATH", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8787")

	v.SetDefault("SES_FROM_NAME", "aRchive")

	v.SetDefault("NEWS_CACHE_TTL", "10m")
	v.SetDefault("NEWS_TIMEOUT", "8s")

	v.SetDefault("STORY_TTL", "24h")
	v.SetDefault("STORY_CLEANUP_INTERVAL", "1h")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// Missing .env is normal in containers
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFile:     v.GetString("LOG_FILE"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			URL:        v.GetString("DATABASE_URL"),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret:                v.GetString("JWT_SECRET"),
			TokenTTL:                 v.GetDuration("JWT_TTL"),
			RequireEmailConfirmation: v.GetBool("REQUIRE_EMAIL_CONFIRMATION"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(v.GetString("STORAGE_DRIVER")),
			AWSRegion:     v.GetString("AWS_REGION"),
			S3Bucket:      v.GetString("S3_BUCKET"),
			CDNBaseURL:    v.GetString("CDN_BASE_URL"),
			LocalPath:     v.GetString("LOCAL_STORAGE_PATH"),
			PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),
		},
		Email: EmailConfig{
			FromEmail: v.GetString("SES_FROM_EMAIL"),
			FromName:  v.GetString("SES_FROM_NAME"),
			AWSRegion: v.GetString("AWS_REGION"),
		},
		News: NewsConfig{
			GNewsAPIKey:    v.GetString("GNEWS_API_KEY"),
			GuardianAPIKey: v.GetString("GUARDIAN_API_KEY"),
			CacheTTL:       v.GetDuration("NEWS_CACHE_TTL"),
			Timeout:        v.GetDuration("NEWS_TIMEOUT"),
		},
		Stories: StoriesConfig{
			TTL:             v.GetDuration("STORY_TTL"),
			CleanupInterval: v.GetDuration("STORY_CLEANUP_INTERVAL"),
		},
		ElasticsearchURL:   v.GetString("ELASTICSEARCH_URL"),
		SentryDSN:          v.GetString("SENTRY_DSN"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RequiredServices:   splitList(strings.ToLower(v.GetString("REQUIRED_SERVICES"))),
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			Endpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want s3 or local)", c.Storage.Driver)
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET environment variable is required")
		}
		c.Auth.JWTSecret = "development-only-secret"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Stories.TTL <= 0 {
		c.Stories.TTL = 24 * time.Hour
	}
	if c.Stories.CleanupInterval <= 0 {
		c.Stories.CleanupInterval = time.Hour
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN builds a postgres connection string when DATABASE_URL is unset
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
