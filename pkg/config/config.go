package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zatekoja/intakedesk/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Auth      AuthConfig
	Portal    PortalConfig
	RateLimit RateLimitConfig
	Functions FunctionsConfig
	GHL       GHLConfig
	Notify    NotifyConfig
	Email     EmailConfig
	Worker    WorkerConfig
	OTEL      OTELConfig
}

// AppConfig holds settings shared by every binary
type AppConfig struct {
	Env             string
	DefaultTimezone string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	AllowedOrigins  []string
	StreamHeartbeat time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// AuthConfig holds dashboard session settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// PortalConfig holds project portal settings
type PortalConfig struct {
	SessionTTL time.Duration
}

// RateLimitConfig holds limits for credential endpoints
type RateLimitConfig struct {
	LoginAttempts  int
	PortalAttempts int
	Window         time.Duration
}

// FunctionsConfig points at the hosted serverless functions
type FunctionsConfig struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// GHLConfig holds GoHighLevel API settings
type GHLConfig struct {
	APIKey  string
	BaseURL string
}

// NotifyConfig holds team notification channels
type NotifyConfig struct {
	SlackWebhookURL     string
	DiscordWebhookID    string
	DiscordWebhookToken string
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	ResendAPIKey string
	From         string
	DashboardURL string
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	AutoParseInterval time.Duration
	AutoParseBatch    int
	ParseFunction     string
	// CacheWarmInterval of zero warms once at startup only
	CacheWarmInterval time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	vault := secrets.VaultConfigFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), vault.Timeout)
	defer cancel()
	if _, err := secrets.Apply(ctx, vault); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:             getEnv("APP_ENV", "development"),
			DefaultTimezone: getEnv("APP_TIMEZONE", "UTC"),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),

			// Comma separated. "*" allows any origin and is meant for development.
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

			StreamHeartbeat: getEnvAsDuration("STREAM_HEARTBEAT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "intakedesk"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "intakedesk"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 12*time.Hour),
		},
		Portal: PortalConfig{
			SessionTTL: getEnvAsDuration("PORTAL_SESSION_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts:  getEnvAsInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
			PortalAttempts: getEnvAsInt("RATE_LIMIT_PORTAL_ATTEMPTS", 5),
			Window:         getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Functions: FunctionsConfig{
			BaseURL:    getEnv("FUNCTIONS_BASE_URL", ""),
			ServiceKey: getEnv("FUNCTIONS_SERVICE_KEY", ""),
			Timeout:    getEnvAsDuration("FUNCTIONS_TIMEOUT", 60*time.Second),
		},
		GHL: GHLConfig{
			APIKey:  getEnv("GHL_API_KEY", ""),
			BaseURL: getEnv("GHL_BASE_URL", "https://services.leadconnectorhq.com"),
		},
		Notify: NotifyConfig{
			SlackWebhookURL:     getEnv("SLACK_WEBHOOK_URL", ""),
			DiscordWebhookID:    getEnv("DISCORD_WEBHOOK_ID", ""),
			DiscordWebhookToken: getEnv("DISCORD_WEBHOOK_TOKEN", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "IntakeDesk <no-reply@intakedesk.app>"),
			DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:5173"),
		},
		Worker: WorkerConfig{
			AutoParseInterval: getEnvAsDuration("WORKER_AUTOPARSE_INTERVAL", 30*time.Second),
			AutoParseBatch:    getEnvAsInt("WORKER_AUTOPARSE_BATCH", 20),
			ParseFunction:     getEnv("WORKER_PARSE_FUNCTION", "format-intake-ai"),
			CacheWarmInterval: getEnvAsDuration("CACHE_WARM_INTERVAL", 15*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "intakedesk"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.DefaultTimezone, err)
	}
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = "development-only-secret"
	}
	if c.Worker.AutoParseBatch <= 0 {
		return fmt.Errorf("WORKER_AUTOPARSE_BATCH must be positive, got %d", c.Worker.AutoParseBatch)
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
