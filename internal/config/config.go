package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	SLA          SLAConfig
	Bootstrap    BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	AllowedOrigins        string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled             bool
	Addr                string
	Password            string
	DB                  int
	DashboardTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// StorageConfig controls where attachments are written.
type StorageConfig struct {
	UploadDir       string
	MaxUploadSizeMB int
}

// SLATargets are the default per-priority targets in minutes.
type SLATargets struct {
	AssignMinutes  int
	ResolveMinutes int
}

// SLAConfig holds monitor cadence and seed targets.
type SLAConfig struct {
	MonitorIntervalSeconds int
	Critical               SLATargets
	High                   SLATargets
	Medium                 SLATargets
	Low                    SLATargets
}

// BootstrapConfig describes the admin account created by the seed command.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "servicemeow"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			AllowedOrigins:        getEnv("ALLOWED_ORIGINS", "https://localhost:8889"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Enabled:             getEnvAsBool("REDIS_ENABLED", true),
			Addr:                getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:            os.Getenv("REDIS_PASSWORD"),
			DB:                  redisDB,
			DashboardTTLSeconds: getEnvAsInt("REDIS_DASHBOARD_TTL_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:  getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 7*24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@servicemeow.local"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Storage: StorageConfig{
			UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadSizeMB: getEnvAsInt("MAX_UPLOAD_SIZE_MB", 25),
		},
		SLA: SLAConfig{
			MonitorIntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 60),
			Critical: SLATargets{
				AssignMinutes:  getEnvAsInt("SLA_CRITICAL_ASSIGN", 15),
				ResolveMinutes: getEnvAsInt("SLA_CRITICAL_RESOLVE", 240),
			},
			High: SLATargets{
				AssignMinutes:  getEnvAsInt("SLA_HIGH_ASSIGN", 30),
				ResolveMinutes: getEnvAsInt("SLA_HIGH_RESOLVE", 480),
			},
			Medium: SLATargets{
				AssignMinutes:  getEnvAsInt("SLA_MEDIUM_ASSIGN", 120),
				ResolveMinutes: getEnvAsInt("SLA_MEDIUM_RESOLVE", 1440),
			},
			Low: SLATargets{
				AssignMinutes:  getEnvAsInt("SLA_LOW_ASSIGN", 480),
				ResolveMinutes: getEnvAsInt("SLA_LOW_RESOLVE", 4320),
			},
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: getEnv("DEFAULT_ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", "admin"),
			AdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@servicemeow.local"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DashboardTTL returns how long cached dashboard summaries live.
func (r RedisConfig) DashboardTTL() time.Duration {
	if r.DashboardTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.DashboardTTLSeconds) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadSizeMB) * 1024 * 1024
}

// MonitorInterval returns the SLA sweep cadence.
func (s SLAConfig) MonitorInterval() time.Duration {
	if s.MonitorIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.MonitorIntervalSeconds) * time.Second
}

// Defaults returns the seed targets keyed by priority name.
func (s SLAConfig) Defaults() map[string]SLATargets {
	return map[string]SLATargets{
		"critical": s.Critical,
		"high":     s.High,
		"medium":   s.Medium,
		"low":      s.Low,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
