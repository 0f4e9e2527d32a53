package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultJWTSecret = "dev_secret"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Reports   ReportsConfig
	Scheduler SchedulerConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportsConfig configures report export storage and delivery.
type ReportsConfig struct {
	StorageDir      string
	SystemName      string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// SchedulerConfig controls the scheduled report trigger engine.
type SchedulerConfig struct {
	Enabled  bool
	Timezone string
	Workers  int
}

// MailConfig holds SMTP transport settings.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig governs request throttling.
type RateLimitConfig struct {
	Enabled         bool
	Rules           string
	FallbackEnabled bool
	FallbackWindow  time.Duration
	FallbackMax     int
	CleanupInterval time.Duration
	Retention       time.Duration
	StatsCacheTTL   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SystemName:      v.GetString("REPORTS_SYSTEM_NAME"),
		ResultTTL:       parseDuration(v.GetString("REPORTS_RESULT_TTL"), 7*24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:  v.GetBool("ENABLE_SCHEDULED_REPORTS"),
		Timezone: v.GetString("SCHEDULER_TIMEZONE"),
		Workers:  v.GetInt("SCHEDULER_WORKERS"),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:         v.GetBool("ENABLE_RATE_LIMIT"),
		Rules:           v.GetString("RATE_LIMIT_RULES"),
		FallbackEnabled: v.GetBool("RATE_LIMIT_FALLBACK_ENABLED"),
		FallbackWindow:  parseDuration(v.GetString("RATE_LIMIT_FALLBACK_WINDOW"), time.Minute),
		FallbackMax:     v.GetInt("RATE_LIMIT_FALLBACK_MAX"),
		CleanupInterval: parseDuration(v.GetString("RATE_LIMIT_CLEANUP_INTERVAL"), time.Hour),
		Retention:       parseDuration(v.GetString("RATE_LIMIT_RETENTION"), 7*24*time.Hour),
		StatsCacheTTL:   parseDuration(v.GetString("RATE_LIMIT_STATS_CACHE_TTL"), 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Env == EnvProduction && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		problems = append(problems, "JWT_SECRET must be set in production")
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		problems = append(problems, "API_PREFIX must start with /")
	}
	if c.Scheduler.Workers <= 0 {
		problems = append(problems, "SCHEDULER_WORKERS must be positive")
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("SCHEDULER_TIMEZONE %q is not a known zone", c.Scheduler.Timezone))
		}
	}
	if c.Mail.From == "" {
		problems = append(problems, "SMTP_FROM is required")
	}
	if c.RateLimit.FallbackEnabled && c.RateLimit.FallbackMax <= 0 {
		problems = append(problems, "RATE_LIMIT_FALLBACK_MAX must be positive when the fallback rule is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_management")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SYSTEM_NAME", "School Management System")
	v.SetDefault("REPORTS_RESULT_TTL", "168h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("ENABLE_SCHEDULED_REPORTS", true)
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_WORKERS", 2)

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "noreply@school.local")

	v.SetDefault("ENABLE_RATE_LIMIT", true)
	v.SetDefault("RATE_LIMIT_RULES", "")
	v.SetDefault("RATE_LIMIT_FALLBACK_ENABLED", true)
	v.SetDefault("RATE_LIMIT_FALLBACK_WINDOW", "1m")
	v.SetDefault("RATE_LIMIT_FALLBACK_MAX", 100)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", "1h")
	v.SetDefault("RATE_LIMIT_RETENTION", "168h")
	v.SetDefault("RATE_LIMIT_STATS_CACHE_TTL", "30s")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
