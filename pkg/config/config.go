package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Aggregates AggregatesConfig
	Reconcile  ReconcileConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig holds the reconciliation policy knobs. The late cutoff and
// dedup window were hardcoded in the legacy screens; here they are policy.
type AttendanceConfig struct {
	DedupWindow  time.Duration
	LateCutoff   time.Duration // offset from local midnight
	Timezone     string
	MaxClockSkew time.Duration
	MaxEventAge  time.Duration
}

// AggregatesConfig tunes the division-day aggregate cache.
type AggregatesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	TodayTTL     time.Duration
	MaxTrendDays int
}

// ReconcileConfig governs the eager reconciliation workers that warm the
// aggregate cache after appends.
type ReconcileConfig struct {
	EagerEnabled bool
	Workers      int
	QueueSize    int
	MaxRetries   int
	RetryDelay   time.Duration
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
		if !errors.As(err, &notFound) {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	lateCutoff, err := ParseClock(v.GetString("LATE_CUTOFF"))
	if err != nil {
		return nil, fmt.Errorf("invalid LATE_CUTOFF: %w", err)
	}
	cfg.Attendance = AttendanceConfig{
		DedupWindow:  parseDuration(v.GetString("DEDUP_WINDOW"), 60*time.Second),
		LateCutoff:   lateCutoff,
		Timezone:     v.GetString("ATTENDANCE_TIMEZONE"),
		MaxClockSkew: parseDuration(v.GetString("EVENT_MAX_CLOCK_SKEW"), 5*time.Minute),
		MaxEventAge:  parseDuration(v.GetString("EVENT_MAX_AGE"), 365*24*time.Hour),
	}

	cfg.Aggregates = AggregatesConfig{
		CacheEnabled: v.GetBool("ENABLE_AGGREGATE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("AGGREGATE_CACHE_TTL"), 10*time.Minute),
		TodayTTL:     parseDuration(v.GetString("TODAY_CACHE_TTL"), 60*time.Second),
		MaxTrendDays: v.GetInt("MAX_TREND_DAYS"),
	}

	cfg.Reconcile = ReconcileConfig{
		EagerEnabled: v.GetBool("ENABLE_EAGER_RECONCILE"),
		Workers:      v.GetInt("RECONCILE_WORKERS"),
		QueueSize:    v.GetInt("RECONCILE_QUEUE_SIZE"),
		MaxRetries:   v.GetInt("RECONCILE_MAX_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DEDUP_WINDOW", "60s")
	v.SetDefault("LATE_CUTOFF", "08:30")
	v.SetDefault("ATTENDANCE_TIMEZONE", "UTC")
	v.SetDefault("EVENT_MAX_CLOCK_SKEW", "5m")
	v.SetDefault("EVENT_MAX_AGE", "8760h")

	v.SetDefault("ENABLE_AGGREGATE_CACHE", true)
	v.SetDefault("AGGREGATE_CACHE_TTL", "10m")
	v.SetDefault("TODAY_CACHE_TTL", "60s")
	v.SetDefault("MAX_TREND_DAYS", 92)

	v.SetDefault("ENABLE_EAGER_RECONCILE", true)
	v.SetDefault("RECONCILE_WORKERS", 2)
	v.SetDefault("RECONCILE_QUEUE_SIZE", 64)
	v.SetDefault("RECONCILE_MAX_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "1s")
}

// ParseClock converts an "HH:MM" wall-clock string into an offset from
// midnight.
func ParseClock(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
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
