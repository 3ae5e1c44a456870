package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultAdminPassword is the documented fallback secret used when
// ADMIN_PASSWORD is not configured. A known weakness carried over from the
// original deployment, not a recommendation.
const DefaultAdminPassword = "CLC2026admin"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Session  SessionConfig
	Uploads  UploadsConfig
	Renderer RendererConfig
	Calendar CalendarConfig
	CORS     CORSConfig
	Log      LogConfig
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

// AdminConfig holds the shared admin secret gating mutations.
// Password may be a plaintext secret or a bcrypt hash.
type AdminConfig struct {
	Password string
}

// SessionConfig governs admin session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// UploadsConfig bounds what the upload surface accepts.
type UploadsConfig struct {
	MaxFileSizeBytes int64
	DefaultUploader  string
}

// RendererConfig tunes PDF page rasterization.
type RendererConfig struct {
	DPI      float64
	MaxPages int
	Timeout  time.Duration
	CacheTTL time.Duration
	Prewarm  bool
}

// CalendarConfig carries the school year term table as "n:YYYY-MM-DD:weeks" tuples.
type CalendarConfig struct {
	Terms []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.Admin = AdminConfig{
		Password: v.GetString("ADMIN_PASSWORD"),
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = DefaultAdminPassword
	}

	cfg.Session = SessionConfig{
		Secret: v.GetString("SESSION_SECRET"),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		MaxFileSizeBytes: maxUpload,
		DefaultUploader:  v.GetString("UPLOAD_DEFAULT_UPLOADER"),
	}

	cfg.Renderer = RendererConfig{
		DPI:      v.GetFloat64("RENDER_DPI"),
		MaxPages: v.GetInt("RENDER_MAX_PAGES"),
		Timeout:  parseDuration(v.GetString("RENDER_TIMEOUT"), 15*time.Second),
		CacheTTL: parseDuration(v.GetString("RENDER_CACHE_TTL"), 12*time.Hour),
		Prewarm:  v.GetBool("RENDER_PREWARM"),
	}

	cfg.Calendar = CalendarConfig{
		Terms: splitAndTrim(v.GetString("CALENDAR_TERMS")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
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
	v.SetDefault("DB_NAME", "clc_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "12h")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("UPLOAD_DEFAULT_UPLOADER", "Admin")

	v.SetDefault("RENDER_DPI", 150)
	v.SetDefault("RENDER_MAX_PAGES", 20)
	v.SetDefault("RENDER_TIMEOUT", "15s")
	v.SetDefault("RENDER_CACHE_TTL", "12h")
	v.SetDefault("RENDER_PREWARM", true)

	// SA school calendar 2026.
	v.SetDefault("CALENDAR_TERMS", "1:2026-01-26:11,2:2026-04-27:10,3:2026-07-20:10,4:2026-10-12:9")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
