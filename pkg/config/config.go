package config

import (
	"errors"
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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Cache         CacheConfig
	Outbox        OutboxConfig
	History       HistoryConfig
	Notifications NotificationConfig
	Bells         BellConfig
	Heuristics    HeuristicsConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret of the identity provider that issues access tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig controls snapshot caching in Redis.
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
}

// OutboxConfig tunes deferred snapshot persistence.
type OutboxConfig struct {
	Enabled    bool
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// HistoryConfig bounds the undo/redo stack kept per half-year.
type HistoryConfig struct {
	Depth int
}

// NotificationConfig configures delivery of substitution summaries.
type NotificationConfig struct {
	Enabled        bool
	Workers        int
	MaxRetries     int
	TelegramToken  string
	SendgridAPIKey string
	FromEmail      string
	FromName       string
}

// BellConfig configures the live period clock.
type BellConfig struct {
	Timezone        string
	RefreshInterval time.Duration
	SchoolDays      []int
}

// HeuristicsConfig exposes the empirically tuned ranking and duty constants.
type HeuristicsConfig struct {
	RankAbsentPenalty     int
	RankBusyPenalty       int
	RankSpecialistBonus   int
	DutyZoneLessonWeight  int
	DutyPresenceBonus     int
	DutyPresenceThreshold int
	DutyReusePenalty      int
	DutyDisqualifiedScore int
	DutyQualifyThreshold  int
	BellMaxBreakMinutes   int
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		MigrateOnStart:  v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AllowedHeaders: splitAndTrim(v.GetString("ALLOWED_HEADERS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:   v.GetBool("ENABLE_SNAPSHOT_CACHE"),
		TTL:       parseDuration(v.GetString("SNAPSHOT_CACHE_TTL"), 10*time.Minute),
		KeyPrefix: v.GetString("SNAPSHOT_CACHE_PREFIX"),
	}

	cfg.Outbox = OutboxConfig{
		Enabled:    v.GetBool("ENABLE_OUTBOX"),
		BufferSize: v.GetInt("OUTBOX_BUFFER_SIZE"),
		MaxRetries: v.GetInt("OUTBOX_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("OUTBOX_RETRY_DELAY"), 2*time.Second),
	}

	cfg.History = HistoryConfig{Depth: v.GetInt("HISTORY_DEPTH")}

	cfg.Notifications = NotificationConfig{
		Enabled:        v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:        v.GetInt("NOTIFY_WORKERS"),
		MaxRetries:     v.GetInt("NOTIFY_MAX_RETRIES"),
		TelegramToken:  v.GetString("TELEGRAM_TOKEN"),
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromEmail:      v.GetString("NOTIFY_FROM_EMAIL"),
		FromName:       v.GetString("NOTIFY_FROM_NAME"),
	}

	cfg.Bells = BellConfig{
		Timezone:        v.GetString("BELL_TIMEZONE"),
		RefreshInterval: parseDuration(v.GetString("BELL_REFRESH_INTERVAL"), time.Minute),
		SchoolDays:      splitInts(v.GetString("SCHOOL_DAYS")),
	}

	cfg.Heuristics = HeuristicsConfig{
		RankAbsentPenalty:     v.GetInt("RANK_ABSENT_PENALTY"),
		RankBusyPenalty:       v.GetInt("RANK_BUSY_PENALTY"),
		RankSpecialistBonus:   v.GetInt("RANK_SPECIALIST_BONUS"),
		DutyZoneLessonWeight:  v.GetInt("DUTY_ZONE_LESSON_WEIGHT"),
		DutyPresenceBonus:     v.GetInt("DUTY_PRESENCE_BONUS"),
		DutyPresenceThreshold: v.GetInt("DUTY_PRESENCE_THRESHOLD"),
		DutyReusePenalty:      v.GetInt("DUTY_REUSE_PENALTY"),
		DutyDisqualifiedScore: v.GetInt("DUTY_DISQUALIFIED_SCORE"),
		DutyQualifyThreshold:  v.GetInt("DUTY_QUALIFY_THRESHOLD"),
		BellMaxBreakMinutes:   v.GetInt("BELL_MAX_BREAK_MINUTES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_MIGRATE_ON_START", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ALLOWED_HEADERS", "Authorization,Content-Type,X-Requested-With,X-Request-ID")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SNAPSHOT_CACHE", false)
	v.SetDefault("SNAPSHOT_CACHE_TTL", "10m")
	v.SetDefault("SNAPSHOT_CACHE_PREFIX", "timetable")

	v.SetDefault("ENABLE_OUTBOX", true)
	v.SetDefault("OUTBOX_BUFFER_SIZE", 64)
	v.SetDefault("OUTBOX_MAX_RETRIES", 5)
	v.SetDefault("OUTBOX_RETRY_DELAY", "2s")

	v.SetDefault("HISTORY_DEPTH", 20)

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("NOTIFY_FROM_EMAIL", "timetable@school.local")
	v.SetDefault("NOTIFY_FROM_NAME", "Timetable")

	v.SetDefault("BELL_TIMEZONE", "Local")
	v.SetDefault("BELL_REFRESH_INTERVAL", "1m")
	v.SetDefault("SCHOOL_DAYS", "1,2,3,4,5")

	v.SetDefault("RANK_ABSENT_PENALTY", -1000)
	v.SetDefault("RANK_BUSY_PENALTY", -100)
	v.SetDefault("RANK_SPECIALIST_BONUS", 50)
	v.SetDefault("DUTY_ZONE_LESSON_WEIGHT", 10)
	v.SetDefault("DUTY_PRESENCE_BONUS", 5)
	v.SetDefault("DUTY_PRESENCE_THRESHOLD", 4)
	v.SetDefault("DUTY_REUSE_PENALTY", -2000)
	v.SetDefault("DUTY_DISQUALIFIED_SCORE", -9999)
	v.SetDefault("DUTY_QUALIFY_THRESHOLD", -500)
	v.SetDefault("BELL_MAX_BREAK_MINUTES", 60)
}

// Location resolves the configured bell timezone, falling back to local time.
func (b BellConfig) Location() *time.Location {
	if b.Timezone == "" || strings.EqualFold(b.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file")
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

func splitInts(raw string) []int {
	var result []int
	for _, part := range splitAndTrim(raw) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 7 {
			continue
		}
		result = append(result, n)
	}
	return result
}
