package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const envFile = ".env"

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Import   ImportConfig
	Admin    AdminConfig

	// Live re-reads settings that may change without a restart.
	Live *Live
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig seeds an administrator account on startup when both fields are set.
type AdminConfig struct {
	Username string
	Password string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the Redis-backed event list cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ImportConfig controls the timetable export import and its daily refresh.
type ImportConfig struct {
	Enabled          bool
	Encoding         string
	SourcePath       string
	RefreshTime      string
	TickInterval     time.Duration
	StoreTimeout     time.Duration
	ArchiveDir       string
	ArchiveRetention time.Duration
}

func Load() (*Config, error) {
	// Keys set by the real environment win over .env, even on live re-reads.
	pinned := map[string]string{}
	if value, ok := os.LookupEnv(keyRefreshTime); ok {
		pinned[keyRefreshTime] = value
	}

	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Import = ImportConfig{
		Enabled:          v.GetBool("IMPORT_ENABLED"),
		Encoding:         v.GetString("IMPORT_ENCODING"),
		SourcePath:       v.GetString("IMPORT_SOURCE_PATH"),
		RefreshTime:      v.GetString(keyRefreshTime),
		TickInterval:     parseDuration(v.GetString("IMPORT_TICK_INTERVAL"), time.Minute),
		StoreTimeout:     parseDuration(v.GetString("IMPORT_STORE_TIMEOUT"), 30*time.Second),
		ArchiveDir:       v.GetString("IMPORT_ARCHIVE_DIR"),
		ArchiveRetention: parseDuration(v.GetString("IMPORT_ARCHIVE_RETENTION"), 30*24*time.Hour),
	}

	cfg.Admin = AdminConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.Live = &Live{
		path:     envFile,
		pinned:   pinned,
		defaults: map[string]string{keyRefreshTime: cfg.Import.RefreshTime},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8088)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Local")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "infopanel")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("IMPORT_ENABLED", true)
	v.SetDefault("IMPORT_ENCODING", "latin1")
	v.SetDefault("IMPORT_SOURCE_PATH", "./input_files/Infopanel_new.csv")
	v.SetDefault(keyRefreshTime, "03:00")
	v.SetDefault("IMPORT_TICK_INTERVAL", "1m")
	v.SetDefault("IMPORT_STORE_TIMEOUT", "30s")
	v.SetDefault("IMPORT_ARCHIVE_DIR", "")
	v.SetDefault("IMPORT_ARCHIVE_RETENTION", "720h")
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
