package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Auth AuthConfig

	Hotel HotelConfig

	// RedisURL enables the shared API key cache when set (redis://host:6379/0).
	RedisURL string

	NATS NATSConfig

	Storage StorageConfig

	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	// JWTSecret signs session tokens issued by /api/auth/login.
	JWTSecret   string
	JWTTTL      time.Duration
	KeyCacheTTL time.Duration
}

type HotelConfig struct {
	// Timezone is used to interpret naive datetimes ("2025-01-10 14:00:00") and
	// to render gantt segments.
	Timezone        string
	DefaultCurrency string
	APIVersion      string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// StorageConfig configures the S3-compatible bucket for booking documents.
// When Bucket is empty documents are kept in Postgres.
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "hotelapi"),
			User:     env("DB_USER", "hotelapi"),
			Password: env("DB_PASSWORD", "hotelapi"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			JWTTTL:      envDuration("JWT_TTL", 12*time.Hour),
			KeyCacheTTL: envDuration("API_KEY_CACHE_TTL", 5*time.Minute),
		},
		Hotel: HotelConfig{
			Timezone:        env("HOTEL_TIMEZONE", "UTC"),
			DefaultCurrency: strings.ToUpper(env("DEFAULT_CURRENCY", "PEN")),
			APIVersion:      env("API_VERSION", "1.0.0"),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: env("NATS_SUBJECT_PREFIX", "hotel"),
		},
		Storage: StorageConfig{
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			Region:       env("S3_REGION", "us-east-1"),
			Bucket:       os.Getenv("S3_BUCKET"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			UsePathStyle: envBool("S3_USE_PATH_STYLE", true),
		},
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

// Location resolves Hotel.Timezone, falling back to UTC for unknown zones.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Hotel.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare integers are seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
