package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendS3         = "s3"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	DBMaxConns          int32
	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	StorageBackend      string
	StoragePath         string
	StorageBaseURL      string
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	NATSURL             string
	NATSSubjectPrefix   string
	GeoIPDBPath         string
	CORSOrigins         []string
	MaxUploadBytes      int64
	GenerationWorkers   int
	GenerationDelay     time.Duration
	GenerationInline    bool // run the worker pool inside the API process
	ModerationBlocklist []string
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8000")
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                port,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AccessTokenTTL:      time.Minute * time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 60)),
		RefreshTokenTTL:     time.Hour * time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 24*7)),
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendFilesystem)),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:      getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3Region:            getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		NATSURL:             os.Getenv("NATS_URL"),
		NATSSubjectPrefix:   getEnv("NATS_SUBJECT_PREFIX", "outfitlens.generations"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:         getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		GenerationWorkers:   getEnvInt("GENERATION_WORKERS", 2),
		GenerationDelay:     time.Millisecond * time.Duration(getEnvInt("GENERATION_DELAY_MS", 3000)),
		GenerationInline:    getEnvBool("GENERATION_INLINE", true),
		ModerationBlocklist: getEnvList("MODERATION_BLOCKLIST", nil),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageBackend {
	case StorageBackendFilesystem:
	case StorageBackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.DBMaxConns < 1 {
		cfg.DBMaxConns = 1
	}
	if cfg.GenerationWorkers < 1 {
		cfg.GenerationWorkers = 1
	}

	return cfg, nil
}

// UsesDatabase reports whether repositories should be backed by Postgres.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
