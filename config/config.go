package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// CORSOrigins is the list of web UI origins allowed to call the API.
	CORSOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	PublicURL string

	RiskySweepInterval time.Duration
	Location           *time.Location
	NotifyWorkers      int
}

// R2Enabled reports whether evidence uploads are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2BucketName != ""
}

// SMTPEnabled reports whether outgoing email is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	smtpPort, err := intFromEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	sweepInterval := 24 * time.Hour
	if v := os.Getenv("RISKY_SWEEP_INTERVAL"); v != "" {
		sweepInterval, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RISKY_SWEEP_INTERVAL environment variable: %w", err)
		}
		if sweepInterval < 0 {
			return nil, fmt.Errorf("RISKY_SWEEP_INTERVAL must not be negative, got %s", sweepInterval)
		}
	}

	loc := time.Local
	if tz := os.Getenv("LADDER_TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid LADDER_TIMEZONE environment variable: %w", err)
		}
	}

	workers, err := intFromEnv("NOTIFY_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", workers)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		CORSOrigins:        splitList(os.Getenv("CORS_ORIGINS")),
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           smtpPort,
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
		PublicURL:          strings.TrimSuffix(os.Getenv("PUBLIC_URL"), "/"),
		RiskySweepInterval: sweepInterval,
		Location:           loc,
		NotifyWorkers:      workers,
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
