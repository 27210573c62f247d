package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DefaultSweepInterval spaces background expiry sweeps. Admin reads sweep
// on their own, so the periodic run only needs to catch up idle periods.
const DefaultSweepInterval = time.Hour

var loadEnvOnce sync.Once

// Config returns the value of an environment variable, loading .env on first use.
func Config(key string) string {
	loadEnvOnce.Do(func() {
		// a missing .env is fine, the process environment still applies
		_ = godotenv.Load(".env")
	})
	return os.Getenv(key)
}

type Settings struct {
	Port        string
	StoreDriver string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string
	TokenTTL  time.Duration

	RedisURL string

	SweepInterval time.Duration
	ReportCron    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AdminEmail   string

	AdminSeedEmail    string
	AdminSeedPassword string
	SeedSlots         int

	LogFile     string
	LogLevel    string
	CORSOrigins string
	LoginRate   string
}

// Load reads Settings from the environment and validates them.
func Load() (*Settings, error) {
	s := &Settings{
		Port:        getOr("PORT", "5000"),
		StoreDriver: getOr("STORE_DRIVER", StoreDriverPostgres),

		DBHost:     getOr("DB_HOST", "localhost"),
		DBUser:     Config("DB_USER"),
		DBPassword: Config("DB_PASSWORD"),
		DBName:     getOr("DB_NAME", "parking"),
		DBSSLMode:  getOr("DB_SSLMODE", "disable"),

		JWTSecret: Config("JWT_SECRET"),
		RedisURL:  Config("REDIS_URL"),

		ReportCron: getOr("REPORT_CRON", "0 7 * * *"),

		SMTPHost:     Config("SMTP_HOST"),
		SMTPUsername: Config("SMTP_USERNAME"),
		SMTPPassword: Config("SMTP_PASSWORD"),
		SMTPFrom:     Config("SMTP_FROM"),
		AdminEmail:   Config("ADMIN_EMAIL"),

		AdminSeedEmail:    getOr("ADMIN_SEED_EMAIL", "admin@example.com"),
		AdminSeedPassword: getOr("ADMIN_SEED_PASSWORD", "admin123"),

		LogFile:     Config("LOG_FILE"),
		LogLevel:    getOr("LOG_LEVEL", "info"),
		CORSOrigins: getOr("CORS_ORIGINS", "*"),
		LoginRate:   getOr("LOGIN_RATE", "10-1m"),
	}

	var err error
	if s.DBPort, err = intOr("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if s.SMTPPort, err = intOr("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if s.SeedSlots, err = intOr("SEED_SLOTS", 10); err != nil {
		return nil, err
	}
	if s.TokenTTL, err = durationOr("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if s.SweepInterval, err = durationOr("SWEEP_INTERVAL", DefaultSweepInterval); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch s.StoreDriver {
	case StoreDriverPostgres:
		if s.DBUser == "" {
			return fmt.Errorf("DB_USER is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", s.StoreDriver)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if s.SeedSlots < 0 {
		return fmt.Errorf("SEED_SLOTS must not be negative")
	}
	return nil
}

// DSN returns the postgres connection string.
func (s *Settings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName, s.DBSSLMode)
}

// MailEnabled reports whether SMTP delivery is configured.
func (s *Settings) MailEnabled() bool {
	return s.SMTPHost != "" && s.SMTPFrom != ""
}

func getOr(key, fallback string) string {
	if v := Config(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	v := Config(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := Config(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
