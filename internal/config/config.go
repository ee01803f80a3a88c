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
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Mail      MailConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SchedulerConfig drives the daily background jobs. Timezone is the fixed
// operating timezone every date computation is anchored to.
type SchedulerConfig struct {
	Enabled          bool
	Timezone         string
	TargetTime       string
	ToleranceSeconds int
	PollSeconds      int
}

// MailConfig holds outbound notification settings. An empty SMTPAddr
// downgrades the notifier to log-only.
type MailConfig struct {
	EmailFrom       string
	SMTPAddr        string
	SMTPUsername    string
	SMTPPassword    string
	DigestRecipient string
	WebhookURL      string
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
			Name:                  getEnv("APP_NAME", "sla-tracker"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
			Timezone:         getEnv("SCHEDULER_TIMEZONE", "America/Lima"),
			TargetTime:       getEnv("SCHEDULER_TARGET_TIME", "00:00"),
			ToleranceSeconds: getEnvAsInt("SCHEDULER_TOLERANCE_SECONDS", 90),
			PollSeconds:      getEnvAsInt("SCHEDULER_POLL_SECONDS", 60),
		},
		Mail: MailConfig{
			EmailFrom:       getEnv("MAIL_FROM", "noreply@example.com"),
			SMTPAddr:        os.Getenv("MAIL_SMTP_ADDR"),
			SMTPUsername:    os.Getenv("MAIL_SMTP_USERNAME"),
			SMTPPassword:    os.Getenv("MAIL_SMTP_PASSWORD"),
			DigestRecipient: os.Getenv("MAIL_DIGEST_RECIPIENT"),
			WebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if _, err := cfg.Scheduler.Target(); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TARGET_TIME: %w", err)
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

// Target parses the target time-of-day as an offset from midnight.
func (s SchedulerConfig) Target() (time.Duration, error) {
	parsed, err := time.Parse("15:04", s.TargetTime)
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

// Tolerance returns the trigger window half-width.
func (s SchedulerConfig) Tolerance() time.Duration {
	if s.ToleranceSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(s.ToleranceSeconds) * time.Second
}

// PollInterval returns the scheduler tick interval.
func (s SchedulerConfig) PollInterval() time.Duration {
	if s.PollSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.PollSeconds) * time.Second
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
