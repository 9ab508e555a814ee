package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by the persistence bootstrap.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App           AppConfig
	Store         StoreConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Lock          LockConfig
	Logger        LoggerConfig
	Auth          AuthConfig
	Notification  NotificationConfig
	Sweep         SweepConfig
	KnowledgeBase KnowledgeBaseConfig
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

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
	// SQLDSN is used by the sqlite and mysql drivers.
	SQLDSN                string
	TicketCacheSize       int
	TicketCacheTTLSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// StatementTimeoutMs caps every statement server side; zero leaves the
	// server default.
	StatementTimeoutMs int
	ConnectTimeoutSec  int
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig tunes per-conversation locking.
type LockConfig struct {
	TTLSeconds     int
	WaitTimeoutSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
	// Output is a zap sink path; empty means stdout.
	Output string
}

// AuthConfig defines admin authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminUsername         string
	// AdminPasswordHash is a bcrypt hash; when empty the admin routes are open.
	AdminPasswordHash string
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	SlackWebhookURL     string
	DiscordWebhookID    string
	DiscordWebhookToken string
	QueueSize           int
}

// SweepConfig drives the stale conversation sweeper.
type SweepConfig struct {
	Schedule             string
	ConversationTTLHours int
}

// KnowledgeBaseConfig points at an optional YAML seed file.
type KnowledgeBaseConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", defaultDriver()))
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMySQL, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "bi-triage-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver:                driver,
			SQLDSN:                getEnv("SQL_DSN", "file:bi_tickets.db?_busy_timeout=5000"),
			TicketCacheSize:       getEnvAsInt("TICKET_CACHE_SIZE", 1024),
			TicketCacheTTLSeconds: getEnvAsInt("TICKET_CACHE_TTL_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			MaxConns:           int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:           int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:      getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			StatementTimeoutMs: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
			ConnectTimeoutSec:  getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Lock: LockConfig{
			TTLSeconds:     getEnvAsInt("LOCK_TTL_SECONDS", 10),
			WaitTimeoutSec: getEnvAsInt("LOCK_WAIT_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: os.Getenv("LOG_OUTPUT"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Notification: NotificationConfig{
			SlackWebhookURL:     os.Getenv("NOTIFY_SLACK_WEBHOOK_URL"),
			DiscordWebhookID:    os.Getenv("NOTIFY_DISCORD_WEBHOOK_ID"),
			DiscordWebhookToken: os.Getenv("NOTIFY_DISCORD_WEBHOOK_TOKEN"),
			QueueSize:           getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
		},
		Sweep: SweepConfig{
			Schedule:             getEnv("SWEEP_SCHEDULE", "@every 1h"),
			ConversationTTLHours: getEnvAsInt("SWEEP_CONVERSATION_TTL_HOURS", 72),
		},
		KnowledgeBase: KnowledgeBaseConfig{
			File: os.Getenv("KNOWLEDGE_BASE_FILE"),
		},
	}

	if cfg.Store.Driver == DriverPostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=%s", DriverPostgres)
	}

	return cfg, nil
}

// defaultDriver prefers postgres when a DSN is present, otherwise a local sqlite file.
func defaultDriver() string {
	if os.Getenv("POSTGRES_DSN") != "" {
		return DriverPostgres
	}
	return DriverSQLite
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

// TicketCacheTTL bounds how stale a cached ticket lookup may be. Zero
// disables the cache.
func (s StoreConfig) TicketCacheTTL() time.Duration {
	if s.TicketCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TicketCacheTTLSeconds) * time.Second
}

// TTL returns how long a conversation lock is held before it expires.
func (l LockConfig) TTL() time.Duration {
	if l.TTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(l.TTLSeconds) * time.Second
}

// WaitTimeout bounds how long a caller waits for a busy conversation.
func (l LockConfig) WaitTimeout() time.Duration {
	if l.WaitTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(l.WaitTimeoutSec) * time.Second
}

// AccessTokenTTL returns the admin token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// AdminEnabled reports whether admin routes require a login.
func (a AuthConfig) AdminEnabled() bool {
	return a.AdminPasswordHash != ""
}

// ConversationTTL returns the idle age after which unfinished conversations are swept.
func (s SweepConfig) ConversationTTL() time.Duration {
	if s.ConversationTTLHours <= 0 {
		return 0
	}
	return time.Duration(s.ConversationTTLHours) * time.Hour
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
