package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"

	BusNone  = "none"
	BusNats  = "nats"
	BusKafka = "kafka"
)

type Config struct {
	Env      string
	LogLevel string

	Storage   string
	DBConnStr string
	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	SSLMode   string
	RedisHost string
	RedisPort string

	BusProvider  string
	NatsHost     string
	NatsPort     string
	KafkaBrokers []string

	HTTPPort    string
	GRPCEnabled bool
	GRPCPort    string
	APIToken    string

	MaxAttempts          int
	CompensationAttempts int
	RetryDelay           time.Duration
	CompensationTimeout  time.Duration
	RequireActiveOrigin  bool

	SeedDemo bool
}

// New loads .env (if present) and reads BENEFICIO_* variables.
// Postgres settings are only required with BENEFICIO_STORAGE=postgres, the same goes for redis and the bus providers.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("BENEFICIO_ENV", "production"),
		LogLevel: os.Getenv("BENEFICIO_LOG_LEVEL"),

		Storage:   strings.ToLower(getEnv("BENEFICIO_STORAGE", StorageMemory)),
		DBConnStr: os.Getenv("BENEFICIO_DB_CONN_STR"),
		DBHost:    getEnv("BENEFICIO_DB_HOST", "localhost"),
		DBPort:    getEnv("BENEFICIO_DB_PORT", "5432"),
		DBUser:    getEnv("BENEFICIO_DB_USER", "postgres"),
		DBPass:    getEnv("BENEFICIO_DB_PASSWORD", "postgres"),
		DBName:    getEnv("BENEFICIO_DB_NAME", "beneficio"),
		SSLMode:   getEnv("BENEFICIO_DB_SSLMODE", "disable"),
		RedisHost: os.Getenv("BENEFICIO_REDIS_HOST"),
		RedisPort: getEnv("BENEFICIO_REDIS_PORT", "6379"),

		BusProvider:  strings.ToLower(getEnv("BENEFICIO_BUS_PROVIDER", BusNone)),
		NatsHost:     os.Getenv("BENEFICIO_NATS_HOST"),
		NatsPort:     getEnv("BENEFICIO_NATS_PORT", "4222"),
		KafkaBrokers: getEnvList("BENEFICIO_KAFKA_BROKERS"),

		HTTPPort:    getEnv("BENEFICIO_HTTP_PORT", "8080"),
		GRPCEnabled: getEnvBool("BENEFICIO_GRPC_ENABLED", false),
		GRPCPort:    getEnv("BENEFICIO_GRPC_PORT", "9090"),
		APIToken:    os.Getenv("BENEFICIO_API_TOKEN"),

		MaxAttempts:          getEnvInt("BENEFICIO_MAX_ATTEMPTS", 3),
		CompensationAttempts: getEnvInt("BENEFICIO_COMPENSATION_ATTEMPTS", 5),
		RetryDelay:           getEnvDuration("BENEFICIO_RETRY_DELAY", 0),
		CompensationTimeout:  getEnvDuration("BENEFICIO_COMPENSATION_TIMEOUT", 5*time.Second),
		RequireActiveOrigin:  getEnvBool("BENEFICIO_REQUIRE_ACTIVE_ORIGIN", true),

		SeedDemo: getEnvBool("BENEFICIO_SEED_DEMO", false),
	}

	switch cfg.Storage {
	case StorageMemory, StoragePostgres:
	case StorageRedis:
		if cfg.RedisHost == "" {
			return nil, fmt.Errorf("missing required env for redis storage: BENEFICIO_REDIS_HOST")
		}
	default:
		return nil, fmt.Errorf("invalid storage %q, must be 'memory', 'postgres' or 'redis'", cfg.Storage)
	}

	switch cfg.BusProvider {
	case BusNone:
	case BusNats:
		if cfg.NatsHost == "" {
			return nil, fmt.Errorf("missing required env for nats bus: BENEFICIO_NATS_HOST")
		}
	case BusKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("missing required env for kafka bus: BENEFICIO_KAFKA_BROKERS")
		}
	default:
		return nil, fmt.Errorf("invalid bus provider %q, must be 'none', 'nats' or 'kafka'", cfg.BusProvider)
	}

	if cfg.GRPCEnabled && cfg.APIToken == "" {
		return nil, fmt.Errorf("BENEFICIO_API_TOKEN is required when BENEFICIO_GRPC_ENABLED=true")
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("BENEFICIO_MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.CompensationAttempts < 1 {
		return nil, fmt.Errorf("BENEFICIO_COMPENSATION_ATTEMPTS must be at least 1, got %d", cfg.CompensationAttempts)
	}

	return cfg, nil
}

// DSN returns BENEFICIO_DB_CONN_STR when set, otherwise a URL built from the individual parts
func (c *Config) DSN() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

func (c *Config) GRPCAddr() string {
	return ":" + c.GRPCPort
}

func (c *Config) TransferConfig() transfer.Config {
	return transfer.Config{
		MaxAttempts:          c.MaxAttempts,
		CompensationAttempts: c.CompensationAttempts,
		RetryDelay:           c.RetryDelay,
		CompensationTimeout:  c.CompensationTimeout,
		RequireActiveOrigin:  c.RequireActiveOrigin,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
