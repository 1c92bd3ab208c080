package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zonas horarias embebidas para TASK_TIMEZONE

	"github.com/joho/godotenv"
)

// Drivers de almacenamiento soportados.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
	StoreMemory   = "memory"
	StoreFile     = "file"
)

type Config struct {
	StoreDriver string
	SQLitePath  string
	TasksFile   string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	RedisAddr string
	CacheTTL  time.Duration

	UseKafka     bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	EventTimeout time.Duration

	ClickHouseAddr string
	ClickHouseDB   string

	Location *time.Location
	HTTPPort string
	LogLevel string
}

// LoadConfig lee la configuración del entorno; si existe un .env lo carga antes.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		SQLitePath:     getEnv("SQLITE_PATH", "./tasks.db"),
		TasksFile:      getEnv("TASKS_FILE", "./tasks.json"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "taskmgmt"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "tasks-events"),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "taskmgmt-analytics"),
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "default"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.UseKafka, err = parseBool("USE_KAFKA", false); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EventTimeout, err = parseDuration("EVENT_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}

	tz := getEnv("TASK_TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TASK_TIMEZONE %q: %w", tz, err)
	}

	switch cfg.StoreDriver {
	case StoreSQLite, StoreMemory, StoreMongoDB, StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
