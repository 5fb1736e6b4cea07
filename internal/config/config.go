package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Catalog CatalogConfig
	Search  SearchConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	HealthInterval time.Duration
	Environment    string
}

type StoreConfig struct {
	// Backend is "redis" or "memory"
	Backend   string
	RedisAddr string
	KeyPrefix string
	KeyTTL    time.Duration
}

type CatalogConfig struct {
	// Driver is "mysql", "postgres" or "none"
	Driver       string
	DSN          string
	FetchTimeout time.Duration
}

type SearchConfig struct {
	Latency        time.Duration
	PaymentLatency time.Duration
}

// SessionConfig bounds the in-memory session cache. Evicted sessions are
// rehydrated from the store.
type SessionConfig struct {
	Limit   int
	IdleTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file, then environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":50051"),
			HealthInterval: getDuration("HEALTH_INTERVAL", 15*time.Second),
			Environment:    getEnv("ENVIRONMENT", "development"),
		},
		Store: StoreConfig{
			Backend:   strings.ToLower(getEnv("STORE_BACKEND", "redis")),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			KeyPrefix: getEnv("STORE_KEY_PREFIX", "storefront:"),
			KeyTTL:    getDuration("KEY_TTL", 0),
		},
		Catalog: CatalogConfig{
			Driver:       strings.ToLower(getEnv("CATALOG_DRIVER", "mysql")),
			DSN:          getEnv("CATALOG_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
			FetchTimeout: getDuration("CATALOG_FETCH_TIMEOUT", 5*time.Second),
		},
		Search: SearchConfig{
			Latency:        getDuration("SEARCH_LATENCY", 300*time.Millisecond),
			PaymentLatency: getDuration("PAYMENT_LATENCY", 2*time.Second),
		},
		Session: SessionConfig{
			Limit:   getInt("SESSION_LIMIT", 10000),
			IdleTTL: getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// RemoteConfigured reports whether a remote catalog should be dialled.
func (c CatalogConfig) RemoteConfigured() bool {
	return c.Driver != "none" && c.Driver != "" && c.DSN != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
