package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ConfigFileEnv = "STOREFRONT_CONFIG"

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendMongo    Backend = "mongo"
)

type Config struct {
	StoreBackend Backend `mapstructure:"STORE_BACKEND"`
	SQLitePath   string  `mapstructure:"SQLITE_PATH"`

	DbHost string `mapstructure:"DB_HOST"`
	DbPort int    `mapstructure:"DB_PORT"`
	DbUser string `mapstructure:"DB_USER"`
	DbPas  string `mapstructure:"DB_PASSWORD"`
	DbName string `mapstructure:"DB_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	CartCacheEnabled bool          `mapstructure:"CART_CACHE_ENABLED"`
	CartCacheTTL     time.Duration `mapstructure:"CART_CACHE_TTL"`

	KafkaBrokers     []string `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic string   `mapstructure:"ORDER_EVENTS_TOPIC"`

	AuthLatency             time.Duration `mapstructure:"AUTH_LATENCY"`
	StrictStatusTransitions bool          `mapstructure:"STRICT_STATUS_TRANSITIONS"`
	BreakerEnabled          bool          `mapstructure:"BREAKER_ENABLED"`

	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogPretty      bool   `mapstructure:"LOG_PRETTY"`
	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
}

var defaults = map[string]any{
	"STORE_BACKEND":             string(BackendSQLite),
	"SQLITE_PATH":               "storefront.db",
	"DB_HOST":                   "localhost",
	"DB_PORT":                   5432,
	"DB_USER":                   "postgres",
	"DB_PASSWORD":               "postgres",
	"DB_NAME":                   "storefront",
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"MONGO_URI":                 "mongodb://localhost:27017",
	"MONGO_DB_NAME":             "storefront",
	"CART_CACHE_ENABLED":        false,
	"CART_CACHE_TTL":            "15m",
	"KAFKA_BROKERS":             []string{},
	"ORDER_EVENTS_TOPIC":        "order-events",
	"AUTH_LATENCY":              "1s",
	"STRICT_STATUS_TRANSITIONS": false,
	"BREAKER_ENABLED":           true,
	"LOG_LEVEL":                 "info",
	"LOG_PRETTY":                false,
	"TRACING_ENABLED":           true,
}

// Load reads configuration from the environment on top of defaults. When
// STOREFRONT_CONFIG names a file (.env, yaml, json or toml) its values sit
// between the defaults and the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString(ConfigFileEnv); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cf.KafkaBrokers = splitBrokers(cf.KafkaBrokers)

	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.CartCacheEnabled && c.CartCacheTTL <= 0 {
		return fmt.Errorf("CART_CACHE_TTL must be positive, got %s", c.CartCacheTTL)
	}
	if c.AuthLatency < 0 {
		return fmt.Errorf("AUTH_LATENCY must not be negative, got %s", c.AuthLatency)
	}
	return nil
}

// splitBrokers accepts both a list and comma separated entries within it.
func splitBrokers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, b := range strings.Split(entry, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}
