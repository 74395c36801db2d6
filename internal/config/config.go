package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	HTTPPort        string   `yaml:"http_port"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	MongoURI     string   `yaml:"mongo_uri"`
	MongoDB      string   `yaml:"mongo_db"`
	RedisAddr    string   `yaml:"redis_addr"`
	KafkaBrokers []string `yaml:"kafka_brokers"`

	Postgres Postgres `yaml:"postgres"`

	CatalogDBPath         string `yaml:"catalog_db_path"`
	CatalogMigrationsPath string `yaml:"catalog_migrations_path"`
	AccountMigrationsPath string `yaml:"account_migrations_path"`

	StateDir       string `yaml:"state_dir"`
	AuthServiceURL string `yaml:"auth_service_url"`
}

type Postgres struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"db_name"`
	MigrationsPath string `yaml:"migrations_path"`
}

// Load builds the configuration from defaults, an optional yaml file named by
// STOREFRONT_CONFIG, and env var overrides, in that order.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        "8080",
		RequestTimeout:  Duration(30 * time.Second),
		ShutdownTimeout: Duration(10 * time.Second),
		MongoURI:        "mongodb://localhost:27017",
		MongoDB:         "storefront",
		RedisAddr:       "localhost:6379",
		KafkaBrokers:    []string{"localhost:9092"},
		Postgres: Postgres{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "storefront",
			MigrationsPath: "./internal/order/migrations",
		},
		CatalogDBPath:         "./catalog.db",
		CatalogMigrationsPath: "./internal/catalog/migrations",
		AccountMigrationsPath: "./internal/account/migrations",
		StateDir:              "./state",
		AuthServiceURL:        "http://localhost:8090",
	}

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getEnv("MONGO_DB", cfg.MongoDB)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("POSTGRES_DB", cfg.Postgres.DBName)
	cfg.CatalogDBPath = getEnv("CATALOG_DB_PATH", cfg.CatalogDBPath)
	cfg.StateDir = getEnv("STATE_DIR", cfg.StateDir)
	cfg.AuthServiceURL = getEnv("AUTH_SERVICE_URL", cfg.AuthServiceURL)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
