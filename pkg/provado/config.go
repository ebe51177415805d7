// Package provado wires the exam-practice REST API: configuration, command
// parsing, the HTTP surface, and authentication on top of the store.
package provado

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provado/provado/pkg/store"
)

// Config is the application configuration. Values come from an optional
// YAML file first, then the environment; environment wins.
type Config struct {
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`
	JWTSecret   string `yaml:"jwtSecret"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig is the SurrealDB connection block.
type DatabaseConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Production reports whether the app runs with production behavior, which
// gates automatic migrations on startup.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// ConnConfig converts the database block for the store layer.
func (c *Config) ConnConfig() store.ConnConfig {
	return store.ConnConfig{
		URL:       c.Database.URL,
		Namespace: c.Database.Namespace,
		Database:  c.Database.Database,
		Username:  c.Database.Username,
		Password:  c.Database.Password,
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// and the environment, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Environment: "development",
		Port:        "8080",
		Database: DatabaseConfig{
			URL:       "ws://localhost:8000/rpc",
			Namespace: "provado",
			Database:  "provado",
			Username:  "root",
			Password:  "root",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	overrideFromEnv(&cfg.Environment, "ENVIRONMENT")
	overrideFromEnv(&cfg.Port, "PORT")
	overrideFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	overrideFromEnv(&cfg.Database.URL, "SURREALDB_URL")
	overrideFromEnv(&cfg.Database.Namespace, "SURREALDB_NS")
	overrideFromEnv(&cfg.Database.Database, "SURREALDB_DB")
	overrideFromEnv(&cfg.Database.Username, "SURREALDB_USER")
	overrideFromEnv(&cfg.Database.Password, "SURREALDB_PASS")

	if cfg.JWTSecret == "" && cfg.Production() {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}

func overrideFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
