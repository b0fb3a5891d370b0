package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string `koanf:"server_port"`
	ServerHost string `koanf:"server_host"`

	// Database configuration
	DBDriver   string `koanf:"db_driver"`
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_ssl_mode"`
	DBPath     string `koanf:"db_path"`

	// Redis configuration. Redis is optional: without it rate limiting and
	// token revocation are disabled.
	RedisHost     string `koanf:"redis_host"`
	RedisPort     string `koanf:"redis_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisURL      string `koanf:"redis_url"`

	// JWT configuration
	JWTSecret   string        `koanf:"jwt_secret"`
	JWTTokenTTL time.Duration `koanf:"jwt_token_ttl"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	CORSOrigins []string `koanf:"cors_origins"`

	// Recipe images: "local" writes under MediaRoot and serves it at MediaURL,
	// "s3" uploads to S3Bucket.
	MediaStorage string `koanf:"media_storage"`
	MediaRoot    string `koanf:"media_root"`
	MediaURL     string `koanf:"media_url"`
	S3Bucket     string `koanf:"s3_bucket_name"`
	AWSRegion    string `koanf:"aws_region"`

	PageSize      int    `koanf:"page_size"`
	MigrationsDir string `koanf:"migrations_dir"`
}

// defaultConfig returns the values every environment starts from.
func defaultConfig() *Config {
	return &Config{
		ServerPort:    "8080",
		ServerHost:    "0.0.0.0",
		DBDriver:      "postgres",
		DBHost:        "localhost",
		DBPort:        "5432",
		DBName:        "foodgram",
		DBSSLMode:     "disable",
		DBPath:        "foodgram.db",
		RedisPort:     "6379",
		JWTTokenTTL:   24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
		CORSOrigins:   []string{"http://localhost:3000"},
		MediaStorage:  "local",
		MediaRoot:     "media",
		MediaURL:      "/media",
		S3Bucket:      "foodgram-recipe-images",
		PageSize:      6,
		MigrationsDir: "migrations",
	}
}

// sliceConfigPaths are read from the environment as comma-separated lists.
var sliceConfigPaths = []string{"cors_origins"}

// secretKeys are read from SECRETS_DIR when present and override every other layer.
var secretKeys = []string{
	"db_user",
	"db_password",
	"jwt_secret",
	"redis_password",
	"redis_url",
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment variables and Docker secrets, in that order of precedence.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	k, err := load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(environment Environment) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// CI has no secrets mount; GitHub Actions hands secrets over as TEST_* variables.
	if environment == CI {
		for _, name := range secretKeys {
			if value := os.Getenv("TEST_" + strings.ToUpper(name)); value != "" {
				if err := k.Set(name, value); err != nil {
					return nil, err
				}
			}
		}
	} else {
		for _, name := range secretKeys {
			if value := readSecret(name); value != "" {
				if err := k.Set(name, value); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	return k, nil
}

// processSliceFields splits comma-separated environment values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// DSN returns the connection string for the configured database driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
