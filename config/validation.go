package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines required configuration for each environment
type ConfigRequirements struct {
	RequiredFields  []string
	MinSecretLength int
}

var (
	// Environment-specific requirements
	requirements = map[Environment]ConfigRequirements{
		Development: {
			RequiredFields: []string{"server_port", "jwt_secret"},
		},
		Test: {
			RequiredFields: []string{"server_port", "jwt_secret"},
		},
		CI: {
			RequiredFields: []string{"server_port", "db_host", "db_name", "db_user", "db_password", "jwt_secret"},
		},
		Production: {
			RequiredFields:  []string{"server_port", "db_host", "db_name", "db_user", "db_password", "jwt_secret"},
			MinSecretLength: 32,
		},
	}
)

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()
	reqs := requirements[env]

	var errs []string

	values := map[string]string{
		"server_port": cfg.ServerPort,
		"db_host":     cfg.DBHost,
		"db_name":     cfg.DBName,
		"db_user":     cfg.DBUser,
		"db_password": cfg.DBPassword,
		"jwt_secret":  cfg.JWTSecret,
	}
	for _, field := range reqs.RequiredFields {
		// sqlite needs none of the connection settings
		if cfg.DBDriver == "sqlite" && strings.HasPrefix(field, "db_") {
			continue
		}
		if values[field] == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"}.Error())
		}
	}

	if reqs.MinSecretLength > 0 && cfg.JWTSecret != "" && len(cfg.JWTSecret) < reqs.MinSecretLength {
		errs = append(errs, ValidationError{
			Field:   "jwt_secret",
			Message: fmt.Sprintf("must be at least %d characters", reqs.MinSecretLength),
		}.Error())
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, ValidationError{Field: "db_driver", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)}.Error())
	}

	switch cfg.MediaStorage {
	case "local":
		if cfg.MediaRoot == "" {
			errs = append(errs, ValidationError{Field: "media_root", Message: "is required for local media storage"}.Error())
		}
	case "s3":
		if cfg.S3Bucket == "" {
			errs = append(errs, ValidationError{Field: "s3_bucket_name", Message: "is required for s3 media storage"}.Error())
		}
	default:
		errs = append(errs, ValidationError{Field: "media_storage", Message: fmt.Sprintf("unsupported storage %q", cfg.MediaStorage)}.Error())
	}

	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		errs = append(errs, ValidationError{Field: "page_size", Message: "must be between 1 and 100"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
