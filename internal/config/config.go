// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	DBDSN string
	Port  int

	// External service endpoints. Empty values select the public instances.
	PhotonBaseURL    string
	NominatimBaseURL string
	OSRMBaseURL      string

	// CountryFilter restricts autocomplete candidates to one ISO country
	// code; empty disables filtering.
	CountryFilter string

	// SuggestWindow is the autocomplete debounce quiescence interval.
	SuggestWindow time.Duration

	// JWT authentication settings.
	JWTSecret       string // signing key for HS256; auth endpoints fail gracefully if unset
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Load reads and validates required environment variables.
// Returns a ConfigError for any missing or invalid value.
func Load() (*Config, error) {
	cfg := &Config{}

	dbDSN := os.Getenv("DB_DSN")
	if dbDSN == "" {
		return nil, &ConfigError{Field: "DB_DSN", Message: "required but not set"}
	}
	cfg.DBDSN = dbDSN

	cfg.PhotonBaseURL = os.Getenv("PHOTON_BASE_URL")
	cfg.NominatimBaseURL = os.Getenv("NOMINATIM_BASE_URL")
	cfg.OSRMBaseURL = os.Getenv("OSRM_BASE_URL")

	cfg.CountryFilter = os.Getenv("COUNTRY_FILTER")
	if cfg.CountryFilter == "" {
		cfg.CountryFilter = "US"
	}

	cfg.SuggestWindow = parseDurationEnv("SUGGEST_WINDOW", 150*time.Millisecond)

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	// Not required at startup; auth endpoints will fail gracefully if unset.

	cfg.AccessTokenTTL = parseDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = parseDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)

	portStr := os.Getenv("PORT")
	if portStr == "" {
		cfg.Port = 8080
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, &ConfigError{Field: "PORT", Message: "must be a valid integer"}
		}
		if port < 1 || port > 65535 {
			return nil, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
		}
		cfg.Port = port
	}

	return cfg, nil
}

// Validate re-checks required fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, &ConfigError{Field: "DB_DSN", Message: "cannot be empty"})
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.SuggestWindow <= 0 {
		errs = append(errs, &ConfigError{Field: "SUGGEST_WINDOW", Message: "must be positive"})
	}
	return errors.Join(errs...)
}

// parseDurationEnv reads a duration from an environment variable.
// Falls back to defaultVal if the variable is unset or unparseable.
// Accepts Go duration strings like "150ms", "15m", "168h".
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}
