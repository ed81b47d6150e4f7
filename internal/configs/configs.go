/*
Package configs is responsible for loading and parsing the relay's configuration.

All settings come from environment variables: the running environment, listen
port, CORS allowed origins, the secret used to verify identity tokens issued by
the auth service, the tracker database DSN used for project membership checks,
and whether tokenless connections are admitted.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the relay to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// AllowAnonymous admits websocket connections that carry no identity token.
	// Such connections rely on the caller-supplied identity in join events.
	AllowAnonymous bool

	// Database Settings. An empty DSN disables membership checks (development only).
	DatabaseDSN string
}

// LoadConfig reads and parses the relay configuration from environment variables.
// It provides development defaults and validates production-critical settings.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "5004"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// JWTSecret
	jwtSecret := os.Getenv("JWT_SECRET")
	if cfg.Environment == "development" {
		if jwtSecret == "" {
			jwtSecret = "your_default_insecure_secret_key_change_me"
		}
	} else {
		if jwtSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
	}
	cfg.JWTSecret = jwtSecret

	// AllowAnonymous defaults to true only in development.
	anonStr := os.Getenv("ALLOW_ANONYMOUS")
	if anonStr == "" {
		cfg.AllowAnonymous = cfg.Environment == "development"
	} else {
		allowAnonymous, err := strconv.ParseBool(anonStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOW_ANONYMOUS environment variable: %w", err)
		}
		cfg.AllowAnonymous = allowAnonymous
	}

	// --- Database Settings ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")
	if cfg.DatabaseDSN == "" && cfg.Environment != "development" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required in %s environment for membership checks", cfg.Environment)
	}

	return cfg, nil
}
