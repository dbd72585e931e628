// Package config loads EduSync client configuration from environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the client core.
type AppConfig struct {
	DataDir        string
	APIBaseURL     string
	LogLevel       string
	Environment    string
	HTTPPort       int
	MaxRetries     int           // retry cap for queued actions; 0 retries forever
	TranslationTTL time.Duration // cached translations older than this are expired
	ReplayBackoff  time.Duration // base delay between replay passes; 0 disables
	ReplayCronSpec string        // cron spec for periodic replay while online
	AuthToken      string        // bearer token for replayed requests
	StudentID      string        // signed-in student the progress shadows belong to
}

// Defaults that apply when the corresponding variable is unset.
const (
	DefaultMaxRetries        = 3
	DefaultTranslationTTLDay = 7
	DefaultReplayCronSpec    = "@every 1m"
	DefaultHTTPPort          = 8090
)

// Load reads configuration from environment variables and .env file
// (if present). godotenv will not override variables already set.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	var err error

	cfg.HTTPPort, err = intEnv("HTTP_PORT", DefaultHTTPPort)
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = intEnv("MAX_RETRIES", DefaultMaxRetries)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative")
	}

	ttlDays, err := intEnv("TRANSLATION_TTL_DAYS", DefaultTranslationTTLDay)
	if err != nil {
		return nil, err
	}
	if ttlDays <= 0 {
		return nil, fmt.Errorf("TRANSLATION_TTL_DAYS must be positive")
	}
	cfg.TranslationTTL = time.Duration(ttlDays) * 24 * time.Hour

	backoffSeconds, err := intEnv("REPLAY_BACKOFF_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	if backoffSeconds < 0 {
		return nil, fmt.Errorf("REPLAY_BACKOFF_SECONDS must not be negative")
	}
	cfg.ReplayBackoff = time.Duration(backoffSeconds) * time.Second

	cfg.ReplayCronSpec = os.Getenv("REPLAY_CRON_SPEC")
	if cfg.ReplayCronSpec == "" {
		cfg.ReplayCronSpec = DefaultReplayCronSpec
	}

	// The token may legitimately be empty; replay then aborts with an
	// auth error until one is provided.
	cfg.AuthToken = os.Getenv("AUTH_TOKEN")
	cfg.StudentID = os.Getenv("STUDENT_ID")
	if cfg.StudentID == "" {
		cfg.StudentID = "local"
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
