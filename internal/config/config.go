// Package config loads the recorder/tagger's Settings collaborator
// (external interfaces, section 6) from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nega0/pianobarfly/internal/constants"
)

// Config is the Settings collaborator the recorder reads at init.
type Config struct {
	RecordingRoot    string
	FileNameTemplate string
	UseSpaces        bool
	EmbedCover       bool
	Proxy            string
	ControlProxy     string
	LogLevel         string
	LogFormat        string
	HTTPTimeout      time.Duration
	RetryCount       int
	RetryBase        time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(home, "Music", "pianobarfly")

	return &Config{
		RecordingRoot:    getEnv("AUDIO_FILE_DIR", defaultRoot),
		FileNameTemplate: getEnv("AUDIO_FILE_NAME", constants.DefaultFileNameTemplate),
		UseSpaces:        getEnvBool("USE_SPACES", false),
		EmbedCover:       getEnvBool("EMBED_COVER", true),
		Proxy:            getEnv("PROXY", ""),
		ControlProxy:     getEnv("CONTROL_PROXY", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", constants.DefaultHTTPTimeout),
		RetryCount:       constants.DefaultRetryCount,
		RetryBase:        constants.DefaultRetryBase,
	}
}

// Validate validates the configuration and returns all violations at once.
func (c *Config) Validate() error {
	var errs []string

	if c.RecordingRoot == "" {
		errs = append(errs, "AUDIO_FILE_DIR cannot be empty")
	}

	if c.FileNameTemplate == "" {
		errs = append(errs, "AUDIO_FILE_NAME cannot be empty")
	}

	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			errs = append(errs, fmt.Sprintf("PROXY is not a valid URL: %s", c.Proxy))
		}
	}

	if c.ControlProxy != "" {
		if _, err := url.Parse(c.ControlProxy); err != nil {
			errs = append(errs, fmt.Sprintf("CONTROL_PROXY is not a valid URL: %s", c.ControlProxy))
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, "HTTP_TIMEOUT must be greater than 0")
	}

	if c.RetryCount < 0 {
		errs = append(errs, "retry count must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
