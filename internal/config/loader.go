package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskmate.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if cfg.Redmine.PublicURL == "" {
		cfg.Redmine.PublicURL = cfg.Redmine.URL
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TASKMATE_PORT")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.BaseURL, "GEMINI_BASE_URL")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setFloat64(&cfg.Gemini.Temperature, "GEMINI_TEMPERATURE")
	setString(&cfg.Redmine.URL, "REDMINE_URL")
	setString(&cfg.Redmine.PublicURL, "REDMINE_PUBLIC_URL")
	setString(&cfg.Redmine.APIKey, "REDMINE_API_KEY")
	setInt(&cfg.Redmine.ProjectID, "REDMINE_PROJECT_ID")
	setString(&cfg.Redmine.OpenStatusIDs, "REDMINE_OPEN_STATUS_IDS")
	setString(&cfg.Line.ChannelAccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	setString(&cfg.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	setString(&cfg.Notify.UserID, "NOTIFY_USER_ID")
	setInt(&cfg.Dispatch.MaxConcurrent, "TASKMATE_DISPATCH_MAX_CONCURRENT")
	setDuration(&cfg.Dispatch.DedupTTL, "TASKMATE_DEDUP_TTL")
	setString(&cfg.Logging.Level, "TASKMATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKMATE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "TASKMATE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKMATE_BREAKER_TIMEOUT")
}

// validate checks that required fields are set. A partially configured
// process must refuse to start.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required")
	}
	if cfg.Redmine.URL == "" {
		return errors.New("redmine.url is required")
	}
	if cfg.Redmine.APIKey == "" {
		return errors.New("redmine.api_key is required")
	}
	if cfg.Line.ChannelAccessToken == "" {
		return errors.New("line.channel_access_token is required")
	}
	if cfg.Line.ChannelSecret == "" {
		return errors.New("line.channel_secret is required")
	}
	if cfg.Redmine.ProjectID < 1 {
		return errors.New("redmine.project_id must be >= 1")
	}
	if cfg.Dispatch.MaxConcurrent < 1 {
		return errors.New("dispatch.max_concurrent must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
