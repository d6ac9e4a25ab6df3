// Package config loads the dashboard configuration from an optional YAML
// file. Flags and environment variables override file values in main.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the dashboard needs to run.
type Config struct {
	Listen      string `yaml:"listen"`
	StreamURL   string `yaml:"stream_url"`
	BackendURL  string `yaml:"backend_url"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	CountryData string `yaml:"country_data"`
	LogLevel    string `yaml:"log_level"`

	ActiveCap  int `yaml:"active_cap"`
	HistoryCap int `yaml:"history_cap"`

	IPRefresh   Duration `yaml:"ip_refresh"`
	NewsRefresh Duration `yaml:"news_refresh"`

	IPRetryAttempts uint     `yaml:"ip_retry_attempts"`
	IPRetryDelay    Duration `yaml:"ip_retry_delay"`

	MapWidth  float64 `yaml:"map_width"`
	MapHeight float64 `yaml:"map_height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:          ":8080",
		StreamURL:       "http://localhost:5000/threats",
		BackendURL:      "http://localhost:5000",
		LogLevel:        "info",
		ActiveCap:       60,
		HistoryCap:      1000,
		IPRefresh:       Duration(time.Minute),
		NewsRefresh:     Duration(5 * time.Minute),
		IPRetryAttempts: 5,
		IPRetryDelay:    Duration(2 * time.Second),
		MapWidth:        1920,
		MapHeight:       1080,
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
