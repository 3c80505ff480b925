package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Utility       UtilityConfig `yaml:"utility"`
	ProfilesDir   string        `yaml:"profiles_dir,omitempty"` // Directory of profile sets (default: ./profiles)
	CompareDays   int           `yaml:"compare_days,omitempty"` // Aggregation window for comparisons (default: 365)
	MQTT          MQTTConfig    `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig      `yaml:"home_assistant,omitempty"`
	LogLevel      string        `yaml:"log_level,omitempty"`
}

// UtilityConfig holds credentials for the utility API
type UtilityConfig struct {
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // Per-request timeout (default: 60)
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`       // e.g., "http://yourdomain.local:5050"
	Token    string `yaml:"token"`     // Long-lived access token
	EntityID string `yaml:"entity_id"` // e.g., "sensor.household_energy_usage"
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetProfilesDir returns the profile set directory with a default of ./profiles
func (c *Config) GetProfilesDir() string {
	if c.ProfilesDir == "" {
		return "profiles"
	}
	return c.ProfilesDir
}

// GetCompareDays returns the aggregation window with a default of one year
func (c *Config) GetCompareDays() int {
	if c.CompareDays <= 0 {
		return 365
	}
	return c.CompareDays
}

// GetTimeout returns the per-request utility API timeout with a default of 60s
func (c *Config) GetTimeout() time.Duration {
	if c.Utility.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Utility.TimeoutSeconds) * time.Second
}

// GetLogLevel returns the configured log level with a default of info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}
