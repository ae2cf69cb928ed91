// Package daemon manages the codequest server lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend modes.
const (
	BackendLocal    = "local"
	BackendSupabase = "supabase"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Content   ContentConfig   `toml:"content"`
	Backend   BackendConfig   `toml:"backend"`
	Rewards   RewardsConfig   `toml:"rewards"`
	Lock      LockConfig      `toml:"lock"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ContentConfig locates the content bundles.
type ContentConfig struct {
	Dir      string `toml:"dir"`
	Manifest string `toml:"manifest"`
}

// BackendConfig selects where profiles live.
type BackendConfig struct {
	Mode    string `toml:"mode"` // "local" or "supabase"
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"`
}

// TimeoutDuration parses Timeout, defaulting to 10s.
func (b BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// RewardsConfig sets what tasks and the daily chest grant.
type RewardsConfig struct {
	TaskXP      int64 `toml:"task_xp"`
	TaskPoints  int64 `toml:"task_points"`
	DailyXP     int64 `toml:"daily_xp"`
	DailyPoints int64 `toml:"daily_points"`
}

// LockConfig selects the per-user lock. An empty RedisURL uses an
// in-process lock.
type LockConfig struct {
	RedisURL string `toml:"redis_url"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Mode  string `toml:"mode"` // "prod" or "dev"
	Level string `toml:"level"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := codequestHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Content: ContentConfig{
			Dir:      filepath.Join(homeDir, "content"),
			Manifest: "manifest",
		},
		Backend: BackendConfig{
			Mode:    BackendLocal,
			Timeout: "10s",
		},
		Rewards: RewardsConfig{
			TaskXP:      20,
			TaskPoints:  10,
			DailyXP:     25,
			DailyPoints: 15,
		},
		Logging: LoggingConfig{
			Mode:  "prod",
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	switch c.Backend.Mode {
	case BackendLocal:
	case BackendSupabase:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required in %s mode", BackendSupabase)
		}
	default:
		return fmt.Errorf("backend.mode %q: want %q or %q", c.Backend.Mode, BackendLocal, BackendSupabase)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Rewards.TaskXP < 0 || c.Rewards.TaskPoints < 0 || c.Rewards.DailyXP < 0 || c.Rewards.DailyPoints < 0 {
		return fmt.Errorf("rewards must not be negative")
	}
	return nil
}

// LoadConfig reads config from ~/.codequest/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads config from path, falling back to defaults when the
// file does not exist. CODEQUEST_API_KEY overrides backend.api_key.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if key := os.Getenv("CODEQUEST_API_KEY"); key != "" {
		cfg.Backend.APIKey = key
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes the config to ~/.codequest/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes the config to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath is the default config file location.
func ConfigPath() string {
	return filepath.Join(codequestHome(), "config.toml")
}

// codequestHome returns the codequest data directory.
func codequestHome() string {
	if env := os.Getenv("CODEQUEST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codequest")
}

// Home is exported for use by other packages.
func Home() string {
	return codequestHome()
}
