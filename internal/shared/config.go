package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Subsonic SubsonicConfig `toml:"subsonic"`
	Library  LibraryConfig  `toml:"library"`
	Sync     SyncConfig     `toml:"sync"`
}

// SubsonicConfig contains the Subsonic server connection settings.
type SubsonicConfig struct {
	URL      string `toml:"url"`
	User     string `toml:"user"`
	Password string `toml:"pass"`
	Auth     string `toml:"auth"`   // "token" or "password"
	Client   string `toml:"client"` // client name reported to the server
}

// LibraryConfig points at the beets library database.
type LibraryConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains batch processing settings.
type SyncConfig struct {
	Workers        int     `toml:"workers"`         // concurrent in-flight items
	RateLimit      float64 `toml:"rate_limit"`      // requests per second
	TimeoutSeconds int     `toml:"timeout_seconds"` // per network call
	RatingSource   string  `toml:"rating_source"`   // flexible attribute holding the rating
	RatingKind     string  `toml:"rating_kind"`     // transform applied to the raw value
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
