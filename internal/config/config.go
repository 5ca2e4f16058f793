// Package config loads todomd configuration from file, environment, and
// flags via viper.
//
// Resolution order (later wins): built-in defaults, todomd.yaml in the
// working directory or ~/.config/todomd, TODOMD_* environment variables,
// command-line flags bound by the CLI layer.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved todomd configuration.
type Config struct {
	// DataDir is where project files (file backend) and the editable
	// Markdown documents live.
	DataDir string `mapstructure:"data_dir"`
	// Backend selects the persistence backend: "sqlite" or "file".
	Backend string `mapstructure:"backend"`
	// Database is the SQLite database path (sqlite backend only).
	Database string `mapstructure:"database"`
	// Listen is the HTTP listen address for the serve command.
	Listen string `mapstructure:"listen"`

	Log   LogConfig   `mapstructure:"log"`
	Watch WatchConfig `mapstructure:"watch"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// File, when set, sends logs to a rotating file instead of stderr.
	File string `mapstructure:"file"`
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// WatchConfig controls the Markdown file watcher.
type WatchConfig struct {
	// Enabled starts the watcher alongside the HTTP server.
	Enabled bool `mapstructure:"enabled"`
	// DebounceMS coalesces bursts of file events into one resubmission.
	DebounceMS int `mapstructure:"debounce_ms"`
}

// Load resolves the configuration. cfgFile overrides config file discovery
// when non-empty. Explicit command-line flags are applied on top by the CLI
// layer after loading.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", ".todomd")
	v.SetDefault("backend", "sqlite")
	v.SetDefault("database", ".todomd/todomd.db")
	v.SetDefault("listen", ":8383")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce_ms", 250)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("todomd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/todomd")
	}

	v.SetEnvPrefix("TODOMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("invalid backend %q: want sqlite or file", c.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative")
	}
	return nil
}
