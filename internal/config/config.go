package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the merged client and dev-server configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Theme   string        `mapstructure:"theme"`
	Color   string        `mapstructure:"color"`
	LogFile string        `mapstructure:"log_file"`
	Server  ServerConfig  `mapstructure:"server"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	Data   string `mapstructure:"data"`
	Driver string `mapstructure:"driver"`
}

// SetDefaults registers every key so env overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8000/tasks")
	v.SetDefault("timeout", "10s")
	v.SetDefault("theme", "classic")
	v.SetDefault("color", "auto")
	v.SetDefault("log_file", "")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.data", "tasks.json")
	v.SetDefault("server.driver", "json")

	v.SetEnvPrefix("TADA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load merges the given YAML files in order (later wins) on top of the
// defaults, then env and any flags already bound to v. Missing files are
// skipped.
func Load(v *viper.Viper, files ...string) (*Config, error) {
	SetDefaults(v)
	for _, f := range files {
		if err := mergeFile(v, f); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("config: base_url is empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: color must be auto, always or never (got %q)", c.Color)
	}
	switch c.Server.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("config: server.driver must be json or sqlite (got %q)", c.Server.Driver)
	}
	return nil
}

// DefaultFiles returns the global then the project config path.
func DefaultFiles() []string {
	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".tada", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(cwd, ".tada", "config.yaml"))
	}
	return files
}
