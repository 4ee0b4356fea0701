package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server binary needs. Values come from an
// optional YAML file, overridden by environment variables, with defaults
// filled in for anything left unset.
type Config struct {
	ListenAddr       string `yaml:"listen_addr"`
	DatabasePath     string `yaml:"database_path"`
	DebounceWindowMS int    `yaml:"debounce_window_ms"`
	ProxyTimeoutMS   int    `yaml:"proxy_timeout_ms"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:       "localhost:5000",
		DatabasePath:     "apicollab.sqlite3",
		DebounceWindowMS: 2000,
		ProxyTimeoutMS:   10000,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("DEBOUNCE_WINDOW_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBOUNCE_WINDOW_MS: %w", err)
		}
		cfg.DebounceWindowMS = n
	}
	if v := os.Getenv("PROXY_TIMEOUT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROXY_TIMEOUT_MS: %w", err)
		}
		cfg.ProxyTimeoutMS = n
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.DebounceWindowMS <= 0 {
		return fmt.Errorf("debounce_window_ms must be positive")
	}
	if c.ProxyTimeoutMS <= 0 {
		return fmt.Errorf("proxy_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

func (c *Config) ProxyTimeout() time.Duration {
	return time.Duration(c.ProxyTimeoutMS) * time.Millisecond
}
