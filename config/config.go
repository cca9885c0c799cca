// Package config provides configuration loading for fragsync.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zenibako/fragsync/messages"
)

// DefaultConfigFile is the file read when no --config flag is given
const DefaultConfigFile = "fragsync.yaml"

// Prompt modes
const (
	PromptTerminal = "terminal"
	PromptRemote   = "remote"
)

// Config represents the complete fragsync configuration
type Config struct {
	Author    AuthorConfig  `yaml:"author"`
	Listen    AddressConfig `yaml:"listen"`
	Host      AddressConfig `yaml:"host"`
	Namespace string        `yaml:"namespace"`
	Prompt    string        `yaml:"prompt"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Log       LogConfig     `yaml:"log"`
}

// AuthorConfig configures the author instance serving field markup
type AuthorConfig struct {
	// URL is the author base URL (default: http://localhost:4502)
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Timeout bounds a single field markup request
	Timeout time.Duration `yaml:"timeout"`
}

// AddressConfig is an OSC host and port
type AddressConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port
func (a AddressConfig) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address of /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Author: AuthorConfig{
			URL:     "http://localhost:4502",
			Timeout: 10 * time.Second,
		},
		Listen: AddressConfig{
			Host: "127.0.0.1",
			Port: 53100,
		},
		Host: AddressConfig{
			Host: "127.0.0.1",
			Port: 53101,
		},
		Namespace: messages.DefaultNamespace,
		Prompt:    PromptRemote,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Author.URL == "" {
		return fmt.Errorf("author.url is required")
	}
	u, err := url.Parse(c.Author.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("author.url %q is not an absolute URL", c.Author.URL)
	}
	if c.Author.Timeout < 0 {
		return fmt.Errorf("author.timeout must not be negative")
	}
	if err := validatePort("listen.port", c.Listen.Port); err != nil {
		return err
	}
	if err := validatePort("host.port", c.Host.Port); err != nil {
		return err
	}
	switch c.Prompt {
	case PromptTerminal, PromptRemote:
	default:
		return fmt.Errorf("prompt must be %q or %q, got %q", PromptTerminal, PromptRemote, c.Prompt)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", c.Log.Level)
	}
	return nil
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads path when it exists and falls back to the defaults otherwise.
// The result is validated.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
