// Package config provides YAML-based configuration loading with
// environment variable expansion.
package config

import (
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Roots  []RootConfig      `yaml:"roots"`
	Ignore []string          `yaml:"ignore"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if len(c.Roots) == 0 {
		return fmt.Errorf("roots: at least one root is required")
	}
	seen := make(map[string]bool, len(c.Roots))
	for i := range c.Roots {
		if err := c.Roots[i].Validate(); err != nil {
			return fmt.Errorf("roots[%d]: %w", i, err)
		}
		if seen[c.Roots[i].Name] {
			return fmt.Errorf("roots: duplicate name %q", c.Roots[i].Name)
		}
		seen[c.Roots[i].Name] = true
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// RootConfig names one directory served by the repository.
type RootConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Validate validates a root entry.
func (c *RootConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Path, validation.Required),
	)
}

// Load loads configuration from a YAML file with environment variable
// expansion.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := NewDefaultConfig("")
	cfg.Roots = nil
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// NewDefaultConfig returns a Config serving a single root named "main"
// at the given path. Used when the server is started with a directory
// argument instead of a config file.
func NewDefaultConfig(path string) *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Roots: []RootConfig{
			{Name: "main", Path: path},
		},
	}
}
