package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/dirreconcile/internal/hasher"
)

// DefaultOutput is the report file written when no output is configured
const DefaultOutput = "reference.patch"

// StdoutOutput selects standard output as the report destination
const StdoutOutput = "-"

// Config represents the complete dirreconcile configuration
type Config struct {
	// DirA and DirB are always supplied on the command line
	DirA string `yaml:"-"`
	DirB string `yaml:"-"`

	Checksum        string `yaml:"checksum"`
	IgnoreUnchanged bool   `yaml:"ignore_unchanged"`
	Output          string `yaml:"output"`
	Workers         int    `yaml:"workers"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.validateOptions(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Checksum = os.ExpandEnv(c.Checksum)
	c.Output = os.ExpandEnv(c.Output)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Checksum == "" {
		c.Checksum = hasher.Default
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}

// SetDirs records the two roots to reconcile, cleaned of redundant separators
func (c *Config) SetDirs(dirA, dirB string) {
	c.DirA = cleanDir(dirA)
	c.DirB = cleanDir(dirB)
}

func cleanDir(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Clean(dir)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.DirA == "" || c.DirB == "" {
		return fmt.Errorf("two directories are required")
	}
	return c.validateOptions()
}

func (c *Config) validateOptions() error {
	if _, err := hasher.Canonical(c.Checksum); err != nil {
		return fmt.Errorf("invalid checksum: %w", err)
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	return nil
}

// WritesToStdout reports whether the report goes to standard output
func (c *Config) WritesToStdout() bool {
	return c.Output == StdoutOutput
}

// OutputPath returns the absolute report path, or "-" for standard output
func (c *Config) OutputPath() (string, error) {
	if c.WritesToStdout() {
		return StdoutOutput, nil
	}
	return filepath.Abs(c.Output)
}
