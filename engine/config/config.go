// Package config provides YAML configuration loading for the oxy-glb tools.
//
// Configuration is loaded from a single file specified by either the
// OXYGLB_CONFIG environment variable (via Load) or a --config flag
// (via LoadFile). There is no automatic file search; without a file the
// tools run on Default().
//
// The file may contain development and production sections that override
// base values when Environment matches.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "OXYGLB_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development favors verbose, readable output.
	Development Environment = "development"
	// Production favors compact output and strict size checks.
	Production Environment = "production"
)

// Config is the master configuration for the codec, packer and CLI.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Codec configures container and document handling.
	Codec CodecConfig `yaml:"codec"`

	// Output configures how files are written.
	Output OutputConfig `yaml:"output"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Workers is the number of assets processed in parallel in batch mode.
	Workers int `yaml:"workers"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	SizeSlack  *int    `yaml:"size_slack,omitempty"`
	IndentJSON *bool   `yaml:"indent_json,omitempty"`
	Compress   *bool   `yaml:"compress,omitempty"`
	LogLevel   *string `yaml:"log_level,omitempty"`
	LogFormat  *string `yaml:"log_format,omitempty"`
}

// CodecConfig configures container and document handling.
type CodecConfig struct {
	// SizeSlack is how many bytes a resolved buffer may exceed its declared byteLength by.
	// Default: 3
	SizeSlack int `yaml:"size_slack"`

	// IndentJSON indents .gltf files written by unpack and save.
	// Default: true
	IndentJSON bool `yaml:"indent_json"`
}

// OutputConfig configures how files are written.
type OutputConfig struct {
	// Compress zstd-compresses packed GLB output.
	Compress bool `yaml:"compress"`

	// Overwrite allows pack to replace an existing output file.
	Overwrite bool `yaml:"overwrite"`

	// Profile records per-stage timing and allocation statistics.
	Profile bool `yaml:"profile"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Codec: CodecConfig{
			SizeSlack:  validation.DefaultSizeSlack,
			IndentJSON: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Workers: runtime.NumCPU(),
	}
}

// Load loads configuration from the file named by OXYGLB_CONFIG. When the
// variable is unset the defaults are returned.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, applies the
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production writes compact JSON unless told otherwise.
		if overrides == nil {
			indent := false
			overrides = &ConfigOverrides{IndentJSON: &indent}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.SizeSlack != nil {
		c.Codec.SizeSlack = *overrides.SizeSlack
	}
	if overrides.IndentJSON != nil {
		c.Codec.IndentJSON = *overrides.IndentJSON
	}
	if overrides.Compress != nil {
		c.Output.Compress = *overrides.Compress
	}
	if overrides.LogLevel != nil {
		c.Logging.Level = *overrides.LogLevel
	}
	if overrides.LogFormat != nil {
		c.Logging.Format = *overrides.LogFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Codec.SizeSlack < 0 {
		errs = append(errs, fmt.Errorf("codec.size_slack must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level parses Logging.Level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// Logger builds the structured logger described by Logging, writing to w.
// An unparsable level falls back to info.
//
// Parameters:
//   - w: the log destination, usually os.Stderr
//
// Returns:
//   - *slog.Logger: the configured logger
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
