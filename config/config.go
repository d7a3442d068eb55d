// Package config loads sketchcheck settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rfielding/sketchcheck/laws"
)

// Oracle kinds.
const (
	OracleKripke = "kripke"
	OracleNuSMV  = "nusmv"
)

// ValidOracles lists the supported oracle kinds.
var ValidOracles = []string{OracleKripke, OracleNuSMV}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Config holds all sketchcheck configuration.
type Config struct {
	Oracle  OracleConfig  `yaml:"oracle"`
	Laws    []string      `yaml:"laws,omitempty"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Batch   BatchConfig   `yaml:"batch"`
}

// OracleConfig selects and tunes the model checker.
type OracleConfig struct {
	Kind      string   `yaml:"kind"` // kripke, nusmv
	NuSMVPath string   `yaml:"nusmv_path"`
	Args      []string `yaml:"args,omitempty"`
	WorkDir   string   `yaml:"work_dir,omitempty"`
	KeepFiles bool     `yaml:"keep_files"`
	Timeout   string   `yaml:"timeout"`
}

// StoreConfig locates the verdict database.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// BatchConfig configures batch verification.
type BatchConfig struct {
	Jobs int `yaml:"jobs"`
}

// DefaultConfig returns the default configuration. No laws are listed, which
// selects every default law the configured oracle can decide.
func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			Kind:      OracleKripke,
			NuSMVPath: "NuSMV",
			Timeout:   "60s",
		},
		Store: StoreConfig{
			Path:    filepath.Join(".sketchcheck", "sketchcheck.db"),
			Enabled: true,
		},
		Logging: LoggingConfig{Level: "info"},
		Batch:   BatchConfig{Jobs: 4},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if kind := os.Getenv("SKETCHCHECK_ORACLE"); kind != "" {
		c.Oracle.Kind = strings.ToLower(kind)
	}
	if path := os.Getenv("SKETCHCHECK_NUSMV"); path != "" {
		c.Oracle.NuSMVPath = path
	}
	if path := os.Getenv("SKETCHCHECK_DB"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("SKETCHCHECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// GetOracleTimeout returns the per-verification timeout. Zero disables it.
func (c *Config) GetOracleTimeout() time.Duration {
	if c.Oracle.Timeout == "" || c.Oracle.Timeout == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetLaws resolves the configured law names, or laws.Default() when none
// are listed.
func (c *Config) GetLaws() ([]laws.Law, error) {
	if len(c.Laws) == 0 {
		return laws.Default(), nil
	}
	return laws.Lookup(c.Laws)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidOracles, c.Oracle.Kind) {
		return fmt.Errorf("invalid oracle: %q (valid: %v)", c.Oracle.Kind, ValidOracles)
	}
	if c.Oracle.Kind == OracleNuSMV && c.Oracle.NuSMVPath == "" {
		return fmt.Errorf("nusmv oracle needs oracle.nusmv_path (or SKETCHCHECK_NUSMV)")
	}
	if c.Oracle.Timeout != "" && c.Oracle.Timeout != "0" {
		if _, err := time.ParseDuration(c.Oracle.Timeout); err != nil {
			return fmt.Errorf("invalid oracle timeout %q: %w", c.Oracle.Timeout, err)
		}
	}
	if _, err := c.GetLaws(); err != nil {
		return err
	}
	if !slices.Contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if c.Batch.Jobs < 1 {
		return fmt.Errorf("batch.jobs must be at least 1, got %d", c.Batch.Jobs)
	}
	return nil
}
