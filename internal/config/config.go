// Package config loads runtime settings through viper and custom statement
// format definitions from YAML files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override, e.g. MAEPDF_CONVERT_WORKERS.
const EnvPrefix = "MAEPDF"

// EnvKeyReplacer maps nested keys such as convert.workers onto environment
// variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Config is the typed view of the merged flags, environment and config file.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Convert ConvertConfig `mapstructure:"convert"`
	Server  ServerConfig  `mapstructure:"server"`
	// FormatFiles are YAML format definitions registered before built-ins.
	FormatFiles []string `mapstructure:"format_files"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// ConvertConfig holds the batch conversion settings.
type ConvertConfig struct {
	Format                 string `mapstructure:"format"`
	Output                 string `mapstructure:"output"`
	Workers                int    `mapstructure:"workers"`
	MaxReconcileIterations int    `mapstructure:"max_reconcile_iterations"`
	Debug                  bool   `mapstructure:"debug"`
	DisablePdftotext       bool   `mapstructure:"disable_pdftotext"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	BodyLimitMB  int           `mapstructure:"body_limit_mb"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults registers the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("convert.output", "transactions.xlsx")
	v.SetDefault("convert.workers", runtime.NumCPU())
	v.SetDefault("convert.max_reconcile_iterations", parser.DefaultMaxReconcileIterations)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the converter cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format %q (use console or json)", c.Logging.Format)
	}
	if c.Convert.Workers < 0 {
		return fmt.Errorf("convert.workers must not be negative, got %d", c.Convert.Workers)
	}
	if c.Convert.MaxReconcileIterations < 0 {
		return fmt.Errorf("convert.max_reconcile_iterations must not be negative, got %d", c.Convert.MaxReconcileIterations)
	}
	if c.Server.BodyLimitMB < 0 {
		return fmt.Errorf("server.body_limit_mb must not be negative, got %d", c.Server.BodyLimitMB)
	}
	return nil
}

// formatFile is the layout of a format definition file: either a single
// format at the top level or a list under "formats".
type formatFile struct {
	Formats []parser.FormatSpec `yaml:"formats"`
}

// LoadFormatFiles reads format definitions from YAML files. Unknown keys are
// rejected so typos do not silently disable a rule.
func LoadFormatFiles(paths []string) ([]parser.FormatSpec, error) {
	var specs []parser.FormatSpec
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read format file %q: %w", path, err)
		}

		var file formatFile
		if err := decodeStrict(data, &file); err == nil && len(file.Formats) > 0 {
			specs = append(specs, file.Formats...)
			continue
		}

		var single parser.FormatSpec
		if err := decodeStrict(data, &single); err != nil {
			return nil, fmt.Errorf("failed to parse format file %q: %w", filepath.Base(path), err)
		}
		specs = append(specs, single)
	}
	return specs, nil
}

func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// NewRegistry returns the built-in formats plus every format defined in the
// given files.
func NewRegistry(formatFiles []string) (*parser.Registry, error) {
	reg := parser.NewRegistry()
	specs, err := LoadFormatFiles(formatFiles)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		cfg, err := spec.Compile()
		if err != nil {
			return nil, err
		}
		reg.Register(cfg)
	}
	return reg, nil
}
