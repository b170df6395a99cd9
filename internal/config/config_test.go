package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "transactions.xlsx", cfg.Convert.Output)
	assert.Equal(t, parser.DefaultMaxReconcileIterations, cfg.Convert.MaxReconcileIterations)
	assert.Positive(t, cfg.Convert.Workers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
convert:
  format: maybank-mae
  workers: 2
format_files:
  - formats/rhb.yaml
`), 0o644))
	t.Setenv("MAEPDF_CONVERT_WORKERS", "6")

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "maybank-mae", cfg.Convert.Format)
	assert.Equal(t, 6, cfg.Convert.Workers)
	assert.Equal(t, []string{"formats/rhb.yaml"}, cfg.FormatFiles)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero value", Config{}, false},
		{"json logs", Config{Logging: LoggingConfig{Format: "json"}}, false},
		{"bad log format", Config{Logging: LoggingConfig{Format: "xml"}}, true},
		{"negative workers", Config{Convert: ConvertConfig{Workers: -1}}, true},
		{"negative cap", Config{Convert: ConvertConfig{MaxReconcileIterations: -3}}, true},
		{"negative body limit", Config{Server: ServerConfig{BodyLimitMB: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

const rhbYAML = `
id: rhb-savings
name: RHB Savings
grammar: leading
date_pattern: '^(\d{2}/\d{2}/\d{4})\b'
date_layout: 02/01/2006
markers:
  - start: "Page"
    end: "B/F"
inflow_keywords: [DEPOSIT]
default_direction: outflow
has_balance: true
signatures: ['(?i)\bRHB\b']
flow:
  inflow: Deposit
  outflow: Withdrawal
  unknown: unknown
schema: transfer
`

const listYAML = `
formats:
  - id: bank-a
    grammar: b
    date_pattern: '^(\d{2}/\d{2}/\d{2})\b'
    date_layout: 02/01/06
    signatures: ['BANK A']
  - id: bank-b
    grammar: c
    date_pattern: '^(\d{2}/\d{2}/\d{4})\b'
    date_layout: 02/01/2006
    signatures: ['BANK B']
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormatFiles(t *testing.T) {
	specs, err := LoadFormatFiles([]string{
		writeFile(t, "rhb.yaml", rhbYAML),
		writeFile(t, "list.yaml", listYAML),
	})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "rhb-savings", specs[0].ID)
	assert.Equal(t, []parser.SectionMarker{{Start: "Page", End: "B/F"}}, specs[0].Markers)
	assert.True(t, specs[0].HasBalance)
	assert.Equal(t, "Deposit", specs[0].Flow.Inflow)
	assert.Equal(t, "bank-a", specs[1].ID)
	assert.Equal(t, "c", specs[2].Grammar)
}

func TestLoadFormatFilesRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFormatFiles([]string{writeFile(t, "typo.yaml", "id: x\ndate_patern: foo\n")})
	assert.Error(t, err)
}

func TestLoadFormatFilesMissing(t *testing.T) {
	_, err := LoadFormatFiles([]string{filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry([]string{writeFile(t, "rhb.yaml", rhbYAML)})
	require.NoError(t, err)

	formats := reg.Formats()
	assert.Equal(t, models.FormatID("rhb-savings"), formats[0].ID)

	cfg, err := reg.AutoDetect([]string{"RHB Bank Berhad"})
	require.NoError(t, err)
	assert.Equal(t, "RHB Savings", cfg.Name)
}

func TestNewRegistryInvalidSpec(t *testing.T) {
	_, err := NewRegistry([]string{writeFile(t, "bad.yaml", "id: bad\ngrammar: zigzag\ndate_pattern: x\ndate_layout: y\n")})
	assert.True(t, errors.Is(err, parser.ErrInvalidFormatSpec))
}
