// Package config resolves bidsage settings from, in increasing
// precedence: built-in defaults, the yaml config file, environment
// variables, and CLI flags. Every resolved value remembers where it
// came from so `bidsage stats` and error messages can say so.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bidsage/internal/store"

	"gopkg.in/yaml.v3"
)

// ValueSource identifies which layer supplied a resolved value.
type ValueSource string

const (
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Defaults.
const (
	DefaultAddr      = ":8080"
	DefaultBatchSize = 500
	DefaultLogLevel  = "info"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into Resolve.
type ResolveOptions struct {
	ConfigPath   string
	CLIDBPath    string
	CLIAddr      string
	CLIBatchSize string
	CLILogLevel  string
}

// ResolvedConfig holds every setting after precedence resolution.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath    ResolvedValue `json:"db_path"`
	Addr      ResolvedValue `json:"listen_addr"`
	BatchSize ResolvedValue `json:"batch_size"`
	LogLevel  ResolvedValue `json:"log_level"`
}

type fileConfig struct {
	DBPath    string `yaml:"db_path"`
	Addr      string `yaml:"listen_addr"`
	BatchSize int    `yaml:"batch_size"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfigPath is ~/.bidsage/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bidsage", "config.yaml")
}

// Resolve loads the config file (missing file is fine) and applies env
// and CLI overrides on top of defaults.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		DBPath:     ResolvedValue{Value: store.DefaultDBPath, Source: SourceDefault, From: "built-in default"},
		Addr:       ResolvedValue{Value: DefaultAddr, Source: SourceDefault, From: "built-in default"},
		BatchSize:  ResolvedValue{Value: strconv.Itoa(DefaultBatchSize), Source: SourceDefault, From: "built-in default"},
		LogLevel:   ResolvedValue{Value: DefaultLogLevel, Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Addr, cfg.Addr, SourceConfig, path)
		if cfg.BatchSize > 0 {
			apply(&out.BatchSize, strconv.Itoa(cfg.BatchSize), SourceConfig, path)
		}
		apply(&out.LogLevel, cfg.LogLevel, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "BIDSAGE_DB")
	applyEnv(&out.Addr, "BIDSAGE_ADDR")
	applyEnv(&out.BatchSize, "BIDSAGE_BATCH_SIZE")
	applyEnv(&out.LogLevel, "BIDSAGE_LOG_LEVEL")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Addr, opts.CLIAddr, SourceCLI, "--addr")
	apply(&out.BatchSize, opts.CLIBatchSize, SourceCLI, "--batch-size")
	apply(&out.LogLevel, opts.CLILogLevel, SourceCLI, "--log-level")

	return out, nil
}

// BatchSizeValue parses the resolved batch size, falling back to the
// default for unparsable or non-positive values.
func (r ResolvedConfig) BatchSizeValue() int {
	n, err := strconv.Atoi(strings.TrimSpace(r.BatchSize.Value))
	if err != nil || n <= 0 {
		return DefaultBatchSize
	}
	return n
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}
