package config

import (
	"os"
	"path/filepath"
	"testing"

	"bidsage/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if cfg.DBPath.Value != store.DefaultDBPath || cfg.DBPath.Source != SourceDefault {
		t.Errorf("DBPath = %+v, want default", cfg.DBPath)
	}
	if cfg.Addr.Value != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr.Value, DefaultAddr)
	}
	if cfg.BatchSizeValue() != DefaultBatchSize {
		t.Errorf("BatchSizeValue() = %d, want %d", cfg.BatchSizeValue(), DefaultBatchSize)
	}
	if cfg.LogLevel.Value != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel.Value, DefaultLogLevel)
	}
}

func TestResolveConfigFile(t *testing.T) {
	path := writeConfig(t, "db_path: /tmp/custom.db\nlisten_addr: \":9000\"\nbatch_size: 50\nlog_level: debug\n")

	cfg, err := Resolve(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if cfg.DBPath.Value != "/tmp/custom.db" || cfg.DBPath.Source != SourceConfig {
		t.Errorf("DBPath = %+v, want config value", cfg.DBPath)
	}
	if cfg.Addr.Value != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr.Value)
	}
	if cfg.BatchSizeValue() != 50 {
		t.Errorf("BatchSizeValue() = %d, want 50", cfg.BatchSizeValue())
	}
	if cfg.LogLevel.Value != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel.Value)
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "db_path: /tmp/from-file.db\n")
	t.Setenv("BIDSAGE_DB", "/tmp/from-env.db")

	cfg, err := Resolve(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if cfg.DBPath.Value != "/tmp/from-env.db" {
		t.Errorf("DBPath = %q, want env value", cfg.DBPath.Value)
	}
	if cfg.DBPath.Source != SourceEnv || cfg.DBPath.From != "BIDSAGE_DB" {
		t.Errorf("DBPath provenance = %+v, want env/BIDSAGE_DB", cfg.DBPath)
	}
}

func TestResolveCLIOverridesEverything(t *testing.T) {
	path := writeConfig(t, "db_path: /tmp/from-file.db\nbatch_size: 50\n")
	t.Setenv("BIDSAGE_DB", "/tmp/from-env.db")
	t.Setenv("BIDSAGE_BATCH_SIZE", "75")

	cfg, err := Resolve(ResolveOptions{
		ConfigPath:   path,
		CLIDBPath:    "/tmp/from-cli.db",
		CLIBatchSize: "100",
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if cfg.DBPath.Value != "/tmp/from-cli.db" || cfg.DBPath.Source != SourceCLI {
		t.Errorf("DBPath = %+v, want cli value", cfg.DBPath)
	}
	if cfg.BatchSizeValue() != 100 {
		t.Errorf("BatchSizeValue() = %d, want 100", cfg.BatchSizeValue())
	}
}

func TestResolveBadYAML(t *testing.T) {
	path := writeConfig(t, "db_path: [unclosed\n")

	if _, err := Resolve(ResolveOptions{ConfigPath: path}); err == nil {
		t.Fatal("Resolve() = nil error, want parse failure")
	}
}

func TestBatchSizeValueFallback(t *testing.T) {
	cfg := ResolvedConfig{BatchSize: ResolvedValue{Value: "not-a-number"}}
	if got := cfg.BatchSizeValue(); got != DefaultBatchSize {
		t.Errorf("BatchSizeValue() = %d, want default %d", got, DefaultBatchSize)
	}

	cfg = ResolvedConfig{BatchSize: ResolvedValue{Value: "-5"}}
	if got := cfg.BatchSizeValue(); got != DefaultBatchSize {
		t.Errorf("BatchSizeValue() = %d, want default %d", got, DefaultBatchSize)
	}
}
