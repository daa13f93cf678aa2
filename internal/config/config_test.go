package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Analyze.Workers != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigAnalyzeSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[analyze]
workers = 3
grace = 12.5
latency-step = 0.25
store = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	a := cfg.Analyze
	if a.Workers == nil || *a.Workers != 3 {
		t.Fatalf("expected workers 3, got %v", a.Workers)
	}
	if a.Grace == nil || *a.Grace != 12.5 {
		t.Fatalf("expected grace 12.5, got %v", a.Grace)
	}
	if a.LatencyStep == nil || *a.LatencyStep != 0.25 {
		t.Fatalf("expected latency step 0.25, got %v", a.LatencyStep)
	}
	if a.Store == nil || *a.Store {
		t.Fatalf("expected store false, got %v", a.Store)
	}
	if a.Pattern != nil {
		t.Fatalf("expected unset pattern to stay nil")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[analyze]\nworkerz = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "workerz") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "wheelpoke", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "wheelpoke", "wheelpoke.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
