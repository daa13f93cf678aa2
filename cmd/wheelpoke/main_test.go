package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/wheelpoke/internal/config"
	"github.com/verte-zerg/wheelpoke/internal/model"
)

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	cmd := newAnalyzeCmd()
	if err := cmd.Flags().Set("grace", "12"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	fromFile := 45.0
	workers := 3
	applyFloatConfig(cmd, "grace", &analyzeGrace, &fromFile)
	applyIntConfig(cmd, "workers", &analyzeWorkers, &workers)
	if analyzeGrace != 12 {
		t.Fatalf("expected flag value 12 to win, got %v", analyzeGrace)
	}
	if analyzeWorkers != 3 {
		t.Fatalf("expected config value 3, got %d", analyzeWorkers)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := model.Config{Grace: 30, LatencyStep: 0.1, Pattern: "*Results*.txt"}
	if err := validateConfig(ok); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cases := []model.Config{
		{Workers: -1, Grace: 30, LatencyStep: 0.1, Pattern: "*"},
		{Grace: 0, LatencyStep: 0.1, Pattern: "*"},
		{Grace: 30, LatencyStep: 0, Pattern: "*"},
		{Grace: 30, LatencyStep: 0.1, Pattern: " "},
		{Grace: 30, LatencyStep: 0.1, Pattern: "["},
	}
	for i, cfg := range cases {
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("expected case %d to fail", i)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	tmpl := defaultConfigTemplate()
	var uncommented []string
	for _, line := range strings.Split(tmpl, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") && strings.Contains(trimmed, " = ") {
			uncommented = append(uncommented, strings.TrimPrefix(trimmed, "# "))
			continue
		}
		uncommented = append(uncommented, line)
	}
	var cfg config.FileConfig
	md, err := toml.Decode(strings.Join(uncommented, "\n"), &cfg)
	if err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		t.Fatalf("expected all keys to decode, got %v", undecoded)
	}
	if cfg.Analyze.Grace == nil || *cfg.Analyze.Grace != 30 {
		t.Fatalf("expected grace 30, got %v", cfg.Analyze.Grace)
	}
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	runs := []model.RunSummary{{RunID: "abc", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Files: 4, Failed: 1}}
	if err := writeRuns(&buf, runs); err != nil {
		t.Fatalf("write runs: %v", err)
	}
	if !strings.Contains(buf.String(), "abc") || !strings.Contains(buf.String(), "files=4 failed=1") {
		t.Fatalf("expected run line, got %q", buf.String())
	}
}
