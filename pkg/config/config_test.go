package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/japaniel/morphan/pkg/analysis"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no morphan.yaml is picked up.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("defaults mismatch:\n got %+v\nwant %+v", cfg, want)
	}
	if len(cfg.Tags()) != 3 {
		t.Errorf("expected strict tags, got %v", cfg.Tags())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
pos_tags: loose
output:
  format: txt
fetch:
  timeout: 5s
ingest:
  workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MORPHAN_OUTPUT_DIR", "/tmp/out")
	t.Setenv("MORPHAN_KANJI", "block")

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.POSTags != "loose" || len(cfg.Tags()) != 4 {
		t.Errorf("pos_tags = %q", cfg.POSTags)
	}
	if cfg.Output.Format != "txt" || cfg.Output.Dir != "/tmp/out" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Fetch.Timeout != 5*time.Second || cfg.Ingest.Workers != 8 {
		t.Errorf("fetch/ingest = %+v %+v", cfg.Fetch, cfg.Ingest)
	}
	if cfg.KanjiMatcher()('々') {
		t.Error("block matcher should reject 々")
	}
	// Untouched keys keep their defaults.
	if cfg.DB.Path != "morphan.db" {
		t.Errorf("db.path = %q", cfg.DB.Path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad format", func(c *Config) { c.Output.Format = "xlsx" }, "output format"},
		{"bad dictionary", func(c *Config) { c.Dictionary = "neologd" }, "dictionary"},
		{"empty tags", func(c *Config) { c.POSTags = "" }, "pos tag set"},
		{"bad kanji", func(c *Config) { c.Kanji = "joyo" }, "kanji matcher"},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *analysis.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "morphan.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("expected error when file exists")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced overwrite failed: %v", err)
	}

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load written file: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("round trip mismatch: %+v", cfg)
	}
}
