package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBDialect != "sqlite" || cfg.DBDSN != "frontier.db" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.WorldRadius != 22 || cfg.AIFactions != 3 || cfg.SweepIntervalSecs != 12 {
		t.Fatalf("world defaults = %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.SnapshotIntervalMins != 1440 {
		t.Fatalf("ops defaults = %+v", cfg)
	}
	if cfg.AdminKey != "" || cfg.LedgerURL != "" {
		t.Fatalf("secrets should default empty: %+v", cfg)
	}
}

func TestSlogLevelMapping(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		c := Config{LogLevel: in}
		if got := c.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
port: 9090
db_dialect: postgres
db_dsn: postgres://frontier:pw@localhost/frontier
world_radius: 8
ai_factions: 5
cors_origins:
  - https://frontier.example
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.DBDialect != "postgres" || cfg.WorldRadius != 8 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.AIFactions != 5 {
		t.Fatalf("ai_factions = %d", cfg.AIFactions)
	}
	// Untouched fields keep defaults.
	if cfg.SweepIntervalSecs != 12 || cfg.FlushIntervalSecs != 30 {
		t.Fatalf("interval defaults lost: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://frontier.example" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9090\nadmin_key: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("ADMIN_KEY", "from-env")
	t.Setenv("DB_DIALECT", "postgres")
	t.Setenv("DB_DSN", "postgres://x")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7070 || cfg.AdminKey != "from-env" {
		t.Fatalf("env overrides lost: %+v", cfg)
	}
	if cfg.DBDialect != "postgres" || cfg.DBDSN != "postgres://x" {
		t.Fatalf("db env overrides lost: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		mutat func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad dialect", func(c *Config) { c.DBDialect = "oracle" }},
		{"radius zero", func(c *Config) { c.WorldRadius = 0 }},
		{"negative factions", func(c *Config) { c.AIFactions = -1 }},
		{"zero sweep interval", func(c *Config) { c.SweepIntervalSecs = 0 }},
		{"negative snapshot interval", func(c *Config) { c.SnapshotIntervalMins = -1 }},
		{"zero flush interval", func(c *Config) { c.FlushIntervalSecs = 0 }},
	}

	for _, tc := range cases {
		cfg := defaults()
		tc.mutat(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
