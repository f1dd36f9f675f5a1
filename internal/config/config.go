// Package config loads server settings from an optional YAML file with
// environment overrides for deployment knobs. Every field has a default,
// so a missing file still boots a sane server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
	LogLevel string `yaml:"log_level"`

	DBDialect string `yaml:"db_dialect"`
	DBDSN     string `yaml:"db_dsn"`

	// WorldSeed 0 means pick a fresh seed when generating a new world.
	WorldSeed   int64 `yaml:"world_seed"`
	WorldRadius int   `yaml:"world_radius"`

	AIFactions    int `yaml:"ai_factions"`
	AIClusterSize int `yaml:"ai_cluster_size"`

	SweepIntervalSecs  int `yaml:"sweep_interval_secs"`
	PersistEverySweeps int `yaml:"persist_every_sweeps"`

	// SnapshotIntervalMins 0 disables periodic snapshots; shutdown and
	// the admin endpoint still take them.
	SnapshotIntervalMins int `yaml:"snapshot_interval_mins"`

	// LedgerURL empty disables external settlement; the outbox still
	// records intents durably.
	LedgerURL         string `yaml:"ledger_url"`
	LedgerAPIKey      string `yaml:"ledger_api_key"`
	FlushIntervalSecs int    `yaml:"flush_interval_secs"`

	CORSOrigins []string `yaml:"cors_origins"`
}

func defaults() Config {
	return Config{
		Port:                 8080,
		LogLevel:             "info",
		DBDialect:            "sqlite",
		DBDSN:                "frontier.db",
		WorldRadius:          22,
		AIFactions:           3,
		AIClusterSize:        4,
		SweepIntervalSecs:    12,
		PersistEverySweeps:   5,
		SnapshotIntervalMins: 1440,
		FlushIntervalSecs:    30,
	}
}

// Load reads the config file at path (empty path = defaults only),
// applies environment overrides, and validates.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := os.Getenv("DB_DIALECT"); v != "" {
		c.DBDialect = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("LEDGER_URL"); v != "" {
		c.LedgerURL = v
	}
	if v := os.Getenv("LEDGER_API_KEY"); v != "" {
		c.LedgerAPIKey = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
}

// SlogLevel maps the configured log_level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks every field a misconfigured deployment could break.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	if c.DBDialect != "sqlite" && c.DBDialect != "postgres" {
		return fmt.Errorf("db_dialect must be sqlite or postgres, got %q", c.DBDialect)
	}
	if c.WorldRadius < 1 || c.WorldRadius > 64 {
		return fmt.Errorf("world_radius %d out of range [1, 64]", c.WorldRadius)
	}
	if c.AIFactions < 0 {
		return fmt.Errorf("ai_factions must be >= 0, got %d", c.AIFactions)
	}
	if c.AIClusterSize < 1 {
		return fmt.Errorf("ai_cluster_size must be >= 1, got %d", c.AIClusterSize)
	}
	if c.SweepIntervalSecs < 1 {
		return fmt.Errorf("sweep_interval_secs must be >= 1, got %d", c.SweepIntervalSecs)
	}
	if c.PersistEverySweeps < 0 {
		return fmt.Errorf("persist_every_sweeps must be >= 0, got %d", c.PersistEverySweeps)
	}
	if c.SnapshotIntervalMins < 0 {
		return fmt.Errorf("snapshot_interval_mins must be >= 0, got %d", c.SnapshotIntervalMins)
	}
	if c.FlushIntervalSecs < 1 {
		return fmt.Errorf("flush_interval_secs must be >= 1, got %d", c.FlushIntervalSecs)
	}
	return nil
}
