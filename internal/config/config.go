// Package config loads pipeline configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Feed       FeedConfig       `yaml:"feed"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Backfill   BackfillConfig   `yaml:"backfill"`
	Export     ExportConfig     `yaml:"export"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

type FeedConfig struct {
	SpoolDir       string `yaml:"spool_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
	BackoffMS      int    `yaml:"backoff_ms"`
}

func (f FeedConfig) Timeout() time.Duration { return time.Duration(f.TimeoutSeconds) * time.Second }
func (f FeedConfig) Backoff() time.Duration { return time.Duration(f.BackoffMS) * time.Millisecond }

type IngestConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type BackfillConfig struct {
	StartYear int `yaml:"start_year"`
	EndYear   int `yaml:"end_year"`
}

type ExportConfig struct {
	Dest string `yaml:"dest"` // local dir, s3://, gs:// or file:// URL
}

type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			SpoolDir:       "./spool",
			TimeoutSeconds: 600,
			Retries:        3,
			BackoffMS:      2000,
		},
		Ingest: IngestConfig{
			ChunkSize: 10000,
		},
		Backfill: BackfillConfig{
			StartYear: 1998,
			EndYear:   time.Now().Year(),
		},
		Export: ExportConfig{
			Dest: "./export",
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Dir:     "./checkpoints",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (if non-empty), then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Store.DSN = getenvDefault("AFRISAM_DSN", cfg.Store.DSN)
	cfg.Feed.SpoolDir = getenvDefault("AFRISAM_SPOOL_DIR", cfg.Feed.SpoolDir)
	cfg.Feed.TimeoutSeconds = getenvInt("AFRISAM_FETCH_TIMEOUT_SECONDS", cfg.Feed.TimeoutSeconds)
	cfg.Feed.Retries = getenvInt("AFRISAM_FETCH_RETRIES", cfg.Feed.Retries)
	cfg.Feed.BackoffMS = getenvInt("AFRISAM_FETCH_BACKOFF_MS", cfg.Feed.BackoffMS)
	cfg.Ingest.ChunkSize = getenvInt("AFRISAM_CHUNK_SIZE", cfg.Ingest.ChunkSize)
	cfg.Backfill.StartYear = getenvInt("AFRISAM_BACKFILL_START_YEAR", cfg.Backfill.StartYear)
	cfg.Backfill.EndYear = getenvInt("AFRISAM_BACKFILL_END_YEAR", cfg.Backfill.EndYear)
	cfg.Export.Dest = getenvDefault("AFRISAM_EXPORT_DEST", cfg.Export.Dest)
	cfg.Checkpoint.Dir = getenvDefault("AFRISAM_CHECKPOINT_DIR", cfg.Checkpoint.Dir)
	cfg.Metrics.Address = getenvDefault("AFRISAM_METRICS_ADDR", cfg.Metrics.Address)
	if v := os.Getenv("AFRISAM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true" || v == "1"
	}
	cfg.Logging.Level = getenvDefault("AFRISAM_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getenvDefault("AFRISAM_LOG_FORMAT", cfg.Logging.Format)
}

func (cfg Config) validate() error {
	if cfg.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Feed.Retries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", cfg.Feed.Retries)
	}
	if cfg.Backfill.StartYear > cfg.Backfill.EndYear {
		return fmt.Errorf("backfill start_year %d is after end_year %d",
			cfg.Backfill.StartYear, cfg.Backfill.EndYear)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
