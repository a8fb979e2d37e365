package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ingest.ChunkSize != 10000 {
		t.Errorf("chunk size = %d, want 10000", cfg.Ingest.ChunkSize)
	}
	if cfg.Feed.Retries != 3 {
		t.Errorf("retries = %d, want 3", cfg.Feed.Retries)
	}
	if cfg.Backfill.StartYear != 1998 {
		t.Errorf("start year = %d, want 1998", cfg.Backfill.StartYear)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  dsn: postgres://test
ingest:
  chunk_size: 500
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.DSN != "postgres://test" {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("chunk size = %d, want 500", cfg.Ingest.ChunkSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Unset fields keep their defaults.
	if cfg.Feed.Retries != 3 {
		t.Errorf("retries = %d, want default 3", cfg.Feed.Retries)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AFRISAM_DSN", "postgres://env")
	t.Setenv("AFRISAM_CHUNK_SIZE", "250")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.DSN != "postgres://env" {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}
	if cfg.Ingest.ChunkSize != 250 {
		t.Errorf("chunk size = %d, want 250", cfg.Ingest.ChunkSize)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("AFRISAM_CHUNK_SIZE", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}
