// Copyright 2025 Certen Protocol

package ledgerconfig

import (
	"os"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "kv" {
		t.Errorf("backend = %q, want kv", cfg.Backend)
	}
	if cfg.HashAlgorithm != "blake3" {
		t.Errorf("hash algorithm = %q, want blake3", cfg.HashAlgorithm)
	}
	if cfg.EventsPerEpoch != 1000 {
		t.Errorf("events per epoch = %d, want 1000", cfg.EventsPerEpoch)
	}
}

func TestLoad_ReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("LEDGER_HASH_ALGORITHM", "sha256")
	t.Setenv("LEDGER_EVENTS_PER_EPOCH", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HashAlgorithm != "sha256" {
		t.Errorf("hash algorithm = %q, want sha256", cfg.HashAlgorithm)
	}
	if cfg.EventsPerEpoch != 500 {
		t.Errorf("events per epoch = %d, want 500", cfg.EventsPerEpoch)
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := &Config{Backend: "s3", HashAlgorithm: "blake3", EventsPerEpoch: 100, OrphanTimeout: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestValidate_RequiresDatabaseURLForPostgres(t *testing.T) {
	cfg := &Config{Backend: "postgres", HashAlgorithm: "blake3", EventsPerEpoch: 100, OrphanTimeout: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing database url")
	}
}

func TestLoadFile_OverlaysOntoDefaults(t *testing.T) {
	content := `
hash_algorithm: sha256
events_per_epoch: 250
listen_addr: ":9999"
`
	path := writeTempFile(t, content)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.HashAlgorithm != "sha256" {
		t.Errorf("hash algorithm = %q, want sha256", cfg.HashAlgorithm)
	}
	if cfg.EventsPerEpoch != 250 {
		t.Errorf("events per epoch = %d, want 250", cfg.EventsPerEpoch)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("listen addr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.Backend != "kv" {
		t.Errorf("backend should keep its default, got %q", cfg.Backend)
	}
}

func TestLoadFile_SubstitutesEnvironmentVariables(t *testing.T) {
	t.Setenv("LEDGER_TEST_DB_URL", "postgres://example/db")
	content := `
backend: postgres
database_url: ${LEDGER_TEST_DB_URL}
`
	path := writeTempFile(t, content)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.DatabaseURL != "postgres://example/db" {
		t.Errorf("database url = %q, want substituted value", cfg.DatabaseURL)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ledgerconfig-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return f.Name()
}
