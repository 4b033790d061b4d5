package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("ADDR", "")
	t.Setenv("BULK_WORKERS", "")

	cfg := Load()
	if cfg.Server.Addr != defaultAddr {
		t.Fatalf("addr = %q, want %q", cfg.Server.Addr, defaultAddr)
	}
	if cfg.Server.MaxUploadBytes != 16<<20 {
		t.Fatalf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	if len(cfg.Compliance.DefaultTypes) != 2 {
		t.Fatalf("default types = %v", cfg.Compliance.DefaultTypes)
	}
	if cfg.Vertex.Enabled() {
		t.Fatal("vertex must be disabled without a project id")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  addr: \":9000\"\nbulk:\n  workers: 5\ncompliance:\n  defaultTypes: [CCPA]\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("ADDR", "")
	t.Setenv("BULK_WORKERS", "7")
	t.Setenv("DEFAULT_COMPLIANCE_TYPES", "")

	cfg := Load()
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("file value not applied: %q", cfg.Server.Addr)
	}
	if cfg.Bulk.Workers != 7 {
		t.Fatalf("env override not applied: %d", cfg.Bulk.Workers)
	}
	if cfg.Bulk.QueueSize != defaultBulkQueueSize {
		t.Fatalf("default lost during merge: %d", cfg.Bulk.QueueSize)
	}
	if len(cfg.Compliance.DefaultTypes) != 1 || cfg.Compliance.DefaultTypes[0] != "CCPA" {
		t.Fatalf("default types = %v", cfg.Compliance.DefaultTypes)
	}
}

func TestBadFileFallsBackToDefaults(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ADDR", "")
	if cfg := Load(); cfg.Server.Addr != defaultAddr {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}
