package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waterlog.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := writeConfig(t, `
http:
  listen_addr: ":9090"
ingest:
  listen_addr: ":7070"
storage:
  backend: postgres
  postgres:
    connection_string: "host=localhost dbname=waterlog"
auth:
  admin_password: hunter2
`)

	cfg, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %s", cfg.HTTP.ListenAddr)
	}
	if cfg.Ingest.ListenAddr != ":7070" {
		t.Errorf("Ingest.ListenAddr = %s", cfg.Ingest.ListenAddr)
	}
	if cfg.Storage.Backend != "postgres" {
		t.Errorf("Backend = %s", cfg.Storage.Backend)
	}
	if cfg.Auth.AdminPassword != "hunter2" {
		t.Errorf("AdminPassword = %s", cfg.Auth.AdminPassword)
	}
}

func TestYAMLProviderDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  admin_password: hunter2
`)

	cfg, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %s", cfg.HTTP.ListenAddr)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("default Backend = %s", cfg.Storage.Backend)
	}
	if cfg.Storage.SQLite.Path != "waterlog.db" {
		t.Errorf("default SQLite path = %s", cfg.Storage.SQLite.Path)
	}
}

func TestYAMLProviderRequiresPassword(t *testing.T) {
	path := writeConfig(t, `
http:
  listen_addr: ":9090"
`)

	if _, err := NewYAMLProvider(path).LoadConfig(); err == nil {
		t.Fatal("expected error for missing admin password")
	}
}
