package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"

storage:
  driver: "local"
  localDir: "/tmp/uploads"

platforms:
  tiktok:
    clientID: "tt-key"
    clientSecret: "tt-secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9091 {
		t.Errorf("Expected port 9091, got %d", cfg.Server.Port)
	}

	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}

	if cfg.Storage.Driver != "local" {
		t.Errorf("Expected storage driver local, got %s", cfg.Storage.Driver)
	}

	if cfg.Platforms.TikTok.ClientID != "tt-key" {
		t.Errorf("Expected tiktok client id tt-key, got %s", cfg.Platforms.TikTok.ClientID)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8001\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Worker.Concurrency != 3 {
		t.Errorf("Expected worker concurrency 3, got %d", cfg.Worker.Concurrency)
	}

	if cfg.Upload.MaxFileSize != 500*1024*1024 {
		t.Errorf("Expected 500MB max file size, got %d", cfg.Upload.MaxFileSize)
	}

	if len(cfg.Upload.AllowedExtensions) != 4 {
		t.Errorf("Expected 4 allowed extensions, got %v", cfg.Upload.AllowedExtensions)
	}

	if cfg.Worker.ReconcileAfter != 15*time.Minute {
		t.Errorf("Expected reconcileAfter 15m, got %v", cfg.Worker.ReconcileAfter)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Worker:  WorkerConfig{Concurrency: 0},
		Storage: StorageConfig{Driver: "local"},
		Upload:  UploadConfig{MaxFileSize: 10, MinFileSize: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero concurrency")
	}

	cfg.Worker.Concurrency = 3
	cfg.Storage.Driver = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown storage driver")
	}

	cfg.Storage.Driver = "minio"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
