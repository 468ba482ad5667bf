package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCollectorConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.toml")
	body := `
name = "collector-b"
listen = "127.0.0.1:9999"
keep = 16
cors_origins = [" http://localhost:5173 ", ""]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadCollectorConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "collector-b" || cfg.Listen != "127.0.0.1:9999" || cfg.Keep != 16 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.HTTPAddr != ":9471" {
		t.Fatalf("http_addr default lost: %q", cfg.HTTPAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins: %v", cfg.CorsOrigins)
	}
}

func TestLoadCollectorConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"keep.toml":   "keep = 0\n",
		"listen.toml": "listen = \"\"\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := loadCollectorConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
