package gateway

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConnectionConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nimbus.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConnectionConfig(t, `{
		"base_url": "https://api.nimbus.example",
		"organization_id": "org-1",
		"client_id": "client-1",
		"client_secret": "secret",
		"token_url": "https://auth.nimbus.example/token",
		"scopes": ["platform"]
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "https://api.nimbus.example" || cfg.OrganizationID != "org-1" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != "platform" {
		t.Errorf("Unexpected scopes: %v", cfg.Scopes)
	}
}

func TestLoadConfig_MissingRequiredField(t *testing.T) {
	path := writeConnectionConfig(t, `{
		"base_url": "https://api.nimbus.example",
		"organization_id": "org-1"
	}`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected error for incomplete config, got nil")
	}
}

func TestLoadConfig_InvalidURL(t *testing.T) {
	path := writeConnectionConfig(t, `{
		"base_url": "not a url",
		"organization_id": "org-1",
		"client_id": "client-1",
		"client_secret": "secret",
		"token_url": "https://auth.nimbus.example/token"
	}`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected error for invalid base URL, got nil")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
}
