package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
ipcp:
  name: "ipcp-1"
  dif_name: "dif.test"
  bootstrap: true

shim:
  listen_addr: "0.0.0.0:7632"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown_timeout 10s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.AddressPool.End != 9999 {
		t.Errorf("expected default address pool end 9999, got %d", cfg.AddressPool.End)
	}
	if cfg.IPCP.Name != "ipcp-1" {
		t.Errorf("expected ipcp name 'ipcp-1', got %q", cfg.IPCP.Name)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err == nil {
		t.Fatalf("expected validation error for default config missing required fields, got none")
	}
	if cfg != nil {
		t.Fatalf("expected nil config on validation failure")
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: DEBUG\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for missing ipcp.name/dif_name/shim.listen_addr")
	}
}

func TestLoadInvalidLogLevelRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
ipcp:
  name: "ipcp-1"
  dif_name: "dif.test"
shim:
  listen_addr: "0.0.0.0:7632"
logging:
  level: "NOT_A_LEVEL"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.IPCP.Name = "ipcp-1"
	cfg.IPCP.DIFName = "dif.test"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.IPCP.Name != "ipcp-1" {
		t.Errorf("expected ipcp name 'ipcp-1', got %q", loaded.IPCP.Name)
	}
}
