package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BROKER_MODE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port=%s", cfg.Port)
	}
	if cfg.BrokerMode != "paper" {
		t.Fatalf("broker mode=%s, expected paper default", cfg.BrokerMode)
	}
	if cfg.BrokerRateLimit != 10 {
		t.Fatalf("rate limit=%v", cfg.BrokerRateLimit)
	}
}

func TestLoadRejectsUnknownBrokerMode(t *testing.T) {
	t.Setenv("BROKER_MODE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown broker mode")
	}
}

func TestLoadRequiresBaseURLInRestMode(t *testing.T) {
	t.Setenv("BROKER_MODE", "rest")
	t.Setenv("BROKER_BASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for rest mode without base url")
	}

	t.Setenv("BROKER_BASE_URL", "https://api.example.test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BrokerMode != "rest" {
		t.Fatalf("broker mode=%s", cfg.BrokerMode)
	}
}

func TestLoadSymbols(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.yaml")
	content := []byte(`symbols:
  - symbol: ethusdt
    enabled: true
    max_position_size: 2.5
  - symbol: BTCUSDT
    enabled: false
    max_position_size: 0.1
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	policies, err := LoadSymbols(path)
	if err != nil {
		t.Fatalf("LoadSymbols: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("len=%d", len(policies))
	}
	if policies[0].Symbol != "ETHUSDT" {
		t.Fatalf("symbol not normalized: %s", policies[0].Symbol)
	}
	if !policies[0].Enabled || policies[1].Enabled {
		t.Fatalf("enabled flags wrong: %+v", policies)
	}
	if policies[1].MaxPositionSize != 0.1 {
		t.Fatalf("max size=%v", policies[1].MaxPositionSize)
	}
}

func TestLoadSymbolsEmptyPath(t *testing.T) {
	policies, err := LoadSymbols("")
	if err != nil || policies != nil {
		t.Fatalf("policies=%v err=%v", policies, err)
	}
}

func TestLoadSymbolsRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.yaml")
	if err := os.WriteFile(path, []byte("symbols:\n  - enabled: true\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSymbols(path); err == nil {
		t.Fatal("expected error for unnamed symbol")
	}
}
