package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfigMissingFile verifies defaults are returned when no file exists
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults, got error: %v", err)
	}
	if cfg.Interval() != 150*time.Millisecond {
		t.Errorf("Expected 150ms interval, got %v", cfg.Interval())
	}
	if cfg.Window.DefaultWidth != 800 {
		t.Errorf("Expected default width 800, got %f", cfg.Window.DefaultWidth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

// TestLoadConfigOverrides verifies YAML values override defaults and presets merge
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "niftiview.yaml")
	content := `
playback:
  intervalMs: 80
window:
  defaultWidth: 400
  presets:
    cardiac:
      center: 200
      width: 600
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Interval() != 80*time.Millisecond {
		t.Errorf("Expected 80ms interval, got %v", cfg.Interval())
	}
	if cfg.AutoOptions().Width != 400 {
		t.Errorf("Expected auto width 400, got %f", cfg.AutoOptions().Width)
	}
	if cfg.Window.AutoSampleLimit != 100000 {
		t.Errorf("Expected untouched sample limit 100000, got %d", cfg.Window.AutoSampleLimit)
	}

	s, err := cfg.Presets().Lookup("cardiac")
	if err != nil || s.Width != 600 {
		t.Errorf("Expected cardiac preset width 600, got %v (err %v)", s, err)
	}
	if _, err := cfg.Presets().Lookup("bone"); err != nil {
		t.Errorf("Expected built-in presets to survive the merge, got %v", err)
	}
}

// TestLoadConfigRejectsInvalid verifies bad values are reported
func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("window:\n  presets:\n    flat:\n      center: 0\n      width: 0\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for zero-width preset, got nil")
	}

	if err := os.WriteFile(path, []byte("output: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error, got nil")
	}
}

// TestSaveConfigRoundTrip verifies a saved default config loads back unchanged
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "niftiview.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	def := DefaultConfig()
	if cfg.Processing.NumCores != def.Processing.NumCores || cfg.View.MaxZoom != def.View.MaxZoom {
		t.Errorf("Expected saved defaults to load back, got %+v", cfg)
	}
}
