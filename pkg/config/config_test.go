package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the defaults match the browser viewer's element ids and display size
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Viewer.CanvasID != "nifti-canvas" {
		t.Errorf("Expected canvas id nifti-canvas, got %s", cfg.Viewer.CanvasID)
	}
	if cfg.Viewer.SliderID != "nifti-slider" {
		t.Errorf("Expected slider id nifti-slider, got %s", cfg.Viewer.SliderID)
	}
	if cfg.Viewer.ImageID != "nifti-image" {
		t.Errorf("Expected image id nifti-image, got %s", cfg.Viewer.ImageID)
	}
	if cfg.Viewer.DisplayWidth != 800 || cfg.Viewer.DisplayHeight != 800 {
		t.Errorf("Expected display size 800x800, got %dx%d", cfg.Viewer.DisplayWidth, cfg.Viewer.DisplayHeight)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

// TestLoadConfigMissingFile verifies that a missing file yields the defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Viewer.FlatSlicePolicy != FlatSliceBlack {
		t.Errorf("Expected default policy %s, got %s", FlatSliceBlack, cfg.Viewer.FlatSlicePolicy)
	}
}

// TestLoadConfigOverrides verifies that values in the file replace defaults
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "niftiview.yaml")
	content := `
viewer:
  canvasId: main-canvas
  flatSlicePolicy: midgray
navigation:
  debounceDelay: 40ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Viewer.CanvasID != "main-canvas" {
		t.Errorf("Expected canvas id main-canvas, got %s", cfg.Viewer.CanvasID)
	}
	if cfg.Viewer.SliderID != "nifti-slider" {
		t.Errorf("Expected default slider id to survive, got %s", cfg.Viewer.SliderID)
	}
	if cfg.Viewer.FlatSlicePolicy != FlatSliceMidGray {
		t.Errorf("Expected policy midgray, got %s", cfg.Viewer.FlatSlicePolicy)
	}
	if cfg.Navigation.DebounceDelay != 40*time.Millisecond {
		t.Errorf("Expected debounce delay 40ms, got %v", cfg.Navigation.DebounceDelay)
	}
}

// TestLoadConfigInvalid verifies that invalid files are rejected
func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	badPolicy := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(badPolicy, []byte("viewer:\n  flatSlicePolicy: sparkle\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(badPolicy); err == nil {
		t.Error("Expected error for unknown policy, got nil")
	}

	badKernel := filepath.Join(dir, "kernel.yaml")
	if err := os.WriteFile(badKernel, []byte("viewer:\n  interpolation: lanczos\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(badKernel); err == nil {
		t.Error("Expected error for unknown interpolation kernel, got nil")
	}

	badYAML := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(badYAML, []byte("viewer: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(badYAML); err == nil {
		t.Error("Expected error for malformed YAML, got nil")
	}
}

// TestSaveConfigRoundTrip verifies that a saved default config loads back unchanged
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "niftiview.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Expected round-tripped config to equal defaults, got %+v", cfg)
	}
}
