// Package config provides configuration loading and management for niftiview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"niftiview/pkg/interpolation"
)

// Flat slice policies. A slice is flat when all of its voxels share one value.
const (
	FlatSliceBlack   = "black"
	FlatSliceMidGray = "midgray"
	FlatSliceReject  = "reject"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Viewer parameters
	Viewer struct {
		// CanvasID, SliderID and ImageID name the elements the viewer binds on load
		CanvasID string `yaml:"canvasId"`
		SliderID string `yaml:"sliderId"`
		ImageID  string `yaml:"imageId"`

		// DisplayWidth and DisplayHeight are the size of the mirrored image element
		DisplayWidth  int `yaml:"displayWidth"`
		DisplayHeight int `yaml:"displayHeight"`

		// FlatSlicePolicy selects how a slice with max == min is drawn
		FlatSlicePolicy string `yaml:"flatSlicePolicy"`

		// Interpolation is the kernel used to scale snapshots to the display size
		Interpolation string `yaml:"interpolation"`

		// FrameCacheSize is the number of rendered slices kept per viewer, 0 disables the cache
		FrameCacheSize int `yaml:"frameCacheSize"`
	} `yaml:"viewer"`

	// Input parameters
	Input struct {
		// MaxDecompressedBytes caps the size of an inflated .nii.gz payload, 0 means no cap
		MaxDecompressedBytes int64 `yaml:"maxDecompressedBytes"`
	} `yaml:"input"`

	// Navigation parameters
	Navigation struct {
		// DebounceDelay delays snapshot writes while navigating
		DebounceDelay time.Duration `yaml:"debounceDelay"`
	} `yaml:"navigation"`

	// Output parameters
	Output struct {
		// Dir is the directory slice images are written to
		Dir string `yaml:"dir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Viewer.CanvasID = "nifti-canvas"
	cfg.Viewer.SliderID = "nifti-slider"
	cfg.Viewer.ImageID = "nifti-image"
	cfg.Viewer.DisplayWidth = 800
	cfg.Viewer.DisplayHeight = 800
	cfg.Viewer.FlatSlicePolicy = FlatSliceBlack
	cfg.Viewer.Interpolation = string(interpolation.Nearest)
	cfg.Viewer.FrameCacheSize = 64

	cfg.Input.MaxDecompressedBytes = 2 << 30

	cfg.Navigation.DebounceDelay = 150 * time.Millisecond

	cfg.Output.Dir = "slices"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	switch c.Viewer.FlatSlicePolicy {
	case FlatSliceBlack, FlatSliceMidGray, FlatSliceReject:
	default:
		return fmt.Errorf("unknown flat slice policy %q", c.Viewer.FlatSlicePolicy)
	}
	if _, err := interpolation.ParseKernel(c.Viewer.Interpolation); err != nil {
		return err
	}
	if c.Viewer.CanvasID == "" || c.Viewer.SliderID == "" || c.Viewer.ImageID == "" {
		return fmt.Errorf("element ids must not be empty")
	}
	if c.Viewer.DisplayWidth <= 0 || c.Viewer.DisplayHeight <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d",
			c.Viewer.DisplayWidth, c.Viewer.DisplayHeight)
	}
	if c.Viewer.FrameCacheSize < 0 {
		return fmt.Errorf("frame cache size must not be negative")
	}
	if c.Input.MaxDecompressedBytes < 0 {
		return fmt.Errorf("max decompressed bytes must not be negative")
	}
	if c.Navigation.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay must not be negative")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
