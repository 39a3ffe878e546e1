// Package config provides configuration loading and management for niftiview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"niftiview/pkg/window"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for windowing large slices
		NumCores int `yaml:"numCores"`

		// ParallelThreshold is the pixel count at which windowing is split across cores
		ParallelThreshold int `yaml:"parallelThreshold"`
	} `yaml:"processing"`

	// Window parameters
	Window struct {
		// DefaultWidth is paired with the auto-computed center at load time
		DefaultWidth float64 `yaml:"defaultWidth"`

		// AutoSampleLimit caps how many samples feed the auto window
		AutoSampleLimit int `yaml:"autoSampleLimit"`

		// AutoFloor excludes padding and air below this intensity from the auto window
		AutoFloor float64 `yaml:"autoFloor"`

		// MinWidth is the narrowest window accepted
		MinWidth float64 `yaml:"minWidth"`

		// Presets adds or overrides named window presets
		Presets map[string]window.Setting `yaml:"presets,omitempty"`
	} `yaml:"window"`

	// Playback parameters
	Playback struct {
		// IntervalMs is the cine frame interval in milliseconds
		IntervalMs int `yaml:"intervalMs"`
	} `yaml:"playback"`

	// View parameters
	View struct {
		MinZoom float64 `yaml:"minZoom"`
		MaxZoom float64 `yaml:"maxZoom"`
	} `yaml:"view"`

	// Output parameters
	Output struct {
		// Format is the exported image format, png or jpeg
		Format string `yaml:"format"`

		// JPEGQuality is used when Format is jpeg
		JPEGQuality int `yaml:"jpegQuality"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.ParallelThreshold = 512 * 512

	auto := window.DefaultAutoOptions()
	cfg.Window.DefaultWidth = auto.Width
	cfg.Window.AutoSampleLimit = auto.SampleLimit
	cfg.Window.AutoFloor = auto.Floor
	cfg.Window.MinWidth = window.MinWidth

	cfg.Playback.IntervalMs = 150

	cfg.View.MinZoom = 0.5
	cfg.View.MaxZoom = 3.0

	cfg.Output.Format = "png"
	cfg.Output.JPEGQuality = 90
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that values are usable
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Window.DefaultWidth <= 0 {
		return fmt.Errorf("window.defaultWidth must be positive, got %g", c.Window.DefaultWidth)
	}
	if c.Window.MinWidth <= 0 {
		return fmt.Errorf("window.minWidth must be positive, got %g", c.Window.MinWidth)
	}
	if c.Playback.IntervalMs <= 0 {
		return fmt.Errorf("playback.intervalMs must be positive, got %d", c.Playback.IntervalMs)
	}
	if c.View.MinZoom <= 0 || c.View.MaxZoom < c.View.MinZoom {
		return fmt.Errorf("view zoom range [%g, %g] is invalid", c.View.MinZoom, c.View.MaxZoom)
	}
	switch c.Output.Format {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("output.format must be png or jpeg, got %q", c.Output.Format)
	}
	for name, s := range c.Window.Presets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("window preset %q: %w", name, err)
		}
	}
	return nil
}

// Interval returns the playback interval as a duration
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Playback.IntervalMs) * time.Millisecond
}

// AutoOptions returns the auto-window settings
func (c *Config) AutoOptions() window.AutoOptions {
	opts := window.DefaultAutoOptions()
	opts.Width = c.Window.DefaultWidth
	opts.SampleLimit = c.Window.AutoSampleLimit
	opts.Floor = c.Window.AutoFloor
	return opts
}

// Presets returns the built-in presets merged with the configured ones
func (c *Config) Presets() window.Presets {
	return window.DefaultPresets().Merge(c.Window.Presets)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
