package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Renderer names
const (
	RendererText = "text"
	RendererTUI  = "tui"
)

// Config is the main configuration structure
type Config struct {
	Renderer       string   `json:"renderer,omitempty"`
	Port           string   `json:"port,omitempty"`
	PreferredPorts []string `json:"preferredPorts,omitempty"`
	ExcludedPorts  []string `json:"excludedPorts,omitempty"` // nil uses midi.DefaultExcluded
	Lookback       Duration `json:"lookback,omitempty"`
	FPS            int      `json:"fps,omitempty"`
	Palette        string   `json:"palette,omitempty"`
	Debug          bool     `json:"debug,omitempty"`
}

// Duration is a time.Duration written as "2s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Renderer: RendererTUI,
		Lookback: Duration(2 * time.Second),
		FPS:      20,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-midiroll"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if
// there is none.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values a user can get wrong.
func (c *Config) Validate() error {
	switch c.Renderer {
	case RendererText, RendererTUI:
	default:
		return fmt.Errorf("unknown renderer %q (want %q or %q)", c.Renderer, RendererText, RendererTUI)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps %d out of range 1-240", c.FPS)
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %v", time.Duration(c.Lookback))
	}
	return nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FrameInterval is the time between rendered frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
