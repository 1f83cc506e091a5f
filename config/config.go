package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// OutputConfig defines the MIDI output the player sends to
type OutputConfig struct {
	PortName string `json:"portName,omitempty"`
}

// LearningConfig holds the preference learner knobs
type LearningConfig struct {
	ExplorationLevel float64 `json:"explorationLevel"`
	Context          string  `json:"context,omitempty"`
}

// PlaybackConfig stores playback preferences
type PlaybackConfig struct {
	BPMMin float64 `json:"bpmMin"`
	BPMMax float64 `json:"bpmMax"`
	Volume float64 `json:"volume"`
}

// Config is the main configuration structure
type Config struct {
	Output      OutputConfig   `json:"output,omitempty"`
	Learning    LearningConfig `json:"learning"`
	Playback    PlaybackConfig `json:"playback"`
	DataDir     string         `json:"dataDir,omitempty"`
	PaletteFile string         `json:"paletteFile,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Learning: LearningConfig{
			ExplorationLevel: 0.3,
		},
		Playback: PlaybackConfig{
			BPMMin: 60,
			BPMMax: 102,
			Volume: 0.8,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "seedtone"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Environment variables (optionally from a .env file) override the file.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err == nil {
		data, readErr := os.ReadFile(path)
		switch {
		case readErr == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		case !os.IsNotExist(readErr):
			return nil, readErr
		}
	}

	godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SEEDTONE_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("SEEDTONE_MIDI_PORT"); v != "" {
		c.Output.PortName = v
	}
	if v := os.Getenv("SEEDTONE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SEEDTONE_CONTEXT"); v != "" {
		c.Learning.Context = v
	}
	if v := os.Getenv("SEEDTONE_PALETTE"); v != "" {
		c.PaletteFile = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SEEDTONE_EXPLORATION"), 64); err == nil {
		c.Learning.ExplorationLevel = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SEEDTONE_BPM_MIN"), 64); err == nil {
		c.Playback.BPMMin = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SEEDTONE_BPM_MAX"), 64); err == nil {
		c.Playback.BPMMax = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SEEDTONE_VOLUME"), 64); err == nil {
		c.Playback.Volume = v
	}
}

// Validate rejects out-of-range settings rather than silently clamping
func (c *Config) Validate() error {
	if c.Learning.ExplorationLevel < 0 || c.Learning.ExplorationLevel > 1 {
		return fmt.Errorf("exploration level %.2f out of range [0, 1]", c.Learning.ExplorationLevel)
	}
	if c.Playback.BPMMin <= 0 || c.Playback.BPMMax <= 0 {
		return fmt.Errorf("BPM bounds must be positive")
	}
	if c.Playback.BPMMin > c.Playback.BPMMax {
		return fmt.Errorf("BPM minimum %.0f exceeds maximum %.0f", c.Playback.BPMMin, c.Playback.BPMMax)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		return fmt.Errorf("volume %.2f out of range [0, 1]", c.Playback.Volume)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// StorePath returns the preference store file location
func (c *Config) StorePath() (string, error) {
	dir := c.DataDir
	if dir == "" {
		var err error
		dir, err = ConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "preferences.json"), nil
}
