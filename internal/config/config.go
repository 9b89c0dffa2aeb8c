// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lumen.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.lumen/config.toml (or $LUMEN_DATA_DIR).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lumen configuration.
type Config struct {
	Version string `toml:"version"`

	Provider    ProviderConfig    `toml:"provider"`
	Generation  GenerationConfig  `toml:"generation"`
	Persistence PersistenceConfig `toml:"persistence"`
	Preview     PreviewConfig     `toml:"preview"`
	Image       ImageConfig       `toml:"image"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	// Mode selects the provider instruction profile: "gemini", "deepseek",
	// or "openai". The transport is the same; the mode only changes the
	// system instruction sent on context creation.
	Mode string `toml:"mode"`
	// APIKey authenticates against the hosted backend.
	APIKey string `toml:"api_key"`
	// BaseURL is the API endpoint root.
	BaseURL string `toml:"base_url"`
	// ChatModel is the streaming chat model.
	ChatModel string `toml:"chat_model"`
	// ImageModel is the image generation model.
	ImageModel string `toml:"image_model"`
}

// GenerationConfig holds default sampling parameters for new sessions.
type GenerationConfig struct {
	Temperature  float64 `toml:"temperature"`
	TopK         int     `toml:"top_k"`
	TopP         float64 `toml:"top_p"`
	DeepThinking bool    `toml:"deep_thinking"`
}

// PersistenceConfig controls the session auto-save scheduler and the
// storage backend.
type PersistenceConfig struct {
	// AutoSaveIntervalSecs is the periodic snapshot interval (default 30).
	AutoSaveIntervalSecs int `toml:"auto_save_interval_secs"`
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend"`
}

// PreviewConfig controls the sandboxed live preview server.
type PreviewConfig struct {
	// ListenAddr is the loopback address the preview server binds to.
	ListenAddr string `toml:"listen_addr"`
}

// ImageConfig holds image generation defaults.
type ImageConfig struct {
	AspectRatio    string `toml:"aspect_ratio"`
	StylePreset    string `toml:"style_preset"`
	NegativePrompt string `toml:"negative_prompt"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Provider: ProviderConfig{
			Mode:       "gemini",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			ChatModel:  "gemini-2.5-flash",
			ImageModel: "gemini-2.5-flash-image",
		},
		Generation: GenerationConfig{
			Temperature: 1.0,
			TopK:        64,
			TopP:        0.95,
		},
		Persistence: PersistenceConfig{
			AutoSaveIntervalSecs: 30,
			Backend:              "file",
		},
		Preview: PreviewConfig{
			ListenAddr: "127.0.0.1:8790",
		},
		Image: ImageConfig{
			AspectRatio: "1:1",
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

var (
	loadMu sync.Mutex
)

// DataDir returns the lumen data directory, honoring $LUMEN_DATA_DIR.
func DataDir() (string, error) {
	if dir := os.Getenv("LUMEN_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lumen"), nil
}

// Path returns the config file path inside the data directory.
func Path() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, applies env overrides, and validates. A
// missing file yields the defaults; a malformed file is an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a specific config file path.
func LoadFrom(path string) (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies LUMEN_* environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LUMEN_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("LUMEN_PROVIDER_MODE"); v != "" {
		c.Provider.Mode = v
	}
	if v := os.Getenv("LUMEN_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("LUMEN_AUTOSAVE_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Persistence.AutoSaveIntervalSecs = secs
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var validModes = map[string]bool{
	"gemini":   true,
	"deepseek": true,
	"openai":   true,
}

var validBackends = map[string]bool{
	"file":   true,
	"sqlite": true,
}

// Validate checks ranges and enumerations, clamping nothing: out-of-range
// values are configuration errors.
func (c *Config) Validate() error {
	if !validModes[c.Provider.Mode] {
		return fmt.Errorf("invalid provider mode %q: must be gemini, deepseek, or openai", c.Provider.Mode)
	}
	if !validBackends[c.Persistence.Backend] {
		return fmt.Errorf("invalid persistence backend %q: must be file or sqlite", c.Persistence.Backend)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Generation.Temperature)
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		return fmt.Errorf("top_p %.2f out of range [0, 1]", c.Generation.TopP)
	}
	if c.Generation.TopK < 1 {
		return fmt.Errorf("top_k %d must be positive", c.Generation.TopK)
	}
	if c.Persistence.AutoSaveIntervalSecs < 1 {
		return fmt.Errorf("auto_save_interval_secs %d must be positive", c.Persistence.AutoSaveIntervalSecs)
	}
	return nil
}

// Save writes the config back to its default location.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
