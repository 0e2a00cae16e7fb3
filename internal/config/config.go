// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
//
// Configuration is TOML, loaded from ~/.relay/config.toml with built-in
// defaults and validation. The empirically-chosen pipeline constants (tie-break
// window, per-character playback delays, queue drain delay) live here rather
// than as hard-coded behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete relay configuration.
type Config struct {
	Version string `toml:"version"`

	Pipeline  PipelineConfig  `toml:"pipeline"`
	Streaming StreamingConfig `toml:"streaming"`
	Citations CitationConfig  `toml:"citations"`
	UI        UIConfig        `toml:"ui"`
}

// PipelineConfig tunes the dispatch queue and chronological insertion.
type PipelineConfig struct {
	// TieBreakWindowMs is the delta under which two message timestamps are
	// treated as simultaneous; within the window arrival order wins.
	TieBreakWindowMs int `toml:"tie_break_window_ms"`

	// DrainDelayMs is the pause between dequeued messages, yielding the
	// execution context back to the render surface.
	DrainDelayMs int `toml:"drain_delay_ms"`

	// SimulateStreaming enables character-by-character playback for complete
	// bot messages that did not arrive as a real stream.
	SimulateStreaming bool `toml:"simulate_streaming"`
}

// StreamingConfig tunes simulated character-by-character playback.
type StreamingConfig struct {
	// CharDelayMinMs/CharDelayMaxMs bound the randomized delay after a
	// non-space character.
	CharDelayMinMs int `toml:"char_delay_min_ms"`
	CharDelayMaxMs int `toml:"char_delay_max_ms"`

	// SpaceDelayMinMs/SpaceDelayMaxMs bound the (shorter) delay after a space.
	SpaceDelayMinMs int `toml:"space_delay_min_ms"`
	SpaceDelayMaxMs int `toml:"space_delay_max_ms"`

	// ProgressIntervalMs rate-limits mid-playback repaint notifications.
	ProgressIntervalMs int `toml:"progress_interval_ms"`
}

// CitationConfig tunes citation presentation.
type CitationConfig struct {
	// SnippetMaxWidth caps the display width of content snippets surfaced in
	// citation tooltips.
	SnippetMaxWidth int `toml:"snippet_max_width"`
}

// UIConfig tunes the terminal client.
type UIConfig struct {
	// WordWrap is the markdown render width.
	WordWrap int `toml:"word_wrap"`

	// ShowCompanion enables the companion response surface.
	ShowCompanion bool `toml:"show_companion"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Pipeline: PipelineConfig{
			TieBreakWindowMs:  1000,
			DrainDelayMs:      10,
			SimulateStreaming: false,
		},
		Streaming: StreamingConfig{
			CharDelayMinMs:     5,
			CharDelayMaxMs:     30,
			SpaceDelayMinMs:    1,
			SpaceDelayMaxMs:    10,
			ProgressIntervalMs: 33,
		},
		Citations: CitationConfig{
			SnippetMaxWidth: 200,
		},
		UI: UIConfig{
			WordWrap:      80,
			ShowCompanion: true,
		},
	}
}

// TieBreakWindow returns the tie-break window as a duration.
func (p PipelineConfig) TieBreakWindow() time.Duration {
	return time.Duration(p.TieBreakWindowMs) * time.Millisecond
}

// DrainDelay returns the inter-message drain delay as a duration.
func (p PipelineConfig) DrainDelay() time.Duration {
	return time.Duration(p.DrainDelayMs) * time.Millisecond
}

// =============================================================================
// LOADING
// =============================================================================

// ConfigPath returns the path of the user config file.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".relay", "config.toml"), nil
}

// Load reads the user config file, merging it over the defaults.
// A missing file is not an error; defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path over the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configured values and returns the first problem found.
func (c *Config) Validate() error {
	if c.Pipeline.TieBreakWindowMs < 0 {
		return fmt.Errorf("pipeline.tie_break_window_ms must be >= 0, got %d", c.Pipeline.TieBreakWindowMs)
	}
	if c.Pipeline.DrainDelayMs < 0 {
		return fmt.Errorf("pipeline.drain_delay_ms must be >= 0, got %d", c.Pipeline.DrainDelayMs)
	}
	if c.Streaming.CharDelayMinMs < 0 || c.Streaming.CharDelayMaxMs < c.Streaming.CharDelayMinMs {
		return fmt.Errorf("streaming.char_delay bounds invalid: min=%d max=%d",
			c.Streaming.CharDelayMinMs, c.Streaming.CharDelayMaxMs)
	}
	if c.Streaming.SpaceDelayMinMs < 0 || c.Streaming.SpaceDelayMaxMs < c.Streaming.SpaceDelayMinMs {
		return fmt.Errorf("streaming.space_delay bounds invalid: min=%d max=%d",
			c.Streaming.SpaceDelayMinMs, c.Streaming.SpaceDelayMaxMs)
	}
	if c.Streaming.ProgressIntervalMs < 0 {
		return fmt.Errorf("streaming.progress_interval_ms must be >= 0, got %d", c.Streaming.ProgressIntervalMs)
	}
	if c.Citations.SnippetMaxWidth <= 0 {
		return fmt.Errorf("citations.snippet_max_width must be > 0, got %d", c.Citations.SnippetMaxWidth)
	}
	if c.UI.WordWrap <= 0 {
		return fmt.Errorf("ui.word_wrap must be > 0, got %d", c.UI.WordWrap)
	}
	return nil
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Global returns the shared config, loading it on first use.
// Load errors fall back to defaults; callers that care about errors use Load.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = DefaultConfig()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal replaces the shared config.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the shared config so tests start clean.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
