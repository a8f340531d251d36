package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/epalmerini/rmqtools/internal/index"
)

const (
	configFile         = "config.toml"
	defaultServer      = "http://localhost:3000"
	defaultMaxMessages = 1000
	defaultSplitRatio  = 0.5
	defaultLogLevel    = "info"
	defaultFeedBuffer  = 10000
)

// FileConfig is the TOML file structure.
type FileConfig struct {
	Server      string             `toml:"server"`
	AMQPURL     string             `toml:"amqp_url"`
	MaxMessages int                `toml:"max_messages"`
	DBPath      string             `toml:"db"`
	LogLevel    string             `toml:"log_level"`
	Feed        FeedConfig         `toml:"feed"`
	UI          UIConfig           `toml:"ui"`
	Profiles    map[string]Profile `toml:"profiles"`
}

// FeedConfig holds counter feed settings.
type FeedConfig struct {
	BufferSize        int  `toml:"buffer_size"`
	FailOnDecodeError bool `toml:"fail_on_decode_error"`
}

// UIConfig holds UI-related settings.
type UIConfig struct {
	SplitRatio float64 `toml:"split_ratio"`
	ShowMode   string  `toml:"show_mode"`
	GroupMode  string  `toml:"group_mode"`
}

// Profile is a named connection profile.
type Profile struct {
	Server  string `toml:"server"`
	AMQPURL string `toml:"amqp_url"`
}

// Config is the resolved runtime config after profile selection.
type Config struct {
	Profile     string
	ServerURL   string
	AMQPURL     string
	DBPath      string
	MaxMessages int
	LogLevel    string

	FeedBufferSize    int
	FailOnDecodeError bool

	// UI
	DefaultSplitRatio float64
	ShowMode          index.ShowMode
	GroupMode         index.GroupMode

	// For saving prefs back
	ConfigDir string
}

// MessageLimit returns MaxMessages, falling back to the default if unset.
func (c Config) MessageLimit() int {
	if c.MaxMessages <= 0 {
		return defaultMaxMessages
	}
	return c.MaxMessages
}

// CanPeek reports whether a broker URL is configured for direct peeks.
func (c Config) CanPeek() bool {
	return c.AMQPURL != ""
}

// LoadFileConfig loads config.toml from configDir.
// Returns a zero-value FileConfig (no error) if the file doesn't exist.
func LoadFileConfig(configDir string) (*FileConfig, error) {
	path := filepath.Join(configDir, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve merges a profile (by name) with global config and env vars into a runtime Config.
// If profileName is empty or not found, only global/env settings are used.
// Unknown show or group modes are reported as errors.
func (fc FileConfig) Resolve(profileName string, configDir string) (Config, error) {
	cfg := Config{
		ServerURL:         fc.Server,
		AMQPURL:           fc.AMQPURL,
		DBPath:            fc.DBPath,
		LogLevel:          fc.LogLevel,
		FailOnDecodeError: fc.Feed.FailOnDecodeError,
		ConfigDir:         configDir,
	}

	cfg.MaxMessages = fc.MaxMessages
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.FeedBufferSize = fc.Feed.BufferSize
	if cfg.FeedBufferSize <= 0 {
		cfg.FeedBufferSize = defaultFeedBuffer
	}

	// UI defaults
	cfg.DefaultSplitRatio = fc.UI.SplitRatio
	if cfg.DefaultSplitRatio == 0 {
		cfg.DefaultSplitRatio = defaultSplitRatio
	}
	var err error
	if cfg.ShowMode, err = index.ParseShowMode(fc.UI.ShowMode); err != nil {
		return cfg, fmt.Errorf("ui.show_mode: %w", err)
	}
	if cfg.GroupMode, err = index.ParseGroupMode(fc.UI.GroupMode); err != nil {
		return cfg, fmt.Errorf("ui.group_mode: %w", err)
	}

	// Apply profile overrides
	if p, ok := fc.Profiles[profileName]; ok {
		cfg.Profile = profileName
		if p.Server != "" {
			cfg.ServerURL = p.Server
		}
		if p.AMQPURL != "" {
			cfg.AMQPURL = p.AMQPURL
		}
	}

	// Fall back to env vars if not set by file or profile
	if cfg.ServerURL == "" {
		cfg.ServerURL = os.Getenv("RMQTOOLS_SERVER")
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServer
	}
	if cfg.AMQPURL == "" {
		if u := os.Getenv("AMQP_URL"); u != "" {
			cfg.AMQPURL = u
		} else if u := os.Getenv("RABBITMQ_URL"); u != "" {
			cfg.AMQPURL = u
		}
	}

	return cfg, nil
}

// SaveSplitRatio reads the existing TOML (if any), updates split_ratio, and writes back.
func SaveSplitRatio(configDir string, ratio float64) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(configDir, configFile)

	// Load existing config to preserve other fields
	cfg, err := LoadFileConfig(configDir)
	if err != nil {
		cfg = &FileConfig{}
	}
	cfg.UI.SplitRatio = ratio

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ProfileNames returns a sorted list of profile names.
func (fc FileConfig) ProfileNames() []string {
	names := make([]string, 0, len(fc.Profiles))
	for name := range fc.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
