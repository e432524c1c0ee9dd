// Package config loads and watches the coordinator's configuration and owns
// the persistent store for the shared plugin configuration object.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default timing values.
const (
	DefaultRateLimit     = 30
	DefaultRateWindow    = time.Second
	DefaultReadyInterval = 100 * time.Millisecond
	DefaultReadyMaxWait  = 5 * time.Second
	DefaultCallTimeout   = 30 * time.Second
)

// Config is the coordinator's startup configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Security SecurityConfig `toml:"security"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Plugins  PluginsConfig  `toml:"plugins"`
	Notes    NotesConfig    `toml:"notes"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `toml:"json"`
}

// SecurityConfig controls the request guard.
type SecurityConfig struct {
	// AllowedSenders lists sender contexts accepted by the guard. Empty
	// means the built-in context names.
	AllowedSenders []string `toml:"allowed_senders"`

	// RateLimit caps requests per sender per window. Zero disables.
	RateLimit int `toml:"rate_limit"`

	// RateWindow is the trailing window the limit applies to.
	RateWindow time.Duration `toml:"rate_window"`

	// DebugLog enables redacted request logging.
	DebugLog bool `toml:"debug_log"`
}

// BridgeConfig controls RPC bridge timing.
type BridgeConfig struct {
	// CallTimeout bounds how long a call waits for its callback.
	CallTimeout time.Duration `toml:"call_timeout"`

	// ReadyInterval is the readiness probe interval.
	ReadyInterval time.Duration `toml:"ready_interval"`

	// ReadyMaxWait bounds the total readiness wait.
	ReadyMaxWait time.Duration `toml:"ready_max_wait"`

	// QueueUntilReady queues early calls instead of failing fast.
	QueueUntilReady bool `toml:"queue_until_ready"`
}

// PluginsConfig controls plugin loading.
type PluginsConfig struct {
	// BundledBase is the base location for bundled plugin sources.
	BundledBase string `toml:"bundled_base"`

	// LibraryBase is the base location for lib/ prefixed sources.
	LibraryBase string `toml:"library_base"`

	// AllowedHosts lists hosts remote plugin URLs may name.
	AllowedHosts []string `toml:"allowed_hosts"`

	// Autoload lists plugins loaded at startup.
	Autoload []string `toml:"autoload"`

	// Selected names the plugin used for lookups.
	Selected string `toml:"selected"`
}

// NotesConfig controls flashcard note creation.
type NotesConfig struct {
	// Deck is the destination deck name.
	Deck string `toml:"deck"`

	// Model is the note type name.
	Model string `toml:"model"`

	// Tags are attached to every created note.
	Tags []string `toml:"tags"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Security: SecurityConfig{
			RateLimit:  DefaultRateLimit,
			RateWindow: DefaultRateWindow,
		},
		Bridge: BridgeConfig{
			CallTimeout:   DefaultCallTimeout,
			ReadyInterval: DefaultReadyInterval,
			ReadyMaxWait:  DefaultReadyMaxWait,
		},
		Plugins: PluginsConfig{
			BundledBase: "plugins",
			LibraryBase: "plugins/lib",
		},
		Notes: NotesConfig{Deck: "Default", Model: "Basic"},
	}
}

// Load reads a TOML configuration file, layered over defaults. A missing
// file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that would misbehave silently at runtime.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValueError{Field: "log.level", Message: "must be debug, info, warn, or error"}
	}
	if c.Security.RateLimit < 0 {
		return &ValueError{Field: "security.rate_limit", Message: "must not be negative"}
	}
	if c.Security.RateWindow < 0 {
		return &ValueError{Field: "security.rate_window", Message: "must not be negative"}
	}
	if c.Bridge.ReadyInterval < 0 || c.Bridge.ReadyMaxWait < 0 || c.Bridge.CallTimeout < 0 {
		return &ValueError{Field: "bridge", Message: "durations must not be negative"}
	}
	return nil
}
