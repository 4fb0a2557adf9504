// Package am loads dialogue configuration.
//
// Sources, lowest to highest precedence: built-in defaults,
// /etc/dialogue/dialogue.toml, ~/.dialogue/dialogue.toml, the nearest
// dialogue.toml found walking up from the working directory, and
// DIALOGUE_* environment variables (runtime.auto_advance is
// DIALOGUE_RUNTIME_AUTO_ADVANCE).
package am

import (
	"fmt"
	"time"
)

// Config represents the dialogue configuration
type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime" json:"runtime" yaml:"runtime" toml:"runtime"`
	Graph   GraphConfig   `mapstructure:"graph" json:"graph" yaml:"graph" toml:"graph"`
	Store   StoreConfig   `mapstructure:"store" json:"store" yaml:"store" toml:"store"`
	Server  ServerConfig  `mapstructure:"server" json:"server" yaml:"server" toml:"server"`
	Log     LogConfig     `mapstructure:"log" json:"log" yaml:"log" toml:"log"`
}

// RuntimeConfig configures runners and the driver loop
type RuntimeConfig struct {
	AutoAdvance        bool    `mapstructure:"auto_advance" json:"auto_advance" yaml:"auto_advance" toml:"auto_advance"`                                 // Advance text nodes on a timer
	AutoAdvanceSeconds float64 `mapstructure:"auto_advance_seconds" json:"auto_advance_seconds" yaml:"auto_advance_seconds" toml:"auto_advance_seconds"` // Seconds a text node is shown (default: 2)
	TickIntervalMS     int     `mapstructure:"tick_interval_ms" json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`                 // Driver loop tick (default: 50)
	CommandBuffer      int     `mapstructure:"command_buffer" json:"command_buffer" yaml:"command_buffer" toml:"command_buffer"`                         // Loop command channel capacity
	CommandsPerSecond  float64 `mapstructure:"commands_per_second" json:"commands_per_second" yaml:"commands_per_second" toml:"commands_per_second"`     // Per-owner command rate, 0 = unlimited
	CommandBurst       int     `mapstructure:"command_burst" json:"command_burst" yaml:"command_burst" toml:"command_burst"`                             // Per-owner burst when rate limited
}

// GraphConfig configures graph authoring rules
type GraphConfig struct {
	StrictInsert        bool `mapstructure:"strict_insert" json:"strict_insert" yaml:"strict_insert" toml:"strict_insert"`                                 // Duplicate node ids are errors instead of replacements
	StrictTextBranching bool `mapstructure:"strict_text_branching" json:"strict_text_branching" yaml:"strict_text_branching" toml:"strict_text_branching"` // Text nodes with several outgoing edges fail validation
}

// StoreConfig configures where assets live
type StoreConfig struct {
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver" toml:"driver"` // "memory" or "sqlite"
	Path   string `mapstructure:"path" json:"path" yaml:"path" toml:"path"`         // SQLite database path
}

// ServerConfig configures the websocket host started by "dialogue serve"
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr" yaml:"addr" toml:"addr"`                                             // Listen address (default: 127.0.0.1:8787)
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"` // Empty allows any origin
}

// LogConfig configures logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json" json:"json" yaml:"json" toml:"json"`
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level"` // debug, info, warn, error
}

// Store drivers
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// AutoAdvanceDuration returns the auto-advance wait as a duration
func (c *Config) AutoAdvanceDuration() time.Duration {
	return time.Duration(c.Runtime.AutoAdvanceSeconds * float64(time.Second))
}

// TickInterval returns the driver loop tick as a duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Runtime.TickIntervalMS) * time.Millisecond
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Runtime: {AutoAdvance: %t, Tick: %dms}, Store: %s}",
		c.Runtime.AutoAdvance, c.Runtime.TickIntervalMS, c.Store.Driver)
}
