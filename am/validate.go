package am

import (
	"github.com/teranos/dialogue/errors"
	"go.uber.org/zap/zapcore"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Auto-advance: 0 advances on the first tick, negative is invalid
	if c.Runtime.AutoAdvanceSeconds < 0 {
		return errors.Newf("runtime.auto_advance_seconds must be >= 0, got %g", c.Runtime.AutoAdvanceSeconds)
	}

	// The driver loop needs a real tick
	if c.Runtime.TickIntervalMS <= 0 {
		return errors.Newf("runtime.tick_interval_ms must be > 0, got %d", c.Runtime.TickIntervalMS)
	}

	// Command buffer: 0 = unbuffered, negative = invalid
	if c.Runtime.CommandBuffer < 0 {
		return errors.Newf("runtime.command_buffer must be >= 0, got %d", c.Runtime.CommandBuffer)
	}

	// Rate limiting: 0 = unlimited, negative = invalid
	if c.Runtime.CommandsPerSecond < 0 {
		return errors.Newf("runtime.commands_per_second must be >= 0, got %g", c.Runtime.CommandsPerSecond)
	}
	if c.Runtime.CommandsPerSecond > 0 && c.Runtime.CommandBurst < 1 {
		return errors.Newf("runtime.command_burst must be >= 1 when rate limited, got %d", c.Runtime.CommandBurst)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path cannot be empty when store.driver is sqlite")
		}
	default:
		return errors.WithHintf(
			errors.Newf("store.driver %q is not supported", c.Store.Driver),
			"use %q or %q", StoreMemory, StoreSQLite)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Newf("log.level %q is not a valid level", c.Log.Level)
	}

	return nil
}
