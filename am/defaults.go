package am

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Runtime defaults
	v.SetDefault("runtime.auto_advance", false)
	v.SetDefault("runtime.auto_advance_seconds", 2.0) // Matches runner.DefaultAutoAdvanceTime
	v.SetDefault("runtime.tick_interval_ms", 50)
	v.SetDefault("runtime.command_buffer", 64)
	v.SetDefault("runtime.commands_per_second", 0.0) // Unlimited
	v.SetDefault("runtime.command_burst", 8)

	// Graph defaults
	v.SetDefault("graph.strict_insert", false)
	v.SetDefault("graph.strict_text_branching", false)

	// Store defaults
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.path", "dialogue.db")

	// Server defaults
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.allowed_origins", []string{})

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// BindEnvVars explicitly binds settings commonly overridden per deployment
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("store.path", "DIALOGUE_STORE_PATH")
	v.BindEnv("store.driver", "DIALOGUE_STORE_DRIVER")
	v.BindEnv("log.level", "DIALOGUE_LOG_LEVEL")
}
