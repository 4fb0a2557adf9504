package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/teranos/dialogue/errors"
)

// ConfigFileName is the file searched for at every precedence level
const ConfigFileName = "dialogue.toml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "DIALOGUE"

// systemConfigPath is a variable so tests can point it at a temp dir
var systemConfigPath = filepath.Join("/etc", "dialogue", ConfigFileName)

var (
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources maps each dotted key set by a file to the file that set it.
	// Later files overwrite earlier entries, matching merge precedence.
	ConfigSources   = map[string]SourceInfo{}
	configSourcesMu sync.RWMutex
)

// Load reads the dialogue configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
// Environment variables are not consulted.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config from %s", configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil

	configSourcesMu.Lock()
	ConfigSources = map[string]SourceInfo{}
	configSourcesMu.Unlock()
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindEnvVars(v)
	SetDefaults(v)

	// system -> user -> project, env vars above all of them
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for dialogue.toml.
// Returns an empty string when none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

type configPath struct {
	path   string
	source ConfigSource
}

// configPaths lists candidate files lowest precedence first
func configPaths() []configPath {
	paths := []configPath{{path: systemConfigPath, source: SourceSystem}}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, configPath{
			path:   filepath.Join(homeDir, ".dialogue", ConfigFileName),
			source: SourceUser,
		})
	}

	if project := findProjectConfig(); project != "" {
		paths = append(paths, configPath{path: project, source: SourceProject})
	}
	return paths
}

// mergeConfigFiles merges configuration files in precedence order.
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	for _, cp := range configPaths() {
		if _, err := os.Stat(cp.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(cp.path)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap stays below env vars in viper's precedence; v.Set would not
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			recordSource(key, SourceInfo{Source: cp.source, Path: cp.path})
		}
		// ConfigFileUsed reports the highest precedence file merged
		v.SetConfigFile(cp.path)
	}
}

func recordSource(key string, info SourceInfo) {
	configSourcesMu.Lock()
	defer configSourcesMu.Unlock()
	ConfigSources[key] = info
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return initViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return initViper().GetString(key)
}

// GetBool returns a configuration value as bool using dot notation
func GetBool(key string) bool {
	return initViper().GetBool(key)
}

// GetInt returns a configuration value as int using dot notation
func GetInt(key string) int {
	return initViper().GetInt(key)
}

// GetFloat64 returns a configuration value as float64 using dot notation
func GetFloat64(key string) float64 {
	return initViper().GetFloat64(key)
}

// GetDatabasePath returns the configured SQLite path
func GetDatabasePath() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	return config.Store.Path, nil
}
