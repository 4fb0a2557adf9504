package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config search location at empty temp dirs
func isolate(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	root := t.TempDir()
	home := filepath.Join(root, "home")
	project := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".dialogue"), DefaultDirPermissions))
	require.NoError(t, os.MkdirAll(project, DefaultDirPermissions))

	t.Setenv("HOME", home)
	t.Chdir(project)

	prev := systemConfigPath
	systemConfigPath = filepath.Join(root, "etc", ConfigFileName)
	t.Cleanup(func() { systemConfigPath = prev })

	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), DefaultDirPermissions))
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Runtime.AutoAdvance)
	assert.Equal(t, 2.0, cfg.Runtime.AutoAdvanceSeconds)
	assert.Equal(t, 2*time.Second, cfg.AutoAdvanceDuration())
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 64, cfg.Runtime.CommandBuffer)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "dialogue.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoadIsCached(t *testing.T) {
	isolate(t)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadPrecedence(t *testing.T) {
	root := isolate(t)

	writeFile(t, filepath.Join(root, "etc", ConfigFileName), `
[runtime]
tick_interval_ms = 10
auto_advance_seconds = 5.0
`)
	writeFile(t, filepath.Join(root, "home", ".dialogue", ConfigFileName), `
[runtime]
tick_interval_ms = 20
`)
	writeFile(t, filepath.Join(root, "project", ConfigFileName), `
[store]
driver = "sqlite"
path = "project.db"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Runtime.AutoAdvanceSeconds, "system file applies when nothing overrides it")
	assert.Equal(t, 20, cfg.Runtime.TickIntervalMS, "user file beats system file")
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "project.db", cfg.Store.Path)
}

func TestProjectConfigFoundFromSubdirectory(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, "project", ConfigFileName), `
[graph]
strict_insert = true
`)
	sub := filepath.Join(root, "project", "scenes", "act1")
	require.NoError(t, os.MkdirAll(sub, DefaultDirPermissions))
	t.Chdir(sub)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Graph.StrictInsert)
}

func TestEnvOverridesFiles(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, "project", ConfigFileName), `
[log]
level = "warn"
`)
	t.Setenv("DIALOGUE_LOG_LEVEL", "debug")
	t.Setenv("DIALOGUE_RUNTIME_AUTO_ADVANCE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Runtime.AutoAdvance)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, "project", ConfigFileName), `
[store]
driver = "postgres"
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, `
[runtime]
auto_advance = true
auto_advance_seconds = 0.5
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.AutoAdvance)
	assert.Equal(t, 500*time.Millisecond, cfg.AutoAdvanceDuration())
	assert.Equal(t, 50, cfg.Runtime.TickIntervalMS, "defaults fill unset keys")
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadWithViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("store.driver", StoreSQLite)
	v.Set("runtime.commands_per_second", 4.0)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 4.0, cfg.Runtime.CommandsPerSecond)
	assert.Equal(t, 8, cfg.Runtime.CommandBurst)
}

func TestGetters(t *testing.T) {
	isolate(t)

	assert.Equal(t, "memory", GetString("store.driver"))
	assert.Equal(t, 50, GetInt("runtime.tick_interval_ms"))
	assert.Equal(t, 2.0, GetFloat64("runtime.auto_advance_seconds"))
	assert.False(t, GetBool("graph.strict_insert"))
	assert.Equal(t, "info", Get("log.level"))

	path, err := GetDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "dialogue.db", path)
}

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero auto advance", mutate: func(c *Config) { c.Runtime.AutoAdvanceSeconds = 0 }},
		{name: "negative auto advance", mutate: func(c *Config) { c.Runtime.AutoAdvanceSeconds = -1 }, wantErr: "runtime.auto_advance_seconds"},
		{name: "zero tick", mutate: func(c *Config) { c.Runtime.TickIntervalMS = 0 }, wantErr: "runtime.tick_interval_ms"},
		{name: "unbuffered commands", mutate: func(c *Config) { c.Runtime.CommandBuffer = 0 }},
		{name: "negative buffer", mutate: func(c *Config) { c.Runtime.CommandBuffer = -1 }, wantErr: "runtime.command_buffer"},
		{name: "negative rate", mutate: func(c *Config) { c.Runtime.CommandsPerSecond = -2 }, wantErr: "runtime.commands_per_second"},
		{name: "rate without burst", mutate: func(c *Config) {
			c.Runtime.CommandsPerSecond = 1
			c.Runtime.CommandBurst = 0
		}, wantErr: "runtime.command_burst"},
		{name: "sqlite", mutate: func(c *Config) { c.Store.Driver = StoreSQLite }},
		{name: "sqlite without path", mutate: func(c *Config) {
			c.Store.Driver = StoreSQLite
			c.Store.Path = ""
		}, wantErr: "store.path"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "store.driver"},
		{name: "empty server addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := defaultConfig(t)
	assert.Equal(t, "Config{Runtime: {AutoAdvance: false, Tick: 50ms}, Store: memory}", cfg.String())
}
