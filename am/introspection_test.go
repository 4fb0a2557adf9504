package am

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospectionSources(t *testing.T) {
	root := isolate(t)
	userFile := filepath.Join(root, "home", ".dialogue", ConfigFileName)
	projectFile := filepath.Join(root, "project", ConfigFileName)

	writeFile(t, userFile, `
[runtime]
tick_interval_ms = 25
command_buffer = 8
`)
	writeFile(t, projectFile, `
[runtime]
command_buffer = 16
`)
	t.Setenv("DIALOGUE_LOG_LEVEL", "error")

	_, err := Load()
	require.NoError(t, err)

	info := GetConfigIntrospection()
	resolved, err := filepath.EvalSymlinks(projectFile)
	require.NoError(t, err)
	used, err := filepath.EvalSymlinks(info.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, resolved, used)

	tests := []struct {
		key    string
		source ConfigSource
	}{
		{key: "runtime.tick_interval_ms", source: SourceUser},
		{key: "runtime.command_buffer", source: SourceProject},
		{key: "log.level", source: SourceEnvironment},
		{key: "store.driver", source: SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setting, ok := info.Setting(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.source, setting.Source)
		})
	}

	tick, _ := info.Setting("runtime.tick_interval_ms")
	assert.Equal(t, userFile, tick.SourcePath)
	level, _ := info.Setting("log.level")
	assert.Equal(t, "DIALOGUE_LOG_LEVEL", level.SourcePath)
}

func TestIntrospectionSortedKeys(t *testing.T) {
	isolate(t)

	info := GetConfigIntrospection()
	require.NotEmpty(t, info.Settings)
	for i := 1; i < len(info.Settings); i++ {
		assert.Less(t, info.Settings[i-1].Key, info.Settings[i].Key)
	}
	_, ok := info.Setting("nope.missing")
	assert.False(t, ok)
}
