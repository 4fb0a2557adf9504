package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	info := Get()
	assert.Equal(t, CommitHash, info.CommitHash)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestFillFromBuild(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "9f8e7d6c5b4a"},
			{Key: "vcs.time", Value: "2026-10-02T09:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	t.Run("unset values are filled", func(t *testing.T) {
		info := Info{CommitHash: "dev", BuildTime: "unknown", Version: "dev"}
		info.fillFromBuild(bi)
		assert.Equal(t, "v0.4.1", info.Version)
		assert.Equal(t, "9f8e7d6c5b4a", info.CommitHash)
		assert.Equal(t, "2026-10-02T09:00:00Z", info.BuildTime)
		assert.True(t, info.Modified)
	})

	t.Run("ldflags win", func(t *testing.T) {
		info := Info{CommitHash: "1a2b3c4d", BuildTime: "2026-10-01", Version: "v0.3.0"}
		info.fillFromBuild(bi)
		assert.Equal(t, "v0.3.0", info.Version)
		assert.Equal(t, "1a2b3c4d", info.CommitHash)
		assert.Equal(t, "2026-10-01", info.BuildTime)
	})

	t.Run("devel module version is ignored", func(t *testing.T) {
		info := Info{Version: "dev"}
		info.fillFromBuild(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
		assert.Equal(t, "dev", info.Version)
	})
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
	assert.Equal(t, "1a2b3c4", Info{CommitHash: "1a2b3c4d5e6f"}.Short())
}

func TestString(t *testing.T) {
	info := Info{Version: "v0.3.0", CommitHash: "1a2b3c4d5e6f", BuildTime: "2026-10-01"}
	assert.Equal(t, "dialogue v0.3.0 (commit 1a2b3c4, built 2026-10-01)", info.String())

	info.Modified = true
	assert.Equal(t, "dialogue v0.3.0 (commit 1a2b3c4+dirty, built 2026-10-01)", info.String())
}
