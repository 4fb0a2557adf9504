package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")
	return cmd
}

func TestShouldOutputJSON(t *testing.T) {
	t.Run("default is human", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		assert.False(t, ShouldOutputJSON(newCmd()))
	})

	t.Run("flag", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(cmd))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		assert.True(t, ShouldOutputJSON(newCmd()))
		assert.True(t, ShouldOutputJSON(nil))
	})

	t.Run("explicit false beats environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(cmd))
	})

	t.Run("command without flag", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		assert.False(t, ShouldOutputJSON(&cobra.Command{Use: "bare"}))
	})
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"nodes": 4}))
	assert.Equal(t, "{\n  \"nodes\": 4\n}\n", buf.String())

	err := OutputJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal JSON")
}
