// Package display chooses between human and JSON command output.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/errors"
)

// OutputEnv forces JSON output for every command when set to "json"
const OutputEnv = "DIALOGUE_OUTPUT"

// ShouldOutputJSON reports whether cmd should print JSON.
// An explicit --json flag wins over the environment.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return os.Getenv(OutputEnv) == "json"
	}

	if flag := cmd.Flags().Lookup("json"); flag != nil && flag.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}

	return os.Getenv(OutputEnv) == "json"
}

// MarshalJSON pretty-prints v
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// OutputJSON writes v to w as indented JSON
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Fprintln(w, string(data))
	return nil
}
