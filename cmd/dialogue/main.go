package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/cmd/dialogue/commands"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Dialogue graphs, runners and playback",
	Long: `dialogue - Author, check and play branching conversations.

A dialogue is a directed graph of text and choice nodes stored as JSON.
Runners walk the graph one node at a time; choice nodes wait for the
player to pick an outgoing edge.

Available commands:
  validate - Check dialogue files for dangling edges and unreachable nodes
  inspect  - Show the nodes and edges of a dialogue file
  play     - Play a dialogue in the terminal
  store    - Import, list, export and delete stored dialogues
  serve    - Serve dialogues to websocket clients
  am       - Show and validate configuration
  version  - Show build information

Examples:
  dialogue validate intro.json
  dialogue play intro.json --auto-advance
  dialogue store import intro.json
  dialogue am show --format yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}

		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		if verbosity > 0 {
			logger.SetLevel(logger.VerbosityToLevel(verbosity))
		} else {
			logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.InspectCmd)
	rootCmd.AddCommand(commands.PlayCmd)
	rootCmd.AddCommand(commands.StoreCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hints := errors.FlattenHints(err); hints != "" {
			fmt.Fprintln(os.Stderr, "hint:", hints)
		}
		os.Exit(1)
	}
}
