package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
)

// ValidateCmd checks dialogue files
var ValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check dialogue files",
	Long: `Check that every edge references existing nodes, the start node exists
and every node is reachable from it.

With --strict, text nodes with more than one outgoing edge are also
rejected. Only the first such edge would ever be followed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var validateStrict bool

func init() {
	ValidateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Reject text nodes with several outgoing edges (default from graph.strict_text_branching)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	strict := validateStrict || cfg.Graph.StrictTextBranching

	failed := 0
	for _, path := range args {
		if err := validateFile(path, cfg, strict); err != nil {
			failed++
			pterm.Error.Printfln("%s: %v", path, err)
			for _, hint := range errors.GetAllHints(err) {
				pterm.Printfln("  %s %s", pterm.Gray("hint:"), hint)
			}
			continue
		}
		pterm.Success.Printfln("%s", path)
	}

	if failed > 0 {
		return errors.Newf("%d of %d dialogue files failed validation", failed, len(args))
	}
	return nil
}

func validateFile(path string, cfg *am.Config, strict bool) error {
	a, err := loadAssetFile(path, cfg)
	if err != nil {
		return err
	}
	logger.Debugw("Validating dialogue",
		logger.FieldPath, path,
		logger.FieldName, a.Name(),
		logger.FieldNodeCount, a.Graph.NodeCount(),
		logger.FieldEdgeCount, a.Graph.EdgeCount())
	return checkGraph(a.Graph, strict)
}
