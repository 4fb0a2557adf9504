package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/display"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
)

// StoreCmd manages dialogues kept in the SQLite asset database
var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage stored dialogues",
	Long: `Manage dialogues kept in the SQLite asset database (store.path).

Examples:
  dialogue store import intro.json              # Store under a new handle
  dialogue store import intro.json --handle h1  # Create or replace h1
  dialogue store list
  dialogue store export h1 > intro.json
  dialogue store delete h1`,
}

var storeImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a dialogue file and store it",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreImport,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored dialogues",
	Args:  cobra.NoArgs,
	RunE:  runStoreList,
}

var storeExportCmd = &cobra.Command{
	Use:   "export <handle>",
	Short: "Print a stored dialogue as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreExport,
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <handle>",
	Short: "Delete a stored dialogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreDelete,
}

var (
	storeDBPath  string
	importHandle string
)

func init() {
	StoreCmd.PersistentFlags().StringVar(&storeDBPath, "db", "", "Database path (default from store.path)")
	storeListCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	storeImportCmd.Flags().StringVar(&importHandle, "handle", "", "Handle to store under (default: new UUID)")

	StoreCmd.AddCommand(storeImportCmd)
	StoreCmd.AddCommand(storeListCmd)
	StoreCmd.AddCommand(storeExportCmd)
	StoreCmd.AddCommand(storeDeleteCmd)
}

func openAssetStore() (*asset.SQLiteStore, func(), error) {
	database, err := openDatabase(storeDBPath)
	if err != nil {
		return nil, nil, err
	}
	store := asset.NewSQLiteStore(database, logger.ComponentLogger("store"))
	return store, func() { database.Close() }, nil
}

func runStoreImport(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	a, err := loadAssetFile(args[0], cfg)
	if err != nil {
		return err
	}
	if err := checkGraph(a.Graph, cfg.Graph.StrictTextBranching); err != nil {
		return errors.Wrapf(err, "refusing to store %s", args[0])
	}

	store, closeStore, err := openAssetStore()
	if err != nil {
		return err
	}
	defer closeStore()

	h := asset.Handle(importHandle)
	if h == "" {
		h = asset.NewHandle()
	}
	if err := store.Save(cmd.Context(), h, a); err != nil {
		return err
	}

	pterm.Success.Printfln("Stored %s as %s", args[0], h)
	return nil
}

func runStoreList(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openAssetStore()
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		if records == nil {
			records = []asset.Record{}
		}
		return display.OutputJSON(cmd.OutOrStdout(), records)
	}
	if len(records) == 0 {
		pterm.Info.Println("No stored dialogues")
		return nil
	}

	data := pterm.TableData{{"Handle", "Name", "Updated"}}
	for _, r := range records {
		data = append(data, []string{string(r.Handle), r.Name, r.UpdatedAt.Local().Format("2006-01-02 15:04:05")})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openAssetStore()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := store.Load(cmd.Context(), asset.Handle(args[0]))
	if err != nil {
		return err
	}
	return display.OutputJSON(cmd.OutOrStdout(), a)
}

func runStoreDelete(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openAssetStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Delete(cmd.Context(), asset.Handle(args[0])); err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted %s", args[0])
	return nil
}
