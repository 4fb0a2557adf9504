package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/errors"
	"gopkg.in/yaml.v3"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and validate configuration",
	Long: `am - Show and validate dialogue configuration

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/dialogue/dialogue.toml)
3. User config (~/.dialogue/dialogue.toml)
4. Project config (./dialogue.toml, searched upward)
5. Environment variables (DIALOGUE_* prefix)

Examples:
  dialogue am show                    # Show current configuration
  dialogue am show --format json      # Show configuration in JSON format
  dialogue am get runtime.tick_interval_ms
  dialogue am where                   # Show where each setting came from
  dialogue am watch                   # Print configuration on every change`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., store.path, runtime.auto_advance)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each setting is loaded from",
	Args:  cobra.NoArgs,
	RunE:  runAmWhere,
}

var amWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the active config file and print each reload",
	Args:  cobra.NoArgs,
	RunE:  runAmWatch,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amWatchCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amWatchCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

// writeConfig renders cfg in one of the supported formats
func writeConfig(w io.Writer, cfg *am.Config, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# dialogue configuration\n%s", data)

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# dialogue configuration\n%s", data)

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	if !am.GetViper().IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	// Load validates, so reaching here means the merged config is valid
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	intro := am.GetConfigIntrospection()

	if intro.ConfigFile != "" {
		pterm.Info.Printfln("Active config file: %s", intro.ConfigFile)
	} else {
		pterm.Info.Println("No config file found, using defaults and environment")
	}

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range intro.Settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runAmWatch(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	path := am.GetConfigIntrospection().ConfigFile
	if path == "" {
		return errors.WithHint(
			errors.New("no config file to watch"),
			"create ./"+am.ConfigFileName)
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	out := cmd.OutOrStdout()
	watcher.OnReload(func(cfg *am.Config) error {
		fmt.Fprintln(out, strings.Repeat("-", 40))
		return writeConfig(out, cfg, configFormat)
	})
	watcher.Start()

	pterm.Info.Printfln("Watching %s (Ctrl-C to stop)", path)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}
