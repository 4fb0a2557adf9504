package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/driver"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
	"github.com/teranos/dialogue/server"
)

// ServeCmd hosts dialogues for websocket clients
var ServeCmd = &cobra.Command{
	Use:   "serve [file]...",
	Short: "Serve dialogues to websocket clients",
	Long: `Serve dialogues to websocket clients on /ws, with Prometheus metrics on
/metrics and a health check on /healthz.

With store.driver = "memory" the dialogue files given as arguments are
served, each under its file name without extension. With store.driver =
"sqlite" every stored dialogue is served under its handle.

Examples:
  dialogue serve intro.json shop.json
  dialogue serve --addr :9000 intro.json
  DIALOGUE_STORE_DRIVER=sqlite dialogue serve`,
	RunE: runServe,
}

var serveAddr string

func init() {
	ServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, handles, closeStore, err := serveStore(ctx, cfg, args)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(handles) == 0 {
		pterm.Warning.Println("No dialogues loaded; clients will not be able to start anything")
	} else {
		data := pterm.TableData{{"Handle", "Name"}}
		for _, h := range handles {
			a, _ := store.Get(h)
			data = append(data, []string{string(h), a.Name()})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return errors.Wrap(err, "failed to render dialogues")
		}
	}

	d := driver.New(store, driverOptions(cfg)...)
	loop := driver.NewLoopWithContext(ctx, d, driver.LoopConfig{
		TickInterval:       cfg.TickInterval(),
		CommandBuffer:      cfg.Runtime.CommandBuffer,
		NotificationBuffer: driver.DefaultLoopConfig().NotificationBuffer,
	}, logger.ComponentLogger("loop"))
	loop.Start()
	defer loop.Stop()

	srv := server.New(loop, store,
		server.WithLogger(logger.ComponentLogger("server")),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins))
	srv.Start()
	defer srv.Stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	pterm.Info.Printfln("Listening on ws://%s/ws (Ctrl-C to stop)", addr)
	return server.ListenAndServe(ctx, addr, srv.Handler(), logger.ComponentLogger("server"))
}

// driverOptions builds driver options from configuration
func driverOptions(cfg *am.Config) []driver.Option {
	opts := []driver.Option{driver.WithLogger(logger.ComponentLogger("driver"))}
	if cfg.Runtime.AutoAdvance {
		opts = append(opts, driver.WithAutoAdvance(cfg.AutoAdvanceDuration()))
	}
	if cfg.Runtime.CommandsPerSecond > 0 {
		opts = append(opts, driver.WithCommandRateLimit(rate.Limit(cfg.Runtime.CommandsPerSecond), cfg.Runtime.CommandBurst))
	}
	return opts
}

// serveStore loads the dialogues to serve and returns their handles
func serveStore(ctx context.Context, cfg *am.Config, files []string) (asset.Store, []asset.Handle, func(), error) {
	if cfg.Store.Driver == am.StoreSQLite {
		if len(files) > 0 {
			return nil, nil, nil, errors.WithHint(
				errors.New("dialogue files cannot be served with store.driver = sqlite"),
				"import them with 'dialogue store import' first")
		}
		return serveStoredAssets(ctx, cfg)
	}

	store := asset.NewMemoryStore()
	for _, path := range files {
		a, err := loadAssetFile(path, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := checkGraph(a.Graph, cfg.Graph.StrictTextBranching); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "refusing to serve %s", path)
		}
		h := fileHandle(path)
		if _, exists := store.Get(h); exists {
			return nil, nil, nil, errors.Newf("two dialogue files map to handle %q", h)
		}
		store.Put(h, a)
	}
	return store, store.Handles(), func() {}, nil
}

// serveStoredAssets copies every valid stored dialogue into a memory store.
// Graphs that fail validation are skipped so clients cannot start them.
func serveStoredAssets(ctx context.Context, cfg *am.Config) (asset.Store, []asset.Handle, func(), error) {
	database, err := openDatabase(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer database.Close()

	log := logger.ComponentLogger("serve")
	stored := asset.NewSQLiteStore(database, logger.ComponentLogger("store"))
	if _, err := stored.LoadAll(ctx); err != nil {
		return nil, nil, nil, err
	}
	records, err := stored.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	served := asset.NewMemoryStore()
	handles := make([]asset.Handle, 0, len(records))
	for _, r := range records {
		a, ok := stored.Get(r.Handle)
		if !ok {
			continue
		}
		if err := checkGraph(a.Graph, cfg.Graph.StrictTextBranching); err != nil {
			log.Warnw("Skipping invalid dialogue", logger.FieldAsset, r.Handle, logger.FieldError, err)
			pterm.Warning.Printfln("Skipping %s: %v", r.Handle, err)
			continue
		}
		served.Put(r.Handle, a)
		handles = append(handles, r.Handle)
	}
	return served, handles, func() {}, nil
}

// fileHandle is the file name without directory or extension
func fileHandle(path string) asset.Handle {
	base := filepath.Base(path)
	return asset.Handle(strings.TrimSuffix(base, filepath.Ext(base)))
}
