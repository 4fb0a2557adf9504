package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/driver"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/graph"
	"github.com/teranos/dialogue/logger"
)

// PlayCmd plays a dialogue in the terminal
var PlayCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Play a dialogue in the terminal",
	Long: `Play a dialogue in the terminal.

Press Enter to continue past text, pick choices by number and enter q
to quit. The dialogue is read from a file, or from the asset database
with --handle.

Examples:
  dialogue play intro.json
  dialogue play intro.json --auto-advance --wait 1.5
  dialogue play --handle 2f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var (
	playAutoAdvance bool
	playWait        float64
	playHandle      string
)

const playerOwner driver.Owner = "player"

func init() {
	PlayCmd.Flags().BoolVar(&playAutoAdvance, "auto-advance", false, "Advance text on a timer (default from runtime.auto_advance)")
	PlayCmd.Flags().Float64Var(&playWait, "wait", 0, "Seconds each text node stays up with --auto-advance (default from runtime.auto_advance_seconds)")
	PlayCmd.Flags().StringVar(&playHandle, "handle", "", "Play a stored dialogue instead of a file")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, h, a, err := resolvePlayAsset(ctx, cfg, args)
	if err != nil {
		return err
	}
	if err := checkGraph(a.Graph, false); err != nil {
		return errors.Wrap(err, "dialogue cannot be played")
	}

	auto := cfg.Runtime.AutoAdvance
	if cmd.Flags().Changed("auto-advance") {
		auto = playAutoAdvance
	}
	wait := cfg.AutoAdvanceDuration()
	if cmd.Flags().Changed("wait") {
		wait = time.Duration(playWait * float64(time.Second))
	}

	// One local player; the command rate limit is for shared hosts
	opts := []driver.Option{driver.WithLogger(logger.ComponentLogger("driver"))}
	if auto {
		opts = append(opts, driver.WithAutoAdvance(wait))
	}
	d := driver.New(store, opts...)

	loop := driver.NewLoopWithContext(ctx, d, driver.LoopConfig{
		TickInterval:       cfg.TickInterval(),
		CommandBuffer:      cfg.Runtime.CommandBuffer,
		NotificationBuffer: driver.DefaultLoopConfig().NotificationBuffer,
	}, logger.ComponentLogger("loop"))
	loop.Start()
	defer loop.Stop()

	p := newPlayer(a.Graph, os.Stdin, cmd.OutOrStdout(), auto)
	normal, err := p.play(ctx, loop, h)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if normal {
		pterm.Success.Println("The end")
	} else {
		pterm.Info.Println("Conversation stopped")
	}
	return nil
}

// resolvePlayAsset loads the dialogue from a file or the asset database
func resolvePlayAsset(ctx context.Context, cfg *am.Config, args []string) (asset.Store, asset.Handle, *asset.Asset, error) {
	if playHandle != "" {
		database, err := openDatabase("")
		if err != nil {
			return nil, "", nil, err
		}
		// The handle is only read once, so the connection can go now
		defer database.Close()

		store := asset.NewSQLiteStore(database, logger.ComponentLogger("store"))
		h := asset.Handle(playHandle)
		a, err := store.Load(ctx, h)
		if err != nil {
			return nil, "", nil, err
		}
		return store, h, a, nil
	}

	if len(args) == 0 {
		return nil, "", nil, errors.WithHint(
			errors.New("no dialogue to play"),
			"pass a dialogue file or --handle")
	}
	a, err := loadAssetFile(args[0], cfg)
	if err != nil {
		return nil, "", nil, err
	}
	store := asset.NewMemoryStore()
	return store, store.Insert(a), a, nil
}

// player renders notifications for one owner and turns input into commands
type player struct {
	graph       *graph.Graph
	owner       driver.Owner
	in          *bufio.Scanner
	out         io.Writer
	autoAdvance bool
}

func newPlayer(g *graph.Graph, in io.Reader, out io.Writer, autoAdvance bool) *player {
	return &player{
		graph:       g,
		owner:       playerOwner,
		in:          bufio.NewScanner(in),
		out:         out,
		autoAdvance: autoAdvance,
	}
}

// play starts the conversation and runs until it ends.
// It reports whether the conversation ran to completion.
func (p *player) play(ctx context.Context, loop *driver.Loop, h asset.Handle) (bool, error) {
	if err := loop.Send(ctx, driver.Start{Owner: p.owner, Asset: h}); err != nil {
		return false, err
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case n, ok := <-loop.Notifications():
			if !ok {
				return false, driver.ErrLoopStopped
			}
			if n.OwnerID() != p.owner {
				continue
			}

			switch n := n.(type) {
			case driver.Started:
				logger.Debugw("Conversation started", logger.FieldStartNode, n.StartNode)
			case driver.NodeActivated:
				for _, cmd := range p.show(n.Node) {
					if err := loop.Send(ctx, cmd); err != nil {
						return false, err
					}
				}
			case driver.ChoiceMade:
				logger.Debugw("Choice made", logger.FieldNodeID, n.Node, logger.FieldChoiceIndex, n.Index)
			case driver.Ended:
				return n.Normal, nil
			}
		}
	}
}

// show renders node id and returns the commands the player's input produced
func (p *player) show(id graph.NodeID) []driver.Command {
	node, ok := p.graph.Node(id)
	if !ok {
		return []driver.Command{driver.Stop{Owner: p.owner}}
	}

	switch n := node.(type) {
	case *graph.TextNode:
		p.printLine(n.Speaker(), n.Text())
		if p.autoAdvance {
			return nil
		}
		line, ok := p.readLine(pterm.Gray("[enter]"))
		if !ok || isQuit(line) {
			return []driver.Command{driver.Stop{Owner: p.owner}}
		}
		return []driver.Command{driver.Advance{Owner: p.owner}}

	case *graph.ChoiceNode:
		if n.Prompt() != "" {
			p.printLine(n.Speaker(), n.Prompt())
		}
		options := p.options(id)
		if len(options) == 0 {
			fmt.Fprintln(p.out, pterm.Gray("(no options)"))
			return []driver.Command{driver.Stop{Owner: p.owner}}
		}
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %s %s\n", pterm.LightCyan(fmt.Sprintf("%d)", i+1)), opt)
		}

		index, ok := p.readChoice(len(options))
		if !ok {
			return []driver.Command{driver.Stop{Owner: p.owner}}
		}
		return []driver.Command{
			driver.Select{Owner: p.owner, Index: index},
			driver.Advance{Owner: p.owner},
		}
	}

	return []driver.Command{driver.Stop{Owner: p.owner}}
}

// options labels each outgoing edge, falling back to the target's display name
func (p *player) options(id graph.NodeID) []string {
	connected := p.graph.ConnectedNodes(id)
	labels := make([]string, 0, len(connected))
	for _, c := range connected {
		label := c.Label
		if label == "" {
			if target, ok := p.graph.Node(c.ID); ok {
				label = target.DisplayName()
			}
		}
		labels = append(labels, label)
	}
	return labels
}

// readChoice prompts until a number in [1, n] is entered. Returns a zero-based index.
func (p *player) readChoice(n int) (int, bool) {
	for {
		line, ok := p.readLine(pterm.Gray(fmt.Sprintf("[1-%d]", n)))
		if !ok || isQuit(line) {
			return 0, false
		}
		k, err := strconv.Atoi(line)
		if err == nil && k >= 1 && k <= n {
			return k - 1, true
		}
		fmt.Fprintln(p.out, pterm.Yellow("pick a number between 1 and "+strconv.Itoa(n)))
	}
}

func (p *player) readLine(prompt string) (string, bool) {
	fmt.Fprintf(p.out, "%s ", prompt)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *player) printLine(speaker, text string) {
	if speaker != "" {
		fmt.Fprintf(p.out, "%s %s\n", pterm.Bold.Sprint(speaker+":"), text)
		return
	}
	fmt.Fprintln(p.out, text)
}

func isQuit(line string) bool {
	return line == "q" || line == "quit"
}
