package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/display"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/graph"
)

// InspectCmd prints the structure of a dialogue file
var InspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the nodes and edges of a dialogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	InspectCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

// inspectReport is the JSON form of inspect
type inspectReport struct {
	Name        string         `json:"name,omitempty"`
	StartNode   graph.NodeID   `json:"start_node"`
	Nodes       []inspectNode  `json:"nodes"`
	Edges       []inspectEdge  `json:"edges"`
	Unreachable []graph.NodeID `json:"unreachable,omitempty"`
	Problem     string         `json:"problem,omitempty"`
}

type inspectNode struct {
	ID       graph.NodeID `json:"id"`
	Kind     graph.Kind   `json:"kind"`
	Display  string       `json:"display"`
	Outgoing int          `json:"outgoing"`
}

type inspectEdge struct {
	From  graph.NodeID `json:"from"`
	To    graph.NodeID `json:"to"`
	Label string       `json:"label,omitempty"`
}

func buildInspectReport(g *graph.Graph) inspectReport {
	reachable := g.Reachable(g.StartNode())
	report := inspectReport{
		Name:      g.Name(),
		StartNode: g.StartNode(),
		Nodes:     []inspectNode{},
		Edges:     []inspectEdge{},
	}
	for _, n := range g.Nodes() {
		report.Nodes = append(report.Nodes, inspectNode{
			ID:       n.ID(),
			Kind:     n.Kind(),
			Display:  n.DisplayName(),
			Outgoing: len(g.Connections(n.ID())),
		})
		if !reachable[n.ID()] {
			report.Unreachable = append(report.Unreachable, n.ID())
		}
	}
	for _, e := range g.Edges() {
		report.Edges = append(report.Edges, inspectEdge{From: e.From, To: e.To, Label: e.Data.Label})
	}
	if err := g.Validate(); err != nil {
		report.Problem = err.Error()
	}
	return report
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	a, err := loadAssetFile(args[0], cfg)
	if err != nil {
		return err
	}
	g := a.Graph

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), buildInspectReport(g))
	}

	name := g.Name()
	if name == "" {
		name = "(unnamed)"
	}
	pterm.DefaultSection.Println(name)
	pterm.Printfln("%s %d   %s %d   %s %d",
		pterm.Gray("start"), g.StartNode(),
		pterm.Gray("nodes"), g.NodeCount(),
		pterm.Gray("edges"), g.EdgeCount())

	if err := pterm.DefaultTable.WithHasHeader().WithData(nodeTable(g)).Render(); err != nil {
		return errors.Wrap(err, "failed to render nodes")
	}
	pterm.Println()
	if err := pterm.DefaultTable.WithHasHeader().WithData(edgeTable(g)).Render(); err != nil {
		return errors.Wrap(err, "failed to render edges")
	}

	if err := g.Validate(); err != nil {
		pterm.Warning.Printfln("%v", err)
	}
	return nil
}

// nodeTable lists nodes in storage order, flagging unreachable ones
func nodeTable(g *graph.Graph) pterm.TableData {
	reachable := g.Reachable(g.StartNode())
	data := pterm.TableData{{"ID", "Kind", "Display", "Outgoing", "Reachable"}}
	for _, n := range g.Nodes() {
		mark := "yes"
		if !reachable[n.ID()] {
			mark = pterm.Red("no")
		}
		data = append(data, []string{
			fmt.Sprint(n.ID()),
			string(n.Kind()),
			n.DisplayName(),
			fmt.Sprint(len(g.Connections(n.ID()))),
			mark,
		})
	}
	return data
}

// edgeTable lists edges in insertion order
func edgeTable(g *graph.Graph) pterm.TableData {
	data := pterm.TableData{{"From", "To", "Label"}}
	for _, e := range g.Edges() {
		data = append(data, []string{fmt.Sprint(e.From), fmt.Sprint(e.To), e.Data.Label})
	}
	return data
}
