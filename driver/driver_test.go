package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/graph"
	"github.com/teranos/dialogue/runner"
)

const (
	npc   Owner        = "npc"
	intro asset.Handle = "intro"
)

// introAsset is Text(1) -> Choice(2) -> {A: Text(3), B: Text(4)}.
func introAsset(t *testing.T) *asset.Asset {
	t.Helper()
	g := graph.New(1, graph.WithName("Intro"))
	require.NoError(t, g.AddNode(graph.NewText(1, "Hi")))
	require.NoError(t, g.AddNode(graph.NewChoice(2).WithPrompt("Pick")))
	require.NoError(t, g.AddNode(graph.NewText(3, "got A")))
	require.NoError(t, g.AddNode(graph.NewText(4, "got B")))
	require.NoError(t, g.Connect(1, 2, graph.ConnectionData{}))
	require.NoError(t, g.Connect(2, 3, graph.ConnectionData{Label: "A"}))
	require.NoError(t, g.Connect(2, 4, graph.ConnectionData{Label: "B"}))
	return asset.New(g)
}

func newDriver(t *testing.T, opts ...Option) (*Driver, *asset.MemoryStore) {
	t.Helper()
	store := asset.NewMemoryStore()
	store.Put(intro, introAsset(t))
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	return New(store, opts...), store
}

func tick(d *Driver, cmds ...Command) []Notification {
	for _, c := range cmds {
		d.Enqueue(c)
	}
	return d.Tick(0)
}

func TestConversation(t *testing.T) {
	d, _ := newDriver(t)

	got := tick(d, Start{Owner: npc, Asset: intro})
	assert.Equal(t, []Notification{
		Started{Owner: npc, Asset: intro, StartNode: 1},
		NodeActivated{Owner: npc, Node: 1},
	}, got)

	got = tick(d, Advance{Owner: npc})
	assert.Equal(t, []Notification{NodeActivated{Owner: npc, Node: 2}}, got)

	got = tick(d, Select{Owner: npc, Index: 1})
	assert.Equal(t, []Notification{ChoiceMade{Owner: npc, Node: 2, Index: 1}}, got)

	got = tick(d, Advance{Owner: npc})
	assert.Equal(t, []Notification{NodeActivated{Owner: npc, Node: 4}}, got)

	got = tick(d, Advance{Owner: npc})
	assert.Equal(t, []Notification{Ended{Owner: npc, Normal: true}}, got)

	r, ok := d.Runner(npc)
	require.True(t, ok)
	assert.True(t, r.IsFinished())
}

func TestCommandsDrainInOrder(t *testing.T) {
	d, _ := newDriver(t)

	got := tick(d,
		Start{Owner: npc, Asset: intro},
		Advance{Owner: npc},
		Select{Owner: npc, Index: 0},
		Advance{Owner: npc},
	)
	assert.Equal(t, []Notification{
		Started{Owner: npc, Asset: intro, StartNode: 1},
		NodeActivated{Owner: npc, Node: 1},
		NodeActivated{Owner: npc, Node: 2},
		ChoiceMade{Owner: npc, Node: 2, Index: 0},
		NodeActivated{Owner: npc, Node: 3},
	}, got)
	assert.Equal(t, 0, d.Pending())
}

func TestStopEmitsForcedEnd(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro})

	got := tick(d, Stop{Owner: npc})
	assert.Equal(t, []Notification{Ended{Owner: npc, Normal: false}}, got)

	r, _ := d.Runner(npc)
	assert.Equal(t, runner.Inactive, r.State())

	// Unknown owners are ignored
	assert.Empty(t, tick(d, Stop{Owner: "nobody"}))
}

func TestAdvanceErrorParksRunner(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro}, Advance{Owner: npc}, Select{Owner: npc, Index: 7})

	got := tick(d, Advance{Owner: npc})
	assert.Empty(t, got)

	r, _ := d.Runner(npc)
	assert.Equal(t, runner.StateError, r.State().Kind)
	assert.Contains(t, r.State().Message, "invalid choice index: 7 (max: 1)")

	// Stuck until restarted
	assert.Empty(t, tick(d, Advance{Owner: npc}, Select{Owner: npc, Index: 0}))
	assert.Equal(t, runner.StateError, r.State().Kind)
	assert.Contains(t, r.State().Message, "invalid choice index", "original failure kept")

	got = tick(d, Stop{Owner: npc}, Start{Owner: npc, Asset: intro})
	assert.Equal(t, []Notification{
		Ended{Owner: npc, Normal: false},
		Started{Owner: npc, Asset: intro, StartNode: 1},
		NodeActivated{Owner: npc, Node: 1},
	}, got)
}

func TestSelectInWrongStateIgnored(t *testing.T) {
	d, _ := newDriver(t)

	assert.Empty(t, tick(d, Select{Owner: npc, Index: 0}), "no runner")

	tick(d, Start{Owner: npc, Asset: intro})
	assert.Empty(t, tick(d, Select{Owner: npc, Index: 0}), "showing text")

	r, _ := d.Runner(npc)
	assert.Equal(t, runner.StateShowingText, r.State().Kind)
}

func TestReselectEmitsEachChoice(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro}, Advance{Owner: npc})

	got := tick(d, Select{Owner: npc, Index: 0}, Select{Owner: npc, Index: 1})
	assert.Equal(t, []Notification{
		ChoiceMade{Owner: npc, Node: 2, Index: 0},
		ChoiceMade{Owner: npc, Node: 2, Index: 1},
	}, got)
}

func TestStartWithMissingStartNode(t *testing.T) {
	d, store := newDriver(t)
	g := graph.New(5)
	require.NoError(t, g.AddNode(graph.NewText(1, "x")))
	store.Put("broken", asset.New(g))

	assert.Empty(t, tick(d, Start{Owner: npc, Asset: "broken"}))
	r, ok := d.Runner(npc)
	require.True(t, ok)
	assert.Equal(t, runner.StateError, r.State().Kind)
}

func TestPendingStart(t *testing.T) {
	d, store := newDriver(t)

	assert.Empty(t, tick(d, Start{Owner: npc, Asset: "later"}))
	assert.True(t, d.Waiting(npc))

	// Commands against a not-yet-loaded asset are ignored
	assert.Empty(t, tick(d, Advance{Owner: npc}))

	store.Put("later", introAsset(t))
	got := d.Tick(0)
	assert.Equal(t, []Notification{
		Started{Owner: npc, Asset: "later", StartNode: 1},
		NodeActivated{Owner: npc, Node: 1},
	}, got)
	assert.False(t, d.Waiting(npc))
}

func TestRestartOntoPendingAssetEndsConversation(t *testing.T) {
	d, store := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro})

	got := tick(d, Start{Owner: npc, Asset: "later"})
	assert.Equal(t, []Notification{Ended{Owner: npc, Normal: false}}, got)
	assert.True(t, d.Waiting(npc))
	r, _ := d.Runner(npc)
	assert.Equal(t, runner.StateInactive, r.State().Kind)

	// Nothing is left to end a second time
	assert.Empty(t, tick(d, Start{Owner: npc, Asset: "later"}))

	store.Put("later", introAsset(t))
	assert.Equal(t, []Notification{
		Started{Owner: npc, Asset: "later", StartNode: 1},
		NodeActivated{Owner: npc, Node: 1},
	}, d.Tick(0))
}

func TestStopCancelsPendingStart(t *testing.T) {
	d, store := newDriver(t)
	tick(d, Start{Owner: npc, Asset: "later"})
	tick(d, Stop{Owner: npc})
	assert.False(t, d.Waiting(npc))

	store.Put("later", introAsset(t))
	assert.Empty(t, d.Tick(0))
}

func TestAutoAdvance(t *testing.T) {
	d, _ := newDriver(t, WithAutoAdvance(time.Second))
	tick(d, Start{Owner: npc, Asset: intro})

	assert.Empty(t, d.Tick(500*time.Millisecond))
	got := d.Tick(500 * time.Millisecond)
	assert.Equal(t, []Notification{NodeActivated{Owner: npc, Node: 2}}, got)

	// Waiting for a choice does not time out
	assert.Empty(t, d.Tick(time.Hour))

	tick(d, Select{Owner: npc, Index: 0}, Advance{Owner: npc})
	got = d.Tick(time.Second)
	assert.Equal(t, []Notification{Ended{Owner: npc, Normal: true}}, got)
}

func TestAutoAdvanceZeroWait(t *testing.T) {
	d, _ := newDriver(t, WithAutoAdvance(0))
	tick(d, Start{Owner: npc, Asset: intro})

	r, _ := d.Runner(npc)
	assert.Equal(t, time.Duration(0), r.AutoAdvanceTime())

	got := d.Tick(100 * time.Millisecond)
	assert.Equal(t, []Notification{NodeActivated{Owner: npc, Node: 2}}, got)
}

func TestAutoAdvanceRunsBeforeCommands(t *testing.T) {
	d, _ := newDriver(t, WithAutoAdvance(time.Second))
	tick(d, Start{Owner: npc, Asset: intro})

	d.Enqueue(Advance{Owner: npc})
	got := d.Tick(time.Second)

	// The timer moves to the choice first, so the queued advance is illegal
	assert.Equal(t, []Notification{NodeActivated{Owner: npc, Node: 2}}, got)
	r, _ := d.Runner(npc)
	assert.Equal(t, runner.StateError, r.State().Kind)
}

func TestRunnersAreIndependent(t *testing.T) {
	d, _ := newDriver(t)
	got := tick(d,
		Start{Owner: "a", Asset: intro},
		Start{Owner: "b", Asset: intro},
		Advance{Owner: "a"},
	)
	assert.Len(t, got, 5)

	ra, _ := d.Runner("a")
	rb, _ := d.Runner("b")
	idA, _ := ra.CurrentNodeID()
	idB, _ := rb.CurrentNodeID()
	assert.Equal(t, graph.NodeID(2), idA)
	assert.Equal(t, graph.NodeID(1), idB)
	assert.Equal(t, []Owner{"a", "b"}, d.Owners())
}

func TestRemove(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro})

	assert.True(t, d.Remove(npc))
	assert.False(t, d.Remove(npc))
	_, ok := d.Runner(npc)
	assert.False(t, ok)
	assert.Empty(t, tick(d, Advance{Owner: npc}))
}

func TestReleaseEndsAndForgets(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro})

	got := tick(d, Release{Owner: npc})
	assert.Equal(t, []Notification{Ended{Owner: npc, Normal: false}}, got)
	_, ok := d.Runner(npc)
	assert.False(t, ok)

	assert.Empty(t, tick(d, Release{Owner: npc}), "second release is a no-op")
}

func TestReleaseAfterFinishIsSilent(t *testing.T) {
	d, _ := newDriver(t)
	tick(d, Start{Owner: npc, Asset: intro})
	tick(d, Advance{Owner: npc})
	tick(d, Select{Owner: npc, Index: 0}, Advance{Owner: npc})
	got := tick(d, Advance{Owner: npc})
	require.Equal(t, []Notification{Ended{Owner: npc, Normal: true}}, got)

	assert.Empty(t, tick(d, Release{Owner: npc}))
	assert.Empty(t, d.Owners())
}

func TestCommandRateLimit(t *testing.T) {
	d, _ := newDriver(t, WithCommandRateLimit(rate.Every(time.Hour), 2))

	assert.True(t, d.Enqueue(Start{Owner: npc, Asset: intro}))
	assert.True(t, d.Enqueue(Advance{Owner: npc}))
	assert.False(t, d.Enqueue(Advance{Owner: npc}))

	// Limits are per owner
	assert.True(t, d.Enqueue(Start{Owner: "other", Asset: intro}))
	assert.Equal(t, 3, d.Pending())
}

func TestCommandNames(t *testing.T) {
	cmds := map[string]Command{
		"start":   Start{Owner: npc},
		"stop":    Stop{Owner: npc},
		"advance": Advance{Owner: npc},
		"select":  Select{Owner: npc},
		"release": Release{Owner: npc},
	}
	for name, c := range cmds {
		assert.Equal(t, name, c.CommandName())
		assert.Equal(t, npc, c.OwnerID())
	}
}
