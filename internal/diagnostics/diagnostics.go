// Package diagnostics provides debug-only views of an automaton.Graph: a
// CBOR snapshot for round-tripping a graph's shape, a spew text dump, a
// pprof-profile-shaped node-visit histogram, and a golden-diff helper for
// tests that assert two dumps differ only in an expected region.
package diagnostics

import (
	"fmt"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/pprof/profile"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sensorgnome-org/tagdfa/internal/automaton"
)

// Snapshot is the CBOR-serializable shape of a Graph: the root index and,
// for each live node, its distinct phases, edge targets, refcount, stamp and
// completions. It does not record edge gap ranges, phase multiplicities or
// the setToNode index, so a Graph cannot be rebuilt from it.
type Snapshot struct {
	Root  int                       `cbor:"root"`
	Nodes []automaton.NodeSnapshot `cbor:"nodes"`
}

// DumpSnapshot serializes g's current shape to CBOR.
func DumpSnapshot(g *automaton.Graph) ([]byte, error) {
	snap := Snapshot{Root: g.Root(), Nodes: g.Snapshot()}
	return cbor.Marshal(snap)
}

// LoadSnapshot decodes bytes produced by DumpSnapshot, for tests that
// compare two captured shapes structurally instead of against a live Graph.
func LoadSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	err := cbor.Unmarshal(data, &snap)
	return snap, err
}

// Dump renders a human-readable text dump of g's nodes via go-spew, in the
// style of the teacher's own debug-build dumps.
func Dump(g *automaton.Graph) string {
	cfg := spew.ConfigState{Indent: "  ", DisableMethods: true, SortKeys: true}
	return cfg.Sdump(g.Snapshot())
}

// DumpProfile builds a pprof profile.proto-shaped artifact whose single
// sample type ("visits", "count") carries, for each live node, its
// traversal stamp as the sample value — loadable in pprof's own viewer as a
// structured alternative to Dump's flat text.
func DumpProfile(g *automaton.Graph) (*profile.Profile, error) {
	nodes := g.Snapshot()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	fn := &profile.Function{ID: 1, Name: fmt.Sprintf("graph(%s)", "nodes")}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "visits", Unit: "count"}},
		Function:   []*profile.Function{fn},
		Location:   []*profile.Location{loc},
		TimeNanos:  time.Now().UnixNano(),
	}
	for _, n := range nodes {
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{n.Stamp},
			Label:    map[string][]string{"node": {fmt.Sprintf("%d", n.ID)}},
		})
	}
	return p, nil
}

// DiffDumps returns a unified diff between two Dump outputs, for tests that
// assert a mutation changed exactly the expected region of a graph's shape.
func DiffDumps(before, after string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	}
	return difflib.GetUnifiedDiffString(diff)
}
