package automaton

import (
	"github.com/sensorgnome-org/tagdfa/internal/interval"
	"github.com/sensorgnome-org/tagdfa/tag"
)

// nodeID is an arena index. noNode is the sentinel for "no such node".
type nodeID int

const noNode nodeID = -1

// edge is one outgoing transition of a node: a GapRanges union of gap
// values that, when matched, moves the automaton to target.
type edge struct {
	ranges interval.Ranges
	target nodeID
}

// arenaNode is one DFA state, stored by value in Graph.nodes. A freed slot
// has alive == false and is queued on Graph.free for reuse.
type arenaNode struct {
	alive bool

	set   *Set
	edges []edge // invariant: pairwise non-overlapping ranges; not kept sorted by low endpoint

	refcount int   // number of edges (from any node) targeting this one
	stamp    int64 // traversal generation stamp

	// completions records which tags (real or proxy) complete a full burst
	// by reaching this node, per spec.md §4.F's terminal-phase handling.
	completions map[tag.ID]bool
}

func newArenaNode(set *Set) arenaNode {
	return arenaNode{alive: true, set: set}
}

// findEdgeByLow returns the index of the outgoing edge whose first interval's
// low endpoint equals lo exactly, or -1.
func (n *arenaNode) findEdgeByLow(lo float64) int {
	for i, e := range n.edges {
		if len(e.ranges) > 0 && e.ranges[0].Lo == lo {
			return i
		}
	}
	return -1
}

// markCompletion records that reaching this node completes a burst for id.
func (n *arenaNode) markCompletion(id tag.ID) {
	if n.completions == nil {
		n.completions = make(map[tag.ID]bool)
	}
	n.completions[id] = true
}

func (n *arenaNode) completes(id tag.ID) bool {
	return n.completions != nil && n.completions[id]
}
