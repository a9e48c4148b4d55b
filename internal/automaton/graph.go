package automaton

import (
	"fmt"
	"math"
	"sort"

	"github.com/sensorgnome-org/tagdfa/internal/debug"
	"github.com/sensorgnome-org/tagdfa/internal/interval"
	"github.com/sensorgnome-org/tagdfa/logger"
	"github.com/sensorgnome-org/tagdfa/tag"
)

// virtualStartTag is the sentinel tag id root's Set always carries, standing
// for "no pulses observed yet". Real motus ids are assumed strictly
// positive, so this never collides with a registered tag or a (negative)
// ambiguity proxy.
const virtualStartTag tag.ID = 0
const virtualStartPhase = -1

var virtualStart = tag.Of(virtualStartTag, virtualStartPhase)

const maxStamp = math.MaxInt64 - 1

// Graph is the incremental DFA over inter-pulse gap intervals (spec.md §4.F).
// Nodes live in an arena (Graph.nodes); the root is never destroyed.
type Graph struct {
	Label string

	nodes []arenaNode
	free  []nodeID
	root  nodeID

	index map[setKey]nodeID
	stamp int64

	amb *ambiguity

	// active holds every real (non-proxy) tag currently registered,
	// whether or not it is presently folded into an ambiguity proxy.
	active map[tag.ID]*tag.Tag
}

// New creates an empty Graph: just the root, whose Set holds only the
// virtual pre-burst phase, with a conceptual self-loop edge spanning
// (0, +Inf) that is never split or removed (spec.md §4.F).
func New(label string) *Graph {
	g := &Graph{
		Label:  label,
		index:  make(map[setKey]nodeID),
		amb:    newAmbiguity(),
		active: make(map[tag.ID]*tag.Tag),
	}
	rootSet := NewSet(virtualStart)
	g.nodes = append(g.nodes, newArenaNode(rootSet))
	g.root = 0
	g.index[rootSet.key()] = g.root
	return g
}

// Root returns the arena index of the root node (for diagnostics).
func (g *Graph) Root() int { return int(g.root) }

// NumNodes returns the number of live DFA states, including the root.
func (g *Graph) NumNodes() int {
	n := 0
	for i := range g.nodes {
		if g.nodes[i].alive {
			n++
		}
	}
	return n
}

// NumSets returns the size of the canonical Set->Node index (always equal
// to NumNodes under the Set-Node bijection invariant).
func (g *Graph) NumSets() int { return len(g.index) }

// NumEdges returns the number of live outgoing edges across all nodes,
// plus one for root's permanent self-loop.
func (g *Graph) NumEdges() int {
	n := 1
	for i := range g.nodes {
		if g.nodes[i].alive {
			n += len(g.nodes[i].edges)
		}
	}
	return n
}

// --- arena plumbing -------------------------------------------------------

func (g *Graph) alloc(set *Set) nodeID {
	if n := len(g.free); n > 0 {
		id := g.free[n-1]
		g.free = g.free[:n-1]
		g.nodes[id] = newArenaNode(set)
		return id
	}
	g.nodes = append(g.nodes, newArenaNode(set))
	return nodeID(len(g.nodes) - 1)
}

// canonicalize finds or creates the node whose Set equals set, per the
// Set->Node index. Returns (id, true) when a new node was allocated.
func (g *Graph) canonicalize(set *Set) (nodeID, bool) {
	key := set.key()
	if id, ok := g.index[key]; ok {
		return id, false
	}
	id := g.alloc(set)
	g.index[key] = id
	return id, true
}

func (g *Graph) link(id nodeID) {
	g.nodes[id].refcount++
}

// unlink decrements id's refcount, destroying it (and cascading to its own
// children) once the count reaches zero. The root is never destroyed.
func (g *Graph) unlink(id nodeID) {
	if id == g.root {
		return
	}
	g.nodes[id].refcount--
	rc := g.nodes[id].refcount
	if rc > 0 {
		return
	}
	if rc < 0 {
		panic((&InvariantViolationError{Detail: fmt.Sprintf("node %d refcount underflow", id)}).Error())
	}
	children := g.nodes[id].edges
	key := g.nodes[id].set.key()
	if cur, ok := g.index[key]; ok && cur == id {
		delete(g.index, key)
	}
	g.nodes[id] = arenaNode{}
	g.free = append(g.free, id)
	for _, e := range children {
		g.unlink(e.target)
	}
}

// mutateRootSet replaces the root's Set, keeping the Set->Node index
// consistent (root's canonical key changes whenever its Set does).
func (g *Graph) mutateRootSet(newSet *Set) {
	oldKey := g.nodes[g.root].set.key()
	if cur, ok := g.index[oldKey]; ok && cur == g.root {
		delete(g.index, oldKey)
	}
	g.nodes[g.root].set = newSet
	g.index[newSet.key()] = g.root
}

func containsTagID(s *Set, id tag.ID) bool {
	for tp := range s.counts {
		if tp.Tag == id {
			return true
		}
	}
	return false
}

func normalizeTarget(tpTo tag.TagPhase, numPhases int) (stored tag.TagPhase, terminal bool) {
	if tpTo.Phase >= numPhases {
		return tag.Of(tpTo.Tag, 0), true
	}
	return tpTo, false
}

// --- insert/erase context --------------------------------------------------

type insertCtx struct {
	tg                               *tag.Tag
	tol, timeFuzz, maxTime, minTime float64
}

func (c *insertCtx) phaseRanges(phase int) interval.Ranges {
	g := c.tg.Gap(phase)
	r := interval.Single(g, c.tol, c.timeFuzz)
	r = r.ExtendByPeriod(c.tg.Period, c.maxTime)
	return r.ClampMin(c.minTime)
}

// --- addTag -----------------------------------------------------------------

// AddTag registers tg so the automaton henceforth accepts its cyclic gap
// pattern. If tg collides (within tolerance) with an already-active tag, the
// two are folded into (or grown within) an ambiguity proxy instead of
// creating new structure; the returned proxy is non-nil in that case.
func (g *Graph) AddTag(tg *tag.Tag, tol, timeFuzz, maxTime, minTime float64) (primary *tag.Tag, proxy *tag.Tag, err error) {
	if _, ok := g.active[tg.ID]; ok {
		return nil, nil, &DuplicateTagError{ID: int64(tg.ID)}
	}

	if other := g.findCollision(tg, tol, timeFuzz); other != nil {
		pid, alreadyProxied := g.amb.proxyFor(other.ID)
		proxyTag := g.amb.add(other, tg)
		if !alreadyProxied {
			if err := g.renameInPlace(other.ID, proxyTag.ID); err != nil {
				return nil, nil, err
			}
		}
		_ = pid
		g.active[tg.ID] = tg
		g.maybeValidate()
		logger.Logger().Debug().Int64("tag", int64(tg.ID)).Int64("proxy", int64(proxyTag.ID)).Msg("tagdfa: tag added as ambiguity member")
		return tg, proxyTag, nil
	}

	ctx := &insertCtx{tg: tg, tol: tol, timeFuzz: timeFuzz, maxTime: maxTime, minTime: minTime}
	rootStart := tag.Of(tg.ID, 0)
	g.mutateRootSet(g.nodes[g.root].set.withAdd(rootStart))
	g.insertRec(g.root, ctx.phaseRanges(0), rootStart, rootStart.Next(), ctx)

	g.active[tg.ID] = tg
	g.maybeValidate()
	logger.Logger().Debug().Int64("tag", int64(tg.ID)).Int("nodes", g.NumNodes()).Msg("tagdfa: tag added")
	return tg, nil, nil
}

// findCollision returns an already-active tag whose gap tuple is
// indistinguishable from tg's within tolerance, or nil. Iterates in sorted
// id order for determinism.
func (g *Graph) findCollision(tg *tag.Tag, tol, timeFuzz float64) *tag.Tag {
	ids := make([]tag.ID, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if id == tg.ID {
			continue
		}
		other := g.active[id]
		if collides(other, tg, tol, timeFuzz) {
			return other
		}
	}
	return nil
}

// insertRec is the workhorse described in spec.md §4.F: it walks node n's
// outgoing edges, splitting any that overlap gr, augmenting the overlapping
// target's Set with tpTo, and creating a fresh node+edge for any part of gr
// not already covered. It recurses into freshly-placed edges whose target
// phase is non-terminal.
func (g *Graph) insertRec(n nodeID, gr interval.Ranges, tpFrom, tpTo tag.TagPhase, ctx *insertCtx) {
	if !g.nodes[n].set.Contains(tpFrom) {
		return
	}
	stored, terminal := normalizeTarget(tpTo, ctx.tg.NumPhases())

	existing := append([]edge{}, g.nodes[n].edges...)
	var newEdges []edge
	uncovered := gr

	for _, e := range existing {
		if !e.ranges.Overlaps(gr) {
			newEdges = append(newEdges, e)
			continue
		}
		ov := interval.Intersect(e.ranges, gr)
		rem := interval.Difference(e.ranges, gr)
		uncovered = interval.Difference(uncovered, e.ranges)

		if len(rem) > 0 {
			newEdges = append(newEdges, edge{ranges: rem, target: e.target})
		}

		if len(ov) > 0 {
			childID := g.augment(e.target, stored)
			g.link(childID)
			newEdges = append(newEdges, edge{ranges: ov, target: childID})
			if terminal {
				g.nodes[childID].markCompletion(stored.Tag)
			} else {
				g.insertRec(childID, ctx.phaseRanges(stored.Phase), stored, stored.Next(), ctx)
			}
		}
		if len(rem) == 0 {
			g.unlink(e.target)
		}
	}
	g.nodes[n].edges = newEdges

	if len(uncovered) > 0 {
		childID, isNew := g.canonicalize(NewSet(stored))
		g.link(childID)
		g.nodes[n].edges = append(g.nodes[n].edges, edge{ranges: uncovered, target: childID})
		if terminal {
			g.nodes[childID].markCompletion(stored.Tag)
		} else if isNew {
			g.insertRec(childID, ctx.phaseRanges(stored.Phase), stored, stored.Next(), ctx)
		}
	}
}

// augment returns the (possibly newly created) node whose Set equals
// old's plus phase. If the union is genuinely new, the new node inherits
// old's current outgoing edges (same targets, refcounts bumped).
func (g *Graph) augment(old nodeID, phase tag.TagPhase) nodeID {
	oldSet := g.nodes[old].set
	newSet := oldSet.withAdd(phase)
	id, isNew := g.canonicalize(newSet)
	if !isNew {
		return id
	}
	oldEdges := append([]edge{}, g.nodes[old].edges...)
	for _, e := range oldEdges {
		g.link(e.target)
	}
	g.nodes[id].edges = oldEdges
	for t := range g.nodes[old].completions {
		g.nodes[id].markCompletion(t)
	}
	return id
}

// --- removeTag --------------------------------------------------------------

// RemovalOutcomeKind classifies the result of RemoveTag.
type RemovalOutcomeKind int

const (
	RemovalUnknownTag RemovalOutcomeKind = iota
	RemovalStructural
	RemovalStillAmbiguous
	RemovalDissolvedToSingleton
)

// RemovalOutcome is the removal_outcome of spec.md §6.
type RemovalOutcome struct {
	Kind      RemovalOutcomeKind
	Proxy     tag.ID
	Remaining *tag.Tag
}

// RemoveTag deregisters id. Removing a tag that was never added is a no-op,
// reported via RemovalUnknownTag (spec.md §7: non-fatal).
func (g *Graph) RemoveTag(id tag.ID, tol, timeFuzz, maxTime float64) (RemovalOutcome, error) {
	tg, ok := g.active[id]
	if !ok {
		return RemovalOutcome{Kind: RemovalUnknownTag}, &UnknownTagError{ID: int64(id)}
	}

	if pid, isProxied := g.amb.proxyFor(id); isProxied {
		out := g.amb.remove(id)
		delete(g.active, id)
		switch out.kind {
		case removeStillAmbiguous:
			return RemovalOutcome{Kind: RemovalStillAmbiguous, Proxy: out.proxy}, nil
		case removeDissolved:
			if err := g.renameInPlace(pid, out.remaining.ID); err != nil {
				return RemovalOutcome{}, err
			}
			g.active[out.remaining.ID] = out.remaining
			return RemovalOutcome{Kind: RemovalDissolvedToSingleton, Remaining: out.remaining}, nil
		default:
			return RemovalOutcome{Kind: RemovalUnknownTag}, nil
		}
	}

	ctx := &insertCtx{tg: tg, tol: tol, timeFuzz: timeFuzz, maxTime: maxTime}
	rootStart := tag.Of(tg.ID, 0)
	g.eraseRec(g.root, ctx.phaseRanges(0), rootStart, rootStart.Next(), ctx)
	g.mutateRootSet(g.nodes[g.root].set.withDrop(rootStart))

	delete(g.active, id)
	g.maybeValidate()
	logger.Logger().Debug().Int64("tag", int64(id)).Int("nodes", g.NumNodes()).Msg("tagdfa: tag removed")
	return RemovalOutcome{Kind: RemovalStructural}, nil
}

// eraseRec mirrors insertRec: it finds node n's edges overlapping gr, keeps
// the untouched remainder pointed at the same target, and for the
// overlapping portion, recurses deeper (if non-terminal) before reducing
// that target's Set by stored.
func (g *Graph) eraseRec(n nodeID, gr interval.Ranges, tpFrom, tpTo tag.TagPhase, ctx *insertCtx) {
	if !g.nodes[n].set.Contains(tpFrom) {
		return
	}
	stored, terminal := normalizeTarget(tpTo, ctx.tg.NumPhases())

	existing := append([]edge{}, g.nodes[n].edges...)
	var newEdges []edge

	for _, e := range existing {
		ov := interval.Intersect(e.ranges, gr)
		if len(ov) == 0 {
			newEdges = append(newEdges, e)
			continue
		}
		rem := interval.Difference(e.ranges, gr)
		oldTarget := e.target
		if len(rem) > 0 {
			// The untouched remainder keeps pointing at oldTarget: the
			// original edge's single reference transfers to it, so no
			// link/unlink bookkeeping is needed for that portion.
			newEdges = append(newEdges, edge{ranges: rem, target: oldTarget})
		}

		if !terminal {
			g.eraseRec(oldTarget, ctx.phaseRanges(stored.Phase), stored, stored.Next(), ctx)
		}
		newTarget, destroyed := g.reduceTarget(oldTarget, stored, ctx)
		if !destroyed {
			g.link(newTarget)
			newEdges = append(newEdges, edge{ranges: ov, target: newTarget})
		}
		if len(rem) == 0 {
			g.unlink(oldTarget)
		}
	}
	g.nodes[n].edges = newEdges
}

// reduceTarget returns the node whose Set equals old's minus phase. If the
// result is empty, destroyed is true and no node is returned (the caller's
// subsequent unlink(old) will free it). A genuinely new (smaller) node
// inherits old's current edges, minus whatever portion of them phase's own
// transition contributed.
func (g *Graph) reduceTarget(old nodeID, phase tag.TagPhase, ctx *insertCtx) (nodeID, bool) {
	oldSet := g.nodes[old].set
	newSet := oldSet.withDrop(phase)
	if newSet.Empty() {
		return noNode, true
	}
	id, isNew := g.canonicalize(newSet)
	if !isNew {
		return id, false
	}

	contributed := ctx.phaseRanges(phase.Phase)
	oldEdges := append([]edge{}, g.nodes[old].edges...)
	var kept []edge
	for _, e := range oldEdges {
		rem := interval.Difference(e.ranges, contributed)
		if len(rem) == 0 {
			g.unlink(e.target)
			continue
		}
		g.link(e.target)
		kept = append(kept, edge{ranges: rem, target: e.target})
	}
	g.nodes[id].edges = kept
	for t := range g.nodes[old].completions {
		if t == phase.Tag {
			continue
		}
		g.nodes[id].markCompletion(t)
	}
	return id, false
}

// --- rename (supplemented feature; see SPEC_FULL.md §4) --------------------

// RenameTag relabels every TagPhase built from oldID, throughout the graph,
// to newID, mirroring the original find_tags Graph::renTag. AddTag and
// RemoveTag do not call it: when an ambiguity proxy forms or dissolves they
// call renameInPlace directly.
func (g *Graph) RenameTag(oldID, newID tag.ID) error {
	if oldID == newID {
		return nil
	}
	if !g.hasAnyPhaseFor(newID) {
		return g.renameInPlace(oldID, newID)
	}
	return g.renameWithMerge(oldID, newID)
}

func (g *Graph) hasAnyPhaseFor(id tag.ID) bool {
	for i := range g.nodes {
		if g.nodes[i].alive && containsTagID(g.nodes[i].set, id) {
			return true
		}
	}
	return false
}

// renameInPlace rewrites every live node's Set in place. Safe only when no
// node can already contain a phase of newID (guaranteed when newID is a
// freshly minted proxy id, or otherwise checked by the caller).
func (g *Graph) renameInPlace(oldID, newID tag.ID) error {
	found := false
	for i := range g.nodes {
		nd := &g.nodes[i]
		if !nd.alive || !containsTagID(nd.set, oldID) {
			continue
		}
		found = true
		oldKey := nd.set.key()
		newSet := nd.set.withRenamed(oldID, newID)
		nd.set = newSet
		if cur, ok := g.index[oldKey]; ok && cur == nodeID(i) {
			delete(g.index, oldKey)
		}
		g.index[newSet.key()] = nodeID(i)
		if nd.completions != nil && nd.completions[oldID] {
			delete(nd.completions, oldID)
			nd.markCompletion(newID)
		}
	}
	if !found {
		return &UnknownTagError{ID: int64(oldID)}
	}
	return nil
}

// renameWithMerge handles the rarer case where newID already labels some
// phase in the graph: renaming may make two previously-distinct nodes
// canonically identical, which is resolved by redirecting every edge that
// targeted the duplicate onto the node that is kept.
func (g *Graph) renameWithMerge(oldID, newID tag.ID) error {
	found := false
	n := len(g.nodes)
	for i := 0; i < n; i++ {
		nd := &g.nodes[i]
		if !nd.alive || !containsTagID(nd.set, oldID) {
			continue
		}
		found = true
		oldKey := nd.set.key()
		newSet := nd.set.withRenamed(oldID, newID)
		newKey := newSet.key()

		if existing, ok := g.index[newKey]; ok && existing != nodeID(i) {
			if cur, ok2 := g.index[oldKey]; ok2 && cur == nodeID(i) {
				delete(g.index, oldKey)
			}
			g.redirectAllEdges(nodeID(i), existing)
			continue
		}
		nd.set = newSet
		if cur, ok2 := g.index[oldKey]; ok2 && cur == nodeID(i) {
			delete(g.index, oldKey)
		}
		g.index[newKey] = nodeID(i)
		if nd.completions != nil && nd.completions[oldID] {
			delete(nd.completions, oldID)
			nd.markCompletion(newID)
		}
	}
	if !found {
		return &UnknownTagError{ID: int64(oldID)}
	}
	return nil
}

// redirectAllEdges rewrites every live node's edges targeting from to
// target to instead, adjusting refcounts (and potentially cascading the
// destruction of from).
func (g *Graph) redirectAllEdges(from, to nodeID) {
	if from == to {
		return
	}
	for i := range g.nodes {
		nd := &g.nodes[i]
		if !nd.alive {
			continue
		}
		for j := range nd.edges {
			if nd.edges[j].target == from {
				nd.edges[j].target = to
				g.link(to)
				g.unlink(from)
			}
		}
	}
}

// --- diagnostics / traversal -------------------------------------------------

// NodeSnapshot is an exported, read-only view of one arena slot, for
// internal/diagnostics to dump without reaching into Graph internals.
type NodeSnapshot struct {
	ID          int
	Phases      []tag.TagPhase
	Targets     []int
	Refcount    int
	Stamp       int64
	Completions []tag.ID
}

// Snapshot returns a NodeSnapshot for every live node, in arena order.
func (g *Graph) Snapshot() []NodeSnapshot {
	out := make([]NodeSnapshot, 0, g.NumNodes())
	for i := range g.nodes {
		nd := &g.nodes[i]
		if !nd.alive {
			continue
		}
		targets := make([]int, len(nd.edges))
		for j, e := range nd.edges {
			targets[j] = int(e.target)
		}
		var completions []tag.ID
		for id := range nd.completions {
			completions = append(completions, id)
		}
		sortTagIDs(completions)
		out = append(out, NodeSnapshot{
			ID:          i,
			Phases:      nd.set.Phases(),
			Targets:     targets,
			Refcount:    nd.refcount,
			Stamp:       nd.stamp,
			Completions: completions,
		})
	}
	return out
}

func sortTagIDs(ids []tag.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Levels performs a BFS from the root over live edges, grouping nodes by
// their shortest distance from root — the same "wavefront" grouping the
// teacher's internal/dag.DAG.Levels computes over its parent/child arrays,
// adapted here to walk Graph's arena+edges instead of a parents/children
// slice pair.
func (g *Graph) Levels() [][]int {
	stampID := g.newStamp()
	var levels [][]int
	current := []int{int(g.root)}
	g.nodes[g.root].stamp = stampID

	for len(current) > 0 {
		levels = append(levels, current)
		var next []int
		for _, id := range current {
			for _, e := range g.nodes[id].edges {
				t := int(e.target)
				if g.nodes[t].stamp == stampID {
					continue
				}
				g.nodes[t].stamp = stampID
				next = append(next, t)
			}
		}
		current = next
	}
	return levels
}

// Location reports where a tag's phases currently live in the graph.
type Location struct {
	Node  int
	Phase tag.TagPhase
}

// Find locates any node holding a phase of id (or of id's ambiguity proxy,
// if it has one). Diagnostic only, per spec.md §6.
func (g *Graph) Find(id tag.ID) (Location, bool) {
	effective := id
	if pid, ok := g.amb.proxyFor(id); ok {
		effective = pid
	}
	for i := range g.nodes {
		nd := &g.nodes[i]
		if !nd.alive {
			continue
		}
		for tp := range nd.set.counts {
			if tp.Tag == effective {
				return Location{Node: i, Phase: tp}, true
			}
		}
	}
	return Location{}, false
}

// newStamp bumps the traversal generation counter, resetting every node's
// stamp to zero first if the counter would otherwise wrap (spec.md §3).
func (g *Graph) newStamp() int64 {
	if g.stamp >= maxStamp {
		for i := range g.nodes {
			g.nodes[i].stamp = 0
		}
		g.stamp = 0
	}
	g.stamp++
	return g.stamp
}

// maybeValidate runs ValidateInvariants only in debug builds, panicking
// (InvariantViolation, spec.md §7) if a post-operation check fails.
func (g *Graph) maybeValidate() {
	if !debug.Debug {
		return
	}
	if err := g.ValidateInvariants(); err != nil {
		logger.Logger().Error().Err(err).Str("graph", g.Label).Msg("tagdfa: invariant violation")
		panic(err.Error())
	}
}

// ValidateInvariants checks the universal invariants of spec.md §8: the
// Set<->Node bijection, edge disjointness per node, and that every non-root
// node has at least one incoming reference.
func (g *Graph) ValidateInvariants() error {
	for key, id := range g.index {
		if !g.nodes[id].alive {
			return &InvariantViolationError{Detail: fmt.Sprintf("setToNode[%x] points at dead node %d", key[:4], id)}
		}
		if g.nodes[id].set.key() != key {
			return &InvariantViolationError{Detail: fmt.Sprintf("setToNode key mismatch at node %d", id)}
		}
	}
	for i := range g.nodes {
		nd := &g.nodes[i]
		if !nd.alive {
			continue
		}
		if got, ok := g.index[nd.set.key()]; !ok || got != nodeID(i) {
			return &InvariantViolationError{Detail: fmt.Sprintf("node %d missing from (or mismatched in) setToNode index", i)}
		}
		for a := 0; a < len(nd.edges); a++ {
			for b := a + 1; b < len(nd.edges); b++ {
				if nd.edges[a].ranges.Overlaps(nd.edges[b].ranges) {
					return &InvariantViolationError{Detail: fmt.Sprintf("node %d has overlapping outgoing edges", i)}
				}
			}
		}
		if nodeID(i) != g.root && nd.refcount < 1 {
			return &InvariantViolationError{Detail: fmt.Sprintf("non-root node %d has no incoming references", i)}
		}
	}
	return nil
}
