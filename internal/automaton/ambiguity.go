package automaton

import (
	"math"
	"sort"

	"github.com/sensorgnome-org/tagdfa/logger"
	"github.com/sensorgnome-org/tagdfa/tag"
)

// proxyGroup is a synthetic "one of these tags, we cannot tell which" identity.
type proxyGroup struct {
	proxy   *tag.Tag
	members map[tag.ID]*tag.Tag
}

// ambiguity maintains the mapping from subsets of real tags to proxy tags,
// per spec.md §4.G. Proxy ids are drawn from a monotonically decreasing
// per-Graph counter so they never collide with real motus ids (which are
// assumed positive).
type ambiguity struct {
	nextProxyID tag.ID
	groups      map[tag.ID]*proxyGroup // proxy id -> group
	memberOf    map[tag.ID]tag.ID      // real tag id -> proxy id
}

func newAmbiguity() *ambiguity {
	return &ambiguity{
		nextProxyID: -1,
		groups:      make(map[tag.ID]*proxyGroup),
		memberOf:    make(map[tag.ID]tag.ID),
	}
}

// proxyFor returns the proxy tag id currently standing in for id, if any.
func (a *ambiguity) proxyFor(id tag.ID) (tag.ID, bool) {
	p, ok := a.memberOf[id]
	return p, ok
}

// collides reports whether candidate is indistinguishable, within tolerance,
// from an already-active real tag at the same nominal frequency: same
// frequency and gap tuples matching element-wise within (tol, timeFuzz).
// Per spec.md §4.G and §9's conservative default, only exact phase-aligned
// closeness counts — a cyclic rotation of the gap sequence is not ambiguity.
func collides(a, b *tag.Tag, tol, timeFuzz float64) bool {
	if a.FreqKHz != b.FreqKHz {
		return false
	}
	if len(a.Gaps) != len(b.Gaps) {
		return false
	}
	for i := range a.Gaps {
		if !withinTolerance(a.Gaps[i], b.Gaps[i], tol, timeFuzz) {
			return false
		}
	}
	return true
}

func withinTolerance(g1, g2, tol, timeFuzz float64) bool {
	allowed := g1*tol + timeFuzz
	return math.Abs(g1-g2) <= allowed
}

// add folds newTag into the proxy already representing existing (creating
// one if existing is not yet proxied), returning the resulting proxy tag.
func (a *ambiguity) add(existing, newTag *tag.Tag) *tag.Tag {
	log := logger.Logger()

	if pid, ok := a.memberOf[existing.ID]; ok {
		g := a.groups[pid]
		g.members[newTag.ID] = newTag
		a.memberOf[newTag.ID] = pid
		log.Debug().Int64("proxy", int64(pid)).Int64("tag", int64(newTag.ID)).Msg("ambiguity: tag joined existing proxy")
		return g.proxy
	}

	pid := a.nextProxyID
	a.nextProxyID--
	g := &proxyGroup{
		members: map[tag.ID]*tag.Tag{existing.ID: existing, newTag.ID: newTag},
	}
	g.proxy = tag.New(pid, existing.FreqKHz, append([]float64{}, existing.Gaps...))
	a.groups[pid] = g
	a.memberOf[existing.ID] = pid
	a.memberOf[newTag.ID] = pid
	log.Debug().Int64("proxy", int64(pid)).Int64("a", int64(existing.ID)).Int64("b", int64(newTag.ID)).Msg("ambiguity: proxy formed")
	return g.proxy
}

// removeOutcomeKind classifies what happened to a tag's proxy membership
// after a remove.
type removeOutcomeKind int

const (
	removeNotAmbiguous removeOutcomeKind = iota // tag was never proxied
	removeStillAmbiguous
	removeDissolved // proxy shrank to exactly one remaining member
)

type removeOutcome struct {
	kind      removeOutcomeKind
	proxy     tag.ID   // valid when kind == removeStillAmbiguous
	remaining *tag.Tag // valid when kind == removeDissolved
}

// remove removes id from its proxy (if any), dissolving the proxy if the
// remaining membership drops to one tag.
func (a *ambiguity) remove(id tag.ID) removeOutcome {
	pid, ok := a.memberOf[id]
	if !ok {
		return removeOutcome{kind: removeNotAmbiguous}
	}
	log := logger.Logger()

	g := a.groups[pid]
	delete(g.members, id)
	delete(a.memberOf, id)

	switch len(g.members) {
	case 0:
		delete(a.groups, pid)
		log.Debug().Int64("proxy", int64(pid)).Msg("ambiguity: proxy emptied")
		return removeOutcome{kind: removeNotAmbiguous}
	case 1:
		var lone *tag.Tag
		for _, t := range g.members {
			lone = t
		}
		delete(a.groups, pid)
		delete(a.memberOf, lone.ID)
		log.Debug().Int64("proxy", int64(pid)).Int64("remaining", int64(lone.ID)).Msg("ambiguity: proxy dissolved")
		return removeOutcome{kind: removeDissolved, remaining: lone}
	default:
		return removeOutcome{kind: removeStillAmbiguous, proxy: pid}
	}
}

// membersOf returns the (sorted, for determinism) tag ids in the proxy
// group pid, or nil if pid is not a live proxy.
func (a *ambiguity) membersOf(pid tag.ID) []tag.ID {
	g, ok := a.groups[pid]
	if !ok {
		return nil
	}
	ids := make([]tag.ID, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
