// Package automaton implements the dynamic tag-recognition DFA: Set, Node,
// Graph, and the Ambiguity proxy manager (spec.md §4.D-G). Nodes live in a
// Graph-owned arena (spec.md §9's "arena of indices" design note) rather than
// behind raw pointers, so shared ownership and destruction are explicit
// index bookkeeping instead of pointer aliasing.
package automaton

import (
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"

	"github.com/sensorgnome-org/tagdfa/tag"
)

// setKey is the canonical identity of a Set: a BLAKE2b-256 digest of the
// Set's sorted (tag, phase, count) triples, CBOR-encoded for a stable,
// unambiguous byte representation independent of map iteration order.
type setKey [32]byte

// Set is a multiset of TagPhases: the label attached to one DFA state.
// Two Sets are equal iff their phase->count maps are equal; once built,
// a Set's key() is its canonical identity for the Graph's setToNode index.
type Set struct {
	counts map[tag.TagPhase]int
}

// NewSet builds a Set from the given phases, each contributing multiplicity
// one (duplicates increment the count).
func NewSet(phases ...tag.TagPhase) *Set {
	s := &Set{counts: make(map[tag.TagPhase]int, len(phases))}
	for _, p := range phases {
		s.counts[p]++
	}
	return s
}

// Empty reports whether the Set holds no phases.
func (s *Set) Empty() bool {
	return s == nil || len(s.counts) == 0
}

// Count returns the multiplicity of tp in the Set.
func (s *Set) Count(tp tag.TagPhase) int {
	if s == nil {
		return 0
	}
	return s.counts[tp]
}

// Contains reports whether tp has multiplicity > 0 in the Set.
func (s *Set) Contains(tp tag.TagPhase) bool {
	return s.Count(tp) > 0
}

// Phases returns the Set's distinct phases in stable (tag, phase) order.
func (s *Set) Phases() []tag.TagPhase {
	out := maps.Keys(s.counts)
	sortPhases(out)
	return out
}

// Size returns the number of distinct TagPhases in the Set (not the sum of
// multiplicities).
func (s *Set) Size() int {
	if s == nil {
		return 0
	}
	return len(s.counts)
}

// withAdd returns a new Set equal to s with one more occurrence of tp.
func (s *Set) withAdd(tp tag.TagPhase) *Set {
	out := &Set{counts: make(map[tag.TagPhase]int, len(s.counts)+1)}
	for k, v := range s.counts {
		out.counts[k] = v
	}
	out.counts[tp]++
	return out
}

// withDrop returns a new Set equal to s with one fewer occurrence of tp
// (the entry is removed entirely once its count reaches zero).
func (s *Set) withDrop(tp tag.TagPhase) *Set {
	out := &Set{counts: make(map[tag.TagPhase]int, len(s.counts))}
	for k, v := range s.counts {
		if k == tp {
			if v > 1 {
				out.counts[k] = v - 1
			}
			continue
		}
		out.counts[k] = v
	}
	return out
}

// withRenamed returns a new Set with every occurrence of phases belonging to
// oldID rewritten to the same phase of newID (used by Graph.RenameTag and by
// ambiguity proxy formation).
func (s *Set) withRenamed(oldID, newID tag.ID) *Set {
	out := &Set{counts: make(map[tag.TagPhase]int, len(s.counts))}
	for k, v := range s.counts {
		if k.Tag == oldID {
			k = tag.Of(newID, k.Phase)
		}
		out.counts[k] += v
	}
	return out
}

func (s *Set) key() setKey {
	entries := s.sortedEntries()
	data, err := cbor.Marshal(entries)
	if err != nil {
		// entries is a concrete, acyclic slice of plain structs: cbor
		// encoding of it cannot fail.
		panic("automaton: Set.key: cbor marshal of sorted entries failed: " + err.Error())
	}
	return blake2b.Sum256(data)
}

type setEntry struct {
	Tag   int64 `cbor:"t"`
	Phase int   `cbor:"p"`
	Count int   `cbor:"c"`
}

func (s *Set) sortedEntries() []setEntry {
	entries := make([]setEntry, 0, len(s.counts))
	for tp, c := range s.counts {
		entries = append(entries, setEntry{Tag: int64(tp.Tag), Phase: tp.Phase, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tag != entries[j].Tag {
			return entries[i].Tag < entries[j].Tag
		}
		return entries[i].Phase < entries[j].Phase
	})
	return entries
}

func sortPhases(ps []tag.TagPhase) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Tag != ps[j].Tag {
			return ps[i].Tag < ps[j].Tag
		}
		return ps[i].Phase < ps[j].Phase
	})
}
