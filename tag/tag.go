// Copyright 2020 ConsenSys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tag holds the immutable description of a registered radio tag's
// burst pattern.
package tag

import (
	"fmt"
	"math"
)

// ID is a motus tag identity. Real tags carry positive IDs; ambiguity proxy
// tags (see internal/automaton's Ambiguity manager) carry negative IDs drawn
// from a per-Graph counter, so the two id spaces never collide.
type ID int64

// IsProxy reports whether id identifies an ambiguity proxy rather than a real
// registered tag.
func (id ID) IsProxy() bool { return id < 0 }

// Tag is the immutable description of one tag's cyclic burst pattern: a
// nominal carrier frequency and the ordered inter-pulse gaps of one burst,
// ending with the "burst gap" that returns to the start of the next cycle.
//
// A Tag is read-only once constructed; Period is computed once at
// construction and cached.
type Tag struct {
	ID ID

	// FreqKHz is the nominal carrier frequency, in kHz, that this tag's
	// pulses are detected on.
	FreqKHz float64

	// Gaps holds the k-1 inter-pulse gaps g1..g(k-1) followed by the burst
	// gap g_b that returns to phase 0 of the next cycle, so len(Gaps) == k.
	Gaps []float64

	// Period is the sum of Gaps: the time from the start of one burst to
	// the start of the next.
	Period float64
}

// New builds a Tag from a motus id, nominal frequency, and the ordered
// sequence of inter-pulse gaps (including the trailing burst gap). It panics
// if any gap is non-positive or non-finite: per spec.md §7, NumericDomain
// violations are the caller's bug, rejected at the boundary.
func New(id ID, freqKHz float64, gaps []float64) *Tag {
	if len(gaps) < 2 {
		panic(fmt.Sprintf("tag %d: need at least 2 gaps (k-1 inter-pulse gaps plus burst gap), got %d", id, len(gaps)))
	}
	g := make([]float64, len(gaps))
	var period float64
	for i, gap := range gaps {
		if !(gap > 0) || isNonFinite(gap) {
			panic(fmt.Sprintf("tag %d: non-positive or non-finite gap g[%d]=%v", id, i, gap))
		}
		g[i] = gap
		period += gap
	}
	return &Tag{
		ID:      id,
		FreqKHz: freqKHz,
		Gaps:    g,
		Period:  period,
	}
}

// NumPhases returns k, the number of pulses per burst (== len(Gaps)).
func (t *Tag) NumPhases() int { return len(t.Gaps) }

// Gap returns the inter-pulse gap leaving phase i (0-indexed); phase
// k-1 (the last phase before wraparound) returns the burst gap.
func (t *Tag) Gap(phase int) float64 {
	return t.Gaps[phase%len(t.Gaps)]
}

func (t *Tag) String() string {
	return fmt.Sprintf("Tag{id=%d freq=%.3fkHz period=%.4fs gaps=%v}", t.ID, t.FreqKHz, t.Period, t.Gaps)
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
