// Package interval implements GapRanges: an ordered, pairwise-disjoint union
// of closed real intervals over inter-pulse gap timings, with the tolerance
// and period-extension algebra the automaton needs to turn one nominal gap
// into the set of gap values that should be recognized as "the same gap".
package interval

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Range is a closed interval [Lo, Hi] on the real line, Lo <= Hi.
type Range struct {
	Lo, Hi float64
}

func (r Range) overlaps(o Range) bool {
	return r.Lo <= o.Hi && o.Lo <= r.Hi
}

// adjacent reports whether r and o touch or overlap closely enough that
// their union is a single interval with no gap between them.
func (r Range) adjacent(o Range) bool {
	return r.overlaps(o)
}

// Ranges is an ordered set of pairwise-disjoint, non-adjacent closed
// intervals, sorted ascending by Lo. The zero value is the empty set.
type Ranges []Range

// Single constructs the singleton GapRanges for one nominal gap g, under
// fractional tolerance tol and additive timing fuzz: [g(1-tol)-fuzz,
// g(1+tol)+fuzz], with the low end floored at 0. Panics if g is
// non-positive, fuzz is non-finite, or tol is negative or
// non-finite (spec.md §7 NumericDomain: caller's bug, rejected at the
// boundary).
func Single(g, tol, fuzz float64) Ranges {
	if !(g > 0) {
		panic(fmt.Sprintf("interval.Single: non-positive gap %v", g))
	}
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) || math.IsNaN(fuzz) || math.IsInf(fuzz, 0) {
		panic(fmt.Sprintf("interval.Single: invalid tolerance tol=%v fuzz=%v", tol, fuzz))
	}
	lo := g*(1-tol) - fuzz
	hi := g*(1+tol) + fuzz
	if lo < 0 {
		lo = 0
	}
	return Ranges{{Lo: lo, Hi: hi}}
}

// Unbounded returns the GapRanges [0, +Inf] (closed, so it contains 0): the
// root node's self-loop, "waiting for any first pulse of any tag" (spec.md §4.F).
func Unbounded() Ranges {
	return Ranges{{Lo: 0, Hi: math.Inf(1)}}
}

// Empty reports whether r covers no points.
func (r Ranges) Empty() bool { return len(r) == 0 }

// Contains reports whether x falls within any interval of r.
func (r Ranges) Contains(x float64) bool {
	i, ok := search(r, x)
	if ok {
		return true
	}
	return i > 0 && r[i-1].Hi >= x
}

// search returns the index of the first range whose Hi is >= x, and whether
// that range also has Lo <= x <= Hi (an exact hit at that index).
func search(r Ranges, x float64) (int, bool) {
	i, found := slices.BinarySearchFunc(r, x, func(rg Range, v float64) int {
		if rg.Hi < v {
			return -1
		}
		if rg.Lo > v {
			return 1
		}
		return 0
	})
	return i, found
}

// Overlaps reports whether r and o share any point.
func (r Ranges) Overlaps(o Ranges) bool {
	i, j := 0, 0
	for i < len(r) && j < len(o) {
		if r[i].overlaps(o[j]) {
			return true
		}
		if r[i].Hi < o[j].Hi {
			i++
		} else {
			j++
		}
	}
	return false
}

// Union returns the normalized union of r and o.
func Union(r, o Ranges) Ranges {
	merged := make(Ranges, 0, len(r)+len(o))
	merged = append(merged, r...)
	merged = append(merged, o...)
	return normalize(merged)
}

// Intersect returns the normalized intersection of r and o.
func Intersect(r, o Ranges) Ranges {
	var out Ranges
	i, j := 0, 0
	for i < len(r) && j < len(o) {
		lo := math.Max(r[i].Lo, o[j].Lo)
		hi := math.Min(r[i].Hi, o[j].Hi)
		if lo <= hi {
			out = append(out, Range{Lo: lo, Hi: hi})
		}
		if r[i].Hi < o[j].Hi {
			i++
		} else {
			j++
		}
	}
	return normalize(out)
}

// Difference returns r with every point of o removed.
func Difference(r, o Ranges) Ranges {
	if len(o) == 0 {
		return append(Ranges{}, r...)
	}
	var out Ranges
	for _, rg := range r {
		remaining := []Range{rg}
		for _, sub := range o {
			var next []Range
			for _, cur := range remaining {
				next = append(next, subtract(cur, sub)...)
			}
			remaining = next
		}
		out = append(out, remaining...)
	}
	return normalize(out)
}

func subtract(r, sub Range) []Range {
	if !r.overlaps(sub) {
		return []Range{r}
	}
	var out []Range
	if sub.Lo > r.Lo {
		hi := sub.Lo
		hi = math.Nextafter(hi, math.Inf(-1))
		if hi >= r.Lo {
			out = append(out, Range{Lo: r.Lo, Hi: hi})
		}
	}
	if sub.Hi < r.Hi {
		lo := math.Nextafter(sub.Hi, math.Inf(1))
		if lo <= r.Hi {
			out = append(out, Range{Lo: lo, Hi: r.Hi})
		}
	}
	return out
}

// ExtendByPeriod adds shifted copies [lo+p*n, hi+p*n] for n = 1, 2, ... while
// lo+p*n <= maxTime, modeling that the next matching pulse may arrive after
// one or more full silent cycles of the tag's burst.
func (r Ranges) ExtendByPeriod(period, maxTime float64) Ranges {
	if period <= 0 {
		panic(fmt.Sprintf("interval.ExtendByPeriod: non-positive period %v", period))
	}
	out := append(Ranges{}, r...)
	for _, rg := range r {
		for n := 1; ; n++ {
			shifted := Range{Lo: rg.Lo + period*float64(n), Hi: rg.Hi + period*float64(n)}
			if shifted.Lo > maxTime {
				break
			}
			if shifted.Hi > maxTime {
				shifted.Hi = maxTime
			}
			out = append(out, shifted)
		}
	}
	return normalize(out)
}

// normalize sorts ranges by Lo and merges overlapping or touching intervals,
// dropping any that are empty after clamping.
func normalize(r Ranges) Ranges {
	clean := make(Ranges, 0, len(r))
	for _, rg := range r {
		if rg.Lo <= rg.Hi {
			clean = append(clean, rg)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	slices.SortFunc(clean, func(a, b Range) int {
		switch {
		case a.Lo < b.Lo:
			return -1
		case a.Lo > b.Lo:
			return 1
		default:
			return 0
		}
	})
	out := Ranges{clean[0]}
	for _, rg := range clean[1:] {
		last := &out[len(out)-1]
		if rg.Lo <= last.Hi {
			if rg.Hi > last.Hi {
				last.Hi = rg.Hi
			}
			continue
		}
		out = append(out, rg)
	}
	return out
}

func (r Ranges) String() string {
	s := "{"
	for i, rg := range r {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("[%.6f, %.6f]", rg.Lo, rg.Hi)
	}
	return s + "}"
}

// ClampMin drops any portion of r below minTime, used to apply the
// automaton's minTime floor to a freshly extended GapRanges.
func (r Ranges) ClampMin(minTime float64) Ranges {
	if minTime <= 0 {
		return r
	}
	var out Ranges
	for _, rg := range r {
		if rg.Hi < minTime {
			continue
		}
		if rg.Lo < minTime {
			rg.Lo = minTime
		}
		out = append(out, rg)
	}
	return out
}

// LowEndpoint returns the low endpoint of r's first interval. Panics on an
// empty Ranges. internal/automaton does not call it; its edge lookup
// (arenaNode.findEdgeByLow) reads ranges[0].Lo directly.
func (r Ranges) LowEndpoint() float64 {
	if len(r) == 0 {
		panic("interval.Ranges.LowEndpoint: empty range set")
	}
	return r[0].Lo
}
