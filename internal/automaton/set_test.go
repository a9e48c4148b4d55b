package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sensorgnome-org/tagdfa/tag"
)

func TestSetKeyStableUnderConstructionOrder(t *testing.T) {
	a := tag.Of(1, 0)
	b := tag.Of(2, 1)

	s1 := NewSet(a, b)
	s2 := NewSet(b, a)

	assert.Equal(t, s1.key(), s2.key())
}

func TestSetKeyDiffersOnContent(t *testing.T) {
	s1 := NewSet(tag.Of(1, 0))
	s2 := NewSet(tag.Of(1, 1))
	assert.NotEqual(t, s1.key(), s2.key())
}

func TestWithAddWithDropRoundTrip(t *testing.T) {
	base := NewSet(tag.Of(1, 0))
	tp := tag.Of(2, 3)

	added := base.withAdd(tp)
	assert.True(t, added.Contains(tp))
	assert.False(t, base.Contains(tp), "withAdd must not mutate the receiver")

	dropped := added.withDrop(tp)
	assert.Equal(t, base.key(), dropped.key())
}

func TestWithDropRemovesEntryAtZeroCount(t *testing.T) {
	s := NewSet(tag.Of(1, 0))
	dropped := s.withDrop(tag.Of(1, 0))
	assert.True(t, dropped.Empty())
}

func TestWithRenamedRewritesMatchingTagOnly(t *testing.T) {
	s := NewSet(tag.Of(1, 0), tag.Of(2, 0))
	renamed := s.withRenamed(1, -1)

	assert.True(t, renamed.Contains(tag.Of(-1, 0)))
	assert.True(t, renamed.Contains(tag.Of(2, 0)))
	assert.False(t, renamed.Contains(tag.Of(1, 0)))
}

func TestPhasesAreSortedDeterministically(t *testing.T) {
	s := NewSet(tag.Of(3, 0), tag.Of(1, 2), tag.Of(1, 0))
	ps := s.Phases()
	for i := 1; i < len(ps); i++ {
		less := ps[i-1].Tag < ps[i].Tag || (ps[i-1].Tag == ps[i].Tag && ps[i-1].Phase < ps[i].Phase)
		assert.True(t, less, "phases not sorted: %v", ps)
	}
}
