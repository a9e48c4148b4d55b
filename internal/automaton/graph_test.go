package automaton

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorgnome-org/tagdfa/tag"
)

const (
	testTol      = 0.02
	testFuzz     = 0.01
	testMaxTime  = 60.0
	testMinTime  = 0.0
)

func TestNewGraphHasOnlyRoot(t *testing.T) {
	g := New("t")
	assert.Equal(t, 1, g.NumNodes())
	assert.Equal(t, 1, g.NumSets())
}

func TestAddTagProducesExpectedNodeCount(t *testing.T) {
	g := New("t")
	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})

	_, proxy, err := g.AddTag(tg, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	require.Nil(t, proxy)

	// root + one node per phase transition (3 gaps -> 3 phase nodes).
	assert.Equal(t, 1+tg.NumPhases(), g.NumNodes())
	assert.NoError(t, g.ValidateInvariants())

	loc, ok := g.Find(tg.ID)
	require.True(t, ok)
	assert.Equal(t, tag.Of(tg.ID, 0), loc.Phase)
}

func TestAddDuplicateTagFails(t *testing.T) {
	g := New("t")
	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(tg, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	_, _, err = g.AddTag(tg, testTol, testFuzz, testMaxTime, testMinTime)
	require.Error(t, err)
	var dup *DuplicateTagError
	assert.ErrorAs(t, err, &dup)
}

func TestAddTwoDisjointTagsBothReachable(t *testing.T) {
	g := New("t")
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{5.0, 5.4, 6.1})

	_, _, err := g.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	assert.NoError(t, g.ValidateInvariants())
	_, ok := g.Find(a.ID)
	assert.True(t, ok)
	_, ok = g.Find(b.ID)
	assert.True(t, ok)
}

func TestAddAmbiguousTagsFormProxy(t *testing.T) {
	g := New("t")
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{2.1, 2.3, 2.7})

	_, proxy1, err := g.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	require.Nil(t, proxy1)

	_, proxy2, err := g.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	require.NotNil(t, proxy2)
	assert.True(t, proxy2.ID.IsProxy())

	locA, ok := g.Find(a.ID)
	require.True(t, ok)
	locB, ok := g.Find(b.ID)
	require.True(t, ok)
	assert.Equal(t, locA.Node, locB.Node)
	assert.NoError(t, g.ValidateInvariants())
}

func TestRemoveUnknownTagReportsUnknown(t *testing.T) {
	g := New("t")
	out, err := g.RemoveTag(99, testTol, testFuzz, testMaxTime)
	require.Error(t, err)
	assert.Equal(t, RemovalUnknownTag, out.Kind)
}

func TestAddThenRemoveReturnsToEmpty(t *testing.T) {
	g := New("t")
	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(tg, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	out, err := g.RemoveTag(tg.ID, testTol, testFuzz, testMaxTime)
	require.NoError(t, err)
	assert.Equal(t, RemovalStructural, out.Kind)

	assert.Equal(t, 1, g.NumNodes())
	assert.NoError(t, g.ValidateInvariants())
	_, ok := g.Find(tg.ID)
	assert.False(t, ok)
}

func TestRemoveOneOfTwoDisjointTagsLeavesOtherIntact(t *testing.T) {
	g := New("t")
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{5.0, 5.4, 6.1})
	_, _, err := g.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	out, err := g.RemoveTag(a.ID, testTol, testFuzz, testMaxTime)
	require.NoError(t, err)
	assert.Equal(t, RemovalStructural, out.Kind)

	_, ok := g.Find(a.ID)
	assert.False(t, ok)
	_, ok = g.Find(b.ID)
	assert.True(t, ok)
	assert.NoError(t, g.ValidateInvariants())
}

func TestRemoveOneOfAmbiguousPairDissolvesToSingleton(t *testing.T) {
	g := New("t")
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	out, err := g.RemoveTag(a.ID, testTol, testFuzz, testMaxTime)
	require.NoError(t, err)
	require.Equal(t, RemovalDissolvedToSingleton, out.Kind)
	assert.Equal(t, b.ID, out.Remaining.ID)

	loc, ok := g.Find(b.ID)
	require.True(t, ok)
	assert.Equal(t, tag.Of(b.ID, 0), loc.Phase)
	assert.NoError(t, g.ValidateInvariants())
}

func TestRemoveOneOfThreeWayAmbiguityStaysAmbiguous(t *testing.T) {
	g := New("t")
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{2.1, 2.3, 2.7})
	c := tag.New(3, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g.AddTag(c, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	out, err := g.RemoveTag(a.ID, testTol, testFuzz, testMaxTime)
	require.NoError(t, err)
	assert.Equal(t, RemovalStillAmbiguous, out.Kind)
	assert.NoError(t, g.ValidateInvariants())
}

func TestStampWrapResetsAllNodes(t *testing.T) {
	g := New("t")
	g.stamp = maxStamp
	s1 := g.newStamp()
	assert.Equal(t, int64(1), s1)
	for i := range g.nodes {
		assert.Equal(t, int64(0), g.nodes[i].stamp)
	}
}

func TestNumEdgesCountsRootSelfLoop(t *testing.T) {
	g := New("t")
	assert.Equal(t, 1, g.NumEdges())
}

func TestAddOrderProducesStructurallyIdenticalRootSets(t *testing.T) {
	a := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	b := tag.New(2, 166.380, []float64{5.0, 5.4, 6.1})

	g1 := New("order1")
	_, _, err := g1.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g1.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	g2 := New("order2")
	_, _, err = g2.AddTag(b, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)
	_, _, err = g2.AddTag(a, testTol, testFuzz, testMaxTime, testMinTime)
	require.NoError(t, err)

	rootPhases1 := g1.nodes[g1.root].set.Phases()
	rootPhases2 := g2.nodes[g2.root].set.Phases()
	if diff := cmp.Diff(rootPhases1, rootPhases2); diff != "" {
		t.Errorf("root Set differs by insertion order (-order1 +order2):\n%s", diff)
	}
}
