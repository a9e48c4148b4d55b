package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorgnome-org/tagdfa/internal/automaton"
	"github.com/sensorgnome-org/tagdfa/tag"
)

func TestSnapshotRoundTrips(t *testing.T) {
	g := automaton.New("t")
	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(tg, 0.02, 0.01, 60.0, 0.0)
	require.NoError(t, err)

	data, err := DumpSnapshot(g)
	require.NoError(t, err)

	snap, err := LoadSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, g.Root(), snap.Root)
	assert.Equal(t, g.NumNodes(), len(snap.Nodes))
}

func TestDumpAndDiffDetectMutation(t *testing.T) {
	g := automaton.New("t")
	before := Dump(g)

	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(tg, 0.02, 0.01, 60.0, 0.0)
	require.NoError(t, err)
	after := Dump(g)

	diff, err := DiffDumps(before, after)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
}

func TestDumpProfileHasOneSamplePerNode(t *testing.T) {
	g := automaton.New("t")
	tg := tag.New(1, 166.380, []float64{2.1, 2.3, 2.7})
	_, _, err := g.AddTag(tg, 0.02, 0.01, 60.0, 0.0)
	require.NoError(t, err)

	p, err := DumpProfile(g)
	require.NoError(t, err)
	assert.Equal(t, g.NumNodes(), len(p.Sample))
}
