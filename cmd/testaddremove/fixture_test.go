package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
tags:
  - id: 1
    freqKHz: 166.380
    gaps: [2.1, 2.3, 2.7]
  - id: 2
    freqKHz: 166.380
    gaps: [5.0, 5.4, 6.1]
events:
  - {timestamp: 0, kind: add, tagId: 1}
  - {timestamp: 1, kind: add, tagId: 2}
  - {timestamp: 50, kind: remove, tagId: 1}
`

func TestLoadFixtureParsesTagsAndEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o644))

	sched, err := loadFixture(path)
	require.NoError(t, err)
	require.Len(t, sched, 3)
	assert.NoError(t, sched.Validate())
	assert.Equal(t, int64(1), int64(sched[0].Tag.ID))
}

func TestLoadFixtureRejectsUnknownTagID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	bad := `
tags:
  - id: 1
    freqKHz: 166.380
    gaps: [2.1, 2.3]
events:
  - {timestamp: 0, kind: add, tagId: 99}
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := loadFixture(path)
	assert.Error(t, err)
}
