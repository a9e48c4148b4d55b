package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tolerance: 0.05\nmaxTime: 120\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, p.Tolerance)
	assert.Equal(t, 120.0, p.MaxTime)
	assert.Equal(t, Default().TimeFuzz, p.TimeFuzz)
}

func TestValidateRejectsBadValues(t *testing.T) {
	p := Default()
	p.MaxTime = 0
	assert.Error(t, p.Validate())

	p = Default()
	p.Tolerance = -1
	assert.Error(t, p.Validate())
}
