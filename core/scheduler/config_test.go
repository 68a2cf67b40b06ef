package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "nearest_neighbor", cfg.Optimizer)
	assert.True(t, cfg.ConservationEnabled())
	assert.Equal(t, 0.0, cfg.BufferTimeSeconds)
}

func TestDecodeConfigJSON(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`{"buffer_time_seconds": 300, "verify_conservation": false}`), "json")
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.BufferTimeSeconds)
	assert.False(t, cfg.ConservationEnabled())
}

func TestDecodeConfigRejects(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("buffer_time_seconds: -5\n"), "yaml")
	assert.ErrorIs(t, err, ErrInvalidBufferTime)
	_, err = DecodeConfig(strings.NewReader("optimizer: genetic\n"), "yaml")
	assert.Error(t, err)
	_, err = DecodeConfig(strings.NewReader("{}"), "toml")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer_time_seconds: 60\noptimizer: nearest_neighbor\n"), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.BufferTimeSeconds)

	bad := filepath.Join(dir, "scheduler.ini")
	require.NoError(t, os.WriteFile(bad, []byte("x=1"), 0o600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
