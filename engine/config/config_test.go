package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snowfall.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"

[pools]
textures = 16

[volume]
path = "volumes/foot.raw"
voxels_per_cell = 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Pools.Textures)
	assert.Equal(t, 256, cfg.Pools.Buffers)
	assert.Equal(t, "volumes/foot.raw", cfg.Volume.Path)
	assert.Equal(t, uint32(8), cfg.Volume.VoxelsPerCell)
	assert.Equal(t, "shaders/occupancy.shadercfg", cfg.Volume.OccupancyProgram)
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Pools.Textures = 70000
	assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidCapacity)

	cfg = Default()
	cfg.Volume.VoxelsPerCell = 0
	assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidCellCount)

	cfg = Default()
	cfg.Device.Backend = "vulkan"
	assert.ErrorIs(t, cfg.Validate(), core.ErrNoDevice)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	cfg := Default()
	cfg.Application.Headless = true
	cfg.Device.BarrierTrace = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
