package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const computeConfig = `
name = "occupancy"
stage = "compute"
entry = "occupancy_max"
num_threads = [8, 8, 8]
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadIsRefCounted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "occupancy.shadercfg"), computeConfig)

	cm := NewContentManager(ContentManagerConfig{Root: dir})
	defer cm.Shutdown()

	a, err := Load[*metadata.ShaderDescriptor](cm, "occupancy.shadercfg")
	require.NoError(t, err)
	b, err := Load[*metadata.ShaderDescriptor](cm, "occupancy.shadercfg")
	require.NoError(t, err)
	assert.Same(t, a, b)

	asset, ok := cm.Asset("occupancy.shadercfg")
	require.True(t, ok)
	assert.Equal(t, 2, asset.RefCount)
	assert.Equal(t, AssetTypeShaderConfig, asset.Type)

	assert.True(t, cm.Release("occupancy.shadercfg"))
	assert.Equal(t, 1, cm.Count())
	assert.True(t, cm.Release("occupancy.shadercfg"))
	assert.Equal(t, 0, cm.Count())
	assert.False(t, cm.Release("occupancy.shadercfg"))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "occupancy.shadercfg"), computeConfig)
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	cm := NewContentManager(ContentManagerConfig{Root: dir})
	defer cm.Shutdown()

	_, err := Load[[]byte](cm, "missing.bin")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = Load[[]byte](cm, "notes.txt")
	assert.ErrorIs(t, err, core.ErrNoLoader)

	_, err = Load[[]byte](cm, "occupancy.shadercfg")
	assert.ErrorIs(t, err, core.ErrAssetType)
	assert.Equal(t, 0, cm.Count(), "a type mismatch must not leak a reference")
}

func TestWatchReloadsChangedAssets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occupancy.shadercfg")
	writeFile(t, path, computeConfig)

	cm := NewContentManager(ContentManagerConfig{})
	defer cm.Shutdown()

	_, err := Load[*metadata.ShaderDescriptor](cm, path)
	require.NoError(t, err)
	require.NoError(t, cm.Watch(dir))

	var reloaded *metadata.ShaderDescriptor
	cm.OnReload(path, func(_ string, data interface{}) {
		reloaded = data.(*metadata.ShaderDescriptor)
	})

	writeFile(t, path, `
name = "occupancy"
stage = "compute"
entry = "occupancy_max"
num_threads = [4, 4, 4]
`)

	require.Eventually(t, func() bool {
		cm.Poll()
		return reloaded != nil && reloaded.NumThreads == [3]uint32{4, 4, 4}
	}, 5*time.Second, 20*time.Millisecond)

	current, err := Load[*metadata.ShaderDescriptor](cm, path)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 4, 4}, current.NumThreads)
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeVolume, DetermineAssetType("data/head.raw"))
	assert.Equal(t, AssetTypeTransferFunction, DetermineAssetType("head.tf"))
	assert.Equal(t, AssetTypeImage, DetermineAssetType("noise.png"))
	assert.Equal(t, AssetTypeNone, DetermineAssetType("head.meta"))
}
