package volume

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func volume16(format loaders.VoxelFormat, values ...uint16) *RawVolume {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	return &RawVolume{
		VolumeMeta: loaders.VolumeMeta{Width: uint32(len(values)), Height: 1, Depth: 1, NumDims: 3, Format: format},
		Name:       "line",
		Data:       data,
	}
}

func TestGetRangeScans16BitVolumes(t *testing.T) {
	r, err := GetRange(volume16(loaders.VoxelUint16, 500, 10, 65000, 300))
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 10, Max: 65000}, r)

	minus100 := int16(-100)
	r, err = GetRange(volume16(loaders.VoxelSint16, 7, uint16(minus100), 1200))
	require.NoError(t, err)
	assert.Equal(t, Range{Min: -100, Max: 1200}, r)
}

func TestGetRangeOf8BitVolumesIsTheTypeRange(t *testing.T) {
	r, err := GetRange(cube(2, 17))
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 0, Max: 255}, r)
	assert.Equal(t, float32(255), r.Extent())

	v := cube(2, 17)
	v.Format = loaders.VoxelSint8
	r, err = GetRange(v)
	require.NoError(t, err)
	assert.Equal(t, Range{Min: -128, Max: 127}, r)
}

func TestGetRangeNeedsData(t *testing.T) {
	v := cube(2, 0)
	v.ReleaseData()
	_, err := GetRange(v)
	assert.ErrorIs(t, err, core.ErrVolumeNotLoaded)
	assert.Equal(t, float32(1), Range{Min: 3, Max: 3}.Extent())
}

type inlineJobs struct{ err error }

func (j inlineJobs) Submit(job metadata.JobTask) error {
	if j.err != nil {
		return j.err
	}
	result, err := job.OnStart(job.InputParams)
	if err != nil {
		job.OnFailure(err)
		return nil
	}
	job.OnComplete(result)
	return nil
}

func TestGetRangeAsync(t *testing.T) {
	res := <-GetRangeAsync(inlineJobs{}, volume16(loaders.VoxelUint16, 4, 9))
	require.NoError(t, res.Err)
	assert.Equal(t, Range{Min: 4, Max: 9}, res.Range)

	empty := volume16(loaders.VoxelUint16, 1)
	empty.ReleaseData()
	res = <-GetRangeAsync(inlineJobs{}, empty)
	assert.ErrorIs(t, res.Err, core.ErrVolumeNotLoaded)

	closed := errors.New("closed")
	res = <-GetRangeAsync(inlineJobs{err: closed}, volume16(loaders.VoxelUint16, 1))
	assert.ErrorIs(t, res.Err, closed)
}

func TestSourceFormats(t *testing.T) {
	assert.Equal(t, metadata.FormatR8Unorm, SourceFormat(loaders.VoxelUint8))
	assert.Equal(t, metadata.FormatR16Unorm, SourceFormat(loaders.VoxelUint16))
	assert.Equal(t, metadata.FormatR8Snorm, SourceFormat(loaders.VoxelSint8))
	assert.Equal(t, metadata.FormatR16Snorm, SourceFormat(loaders.VoxelSint16))
}

func TestIngestorNeedsInitialize(t *testing.T) {
	env := newTestEnv(t)
	in := NewIngestor(env.rm, env.cm)
	_, err := in.GenerateVolume(cube(4, 1))
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	assert.ErrorIs(t, in.Initialize("shaders/missing.shadercfg"), core.ErrAssetNotFound)
	assert.ErrorIs(t, in.Initialize("shaders/raymarch_vs.shadercfg"), core.ErrInvalidDescriptor)
	assert.False(t, in.IsInitialized())
	assert.Equal(t, 0, env.cm.Count(), "failed loads keep no reference")

	require.NoError(t, in.Initialize("shaders/volume_normals.shadercfg"))
	require.NoError(t, in.Initialize("shaders/volume_normals.shadercfg"))
	asset, ok := env.cm.Asset("shaders/volume_normals.shadercfg")
	require.True(t, ok)
	assert.Equal(t, 1, asset.RefCount, "initializing twice loads once")

	in.Release()
	assert.Equal(t, 0, env.cm.Count())
}

func TestGenerateVolumeComputesIntensityAndNormals(t *testing.T) {
	env := newTestEnv(t)
	in := NewIngestor(env.rm, env.cm)
	require.NoError(t, in.Initialize("shaders/volume_normals.shadercfg"))
	defer in.Release()

	// Solid lower half along x: the surface normal points towards +x.
	src := cube(4, 0)
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 2; x++ {
				src.Data[(z*4+y)*4+x] = 200
			}
		}
	}
	vol, err := in.GenerateVolume(src)
	require.NoError(t, err)
	defer in.DestroyVolume(vol)

	assert.False(t, src.IsLoaded(), "CPU copy is released after upload")
	assert.Equal(t, emath.UVec3{X: 4, Y: 4, Z: 4}, vol.Dims)
	assert.Equal(t, Range{Min: 0, Max: 255}, vol.Range)

	desc, ok := env.rm.TextureDescriptor(vol.Texture)
	require.True(t, ok)
	assert.Equal(t, metadata.UsageImmutable, desc.Usage)
	assert.Equal(t, metadata.FormatRGBA8Unorm, desc.Format)

	data, err := env.rm.GetTextureData(vol.Texture)
	require.NoError(t, err)
	at := func(x, y, z int) []byte {
		o := ((z*4+y)*4 + x) * 4
		return data[o : o+4]
	}
	assert.Equal(t, byte(200), at(0, 1, 1)[3])
	assert.Equal(t, byte(0), at(3, 1, 1)[3])
	edge := at(1, 1, 1)
	assert.Greater(t, edge[0], byte(250), "normal x points out of the solid")
	assert.InDelta(t, 128, int(edge[1]), 1)
	assert.InDelta(t, 128, int(edge[2]), 1)

	stats := env.rm.Stats()
	assert.Equal(t, 1, stats.Textures, "scratch and source textures are destroyed")

	_, err = in.GenerateVolume(src)
	assert.ErrorIs(t, err, core.ErrVolumeNotLoaded)
}

func TestGenerateVolumeScales16BitData(t *testing.T) {
	env := newTestEnv(t)
	in := NewIngestor(env.rm, env.cm)
	require.NoError(t, in.Initialize("shaders/volume_normals.shadercfg"))
	defer in.Release()

	src := volume16(loaders.VoxelUint16, 1000, 2000, 3000, 1000)
	vol, err := in.GenerateVolume(src)
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 1000, Max: 3000}, vol.Range)

	data, err := env.rm.GetTextureData(vol.Texture)
	require.NoError(t, err)
	assert.Equal(t, byte(0), data[3])
	assert.InDelta(t, 128, int(data[7]), 1)
	assert.Equal(t, byte(255), data[11])
}
