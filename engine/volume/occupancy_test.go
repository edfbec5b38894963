package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func TestGridDimensionsAndDispatch(t *testing.T) {
	dims := emath.UVec3{X: 256, Y: 256, Z: 256}
	grid := GridDimensions(dims, 4)
	assert.Equal(t, emath.UVec3{X: 64, Y: 64, Z: 64}, grid)
	assert.Equal(t, emath.UVec3{X: 8, Y: 8, Z: 8}, DispatchGroups(grid))

	grid = GridDimensions(emath.UVec3{X: 250, Y: 3, Z: 129}, 4)
	assert.Equal(t, emath.UVec3{X: 63, Y: 1, Z: 33}, grid)
	assert.Equal(t, emath.UVec3{X: 8, Y: 1, Z: 5}, DispatchGroups(grid))
}

func TestNewOccupancyBuilderRejectsZeroCells(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewOccupancyBuilder(env.rm, env.cm, 0)
	assert.ErrorIs(t, err, core.ErrInvalidCellCount)
}

type occupancyFixture struct {
	env      *testEnv
	ingestor *Ingestor
	builder  *OccupancyBuilder
	transfer *TransferFunction
}

func newOccupancyFixture(t *testing.T, voxelsPerCell uint32) *occupancyFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &occupancyFixture{env: env, ingestor: NewIngestor(env.rm, env.cm), transfer: NewTransferFunction(env.rm)}
	var err error
	f.builder, err = NewOccupancyBuilder(env.rm, env.cm, voxelsPerCell)
	require.NoError(t, err)
	require.NoError(t, f.ingestor.Initialize("shaders/volume_normals.shadercfg"))
	require.NoError(t, f.builder.Initialize("shaders/occupancy.shadercfg"))
	require.NoError(t, f.transfer.GenerateTransferFunction())
	t.Cleanup(func() {
		f.builder.Release()
		f.transfer.Release()
		f.ingestor.Release()
	})
	return f
}

func (f *occupancyFixture) build(t *testing.T, src *RawVolume) (*OccupancyGrid, []byte) {
	t.Helper()
	vol, err := f.ingestor.GenerateVolume(src)
	require.NoError(t, err)
	t.Cleanup(func() { f.ingestor.DestroyVolume(vol) })

	grid, err := f.builder.GenerateVolumeGrid(vol, f.transfer.Texture())
	require.NoError(t, err)
	data, err := f.env.rm.GetTextureData(grid.Texture)
	require.NoError(t, err)
	return grid, data
}

func TestOccupancyOfASmallVolume(t *testing.T) {
	f := newOccupancyFixture(t, 4)

	src := cube(4, 0)
	src.Data[(2*4+2)*4+2] = 200
	grid, data := f.build(t, src)
	assert.Equal(t, emath.UVec3{X: 1, Y: 1, Z: 1}, grid.Dims)
	assert.Equal(t, emath.UVec3{X: 1, Y: 1, Z: 1}, f.builder.LastDispatch())
	require.Len(t, data, 1)
	assert.Greater(t, data[0], byte(0))

	state, ok := f.env.rm.TextureState(grid.Texture)
	require.True(t, ok)
	assert.Equal(t, metadata.StateShaderResource, state)

	_, data = f.build(t, cube(4, 0))
	assert.Equal(t, []byte{0}, data, "zero intensity is transparent under the default ramp")
}

func TestOccupancyCellsIncludeTheNeighbouringVoxel(t *testing.T) {
	f := newOccupancyFixture(t, 4)

	src := cube(8, 0)
	src.Data[3] = 255 // voxel (3, 0, 0), the last of cell 0 along x
	grid, data := f.build(t, src)
	require.Equal(t, emath.UVec3{X: 2, Y: 2, Z: 2}, grid.Dims)

	cell := func(x, y, z int) byte { return data[(z*2+y)*2+x] }
	assert.Greater(t, cell(0, 0, 0), byte(0))
	assert.Greater(t, cell(1, 0, 0), byte(0), "apron reaches into cell 1")
	assert.Equal(t, byte(0), cell(0, 1, 0))
	assert.Equal(t, byte(0), cell(1, 1, 1))
}

func TestOccupancyGridIsReusedUntilItsSizeChanges(t *testing.T) {
	f := newOccupancyFixture(t, 2)

	first, _ := f.build(t, cube(4, 255))
	second, data := f.build(t, cube(4, 255))
	assert.Equal(t, first.Texture, second.Texture)
	require.Len(t, data, 8)
	for _, v := range data {
		assert.Greater(t, v, byte(250))
	}

	third, _ := f.build(t, cube(8, 255))
	assert.NotEqual(t, first.Texture, third.Texture)
	assert.Equal(t, emath.UVec3{X: 4, Y: 4, Z: 4}, third.Dims)
	_, ok := f.env.rm.TextureDescriptor(first.Texture)
	assert.False(t, ok, "the old grid is destroyed")
}

func TestOccupancyNeedsAVolume(t *testing.T) {
	f := newOccupancyFixture(t, 4)
	_, err := f.builder.GenerateVolumeGrid(nil, f.transfer.Texture())
	assert.ErrorIs(t, err, core.ErrVolumeNotLoaded)
}

func TestOccupancyOfARawFileUnderAnOpaqueTransferFunction(t *testing.T) {
	f := newOccupancyFixture(t, 4)

	src := cube(4, 0)
	for i := range src.Data {
		src.Data[i] = byte(i * 3)
	}
	path := f.env.writeVolume(t, "tiny", src)
	raw, err := assets.Load[*RawVolume](f.env.cm, path)
	require.NoError(t, err)
	defer f.env.cm.Release(path)
	assert.Equal(t, []uint32{4, 4, 4}, []uint32{raw.Width, raw.Height, raw.Depth})
	assert.Equal(t, loaders.VoxelUint8, raw.Format)

	require.NoError(t, f.transfer.SetNodes([]TransferNode{
		{Intensity: 0, Opacity: 1, R: 1, G: 1, B: 1},
		{Intensity: 255, Opacity: 1, R: 1, G: 1, B: 1},
	}))
	require.NoError(t, f.transfer.GenerateTransferFunction())

	grid, data := f.build(t, raw)
	assert.Equal(t, emath.UVec3{X: 1, Y: 1, Z: 1}, grid.Dims)
	assert.Equal(t, []byte{255}, data, "the single cell is occupied")
}
