package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeta(t *testing.T) {
	meta, err := ParseMeta(strings.NewReader("# ct scan\nWidth=4\nHeight = 8\nDepth=2\nNumDims=3\nFormat=Uint16\nSpacing=1.0\n"))
	require.NoError(t, err)
	assert.Equal(t, VolumeMeta{Width: 4, Height: 8, Depth: 2, NumDims: 3, Format: VoxelUint16}, meta)
	assert.Equal(t, 128, meta.ByteSize())
}

func TestParseMetaRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing depth":  "Width=4\nHeight=4\nFormat=Uint8\n",
		"zero dimension": "Width=0\nHeight=4\nDepth=4\nFormat=Uint8\n",
		"bad format":     "Width=4\nHeight=4\nDepth=4\nFormat=Float\n",
		"no separator":   "Width 4\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMeta(strings.NewReader(text))
			assert.ErrorIs(t, err, core.ErrMalformedMeta)
		})
	}
}

func TestWriteMetaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.meta")
	want := VolumeMeta{Width: 16, Height: 16, Depth: 9, NumDims: 3, Format: VoxelSint16}
	require.NoError(t, WriteMeta(path, want))

	got, err := ReadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRawVolumeLoader(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "cube.raw")
	require.NoError(t, os.WriteFile(raw, make([]byte, 4*4*4+3), 0o644))

	loader := &RawVolumeLoader{}
	_, err := loader.Load(raw)
	require.ErrorIs(t, err, core.ErrMissingMeta)

	require.NoError(t, WriteMeta(MetaPath(raw), VolumeMeta{Width: 4, Height: 4, Depth: 4, NumDims: 3, Format: VoxelUint8}))
	data, err := loader.Load(raw)
	require.NoError(t, err)
	vol := data.(*RawVolume)
	assert.Equal(t, "cube", vol.Name)
	assert.Len(t, vol.Data, 64)
	assert.True(t, vol.IsLoaded())

	require.NoError(t, loader.Unload(vol))
	assert.False(t, vol.IsLoaded())

	require.NoError(t, WriteMeta(MetaPath(raw), VolumeMeta{Width: 8, Height: 8, Depth: 8, NumDims: 3, Format: VoxelUint8}))
	_, err = loader.Load(raw)
	assert.ErrorIs(t, err, core.ErrMalformedVolume)
}

func TestMetaPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "head.meta"), MetaPath(filepath.Join("data", "head.raw")))
}
