package volume

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func texel(data []byte, x, row int) []byte {
	o := (row*TransferWidth + x) * 4
	return data[o : o+4]
}

func TestRasterizeInterpolatesBetweenNodes(t *testing.T) {
	nodes := []TransferNode{
		{Intensity: 255, Opacity: 1, R: 1, G: 1, B: 1, Metallic: 1},
		{Intensity: 0, Opacity: 0},
	}
	data := Rasterize(nodes)
	require.Len(t, data, TransferWidth*TransferHeight*4)

	mid := texel(data, 128, 0)
	assert.InDelta(t, 0.5, float64(mid[3])/255, 0.01, "opacity halfway up the ramp")
	assert.InDelta(t, 0.5, float64(mid[0])/255, 0.01)
	assert.InDelta(t, 0.5, float64(texel(data, 128, 1)[0])/255, 0.01, "metallic in row 1")

	assert.Equal(t, []byte{0, 0, 0, 0}, texel(data, 0, 0))
}

func TestRasterizeClampsOutsideTheNodes(t *testing.T) {
	nodes := []TransferNode{
		{Intensity: 50, Opacity: 0.2, R: 1},
		{Intensity: 100, Opacity: 0.8, G: 1},
	}
	data := Rasterize(nodes)
	assert.Equal(t, texel(data, 50, 0), texel(data, 0, 0))
	assert.Equal(t, texel(data, 100, 0), texel(data, 254, 0))
	assert.Equal(t, byte(204), texel(data, 254, 0)[3])
}

func TestTransferFileRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNodes(&buf, DefaultNodes()))
	assert.Equal(t, 4+len(DefaultNodes())*28, buf.Len())

	nodes, err := ReadNodes(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultNodes(), nodes)
}

func TestReadNodesRejectsMalformedFiles(t *testing.T) {
	_, err := ReadNodes(bytes.NewReader([]byte{1, 0}))
	assert.ErrorIs(t, err, core.ErrMalformedTFFile)

	var buf bytes.Buffer
	require.NoError(t, WriteNodes(&buf, DefaultNodes()))
	_, err = ReadNodes(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	assert.ErrorIs(t, err, core.ErrMalformedTFFile)

	buf.Reset()
	require.NoError(t, WriteNodes(&buf, []TransferNode{{Intensity: 0}, {Intensity: 300}}))
	_, err = ReadNodes(&buf)
	assert.ErrorIs(t, err, core.ErrMalformedTFFile)
}

func TestTransferFunctionLoadFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	tf := NewTransferFunction(env.rm)
	require.NoError(t, tf.SetNodes([]TransferNode{{Intensity: 10}, {Intensity: 20, Opacity: 1}}))

	err := tf.Load(filepath.Join(env.dir, "missing.tf"))
	assert.Error(t, err)
	assert.Equal(t, DefaultNodes(), tf.Nodes())

	bad := filepath.Join(env.dir, "bad.tf")
	require.NoError(t, os.WriteFile(bad, []byte{9, 9}, 0o644))
	assert.ErrorIs(t, tf.Load(bad), core.ErrMalformedTFFile)
	assert.Equal(t, DefaultNodes(), tf.Nodes())
}

func TestTransferFunctionSaveAndLoad(t *testing.T) {
	env := newTestEnv(t)
	tf := NewTransferFunction(env.rm)
	tf.AddNode(TransferNode{Intensity: 128, Opacity: 0.25, R: 1, Roughness: 0.5})

	path := filepath.Join(env.dir, "edited.tf")
	require.NoError(t, tf.Save(path))

	other := NewTransferFunction(env.rm)
	require.NoError(t, other.Load(path))
	assert.Equal(t, tf.Nodes(), other.Nodes())
}

func TestTransferFunctionNodeEditing(t *testing.T) {
	env := newTestEnv(t)
	tf := NewTransferFunction(env.rm)

	assert.ErrorIs(t, tf.RemoveNode(10), core.ErrNodeOutOfRange)
	assert.ErrorIs(t, tf.SetNode(-1, TransferNode{}), core.ErrNodeOutOfRange)
	assert.ErrorIs(t, tf.BeginDrag(4), core.ErrNodeOutOfRange)

	require.NoError(t, tf.RemoveNode(1))
	require.NoError(t, tf.RemoveNode(1))
	assert.ErrorIs(t, tf.RemoveNode(0), core.ErrTooFewNodes)
	assert.ErrorIs(t, tf.SetNodes(nil), core.ErrTooFewNodes)

	i := tf.AddNode(TransferNode{Intensity: 400, Opacity: 0.5})
	assert.Equal(t, uint32(255), tf.Nodes()[i].Intensity)
	assert.Equal(t, i, tf.NodeAt(254, 0.5, 3))
	assert.Equal(t, -1, tf.NodeAt(128, 0.5, 3))
}

func TestTransferFunctionUpdateWaitsForDragToEnd(t *testing.T) {
	env := newTestEnv(t)
	tf := NewTransferFunction(env.rm)

	changed, err := tf.Update()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, tf.IsDirty())
	require.True(t, tf.Texture().IsValid())

	changed, err = tf.Update()
	require.NoError(t, err)
	assert.False(t, changed, "nothing to rebuild")

	require.NoError(t, tf.BeginDrag(1))
	tf.DragTo(200, 0.9)
	tf.DragTo(40, 0.7)
	assert.True(t, tf.IsUserInteracting())
	assert.True(t, tf.IsDirty())

	changed, err = tf.Update()
	require.NoError(t, err)
	assert.False(t, changed, "no rebuild while dragging")

	tf.EndDrag()
	changed, err = tf.Update()
	require.NoError(t, err)
	assert.True(t, changed)

	nodes := tf.Nodes()
	assert.Equal(t, uint32(40), nodes[1].Intensity)
	assert.InDelta(t, 0.7, nodes[1].Opacity, 1e-6)

	data, err := env.rm.GetTextureData(tf.Texture())
	require.NoError(t, err)
	assert.Equal(t, Rasterize(nodes), data)

	desc, ok := env.rm.TextureDescriptor(tf.Texture())
	require.True(t, ok)
	assert.Equal(t, metadata.UsageDynamic, desc.Usage)
	assert.Equal(t, uint32(TransferWidth), desc.Width)
}
