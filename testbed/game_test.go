package testbed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine"
	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
)

func TestCurvePoint(t *testing.T) {
	i, o := curvePoint(0, 0, 256, 101)
	assert.Equal(t, float32(0), i)
	assert.Equal(t, float32(1), o)

	i, o = curvePoint(255, 100, 256, 101)
	assert.Equal(t, float32(255), i)
	assert.Equal(t, float32(0), o)

	i, o = curvePoint(900, -5, 256, 101)
	assert.Equal(t, float32(255), i)
	assert.Equal(t, float32(1), o)

	i, o = curvePoint(5, 5, 0, 0)
	assert.Zero(t, i)
	assert.Zero(t, o)
}

func TestGreyNode(t *testing.T) {
	n := greyNode(127.6, 0.25)
	assert.Equal(t, uint32(128), n.Intensity)
	assert.InDelta(t, 0.5, n.R, 0.01)
	assert.Equal(t, n.R, n.B)
	assert.Equal(t, float32(1), n.Roughness)
}

// headlessConfig runs against the repository assets with the window disabled.
func headlessConfig(t *testing.T, frames uint64) *config.Config {
	root, err := filepath.Abs(filepath.Join("..", "assets"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Application.Headless = true
	cfg.Application.MaxFrames = frames
	cfg.Application.StartWidth = 24
	cfg.Application.StartHeight = 24
	cfg.Assets.Root = root
	cfg.Assets.Watch = false
	cfg.Device.Workers = 2
	cfg.Volume.AsyncRangeScan = true
	cfg.Volume.ExportDir = t.TempDir()
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config) (*DirectVolumeRenderer, *engine.Engine) {
	t.Helper()
	g := NewDirectVolumeRenderer(cfg)
	e, err := engine.New(g.Game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { e.Shutdown() })
	return g, e
}

func TestDirectVolumeRendererRunsHeadless(t *testing.T) {
	cfg := headlessConfig(t, 2)
	g, e := newEngine(t, cfg)

	p := g.state().pipeline
	require.NotNil(t, p.Volume())
	assert.Equal(t, uint32(32), p.Volume().Dims.X)
	assert.Equal(t, float32(100), p.Volume().Range.Min)
	assert.Equal(t, float32(3000), p.Volume().Range.Max)
	assert.Len(t, p.TransferFunction().Nodes(), 4)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(2), e.FrameCount())

	entries, err := os.ReadDir(cfg.Volume.ExportDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "volume and occupancy slices")
}

func TestMouseEditsTheTransferFunction(t *testing.T) {
	g, _ := newEngine(t, headlessConfig(t, 1))
	tf := g.state().pipeline.TransferFunction()
	before := len(tf.Nodes())

	// An empty spot adds a node and starts dragging it.
	g.Input.ProcessMouseMove(12, 6)
	g.Input.ProcessButton(core.BUTTON_LEFT, true)
	require.True(t, tf.IsUserInteracting())
	assert.Len(t, tf.Nodes(), before+1)

	g.Input.ProcessMouseMove(14, 4)
	g.Input.ProcessButton(core.BUTTON_LEFT, false)
	assert.False(t, tf.IsUserInteracting())
	assert.True(t, tf.IsDirty())

	g.Input.ProcessKey(core.KEY_DELETE, true)
	assert.Len(t, tf.Nodes(), before, "delete removes the hovered node")
}

func TestRightDragOrbitsTheCamera(t *testing.T) {
	g, _ := newEngine(t, headlessConfig(t, 1))
	camera := g.SystemManager.ForwardRenderer().Camera()

	g.Input.ProcessMouseMove(10, 10)
	g.Input.Update()
	g.Input.ProcessButton(core.BUTTON_RIGHT, true)
	g.Input.ProcessMouseMove(20, 10)
	assert.NotZero(t, camera.EulerRotation.Y)

	g.Input.ProcessMouseWheel(1)
	assert.Less(t, camera.Distance, float32(2))

	g.Input.ProcessKey(core.KEY_R, true)
	assert.Zero(t, camera.EulerRotation.Y)
	assert.Equal(t, float32(2), camera.Distance)
}
