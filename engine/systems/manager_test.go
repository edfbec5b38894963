package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Application.StartWidth = 8
	cfg.Application.StartHeight = 8
	cfg.Assets.Root = t.TempDir()
	cfg.Device.Workers = 2
	return cfg
}

func TestSystemManagerWiresTheServices(t *testing.T) {
	events := core.NewEventSystem()
	sm, err := NewSystemManager(testConfig(t), events)
	require.NoError(t, err)
	defer sm.Shutdown()
	require.NoError(t, sm.Initialize())

	assert.NotNil(t, sm.JobSystem())
	assert.NotNil(t, sm.Device())
	assert.NotNil(t, sm.ResourceManager())
	assert.NotNil(t, sm.ContentManager())
	assert.Same(t, events, sm.Events())
	assert.Nil(t, sm.BarrierRecorder())

	fr := sm.ForwardRenderer()
	require.NotNil(t, fr)
	assert.Equal(t, uint32(8), fr.Width())

	require.NoError(t, sm.OnResize(0, 5), "minimized windows keep the frame")
	assert.Equal(t, uint32(8), fr.Width())
	require.NoError(t, sm.OnResize(16, 4))
	assert.Equal(t, uint32(16), fr.Width())
	assert.Equal(t, uint32(4), fr.Height())
}

func TestSystemManagerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pools.Textures = 0
	_, err := NewSystemManager(cfg, nil)
	assert.ErrorIs(t, err, core.ErrInvalidCapacity)
}

func TestBarrierTraceRecordsTransitions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.BarrierTrace = true
	sm, err := NewSystemManager(cfg, nil)
	require.NoError(t, err)
	defer sm.Shutdown()

	rec := sm.BarrierRecorder()
	require.NotNil(t, rec)
	rec.Drain()
	assert.NotEmpty(t, rec.DrainCreated(), "the forward renderer targets are traced")

	rm := sm.ResourceManager()
	h, err := rm.CreateTexture(metadata.Volume3D("scratch", emath.UVec3{X: 4, Y: 4, Z: 4},
		metadata.FormatR8Unorm, metadata.UsageDefault, metadata.BindShaderResource|metadata.BindUnorderedAccess), nil)
	require.NoError(t, err)
	require.NoError(t, rm.Transition(h, metadata.StateCopySource))
	require.Equal(t, 1, rec.Len())

	sm.Update()
	assert.Equal(t, 0, rec.Len(), "drained once per frame")
	assert.Empty(t, rec.DrainCreated())
}

func TestBarrierTraceRecordsCreateInfos(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.BarrierTrace = true
	sm, err := NewSystemManager(cfg, nil)
	require.NoError(t, err)
	defer sm.Shutdown()

	rec := sm.BarrierRecorder()
	rec.DrainCreated()
	rm := sm.ResourceManager()

	_, err = rm.CreateTexture(metadata.Volume3D("grid", emath.UVec3{X: 4, Y: 2, Z: 3},
		metadata.FormatR8Unorm, metadata.UsageDefault, metadata.BindShaderResource|metadata.BindUnorderedAccess), nil)
	require.NoError(t, err)
	_, err = rm.CreateBuffer(metadata.ConstantBuffer("constants", 16), nil)
	require.NoError(t, err)

	sampler := metadata.LinearClampSampler()
	sampler.MipLODBias = 0.5
	_, err = rm.CreateSamplerState(sampler)
	require.NoError(t, err)
	_, err = rm.CreateSamplerState(sampler)
	require.NoError(t, err)

	raster := metadata.DefaultRaster()
	raster.DepthBias = 7
	_, err = rm.GetRasterState(raster)
	require.NoError(t, err)

	created := rec.DrainCreated()
	require.Len(t, created, 4, "cached states are only created once")

	assert.Equal(t, "image", created[0].Kind)
	assert.Equal(t, "grid", created[0].Name)
	require.NotNil(t, created[0].Image)
	assert.Equal(t, uint32(3), created[0].Image.Extent.Depth)

	assert.Equal(t, "buffer", created[1].Kind)
	assert.NotZero(t, created[1].BufferUsage)

	assert.Equal(t, "sampler", created[2].Kind)
	require.NotNil(t, created[2].Sampler)
	assert.Equal(t, float32(0.5), created[2].Sampler.MipLodBias)

	assert.Equal(t, "raster", created[3].Kind)
	require.NotNil(t, created[3].Raster)
	assert.Equal(t, float32(7), created[3].Raster.DepthBiasConstantFactor)
}

func TestUpdateFiresOnlyWhenAssetsReload(t *testing.T) {
	events := core.NewEventSystem()
	fired := 0
	events.Register(core.EVENT_CODE_ASSET_RELOADED, t, func(core.EventContext, interface{}, interface{}) bool {
		fired++
		return true
	})
	sm, err := NewSystemManager(testConfig(t), events)
	require.NoError(t, err)
	defer sm.Shutdown()

	sm.Update()
	assert.Zero(t, fired)
}

func TestForwardRendererUsesTheDefaultCamera(t *testing.T) {
	sm, err := NewSystemManager(testConfig(t), nil)
	require.NoError(t, err)
	defer sm.Shutdown()
	assert.Same(t, sm.CameraSystem().GetDefault(), sm.ForwardRenderer().Camera())
}
