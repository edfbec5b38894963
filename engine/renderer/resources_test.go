package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"github.com/spaghettifunk/snowfall/engine/renderer/soft"
)

func testConfig() renderer.ResourceManagerConfig {
	return renderer.ResourceManagerConfig{
		MaxBufferCount:      8,
		MaxTextureCount:     8,
		MaxShaderCount:      8,
		MaxPipelineCount:    8,
		MaxSamplerCount:     8,
		MaxBlendCount:       8,
		MaxRasterCount:      8,
		MaxDepthCount:       8,
		MaxInputLayoutCount: 8,
	}
}

func newManager(t *testing.T) (*renderer.ResourceManager, *soft.Device) {
	t.Helper()
	dev := soft.NewDevice(soft.Config{})
	rm, err := renderer.NewResourceManager(testConfig(), dev)
	require.NoError(t, err)
	return rm, dev
}

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestNewResourceManagerNeedsDevice(t *testing.T) {
	_, err := renderer.NewResourceManager(testConfig(), nil)
	assert.ErrorIs(t, err, core.ErrNoDevice)

	cfg := testConfig()
	cfg.MaxTextureCount = 0
	_, err = renderer.NewResourceManager(cfg, soft.NewDevice(soft.Config{}))
	assert.ErrorIs(t, err, core.ErrInvalidCapacity)
}

func TestTextureDataRoundTrip(t *testing.T) {
	rm, _ := newManager(t)
	desc := metadata.TextureDescriptor{
		Width: 8, Height: 4, ArraySize: 2, Format: metadata.FormatRGBA8Unorm, Type: metadata.TextureType2D,
		Usage: metadata.UsageImmutable, BindFlags: metadata.BindShaderResource,
	}
	check := desc
	require.NoError(t, check.Finalize())
	data := sequence(int(check.ByteCount))

	h, err := rm.CreateTexture(desc, data)
	require.NoError(t, err)
	got, ok := rm.TextureDescriptor(h)
	require.True(t, ok)
	assert.Equal(t, uint32(32), got.Pitch)
	assert.Equal(t, uint32(4), got.MipLevels)

	out, err := rm.GetTextureData(h)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestCreateTextureFailsClosed(t *testing.T) {
	rm, _ := newManager(t)
	desc := metadata.TextureDescriptor{Width: 4, Height: 4, MipLevels: 1, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D, Usage: metadata.UsageImmutable, BindFlags: metadata.BindShaderResource}

	h, err := rm.CreateTexture(desc, make([]byte, 15))
	assert.ErrorIs(t, err, core.ErrTextureDataOverrun)
	assert.False(t, h.IsValid())

	declared := desc
	declared.ByteCount = 8
	h, err = rm.CreateTexture(declared, make([]byte, 16))
	assert.ErrorIs(t, err, core.ErrTextureDataOverrun)
	assert.False(t, h.IsValid())

	_, err = rm.CreateTexture(desc, nil)
	assert.ErrorIs(t, err, core.ErrInvalidDescriptor)
	assert.Equal(t, 0, rm.Stats().Textures)
}

func TestStaleHandlesAreRejected(t *testing.T) {
	rm, dev := newManager(t)
	desc := metadata.ConstantBuffer("cb", 16)
	first, err := rm.CreateBuffer(desc, nil)
	require.NoError(t, err)
	require.True(t, rm.DestroyBuffer(first))
	assert.False(t, rm.DestroyBuffer(first))

	second, err := rm.CreateBuffer(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Index, second.Index)
	assert.NotEqual(t, first.Generation, second.Generation)

	assert.ErrorIs(t, rm.UpdateBuffer(first, make([]byte, 16)), core.ErrInvalidHandle)
	assert.NoError(t, rm.UpdateBuffer(second, make([]byte, 16)))
	assert.Equal(t, 1, dev.Stats().LiveObjects)
}

func TestUpdateTexture(t *testing.T) {
	rm, _ := newManager(t)
	dyn, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 2, Height: 2, MipLevels: 1, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D,
		Usage: metadata.UsageDynamic, BindFlags: metadata.BindShaderResource,
	}, nil)
	require.NoError(t, err)
	// Source rows are padded to 4 bytes.
	require.NoError(t, rm.UpdateTexture(dyn, 0, 0, []byte{1, 2, 0, 0, 3, 4}, 4))
	out, err := rm.GetTextureData(dyn)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	def, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 2, Height: 2, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D, BindFlags: metadata.BindShaderResource,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, rm.UpdateTexture(def, 1, 0, []byte{9}, 0))
	out, err = rm.GetTextureData(def)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 9}, out)

	imm, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 1, Height: 1, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D, Usage: metadata.UsageImmutable, BindFlags: metadata.BindShaderResource,
	}, []byte{1})
	require.NoError(t, err)
	assert.ErrorIs(t, rm.UpdateTexture(imm, 0, 0, []byte{2}, 0), core.ErrImmutableResource)
	assert.ErrorIs(t, rm.UpdateTexture(def, 2, 0, []byte{2}, 0), core.ErrInvalidDescriptor)
}

func TestStateCacheIdempotence(t *testing.T) {
	rm, dev := newManager(t)
	a, err := rm.GetBlendState(metadata.OpaqueBlend())
	require.NoError(t, err)
	b, err := rm.GetBlendState(metadata.OpaqueBlend())
	require.NoError(t, err)
	c, err := rm.GetBlendState(metadata.PremultipliedAlphaBlend())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, rm.Stats().Blends)

	s1, err := rm.CreateSamplerState(metadata.MaxClampSampler())
	require.NoError(t, err)
	s2, err := rm.CreateSamplerState(metadata.MaxClampSampler())
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 3, dev.Stats().LiveObjects)
}

func TestCopyTextureRequiresMatchingShapes(t *testing.T) {
	rm, _ := newManager(t)
	mk := func(w uint32) metadata.TextureHandle {
		h, err := rm.CreateTexture(metadata.TextureDescriptor{Width: w, Height: 1, MipLevels: 1, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D, BindFlags: metadata.BindShaderResource}, nil)
		require.NoError(t, err)
		return h
	}
	a, b, c := mk(4), mk(4), mk(2)
	require.NoError(t, rm.UpdateTexture(a, 0, 0, []byte{5, 6, 7, 8}, 0))
	assert.ErrorIs(t, rm.CopyTexture(c, a), core.ErrInvalidDescriptor)
	require.NoError(t, rm.CopyTexture(b, a))
	out, err := rm.GetTextureData(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, out)
}

type recordingSink struct {
	transitions []string
}

func (s *recordingSink) OnTransition(name string, _ *metadata.TextureDescriptor, before, after metadata.ResourceState) {
	s.transitions = append(s.transitions, name+":"+before.String()+"->"+after.String())
}

func TestTransitionNotifiesSink(t *testing.T) {
	rm, _ := newManager(t)
	sink := &recordingSink{}
	rm.SetBarrierSink(sink)
	h, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 2, Height: 2, Depth: 2, MipLevels: 1, Format: metadata.FormatR8Unorm, Type: metadata.TextureType3D,
		BindFlags: metadata.BindUnorderedAccess | metadata.BindShaderResource, DebugName: "scratch",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, rm.Transition(h, metadata.StateCopySource))
	require.NoError(t, rm.Transition(h, metadata.StateCopySource))
	state, ok := rm.TextureState(h)
	require.True(t, ok)
	assert.Equal(t, metadata.StateCopySource, state)
	assert.Equal(t, []string{"scratch:UnorderedAccess->CopySource"}, sink.transitions)
}

func TestBlitToBuffer(t *testing.T) {
	rm, _ := newManager(t)
	src, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 2, Height: 2, MipLevels: 1, Format: metadata.FormatRGBA8Unorm, Type: metadata.TextureType2D,
		Usage: metadata.UsageImmutable, BindFlags: metadata.BindShaderResource,
	}, sequence(16))
	require.NoError(t, err)
	dst, err := rm.CreateTexture(metadata.TextureDescriptor{
		Width: 2, Height: 2, MipLevels: 1, Format: metadata.FormatRGBA8Unorm, Type: metadata.TextureType2D,
		BindFlags: metadata.BindRenderTarget,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, rm.BlitToBuffer(src, dst))
	require.NoError(t, rm.Transition(dst, metadata.StateCopySource))
	out, err := rm.GetTextureData(dst)
	require.NoError(t, err)
	assert.Equal(t, sequence(16), out)
}

func TestShutdownReleasesEverything(t *testing.T) {
	rm, dev := newManager(t)
	_, err := rm.CreateBuffer(metadata.ConstantBuffer("cb", 16), nil)
	require.NoError(t, err)
	_, err = rm.GetRasterState(metadata.DefaultRaster())
	require.NoError(t, err)
	_, err = rm.CreateTexture(metadata.TextureDescriptor{Width: 4, Height: 4, Format: metadata.FormatR8Unorm, Type: metadata.TextureType2D}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, dev.Stats().LiveObjects)

	require.NoError(t, rm.Shutdown())
	assert.Equal(t, 0, dev.Stats().LiveObjects)
}

func TestForwardRendererFrame(t *testing.T) {
	rm, _ := newManager(t)
	fr, err := renderer.NewForwardRenderer(renderer.ForwardRendererConfig{Width: 4, Height: 2, ClearColor: [4]float32{1, 0, 0, 1}}, rm)
	require.NoError(t, err)

	require.NoError(t, fr.BeginFrame())
	require.NoError(t, fr.EndFrame())
	assert.Equal(t, uint64(1), fr.FrameNumber())

	out, err := fr.ReadBackbuffer()
	require.NoError(t, err)
	require.Len(t, out, 4*2*4)
	// BGRA8: red lands in the third byte.
	assert.Equal(t, []byte{0, 0, 255, 255}, out[:4])

	require.NoError(t, fr.Resize(8, 8))
	assert.Equal(t, float32(1), fr.Aspect())
	require.NoError(t, fr.Shutdown())
}
