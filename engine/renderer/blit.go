package renderer

import (
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

// Entry points of the built-in full-screen copy programs. Devices provide them.
const (
	FullscreenTriangleEntry = "fullscreen_triangle"
	BlitCopyEntry           = "blit_copy"
)

type blitResources struct {
	vertex   metadata.ShaderHandle
	pixel    metadata.ShaderHandle
	pipeline metadata.PipelineHandle
	sampler  metadata.SamplerHandle
}

func newBlitResources() blitResources {
	return blitResources{
		vertex:   metadata.InvalidShader,
		pixel:    metadata.InvalidShader,
		pipeline: metadata.InvalidPipeline,
		sampler:  metadata.InvalidSampler,
	}
}

func (rm *ResourceManager) blitPipeline() (metadata.PipelineHandle, error) {
	if rm.blit.pipeline.IsValid() {
		return rm.blit.pipeline, nil
	}
	var err error
	if rm.blit.vertex, err = rm.CreateShader(metadata.ShaderDescriptor{
		Name: "blit-vs", Stage: metadata.ShaderStageVertex, EntryPoint: FullscreenTriangleEntry,
	}); err != nil {
		return metadata.InvalidPipeline, err
	}
	if rm.blit.pixel, err = rm.CreateShader(metadata.ShaderDescriptor{
		Name: "blit-ps", Stage: metadata.ShaderStagePixel, EntryPoint: BlitCopyEntry,
	}); err != nil {
		return metadata.InvalidPipeline, err
	}
	if rm.blit.sampler, err = rm.CreateSamplerState(metadata.LinearClampSampler()); err != nil {
		return metadata.InvalidPipeline, err
	}
	desc := metadata.GraphicsPipeline("blit", rm.blit.vertex, rm.blit.pixel)
	if desc.Raster, err = rm.GetRasterState(metadata.RasterDescriptor{CullMode: metadata.CullNone, DepthClip: true}); err != nil {
		return metadata.InvalidPipeline, err
	}
	noDepth := metadata.DefaultDepth()
	noDepth.DepthEnable, noDepth.DepthWrite = false, false
	if desc.Depth, err = rm.GetDepthState(noDepth); err != nil {
		return metadata.InvalidPipeline, err
	}
	if rm.blit.pipeline, err = rm.CreatePipeline(desc); err != nil {
		return metadata.InvalidPipeline, err
	}
	return rm.blit.pipeline, nil
}

// BlitToBuffer draws src over the whole of dst with a full-screen triangle.
func (rm *ResourceManager) BlitToBuffer(src, dst metadata.TextureHandle) error {
	if err := rm.BindRenderTargets([]metadata.TextureHandle{dst}, metadata.InvalidTexture); err != nil {
		return err
	}
	return rm.BlitToBound(src)
}

// BlitToBound draws src over the currently bound render targets.
func (rm *ResourceManager) BlitToBound(src metadata.TextureHandle) error {
	pipeline, err := rm.blitPipeline()
	if err != nil {
		return err
	}
	if err := rm.BindPipeline(pipeline); err != nil {
		return err
	}
	if err := rm.BindTexture(metadata.ShaderStagePixel, 0, src); err != nil {
		return err
	}
	if err := rm.BindSampler(metadata.ShaderStagePixel, 0, rm.blit.sampler); err != nil {
		return err
	}
	if err := rm.Draw(3, 0); err != nil {
		return err
	}
	return rm.BindTexture(metadata.ShaderStagePixel, 0, metadata.InvalidTexture)
}
