package renderer

import "github.com/spaghettifunk/snowfall/engine/renderer/metadata"

/**
 * @brief A native object owned by a Device. The ResourceManager releases it
 * exactly once when the owning handle is destroyed.
 */
type DeviceObject interface {
	Release()
}

/** @brief The fixed-function region of the render target being drawn to. */
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

/**
 * @brief Native objects a pipeline was built from, resolved from handles by the
 * ResourceManager before they reach the device.
 */
type PipelineObjects struct {
	Descriptor    *metadata.PipelineDescriptor
	VertexShader  DeviceObject
	PixelShader   DeviceObject
	ComputeShader DeviceObject
	InputLayout   DeviceObject
	Blend         DeviceObject
	Raster        DeviceObject
	Depth         DeviceObject
}

/**
 * @brief The capability surface of a native graphics device. Every method is
 * called from the render thread; commands execute in submission order.
 */
type Device interface {
	Name() string

	CreateBuffer(desc *metadata.BufferDescriptor, data []byte) (DeviceObject, error)
	CreateTexture(desc *metadata.TextureDescriptor, data []metadata.SubresourceData) (DeviceObject, error)
	CreateShader(desc *metadata.ShaderDescriptor) (DeviceObject, error)
	CreateSamplerState(desc *metadata.SamplerDescriptor) (DeviceObject, error)
	CreateBlendState(desc *metadata.BlendDescriptor) (DeviceObject, error)
	CreateRasterState(desc *metadata.RasterDescriptor) (DeviceObject, error)
	CreateDepthState(desc *metadata.DepthDescriptor) (DeviceObject, error)
	CreateInputLayout(desc *metadata.InputLayoutDescriptor, vertexShader DeviceObject) (DeviceObject, error)
	CreatePipeline(objects *PipelineObjects) (DeviceObject, error)

	UpdateSubresource(dst DeviceObject, subresource uint32, data []byte, rowPitch uint32, depthPitch uint64) error
	Map(obj DeviceObject, subresource uint32, mode metadata.MapMode) (metadata.MappedSubresource, error)
	Unmap(obj DeviceObject, subresource uint32)
	CopyResource(dst, src DeviceObject) error
	Transition(obj DeviceObject, before, after metadata.ResourceState) error

	SetPipeline(pipeline DeviceObject)
	SetConstantBuffer(stage metadata.ShaderStage, slot uint32, buffer DeviceObject)
	SetShaderResource(stage metadata.ShaderStage, slot uint32, texture DeviceObject)
	SetUnorderedAccess(slot uint32, texture DeviceObject)
	SetSampler(stage metadata.ShaderStage, slot uint32, sampler DeviceObject)
	SetVertexBuffer(slot uint32, buffer DeviceObject, stride, offset uint32)
	SetIndexBuffer(buffer DeviceObject, format metadata.Format, offset uint32)
	SetRenderTargets(colors []DeviceObject, depth DeviceObject)
	SetViewport(viewport Viewport)
	ClearRenderTarget(target DeviceObject, color [4]float32)
	ClearDepth(target DeviceObject, depth float32)

	Dispatch(x, y, z uint32) error
	Draw(vertexCount, startVertex uint32) error
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error

	// Flush executes every recorded command before returning.
	Flush() error
	Shutdown() error
}

/**
 * @brief Observes explicit resource hand-offs. Native backends use it to emit
 * barriers, tooling to trace them.
 */
type BarrierSink interface {
	OnTransition(name string, desc *metadata.TextureDescriptor, before, after metadata.ResourceState)
}

/**
 * @brief Optional extension of a BarrierSink. When the sink attached with
 * SetBarrierSink also implements it, every object the device creates is
 * reported once, after the device accepted it.
 */
type CreationSink interface {
	OnCreateBuffer(desc *metadata.BufferDescriptor)
	OnCreateTexture(desc *metadata.TextureDescriptor)
	OnCreateSampler(desc *metadata.SamplerDescriptor)
	OnCreateRaster(desc *metadata.RasterDescriptor)
}
