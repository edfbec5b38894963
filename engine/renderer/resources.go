package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/snowfall/engine/containers"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/** @brief Capacities of every pool and state cache owned by the ResourceManager. */
type ResourceManagerConfig struct {
	MaxBufferCount      int
	MaxTextureCount     int
	MaxShaderCount      int
	MaxPipelineCount    int
	MaxSamplerCount     int
	MaxBlendCount       int
	MaxRasterCount      int
	MaxDepthCount       int
	MaxInputLayoutCount int
}

type bufferRecord struct {
	desc   metadata.BufferDescriptor
	native DeviceObject
}

type textureRecord struct {
	desc   metadata.TextureDescriptor
	layout []metadata.SubresourceLayout
	state  metadata.ResourceState
	native DeviceObject
}

type shaderRecord struct {
	desc   metadata.ShaderDescriptor
	native DeviceObject
}

type pipelineRecord struct {
	desc   metadata.PipelineDescriptor
	native DeviceObject
}

type stateRecord[D any] struct {
	desc   D
	native DeviceObject
}

/** @brief Live object counts, mostly useful for leak checks. */
type ResourceStats struct {
	Buffers      int
	Textures     int
	Shaders      int
	Pipelines    int
	Samplers     int
	Blends       int
	Rasters      int
	Depths       int
	InputLayouts int
}

/**
 * @brief Owns every GPU object behind generational handles. Stale handles
 * never alias a newer object: lookups fail and destroys are no-ops.
 * Not safe for concurrent use; call from the render thread.
 */
type ResourceManager struct {
	device Device
	sink   BarrierSink
	// Set when sink also implements CreationSink.
	creations CreationSink

	buffers   containers.HandlePool[bufferRecord]
	textures  containers.HandlePool[textureRecord]
	shaders   containers.HandlePool[shaderRecord]
	pipelines containers.HandlePool[pipelineRecord]

	samplers     containers.StateCache[stateRecord[metadata.SamplerDescriptor]]
	blends       containers.StateCache[stateRecord[metadata.BlendDescriptor]]
	rasters      containers.StateCache[stateRecord[metadata.RasterDescriptor]]
	depths       containers.StateCache[stateRecord[metadata.DepthDescriptor]]
	inputLayouts containers.StateCache[stateRecord[metadata.InputLayoutDescriptor]]

	blit blitResources
}

func NewResourceManager(config ResourceManagerConfig, device Device) (*ResourceManager, error) {
	if device == nil {
		return nil, core.ErrNoDevice
	}
	rm := &ResourceManager{device: device}
	pools := []struct {
		init     func(int) error
		capacity int
		name     string
	}{
		{rm.buffers.Initialize, config.MaxBufferCount, "buffer"},
		{rm.textures.Initialize, config.MaxTextureCount, "texture"},
		{rm.shaders.Initialize, config.MaxShaderCount, "shader"},
		{rm.pipelines.Initialize, config.MaxPipelineCount, "pipeline"},
		{rm.samplers.Initialize, config.MaxSamplerCount, "sampler"},
		{rm.blends.Initialize, config.MaxBlendCount, "blend"},
		{rm.rasters.Initialize, config.MaxRasterCount, "raster"},
		{rm.depths.Initialize, config.MaxDepthCount, "depth"},
		{rm.inputLayouts.Initialize, config.MaxInputLayoutCount, "input layout"},
	}
	for _, p := range pools {
		if err := p.init(p.capacity); err != nil {
			return nil, fmt.Errorf("%s pool: %w", p.name, err)
		}
	}
	rm.blit = newBlitResources()
	core.LogDebug("resource manager initialized on device %s", device.Name())
	return rm, nil
}

// Device returns the device the manager creates objects on.
func (rm *ResourceManager) Device() Device {
	return rm.device
}

// SetBarrierSink attaches an observer of explicit resource hand-offs.
func (rm *ResourceManager) SetBarrierSink(sink BarrierSink) {
	rm.sink = sink
	rm.creations, _ = sink.(CreationSink)
}

func debugName(kind, name string) string {
	if name != "" {
		return name
	}
	return kind + "-" + uuid.NewString()
}

/**
 * @brief Creates a buffer, optionally with initial contents.
 */
func (rm *ResourceManager) CreateBuffer(desc metadata.BufferDescriptor, data []byte) (metadata.BufferHandle, error) {
	desc.DebugName = debugName("buffer", desc.DebugName)
	if err := desc.Validate(len(data) > 0); err != nil {
		core.LogError("CreateBuffer: %s", err)
		return metadata.InvalidBuffer, err
	}
	if uint32(len(data)) > desc.ByteWidth {
		err := fmt.Errorf("buffer %q: %d bytes of data for %d byte buffer: %w", desc.DebugName, len(data), desc.ByteWidth, core.ErrInvalidDescriptor)
		core.LogError("CreateBuffer: %s", err)
		return metadata.InvalidBuffer, err
	}
	h, rec, err := rm.buffers.AllocateWith()
	if err != nil {
		core.LogError("CreateBuffer %q: %s", desc.DebugName, err)
		return metadata.InvalidBuffer, err
	}
	native, err := rm.device.CreateBuffer(&desc, data)
	if err != nil {
		rm.buffers.Destroy(h)
		core.LogError("CreateBuffer %q: device: %s", desc.DebugName, err)
		return metadata.InvalidBuffer, err
	}
	rec.desc = desc
	rec.native = native
	if rm.creations != nil {
		rm.creations.OnCreateBuffer(&rec.desc)
	}
	return metadata.BufferHandle{Handle: h}, nil
}

/**
 * @brief Creates a texture. When data is given it must hold every subresource
 * tightly packed, slice by slice and mip by mip. A descriptor whose declared
 * ByteCount is smaller than its layout fails rather than reading past it.
 */
func (rm *ResourceManager) CreateTexture(desc metadata.TextureDescriptor, data []byte) (metadata.TextureHandle, error) {
	desc.DebugName = debugName("texture", desc.DebugName)
	declared := desc.ByteCount
	if err := desc.Finalize(); err != nil {
		core.LogError("CreateTexture: %s", err)
		return metadata.InvalidTexture, err
	}
	if desc.Usage == metadata.UsageImmutable && len(data) == 0 {
		err := fmt.Errorf("immutable texture %q needs initial data: %w", desc.DebugName, core.ErrInvalidDescriptor)
		core.LogError("CreateTexture: %s", err)
		return metadata.InvalidTexture, err
	}

	layout := metadata.GenerateLookUpTable(&desc)
	var initial []metadata.SubresourceData
	if len(data) > 0 {
		limit := desc.ByteCount
		if declared != 0 && declared < limit {
			limit = declared
		}
		initial = make([]metadata.SubresourceData, 0, len(layout))
		for _, sub := range layout {
			end := sub.Offset + sub.Size
			if end > limit || end > uint64(len(data)) {
				err := fmt.Errorf("texture %q mip %d slice %d ends at %d, limit %d, data %d: %w",
					desc.DebugName, sub.Mip, sub.Slice, end, limit, len(data), core.ErrTextureDataOverrun)
				core.LogError("CreateTexture: %s", err)
				return metadata.InvalidTexture, err
			}
			initial = append(initial, metadata.SubresourceData{
				Data:       data[sub.Offset:end],
				RowPitch:   sub.RowPitch,
				SlicePitch: sub.SlicePitch,
			})
		}
	}

	h, rec, err := rm.textures.AllocateWith()
	if err != nil {
		core.LogError("CreateTexture %q: %s", desc.DebugName, err)
		return metadata.InvalidTexture, err
	}
	native, err := rm.device.CreateTexture(&desc, initial)
	if err != nil {
		rm.textures.Destroy(h)
		core.LogError("CreateTexture %q: device: %s", desc.DebugName, err)
		return metadata.InvalidTexture, err
	}
	rec.desc = desc
	rec.layout = layout
	rec.state = metadata.InitialState(&desc)
	rec.native = native
	if rm.creations != nil {
		rm.creations.OnCreateTexture(&rec.desc)
	}
	return metadata.TextureHandle{Handle: h}, nil
}

func (rm *ResourceManager) lookupBuffer(h metadata.BufferHandle) (*bufferRecord, error) {
	rec := rm.buffers.Lookup(h.Handle)
	if rec == nil {
		return nil, fmt.Errorf("buffer %s: %w", h.Handle, core.ErrInvalidHandle)
	}
	return rec, nil
}

func (rm *ResourceManager) lookupTexture(h metadata.TextureHandle) (*textureRecord, error) {
	rec := rm.textures.Lookup(h.Handle)
	if rec == nil {
		return nil, fmt.Errorf("texture %s: %w", h.Handle, core.ErrInvalidHandle)
	}
	return rec, nil
}

// TextureDescriptor returns a copy of the finalized descriptor of h.
func (rm *ResourceManager) TextureDescriptor(h metadata.TextureHandle) (metadata.TextureDescriptor, bool) {
	rec := rm.textures.Lookup(h.Handle)
	if rec == nil {
		return metadata.TextureDescriptor{}, false
	}
	return rec.desc, true
}

func (rm *ResourceManager) BufferDescriptor(h metadata.BufferHandle) (metadata.BufferDescriptor, bool) {
	rec := rm.buffers.Lookup(h.Handle)
	if rec == nil {
		return metadata.BufferDescriptor{}, false
	}
	return rec.desc, true
}

// TextureState returns the state the texture was last transitioned to.
func (rm *ResourceManager) TextureState(h metadata.TextureHandle) (metadata.ResourceState, bool) {
	rec := rm.textures.Lookup(h.Handle)
	if rec == nil {
		return metadata.StateCommon, false
	}
	return rec.state, true
}

/**
 * @brief Replaces the contents of a buffer. Dynamic and staging buffers are
 * mapped with discard; default buffers are updated on the device timeline.
 */
func (rm *ResourceManager) UpdateBuffer(h metadata.BufferHandle, data []byte) error {
	rec, err := rm.lookupBuffer(h)
	if err != nil {
		return err
	}
	if uint32(len(data)) > rec.desc.ByteWidth {
		return fmt.Errorf("buffer %q: %d bytes into %d: %w", rec.desc.DebugName, len(data), rec.desc.ByteWidth, core.ErrInvalidDescriptor)
	}
	switch rec.desc.Usage {
	case metadata.UsageImmutable:
		return fmt.Errorf("buffer %q: %w", rec.desc.DebugName, core.ErrImmutableResource)
	case metadata.UsageDynamic, metadata.UsageStaging:
		mapped, err := rm.device.Map(rec.native, 0, metadata.MapWriteDiscard)
		if err != nil {
			return err
		}
		copy(mapped.Data, data)
		rm.device.Unmap(rec.native, 0)
		return nil
	default:
		return rm.device.UpdateSubresource(rec.native, 0, data, 0, 0)
	}
}

/**
 * @brief Replaces one subresource of a texture. srcRowPitch of zero means the
 * data is tightly packed. Rows are copied with the smaller of the source and
 * destination pitches.
 */
func (rm *ResourceManager) UpdateTexture(h metadata.TextureHandle, mip, slice uint32, data []byte, srcRowPitch uint32) error {
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	if rec.desc.Usage == metadata.UsageImmutable {
		return fmt.Errorf("texture %q: %w", rec.desc.DebugName, core.ErrImmutableResource)
	}
	if mip >= rec.desc.MipLevels || slice >= rec.desc.ArraySize {
		return fmt.Errorf("texture %q has no mip %d slice %d: %w", rec.desc.DebugName, mip, slice, core.ErrInvalidDescriptor)
	}
	index := metadata.SubresourceIndex(mip, slice, rec.desc.MipLevels)
	sub := rec.layout[index]
	if srcRowPitch == 0 {
		srcRowPitch = sub.RowPitch
	}
	rows := sub.RowCount(rec.desc.Format) * sub.Depth
	if uint64(len(data)) < uint64(srcRowPitch)*uint64(rows-1)+uint64(min(srcRowPitch, sub.RowPitch)) {
		return fmt.Errorf("texture %q: %d bytes for %d rows of pitch %d: %w", rec.desc.DebugName, len(data), rows, srcRowPitch, core.ErrTextureDataOverrun)
	}

	if rec.desc.Usage == metadata.UsageDefault {
		depthPitch := uint64(srcRowPitch) * uint64(sub.RowCount(rec.desc.Format))
		return rm.device.UpdateSubresource(rec.native, index, data, srcRowPitch, depthPitch)
	}

	mapped, err := rm.device.Map(rec.native, index, metadata.MapWriteDiscard)
	if err != nil {
		return err
	}
	defer rm.device.Unmap(rec.native, index)
	copyRows(mapped.Data, mapped.RowPitch, data, srcRowPitch, rows)
	return nil
}

func copyRows(dst []byte, dstPitch uint32, src []byte, srcPitch uint32, rows uint32) {
	n := min(dstPitch, srcPitch)
	for row := uint32(0); row < rows; row++ {
		d := uint64(row) * uint64(dstPitch)
		s := uint64(row) * uint64(srcPitch)
		if s+uint64(n) > uint64(len(src)) || d+uint64(n) > uint64(len(dst)) {
			return
		}
		copy(dst[d:d+uint64(n)], src[s:s+uint64(n)])
	}
}

/**
 * @brief Reads every subresource of a texture back to the CPU through a staging
 * copy. The result is tightly packed in GenerateLookUpTable order.
 */
func (rm *ResourceManager) GetTextureData(h metadata.TextureHandle) ([]byte, error) {
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return nil, err
	}
	staging := rec.desc
	staging.Usage = metadata.UsageStaging
	staging.BindFlags = 0
	staging.CPUAccessFlags = metadata.CPUAccessRead
	staging.MiscFlags &^= metadata.MiscGenerateMips
	staging.DebugName = rec.desc.DebugName + "-readback"
	native, err := rm.device.CreateTexture(&staging, nil)
	if err != nil {
		return nil, err
	}
	defer native.Release()

	if err := rm.device.CopyResource(native, rec.native); err != nil {
		return nil, err
	}
	out := make([]byte, rec.desc.ByteCount)
	for i, sub := range rec.layout {
		mapped, err := rm.device.Map(native, uint32(i), metadata.MapRead)
		if err != nil {
			return nil, err
		}
		rows := sub.RowCount(rec.desc.Format)
		for z := uint32(0); z < sub.Depth; z++ {
			dst := out[sub.Offset+uint64(z)*sub.SlicePitch:]
			src := mapped.Data[uint64(z)*mapped.DepthPitch:]
			copyRows(dst, sub.RowPitch, src, mapped.RowPitch, rows)
		}
		rm.device.Unmap(native, uint32(i))
	}
	return out, nil
}

// CopyTexture copies every subresource of src into dst on the GPU. Both
// textures must share extents, mips, array size and format.
func (rm *ResourceManager) CopyTexture(dst, src metadata.TextureHandle) error {
	d, err := rm.lookupTexture(dst)
	if err != nil {
		return err
	}
	s, err := rm.lookupTexture(src)
	if err != nil {
		return err
	}
	if d.desc.Usage == metadata.UsageImmutable {
		return fmt.Errorf("copy into %q: %w", d.desc.DebugName, core.ErrImmutableResource)
	}
	if d.desc.Width != s.desc.Width || d.desc.Height != s.desc.Height || d.desc.Depth != s.desc.Depth ||
		d.desc.MipLevels != s.desc.MipLevels || d.desc.ArraySize != s.desc.ArraySize || d.desc.Format != s.desc.Format {
		return fmt.Errorf("copy %q into %q: shapes differ: %w", s.desc.DebugName, d.desc.DebugName, core.ErrInvalidDescriptor)
	}
	return rm.device.CopyResource(d.native, s.native)
}

/**
 * @brief Hands a texture over to a new usage. Transitioning to the current
 * state is a no-op.
 */
func (rm *ResourceManager) Transition(h metadata.TextureHandle, state metadata.ResourceState) error {
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	if rec.state == state {
		return nil
	}
	before := rec.state
	if err := rm.device.Transition(rec.native, before, state); err != nil {
		return fmt.Errorf("transition %q %s -> %s: %w", rec.desc.DebugName, before, state, err)
	}
	rec.state = state
	if rm.sink != nil {
		rm.sink.OnTransition(rec.desc.DebugName, &rec.desc, before, state)
	}
	return nil
}

func (rm *ResourceManager) CreateShader(desc metadata.ShaderDescriptor) (metadata.ShaderHandle, error) {
	desc.Name = debugName("shader", desc.Name)
	if err := desc.Validate(); err != nil {
		core.LogError("CreateShader: %s", err)
		return metadata.InvalidShader, err
	}
	h, rec, err := rm.shaders.AllocateWith()
	if err != nil {
		core.LogError("CreateShader %q: %s", desc.Name, err)
		return metadata.InvalidShader, err
	}
	native, err := rm.device.CreateShader(&desc)
	if err != nil {
		rm.shaders.Destroy(h)
		core.LogError("CreateShader %q: device: %s", desc.Name, err)
		return metadata.InvalidShader, err
	}
	rec.desc = desc
	rec.native = native
	return metadata.ShaderHandle{Handle: h}, nil
}

// ShaderDescriptor returns the descriptor h was created with.
func (rm *ResourceManager) ShaderDescriptor(h metadata.ShaderHandle) (metadata.ShaderDescriptor, bool) {
	rec := rm.shaders.Lookup(h.Handle)
	if rec == nil {
		return metadata.ShaderDescriptor{}, false
	}
	return rec.desc, true
}

func (rm *ResourceManager) shaderNative(h metadata.ShaderHandle, stage metadata.ShaderStage) (DeviceObject, error) {
	if !h.IsValid() {
		return nil, nil
	}
	rec := rm.shaders.Lookup(h.Handle)
	if rec == nil {
		return nil, fmt.Errorf("%s shader %s: %w", stage, h.Handle, core.ErrInvalidHandle)
	}
	if rec.desc.Stage != stage {
		return nil, fmt.Errorf("shader %q is a %s shader, bound as %s: %w", rec.desc.Name, rec.desc.Stage, stage, core.ErrInvalidDescriptor)
	}
	return rec.native, nil
}

/**
 * @brief Creates a pipeline from previously created shaders and states.
 * Invalid state handles select device defaults.
 */
func (rm *ResourceManager) CreatePipeline(desc metadata.PipelineDescriptor) (metadata.PipelineHandle, error) {
	desc.DebugName = debugName("pipeline", desc.DebugName)
	if err := desc.Validate(); err != nil {
		core.LogError("CreatePipeline: %s", err)
		return metadata.InvalidPipeline, err
	}
	objects := PipelineObjects{Descriptor: &desc}
	var err error
	if objects.ComputeShader, err = rm.shaderNative(desc.ComputeShader, metadata.ShaderStageCompute); err != nil {
		return metadata.InvalidPipeline, err
	}
	if objects.VertexShader, err = rm.shaderNative(desc.VertexShader, metadata.ShaderStageVertex); err != nil {
		return metadata.InvalidPipeline, err
	}
	if objects.PixelShader, err = rm.shaderNative(desc.PixelShader, metadata.ShaderStagePixel); err != nil {
		return metadata.InvalidPipeline, err
	}
	if desc.InputLayout.IsValid() {
		if rec := rm.inputLayouts.FindByIndex(int(desc.InputLayout)); rec != nil {
			objects.InputLayout = rec.native
		}
	}
	if desc.Blend.IsValid() {
		if rec := rm.blends.FindByIndex(int(desc.Blend)); rec != nil {
			objects.Blend = rec.native
		}
	}
	if desc.Raster.IsValid() {
		if rec := rm.rasters.FindByIndex(int(desc.Raster)); rec != nil {
			objects.Raster = rec.native
		}
	}
	if desc.Depth.IsValid() {
		if rec := rm.depths.FindByIndex(int(desc.Depth)); rec != nil {
			objects.Depth = rec.native
		}
	}

	h, rec, err := rm.pipelines.AllocateWith()
	if err != nil {
		core.LogError("CreatePipeline %q: %s", desc.DebugName, err)
		return metadata.InvalidPipeline, err
	}
	native, err := rm.device.CreatePipeline(&objects)
	if err != nil {
		rm.pipelines.Destroy(h)
		core.LogError("CreatePipeline %q: device: %s", desc.DebugName, err)
		return metadata.InvalidPipeline, err
	}
	rec.desc = desc
	rec.native = native
	return metadata.PipelineHandle{Handle: h}, nil
}

func (rm *ResourceManager) DestroyBuffer(h metadata.BufferHandle) bool {
	if rec := rm.buffers.Lookup(h.Handle); rec != nil {
		rec.native.Release()
	}
	return rm.buffers.Destroy(h.Handle)
}

func (rm *ResourceManager) DestroyTexture(h metadata.TextureHandle) bool {
	if rec := rm.textures.Lookup(h.Handle); rec != nil {
		rec.native.Release()
	}
	return rm.textures.Destroy(h.Handle)
}

func (rm *ResourceManager) DestroyShader(h metadata.ShaderHandle) bool {
	if rec := rm.shaders.Lookup(h.Handle); rec != nil {
		rec.native.Release()
	}
	return rm.shaders.Destroy(h.Handle)
}

func (rm *ResourceManager) DestroyPipeline(h metadata.PipelineHandle) bool {
	if rec := rm.pipelines.Lookup(h.Handle); rec != nil {
		rec.native.Release()
	}
	return rm.pipelines.Destroy(h.Handle)
}

func (rm *ResourceManager) BindPipeline(h metadata.PipelineHandle) error {
	rec := rm.pipelines.Lookup(h.Handle)
	if rec == nil {
		return fmt.Errorf("pipeline %s: %w", h.Handle, core.ErrInvalidHandle)
	}
	rm.device.SetPipeline(rec.native)
	return nil
}

// BindConstantBuffer binds h at slot; an invalid handle unbinds the slot.
func (rm *ResourceManager) BindConstantBuffer(stage metadata.ShaderStage, slot uint32, h metadata.BufferHandle) error {
	if !h.IsValid() {
		rm.device.SetConstantBuffer(stage, slot, nil)
		return nil
	}
	rec, err := rm.lookupBuffer(h)
	if err != nil {
		return err
	}
	rm.device.SetConstantBuffer(stage, slot, rec.native)
	return nil
}

// BindTexture binds h as a shader resource; an invalid handle unbinds the slot.
func (rm *ResourceManager) BindTexture(stage metadata.ShaderStage, slot uint32, h metadata.TextureHandle) error {
	if !h.IsValid() {
		rm.device.SetShaderResource(stage, slot, nil)
		return nil
	}
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	if !rec.desc.BindFlags.Has(metadata.BindShaderResource) {
		return fmt.Errorf("texture %q has no shader resource view: %w", rec.desc.DebugName, core.ErrInvalidDescriptor)
	}
	rm.device.SetShaderResource(stage, slot, rec.native)
	return nil
}

// BindUnorderedAccess binds h for compute writes; an invalid handle unbinds the slot.
func (rm *ResourceManager) BindUnorderedAccess(slot uint32, h metadata.TextureHandle) error {
	if !h.IsValid() {
		rm.device.SetUnorderedAccess(slot, nil)
		return nil
	}
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	if !rec.desc.BindFlags.Has(metadata.BindUnorderedAccess) {
		return fmt.Errorf("texture %q has no unordered access view: %w", rec.desc.DebugName, core.ErrInvalidDescriptor)
	}
	rm.device.SetUnorderedAccess(slot, rec.native)
	return nil
}

func (rm *ResourceManager) BindSampler(stage metadata.ShaderStage, slot uint32, h metadata.SamplerHandle) error {
	if !h.IsValid() {
		rm.device.SetSampler(stage, slot, nil)
		return nil
	}
	rec := rm.samplers.FindByIndex(int(h))
	if rec == nil {
		return fmt.Errorf("sampler %d: %w", h, core.ErrInvalidHandle)
	}
	rm.device.SetSampler(stage, slot, rec.native)
	return nil
}

func (rm *ResourceManager) BindVertexBuffer(slot uint32, h metadata.BufferHandle, offset uint32) error {
	rec, err := rm.lookupBuffer(h)
	if err != nil {
		return err
	}
	rm.device.SetVertexBuffer(slot, rec.native, rec.desc.ByteStride, offset)
	return nil
}

func (rm *ResourceManager) BindIndexBuffer(h metadata.BufferHandle, format metadata.Format, offset uint32) error {
	rec, err := rm.lookupBuffer(h)
	if err != nil {
		return err
	}
	rm.device.SetIndexBuffer(rec.native, format, offset)
	return nil
}

// BindRenderTargets binds colour targets and an optional depth target and
// sets the viewport to the first target's extent.
func (rm *ResourceManager) BindRenderTargets(colors []metadata.TextureHandle, depth metadata.TextureHandle) error {
	natives := make([]DeviceObject, 0, len(colors))
	var viewport Viewport
	for i, h := range colors {
		rec, err := rm.lookupTexture(h)
		if err != nil {
			return err
		}
		if !rec.desc.BindFlags.Has(metadata.BindRenderTarget) {
			return fmt.Errorf("texture %q is not a render target: %w", rec.desc.DebugName, core.ErrInvalidDescriptor)
		}
		if i == 0 {
			viewport = Viewport{Width: float32(rec.desc.Width), Height: float32(rec.desc.Height), MaxDepth: 1}
		}
		natives = append(natives, rec.native)
	}
	var depthNative DeviceObject
	if depth.IsValid() {
		rec, err := rm.lookupTexture(depth)
		if err != nil {
			return err
		}
		depthNative = rec.native
	}
	rm.device.SetRenderTargets(natives, depthNative)
	if len(natives) > 0 {
		rm.device.SetViewport(viewport)
	}
	return nil
}

func (rm *ResourceManager) ClearRenderTarget(h metadata.TextureHandle, color [4]float32) error {
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	rm.device.ClearRenderTarget(rec.native, color)
	return nil
}

func (rm *ResourceManager) ClearDepth(h metadata.TextureHandle, depth float32) error {
	rec, err := rm.lookupTexture(h)
	if err != nil {
		return err
	}
	rm.device.ClearDepth(rec.native, depth)
	return nil
}

func (rm *ResourceManager) Dispatch(x, y, z uint32) error {
	return rm.device.Dispatch(x, y, z)
}

func (rm *ResourceManager) Draw(vertexCount, startVertex uint32) error {
	return rm.device.Draw(vertexCount, startVertex)
}

func (rm *ResourceManager) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	return rm.device.DrawIndexed(indexCount, startIndex, baseVertex)
}

func (rm *ResourceManager) Stats() ResourceStats {
	return ResourceStats{
		Buffers:      rm.buffers.Count(),
		Textures:     rm.textures.Count(),
		Shaders:      rm.shaders.Count(),
		Pipelines:    rm.pipelines.Count(),
		Samplers:     rm.samplers.Len(),
		Blends:       rm.blends.Len(),
		Rasters:      rm.rasters.Len(),
		Depths:       rm.depths.Len(),
		InputLayouts: rm.inputLayouts.Len(),
	}
}

/**
 * @brief Releases every native object and clears every pool and cache. The
 * manager cannot be used afterwards.
 */
func (rm *ResourceManager) Shutdown() error {
	if err := rm.device.Flush(); err != nil {
		core.LogWarn("flush before resource shutdown: %s", err)
	}
	rm.pipelines.Clear(func(r *pipelineRecord) { r.native.Release() })
	rm.shaders.Clear(func(r *shaderRecord) { r.native.Release() })
	rm.textures.Clear(func(r *textureRecord) { r.native.Release() })
	rm.buffers.Clear(func(r *bufferRecord) { r.native.Release() })
	rm.samplers.Clear(func(r *stateRecord[metadata.SamplerDescriptor]) { r.native.Release() })
	rm.blends.Clear(func(r *stateRecord[metadata.BlendDescriptor]) { r.native.Release() })
	rm.rasters.Clear(func(r *stateRecord[metadata.RasterDescriptor]) { r.native.Release() })
	rm.depths.Clear(func(r *stateRecord[metadata.DepthDescriptor]) { r.native.Release() })
	rm.inputLayouts.Clear(func(r *stateRecord[metadata.InputLayoutDescriptor]) { r.native.Release() })
	rm.blit = newBlitResources()
	core.LogDebug("resource manager shut down")
	return nil
}
