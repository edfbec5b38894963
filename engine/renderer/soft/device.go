package soft

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/containers"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/**
 * @brief Runs n independent iterations, possibly concurrently, and returns
 * once all of them finished.
 */
type Scheduler interface {
	ParallelFor(n int, fn func(i int))
}

type serialScheduler struct{}

func (serialScheduler) ParallelFor(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

type Config struct {
	/** @brief Commands recorded before the device flushes on its own. */
	CommandQueueSize int
	/** @brief Executes thread groups and pixel rows. Serial when nil. */
	Scheduler Scheduler
}

/** @brief Counters of work the device executed. */
type Stats struct {
	LiveObjects  int
	Dispatches   uint64
	ThreadGroups uint64
	Draws        uint64
	Copies       uint64
	Updates      uint64
	Transitions  uint64
}

type object struct {
	dev      *Device
	name     string
	released bool
}

func (o *object) Release() {
	if o.released {
		return
	}
	o.released = true
	o.dev.live--
}

type buffer struct {
	object
	desc metadata.BufferDescriptor
	data []byte
}

type texture struct {
	object
	desc   metadata.TextureDescriptor
	layout []metadata.SubresourceLayout
	data   []byte
	state  metadata.ResourceState
}

type shader struct {
	object
	desc    metadata.ShaderDescriptor
	compute ComputeKernel
	pixel   PixelKernel
}

type sampler struct {
	object
	desc metadata.SamplerDescriptor
}

type blendState struct {
	object
	desc metadata.BlendDescriptor
}

type rasterState struct {
	object
	desc metadata.RasterDescriptor
}

type depthState struct {
	object
	desc metadata.DepthDescriptor
}

type inputLayout struct {
	object
	desc metadata.InputLayoutDescriptor
}

type pipeline struct {
	object
	desc    metadata.PipelineDescriptor
	compute *shader
	vertex  *shader
	pixel   *shader
	blend   *blendState
}

const stageCount = int(metadata.ShaderStageCount)

type bindings struct {
	pipeline      *pipeline
	constants     [stageCount][MaxSlots]*buffer
	resources     [stageCount][MaxSlots]*texture
	samplers      [stageCount][MaxSlots]*sampler
	uavs          [MaxSlots]*texture
	vertexBuffers [MaxSlots]*buffer
	indexBuffer   *buffer
	colors        [metadata.MaxRenderTargets]*texture
	depth         *texture
	viewport      renderer.Viewport
}

type command struct {
	name string
	run  func() error
}

/**
 * @brief A reference device that executes programs written in Go. Commands are
 * recorded into a queue and executed strictly in order when the queue fills,
 * on Flush, or before any Map.
 */
type Device struct {
	kernels   *kernelRegistry
	scheduler Scheduler
	queue     *containers.RingQueue[command]
	bound     bindings
	live      int
	stats     Stats
}

func NewDevice(config Config) *Device {
	size := config.CommandQueueSize
	if size <= 0 {
		size = 256
	}
	scheduler := config.Scheduler
	if scheduler == nil {
		scheduler = serialScheduler{}
	}
	return &Device{
		kernels:   newKernelRegistry(),
		scheduler: scheduler,
		queue:     containers.NewRingQueue[command](size),
	}
}

func (d *Device) Name() string {
	return "soft"
}

// RegisterCompute makes a compute program available under entry.
func (d *Device) RegisterCompute(entry string, kernel ComputeKernel) {
	d.kernels.compute[entry] = kernel
}

// RegisterPixel makes a pixel program available under entry.
func (d *Device) RegisterPixel(entry string, kernel PixelKernel) {
	d.kernels.pixel[entry] = kernel
}

// RegisterVertex declares a vertex program. Draws cover the whole viewport, so
// vertex programs carry no code on this device.
func (d *Device) RegisterVertex(entry string) {
	d.kernels.vertex[entry] = struct{}{}
}

func (d *Device) Stats() Stats {
	s := d.stats
	s.LiveObjects = d.live
	return s
}

func (d *Device) newObject(name string) object {
	d.live++
	return object{dev: d, name: name}
}

func (d *Device) enqueue(name string, run func() error) error {
	if d.queue.IsFull() {
		if err := d.Flush(); err != nil {
			return err
		}
	}
	return d.queue.Enqueue(command{name: name, run: run})
}

// Flush executes every recorded command and joins their errors.
func (d *Device) Flush() error {
	var errs []error
	for !d.queue.IsEmpty() {
		cmd, err := d.queue.Dequeue()
		if err != nil {
			break
		}
		if err := cmd.run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cmd.name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Device) Shutdown() error {
	err := d.Flush()
	if d.live > 0 {
		core.LogWarn("soft device shut down with %d live objects", d.live)
	}
	d.bound = bindings{}
	return err
}

func (d *Device) CreateBuffer(desc *metadata.BufferDescriptor, data []byte) (renderer.DeviceObject, error) {
	b := &buffer{object: d.newObject(desc.DebugName), desc: *desc, data: make([]byte, desc.ByteWidth)}
	copy(b.data, data)
	return b, nil
}

func (d *Device) CreateTexture(desc *metadata.TextureDescriptor, data []metadata.SubresourceData) (renderer.DeviceObject, error) {
	if desc.ByteCount == 0 {
		return nil, fmt.Errorf("texture %q is not finalized: %w", desc.DebugName, core.ErrInvalidDescriptor)
	}
	t := &texture{
		desc:   *desc,
		layout: metadata.GenerateLookUpTable(desc),
		data:   make([]byte, desc.ByteCount),
		state:  metadata.InitialState(desc),
	}
	if len(data) > 0 && len(data) != len(t.layout) {
		return nil, fmt.Errorf("texture %q: %d initial subresources for %d: %w", desc.DebugName, len(data), len(t.layout), core.ErrInvalidDescriptor)
	}
	for i, sub := range data {
		t.writeSubresource(uint32(i), sub.Data, sub.RowPitch, sub.SlicePitch)
	}
	t.object = d.newObject(desc.DebugName)
	return t, nil
}

// writeSubresource copies rows of src with the given pitches into the packed
// layout of subresource index.
func (t *texture) writeSubresource(index uint32, src []byte, rowPitch uint32, depthPitch uint64) {
	sub := t.layout[index]
	if rowPitch == 0 {
		rowPitch = sub.RowPitch
	}
	rows := sub.RowCount(t.desc.Format)
	if depthPitch == 0 {
		depthPitch = uint64(rowPitch) * uint64(rows)
	}
	n := uint64(min(rowPitch, sub.RowPitch))
	for z := uint64(0); z < uint64(sub.Depth); z++ {
		for row := uint64(0); row < uint64(rows); row++ {
			s := z*depthPitch + row*uint64(rowPitch)
			if s+n > uint64(len(src)) {
				return
			}
			dst := sub.Offset + z*sub.SlicePitch + row*uint64(sub.RowPitch)
			copy(t.data[dst:dst+n], src[s:s+n])
		}
	}
}

func (d *Device) CreateShader(desc *metadata.ShaderDescriptor) (renderer.DeviceObject, error) {
	s := &shader{desc: *desc}
	switch desc.Stage {
	case metadata.ShaderStageCompute:
		s.compute = d.kernels.compute[desc.EntryPoint]
		if s.compute == nil {
			return nil, fmt.Errorf("compute program %q: %w", desc.EntryPoint, core.ErrUnsupportedOperation)
		}
	case metadata.ShaderStagePixel:
		s.pixel = d.kernels.pixel[desc.EntryPoint]
		if s.pixel == nil {
			return nil, fmt.Errorf("pixel program %q: %w", desc.EntryPoint, core.ErrUnsupportedOperation)
		}
	case metadata.ShaderStageVertex:
		if _, ok := d.kernels.vertex[desc.EntryPoint]; !ok {
			return nil, fmt.Errorf("vertex program %q: %w", desc.EntryPoint, core.ErrUnsupportedOperation)
		}
	}
	s.object = d.newObject(desc.Name)
	return s, nil
}

func (d *Device) CreateSamplerState(desc *metadata.SamplerDescriptor) (renderer.DeviceObject, error) {
	return &sampler{object: d.newObject("sampler"), desc: *desc}, nil
}

func (d *Device) CreateBlendState(desc *metadata.BlendDescriptor) (renderer.DeviceObject, error) {
	return &blendState{object: d.newObject("blend"), desc: *desc}, nil
}

func (d *Device) CreateRasterState(desc *metadata.RasterDescriptor) (renderer.DeviceObject, error) {
	return &rasterState{object: d.newObject("raster"), desc: *desc}, nil
}

func (d *Device) CreateDepthState(desc *metadata.DepthDescriptor) (renderer.DeviceObject, error) {
	return &depthState{object: d.newObject("depth"), desc: *desc}, nil
}

func (d *Device) CreateInputLayout(desc *metadata.InputLayoutDescriptor, vertexShader renderer.DeviceObject) (renderer.DeviceObject, error) {
	if _, ok := vertexShader.(*shader); !ok {
		return nil, fmt.Errorf("input layout needs a vertex shader: %w", core.ErrInvalidDescriptor)
	}
	for _, e := range desc.Elements {
		if !e.Format.IsValid() || e.Format.IsCompressed() {
			return nil, fmt.Errorf("input element %s%d format %s: %w", e.SemanticName, e.SemanticIndex, e.Format, core.ErrUnsupportedFormat)
		}
	}
	layout := metadata.InputLayoutDescriptor{Elements: append([]metadata.InputElement(nil), desc.Elements...)}
	return &inputLayout{object: d.newObject("input-layout"), desc: layout}, nil
}

func (d *Device) CreatePipeline(objects *renderer.PipelineObjects) (renderer.DeviceObject, error) {
	p := &pipeline{desc: *objects.Descriptor}
	p.compute, _ = objects.ComputeShader.(*shader)
	p.vertex, _ = objects.VertexShader.(*shader)
	p.pixel, _ = objects.PixelShader.(*shader)
	p.blend, _ = objects.Blend.(*blendState)
	if p.compute == nil && p.vertex == nil {
		return nil, fmt.Errorf("pipeline %q has no program: %w", p.desc.DebugName, core.ErrInvalidDescriptor)
	}
	p.object = d.newObject(p.desc.DebugName)
	return p, nil
}

func (d *Device) UpdateSubresource(dst renderer.DeviceObject, subresource uint32, data []byte, rowPitch uint32, depthPitch uint64) error {
	payload := append([]byte(nil), data...)
	switch obj := dst.(type) {
	case *buffer:
		if obj.desc.Usage == metadata.UsageImmutable {
			return fmt.Errorf("buffer %q: %w", obj.name, core.ErrImmutableResource)
		}
		return d.enqueue("update "+obj.name, func() error {
			copy(obj.data, payload)
			d.stats.Updates++
			return nil
		})
	case *texture:
		if obj.desc.Usage == metadata.UsageImmutable {
			return fmt.Errorf("texture %q: %w", obj.name, core.ErrImmutableResource)
		}
		if int(subresource) >= len(obj.layout) {
			return fmt.Errorf("texture %q has no subresource %d: %w", obj.name, subresource, core.ErrInvalidDescriptor)
		}
		return d.enqueue("update "+obj.name, func() error {
			obj.writeSubresource(subresource, payload, rowPitch, depthPitch)
			d.stats.Updates++
			return nil
		})
	}
	return fmt.Errorf("update of %T: %w", dst, core.ErrUnsupportedOperation)
}

func checkMap(name string, usage metadata.Usage, access metadata.CPUAccessFlags, mode metadata.MapMode) error {
	if usage != metadata.UsageDynamic && usage != metadata.UsageStaging {
		return fmt.Errorf("map %q: only dynamic and staging resources are mappable: %w", name, core.ErrUnsupportedOperation)
	}
	if mode == metadata.MapRead && !access.Has(metadata.CPUAccessRead) {
		return fmt.Errorf("map %q for reading without CPU read access: %w", name, core.ErrUnsupportedOperation)
	}
	if mode != metadata.MapRead && !access.Has(metadata.CPUAccessWrite) {
		return fmt.Errorf("map %q for writing without CPU write access: %w", name, core.ErrUnsupportedOperation)
	}
	return nil
}

// Map flushes pending commands and exposes the resource memory directly.
func (d *Device) Map(obj renderer.DeviceObject, subresource uint32, mode metadata.MapMode) (metadata.MappedSubresource, error) {
	if err := d.Flush(); err != nil {
		return metadata.MappedSubresource{}, err
	}
	switch o := obj.(type) {
	case *buffer:
		if err := checkMap(o.name, o.desc.Usage, o.desc.CPUAccessFlags, mode); err != nil {
			return metadata.MappedSubresource{}, err
		}
		return metadata.MappedSubresource{Data: o.data, RowPitch: o.desc.ByteWidth, DepthPitch: uint64(o.desc.ByteWidth)}, nil
	case *texture:
		if err := checkMap(o.name, o.desc.Usage, o.desc.CPUAccessFlags, mode); err != nil {
			return metadata.MappedSubresource{}, err
		}
		if int(subresource) >= len(o.layout) {
			return metadata.MappedSubresource{}, fmt.Errorf("texture %q has no subresource %d: %w", o.name, subresource, core.ErrInvalidDescriptor)
		}
		sub := o.layout[subresource]
		return metadata.MappedSubresource{
			Data:       o.data[sub.Offset : sub.Offset+sub.Size],
			RowPitch:   sub.RowPitch,
			DepthPitch: sub.SlicePitch,
		}, nil
	}
	return metadata.MappedSubresource{}, fmt.Errorf("map of %T: %w", obj, core.ErrUnsupportedOperation)
}

func (d *Device) Unmap(obj renderer.DeviceObject, subresource uint32) {}

func (d *Device) CopyResource(dst, src renderer.DeviceObject) error {
	switch s := src.(type) {
	case *texture:
		t, ok := dst.(*texture)
		if !ok || len(t.data) != len(s.data) {
			return fmt.Errorf("copy %q: destination does not match: %w", s.name, core.ErrInvalidDescriptor)
		}
		if s.state == metadata.StateUnorderedAccess {
			return fmt.Errorf("copy out of %q while in %s: %w", s.name, s.state, core.ErrResourceState)
		}
		return d.enqueue("copy "+s.name+" -> "+t.name, func() error {
			copy(t.data, s.data)
			d.stats.Copies++
			return nil
		})
	case *buffer:
		b, ok := dst.(*buffer)
		if !ok || len(b.data) != len(s.data) {
			return fmt.Errorf("copy %q: destination does not match: %w", s.name, core.ErrInvalidDescriptor)
		}
		return d.enqueue("copy "+s.name+" -> "+b.name, func() error {
			copy(b.data, s.data)
			d.stats.Copies++
			return nil
		})
	}
	return fmt.Errorf("copy of %T: %w", src, core.ErrUnsupportedOperation)
}

func requiredBind(state metadata.ResourceState) metadata.BindFlags {
	switch state {
	case metadata.StateUnorderedAccess:
		return metadata.BindUnorderedAccess
	case metadata.StateShaderResource:
		return metadata.BindShaderResource
	case metadata.StateRenderTarget:
		return metadata.BindRenderTarget
	case metadata.StateDepthRead, metadata.StateDepthWrite:
		return metadata.BindDepthStencil
	}
	return 0
}

// Transition checks the tracked state of a texture and moves it to after.
func (d *Device) Transition(obj renderer.DeviceObject, before, after metadata.ResourceState) error {
	t, ok := obj.(*texture)
	if !ok {
		return nil
	}
	if t.state != before {
		return fmt.Errorf("texture %q is %s, not %s: %w", t.name, t.state, before, core.ErrResourceState)
	}
	if !t.desc.BindFlags.Has(requiredBind(after)) {
		return fmt.Errorf("texture %q cannot enter %s: %w", t.name, after, core.ErrResourceState)
	}
	t.state = after
	d.stats.Transitions++
	return nil
}

func (d *Device) SetPipeline(p renderer.DeviceObject) {
	d.bound.pipeline, _ = p.(*pipeline)
}

func (d *Device) SetConstantBuffer(stage metadata.ShaderStage, slot uint32, b renderer.DeviceObject) {
	if slot < MaxSlots {
		d.bound.constants[stage][slot], _ = b.(*buffer)
	}
}

func (d *Device) SetShaderResource(stage metadata.ShaderStage, slot uint32, t renderer.DeviceObject) {
	if slot < MaxSlots {
		d.bound.resources[stage][slot], _ = t.(*texture)
	}
}

func (d *Device) SetUnorderedAccess(slot uint32, t renderer.DeviceObject) {
	if slot < MaxSlots {
		d.bound.uavs[slot], _ = t.(*texture)
	}
}

func (d *Device) SetSampler(stage metadata.ShaderStage, slot uint32, s renderer.DeviceObject) {
	if slot < MaxSlots {
		d.bound.samplers[stage][slot], _ = s.(*sampler)
	}
}

func (d *Device) SetVertexBuffer(slot uint32, b renderer.DeviceObject, stride, offset uint32) {
	if slot < MaxSlots {
		d.bound.vertexBuffers[slot], _ = b.(*buffer)
	}
}

func (d *Device) SetIndexBuffer(b renderer.DeviceObject, format metadata.Format, offset uint32) {
	d.bound.indexBuffer, _ = b.(*buffer)
}

func (d *Device) SetRenderTargets(colors []renderer.DeviceObject, depth renderer.DeviceObject) {
	d.bound.colors = [metadata.MaxRenderTargets]*texture{}
	for i, c := range colors {
		if i < metadata.MaxRenderTargets {
			d.bound.colors[i], _ = c.(*texture)
		}
	}
	d.bound.depth, _ = depth.(*texture)
}

func (d *Device) SetViewport(viewport renderer.Viewport) {
	d.bound.viewport = viewport
}

func (d *Device) fill(t *texture, value emath.Vec4) error {
	if t == nil {
		return nil
	}
	if !canDecode(t.desc.Format) {
		return fmt.Errorf("clear %q: %w", t.name, core.ErrUnsupportedFormat)
	}
	return d.enqueue("clear "+t.name, func() error {
		texel := make([]byte, t.desc.Format.BytesPerPixel())
		encodeTexel(t.desc.Format, texel, value)
		sub := t.layout[0]
		surface := t.data[sub.Offset : sub.Offset+sub.Size]
		for i := 0; i+len(texel) <= len(surface); i += len(texel) {
			copy(surface[i:], texel)
		}
		return nil
	})
}

func (d *Device) ClearRenderTarget(target renderer.DeviceObject, color [4]float32) {
	t, _ := target.(*texture)
	if err := d.fill(t, emath.Vec4{X: color[0], Y: color[1], Z: color[2], W: color[3]}); err != nil {
		core.LogError("ClearRenderTarget: %s", err)
	}
}

func (d *Device) ClearDepth(target renderer.DeviceObject, depth float32) {
	t, _ := target.(*texture)
	if err := d.fill(t, emath.Vec4{X: depth}); err != nil {
		core.LogError("ClearDepth: %s", err)
	}
}

func (d *Device) resourceSet(b *bindings, stage metadata.ShaderStage) *resourceSet {
	rs := &resourceSet{}
	for i := 0; i < MaxSlots; i++ {
		if cb := b.constants[stage][i]; cb != nil {
			rs.constants[i] = cb.data
		}
		rs.resources[i] = newTextureView(b.resources[stage][i])
		if s := b.samplers[stage][i]; s != nil {
			rs.samplers[i] = &s.desc
		}
	}
	return rs
}

func checkReadable(b *bindings, stage metadata.ShaderStage) error {
	for _, t := range b.resources[stage] {
		if t == nil {
			continue
		}
		if !canDecode(t.desc.Format) {
			return fmt.Errorf("texture %q: %w", t.name, core.ErrUnsupportedFormat)
		}
		if t.state == metadata.StateUnorderedAccess {
			return fmt.Errorf("texture %q read while in %s: %w", t.name, t.state, core.ErrResourceState)
		}
	}
	return nil
}

func (d *Device) Dispatch(x, y, z uint32) error {
	p := d.bound.pipeline
	if p == nil || p.compute == nil {
		return fmt.Errorf("dispatch without a compute pipeline: %w", core.ErrInvalidDescriptor)
	}
	if x == 0 || y == 0 || z == 0 {
		return nil
	}
	if err := checkReadable(&d.bound, metadata.ShaderStageCompute); err != nil {
		return err
	}
	for _, t := range d.bound.uavs {
		if t == nil {
			continue
		}
		if !canDecode(t.desc.Format) {
			return fmt.Errorf("texture %q: %w", t.name, core.ErrUnsupportedFormat)
		}
		if t.state != metadata.StateUnorderedAccess {
			return fmt.Errorf("texture %q written while in %s: %w", t.name, t.state, core.ErrResourceState)
		}
	}
	snapshot := d.bound
	return d.enqueue("dispatch "+p.compute.desc.Name, func() error {
		d.runDispatch(&snapshot, emath.UVec3{X: x, Y: y, Z: z})
		return nil
	})
}

func (d *Device) runDispatch(b *bindings, groups emath.UVec3) {
	kernel := b.pipeline.compute.compute
	nt := b.pipeline.compute.desc.NumThreads
	threads := emath.UVec3{X: max(nt[0], 1), Y: max(nt[1], 1), Z: max(nt[2], 1)}
	rs := d.resourceSet(b, metadata.ShaderStageCompute)
	var uavs [MaxSlots]*TextureView
	for i, t := range b.uavs {
		uavs[i] = newTextureView(t)
	}

	total := groups.Volume()
	d.scheduler.ParallelFor(int(total), func(i int) {
		index := uint32(i)
		gid := emath.UVec3{X: index % groups.X, Y: (index / groups.X) % groups.Y, Z: index / (groups.X * groups.Y)}
		ctx := &ComputeContext{resourceSet: rs, uavs: uavs, GroupID: gid, GroupCount: groups, ThreadsPerGroup: threads}
		for tz := uint32(0); tz < threads.Z; tz++ {
			for ty := uint32(0); ty < threads.Y; ty++ {
				for tx := uint32(0); tx < threads.X; tx++ {
					ctx.GroupThreadID = emath.UVec3{X: tx, Y: ty, Z: tz}
					ctx.DispatchThreadID = emath.UVec3{
						X: gid.X*threads.X + tx,
						Y: gid.Y*threads.Y + ty,
						Z: gid.Z*threads.Z + tz,
					}
					kernel(ctx)
				}
			}
		}
	})
	d.stats.Dispatches++
	d.stats.ThreadGroups += total
}

func (d *Device) Draw(vertexCount, startVertex uint32) error {
	return d.draw(vertexCount)
}

func (d *Device) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	if d.bound.indexBuffer == nil {
		return fmt.Errorf("indexed draw without an index buffer: %w", core.ErrInvalidDescriptor)
	}
	return d.draw(indexCount)
}

// draw covers the viewport of the first render target with the pixel program.
// Depth testing and culling are not emulated.
func (d *Device) draw(vertexCount uint32) error {
	p := d.bound.pipeline
	if p == nil || p.pixel == nil || p.pixel.pixel == nil {
		return fmt.Errorf("draw without a pixel program: %w", core.ErrInvalidDescriptor)
	}
	target := d.bound.colors[0]
	if target == nil {
		return fmt.Errorf("draw without a render target: %w", core.ErrInvalidDescriptor)
	}
	if !canDecode(target.desc.Format) {
		return fmt.Errorf("render target %q: %w", target.name, core.ErrUnsupportedFormat)
	}
	if err := checkReadable(&d.bound, metadata.ShaderStagePixel); err != nil {
		return err
	}
	if vertexCount == 0 {
		return nil
	}
	snapshot := d.bound
	return d.enqueue("draw "+p.desc.DebugName, func() error {
		d.runDraw(&snapshot, vertexCount)
		return nil
	})
}

func (d *Device) runDraw(b *bindings, vertexCount uint32) {
	kernel := b.pipeline.pixel.pixel
	target := newTextureView(b.colors[0])
	dims := target.Dims()
	vp := b.viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = renderer.Viewport{Width: float32(dims.X), Height: float32(dims.Y), MaxDepth: 1}
	}
	x0 := emath.Clamp(int(vp.X), 0, int(dims.X))
	y0 := emath.Clamp(int(vp.Y), 0, int(dims.Y))
	x1 := emath.Clamp(int(vp.X+vp.Width+0.5), 0, int(dims.X))
	y1 := emath.Clamp(int(vp.Y+vp.Height+0.5), 0, int(dims.Y))

	var rt metadata.RenderTargetBlend
	if b.pipeline.blend != nil {
		rt = b.pipeline.blend.desc.RenderTargets[0]
	} else {
		rt = metadata.OpaqueBlend().RenderTargets[0]
	}
	rs := d.resourceSet(b, metadata.ShaderStagePixel)

	d.scheduler.ParallelFor(y1-y0, func(row int) {
		y := y0 + row
		ctx := &PixelContext{resourceSet: rs, TargetWidth: dims.X, TargetHeight: dims.Y, VertexCount: vertexCount}
		for x := x0; x < x1; x++ {
			ctx.X, ctx.Y = float32(x)+0.5, float32(y)+0.5
			ctx.U = (ctx.X - vp.X) / vp.Width
			ctx.V = (ctx.Y - vp.Y) / vp.Height
			color, covered := kernel(ctx)
			if !covered {
				continue
			}
			if rt.Enable || rt.WriteMask != metadata.ColorWriteAll {
				color = blend(&rt, color, target.Load(x, y, 0))
			}
			target.Store(x, y, 0, color)
		}
	})
	d.stats.Draws++
}
