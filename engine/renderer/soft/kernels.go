package soft

import (
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

// MaxSlots is the number of binding slots per stage and resource kind.
const MaxSlots = 16

/**
 * @brief A compute program. It is invoked once per thread of every dispatched
 * group; threads of different groups may run concurrently.
 */
type ComputeKernel func(ctx *ComputeContext)

/**
 * @brief A pixel program. It returns the colour of the pixel and whether it
 * covers it at all.
 */
type PixelKernel func(ctx *PixelContext) (emath.Vec4, bool)

type resourceSet struct {
	constants [MaxSlots][]byte
	resources [MaxSlots]*TextureView
	samplers  [MaxSlots]*metadata.SamplerDescriptor
}

func (r *resourceSet) Constants(slot uint32) []byte {
	if slot >= MaxSlots {
		return nil
	}
	return r.constants[slot]
}

func (r *resourceSet) Resource(slot uint32) *TextureView {
	if slot >= MaxSlots {
		return nil
	}
	return r.resources[slot]
}

func (r *resourceSet) Sampler(slot uint32) *metadata.SamplerDescriptor {
	if slot >= MaxSlots {
		return nil
	}
	return r.samplers[slot]
}

/** @brief What a compute kernel sees of the current thread and its bindings. */
type ComputeContext struct {
	*resourceSet
	uavs [MaxSlots]*TextureView

	GroupID          emath.UVec3
	GroupThreadID    emath.UVec3
	DispatchThreadID emath.UVec3
	GroupCount       emath.UVec3
	ThreadsPerGroup  emath.UVec3
}

func (c *ComputeContext) UAV(slot uint32) *TextureView {
	if slot >= MaxSlots {
		return nil
	}
	return c.uavs[slot]
}

/** @brief What a pixel kernel sees of the current pixel and its bindings. */
type PixelContext struct {
	*resourceSet

	// Pixel centre in render target coordinates.
	X, Y float32
	// Normalized position inside the viewport, origin top-left.
	U, V float32
	// Extent of the bound render target.
	TargetWidth, TargetHeight uint32
	VertexCount               uint32
}

type kernelRegistry struct {
	compute map[string]ComputeKernel
	pixel   map[string]PixelKernel
	vertex  map[string]struct{}
}

func newKernelRegistry() *kernelRegistry {
	k := &kernelRegistry{
		compute: make(map[string]ComputeKernel),
		pixel:   make(map[string]PixelKernel),
		vertex:  make(map[string]struct{}),
	}
	k.vertex[renderer.FullscreenTriangleEntry] = struct{}{}
	k.pixel[renderer.BlitCopyEntry] = blitCopy
	return k
}

func blitCopy(ctx *PixelContext) (emath.Vec4, bool) {
	src := ctx.Resource(0)
	if src == nil {
		return emath.Vec4{}, false
	}
	return src.Sample(ctx.Sampler(0), ctx.U, ctx.V, 0.5), true
}
