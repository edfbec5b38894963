package metadata

import "github.com/spaghettifunk/snowfall/engine/containers"

// Typed handles keep buffers, textures and programs from being mixed up at
// call sites. All of them wrap a generational containers.Handle.
type (
	BufferHandle   struct{ containers.Handle }
	TextureHandle  struct{ containers.Handle }
	ShaderHandle   struct{ containers.Handle }
	PipelineHandle struct{ containers.Handle }
)

var (
	InvalidBuffer   = BufferHandle{containers.InvalidHandle}
	InvalidTexture  = TextureHandle{containers.InvalidHandle}
	InvalidShader   = ShaderHandle{containers.InvalidHandle}
	InvalidPipeline = PipelineHandle{containers.InvalidHandle}
)

// State objects live in append-only caches and are never destroyed, so they are
// addressed by cache index. Negative values are invalid.
type (
	SamplerHandle     int32
	BlendHandle       int32
	RasterHandle      int32
	DepthHandle       int32
	InputLayoutHandle int32
)

const (
	InvalidSampler     SamplerHandle     = -1
	InvalidBlend       BlendHandle       = -1
	InvalidRaster      RasterHandle      = -1
	InvalidDepth       DepthHandle       = -1
	InvalidInputLayout InputLayoutHandle = -1
)

func (h SamplerHandle) IsValid() bool     { return h >= 0 }
func (h BlendHandle) IsValid() bool       { return h >= 0 }
func (h RasterHandle) IsValid() bool      { return h >= 0 }
func (h DepthHandle) IsValid() bool       { return h >= 0 }
func (h InputLayoutHandle) IsValid() bool { return h >= 0 }

/**
 * @brief How a resource is being used by the GPU. Moving between states is an
 * explicit hand-off that native backends turn into barriers.
 */
type ResourceState uint32

const (
	StateCommon ResourceState = iota
	StateVertexAndConstantBuffer
	StateIndexBuffer
	StateRenderTarget
	StateUnorderedAccess
	StateDepthWrite
	StateDepthRead
	StateShaderResource
	StateCopySource
	StateCopyDest
	StatePresent

	resourceStateCount
)

var resourceStateNames = [resourceStateCount]string{
	"Common", "VertexAndConstantBuffer", "IndexBuffer", "RenderTarget", "UnorderedAccess",
	"DepthWrite", "DepthRead", "ShaderResource", "CopySource", "CopyDest", "Present",
}

func (s ResourceState) String() string {
	if s >= resourceStateCount {
		return "Unknown"
	}
	return resourceStateNames[s]
}

// InitialState is the state a freshly created texture is in.
func InitialState(desc *TextureDescriptor) ResourceState {
	switch {
	case desc.Usage == UsageStaging:
		return StateCopyDest
	case desc.BindFlags.Has(BindUnorderedAccess):
		return StateUnorderedAccess
	case desc.BindFlags.Has(BindRenderTarget):
		return StateRenderTarget
	case desc.BindFlags.Has(BindDepthStencil):
		return StateDepthWrite
	case desc.BindFlags.Has(BindShaderResource):
		return StateShaderResource
	}
	return StateCommon
}
