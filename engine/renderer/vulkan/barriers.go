package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

var (
	_ renderer.BarrierSink  = (*BarrierRecorder)(nil)
	_ renderer.CreationSink = (*BarrierRecorder)(nil)
)

const queueFamilyIgnored = ^uint32(0)

/** @brief The image layout a resource state maps to. */
func ImageLayout(state metadata.ResourceState) vk.ImageLayout {
	switch state {
	case metadata.StateRenderTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.StateUnorderedAccess:
		return vk.ImageLayoutGeneral
	case metadata.StateDepthWrite:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.StateDepthRead:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case metadata.StateShaderResource:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.StateCopySource:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.StateCopyDest:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.StatePresent:
		return vk.ImageLayoutPresentSrc
	case metadata.StateCommon:
		return vk.ImageLayoutGeneral
	default:
		return vk.ImageLayoutUndefined
	}
}

func AccessMask(state metadata.ResourceState) vk.AccessFlags {
	var access vk.AccessFlagBits
	switch state {
	case metadata.StateVertexAndConstantBuffer:
		access = vk.AccessVertexAttributeReadBit | vk.AccessUniformReadBit
	case metadata.StateIndexBuffer:
		access = vk.AccessIndexReadBit
	case metadata.StateRenderTarget:
		access = vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit
	case metadata.StateUnorderedAccess:
		access = vk.AccessShaderReadBit | vk.AccessShaderWriteBit
	case metadata.StateDepthWrite:
		access = vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit
	case metadata.StateDepthRead:
		access = vk.AccessDepthStencilAttachmentReadBit
	case metadata.StateShaderResource:
		access = vk.AccessShaderReadBit
	case metadata.StateCopySource:
		access = vk.AccessTransferReadBit
	case metadata.StateCopyDest:
		access = vk.AccessTransferWriteBit
	case metadata.StatePresent:
		access = vk.AccessMemoryReadBit
	}
	return vk.AccessFlags(access)
}

func StageMask(state metadata.ResourceState) vk.PipelineStageFlags {
	var stage vk.PipelineStageFlagBits
	switch state {
	case metadata.StateVertexAndConstantBuffer, metadata.StateIndexBuffer:
		stage = vk.PipelineStageVertexInputBit | vk.PipelineStageVertexShaderBit
	case metadata.StateRenderTarget:
		stage = vk.PipelineStageColorAttachmentOutputBit
	case metadata.StateUnorderedAccess:
		stage = vk.PipelineStageComputeShaderBit
	case metadata.StateDepthWrite, metadata.StateDepthRead:
		stage = vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	case metadata.StateShaderResource:
		stage = vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit
	case metadata.StateCopySource, metadata.StateCopyDest:
		stage = vk.PipelineStageTransferBit
	case metadata.StatePresent:
		stage = vk.PipelineStageBottomOfPipeBit
	default:
		stage = vk.PipelineStageTopOfPipeBit
	}
	return vk.PipelineStageFlags(stage)
}

func aspectMask(format metadata.Format) vk.ImageAspectFlags {
	switch format {
	case metadata.FormatD24UnormS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case metadata.FormatD16Unorm, metadata.FormatD32Float:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

/**
 * @brief Builds the image memory barrier covering every subresource of the
 * texture for a before -> after hand-off. The image itself is left null; the
 * command recorder fills it in.
 */
func ImageBarrier(desc *metadata.TextureDescriptor, before, after metadata.ResourceState) vk.ImageMemoryBarrier {
	layers := max(desc.ArraySize, 1)
	if desc.Type == metadata.TextureType3D {
		layers = 1
	}
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       AccessMask(before),
		DstAccessMask:       AccessMask(after),
		OldLayout:           ImageLayout(before),
		NewLayout:           ImageLayout(after),
		SrcQueueFamilyIndex: queueFamilyIgnored,
		DstQueueFamilyIndex: queueFamilyIgnored,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectMask(desc.Format),
			BaseMipLevel:   0,
			LevelCount:     max(desc.MipLevels, 1),
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
}

/** @brief One recorded hand-off, in the form vkCmdPipelineBarrier takes it. */
type RecordedBarrier struct {
	Name     string
	SrcStage vk.PipelineStageFlags
	DstStage vk.PipelineStageFlags
	Barrier  vk.ImageMemoryBarrier
}

/**
 * @brief One created object, as the create info a Vulkan backend would pass.
 * Exactly one of the info fields is set, matching Kind.
 */
type RecordedCreate struct {
	Kind        string
	Name        string
	BufferUsage vk.BufferUsageFlags
	Image       *vk.ImageCreateInfo
	Sampler     *vk.SamplerCreateInfo
	Raster      *vk.PipelineRasterizationStateCreateInfo
}

/**
 * @brief Collects the explicit resource transitions issued through the
 * ResourceManager as Vulkan image barriers. Attach it with
 * ResourceManager.SetBarrierSink.
 */
type BarrierRecorder struct {
	mu       sync.Mutex
	barriers []RecordedBarrier
	created  []RecordedCreate
	verbose  bool
}

func NewBarrierRecorder(verbose bool) *BarrierRecorder {
	return &BarrierRecorder{verbose: verbose}
}

func (r *BarrierRecorder) OnTransition(name string, desc *metadata.TextureDescriptor, before, after metadata.ResourceState) {
	rb := RecordedBarrier{
		Name:     name,
		SrcStage: StageMask(before),
		DstStage: StageMask(after),
		Barrier:  ImageBarrier(desc, before, after),
	}

	r.mu.Lock()
	r.barriers = append(r.barriers, rb)
	r.mu.Unlock()

	if r.verbose {
		core.LogDebug("barrier %s: %s -> %s (layout %d -> %d)", name, before, after, rb.Barrier.OldLayout, rb.Barrier.NewLayout)
	}
}

/** @brief Returns and clears the barriers recorded so far. */
func (r *BarrierRecorder) Drain() []RecordedBarrier {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.barriers
	r.barriers = nil
	return out
}

func (r *BarrierRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.barriers)
}

func (r *BarrierRecorder) record(rc RecordedCreate) {
	r.mu.Lock()
	r.created = append(r.created, rc)
	r.mu.Unlock()

	if r.verbose {
		core.LogDebug("create %s %s", rc.Kind, rc.Name)
	}
}

func (r *BarrierRecorder) OnCreateBuffer(desc *metadata.BufferDescriptor) {
	r.record(RecordedCreate{Kind: "buffer", Name: desc.DebugName, BufferUsage: ToBufferUsage(desc)})
}

// OnCreateTexture skips formats without a Vulkan equivalent.
func (r *BarrierRecorder) OnCreateTexture(desc *metadata.TextureDescriptor) {
	info, err := ImageCreateInfo(desc)
	if err != nil {
		core.LogWarn("texture %s has no Vulkan image: %s", desc.DebugName, err)
		return
	}
	r.record(RecordedCreate{Kind: "image", Name: desc.DebugName, Image: &info})
}

func (r *BarrierRecorder) OnCreateSampler(desc *metadata.SamplerDescriptor) {
	info := SamplerCreateInfo(desc)
	r.record(RecordedCreate{Kind: "sampler", Name: fmt.Sprintf("%016x", desc.Hash()), Sampler: &info})
}

func (r *BarrierRecorder) OnCreateRaster(desc *metadata.RasterDescriptor) {
	info := RasterizationCreateInfo(desc)
	r.record(RecordedCreate{Kind: "raster", Name: fmt.Sprintf("%016x", desc.Hash()), Raster: &info})
}

/** @brief Returns and clears the creations recorded so far. */
func (r *BarrierRecorder) DrainCreated() []RecordedCreate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.created
	r.created = nil
	return out
}
