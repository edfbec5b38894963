package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToVkFormat(t *testing.T) {
	f, err := ToVkFormat(metadata.FormatRGBA8Unorm)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, f)

	f, err = ToVkFormat(metadata.FormatBC1Unorm)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatBc1RgbaUnormBlock, f)

	_, err = ToVkFormat(metadata.Format(9999))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestImageCreateInfoVolume(t *testing.T) {
	desc := metadata.TextureDescriptor{
		Width: 64, Height: 32, Depth: 16, ArraySize: 1, MipLevels: 1,
		Format:    metadata.FormatRGBA8Unorm,
		Type:      metadata.TextureType3D,
		BindFlags: metadata.BindShaderResource | metadata.BindUnorderedAccess,
	}
	info, err := ImageCreateInfo(&desc)
	require.NoError(t, err)
	assert.Equal(t, vk.ImageType3d, info.ImageType)
	assert.Equal(t, uint32(16), info.Extent.Depth)
	assert.Equal(t, uint32(1), info.ArrayLayers)
	assert.NotZero(t, info.Usage&vk.ImageUsageFlags(vk.ImageUsageStorageBit))
	assert.NotZero(t, info.Usage&vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	assert.Zero(t, info.Usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit))
}

func TestImageCreateInfoCube(t *testing.T) {
	desc := metadata.TextureDescriptor{
		Width: 16, Height: 16, ArraySize: 6, MipLevels: 5,
		Format: metadata.FormatRGBA8Unorm,
		Type:   metadata.TextureTypeCube,
	}
	info, err := ImageCreateInfo(&desc)
	require.NoError(t, err)
	assert.Equal(t, vk.ImageType2d, info.ImageType)
	assert.Equal(t, uint32(6), info.ArrayLayers)
	assert.Equal(t, vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit), info.Flags)
}

func TestSamplerCreateInfo(t *testing.T) {
	s := metadata.PointClampSampler()
	info := SamplerCreateInfo(&s)
	assert.Equal(t, vk.FilterNearest, info.MagFilter)
	assert.Equal(t, vk.SamplerAddressModeClampToEdge, info.AddressModeU)

	s = metadata.MaxClampSampler()
	info = SamplerCreateInfo(&s)
	assert.Equal(t, vk.FilterLinear, info.MinFilter)
}

func TestImageBarrier(t *testing.T) {
	desc := metadata.TextureDescriptor{
		Width: 8, Height: 8, Depth: 8, ArraySize: 1, MipLevels: 1,
		Format: metadata.FormatR8Unorm, Type: metadata.TextureType3D,
	}
	b := ImageBarrier(&desc, metadata.StateUnorderedAccess, metadata.StateCopySource)
	assert.Equal(t, vk.ImageLayoutGeneral, b.OldLayout)
	assert.Equal(t, vk.ImageLayoutTransferSrcOptimal, b.NewLayout)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferReadBit), b.DstAccessMask)
	assert.Equal(t, queueFamilyIgnored, b.SrcQueueFamilyIndex)
	assert.Equal(t, uint32(1), b.SubresourceRange.LayerCount)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), b.SubresourceRange.AspectMask)

	depth := metadata.TextureDescriptor{Width: 4, Height: 4, ArraySize: 1, MipLevels: 1, Format: metadata.FormatD32Float}
	b = ImageBarrier(&depth, metadata.StateCommon, metadata.StateDepthWrite)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), b.SubresourceRange.AspectMask)
}

func TestBarrierRecorder(t *testing.T) {
	r := NewBarrierRecorder(false)
	desc := metadata.TextureDescriptor{Width: 4, Height: 4, ArraySize: 1, MipLevels: 1, Format: metadata.FormatRGBA8Unorm}

	r.OnTransition("scratch", &desc, metadata.StateUnorderedAccess, metadata.StateCopySource)
	r.OnTransition("scratch", &desc, metadata.StateCopySource, metadata.StateUnorderedAccess)
	require.Equal(t, 2, r.Len())

	out := r.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, "scratch", out[0].Name)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), out[0].SrcStage)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), out[0].DstStage)
	assert.Zero(t, r.Len())
}
