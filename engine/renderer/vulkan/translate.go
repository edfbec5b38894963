package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

var vulkanFormats = map[metadata.Format]vk.Format{
	metadata.FormatUnknown:          vk.FormatUndefined,
	metadata.FormatR8Unorm:          vk.FormatR8Unorm,
	metadata.FormatR8Snorm:          vk.FormatR8Snorm,
	metadata.FormatR8Uint:           vk.FormatR8Uint,
	metadata.FormatR8Sint:           vk.FormatR8Sint,
	metadata.FormatR16Unorm:         vk.FormatR16Unorm,
	metadata.FormatR16Snorm:         vk.FormatR16Snorm,
	metadata.FormatR16Uint:          vk.FormatR16Uint,
	metadata.FormatR16Sint:          vk.FormatR16Sint,
	metadata.FormatR16Float:         vk.FormatR16Sfloat,
	metadata.FormatR32Uint:          vk.FormatR32Uint,
	metadata.FormatR32Sint:          vk.FormatR32Sint,
	metadata.FormatR32Float:         vk.FormatR32Sfloat,
	metadata.FormatRG8Unorm:         vk.FormatR8g8Unorm,
	metadata.FormatRG16Float:        vk.FormatR16g16Sfloat,
	metadata.FormatRG32Float:        vk.FormatR32g32Sfloat,
	metadata.FormatRGBA8Unorm:       vk.FormatR8g8b8a8Unorm,
	metadata.FormatRGBA8UnormSrgb:   vk.FormatR8g8b8a8Srgb,
	metadata.FormatBGRA8Unorm:       vk.FormatB8g8r8a8Unorm,
	metadata.FormatBGRA8UnormSrgb:   vk.FormatB8g8r8a8Srgb,
	metadata.FormatRGBA16Unorm:      vk.FormatR16g16b16a16Unorm,
	metadata.FormatRGBA16Float:      vk.FormatR16g16b16a16Sfloat,
	metadata.FormatRGBA32Float:      vk.FormatR32g32b32a32Sfloat,
	metadata.FormatRGB32Float:       vk.FormatR32g32b32Sfloat,
	metadata.FormatR10G10B10A2Unorm: vk.FormatA2b10g10r10UnormPack32,
	metadata.FormatR11G11B10Float:   vk.FormatB10g11r11UfloatPack32,
	metadata.FormatD16Unorm:         vk.FormatD16Unorm,
	metadata.FormatD24UnormS8Uint:   vk.FormatD24UnormS8Uint,
	metadata.FormatD32Float:         vk.FormatD32Sfloat,
	metadata.FormatBC1Unorm:         vk.FormatBc1RgbaUnormBlock,
	metadata.FormatBC1UnormSrgb:     vk.FormatBc1RgbaSrgbBlock,
	metadata.FormatBC2Unorm:         vk.FormatBc2UnormBlock,
	metadata.FormatBC3Unorm:         vk.FormatBc3UnormBlock,
	metadata.FormatBC3UnormSrgb:     vk.FormatBc3SrgbBlock,
	metadata.FormatBC4Unorm:         vk.FormatBc4UnormBlock,
	metadata.FormatBC4Snorm:         vk.FormatBc4SnormBlock,
	metadata.FormatBC5Unorm:         vk.FormatBc5UnormBlock,
	metadata.FormatBC5Snorm:         vk.FormatBc5SnormBlock,
	metadata.FormatBC6HUfloat:       vk.FormatBc6hUfloatBlock,
	metadata.FormatBC7Unorm:         vk.FormatBc7UnormBlock,
	metadata.FormatBC7UnormSrgb:     vk.FormatBc7SrgbBlock,
}

/**
 * @brief Returns the Vulkan format for the given engine format.
 * @param format The engine format.
 * @return vk.FormatUndefined and core.ErrUnsupportedFormat if there is no mapping.
 */
func ToVkFormat(format metadata.Format) (vk.Format, error) {
	f, ok := vulkanFormats[format]
	if !ok {
		return vk.FormatUndefined, fmt.Errorf("format %s: %w", format, core.ErrUnsupportedFormat)
	}
	return f, nil
}

func ToImageType(t metadata.TextureType) vk.ImageType {
	switch t {
	case metadata.TextureType1D:
		return vk.ImageType1d
	case metadata.TextureType3D:
		return vk.ImageType3d
	default:
		// cubes are 2D images with six layers
		return vk.ImageType2d
	}
}

func ToImageUsage(desc *metadata.TextureDescriptor) vk.ImageUsageFlags {
	usage := vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	if desc.BindFlags.Has(metadata.BindShaderResource) {
		usage |= vk.ImageUsageSampledBit
	}
	if desc.BindFlags.Has(metadata.BindUnorderedAccess) {
		usage |= vk.ImageUsageStorageBit
	}
	if desc.BindFlags.Has(metadata.BindRenderTarget) {
		usage |= vk.ImageUsageColorAttachmentBit
	}
	if desc.BindFlags.Has(metadata.BindDepthStencil) {
		usage |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(usage)
}

func ToBufferUsage(desc *metadata.BufferDescriptor) vk.BufferUsageFlags {
	usage := vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	if desc.BindFlags.Has(metadata.BindVertexBuffer) {
		usage |= vk.BufferUsageVertexBufferBit
	}
	if desc.BindFlags.Has(metadata.BindIndexBuffer) {
		usage |= vk.BufferUsageIndexBufferBit
	}
	if desc.BindFlags.Has(metadata.BindConstantBuffer) {
		usage |= vk.BufferUsageUniformBufferBit
	}
	if desc.BindFlags.Has(metadata.BindShaderResource) || desc.BindFlags.Has(metadata.BindUnorderedAccess) {
		usage |= vk.BufferUsageStorageBufferBit
	}
	return vk.BufferUsageFlags(usage)
}

/**
 * @brief Builds the image create info for a finalized texture descriptor.
 * Staging textures use linear tiling so they can be mapped.
 */
func ImageCreateInfo(desc *metadata.TextureDescriptor) (vk.ImageCreateInfo, error) {
	format, err := ToVkFormat(desc.Format)
	if err != nil {
		return vk.ImageCreateInfo{}, err
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: ToImageType(desc.Type),
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: max(desc.Height, 1),
			Depth:  1,
		},
		MipLevels:     max(desc.MipLevels, 1),
		ArrayLayers:   max(desc.ArraySize, 1),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         ToImageUsage(desc),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	switch desc.Type {
	case metadata.TextureType3D:
		info.Extent.Depth = max(desc.Depth, 1)
		info.ArrayLayers = 1
	case metadata.TextureTypeCube:
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	if desc.Usage == metadata.UsageStaging {
		info.Tiling = vk.ImageTilingLinear
	}
	return info, nil
}

func ToFilter(f metadata.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	switch f {
	case metadata.FilterPoint, metadata.FilterMinimumPoint, metadata.FilterMaximumPoint:
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	default:
		return vk.FilterLinear, vk.SamplerMipmapModeLinear
	}
}

func ToAddressMode(m metadata.AddressMode) vk.SamplerAddressMode {
	switch m {
	case metadata.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case metadata.AddressBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func ToCompareOp(c metadata.CompareFunc) vk.CompareOp {
	switch c {
	case metadata.CompareLess:
		return vk.CompareOpLess
	case metadata.CompareEqual:
		return vk.CompareOpEqual
	case metadata.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareGreater:
		return vk.CompareOpGreater
	case metadata.CompareNotEqual:
		return vk.CompareOpNotEqual
	case metadata.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case metadata.CompareAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpNever
	}
}

// borderColor picks the closest fixed Vulkan border colour.
func borderColor(c [4]float32) vk.BorderColor {
	switch {
	case c[3] == 0:
		return vk.BorderColorFloatTransparentBlack
	case c[0] >= 0.5 && c[1] >= 0.5 && c[2] >= 0.5:
		return vk.BorderColorFloatOpaqueWhite
	default:
		return vk.BorderColorFloatOpaqueBlack
	}
}

/**
 * @brief Builds the sampler create info for a sampler descriptor. Min/max
 * reduction filters map onto their point/linear base filter; the reduction
 * itself needs VK_EXT_sampler_filter_minmax chained by the caller.
 */
func SamplerCreateInfo(desc *metadata.SamplerDescriptor) vk.SamplerCreateInfo {
	filter, mipmap := ToFilter(desc.Filter)
	info := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        filter,
		MinFilter:        filter,
		MipmapMode:       mipmap,
		AddressModeU:     ToAddressMode(desc.AddressU),
		AddressModeV:     ToAddressMode(desc.AddressV),
		AddressModeW:     ToAddressMode(desc.AddressW),
		MipLodBias:       desc.MipLODBias,
		AnisotropyEnable: vk.False,
		MaxAnisotropy:    1,
		CompareEnable:    vk.False,
		CompareOp:        ToCompareOp(desc.Comparison),
		MinLod:           desc.MinLOD,
		MaxLod:           desc.MaxLOD,
		BorderColor:      borderColor(desc.BorderColor),
	}
	if desc.Filter == metadata.FilterAnisotropic {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = float32(max(desc.MaxAnisotropy, 1))
	}
	if desc.Comparison != metadata.CompareNever {
		info.CompareEnable = vk.True
	}
	return info
}

func RasterizationCreateInfo(desc *metadata.RasterDescriptor) vk.PipelineRasterizationStateCreateInfo {
	info := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		DepthBiasConstantFactor: float32(desc.DepthBias),
		DepthBiasClamp:          desc.DepthBiasClamp,
		DepthBiasSlopeFactor:    desc.SlopeScaledDepthBias,
	}
	if desc.FillMode == metadata.FillWireframe {
		info.PolygonMode = vk.PolygonModeLine
	}
	if desc.FrontCounterClockwise {
		info.FrontFace = vk.FrontFaceCounterClockwise
	}
	if desc.DepthBias != 0 || desc.SlopeScaledDepthBias != 0 {
		info.DepthBiasEnable = vk.True
	}
	if !desc.DepthClip {
		info.DepthClampEnable = vk.True
	}
	switch desc.CullMode {
	case metadata.CullNone:
		info.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case metadata.CullFront:
		info.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	default:
		info.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	return info
}
