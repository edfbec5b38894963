package metadata

import (
	"fmt"
	"math/bits"

	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
)

/** @brief Pixel formats understood by the resource layer. */
type Format uint32

const (
	FormatUnknown Format = iota
	FormatR8Unorm
	FormatR8Snorm
	FormatR8Uint
	FormatR8Sint
	FormatR16Unorm
	FormatR16Snorm
	FormatR16Uint
	FormatR16Sint
	FormatR16Float
	FormatR32Uint
	FormatR32Sint
	FormatR32Float
	FormatRG8Unorm
	FormatRG16Float
	FormatRG32Float
	FormatRGBA8Unorm
	FormatRGBA8UnormSrgb
	FormatBGRA8Unorm
	FormatBGRA8UnormSrgb
	FormatRGBA16Unorm
	FormatRGBA16Float
	FormatRGBA32Float
	FormatRGB32Float
	FormatR10G10B10A2Unorm
	FormatR11G11B10Float
	FormatD16Unorm
	FormatD24UnormS8Uint
	FormatD32Float
	FormatBC1Unorm
	FormatBC1UnormSrgb
	FormatBC2Unorm
	FormatBC3Unorm
	FormatBC3UnormSrgb
	FormatBC4Unorm
	FormatBC4Snorm
	FormatBC5Unorm
	FormatBC5Snorm
	FormatBC6HUfloat
	FormatBC7Unorm
	FormatBC7UnormSrgb

	formatCount
)

/** @brief How the channels of a format are interpreted when decoded. */
type FormatKind uint8

const (
	FormatKindUnorm FormatKind = iota
	FormatKindSnorm
	FormatKindUint
	FormatKindSint
	FormatKindFloat
	FormatKindDepth
	FormatKindPacked
)

/**
 * @brief Static description of a pixel format.
 */
type FormatInfo struct {
	Name string
	/** @brief Bytes per pixel, or bytes per 4x4 block for compressed formats. */
	BlockBytes uint32
	/** @brief True for block-compressed (BCn) formats. */
	Compressed bool
	Channels   uint32
	Kind       FormatKind
	SRGB       bool
}

var formatTable = [formatCount]FormatInfo{
	FormatUnknown:          {Name: "Unknown"},
	FormatR8Unorm:          {"R8Unorm", 1, false, 1, FormatKindUnorm, false},
	FormatR8Snorm:          {"R8Snorm", 1, false, 1, FormatKindSnorm, false},
	FormatR8Uint:           {"R8Uint", 1, false, 1, FormatKindUint, false},
	FormatR8Sint:           {"R8Sint", 1, false, 1, FormatKindSint, false},
	FormatR16Unorm:         {"R16Unorm", 2, false, 1, FormatKindUnorm, false},
	FormatR16Snorm:         {"R16Snorm", 2, false, 1, FormatKindSnorm, false},
	FormatR16Uint:          {"R16Uint", 2, false, 1, FormatKindUint, false},
	FormatR16Sint:          {"R16Sint", 2, false, 1, FormatKindSint, false},
	FormatR16Float:         {"R16Float", 2, false, 1, FormatKindFloat, false},
	FormatR32Uint:          {"R32Uint", 4, false, 1, FormatKindUint, false},
	FormatR32Sint:          {"R32Sint", 4, false, 1, FormatKindSint, false},
	FormatR32Float:         {"R32Float", 4, false, 1, FormatKindFloat, false},
	FormatRG8Unorm:         {"RG8Unorm", 2, false, 2, FormatKindUnorm, false},
	FormatRG16Float:        {"RG16Float", 4, false, 2, FormatKindFloat, false},
	FormatRG32Float:        {"RG32Float", 8, false, 2, FormatKindFloat, false},
	FormatRGBA8Unorm:       {"RGBA8Unorm", 4, false, 4, FormatKindUnorm, false},
	FormatRGBA8UnormSrgb:   {"RGBA8UnormSrgb", 4, false, 4, FormatKindUnorm, true},
	FormatBGRA8Unorm:       {"BGRA8Unorm", 4, false, 4, FormatKindUnorm, false},
	FormatBGRA8UnormSrgb:   {"BGRA8UnormSrgb", 4, false, 4, FormatKindUnorm, true},
	FormatRGBA16Unorm:      {"RGBA16Unorm", 8, false, 4, FormatKindUnorm, false},
	FormatRGBA16Float:      {"RGBA16Float", 8, false, 4, FormatKindFloat, false},
	FormatRGBA32Float:      {"RGBA32Float", 16, false, 4, FormatKindFloat, false},
	FormatRGB32Float:       {"RGB32Float", 12, false, 3, FormatKindFloat, false},
	FormatR10G10B10A2Unorm: {"R10G10B10A2Unorm", 4, false, 4, FormatKindPacked, false},
	FormatR11G11B10Float:   {"R11G11B10Float", 4, false, 3, FormatKindPacked, false},
	FormatD16Unorm:         {"D16Unorm", 2, false, 1, FormatKindDepth, false},
	FormatD24UnormS8Uint:   {"D24UnormS8Uint", 4, false, 2, FormatKindDepth, false},
	FormatD32Float:         {"D32Float", 4, false, 1, FormatKindDepth, false},
	FormatBC1Unorm:         {"BC1Unorm", 8, true, 4, FormatKindUnorm, false},
	FormatBC1UnormSrgb:     {"BC1UnormSrgb", 8, true, 4, FormatKindUnorm, true},
	FormatBC2Unorm:         {"BC2Unorm", 16, true, 4, FormatKindUnorm, false},
	FormatBC3Unorm:         {"BC3Unorm", 16, true, 4, FormatKindUnorm, false},
	FormatBC3UnormSrgb:     {"BC3UnormSrgb", 16, true, 4, FormatKindUnorm, true},
	FormatBC4Unorm:         {"BC4Unorm", 8, true, 1, FormatKindUnorm, false},
	FormatBC4Snorm:         {"BC4Snorm", 8, true, 1, FormatKindSnorm, false},
	FormatBC5Unorm:         {"BC5Unorm", 16, true, 2, FormatKindUnorm, false},
	FormatBC5Snorm:         {"BC5Snorm", 16, true, 2, FormatKindSnorm, false},
	FormatBC6HUfloat:       {"BC6HUfloat", 16, true, 3, FormatKindFloat, false},
	FormatBC7Unorm:         {"BC7Unorm", 16, true, 4, FormatKindUnorm, false},
	FormatBC7UnormSrgb:     {"BC7UnormSrgb", 16, true, 4, FormatKindUnorm, true},
}

// Info returns the static description of f. Unknown values map to FormatUnknown.
func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return formatTable[FormatUnknown]
	}
	return formatTable[f]
}

func (f Format) String() string {
	if f >= formatCount {
		return fmt.Sprintf("Format(%d)", uint32(f))
	}
	return formatTable[f].Name
}

func (f Format) IsValid() bool {
	return f != FormatUnknown && f < formatCount
}

func (f Format) IsCompressed() bool {
	return f.Info().Compressed
}

func (f Format) IsDepth() bool {
	return f.Info().Kind == FormatKindDepth
}

/** @brief Bytes per pixel of an uncompressed format; 0 for compressed formats. */
func (f Format) BytesPerPixel() uint32 {
	info := f.Info()
	if info.Compressed {
		return 0
	}
	return info.BlockBytes
}

// WithSRGB returns the sRGB variant of f when one exists.
func (f Format) WithSRGB() Format {
	switch f {
	case FormatRGBA8Unorm:
		return FormatRGBA8UnormSrgb
	case FormatBGRA8Unorm:
		return FormatBGRA8UnormSrgb
	case FormatBC1Unorm:
		return FormatBC1UnormSrgb
	case FormatBC3Unorm:
		return FormatBC3UnormSrgb
	case FormatBC7Unorm:
		return FormatBC7UnormSrgb
	}
	return f
}

// MipDimension returns the extent of a mip level, never less than one.
func MipDimension(dimension, mip uint32) uint32 {
	return emath.MaxOne(dimension >> mip)
}

// MaxMipLevels returns the length of a full mip chain for the given extents.
func MaxMipLevels(width, height, depth uint32) uint32 {
	largest := max(width, height, depth, 1)
	return uint32(bits.Len32(largest))
}

/**
 * @brief Byte stride of one row of texels. Compressed formats are measured in
 * rows of 4x4 blocks.
 */
func CalculatePitch(format Format, width uint32) uint32 {
	info := format.Info()
	if info.Compressed {
		return emath.MaxOne(emath.CeilDiv(width, 4)) * info.BlockBytes
	}
	return width * info.BlockBytes
}

/** @brief Bytes of one 2D surface (one depth slice of one mip of one array slice). */
func CalculateSurfaceSize(format Format, width, height uint32) uint64 {
	pitch := uint64(CalculatePitch(format, width))
	if format.IsCompressed() {
		return pitch * uint64(emath.MaxOne(emath.CeilDiv(height, 4)))
	}
	return pitch * uint64(height)
}

/** @brief Total bytes of a texture: every mip of every array slice. */
func CalculateTotalBytes(width, height, depth, mipLevels, arraySize uint32, format Format) uint64 {
	var total uint64
	for mip := uint32(0); mip < mipLevels; mip++ {
		w := MipDimension(width, mip)
		h := MipDimension(height, mip)
		d := MipDimension(depth, mip)
		total += CalculateSurfaceSize(format, w, h) * uint64(d)
	}
	return total * uint64(arraySize)
}

/**
 * @brief Placement of one subresource (mip/array slice pair) inside a tightly
 * packed texture blob.
 */
type SubresourceLayout struct {
	Mip        uint32
	Slice      uint32
	Width      uint32
	Height     uint32
	Depth      uint32
	RowPitch   uint32
	SlicePitch uint64
	Offset     uint64
	Size       uint64
}

// SubresourceIndex follows the mip-major-within-slice convention.
func SubresourceIndex(mip, slice, mipLevels uint32) uint32 {
	return mip + slice*mipLevels
}

/**
 * @brief Generates the per-subresource layout of a texture. Entries are ordered
 * slice by slice, and mip by mip within a slice, so entry i has
 * SubresourceIndex == i.
 */
func GenerateLookUpTable(desc *TextureDescriptor) []SubresourceLayout {
	mips := emath.MaxOne(desc.MipLevels)
	slices := desc.arraySlices()
	table := make([]SubresourceLayout, 0, mips*slices)
	var offset uint64
	for slice := uint32(0); slice < slices; slice++ {
		for mip := uint32(0); mip < mips; mip++ {
			w := MipDimension(desc.Width, mip)
			h := MipDimension(desc.Height, mip)
			d := MipDimension(desc.Depth, mip)
			slicePitch := CalculateSurfaceSize(desc.Format, w, h)
			size := slicePitch * uint64(d)
			table = append(table, SubresourceLayout{
				Mip:        mip,
				Slice:      slice,
				Width:      w,
				Height:     h,
				Depth:      d,
				RowPitch:   CalculatePitch(desc.Format, w),
				SlicePitch: slicePitch,
				Offset:     offset,
				Size:       size,
			})
			offset += size
		}
	}
	return table
}

// RowCount returns the number of pitch-sized rows in one surface of the layout.
func (l SubresourceLayout) RowCount(format Format) uint32 {
	if format.IsCompressed() {
		return emath.MaxOne(emath.CeilDiv(l.Height, 4))
	}
	return l.Height
}

func checkFormat(format Format) error {
	if !format.IsValid() {
		return fmt.Errorf("format %s: %w", format, core.ErrUnsupportedFormat)
	}
	return nil
}
