package metadata

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	TextureType1D TextureType = iota
	/** @brief A standard two-dimensional texture. */
	TextureType2D
	/** @brief A volume texture. */
	TextureType3D
	/** @brief A cube texture, used for cubemaps. ArraySize is a multiple of six. */
	TextureTypeCube
)

func (t TextureType) String() string {
	switch t {
	case TextureType1D:
		return "1D"
	case TextureType2D:
		return "2D"
	case TextureType3D:
		return "3D"
	case TextureTypeCube:
		return "Cube"
	}
	return fmt.Sprintf("TextureType(%d)", int(t))
}

/** @brief How a resource is expected to be accessed by the CPU and GPU. */
type Usage int

const (
	/** @brief GPU read/write, updated through UpdateSubresource. */
	UsageDefault Usage = iota
	/** @brief Initialized at creation and never written again. */
	UsageImmutable
	/** @brief CPU write via map/discard, GPU read. */
	UsageDynamic
	/** @brief CPU readable copy target. */
	UsageStaging
)

/** @brief Pipeline stages a resource may be bound to. */
type BindFlags uint32

const (
	BindVertexBuffer BindFlags = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
	BindShaderResource
	BindRenderTarget
	BindDepthStencil
	BindUnorderedAccess
)

func (b BindFlags) Has(flag BindFlags) bool {
	return b&flag == flag
}

type CPUAccessFlags uint32

const (
	CPUAccessWrite CPUAccessFlags = 1 << iota
	CPUAccessRead
)

func (c CPUAccessFlags) Has(flag CPUAccessFlags) bool {
	return c&flag == flag
}

type MiscFlags uint32

const (
	MiscGenerateMips MiscFlags = 1 << iota
	MiscTextureCube
	MiscBufferStructured
	MiscBufferAllowRawViews
)

func (m MiscFlags) Has(flag MiscFlags) bool {
	return m&flag == flag
}

/**
 * @brief Describes a texture. Pitch and ByteCount are derived from the other
 * fields by Finalize and are fixed once the texture exists.
 */
type TextureDescriptor struct {
	Width          uint32
	Height         uint32
	Depth          uint32
	ArraySize      uint32
	MipLevels      uint32
	Format         Format
	Usage          Usage
	BindFlags      BindFlags
	CPUAccessFlags CPUAccessFlags
	MiscFlags      MiscFlags
	Type           TextureType
	/** @brief Row pitch of mip 0. */
	Pitch uint32
	/** @brief Total bytes of every mip of every slice. */
	ByteCount uint64
	/** @brief Create shader views with the sRGB variant of Format. */
	SRGB bool
	/** @brief Name reported in logs and debuggers. */
	DebugName string
}

func (d *TextureDescriptor) arraySlices() uint32 {
	return emath.MaxOne(d.ArraySize)
}

// Dimensions returns the mip 0 extents.
func (d *TextureDescriptor) Dimensions() emath.UVec3 {
	return emath.UVec3{X: d.Width, Y: d.Height, Z: emath.MaxOne(d.Depth)}
}

// ViewFormat is the format shader views are created with.
func (d *TextureDescriptor) ViewFormat() Format {
	if d.SRGB {
		return d.Format.WithSRGB()
	}
	return d.Format
}

/**
 * @brief Normalizes defaults (depth, array size, mip chain) and fills Pitch and
 * ByteCount. Returns an error wrapping core.ErrInvalidDescriptor when the
 * descriptor cannot describe a texture.
 */
func (d *TextureDescriptor) Finalize() error {
	if err := checkFormat(d.Format); err != nil {
		return err
	}
	if d.Width == 0 {
		return fmt.Errorf("texture %q has zero width: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	switch d.Type {
	case TextureType1D:
		d.Height, d.Depth = 1, 1
	case TextureType2D:
		d.Depth = 1
	case TextureType3D:
		if d.ArraySize > 1 {
			return fmt.Errorf("3D texture %q cannot be an array: %w", d.DebugName, core.ErrInvalidDescriptor)
		}
	case TextureTypeCube:
		d.Depth = 1
		if d.ArraySize == 0 {
			d.ArraySize = 6
		}
		if d.ArraySize%6 != 0 || d.Width != d.Height {
			return fmt.Errorf("cube texture %q needs square faces in multiples of six: %w", d.DebugName, core.ErrInvalidDescriptor)
		}
		d.MiscFlags |= MiscTextureCube
	default:
		return fmt.Errorf("texture %q has unknown type %v: %w", d.DebugName, d.Type, core.ErrInvalidDescriptor)
	}
	if d.Height == 0 || d.Depth == 0 {
		return fmt.Errorf("texture %q has zero extent: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	d.ArraySize = d.arraySlices()
	full := MaxMipLevels(d.Width, d.Height, d.Depth)
	if d.MipLevels == 0 {
		d.MipLevels = full
	}
	if d.MipLevels > full {
		return fmt.Errorf("texture %q requests %d mips, at most %d: %w", d.DebugName, d.MipLevels, full, core.ErrInvalidDescriptor)
	}
	if d.Format.IsDepth() && d.BindFlags.Has(BindUnorderedAccess) {
		return fmt.Errorf("depth texture %q cannot have unordered access: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	if d.Usage == UsageStaging && d.BindFlags != 0 {
		return fmt.Errorf("staging texture %q cannot be bound: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	if d.Usage == UsageDynamic && !d.CPUAccessFlags.Has(CPUAccessWrite) {
		d.CPUAccessFlags |= CPUAccessWrite
	}
	d.Pitch = CalculatePitch(d.Format, d.Width)
	d.ByteCount = CalculateTotalBytes(d.Width, d.Height, d.Depth, d.MipLevels, d.ArraySize, d.Format)
	return nil
}

// Volume3D returns the descriptor of a single-mip 3D texture.
func Volume3D(name string, dims emath.UVec3, format Format, usage Usage, bind BindFlags) TextureDescriptor {
	return TextureDescriptor{
		Width:     dims.X,
		Height:    dims.Y,
		Depth:     dims.Z,
		ArraySize: 1,
		MipLevels: 1,
		Format:    format,
		Usage:     usage,
		BindFlags: bind,
		Type:      TextureType3D,
		DebugName: name,
	}
}

/** @brief One subresource worth of initial data handed to the device. */
type SubresourceData struct {
	Data       []byte
	RowPitch   uint32
	SlicePitch uint64
}

/** @brief A CPU view of a mapped subresource. */
type MappedSubresource struct {
	Data       []byte
	RowPitch   uint32
	DepthPitch uint64
}

/** @brief Map mode for CPU access to a resource. */
type MapMode int

const (
	MapRead MapMode = iota
	MapWrite
	MapWriteDiscard
)
