package metadata

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
)

/**
 * @brief Describes a GPU buffer.
 */
type BufferDescriptor struct {
	/** @brief Size of the buffer in bytes. */
	ByteWidth uint32
	/** @brief Element size for structured buffers, vertex stride otherwise. */
	ByteStride     uint32
	Usage          Usage
	BindFlags      BindFlags
	CPUAccessFlags CPUAccessFlags
	MiscFlags      MiscFlags
	DebugName      string
}

// Validate checks ByteWidth and ByteStride consistency for structured and raw views.
func (d *BufferDescriptor) Validate(hasData bool) error {
	if d.ByteWidth == 0 {
		return fmt.Errorf("buffer %q has zero size: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	if d.MiscFlags.Has(MiscBufferStructured) {
		if d.ByteStride == 0 || d.ByteWidth%d.ByteStride != 0 {
			return fmt.Errorf("structured buffer %q: width %d is not a multiple of stride %d: %w",
				d.DebugName, d.ByteWidth, d.ByteStride, core.ErrInvalidDescriptor)
		}
		if d.MiscFlags.Has(MiscBufferAllowRawViews) {
			return fmt.Errorf("buffer %q cannot be both structured and raw: %w", d.DebugName, core.ErrInvalidDescriptor)
		}
	}
	if d.MiscFlags.Has(MiscBufferAllowRawViews) && d.ByteWidth%4 != 0 {
		return fmt.Errorf("raw buffer %q width %d is not a multiple of 4: %w", d.DebugName, d.ByteWidth, core.ErrInvalidDescriptor)
	}
	if d.BindFlags.Has(BindConstantBuffer) && d.ByteWidth%16 != 0 {
		return fmt.Errorf("constant buffer %q width %d is not a multiple of 16: %w", d.DebugName, d.ByteWidth, core.ErrInvalidDescriptor)
	}
	if d.Usage == UsageImmutable && !hasData {
		return fmt.Errorf("immutable buffer %q needs initial data: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	if d.Usage == UsageDynamic {
		d.CPUAccessFlags |= CPUAccessWrite
	}
	return nil
}

// ConstantBuffer returns the descriptor of a dynamic constant buffer rounded up to 16 bytes.
func ConstantBuffer(name string, size uint32) BufferDescriptor {
	return BufferDescriptor{
		ByteWidth:      uint32(GetAligned(uint64(size), 16)),
		Usage:          UsageDynamic,
		BindFlags:      BindConstantBuffer,
		CPUAccessFlags: CPUAccessWrite,
		DebugName:      name,
	}
}
