package soft

import (
	"encoding/binary"
	"math"

	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

// canDecode reports whether kernels can read and write texels of format.
func canDecode(format metadata.Format) bool {
	switch format {
	case metadata.FormatR8Unorm, metadata.FormatR8Snorm, metadata.FormatR8Uint, metadata.FormatR8Sint,
		metadata.FormatR16Unorm, metadata.FormatR16Snorm, metadata.FormatR16Uint, metadata.FormatR16Sint,
		metadata.FormatR16Float, metadata.FormatR32Uint, metadata.FormatR32Sint, metadata.FormatR32Float,
		metadata.FormatRG8Unorm, metadata.FormatRG16Float, metadata.FormatRG32Float,
		metadata.FormatRGBA8Unorm, metadata.FormatRGBA8UnormSrgb, metadata.FormatBGRA8Unorm, metadata.FormatBGRA8UnormSrgb,
		metadata.FormatRGBA16Unorm, metadata.FormatRGBA16Float, metadata.FormatRGBA32Float, metadata.FormatRGB32Float,
		metadata.FormatD16Unorm, metadata.FormatD32Float:
		return true
	}
	return false
}

func unorm8(b byte) float32   { return float32(b) / 255 }
func snorm8(b byte) float32   { return max(float32(int8(b))/127, -1) }
func unorm16(v uint16) float32 { return float32(v) / 65535 }
func snorm16(v uint16) float32 { return max(float32(int16(v))/32767, -1) }

func toUnorm8(f float32) byte {
	return byte(emath.Clamp(f, 0, 1)*255 + 0.5)
}

func toSnorm8(f float32) byte {
	return byte(int8(math.Round(float64(emath.Clamp(f, -1, 1) * 127))))
}

func toUnorm16(f float32) uint16 {
	return uint16(emath.Clamp(f, 0, 1)*65535 + 0.5)
}

func toSnorm16(f float32) uint16 {
	return uint16(int16(math.Round(float64(emath.Clamp(f, -1, 1) * 32767))))
}

// decodeTexel reads one texel. Missing channels read as 0 and missing alpha as 1.
func decodeTexel(format metadata.Format, b []byte) emath.Vec4 {
	le := binary.LittleEndian
	switch format {
	case metadata.FormatR8Unorm:
		return emath.Vec4{X: unorm8(b[0]), W: 1}
	case metadata.FormatR8Snorm:
		return emath.Vec4{X: snorm8(b[0]), W: 1}
	case metadata.FormatR8Uint:
		return emath.Vec4{X: float32(b[0]), W: 1}
	case metadata.FormatR8Sint:
		return emath.Vec4{X: float32(int8(b[0])), W: 1}
	case metadata.FormatR16Unorm, metadata.FormatD16Unorm:
		return emath.Vec4{X: unorm16(le.Uint16(b)), W: 1}
	case metadata.FormatR16Snorm:
		return emath.Vec4{X: snorm16(le.Uint16(b)), W: 1}
	case metadata.FormatR16Uint:
		return emath.Vec4{X: float32(le.Uint16(b)), W: 1}
	case metadata.FormatR16Sint:
		return emath.Vec4{X: float32(int16(le.Uint16(b))), W: 1}
	case metadata.FormatR16Float:
		return emath.Vec4{X: halfToFloat(le.Uint16(b)), W: 1}
	case metadata.FormatR32Uint:
		return emath.Vec4{X: float32(le.Uint32(b)), W: 1}
	case metadata.FormatR32Sint:
		return emath.Vec4{X: float32(int32(le.Uint32(b))), W: 1}
	case metadata.FormatR32Float, metadata.FormatD32Float:
		return emath.Vec4{X: math.Float32frombits(le.Uint32(b)), W: 1}
	case metadata.FormatRG8Unorm:
		return emath.Vec4{X: unorm8(b[0]), Y: unorm8(b[1]), W: 1}
	case metadata.FormatRG16Float:
		return emath.Vec4{X: halfToFloat(le.Uint16(b)), Y: halfToFloat(le.Uint16(b[2:])), W: 1}
	case metadata.FormatRG32Float:
		return emath.Vec4{X: math.Float32frombits(le.Uint32(b)), Y: math.Float32frombits(le.Uint32(b[4:])), W: 1}
	case metadata.FormatRGBA8Unorm, metadata.FormatRGBA8UnormSrgb:
		return emath.Vec4{X: unorm8(b[0]), Y: unorm8(b[1]), Z: unorm8(b[2]), W: unorm8(b[3])}
	case metadata.FormatBGRA8Unorm, metadata.FormatBGRA8UnormSrgb:
		return emath.Vec4{X: unorm8(b[2]), Y: unorm8(b[1]), Z: unorm8(b[0]), W: unorm8(b[3])}
	case metadata.FormatRGBA16Unorm:
		return emath.Vec4{X: unorm16(le.Uint16(b)), Y: unorm16(le.Uint16(b[2:])), Z: unorm16(le.Uint16(b[4:])), W: unorm16(le.Uint16(b[6:]))}
	case metadata.FormatRGBA16Float:
		return emath.Vec4{X: halfToFloat(le.Uint16(b)), Y: halfToFloat(le.Uint16(b[2:])), Z: halfToFloat(le.Uint16(b[4:])), W: halfToFloat(le.Uint16(b[6:]))}
	case metadata.FormatRGBA32Float:
		return emath.Vec4{
			X: math.Float32frombits(le.Uint32(b)), Y: math.Float32frombits(le.Uint32(b[4:])),
			Z: math.Float32frombits(le.Uint32(b[8:])), W: math.Float32frombits(le.Uint32(b[12:])),
		}
	case metadata.FormatRGB32Float:
		return emath.Vec4{
			X: math.Float32frombits(le.Uint32(b)), Y: math.Float32frombits(le.Uint32(b[4:])),
			Z: math.Float32frombits(le.Uint32(b[8:])), W: 1,
		}
	}
	return emath.Vec4{}
}

// encodeTexel writes one texel, saturating normalized formats.
func encodeTexel(format metadata.Format, b []byte, v emath.Vec4) {
	le := binary.LittleEndian
	switch format {
	case metadata.FormatR8Unorm:
		b[0] = toUnorm8(v.X)
	case metadata.FormatR8Snorm:
		b[0] = toSnorm8(v.X)
	case metadata.FormatR8Uint:
		b[0] = byte(emath.Clamp(v.X, 0, 255))
	case metadata.FormatR8Sint:
		b[0] = byte(int8(emath.Clamp(v.X, -128, 127)))
	case metadata.FormatR16Unorm, metadata.FormatD16Unorm:
		le.PutUint16(b, toUnorm16(v.X))
	case metadata.FormatR16Snorm:
		le.PutUint16(b, toSnorm16(v.X))
	case metadata.FormatR16Uint:
		le.PutUint16(b, uint16(emath.Clamp(v.X, 0, 65535)))
	case metadata.FormatR16Sint:
		le.PutUint16(b, uint16(int16(emath.Clamp(v.X, -32768, 32767))))
	case metadata.FormatR16Float:
		le.PutUint16(b, floatToHalf(v.X))
	case metadata.FormatR32Uint:
		le.PutUint32(b, uint32(max(v.X, 0)))
	case metadata.FormatR32Sint:
		le.PutUint32(b, uint32(int32(v.X)))
	case metadata.FormatR32Float, metadata.FormatD32Float:
		le.PutUint32(b, math.Float32bits(v.X))
	case metadata.FormatRG8Unorm:
		b[0], b[1] = toUnorm8(v.X), toUnorm8(v.Y)
	case metadata.FormatRG16Float:
		le.PutUint16(b, floatToHalf(v.X))
		le.PutUint16(b[2:], floatToHalf(v.Y))
	case metadata.FormatRG32Float:
		le.PutUint32(b, math.Float32bits(v.X))
		le.PutUint32(b[4:], math.Float32bits(v.Y))
	case metadata.FormatRGBA8Unorm, metadata.FormatRGBA8UnormSrgb:
		b[0], b[1], b[2], b[3] = toUnorm8(v.X), toUnorm8(v.Y), toUnorm8(v.Z), toUnorm8(v.W)
	case metadata.FormatBGRA8Unorm, metadata.FormatBGRA8UnormSrgb:
		b[0], b[1], b[2], b[3] = toUnorm8(v.Z), toUnorm8(v.Y), toUnorm8(v.X), toUnorm8(v.W)
	case metadata.FormatRGBA16Unorm:
		le.PutUint16(b, toUnorm16(v.X))
		le.PutUint16(b[2:], toUnorm16(v.Y))
		le.PutUint16(b[4:], toUnorm16(v.Z))
		le.PutUint16(b[6:], toUnorm16(v.W))
	case metadata.FormatRGBA16Float:
		le.PutUint16(b, floatToHalf(v.X))
		le.PutUint16(b[2:], floatToHalf(v.Y))
		le.PutUint16(b[4:], floatToHalf(v.Z))
		le.PutUint16(b[6:], floatToHalf(v.W))
	case metadata.FormatRGBA32Float:
		le.PutUint32(b, math.Float32bits(v.X))
		le.PutUint32(b[4:], math.Float32bits(v.Y))
		le.PutUint32(b[8:], math.Float32bits(v.Z))
		le.PutUint32(b[12:], math.Float32bits(v.W))
	case metadata.FormatRGB32Float:
		le.PutUint32(b, math.Float32bits(v.X))
		le.PutUint32(b[4:], math.Float32bits(v.Y))
		le.PutUint32(b[8:], math.Float32bits(v.Z))
	}
}

func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal half, normalize into a float32.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3FF
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}

func floatToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF
	switch {
	case bits&0x7FFFFFFF == 0:
		return sign
	case bits>>23&0xFF == 0xFF:
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		return sign | 0x7C00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		return sign | uint16(mant>>uint32(14-exp))
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}
