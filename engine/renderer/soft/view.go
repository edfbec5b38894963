package soft

import (
	"math"

	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/**
 * @brief Kernel access to the top mip of the first slice of a texture.
 * Loads clamp coordinates to the edges; stores outside the texture are dropped.
 */
type TextureView struct {
	format     metadata.Format
	dims       emath.UVec3
	texelBytes int
	rowPitch   int
	slicePitch int
	data       []byte
}

func newTextureView(t *texture) *TextureView {
	if t == nil {
		return nil
	}
	sub := t.layout[0]
	return &TextureView{
		format:     t.desc.Format,
		dims:       emath.UVec3{X: sub.Width, Y: sub.Height, Z: sub.Depth},
		texelBytes: int(t.desc.Format.BytesPerPixel()),
		rowPitch:   int(sub.RowPitch),
		slicePitch: int(sub.SlicePitch),
		data:       t.data[sub.Offset : sub.Offset+sub.Size],
	}
}

func (v *TextureView) Dims() emath.UVec3 {
	return v.dims
}

func (v *TextureView) Format() metadata.Format {
	return v.format
}

func (v *TextureView) offset(x, y, z int) int {
	return z*v.slicePitch + y*v.rowPitch + x*v.texelBytes
}

func (v *TextureView) clamp(x, y, z int) (int, int, int) {
	return emath.Clamp(x, 0, int(v.dims.X)-1), emath.Clamp(y, 0, int(v.dims.Y)-1), emath.Clamp(z, 0, int(v.dims.Z)-1)
}

// Load reads the texel at integer coordinates.
func (v *TextureView) Load(x, y, z int) emath.Vec4 {
	x, y, z = v.clamp(x, y, z)
	o := v.offset(x, y, z)
	return decodeTexel(v.format, v.data[o:o+v.texelBytes])
}

// Store writes the texel at integer coordinates.
func (v *TextureView) Store(x, y, z int, value emath.Vec4) {
	if x < 0 || y < 0 || z < 0 || x >= int(v.dims.X) || y >= int(v.dims.Y) || z >= int(v.dims.Z) {
		return
	}
	o := v.offset(x, y, z)
	encodeTexel(v.format, v.data[o:o+v.texelBytes], value)
}

func address(mode metadata.AddressMode, i, n int) (int, bool) {
	switch mode {
	case metadata.AddressWrap:
		i %= n
		if i < 0 {
			i += n
		}
	case metadata.AddressMirror:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
	case metadata.AddressBorder:
		if i < 0 || i >= n {
			return 0, false
		}
	default:
		i = emath.Clamp(i, 0, n-1)
	}
	return i, true
}

func (v *TextureView) fetch(s *metadata.SamplerDescriptor, x, y, z int) emath.Vec4 {
	x, okX := address(s.AddressU, x, int(v.dims.X))
	y, okY := address(s.AddressV, y, int(v.dims.Y))
	z, okZ := address(s.AddressW, z, int(v.dims.Z))
	if !okX || !okY || !okZ {
		c := s.BorderColor
		return emath.Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}
	}
	o := v.offset(x, y, z)
	return decodeTexel(v.format, v.data[o:o+v.texelBytes])
}

/**
 * @brief Samples at normalized coordinates. Linear filters blend the 2x2x2
 * footprint; Minimum and Maximum filters reduce it component-wise instead.
 */
func (v *TextureView) Sample(s *metadata.SamplerDescriptor, u, w, t float32) emath.Vec4 {
	if s == nil {
		s = &pointClamp
	}
	fx := u*float32(v.dims.X) - 0.5
	fy := w*float32(v.dims.Y) - 0.5
	fz := t*float32(v.dims.Z) - 0.5
	if v.dims.Y == 1 {
		fy = 0
	}
	if v.dims.Z == 1 {
		fz = 0
	}
	if s.Filter == metadata.FilterPoint || s.Filter == metadata.FilterMinimumPoint || s.Filter == metadata.FilterMaximumPoint {
		return v.fetch(s, int(math.Floor(float64(fx+0.5))), int(math.Floor(float64(fy+0.5))), int(math.Floor(float64(fz+0.5))))
	}

	x0, y0, z0 := math.Floor(float64(fx)), math.Floor(float64(fy)), math.Floor(float64(fz))
	tx, ty, tz := fx-float32(x0), fy-float32(y0), fz-float32(z0)
	var out emath.Vec4
	first := true
	for dz := 0; dz < 2; dz++ {
		wz := weight(tz, dz)
		for dy := 0; dy < 2; dy++ {
			wy := weight(ty, dy)
			for dx := 0; dx < 2; dx++ {
				wx := weight(tx, dx)
				wgt := wx * wy * wz
				if wgt == 0 {
					continue
				}
				c := v.fetch(s, int(x0)+dx, int(y0)+dy, int(z0)+dz)
				switch s.Filter {
				case metadata.FilterMaximumLinear:
					if first {
						out = c
					} else {
						out = emath.Vec4{X: max(out.X, c.X), Y: max(out.Y, c.Y), Z: max(out.Z, c.Z), W: max(out.W, c.W)}
					}
				case metadata.FilterMinimumLinear:
					if first {
						out = c
					} else {
						out = emath.Vec4{X: min(out.X, c.X), Y: min(out.Y, c.Y), Z: min(out.Z, c.Z), W: min(out.W, c.W)}
					}
				default:
					out.X += c.X * wgt
					out.Y += c.Y * wgt
					out.Z += c.Z * wgt
					out.W += c.W * wgt
				}
				first = false
			}
		}
	}
	return out
}

func weight(t float32, d int) float32 {
	if d == 0 {
		return 1 - t
	}
	return t
}

var pointClamp = metadata.PointClampSampler()
