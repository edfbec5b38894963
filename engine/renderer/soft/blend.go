package soft

import (
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func blendFactor(f metadata.Blend, src, dst emath.Vec4) emath.Vec4 {
	switch f {
	case metadata.BlendZero:
		return emath.Vec4{}
	case metadata.BlendOne:
		return emath.Vec4{X: 1, Y: 1, Z: 1, W: 1}
	case metadata.BlendSrcColor:
		return src
	case metadata.BlendInvSrcColor:
		return emath.Vec4{X: 1 - src.X, Y: 1 - src.Y, Z: 1 - src.Z, W: 1 - src.W}
	case metadata.BlendSrcAlpha:
		return emath.Vec4{X: src.W, Y: src.W, Z: src.W, W: src.W}
	case metadata.BlendInvSrcAlpha:
		a := 1 - src.W
		return emath.Vec4{X: a, Y: a, Z: a, W: a}
	case metadata.BlendDestAlpha:
		return emath.Vec4{X: dst.W, Y: dst.W, Z: dst.W, W: dst.W}
	case metadata.BlendInvDestAlpha:
		a := 1 - dst.W
		return emath.Vec4{X: a, Y: a, Z: a, W: a}
	case metadata.BlendDestColor:
		return dst
	case metadata.BlendInvDestColor:
		return emath.Vec4{X: 1 - dst.X, Y: 1 - dst.Y, Z: 1 - dst.Z, W: 1 - dst.W}
	}
	return emath.Vec4{X: 1, Y: 1, Z: 1, W: 1}
}

func blendOp(op metadata.BlendOp, s, d float32) float32 {
	switch op {
	case metadata.BlendOpSubtract:
		return s - d
	case metadata.BlendOpRevSubtract:
		return d - s
	case metadata.BlendOpMin:
		return min(s, d)
	case metadata.BlendOpMax:
		return max(s, d)
	}
	return s + d
}

// blend combines a pixel program result with the target texel.
func blend(rt *metadata.RenderTargetBlend, src, dst emath.Vec4) emath.Vec4 {
	out := src
	if rt.Enable {
		sf := blendFactor(rt.Src, src, dst)
		df := blendFactor(rt.Dest, src, dst)
		saf := blendFactor(rt.SrcAlpha, src, dst)
		daf := blendFactor(rt.DestAlpha, src, dst)
		out = emath.Vec4{
			X: blendOp(rt.Op, src.X*sf.X, dst.X*df.X),
			Y: blendOp(rt.Op, src.Y*sf.Y, dst.Y*df.Y),
			Z: blendOp(rt.Op, src.Z*sf.Z, dst.Z*df.Z),
			W: blendOp(rt.OpAlpha, src.W*saf.W, dst.W*daf.W),
		}
	}
	if rt.WriteMask&1 == 0 {
		out.X = dst.X
	}
	if rt.WriteMask&2 == 0 {
		out.Y = dst.Y
	}
	if rt.WriteMask&4 == 0 {
		out.Z = dst.Z
	}
	if rt.WriteMask&8 == 0 {
		out.W = dst.W
	}
	return out
}
