package volume

import (
	"math"

	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer/soft"
)

// Entry points of the volume programs, as named by their .shadercfg files.
const (
	NormalsEntry       = "volume_normals"
	OccupancyEntry     = "occupancy_max"
	RayMarchCubeEntry  = "raymarch_cube"
	RayMarchPixelEntry = "raymarch"
)

/**
 * @brief Makes the volume programs available to the software device. Must be
 * called before any program is loaded.
 */
func RegisterKernels(dev *soft.Device) {
	dev.RegisterCompute(NormalsEntry, volumeNormals)
	dev.RegisterCompute(OccupancyEntry, occupancyMax)
	dev.RegisterVertex(RayMarchCubeEntry)
	dev.RegisterPixel(RayMarchPixelEntry, rayMarch)
}

// TransferTexel returns the transfer texture column of a normalized intensity.
func TransferTexel(intensity float32) int {
	return emath.Clamp(int(intensity*255+0.5), 0, TransferWidth-1)
}

/**
 * @brief Converts raw intensities into RGBA8: the gradient normal encoded in
 * RGB and the normalized intensity in A.
 * Slot 0 constants: rangeConstants. Slot 0 resource: source volume. UAV 0: output.
 */
func volumeNormals(ctx *soft.ComputeContext) {
	src, dst := ctx.Resource(0), ctx.UAV(0)
	c, ok := decodeRangeConstants(ctx.Constants(0))
	if src == nil || dst == nil || !ok {
		return
	}
	id, dims := ctx.DispatchThreadID, dst.Dims()
	if id.X >= dims.X || id.Y >= dims.Y || id.Z >= dims.Z {
		return
	}
	x, y, z := int(id.X), int(id.Y), int(id.Z)
	intensity := func(x, y, z int) float32 {
		return c.normalize(src.Load(x, y, z).X)
	}

	gradient := emath.Vec3{
		X: intensity(x+1, y, z) - intensity(x-1, y, z),
		Y: intensity(x, y+1, z) - intensity(x, y-1, z),
		Z: intensity(x, y, z+1) - intensity(x, y, z-1),
	}
	// Normals point from dense towards empty space.
	n := gradient.MulScalar(-1).Normalize()
	dst.Store(x, y, z, emath.Vec4{
		X: n.X*0.5 + 0.5,
		Y: n.Y*0.5 + 0.5,
		Z: n.Z*0.5 + 0.5,
		W: intensity(x, y, z),
	})
}

/**
 * @brief Writes the largest transfer opacity found in each cell, reading one
 * voxel past every cell face so interpolation across cell borders is covered.
 * Slot 0 constants: gridConstants. Resources: 0 volume, 1 transfer texture.
 */
func occupancyMax(ctx *soft.ComputeContext) {
	vol, transfer, grid := ctx.Resource(0), ctx.Resource(1), ctx.UAV(0)
	c, ok := decodeGridConstants(ctx.Constants(0))
	if vol == nil || transfer == nil || grid == nil || !ok {
		return
	}
	id, dims := ctx.DispatchThreadID, grid.Dims()
	if id.X >= dims.X || id.Y >= dims.Y || id.Z >= dims.Z {
		return
	}

	vpc := int(c.VoxelsPerCell)
	lo := func(i uint32) int { return max(int(i)*vpc-1, 0) }
	hi := func(i uint32, n uint32) int { return min((int(i)+1)*vpc+1, int(n)) }

	var best float32
	for z := lo(id.Z); z < hi(id.Z, c.VolumeDims.Z); z++ {
		for y := lo(id.Y); y < hi(id.Y, c.VolumeDims.Y); y++ {
			for x := lo(id.X); x < hi(id.X, c.VolumeDims.X); x++ {
				a := vol.Load(x, y, z).W
				best = max(best, transfer.Load(TransferTexel(a), 0, 0).W)
			}
		}
	}
	grid.Store(int(id.X), int(id.Y), int(id.Z), emath.Vec4{X: best, W: 1})
}

// intersectBox returns the ray parameters where the ray enters and leaves the
// box centred at the origin with half size extent.
func intersectBox(origin, dir, extent emath.Vec3) (float32, float32, bool) {
	tNear := float32(math.Inf(-1))
	tFar := float32(math.Inf(1))
	slab := func(o, d, e float32) bool {
		if d == 0 {
			return o >= -e && o <= e
		}
		t0, t1 := (-e-o)/d, (e-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear, tFar = max(tNear, t0), min(tFar, t1)
		return tNear <= tFar
	}
	if !slab(origin.X, dir.X, extent.X) || !slab(origin.Y, dir.Y, extent.Y) || !slab(origin.Z, dir.Z, extent.Z) {
		return 0, 0, false
	}
	return tNear, tFar, tFar > 0
}

/**
 * @brief Marches the view ray of the pixel front to back through the volume,
 * skipping cells the occupancy grid marks empty. Returns premultiplied colour.
 * Resources: 0 volume, 1 transfer, 2 occupancy, 3 noise.
 * Samplers: 0 volume, 2 occupancy.
 */
func rayMarch(ctx *soft.PixelContext) (emath.Vec4, bool) {
	c, ok := decodeRayMarchConstants(ctx.Constants(0))
	vol, transfer := ctx.Resource(0), ctx.Resource(1)
	if !ok || vol == nil || transfer == nil {
		return emath.Vec4{}, false
	}
	occupancy, noise := ctx.Resource(2), ctx.Resource(3)

	x := (2*ctx.U - 1) * c.TanHalfFov * c.Aspect
	y := (1 - 2*ctx.V) * c.TanHalfFov
	dir := c.Forward.Add(c.Right.MulScalar(x)).Add(c.Up.MulScalar(y)).Normalize()

	tNear, tFar, hit := intersectBox(c.Eye, dir, c.Extent)
	if !hit {
		return emath.Vec4{}, false
	}
	t := max(tNear, 0)
	if noise != nil {
		nd := noise.Dims()
		t += noise.Load(int(ctx.X)%int(nd.X), int(ctx.Y)%int(nd.Y), 0).X * c.StepSize
	}

	// World size of one occupancy cell along its shortest axis.
	cell := float32(math.Inf(1))
	for _, a := range [3][2]float32{{c.Extent.X, c.Dims.X}, {c.Extent.Y, c.Dims.Y}, {c.Extent.Z, c.Dims.Z}} {
		cell = min(cell, 2*a[0]/a[1]*c.VoxelsPerCell)
	}

	var acc emath.Vec4
	for i := 0; i < int(c.MaxSteps) && t < tFar; i++ {
		p := c.Eye.Add(dir.MulScalar(t))
		u := p.X/(2*c.Extent.X) + 0.5
		v := p.Y/(2*c.Extent.Y) + 0.5
		w := p.Z/(2*c.Extent.Z) + 0.5

		if occupancy != nil && occupancy.Sample(ctx.Sampler(2), u, v, w).X == 0 {
			t += max(cell, c.StepSize)
			continue
		}

		s := vol.Sample(ctx.Sampler(0), u, v, w)
		texel := TransferTexel(s.W)
		base := transfer.Load(texel, 0, 0)
		if base.W > 0 {
			material := transfer.Load(texel, 1, 0)
			color := shade(base, material.X, material.Y, s, dir)
			alpha := 1 - float32(math.Pow(float64(1-min(base.W, 0.9999)), float64(c.OpacityScale)))
			weight := (1 - acc.W) * alpha
			acc.X += weight * color.X
			acc.Y += weight * color.Y
			acc.Z += weight * color.Z
			acc.W += weight
			if acc.W >= 0.99 {
				break
			}
		}
		t += c.StepSize
	}
	return acc, acc.W > 0
}

// shade lights a sample with a headlight. The normal comes from the RGB of
// the sample; weak gradients are left unlit.
func shade(base emath.Vec4, metallic, roughness float32, sample emath.Vec4, dir emath.Vec3) emath.Vec3 {
	albedo := emath.Vec3{X: base.X, Y: base.Y, Z: base.Z}
	n := emath.Vec3{X: sample.X*2 - 1, Y: sample.Y*2 - 1, Z: sample.Z*2 - 1}
	if n.Length() < 0.1 {
		return albedo
	}
	ndl := float32(math.Abs(float64(n.Normalize().Dot(dir))))
	shininess := 2 + (1-roughness)*62
	spec := float32(math.Pow(float64(ndl), float64(shininess)))

	f0 := emath.Vec3{
		X: emath.Lerp(0.04, albedo.X, metallic),
		Y: emath.Lerp(0.04, albedo.Y, metallic),
		Z: emath.Lerp(0.04, albedo.Z, metallic),
	}
	diffuse := albedo.MulScalar((1 - metallic) * (0.25 + 0.75*ndl))
	out := diffuse.Add(f0.MulScalar(spec))
	return emath.Vec3{X: min(out.X, 1), Y: min(out.Y, 1), Z: min(out.Z, 1)}
}
