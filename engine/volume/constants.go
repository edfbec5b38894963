package volume

import (
	"bytes"
	"encoding/binary"
	"math"

	emath "github.com/spaghettifunk/snowfall/engine/math"
)

// Thread group edge of every volume compute program.
const groupSize = 8

/**
 * @brief Constants of the normals program. Values are float32 so the same
 * layout serves every voxel format.
 */
type rangeConstants struct {
	Min   float32
	Max   float32
	Range float32
	/** @brief Largest value representable by the source voxel type. */
	InitialValue float32
}

// normalize maps a decoded texel channel back to voxel units and then into [0, 1].
func (c *rangeConstants) normalize(v float32) float32 {
	return emath.Clamp((v*c.InitialValue-c.Min)/c.Range, 0, 1)
}

type gridConstants struct {
	VolumeDims    emath.UVec3
	VoxelsPerCell uint32
}

/**
 * @brief Constants of the ray-march program: the camera basis, the box the
 * volume occupies in world space and the march parameters.
 */
type rayMarchConstants struct {
	Eye        emath.Vec3
	Aspect     float32
	Forward    emath.Vec3
	TanHalfFov float32
	Right      emath.Vec3
	StepSize   float32
	Up         emath.Vec3
	// Step length in voxels, the exponent of the opacity correction.
	OpacityScale  float32
	Extent        emath.Vec3
	VoxelsPerCell float32
	Dims          emath.Vec3
	MaxSteps      float32
}

const rayMarchConstantsSize = 96

// encodeConstants packs a constants struct little-endian, the layout kernels read.
func encodeConstants(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Kernels run once per thread, so they decode by hand instead of through reflection.

type constReader struct {
	b   []byte
	off int
}

func (r *constReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *constReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *constReader) vec3() emath.Vec3 {
	return emath.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func decodeRangeConstants(b []byte) (rangeConstants, bool) {
	if len(b) < 16 {
		return rangeConstants{}, false
	}
	r := constReader{b: b}
	c := rangeConstants{Min: r.f32(), Max: r.f32(), Range: r.f32(), InitialValue: r.f32()}
	if c.Range == 0 {
		c.Range = 1
	}
	return c, true
}

func decodeGridConstants(b []byte) (gridConstants, bool) {
	if len(b) < 16 {
		return gridConstants{}, false
	}
	r := constReader{b: b}
	c := gridConstants{VolumeDims: emath.UVec3{X: r.u32(), Y: r.u32(), Z: r.u32()}, VoxelsPerCell: r.u32()}
	return c, c.VoxelsPerCell > 0
}

func decodeRayMarchConstants(b []byte) (rayMarchConstants, bool) {
	if len(b) < rayMarchConstantsSize {
		return rayMarchConstants{}, false
	}
	r := constReader{b: b}
	var c rayMarchConstants
	c.Eye, c.Aspect = r.vec3(), r.f32()
	c.Forward, c.TanHalfFov = r.vec3(), r.f32()
	c.Right, c.StepSize = r.vec3(), r.f32()
	c.Up, c.OpacityScale = r.vec3(), r.f32()
	c.Extent, c.VoxelsPerCell = r.vec3(), r.f32()
	c.Dims, c.MaxSteps = r.vec3(), r.f32()
	return c, true
}
