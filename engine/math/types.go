package math

import "math"

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief Integer extents of a 3D grid such as a volume or an occupancy grid. */
type UVec3 struct {
	X, Y, Z uint32
}

func (v UVec3) Volume() uint64 {
	return uint64(v.X) * uint64(v.Y) * uint64(v.Z)
}

// CeilDiv divides each component by d rounding up.
func (v UVec3) CeilDiv(d UVec3) UVec3 {
	return UVec3{CeilDiv(v.X, d.X), CeilDiv(v.Y, d.Y), CeilDiv(v.Z, d.Z)}
}

func (v UVec3) Array() [3]uint32 {
	return [3]uint32{v.X, v.Y, v.Z}
}

/**
 * @brief Represents a single vertex of the ray-march proxy geometry.
 */
type Vertex3D struct {
	/** @brief The position of the vertex */
	Position Vec3
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) MulScalar(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length; the zero vector stays zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}

func NewVec3Up() Vec3 {
	return Vec3{0, 1, 0}
}
