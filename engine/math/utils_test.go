package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(8), CeilDiv[uint32](64, 8))
	assert.Equal(t, uint32(1), CeilDiv[uint32](1, 8))
	assert.Equal(t, 3, CeilDiv(17, 8))
	assert.Equal(t, UVec3{64, 64, 64}, UVec3{256, 256, 256}.CeilDiv(UVec3{4, 4, 4}))
	assert.Equal(t, UVec3{2, 1, 3}, UVec3{5, 4, 9}.CeilDiv(UVec3{4, 4, 4}))
}

func TestClampAndLerp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(30, 0, 10))
	assert.InDelta(t, 0.5, Lerp(0.0, 1.0, 0.5), 1e-9)
	assert.Equal(t, uint32(1), MaxOne[uint32](0))
}

func TestVec3(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	assert.Equal(t, Vec3{0, 0, 1}, x.Cross(y))
	assert.Equal(t, float32(0), x.Dot(y))
	assert.InDelta(t, 1.0, Vec3{3, 4, 0}.Normalize().Length(), 1e-6)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.Equal(t, Vec3{2, 1, 0}, x.MulScalar(2).Add(y))
}
