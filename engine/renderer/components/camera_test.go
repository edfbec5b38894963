package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/snowfall/engine/math"
)

func TestCameraLooksAtTarget(t *testing.T) {
	c := NewCamera()
	c.SetTarget(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	b := c.Basis()
	assert.InDelta(t, 2.5, b.Position.Z, 1e-5)
	assert.InDelta(t, -1, b.Forward.Z, 1e-5)

	center := c.RayDirection(0.5, 0.5, 1)
	assert.InDelta(t, 1, center.Dot(b.Forward), 1e-5)

	c.Pitch(10)
	assert.Equal(t, pitchLimit, c.EulerRotation.X)

	c.Zoom(100)
	assert.Equal(t, minDistance, c.Distance)
}
