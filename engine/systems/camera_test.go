package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/components"
)

func TestCameraSystem(t *testing.T) {
	_, err := NewCameraSystem(0)
	assert.ErrorIs(t, err, core.ErrInvalidCapacity)

	cs, err := NewCameraSystem(1)
	require.NoError(t, err)

	def, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)
	cs.Release(components.DEFAULT_CAMERA_NAME)
	assert.Equal(t, 0, cs.Count())

	a, err := cs.Acquire("slice")
	require.NoError(t, err)
	again, err := cs.Acquire("slice")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = cs.Acquire("other")
	assert.ErrorIs(t, err, core.ErrPoolExhausted)

	cs.Release("slice")
	assert.Equal(t, 1, cs.Count(), "still referenced once")
	cs.Release("slice")
	assert.Equal(t, 0, cs.Count())
	cs.Release("slice")

	b, err := cs.Acquire("slice")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "released cameras start over")
}
