package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
)

type cachedState struct {
	desc     string
	released bool
}

func TestStateCacheMissThenHit(t *testing.T) {
	var c StateCache[cachedState]
	require.NoError(t, c.Initialize(4))

	index, entry := c.FindByHash(42)
	assert.Equal(t, -1, index)
	assert.Nil(t, entry)

	index, entry, err := c.Allocate(42)
	require.NoError(t, err)
	entry.desc = "blend"

	hit, hitEntry := c.FindByHash(42)
	assert.Equal(t, index, hit)
	require.NotNil(t, hitEntry)
	assert.Equal(t, "blend", hitEntry.desc)
	assert.Same(t, hitEntry, c.FindByIndex(index))
}

func TestStateCacheFindWithCollision(t *testing.T) {
	var c StateCache[cachedState]
	require.NoError(t, c.Initialize(4))

	a, entry, err := c.Allocate(7)
	require.NoError(t, err)
	entry.desc = "a"
	b, entry, err := c.Allocate(7)
	require.NoError(t, err)
	entry.desc = "b"
	require.NotEqual(t, a, b)

	index, found := c.Find(7, func(e *cachedState) bool { return e.desc == "b" })
	assert.Equal(t, b, index)
	require.NotNil(t, found)

	index, found = c.Find(7, func(e *cachedState) bool { return e.desc == "c" })
	assert.Equal(t, -1, index)
	assert.Nil(t, found)
}

func TestStateCacheExhausted(t *testing.T) {
	var c StateCache[cachedState]
	require.NoError(t, c.Initialize(1))

	_, _, err := c.Allocate(1)
	require.NoError(t, err)
	_, _, err = c.Allocate(2)
	require.ErrorIs(t, err, core.ErrPoolExhausted)
	assert.Equal(t, 1, c.Len())
}

func TestStateCacheClear(t *testing.T) {
	var c StateCache[cachedState]
	require.NoError(t, c.Initialize(3))
	for i := uint64(0); i < 3; i++ {
		_, _, err := c.Allocate(i)
		require.NoError(t, err)
	}

	released := 0
	c.Clear(func(e *cachedState) { released++ })
	assert.Equal(t, 3, released)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.FindByIndex(0))

	_, _, err := c.Allocate(1)
	require.ErrorIs(t, err, core.ErrPoolUninitialized)
}
