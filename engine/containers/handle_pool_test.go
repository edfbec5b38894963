package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
)

type pooled struct {
	name  string
	value int
}

func TestHandlePoolAllocatesIndexZeroFirst(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(4))

	h, obj, err := p.AllocateWith()
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, uint16(0), h.Index)
	assert.Equal(t, uint16(0), h.Generation)
	assert.True(t, h.IsValid())
	assert.Equal(t, 1, p.Count())
}

func TestHandlePoolRoundTrip(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(8))

	handles := make([]Handle, 0, 8)
	for i := 0; i < 8; i++ {
		h, obj, err := p.AllocateWith()
		require.NoError(t, err)
		obj.value = i
		handles = append(handles, h)
	}
	for i, h := range handles {
		obj := p.Lookup(h)
		require.NotNil(t, obj, "handle %v", h)
		assert.Equal(t, i, obj.value)
	}

	// Destroy every other handle and reallocate into the freed slots.
	for i := 0; i < len(handles); i += 2 {
		assert.True(t, p.Destroy(handles[i]))
		assert.Nil(t, p.Lookup(handles[i]))
	}
	for i := 0; i < len(handles); i += 2 {
		h, err := p.Allocate()
		require.NoError(t, err)
		assert.Nil(t, p.Lookup(handles[i]), "stale handle %v aliases %v", handles[i], h)
	}
	for i := 1; i < len(handles); i += 2 {
		require.NotNil(t, p.Lookup(handles[i]))
		assert.Equal(t, i, p.Lookup(handles[i]).value)
	}
}

func TestHandlePoolGenerationIncrementsOnce(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(1))

	h, err := p.Allocate()
	require.NoError(t, err)
	require.True(t, p.Destroy(h))
	// A second destroy of the same handle is a no-op.
	assert.False(t, p.Destroy(h))

	h2, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, h.Index, h2.Index)
	assert.Equal(t, h.Generation+1, h2.Generation)
	assert.NotEqual(t, h, h2)
}

func TestHandlePoolDestroyResetsObject(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(1))

	h, obj, err := p.AllocateWith()
	require.NoError(t, err)
	obj.name = "volume"
	require.True(t, p.Destroy(h))

	h2, obj2, err := p.AllocateWith()
	require.NoError(t, err)
	assert.Equal(t, h.Index, h2.Index)
	assert.Empty(t, obj2.name)
}

func TestHandlePoolCapacity(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(2))

	a, obj, err := p.AllocateWith()
	require.NoError(t, err)
	obj.value = 1
	b, obj, err := p.AllocateWith()
	require.NoError(t, err)
	obj.value = 2

	c, err := p.Allocate()
	require.ErrorIs(t, err, core.ErrPoolExhausted)
	assert.False(t, c.IsValid())
	assert.Equal(t, 2, p.Count())

	assert.Equal(t, 1, p.Lookup(a).value)
	assert.Equal(t, 2, p.Lookup(b).value)
}

func TestHandlePoolUninitialized(t *testing.T) {
	var p HandlePool[pooled]
	_, err := p.Allocate()
	require.ErrorIs(t, err, core.ErrPoolUninitialized)
	assert.Nil(t, p.Lookup(Handle{}))
	assert.False(t, p.Destroy(Handle{}))
}

func TestHandlePoolRejectsBadCapacity(t *testing.T) {
	var p HandlePool[pooled]
	require.ErrorIs(t, p.Initialize(0), core.ErrInvalidCapacity)
	require.ErrorIs(t, p.Initialize(MaxPoolCapacity+1), core.ErrInvalidCapacity)
}

func TestHandlePoolInvalidHandle(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(1))
	_, err := p.Allocate()
	require.NoError(t, err)

	assert.Nil(t, p.Lookup(InvalidHandle))
	assert.Nil(t, p.Lookup(Handle{Index: 5, Generation: 0}))
}

func TestHandlePoolGenerationSkipsSentinel(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(1))

	var h Handle
	for i := 0; i < int(InvalidGeneration)+2; i++ {
		var err error
		h, err = p.Allocate()
		require.NoError(t, err)
		require.True(t, h.IsValid())
		require.True(t, p.Destroy(h))
	}
	assert.NotEqual(t, InvalidGeneration, h.Generation)
}

func TestHandlePoolClearReleasesLiveObjects(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(4))

	for i := 0; i < 3; i++ {
		_, obj, err := p.AllocateWith()
		require.NoError(t, err)
		obj.value = i
	}
	h, err := p.Allocate()
	require.NoError(t, err)
	p.Destroy(h)

	released := 0
	p.Clear(func(o *pooled) { released++ })
	assert.Equal(t, 3, released)
	assert.False(t, p.IsInitialized())
	assert.Equal(t, 0, p.Count())

	_, err = p.Allocate()
	require.ErrorIs(t, err, core.ErrPoolUninitialized)
}

func TestHandlePoolNoTwoLiveHandlesShareIdentity(t *testing.T) {
	var p HandlePool[pooled]
	require.NoError(t, p.Initialize(16))

	live := map[Handle]bool{}
	ops := []bool{true, true, true, false, true, false, false, true, true, false, true, true}
	var order []Handle
	for _, alloc := range ops {
		if alloc {
			h, err := p.Allocate()
			require.NoError(t, err)
			require.False(t, live[h], "duplicate live handle %v", h)
			live[h] = true
			order = append(order, h)
			continue
		}
		h := order[0]
		order = order[1:]
		require.True(t, p.Destroy(h))
		delete(live, h)
	}
	assert.Equal(t, len(live), p.Count())
}
