package containers

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
)

// StateCache is an append-only store of immutable state objects keyed by a
// content hash. Entries are never removed until Clear.
type StateCache[T any] struct {
	entries  []T
	buckets  map[uint64][]int
	capacity int
}

func (c *StateCache[T]) Initialize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("state cache capacity %d: %w", capacity, core.ErrInvalidCapacity)
	}
	c.entries = make([]T, 0, capacity)
	c.buckets = make(map[uint64][]int, capacity)
	c.capacity = capacity
	return nil
}

// FindByHash returns the first entry stored under hash. A nil pointer is a miss.
func (c *StateCache[T]) FindByHash(hash uint64) (int, *T) {
	bucket := c.buckets[hash]
	if len(bucket) == 0 {
		return -1, nil
	}
	return bucket[0], &c.entries[bucket[0]]
}

// Find returns the entry under hash for which match reports true. It lets
// callers confirm a hash hit against the full descriptor.
func (c *StateCache[T]) Find(hash uint64, match func(entry *T) bool) (int, *T) {
	for _, index := range c.buckets[hash] {
		if match(&c.entries[index]) {
			return index, &c.entries[index]
		}
	}
	return -1, nil
}

// Allocate reserves the next slot under hash and returns a pointer to fill in.
func (c *StateCache[T]) Allocate(hash uint64) (int, *T, error) {
	if c.buckets == nil {
		return -1, nil, core.ErrPoolUninitialized
	}
	if len(c.entries) >= c.capacity {
		return -1, nil, fmt.Errorf("state cache of %d entries: %w", c.capacity, core.ErrPoolExhausted)
	}
	var zero T
	c.entries = append(c.entries, zero)
	index := len(c.entries) - 1
	c.buckets[hash] = append(c.buckets[hash], index)
	return index, &c.entries[index], nil
}

func (c *StateCache[T]) FindByIndex(index int) *T {
	if index < 0 || index >= len(c.entries) {
		return nil
	}
	return &c.entries[index]
}

func (c *StateCache[T]) Len() int {
	return len(c.entries)
}

// Clear releases every entry and resets storage.
func (c *StateCache[T]) Clear(release func(entry *T)) {
	if release != nil {
		for i := range c.entries {
			release(&c.entries[i])
		}
	}
	c.entries = nil
	c.buckets = nil
	c.capacity = 0
}
