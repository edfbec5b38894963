package containers

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
)

// InvalidGeneration marks a Handle that never came from a pool.
const InvalidGeneration uint16 = 0xFFFF

// MaxPoolCapacity is the largest capacity addressable by a 16-bit index.
const MaxPoolCapacity = 0xFFFF

/**
 * @brief Identifies a slot in a HandlePool. Handles are plain values: copying one
 * never implies ownership of the underlying object.
 */
type Handle struct {
	/** @brief The slot index. */
	Index uint16
	/** @brief The generation of the slot at allocation time. */
	Generation uint16
}

// InvalidHandle is the zero-use sentinel returned by failed creations.
var InvalidHandle = Handle{Index: 0, Generation: InvalidGeneration}

func (h Handle) IsValid() bool {
	return h.Generation != InvalidGeneration
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "Handle(invalid)"
	}
	return fmt.Sprintf("Handle(%d:%d)", h.Index, h.Generation)
}

type slot[T any] struct {
	generation uint16
	alive      bool
	object     T
}

// HandlePool hands out generational handles over a fixed number of slots.
// It is not safe for concurrent use.
type HandlePool[T any] struct {
	slots    []slot[T]
	freeList []uint16
	count    int
}

// Initialize allocates capacity slots. Index 0 is handed out first.
func (p *HandlePool[T]) Initialize(capacity int) error {
	if capacity <= 0 || capacity > MaxPoolCapacity {
		return fmt.Errorf("handle pool capacity %d: %w", capacity, core.ErrInvalidCapacity)
	}
	p.slots = make([]slot[T], capacity)
	p.freeList = make([]uint16, 0, capacity)
	for i := capacity - 1; i >= 0; i-- {
		p.freeList = append(p.freeList, uint16(i))
	}
	p.count = 0
	return nil
}

func (p *HandlePool[T]) Allocate() (Handle, error) {
	h, _, err := p.AllocateWith()
	return h, err
}

// AllocateWith allocates a slot and returns a pointer to its object for
// initialization. The pointer must not be kept across other pool calls.
func (p *HandlePool[T]) AllocateWith() (Handle, *T, error) {
	if p.slots == nil {
		return InvalidHandle, nil, core.ErrPoolUninitialized
	}
	if len(p.freeList) == 0 {
		return InvalidHandle, nil, fmt.Errorf("handle pool of %d slots: %w", len(p.slots), core.ErrPoolExhausted)
	}
	last := len(p.freeList) - 1
	index := p.freeList[last]
	p.freeList = p.freeList[:last]

	s := &p.slots[index]
	s.alive = true
	p.count++
	return Handle{Index: index, Generation: s.generation}, &s.object, nil
}

// Lookup returns the object for h, or nil when h is stale or invalid.
func (p *HandlePool[T]) Lookup(h Handle) *T {
	if !h.IsValid() || int(h.Index) >= len(p.slots) {
		return nil
	}
	s := &p.slots[h.Index]
	if !s.alive || s.generation != h.Generation {
		return nil
	}
	return &s.object
}

// Destroy frees the slot held by h. Stale handles are ignored and report false.
func (p *HandlePool[T]) Destroy(h Handle) bool {
	if p.Lookup(h) == nil {
		return false
	}
	s := &p.slots[h.Index]
	s.generation++
	if s.generation == InvalidGeneration {
		s.generation = 0
	}
	var zero T
	s.object = zero
	s.alive = false
	p.freeList = append(p.freeList, h.Index)
	p.count--
	return true
}

// Each calls fn for every live object.
func (p *HandlePool[T]) Each(fn func(h Handle, object *T)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.alive {
			fn(Handle{Index: uint16(i), Generation: s.generation}, &s.object)
		}
	}
}

// Clear releases every live object and drops storage. The pool has to be
// initialized again before reuse.
func (p *HandlePool[T]) Clear(release func(object *T)) {
	if release != nil {
		p.Each(func(_ Handle, object *T) { release(object) })
	}
	p.slots = nil
	p.freeList = nil
	p.count = 0
}

func (p *HandlePool[T]) Count() int {
	return p.count
}

func (p *HandlePool[T]) Capacity() int {
	return len(p.slots)
}

func (p *HandlePool[T]) IsInitialized() bool {
	return p.slots != nil
}
