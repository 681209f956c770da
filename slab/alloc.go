// Package slab implements the kernel heap: a slab allocator serving
// alloc/dealloc requests from a single identity-mapped region using
// power-of-two size classes, with no allocator beneath it — its own
// bookkeeping lives entirely in the fixed-capacity collections package.
package slab

import (
	"errors"
	"math/bits"

	"collections"
)

var ErrAllocFailed = errors.New("slab: allocation failed")

// CacheEntry is the byte address of a single slot within some slab.
type CacheEntry struct {
	PhyAddr uint64
}

// cache owns one size class's free and allocated sets: a LIFO free stack
// for cache locality (most-recently-freed reused first) and a list of
// currently allocated entries addressed by stable handles.
type cache struct {
	free      *collections.StaticStack[CacheEntry]
	allocated *collections.StaticList[CacheEntry]
}

// MapEntry is the value addr_map stores for each live allocation: which
// size class it belongs to, and the stable handle into that class's
// allocated list, letting Dealloc recover both in O(1) without the caller
// supplying the original size.
type MapEntry struct {
	CacheIndex int
	Handle     collections.StaticListRef[CacheEntry]
}

// AllocationContext is the slab allocator's process-global state: the
// address map, one cache per power-of-two size class, and the
// monotonically increasing cursor into the kernel-heap region.
type AllocationContext struct {
	addrMap      *collections.StaticMap[uint64, MapEntry]
	caches       []*cache
	slabSize     uint64
	heapStart    uint64
	heapEnd      uint64
	nextSlabAddr uint64
}

// NewAllocationContext constructs an allocator over the heap region
// [heapStart, heapEnd), carving slabSize-byte slabs (slabSize must be a
// power of two — 4096 in production, per config.PageSize) and serving
// size classes from 2^0 up to slabSize. addrMapCapacity and
// perCacheCapacity bound the fixed-capacity bookkeeping collections and
// must be sized to the caller's expected allocation volume.
func NewAllocationContext(heapStart, heapEnd, slabSize uint64, addrMapCapacity, perCacheCapacity int) *AllocationContext {
	numCaches := bits.Len64(slabSize) // slabSize is a power of two: log2(slabSize)+1 classes
	caches := make([]*cache, numCaches)
	for i := range caches {
		caches[i] = &cache{
			free:      collections.NewStaticStack[CacheEntry](perCacheCapacity),
			allocated: collections.NewStaticList[CacheEntry](perCacheCapacity),
		}
	}
	return &AllocationContext{
		addrMap:      collections.NewUint64Map[MapEntry](addrMapCapacity),
		caches:       caches,
		slabSize:     slabSize,
		heapStart:    heapStart,
		heapEnd:      heapEnd,
		nextSlabAddr: heapStart,
	}
}

// ceilLog2 returns the smallest n such that 2^n >= v, for v >= 1.
func ceilLog2(v uint64) int {
	if v <= 1 {
		return 0
	}
	return bits.Len64(v - 1)
}

// Alloc serves a request for size bytes aligned to align, rounding up to
// the next power-of-two size class and carving a fresh slab from the
// heap cursor whenever that class's free stack runs dry.
func (c *AllocationContext) Alloc(size, align uint64) (uint64, error) {
	sz := size
	if align > sz {
		sz = align
	}
	if sz > c.slabSize {
		return 0, ErrAllocFailed
	}
	cls := ceilLog2(sz)
	cell := uint64(1) << uint(cls)
	cc := c.caches[cls]

	if cc.free.Len() == 0 {
		if c.nextSlabAddr >= c.heapEnd {
			return 0, ErrAllocFailed
		}
		base := c.nextSlabAddr
		count := c.slabSize / cell
		for i := uint64(0); i < count; i++ {
			if err := cc.free.Push(CacheEntry{PhyAddr: base + i*cell}); err != nil {
				return 0, ErrAllocFailed
			}
		}
		c.nextSlabAddr += c.slabSize
	}

	entry, err := cc.free.Pop()
	if err != nil {
		return 0, ErrAllocFailed
	}
	handle, err := cc.allocated.Push(entry)
	if err != nil {
		return 0, ErrAllocFailed
	}
	if _, err := c.addrMap.Insert(entry.PhyAddr, MapEntry{CacheIndex: cls, Handle: handle}); err != nil {
		return 0, ErrAllocFailed
	}
	return entry.PhyAddr, nil
}

// Dealloc returns addr's backing cell to its size class's free stack.
// An addr that addr_map does not recognize is reported as an error to
// this layer; the global-allocator adapter (see Allocator) is the one
// that downgrades this to a silent no-op, since spurious frees must
// never panic.
func (c *AllocationContext) Dealloc(addr uint64) error {
	entry, err := c.addrMap.Remove(addr)
	if err != nil {
		return err
	}
	cc := c.caches[entry.CacheIndex]
	item := cc.allocated.Remove(entry.Handle)
	return cc.free.Push(item)
}

// Stats reports, per size class, how many cells are currently allocated
// and how many are sitting free — the raw numbers WriteHeapProfile turns
// into a pprof profile.
type ClassStats struct {
	CellSize  uint64
	Allocated int
	Free      int
}

func (c *AllocationContext) Stats() []ClassStats {
	out := make([]ClassStats, len(c.caches))
	for i, cc := range c.caches {
		out[i] = ClassStats{
			CellSize:  uint64(1) << uint(i),
			Allocated: cc.allocated.Len(),
			Free:      cc.free.Len(),
		}
	}
	return out
}
