package slab

import "sync"

// Allocator wraps an AllocationContext behind the narrow global surface
// higher kernel code actually consumes: alloc never panics and returns a
// null (zero) address on failure; dealloc is infallible from the
// caller's point of view. Exactly one Allocator must be initialized
// before any heap use and it is never torn down — kernel.Init owns that
// lifecycle and hands out the single global instance.
type Allocator struct {
	mu  sync.Mutex
	ctx *AllocationContext
}

// NewAllocator wraps ctx for use as the process-wide heap source.
func NewAllocator(ctx *AllocationContext) *Allocator {
	return &Allocator{ctx: ctx}
}

// Alloc returns a null (zero) address instead of an error: this is the
// global-allocator contract downgrading AllocFailed to a null pointer,
// matching the donor design's allocator.rs.
func (a *Allocator) Alloc(size, align uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	addr, err := a.ctx.Alloc(size, align)
	if err != nil {
		return 0
	}
	return addr
}

// Dealloc silently drops an unrecognized address. This path arises during
// spurious frees and must never panic.
func (a *Allocator) Dealloc(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.ctx.Dealloc(addr)
}

// Stats exposes the underlying context's per-class statistics for
// WriteHeapProfile and diagnostics.
func (a *Allocator) Stats() []ClassStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx.Stats()
}
