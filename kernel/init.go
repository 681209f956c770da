// Package kernel wires the three memory-management subsystems together
// in the order spec.md requires: validate the physical memory layout,
// build the slab allocator as the global heap source, then construct
// the initial paging context — reordering any of these is a hard error,
// since a failed validation must abort before any heap use.
package kernel

import (
	"fmt"
	"log/slog"

	"collections"
	"config"
	"debugcon"
	"memlayout"
	"paging"
	"slab"
)

// IDTDescriptor is the 10-byte (limit:u16, base:u64) structure the lidt
// instruction consumes. IDT installation itself is an external
// collaborator (spec.md §1); Init only hands this value to a callback.
type IDTDescriptor struct {
	Limit uint16
	Base  uint64
}

// Options configures one boot-time Init call.
type Options struct {
	// BIOSMemoryMap reads the fixed physical addresses the E820-style
	// map lives at (normally backed by real memory; a Reader in tests).
	BIOSMemoryMap memlayout.Reader

	// Log receives the init sequence's progress; defaults to a
	// debugcon.Screen-backed logger if nil.
	Log *slog.Logger

	// WriteCR3, if set, is called with the constructed paging context's
	// CR3 value once init completes — the external collaborator that
	// actually issues the control-register write.
	WriteCR3 func(cr3 uint64)

	// LoadIDT, if set, is called with the IDT descriptor to install —
	// IDT construction itself is entirely external to this core.
	LoadIDT func(IDTDescriptor)
}

// Kernel holds the constructed memory-management core after a
// successful Init.
type Kernel struct {
	Layout    *memlayout.MemoryLayout
	Allocator *slab.Allocator
	Paging    *paging.PagingContext
}

// frameAllocator adapts the slab Allocator to paging.FrameAllocator,
// since the paging context's directories and tables are themselves
// heap-backed pages — there is no allocator beneath the slab allocator,
// and none is needed here either, since by the time paging is built the
// heap already exists.
type frameAllocator struct {
	alloc *slab.Allocator
}

func (f *frameAllocator) AllocPage() (uint64, error) {
	addr := f.alloc.Alloc(config.PageSize, config.PageSize)
	if addr == 0 {
		return 0, slab.ErrAllocFailed
	}
	return addr, nil
}

// Init runs the validator → allocator → paging sequence. A validation
// failure is fatal: it panics before any heap or paging construction is
// attempted, matching spec.md's explicit ordering requirement.
func Init(opts Options) (*Kernel, error) {
	log := opts.Log
	if log == nil {
		log = debugcon.NewFormattedLogger(debugcon.NewScreen(nil))
	}

	log.Info("reading BIOS memory map")
	layout, err := memlayout.Read(opts.BIOSMemoryMap, config.BIOSMemoryMapCountAddr, config.BIOSMemoryMapEntriesAddr, collections.DefaultIntervalListCapacity)
	if err != nil {
		return nil, fmt.Errorf("kernel: reading memory map: %w", err)
	}

	required, err := collections.ParseIntervalList(config.UsedKernelMemory, collections.DefaultIntervalListCapacity)
	if err != nil {
		return nil, fmt.Errorf("kernel: parsing static footprint: %w", err)
	}

	log.Info("validating memory layout")
	// Validate panics on an uncovered layout: this is the exact boot-time
	// check the init sequence runs before touching any heap, and a
	// failure here is fatal, not a recoverable error a caller could
	// swallow and keep booting with an unvalidated heap. Recover only
	// long enough to route the message through the debug collaborator,
	// then let it continue unwinding — the panic handler's halt.
	validateOrPanic(log, layout, required)

	log.Info("constructing slab allocator", "heap_start", config.KernelHeapStart, "heap_end", config.KernelHeapEnd)
	ctx := slab.NewAllocationContext(
		config.KernelHeapStart,
		config.KernelHeapEnd,
		config.PageSize,
		slabAddrMapCapacity,
		slabPerCacheCapacity,
	)
	allocator := slab.NewAllocator(ctx)

	identityMap, err := collections.ParseIntervalList(config.IdentityMapMemory, collections.DefaultIntervalListCapacity)
	if err != nil {
		return nil, fmt.Errorf("kernel: parsing identity map: %w", err)
	}

	log.Info("constructing initial paging context")
	pg, err := paging.New(&frameAllocator{alloc: allocator}, identityMap)
	if err != nil {
		return nil, fmt.Errorf("kernel: constructing paging context: %w", err)
	}

	if opts.WriteCR3 != nil {
		opts.WriteCR3(pg.CR3)
	}
	if opts.LoadIDT != nil {
		opts.LoadIDT(IDTDescriptor{})
	}

	return &Kernel{Layout: layout, Allocator: allocator, Paging: pg}, nil
}

// Capacities for the fixed-size bookkeeping collections the allocator
// uses. These bound how many live allocations and per-class cache
// entries the kernel can track at once; sized generously for the
// default heap region in config.
const (
	slabAddrMapCapacity  = 1 << 16
	slabPerCacheCapacity = 1 << 12
)

// validateOrPanic runs layout.Validate, logging through log before the
// panic continues unwinding on failure — the debug-collaborator leg of
// the panic handler, not a recovery.
func validateOrPanic(log *slog.Logger, layout *memlayout.MemoryLayout, required *collections.IntervalList) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("the memory layout is invalid, this system cannot use mimir", "panic", r)
			panic(r)
		}
	}()
	layout.Validate(required)
}
