// Package memlayout reads the BIOS E820-style memory map and validates
// that the kernel's statically-declared footprint sits entirely within
// memory the firmware reports as free.
package memlayout

import (
	"errors"
	"fmt"

	"collections"
)

// Kind classifies a single BIOS memory-map entry.
type Kind uint32

const (
	Free Kind = 1 + iota
	Reserved
	AcpiReclaimable
	AcpiNvs
	Bad
)

var (
	// ErrUnsupportedMemoryKind is the value Read panics with on an
	// out-of-range memory-map kind; an unrecognized kind at boot is
	// fatal, not a condition a caller can recover from and continue.
	ErrUnsupportedMemoryKind = errors.New("memlayout: unsupported memory kind")
	// ErrMemoryLayoutInvalid is the value Validate panics with when
	// required is not covered by free memory; the init sequence cannot
	// proceed to build a heap or paging context over unvalidated memory.
	ErrMemoryLayoutInvalid = errors.New("memlayout: kernel footprint is not covered by free memory")
)

// Reader abstracts physical-memory reads so the fixed BIOS addresses
// (0x500, 0x508) can be test-doubled instead of dereferenced directly;
// the donor kernel's own Phys_init takes its page count from
// runtime.Get_phys() rather than reading memory itself, which is the
// precedent for this seam.
type Reader interface {
	ReadUint64(addr uint64) (uint64, error)
}

// MemoryEntry is one decoded BIOS memory-map record: a base/length pair
// and a kind read from the low 32 bits of the record's third word.
type MemoryEntry struct {
	Base   uint64
	Length uint64
	Kind   Kind
}

// MemoryLayout is the fixed-capacity sequence of entries read from the
// firmware-provided memory map.
type MemoryLayout struct {
	entries []MemoryEntry
}

// Read constructs a MemoryLayout by reading a u64 entry count at
// countAddr, then that many 3-word records starting at entriesAddr.
func Read(r Reader, countAddr, entriesAddr uint64, capacity int) (*MemoryLayout, error) {
	count, err := r.ReadUint64(countAddr)
	if err != nil {
		return nil, err
	}
	if count > uint64(capacity) {
		return nil, collections.ErrListFull
	}

	layout := &MemoryLayout{entries: make([]MemoryEntry, 0, count)}
	for i := uint64(0); i < count; i++ {
		recordAddr := entriesAddr + i*24
		base, err := r.ReadUint64(recordAddr)
		if err != nil {
			return nil, err
		}
		length, err := r.ReadUint64(recordAddr + 8)
		if err != nil {
			return nil, err
		}
		flagsKind, err := r.ReadUint64(recordAddr + 16)
		if err != nil {
			return nil, err
		}
		kind := Kind(uint32(flagsKind))
		if kind < Free || kind > Bad {
			// Unexpected memory-map kinds at boot are fatal: the firmware
			// map is corrupt or this code doesn't understand it, and
			// either way there is no safe way to keep booting.
			panic(fmt.Errorf("%w: %d", ErrUnsupportedMemoryKind, uint32(flagsKind)))
		}
		layout.entries = append(layout.entries, MemoryEntry{Base: base, Length: length, Kind: kind})
	}
	return layout, nil
}

// Entries returns the decoded memory-map records.
func (l *MemoryLayout) Entries() []MemoryEntry {
	return l.entries
}

// AsFreeIntervalList projects the Free entries into an interval list.
func (l *MemoryLayout) AsFreeIntervalList(capacity int) *collections.IntervalList {
	out := collections.NewIntervalList(capacity)
	for _, e := range l.entries {
		if e.Kind != Free {
			continue
		}
		// Push cannot fail here: capacity is sized by the caller to be
		// at least as large as the number of entries being projected.
		_ = out.Push(collections.Interval{Start: e.Base, Length: e.Length})
	}
	return out
}

// Validate panics with ErrMemoryLayoutInvalid unless required is covered
// by the free regions of this layout. This is the exact boot-time check
// the kernel's init sequence runs before touching any heap: a failure
// here is fatal, goes through the panic handler, and must abort before
// the slab allocator or paging context are constructed — it is not a
// recoverable error a caller could swallow and keep booting with an
// unvalidated heap.
func (l *MemoryLayout) Validate(required *collections.IntervalList) {
	free := l.AsFreeIntervalList(collections.DefaultIntervalListCapacity)
	if !required.IsCoveredBy(free) {
		panic(ErrMemoryLayoutInvalid)
	}
}
