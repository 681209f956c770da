package memlayout

import (
	"errors"
	"testing"

	"collections"
)

// fakeBIOSMap implements Reader over an in-memory table, standing in
// for the fixed physical addresses 0x500/0x508 a real boot collaborator
// would populate.
type fakeBIOSMap struct {
	mem map[uint64]uint64
}

func newFakeBIOSMap() *fakeBIOSMap {
	return &fakeBIOSMap{mem: make(map[uint64]uint64)}
}

func (f *fakeBIOSMap) set(addr, value uint64) {
	f.mem[addr] = value
}

func (f *fakeBIOSMap) ReadUint64(addr uint64) (uint64, error) {
	v, ok := f.mem[addr]
	if !ok {
		return 0, errors.New("fakeBIOSMap: unmapped address")
	}
	return v, nil
}

// buildLayout lays out six records at entriesAddr=0x508 the way a BIOS map
// would, with exactly two Free entries, matching the original donor
// test's fixture shape.
func buildLayout(t *testing.T) *fakeBIOSMap {
	t.Helper()
	f := newFakeBIOSMap()
	f.set(0x500, 6)

	type rec struct {
		base, length, kind uint64
	}
	records := []rec{
		{0x0, 0x1000, uint64(Free)},
		{0x1000, 0x1000, uint64(Reserved)},
		{0x2000, 0x1000, uint64(AcpiReclaimable)},
		{0x3000, 0x1000, uint64(AcpiNvs)},
		{0x4000, 0x1000, uint64(Bad)},
		{0x100000, 0x400000, uint64(Free)},
	}
	for i, r := range records {
		addr := 0x508 + uint64(i)*24
		f.set(addr, r.base)
		f.set(addr+8, r.length)
		f.set(addr+16, r.kind)
	}
	return f
}

func TestReadAndFreeIntervalList(t *testing.T) {
	f := buildLayout(t)
	layout, err := Read(f, 0x500, 0x508, 16)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(layout.Entries()) != 6 {
		t.Fatalf("want 6 entries, got %d", len(layout.Entries()))
	}
	free := layout.AsFreeIntervalList(16)
	if free.Len() != 2 {
		t.Fatalf("want 2 free intervals, got %d", free.Len())
	}
}

func TestValidateCoveredLayout(t *testing.T) {
	f := buildLayout(t)
	layout, err := Read(f, 0x500, 0x508, 16)
	if err != nil {
		t.Fatal(err)
	}
	required := collections.NewIntervalList(4)
	required.Push(collections.Interval{Start: 0x100000, Length: 0x1000})
	layout.Validate(required) // must not panic
}

func TestValidateUncoveredLayoutPanics(t *testing.T) {
	f := buildLayout(t)
	layout, err := Read(f, 0x500, 0x508, 16)
	if err != nil {
		t.Fatal(err)
	}
	required := collections.NewIntervalList(4)
	required.Push(collections.Interval{Start: 0x1000, Length: 0x1000}) // Reserved, not Free

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("want Validate to panic on an uncovered layout")
		}
		if !errors.Is(r.(error), ErrMemoryLayoutInvalid) {
			t.Fatalf("want ErrMemoryLayoutInvalid, got %v", r)
		}
	}()
	layout.Validate(required)
}

func TestReadUnsupportedKindPanics(t *testing.T) {
	f := newFakeBIOSMap()
	f.set(0x500, 1)
	f.set(0x508, 0x0)
	f.set(0x508+8, 0x1000)
	f.set(0x508+16, 99) // not in 1..5

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("want Read to panic on an unsupported memory kind")
		}
		if !errors.Is(r.(error), ErrUnsupportedMemoryKind) {
			t.Fatalf("want ErrUnsupportedMemoryKind, got %v", r)
		}
	}()
	Read(f, 0x500, 0x508, 16)
}
