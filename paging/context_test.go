package paging

import (
	"testing"

	"collections"
	"config"
)

// sequentialFrames hands out successive page-aligned addresses, standing
// in for the slab allocator during tests.
type sequentialFrames struct {
	next uint64
}

func (s *sequentialFrames) AllocPage() (uint64, error) {
	addr := s.next
	s.next += config.PageSize
	return addr, nil
}

func newTestContext(t *testing.T) *PagingContext {
	t.Helper()
	ctx, err := New(&sequentialFrames{next: 0x10000}, collections.NewIntervalList(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctx
}

func TestPagingInsertFindRemove(t *testing.T) {
	ctx := newTestContext(t)

	v1 := uint64(4) * config.PageSize
	p1 := uint64(5) * config.PageSize
	v2 := uint64(2) * config.PageSize
	p2 := uint64(6) * config.PageSize

	if err := ctx.Insert(v1, p1); err != nil {
		t.Fatalf("insert v1: %v", err)
	}
	if err := ctx.Insert(v2, p2); err != nil {
		t.Fatalf("insert v2: %v", err)
	}

	if got, ok := ctx.Find(v1); !ok || got != p1 {
		t.Fatalf("find v1: want (%#x,true), got (%#x,%v)", p1, got, ok)
	}
	if got, ok := ctx.Find(v2); !ok || got != p2 {
		t.Fatalf("find v2: want (%#x,true), got (%#x,%v)", p2, got, ok)
	}

	removed, err := ctx.Remove(v1)
	if err != nil {
		t.Fatalf("remove v1: %v", err)
	}
	if removed != p1 {
		t.Fatalf("remove v1: want %#x, got %#x", p1, removed)
	}

	if _, ok := ctx.Find(v1); ok {
		t.Fatal("v1 should no longer be mapped")
	}
	if got, ok := ctx.Find(v2); !ok || got != p2 {
		t.Fatalf("v2 should remain mapped: got (%#x,%v)", got, ok)
	}
}

func TestPagingDoubleInsertFails(t *testing.T) {
	ctx := newTestContext(t)
	v := uint64(1) * config.PageSize
	if err := ctx.Insert(v, v); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Insert(v, v); err != ErrPageAlreadyMapped {
		t.Fatalf("want ErrPageAlreadyMapped, got %v", err)
	}
}

func TestPagingRemoveUnmappedFails(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := ctx.Remove(config.PageSize); err != ErrPageNotMapped {
		t.Fatalf("want ErrPageNotMapped, got %v", err)
	}
}

func TestPagingContractsEmptyNodes(t *testing.T) {
	ctx := newTestContext(t)
	v := uint64(7) * config.PageSize
	if err := ctx.Insert(v, v); err != nil {
		t.Fatal(err)
	}
	idx := parseIndices(v)
	if _, err := ctx.Remove(v); err != nil {
		t.Fatal(err)
	}
	// Every level down to the PML4's own slot for this path should have
	// been dropped once its last child disappeared.
	if _, ok := ctx.root.children[idx[0]]; ok {
		t.Fatal("expected PDPT node to be contracted away")
	}
}

func TestIdentityMapCoversInterval(t *testing.T) {
	identity, err := collections.ParseIntervalList("0x0-0x2000", 4)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := New(&sequentialFrames{next: 0x100000}, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for addr := uint64(0); addr < 0x2000; addr += config.PageSize {
		got, ok := ctx.Find(addr)
		if !ok || got != addr {
			t.Fatalf("identity map at %#x: want (%#x,true), got (%#x,%v)", addr, addr, got, ok)
		}
	}
}
