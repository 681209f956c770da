package paging

import (
	"errors"

	"collections"
	"config"
)

var (
	ErrPageAlreadyMapped = errors.New("paging: page already mapped")
	ErrPageNotMapped     = errors.New("paging: page not mapped")
	ErrMisaligned        = errors.New("paging: address is not page-aligned")
)

// FrameAllocator hands out the physical pages backing newly created
// directories and tables. The paging context has no allocator beneath it
// of its own — per the init ordering, it is built after the slab
// allocator, which is what actually implements this interface.
type FrameAllocator interface {
	AllocPage() (uint64, error)
}

// pageNode is the PageDirectory-or-PageTable sum type the tree's
// interior nodes hold, expressed as an interface with exactly two
// implementations rather than simulated inheritance.
type pageNode interface {
	isPageNode()
}

// pageTable is a PT: 512 leaf slots, each either absent or mapping to a
// physical page.
type pageTable struct {
	phyAddr uint64
	entries map[int]uint64
	blob    [512]uint64
}

func (*pageTable) isPageNode() {}

// pageDirectory is a PML4/PDPT/PD node: 512 slots, each either absent or
// pointing at another directory (depths 0-1) or a table (depth 2).
type pageDirectory struct {
	phyAddr  uint64
	children map[int]pageNode
	blob     [512]uint64
}

func (*pageDirectory) isPageNode() {}

// PagingContext is the x86-64 PML4/PDPT/PD/PT tree for one address
// space. Its root is the PML4, and CR3 embeds the root's physical base
// plus cacheability flags.
type PagingContext struct {
	CR3    uint64
	root   *pageDirectory
	frames FrameAllocator
}

// New constructs an empty paging context and then pre-populates it with
// an identity map over every page in identityMap, so that virtual
// address equals physical address throughout those regions once the
// context is installed — required because the slab allocator hands out
// identity-mapped kernel-heap addresses.
func New(frames FrameAllocator, identityMap *collections.IntervalList) (*PagingContext, error) {
	rootAddr, err := frames.AllocPage()
	if err != nil {
		return nil, err
	}
	root := &pageDirectory{phyAddr: rootAddr, children: make(map[int]pageNode)}

	ctx := &PagingContext{
		CR3:    encodeCR3(false, false, rootAddr),
		root:   root,
		frames: frames,
	}

	for i := 0; i < identityMap.Len(); i++ {
		iv := identityMap.At(i)
		start := alignDown(iv.Start)
		end := alignUp(iv.End())
		for addr := start; addr < end; addr += config.PageSize {
			if err := ctx.Insert(addr, addr); err != nil {
				return nil, err
			}
		}
	}
	return ctx, nil
}

func alignDown(addr uint64) uint64 {
	return addr &^ (config.PageSize - 1)
}

func alignUp(addr uint64) uint64 {
	return alignDown(addr+config.PageSize-1)
}

func assertAligned(addr uint64) {
	if addr&(config.PageSize-1) != 0 {
		panic(ErrMisaligned)
	}
}

// Find walks the tree for v, returning the mapped physical address if
// present.
func (ctx *PagingContext) Find(v uint64) (uint64, bool) {
	assertAligned(v)
	idx := parseIndices(v)

	dir := ctx.root
	for depth := 0; depth < 2; depth++ {
		child, ok := dir.children[idx[depth]]
		if !ok {
			return 0, false
		}
		next, ok := child.(*pageDirectory)
		if !ok {
			panic("paging: expected directory node, found table")
		}
		dir = next
	}
	child, ok := dir.children[idx[2]]
	if !ok {
		return 0, false
	}
	table, ok := child.(*pageTable)
	if !ok {
		panic("paging: expected table node, found directory")
	}
	addr, ok := table.entries[idx[3]]
	return addr, ok
}

// Insert maps v to physical page p. Re-inserting an address that already
// resolves is a hard error, catching double-maps rather than silently
// overwriting them.
func (ctx *PagingContext) Insert(v, p uint64) error {
	assertAligned(v)
	assertAligned(p)
	if _, ok := ctx.Find(v); ok {
		return ErrPageAlreadyMapped
	}

	idx := parseIndices(v)
	dir := ctx.root
	for depth := 0; depth < 2; depth++ {
		child, ok := dir.children[idx[depth]]
		if !ok {
			addr, err := ctx.frames.AllocPage()
			if err != nil {
				return err
			}
			newDir := &pageDirectory{phyAddr: addr, children: make(map[int]pageNode)}
			dir.children[idx[depth]] = newDir
			dir.blob[idx[depth]] = encodeDirectoryEntry(directoryFlags{write: true}, addr)
			child = newDir
		}
		dir = child.(*pageDirectory)
	}

	child, ok := dir.children[idx[2]]
	var table *pageTable
	if !ok {
		addr, err := ctx.frames.AllocPage()
		if err != nil {
			return err
		}
		table = &pageTable{phyAddr: addr, entries: make(map[int]uint64)}
		dir.children[idx[2]] = table
		dir.blob[idx[2]] = encodeDirectoryEntry(directoryFlags{write: true}, addr)
	} else {
		table = child.(*pageTable)
	}

	table.entries[idx[3]] = p
	table.blob[idx[3]] = encodeTableEntry(tableFlags{write: true}, p)
	return nil
}

// Remove unmaps v, returning the physical address it held. On the way
// back up the tree, any directory or table that became empty is dropped
// from its parent — lazy contraction that keeps the tree minimal.
func (ctx *PagingContext) Remove(v uint64) (uint64, error) {
	assertAligned(v)
	idx := parseIndices(v)
	return removeAt(ctx.root, idx, 0)
}

func removeAt(dir *pageDirectory, idx [4]int, depth int) (uint64, error) {
	child, ok := dir.children[idx[depth]]
	if !ok {
		return 0, ErrPageNotMapped
	}

	if depth == 2 {
		table, ok := child.(*pageTable)
		if !ok {
			panic("paging: expected table node, found directory")
		}
		addr, present := table.entries[idx[3]]
		if !present {
			return 0, ErrPageNotMapped
		}
		delete(table.entries, idx[3])
		table.blob[idx[3]] = 0
		if len(table.entries) == 0 {
			delete(dir.children, idx[depth])
			dir.blob[idx[depth]] = 0
		}
		return addr, nil
	}

	childDir, ok := child.(*pageDirectory)
	if !ok {
		panic("paging: expected directory node, found table")
	}
	addr, err := removeAt(childDir, idx, depth+1)
	if err != nil {
		return 0, err
	}
	if len(childDir.children) == 0 {
		delete(dir.children, idx[depth])
		dir.blob[idx[depth]] = 0
	}
	return addr, nil
}
