package paging

import "config"

// Bit positions shared by PML4E/PDPTE/PDE/PTE, per the x86-64
// paging-structure encoding.
const (
	bitPresent  = 0
	bitWrite    = 1
	bitUser     = 2
	bitPWT      = 3
	bitPCD      = 4
	bitAccessed = 5
	bitDirty    = 6 // PTE only
	bitXD       = 63
)

// setBits packs val into bits [start, end) of v, matching the donor
// source's set_bits helper.
func setBits(v uint64, start, end uint, val uint64) uint64 {
	width := end - start
	mask := (uint64(1)<<width - 1) << start
	return (v &^ mask) | ((val << start) & mask)
}

func bitVal(set bool) uint64 {
	if set {
		return 1
	}
	return 0
}

// directoryFlags configures a PML4E/PDPTE/PDE.
type directoryFlags struct {
	write, user, pwt, pcd, accessed, xd bool
}

// encodeDirectoryEntry builds a directory-level descriptor pointing at
// addr (the next-level directory or table's physical base).
func encodeDirectoryEntry(f directoryFlags, addr uint64) uint64 {
	var e uint64
	e = setBits(e, bitPresent, bitPresent+1, 1)
	e = setBits(e, bitWrite, bitWrite+1, bitVal(f.write))
	e = setBits(e, bitUser, bitUser+1, bitVal(f.user))
	e = setBits(e, bitPWT, bitPWT+1, bitVal(f.pwt))
	e = setBits(e, bitPCD, bitPCD+1, bitVal(f.pcd))
	e = setBits(e, bitAccessed, bitAccessed+1, bitVal(f.accessed))
	e = setBits(e, 12, config.MaxPhyAddr, addr>>12)
	e = setBits(e, bitXD, bitXD+1, bitVal(f.xd))
	return e
}

// tableFlags configures a leaf PTE.
type tableFlags struct {
	write, user, pwt, pcd, accessed, dirty, xd bool
}

// encodeTableEntry builds a leaf descriptor mapping to the physical page
// addr. Bit 7 (PS) is intentionally never set here: Intel gives PS a
// different meaning at the PT level than at PD/PDPT level, and with no
// large pages in scope there is no terminal entry for which setting it
// would be correct.
func encodeTableEntry(f tableFlags, addr uint64) uint64 {
	var e uint64
	e = setBits(e, bitPresent, bitPresent+1, 1)
	e = setBits(e, bitWrite, bitWrite+1, bitVal(f.write))
	e = setBits(e, bitUser, bitUser+1, bitVal(f.user))
	e = setBits(e, bitPWT, bitPWT+1, bitVal(f.pwt))
	e = setBits(e, bitPCD, bitPCD+1, bitVal(f.pcd))
	e = setBits(e, bitAccessed, bitAccessed+1, bitVal(f.accessed))
	e = setBits(e, bitDirty, bitDirty+1, bitVal(f.dirty))
	e = setBits(e, 12, config.MaxPhyAddr, addr>>12)
	e = setBits(e, bitXD, bitXD+1, bitVal(f.xd))
	return e
}

// encodeCR3 packs the PML4 physical base and cacheability flags into a
// CR3 value.
func encodeCR3(writeThrough, cacheDisable bool, pml4Addr uint64) uint64 {
	var v uint64
	v = setBits(v, 3, 4, bitVal(writeThrough))
	v = setBits(v, 4, 5, bitVal(cacheDisable))
	v = setBits(v, 12, config.MaxPhyAddr, pml4Addr>>12)
	return v
}

// parseIndices decomposes a canonical virtual address into its four
// 9-bit PML4/PDPT/PD/PT indices.
func parseIndices(addr uint64) [4]int {
	return [4]int{
		int((addr >> 39) & 0x1ff),
		int((addr >> 30) & 0x1ff),
		int((addr >> 21) & 0x1ff),
		int((addr >> 12) & 0x1ff),
	}
}
