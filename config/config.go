// Package config holds the compile-time constants the memory-management
// core is built against. There is no runtime configuration layer here —
// the donor kernel has none to borrow, and these values are genuinely
// fixed at build time for a freestanding target.
package config

const (
	// PageSize is the native x86-64 page granule this kernel manages.
	PageSize = 4096
	// PageSizeLog is log2(PageSize).
	PageSizeLog = 12

	// MaxPhyAddr is the hardware-reported physical-address width this
	// kernel assumes until it queries CPUID 0x80000008 at boot.
	MaxPhyAddr = 52

	// KernelHeapStart and KernelHeapEnd bound the identity-mapped region
	// the slab allocator carves slabs from. Both are page-aligned.
	KernelHeapStart = 0x0010_0000
	KernelHeapEnd   = 0x0100_0000

	// BIOSMemoryMapCountAddr holds a u64 entry count for the BIOS E820
	// style memory map; BIOSMemoryMapEntriesAddr is the start of the
	// entries themselves.
	BIOSMemoryMapCountAddr   = 0x500
	BIOSMemoryMapEntriesAddr = 0x508

	// VGABufferAddr is the fixed physical address of the 80x25 VGA text
	// buffer the debug collaborator writes through.
	VGABufferAddr = 0xB8000
	VGAColumns    = 80
	VGARows       = 25
)

// UsedKernelMemory is the ASCII interval list of regions the kernel image
// statically occupies; the memory-layout validator checks this is free
// according to the BIOS map before anything else runs.
const UsedKernelMemory = "0x100000-0x400000"

// IdentityMapMemory is the ASCII interval list of regions the initial
// paging context must identity-map before the kernel heap can be touched.
const IdentityMapMemory = "0x0-0x100000,0x100000-0x1000000"
