// Command mimir-sim drives the memory-management core against simulated
// physical memory: an anonymous mmap stands in for the BIOS-reported
// RAM, and a synthetic E820-style map is written into it before handing
// the whole thing to kernel.Init. It exists to exercise the init
// sequence end to end outside of a real boot environment.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"log/slog"

	"golang.org/x/sys/unix"

	"config"
	"debugcon"
	"kernel"
)

// memReader implements memlayout.Reader over a raw mmap'd byte slice,
// the simulator's stand-in for dereferencing physical addresses
// directly the way boot code would.
type memReader struct {
	mem []byte
}

func (r *memReader) ReadUint64(addr uint64) (uint64, error) {
	if addr+8 > uint64(len(r.mem)) {
		return 0, fmt.Errorf("mimir-sim: address 0x%x outside simulated memory", addr)
	}
	return binary.LittleEndian.Uint64(r.mem[addr : addr+8]), nil
}

func (r *memReader) writeUint64(addr, v uint64) {
	binary.LittleEndian.PutUint64(r.mem[addr:addr+8], v)
}

// writeE820 populates a single Free record spanning the whole kernel
// heap region, the minimum map that lets the validator succeed.
func writeE820(r *memReader) {
	r.writeUint64(config.BIOSMemoryMapCountAddr, 1)
	entry := uint64(config.BIOSMemoryMapEntriesAddr)
	r.writeUint64(entry, 0)
	r.writeUint64(entry+8, config.KernelHeapEnd)
	r.writeUint64(entry+16, 1) // memlayout.Free
}

func main() {
	size := int(config.KernelHeapEnd)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		log.Fatalf("mmap simulated physical memory: %v", err)
	}
	defer func() {
		if err := unix.Munmap(mem); err != nil {
			log.Printf("munmap: %v", err)
		}
	}()

	r := &memReader{mem: mem}
	writeE820(r)

	screen := debugcon.NewScreen(nil)
	logger := debugcon.NewFormattedLogger(screen)
	debugcon.SetDefault(logger)

	k, err := kernel.Init(kernel.Options{
		BIOSMemoryMap: r,
		Log:           logger,
		WriteCR3: func(cr3 uint64) {
			logger.Info("would load CR3", slog.Uint64("cr3", cr3))
		},
		LoadIDT: func(d kernel.IDTDescriptor) {
			logger.Info("would lidt", slog.Uint64("base", d.Base), slog.Int("limit", int(d.Limit)))
		},
	})
	if err != nil {
		log.Fatalf("kernel init: %v", err)
	}

	fmt.Println("mimir-sim: init sequence completed")
	for _, s := range k.Allocator.Stats() {
		fmt.Printf("  class %6d bytes: %4d allocated, %4d free\n", s.CellSize, s.Allocated, s.Free)
	}
}
