//go:build linux

package linux

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// MMIO implements [hal.Registers] over mapped device memory.
//
// 32-bit accesses use sync/atomic, which the compiler never merges or elides.
// 8- and 16-bit accesses go through non-inlined helpers so each call is one
// load or store of that width.
type MMIO struct {
	base unsafe.Pointer
	size uintptr
}

// NewMMIO returns register access over size bytes at base. base must stay
// mapped for the lifetime of the MMIO.
func NewMMIO(base unsafe.Pointer, size uintptr) *MMIO {
	return &MMIO{base: base, size: size}
}

func (r *MMIO) at(offset, width uintptr) unsafe.Pointer {
	if offset%width != 0 || offset+width > r.size {
		panic(fmt.Sprintf("linux: %d-bit register access at %#x outside window", width*8, offset))
	}
	return unsafe.Add(r.base, offset)
}

// Read8 implements hal.Registers.
func (r *MMIO) Read8(offset uintptr) uint8 { return load8((*uint8)(r.at(offset, 1))) }

// Read16 implements hal.Registers.
func (r *MMIO) Read16(offset uintptr) uint16 { return load16((*uint16)(r.at(offset, 2))) }

// Read32 implements hal.Registers.
func (r *MMIO) Read32(offset uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(r.at(offset, 4)))
}

// Write8 implements hal.Registers.
func (r *MMIO) Write8(offset uintptr, value uint8) { store8((*uint8)(r.at(offset, 1)), value) }

// Write16 implements hal.Registers.
func (r *MMIO) Write16(offset uintptr, value uint16) { store16((*uint16)(r.at(offset, 2)), value) }

// Write32 implements hal.Registers.
func (r *MMIO) Write32(offset uintptr, value uint32) {
	atomic.StoreUint32((*uint32)(r.at(offset, 4)), value)
}

//go:noinline
func load8(p *uint8) uint8 { return *p }

//go:noinline
func load16(p *uint16) uint16 { return *p }

//go:noinline
func store8(p *uint8, v uint8) { *p = v }

//go:noinline
func store16(p *uint16, v uint16) { *p = v }
