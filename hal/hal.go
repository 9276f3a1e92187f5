package hal

import "github.com/ardnew/ehciboot/mem"

// PortIO is 32-bit access to the x86 I/O port space.
//
// The PCI configuration mechanism uses one shared address/data port pair.
// PortIO implementations have no locking of their own. The boot sequence owns
// the port pair exclusively until interrupts are enabled.
type PortIO interface {
	// In32 reads a doubleword from port.
	In32(port uint16) uint32

	// Out32 writes a doubleword to port.
	Out32(port uint16, value uint32)
}

// Registers is width-exact access to a memory-mapped register window.
//
// Every call is one device access of exactly the stated width at the given
// byte offset from the window base. Implementations must not cache, merge,
// split, reorder, or elide accesses. A device register read at the wrong width
// is undefined at the hardware level.
type Registers interface {
	Read8(offset uintptr) uint8
	Read16(offset uintptr) uint16
	Read32(offset uintptr) uint32

	Write8(offset uintptr, value uint8)
	Write16(offset uintptr, value uint16)
	Write32(offset uintptr, value uint32)
}

// PhysMemory is quadword access to physical memory, used to read and write
// page-table entries.
type PhysMemory interface {
	Read64(addr mem.PhysAddr) uint64
	Write64(addr mem.PhysAddr, value uint64)
}

// Width is the size of a register access in bits.
type Width uint8

// Register access widths.
const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
)

// String returns the width as e.g. "32-bit".
func (w Width) String() string {
	switch w {
	case Width8:
		return "8-bit"
	case Width16:
		return "16-bit"
	case Width32:
		return "32-bit"
	default:
		return "invalid"
	}
}
