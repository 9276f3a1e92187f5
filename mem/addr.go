package mem

import "fmt"

// PageShift is log2 of [PageSize].
const PageShift = 12

// PageSize is the size of a frame or page in bytes.
const PageSize = 1 << PageShift

// PhysAddr is a physical memory address.
type PhysAddr uint64

// VirtAddr is a virtual memory address.
type VirtAddr uint64

// String formats the address in hex.
func (a PhysAddr) String() string { return fmt.Sprintf("%#x", uint64(a)) }

// String formats the address in hex.
func (a VirtAddr) String() string { return fmt.Sprintf("%#x", uint64(a)) }

// PageOffset returns the byte offset of a within its frame.
func (a PhysAddr) PageOffset() uint64 { return uint64(a) & (PageSize - 1) }

// PageOffset returns the byte offset of a within its page.
func (a VirtAddr) PageOffset() uint64 { return uint64(a) & (PageSize - 1) }

// Frame is a 4 KiB physical frame, identified by its start address.
type Frame PhysAddr

// FrameContaining returns the frame that contains addr. Unaligned addresses
// are rounded down.
func FrameContaining(addr PhysAddr) Frame {
	return Frame(addr &^ (PageSize - 1))
}

// Address returns the start address of the frame.
func (f Frame) Address() PhysAddr { return PhysAddr(f) }

// Number returns the frame index (address >> PageShift).
func (f Frame) Number() uint64 { return uint64(f) >> PageShift }

// String formats the frame start address in hex.
func (f Frame) String() string { return PhysAddr(f).String() }

// Page is a 4 KiB virtual page, identified by its start address.
type Page VirtAddr

// PageContaining returns the page that contains addr. Unaligned addresses are
// rounded down.
func PageContaining(addr VirtAddr) Page {
	return Page(addr &^ (PageSize - 1))
}

// Address returns the start address of the page.
func (p Page) Address() VirtAddr { return VirtAddr(p) }

// String formats the page start address in hex.
func (p Page) String() string { return VirtAddr(p).String() }
