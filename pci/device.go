package pci

import "fmt"

// Device describes a function found during enumeration.
type Device struct {
	Address  Address
	VendorID uint16
	DeviceID uint16
	Class    uint8
	Subclass uint8
	ProgIF   uint8
	BAR0     uint32 // Raw BAR0 value, flag bits included
}

// Signature returns the class triple of the device.
func (d Device) Signature() Signature {
	return Signature{Class: d.Class, Subclass: d.Subclass, ProgIF: d.ProgIF}
}

// IsIO reports whether BAR0 decodes I/O space rather than memory.
func (d Device) IsIO() bool {
	return d.BAR0&barIOSpace != 0
}

// Is64Bit reports whether BAR0 is the low half of a 64-bit memory BAR.
func (d Device) Is64Bit() bool {
	return !d.IsIO() && d.BAR0&barTypeMask == barType64
}

// Prefetchable reports whether BAR0 is a prefetchable memory BAR.
func (d Device) Prefetchable() bool {
	return !d.IsIO() && d.BAR0&barPrefetch != 0
}

// MemoryBase returns the physical base address decoded by BAR0, with the flag
// bits cleared. Only the low 32 bits of a 64-bit BAR are covered.
func (d Device) MemoryBase() uint64 {
	if d.IsIO() {
		return uint64(d.BAR0 & barIOMask)
	}
	return uint64(d.BAR0 & barMemMask)
}

// String formats the device for diagnostics.
func (d Device) String() string {
	return fmt.Sprintf("%s [%04x:%04x] class %s bar0 0x%08x",
		d.Address, d.VendorID, d.DeviceID, d.Signature(), d.BAR0)
}
