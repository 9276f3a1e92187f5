package pci

import "fmt"

// Configuration mechanism #1 I/O ports.
const (
	ConfigAddressPort uint16 = 0x0CF8 // CONFIG_ADDRESS (W)
	ConfigDataPort    uint16 = 0x0CFC // CONFIG_DATA (RW)
)

// configEnable is the enable bit of a CONFIG_ADDRESS value.
const configEnable = 0x8000_0000

// Configuration space header offsets (type 0).
const (
	OffsetVendorID   = 0x00 // 16-bit
	OffsetDeviceID   = 0x02 // 16-bit
	OffsetCommand    = 0x04 // 16-bit
	OffsetStatus     = 0x06 // 16-bit
	OffsetRevision   = 0x08 // 8-bit
	OffsetProgIF     = 0x09 // 8-bit
	OffsetSubclass   = 0x0A // 8-bit
	OffsetClass      = 0x0B // 8-bit
	OffsetHeaderType = 0x0E // 8-bit
	OffsetBAR0       = 0x10 // 32-bit
)

// Bus geometry.
const (
	MaxBus        = 256
	MaxSlot       = 32
	MaxFunction   = 8
	InvalidVendor = 0xFFFF // Vendor ID read back from an absent function
)

// headerMultiFunction is the header-type bit marking a multi-function device.
const headerMultiFunction = 0x80

// BAR0 flag bits.
const (
	barIOSpace  = 0x1 // bit 0: I/O space BAR
	barMemMask  = ^uint32(0xF)
	barIOMask   = ^uint32(0x3)
	barTypeMask = 0x6 // bits 2:1: memory type
	barType64   = 0x4
	barPrefetch = 0x8
)

// Class codes used by the boot core.
const (
	ClassSerialBus = 0x0C // Serial bus controller
	SubclassUSB    = 0x03 // USB controller
	ProgIFUHCI     = 0x00
	ProgIFOHCI     = 0x10
	ProgIFEHCI     = 0x20 // USB2 enhanced host controller
	ProgIFXHCI     = 0x30
)

// Signature is the class triple that identifies a kind of function.
type Signature struct {
	Class    uint8
	Subclass uint8
	ProgIF   uint8
}

// EHCISignature matches a USB2 EHCI host controller.
var EHCISignature = Signature{
	Class:    ClassSerialBus,
	Subclass: SubclassUSB,
	ProgIF:   ProgIFEHCI,
}

// String formats the signature as class.subclass.progif in hex.
func (s Signature) String() string {
	return fmt.Sprintf("%02x.%02x.%02x", s.Class, s.Subclass, s.ProgIF)
}
