package sim

import (
	"encoding/binary"
	"sync"

	"github.com/ardnew/ehciboot/pci"
)

// configSize is the size of a function's configuration image.
const configSize = 256

// Function describes one PCI function placed on the simulated bus.
type Function struct {
	Bus        uint8  `yaml:"bus"`
	Slot       uint8  `yaml:"slot"`
	Function   uint8  `yaml:"function"`
	VendorID   uint16 `yaml:"vendor"`
	DeviceID   uint16 `yaml:"device"`
	Class      uint8  `yaml:"class"`
	Subclass   uint8  `yaml:"subclass"`
	ProgIF     uint8  `yaml:"prog_if"`
	HeaderType uint8  `yaml:"header_type"`
	BAR0       uint32 `yaml:"bar0"`

	// EHCI, if set, places an EHCI register bank behind BAR0.
	EHCI *EHCI `yaml:"ehci,omitempty"`
}

// Address returns the configuration address of the function.
func (f Function) Address() pci.Address {
	return pci.Address{Bus: f.Bus, Slot: f.Slot, Function: f.Function}
}

// image encodes the function's type-0 configuration header.
func (f Function) image() *[configSize]byte {
	var img [configSize]byte
	binary.LittleEndian.PutUint16(img[pci.OffsetVendorID:], f.VendorID)
	binary.LittleEndian.PutUint16(img[pci.OffsetDeviceID:], f.DeviceID)
	img[pci.OffsetProgIF] = f.ProgIF
	img[pci.OffsetSubclass] = f.Subclass
	img[pci.OffsetClass] = f.Class
	img[pci.OffsetHeaderType] = f.HeaderType
	binary.LittleEndian.PutUint32(img[pci.OffsetBAR0:], f.BAR0)
	return &img
}

type readKey struct {
	addr   pci.Address
	offset uint8
}

// ConfigSpace simulates configuration mechanism #1 behind the CONFIG_ADDRESS
// and CONFIG_DATA ports. It implements [github.com/ardnew/ehciboot/hal.PortIO].
//
// Every data-port read is counted per function and per dword offset, so
// tests can assert exactly which functions a scan touched.
type ConfigSpace struct {
	mu        sync.Mutex
	functions map[pci.Address]*[configSize]byte
	latch     uint32
	reads     map[readKey]int
	perFunc   map[pci.Address]int
	portOps   int
}

// NewConfigSpace returns a bus populated with fns.
func NewConfigSpace(fns ...Function) *ConfigSpace {
	c := &ConfigSpace{
		functions: make(map[pci.Address]*[configSize]byte),
		reads:     make(map[readKey]int),
		perFunc:   make(map[pci.Address]int),
	}
	for _, f := range fns {
		c.Add(f)
	}
	return c
}

// Add places f on the bus, replacing any function at the same address.
func (c *ConfigSpace) Add(f Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions[f.Address()] = f.image()
}

// Out32 implements hal.PortIO. Writes to CONFIG_ADDRESS set the latch. Writes
// to CONFIG_DATA update the selected dword of a present function.
func (c *ConfigSpace) Out32(port uint16, value uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portOps++

	switch port {
	case pci.ConfigAddressPort:
		c.latch = value
	case pci.ConfigDataPort:
		addr, offset, ok := pci.DecodeConfigAddress(c.latch)
		if !ok {
			return
		}
		if img, present := c.functions[addr]; present {
			binary.LittleEndian.PutUint32(img[offset:], value)
		}
	}
}

// In32 implements hal.PortIO. Reads of CONFIG_DATA return the selected dword,
// or all ones when the function is absent or the enable bit is clear.
func (c *ConfigSpace) In32(port uint16) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portOps++

	switch port {
	case pci.ConfigAddressPort:
		return c.latch
	case pci.ConfigDataPort:
		addr, offset, ok := pci.DecodeConfigAddress(c.latch)
		if !ok {
			return 0xFFFF_FFFF
		}
		c.reads[readKey{addr, offset}]++
		c.perFunc[addr]++
		img, present := c.functions[addr]
		if !present {
			return 0xFFFF_FFFF
		}
		return binary.LittleEndian.Uint32(img[offset:])
	default:
		return 0xFFFF_FFFF
	}
}

// Reads returns how many data-port reads selected the function at addr.
func (c *ConfigSpace) Reads(addr pci.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perFunc[addr]
}

// OffsetReads returns how many data-port reads selected the dword containing
// offset of the function at addr.
func (c *ConfigSpace) OffsetReads(addr pci.Address, offset uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[readKey{addr, offset & 0xFC}]
}

// TouchedFunctions returns how many distinct functions were read at least once.
func (c *ConfigSpace) TouchedFunctions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.perFunc)
}

// PortOps returns the total number of port accesses.
func (c *ConfigSpace) PortOps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.portOps
}

// ResetCounters clears all access counters.
func (c *ConfigSpace) ResetCounters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = make(map[readKey]int)
	c.perFunc = make(map[pci.Address]int)
	c.portOps = 0
}
