package pci

import "github.com/ardnew/ehciboot/hal"

// ConfigSpace reads configuration space one dword at a time.
type ConfigSpace interface {
	// ReadConfig32 returns the dword at offset&0xFC of the function at addr.
	// Absent functions read as all ones.
	ReadConfig32(addr Address, offset uint8) uint32
}

// PortConfig implements [ConfigSpace] with configuration mechanism #1: the
// selector is written to CONFIG_ADDRESS, then the dword is read from
// CONFIG_DATA.
//
// The port pair is shared machine state with no locking. Only one caller may
// use it, and only before interrupts are enabled.
type PortConfig struct {
	io hal.PortIO
}

// NewPortConfig returns a ConfigSpace driving io.
func NewPortConfig(io hal.PortIO) *PortConfig {
	return &PortConfig{io: io}
}

// ReadConfig32 implements ConfigSpace.
func (c *PortConfig) ReadConfig32(addr Address, offset uint8) uint32 {
	c.io.Out32(ConfigAddressPort, ConfigAddress(addr, offset))
	return c.io.In32(ConfigDataPort)
}

// ReadConfig16 returns the word at offset, taken from its containing dword.
func ReadConfig16(cs ConfigSpace, addr Address, offset uint8) uint16 {
	dword := cs.ReadConfig32(addr, offset&0xFC)
	return uint16(dword >> ((offset & 2) * 8))
}

// ReadConfig8 returns the byte at offset, taken from its containing dword.
func ReadConfig8(cs ConfigSpace, addr Address, offset uint8) uint8 {
	dword := cs.ReadConfig32(addr, offset&0xFC)
	return uint8(dword >> ((offset & 3) * 8))
}
