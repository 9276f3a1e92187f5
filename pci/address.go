package pci

import "fmt"

// Address identifies a function in configuration space.
type Address struct {
	Bus      uint8
	Slot     uint8 // 0-31
	Function uint8 // 0-7
}

// String formats the address as bus:slot.function, as lspci does.
func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x.%x", a.Bus, a.Slot, a.Function)
}

// Valid reports whether slot and function are in range.
func (a Address) Valid() bool {
	return a.Slot < MaxSlot && a.Function < MaxFunction
}

// ConfigAddress returns the CONFIG_ADDRESS value that selects the dword
// containing offset. The low two offset bits are discarded.
func ConfigAddress(a Address, offset uint8) uint32 {
	return configEnable |
		uint32(a.Bus)<<16 |
		uint32(a.Slot&0x1F)<<11 |
		uint32(a.Function&0x07)<<8 |
		uint32(offset&0xFC)
}

// DecodeConfigAddress splits a CONFIG_ADDRESS value into its parts. ok is
// false when the enable bit is clear.
func DecodeConfigAddress(v uint32) (a Address, offset uint8, ok bool) {
	a = Address{
		Bus:      uint8(v >> 16),
		Slot:     uint8(v>>11) & 0x1F,
		Function: uint8(v>>8) & 0x07,
	}
	return a, uint8(v) & 0xFC, v&configEnable != 0
}
