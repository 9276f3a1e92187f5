package ehci

import "fmt"

// Capabilities holds the capability registers read by [Controller.Probe].
type Capabilities struct {
	CapLength    uint8
	Version      uint16
	StructParams uint32
	CapParams    uint32
}

// Ports returns N_PORTS, the number of root hub ports.
func (c Capabilities) Ports() int {
	return int(c.StructParams & 0xF)
}

// CompanionControllers returns N_CC, the number of companion controllers.
func (c Capabilities) CompanionControllers() int {
	return int(c.StructParams>>12) & 0xF
}

// Addressing64 reports whether the controller uses 64-bit data structures.
func (c Capabilities) Addressing64() bool {
	return c.CapParams&0x1 != 0
}

// VersionString formats the BCD interface version, e.g. "1.00".
func (c Capabilities) VersionString() string {
	return fmt.Sprintf("%x.%02x", c.Version>>8, c.Version&0xFF)
}

// String formats the capabilities for diagnostics.
func (c Capabilities) String() string {
	return fmt.Sprintf("caplength %#x version %s hcsparams 0x%08x hccparams 0x%08x",
		c.CapLength, c.VersionString(), c.StructParams, c.CapParams)
}
