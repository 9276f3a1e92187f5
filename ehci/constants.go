package ehci

import "fmt"

// Capability register offsets from the register window base.
const (
	RegCapLength    = 0x00 // CAPLENGTH, 8-bit
	RegHCIVersion   = 0x02 // HCIVERSION, 16-bit (BCD)
	RegStructParams = 0x04 // HCSPARAMS, 32-bit
	RegCapParams    = 0x08 // HCCPARAMS, 32-bit
)

// RegUSBCmd is the USBCMD offset from the register window base. It assumes
// the operational registers begin at 0x20, which holds for the controllers
// this package drives.
const RegUSBCmd = 0x20

// USBCMD bits.
const (
	CmdRunStop = 1 << 0 // RS
	CmdReset   = 1 << 1 // HCRESET: set by software, cleared by the controller
)

// StandardCapLength is the CAPLENGTH implied by [RegUSBCmd].
const StandardCapLength = 0x20

// State is the bring-up state of a controller.
type State uint8

// Controller states, in the only order they may be entered.
const (
	StateDiscovered    State = iota // Found on the bus, not yet mapped
	StateMapped                     // Register window attached
	StateProbed                     // Capability registers read
	StateResetIssued                // HCRESET written, waiting for it to clear
	StateResetComplete              // HCRESET read back clear
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateMapped:
		return "Mapped"
	case StateProbed:
		return "Probed"
	case StateResetIssued:
		return "ResetIssued"
	case StateResetComplete:
		return "ResetComplete"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}
