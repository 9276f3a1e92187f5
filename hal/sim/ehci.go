package sim

import "github.com/ardnew/ehciboot/hal"

// EHCI capability and operational register layout.
const (
	ehciCapLength  = 0x00 // 8-bit
	ehciVersion    = 0x02 // 16-bit
	ehciStructPara = 0x04 // 32-bit
	ehciCapParams  = 0x08 // 32-bit
	ehciUSBCmd     = 0x20 // 32-bit, operational base when CAPLENGTH is 0x20
	ehciUSBSts     = 0x24 // 32-bit

	ehciCmdReset  = 1 << 1 // HCRESET
	ehciStsHalted = 1 << 12
)

// EHCI describes the capability registers and reset behavior of a simulated
// EHCI controller.
type EHCI struct {
	CapLength    uint8  `yaml:"caplength"`
	Version      uint16 `yaml:"hciversion"`
	StructParams uint32 `yaml:"hcsparams"`
	CapParams    uint32 `yaml:"hccparams"`

	// ResetPolls is how many USBCMD reads still show HCRESET set after it is
	// written. A negative value keeps the bit set forever.
	ResetPolls int `yaml:"reset_polls"`
}

// DefaultEHCI returns register values typical of an ICH9 EHCI function with
// six root ports.
func DefaultEHCI() EHCI {
	return EHCI{
		CapLength:    0x20,
		Version:      0x0100,
		StructParams: 0x0010_3206,
		CapParams:    0x0000_6871,
		ResetPolls:   3,
	}
}

// NewEHCIRegisters returns a register bank loaded with cfg's capability
// registers. Writing HCRESET to USBCMD sets the bit. The bit then clears by
// itself after cfg.ResetPolls reads of USBCMD, and the controller reports
// halted.
func NewEHCIRegisters(cfg EHCI) *Registers {
	r := NewRegisters()
	r.Poke(ehciCapLength, hal.Width8, uint32(cfg.CapLength))
	r.Poke(ehciVersion, hal.Width16, uint32(cfg.Version))
	r.Poke(ehciStructPara, hal.Width32, cfg.StructParams)
	r.Poke(ehciCapParams, hal.Width32, cfg.CapParams)
	r.Poke(ehciUSBSts, hal.Width32, ehciStsHalted)

	remaining := 0
	r.OnWrite = func(r *Registers, offset uintptr, width hal.Width, value uint32) {
		if offset == ehciUSBCmd && value&ehciCmdReset != 0 {
			remaining = cfg.ResetPolls
		}
	}
	r.OnRead = func(r *Registers, offset uintptr, width hal.Width) {
		if offset != ehciUSBCmd {
			return
		}
		cmd := r.Peek(ehciUSBCmd, hal.Width32)
		if cmd&ehciCmdReset == 0 || remaining < 0 {
			return
		}
		if remaining > 0 {
			remaining--
			return
		}
		r.Poke(ehciUSBCmd, hal.Width32, cmd&^ehciCmdReset)
	}
	return r
}
