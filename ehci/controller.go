package ehci

import (
	"context"
	"fmt"

	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/pci"
	"github.com/ardnew/ehciboot/pkg"
)

// Controller drives one EHCI host controller through bring-up.
//
// Each operation is valid in exactly one state and advances to the next.
// Calling one out of order fails with [pkg.ErrInvalidState] and leaves the
// controller unchanged. A Controller is not safe for concurrent use.
type Controller struct {
	dev   pci.Device
	state State
	base  mem.VirtAddr
	regs  hal.Registers
	caps  Capabilities
	polls uint64
}

// New returns a controller for dev in [StateDiscovered].
func New(dev pci.Device) *Controller {
	return &Controller{dev: dev, state: StateDiscovered}
}

// Device returns the PCI function the controller was discovered at.
func (c *Controller) Device() pci.Device { return c.dev }

// State returns the current bring-up state.
func (c *Controller) State() State { return c.state }

// Base returns the virtual address of the register window.
func (c *Controller) Base() mem.VirtAddr { return c.base }

// Capabilities returns the registers read by Probe.
func (c *Controller) Capabilities() Capabilities { return c.caps }

// ResetPolls returns how many USBCMD reads the last reset took.
func (c *Controller) ResetPolls() uint64 { return c.polls }

func (c *Controller) expect(op string, want State) error {
	if c.state != want {
		return fmt.Errorf("%w: %s in state %s, want %s", pkg.ErrInvalidState, op, c.state, want)
	}
	return nil
}

// Attach binds the controller to its uncached register window at base.
func (c *Controller) Attach(base mem.VirtAddr, regs hal.Registers) error {
	if err := c.expect("attach", StateDiscovered); err != nil {
		return err
	}
	if regs == nil {
		return fmt.Errorf("%w: nil register window", pkg.ErrInvalidParameter)
	}
	c.base = base
	c.regs = regs
	c.state = StateMapped
	pkg.LogDebug(pkg.ComponentEHCI, "controller attached",
		"device", c.dev.Address.String(),
		"base", base.String())
	return nil
}

// Probe reads the capability registers, each at its hardware width. The
// values are reported and returned but do not affect bring-up.
func (c *Controller) Probe() (Capabilities, error) {
	if err := c.expect("probe", StateMapped); err != nil {
		return Capabilities{}, err
	}
	c.caps = Capabilities{
		CapLength:    c.regs.Read8(RegCapLength),
		Version:      c.regs.Read16(RegHCIVersion),
		StructParams: c.regs.Read32(RegStructParams),
		CapParams:    c.regs.Read32(RegCapParams),
	}
	c.state = StateProbed

	pkg.LogInfo(pkg.ComponentEHCI, "capabilities",
		"caplength", fmt.Sprintf("%#x", c.caps.CapLength),
		"hciversion", fmt.Sprintf("0x%04x", c.caps.Version),
		"hcsparams", fmt.Sprintf("0x%08x", c.caps.StructParams),
		"hccparams", fmt.Sprintf("0x%08x", c.caps.CapParams),
		"ports", c.caps.Ports(),
		"addr64", c.caps.Addressing64())
	if c.caps.CapLength != StandardCapLength {
		pkg.LogWarn(pkg.ComponentEHCI, "nonstandard CAPLENGTH, USBCMD offset assumed",
			"caplength", c.caps.CapLength,
			"usbcmd", fmt.Sprintf("%#x", RegUSBCmd))
	}
	return c.caps, nil
}

// Reset writes HCRESET to USBCMD and polls USBCMD until the controller
// clears the bit.
//
// There is no timeout. A controller that never clears HCRESET stalls the
// caller forever. Use [Controller.ResetContext] to bound the wait.
func (c *Controller) Reset() error {
	return c.reset(nil)
}

// ResetContext is Reset with a bound: it stops polling when ctx is done and
// returns [pkg.ErrTimeout]. The controller is then left
// in [StateResetIssued].
func (c *Controller) ResetContext(ctx context.Context) error {
	return c.reset(ctx.Done())
}

func (c *Controller) reset(done <-chan struct{}) error {
	if err := c.expect("reset", StateProbed); err != nil {
		return err
	}

	c.regs.Write32(RegUSBCmd, CmdReset)
	c.state = StateResetIssued
	c.polls = 0
	pkg.LogDebug(pkg.ComponentEHCI, "reset issued", "device", c.dev.Address.String())

	for {
		c.polls++
		if c.regs.Read32(RegUSBCmd)&CmdReset == 0 {
			break
		}
		select {
		case <-done:
			pkg.LogError(pkg.ComponentEHCI, "reset did not complete",
				"device", c.dev.Address.String(),
				"polls", c.polls)
			return fmt.Errorf("%w: HCRESET still set after %d polls", pkg.ErrTimeout, c.polls)
		default:
		}
	}

	c.state = StateResetComplete
	pkg.LogInfo(pkg.ComponentEHCI, "reset complete",
		"device", c.dev.Address.String(),
		"polls", c.polls)
	return nil
}
