// Package ehci brings a USB2 EHCI host controller from discovery to reset.
//
// A [Controller] moves through a fixed sequence of states:
//
//	Discovered -> Mapped -> Probed -> ResetIssued -> ResetComplete
//
// [Controller.Attach] binds the uncached register window, [Controller.Probe]
// reads the capability registers at their exact widths, and
// [Controller.Reset] issues HCRESET and waits for the controller to clear it.
// All register traffic goes through [hal.Registers], so every access is a
// single device access of the stated width.
package ehci
