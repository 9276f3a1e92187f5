package pci

import (
	"fmt"

	"github.com/ardnew/ehciboot/pkg"
)

// Enumerator scans configuration space bus by bus.
//
// An Enumerator drives the shared configuration port pair without locking.
// It must run once, single-threaded, before interrupts are enabled.
type Enumerator struct {
	cs ConfigSpace

	// Progress, if set, is called before each bus is scanned.
	Progress func(bus int)
}

// NewEnumerator returns an Enumerator reading through cs.
func NewEnumerator(cs ConfigSpace) *Enumerator {
	return &Enumerator{cs: cs}
}

// FindEHCI returns the first USB2 EHCI host controller.
func (e *Enumerator) FindEHCI() (Device, error) {
	return e.Find(EHCISignature)
}

// Find returns the first function whose class triple equals sig, scanning
// bus 0-255, slot 0-31, function 0-7 in that nesting. It returns
// [pkg.ErrNotFound] once the whole space has been scanned.
//
// When function 0 of a slot does not match and its header type clears the
// multi-function bit, functions 1-7 of that slot are not read.
func (e *Enumerator) Find(sig Signature) (Device, error) {
	var (
		found Device
		ok    bool
	)
	e.scan(func(addr Address, vendor uint16) bool {
		class := ReadConfig8(e.cs, addr, OffsetClass)
		subclass := ReadConfig8(e.cs, addr, OffsetSubclass)
		progIF := ReadConfig8(e.cs, addr, OffsetProgIF)
		if (Signature{class, subclass, progIF}) != sig {
			return true
		}
		found = Device{
			Address:  addr,
			VendorID: vendor,
			DeviceID: ReadConfig16(e.cs, addr, OffsetDeviceID),
			Class:    class,
			Subclass: subclass,
			ProgIF:   progIF,
			BAR0:     e.cs.ReadConfig32(addr, OffsetBAR0),
		}
		ok = true
		return false
	})
	if !ok {
		return Device{}, fmt.Errorf("%w: class %s", pkg.ErrNotFound, sig)
	}
	pkg.LogDebug(pkg.ComponentPCI, "device found",
		"address", found.Address.String(),
		"vendor", fmt.Sprintf("0x%04x", found.VendorID),
		"device", fmt.Sprintf("0x%04x", found.DeviceID))
	return found, nil
}

// Walk calls fn for every present function in scan order, stopping early when
// fn returns false. The same multi-function skip rule as [Enumerator.Find]
// applies.
func (e *Enumerator) Walk(fn func(Device) bool) {
	e.scan(func(addr Address, vendor uint16) bool {
		dev := Device{
			Address:  addr,
			VendorID: vendor,
			DeviceID: ReadConfig16(e.cs, addr, OffsetDeviceID),
			Class:    ReadConfig8(e.cs, addr, OffsetClass),
			Subclass: ReadConfig8(e.cs, addr, OffsetSubclass),
			ProgIF:   ReadConfig8(e.cs, addr, OffsetProgIF),
			BAR0:     e.cs.ReadConfig32(addr, OffsetBAR0),
		}
		return fn(dev)
	})
}

// scan visits every present function and hands it to visit, which returns
// false to stop. After visit accepts function 0 of a single-function slot,
// the remaining functions of that slot are skipped.
func (e *Enumerator) scan(visit func(addr Address, vendor uint16) bool) {
	for bus := 0; bus < MaxBus; bus++ {
		if e.Progress != nil {
			e.Progress(bus)
		}
		for slot := 0; slot < MaxSlot; slot++ {
			for fn := 0; fn < MaxFunction; fn++ {
				addr := Address{Bus: uint8(bus), Slot: uint8(slot), Function: uint8(fn)}

				vendor := ReadConfig16(e.cs, addr, OffsetVendorID)
				if vendor == InvalidVendor {
					continue
				}
				if !visit(addr, vendor) {
					return
				}

				if fn == 0 {
					header := ReadConfig8(e.cs, addr, OffsetHeaderType)
					if header&headerMultiFunction == 0 {
						break
					}
				}
			}
		}
	}
}
