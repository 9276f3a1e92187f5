// Package pci enumerates PCI configuration space to find host controllers.
//
// Configuration space is read through [ConfigSpace]. [PortConfig] implements
// it over the legacy CONFIG_ADDRESS/CONFIG_DATA port pair; other backends
// read Linux sysfs or a simulated bus.
//
// Enumeration is a single pass in bus, slot, function order:
//
//	e := pci.NewEnumerator(pci.NewPortConfig(ports))
//	dev, err := e.FindEHCI()
//	if errors.Is(err, pkg.ErrNotFound) {
//		// no controller; continue without USB
//	}
//
// The port pair is unlocked shared state. Enumerate once, before interrupts
// are enabled.
package pci
