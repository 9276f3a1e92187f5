//go:build linux

// Package pciid looks up vendor, device, and class names in the PCI ID
// database.
//
// The database is the pci.ids file shipped with pciutils. Load it once:
//
//	db := pciid.New()
//	db.Load()
//	fmt.Println(db.LookupVendor(0x8086), db.LookupDevice(0x8086, 0x293a))
//	fmt.Println(db.LookupClass(0x0c, 0x03, 0x20)) // "EHCI"
//
// # Database Locations
//
//   - /usr/share/hwdata/pci.ids
//   - /usr/share/misc/pci.ids
//   - /usr/share/pci.ids
//
// Lookups on a database that was not found return empty strings. All methods
// are safe for concurrent use.
package pciid
