// Package mmu installs page-table mappings for device register windows.
//
// [MapDeviceRegion] binds the frame holding a device's registers to the one
// fixed virtual page [DeviceWindow], with caching disabled. The page-table
// update itself goes through the injected [Mapper]. Any intermediate tables
// it needs come from the injected frame allocator.
//
// [PageTable] is the in-tree Mapper: an x86-64 4-level table stored through
// [github.com/ardnew/ehciboot/hal.PhysMemory].
//
// Because the window address is fixed, only one device region can be mapped
// at a time. Mapping a second region before unmapping the first fails with
// [github.com/ardnew/ehciboot/pkg.ErrAlreadyMapped].
package mmu
