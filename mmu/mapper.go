package mmu

import (
	"fmt"

	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/pkg"
)

// Mapper installs and removes single 4 KiB page-table mappings.
type Mapper interface {
	// MapTo binds page to frame with flags, allocating intermediate tables
	// from frames as needed. It fails if page is already mapped.
	MapTo(page mem.Page, frame mem.Frame, flags Flags, frames mem.FrameAllocator) error

	// Unmap removes the mapping of page and returns the frame it was bound to.
	Unmap(page mem.Page) (mem.Frame, error)
}

// DeviceWindow is the fixed virtual page through which device registers are
// mapped. Only one device region can be mapped at a time.
const DeviceWindow mem.VirtAddr = 0xFE00_0000

// DeviceFlags are the flags of a device register mapping. Device registers
// must never be served from a CPU cache.
const DeviceFlags = Present | Writable | NoCache

// MappingError reports a failed device mapping.
type MappingError struct {
	Phys mem.PhysAddr
	Virt mem.VirtAddr
	Err  error
}

// Error implements error.
func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s -> %s: %v: %v", e.Phys, e.Virt, pkg.ErrMapping, e.Err)
}

// Unwrap allows errors.Is to match both pkg.ErrMapping and the cause.
func (e *MappingError) Unwrap() []error {
	return []error{pkg.ErrMapping, e.Err}
}

// MapDeviceRegion maps the frame containing phys at [DeviceWindow] with
// [DeviceFlags] and returns the virtual address corresponding to phys.
//
// Failures are returned as *[MappingError] and are fatal for device
// bring-up. There is no retry. A second call before [UnmapDeviceRegion] fails
// with [pkg.ErrAlreadyMapped].
func MapDeviceRegion(phys mem.PhysAddr, m Mapper, frames mem.FrameAllocator) (mem.VirtAddr, error) {
	page := mem.PageContaining(DeviceWindow)
	frame := mem.FrameContaining(phys)

	if err := m.MapTo(page, frame, DeviceFlags, frames); err != nil {
		return 0, &MappingError{Phys: phys, Virt: page.Address(), Err: err}
	}

	virt := page.Address() + mem.VirtAddr(phys.PageOffset())
	pkg.LogDebug(pkg.ComponentMMU, "device region mapped",
		"phys", phys.String(),
		"virt", virt.String(),
		"flags", DeviceFlags.String())
	return virt, nil
}

// UnmapDeviceRegion releases the device window so another region can be
// mapped.
func UnmapDeviceRegion(m Mapper) error {
	page := mem.PageContaining(DeviceWindow)
	frame, err := m.Unmap(page)
	if err != nil {
		return fmt.Errorf("unmap %s: %w", page, err)
	}
	pkg.LogDebug(pkg.ComponentMMU, "device region unmapped",
		"virt", page.String(),
		"frame", frame.String())
	return nil
}
