//go:build linux

package linux

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/mmu"
	"github.com/ardnew/ehciboot/pkg"
)

// mapping is one live page of device memory.
type mapping struct {
	frame mem.Frame
	flags mmu.Flags
	ptr   unsafe.Pointer
}

// DevMem implements [mmu.Mapper] by mapping pages of a physical memory device
// into the process at the requested virtual address. The kernel owns the
// page tables, so no frames are taken from the allocator passed to MapTo.
//
// The device is opened with O_SYNC, which makes the kernel map it uncached.
// Mappings must request [mmu.NoCache].
type DevMem struct {
	path string
	fd   int

	mu    sync.Mutex
	pages map[mem.Page]mapping
}

// OpenDevMem opens the physical memory device at path, or [DevMemPath] if
// path is empty.
func OpenDevMem(path string) (*DevMem, error) {
	if path == "" {
		path = DevMemPath
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DevMem{path: path, fd: fd, pages: make(map[mem.Page]mapping)}, nil
}

// MapTo implements mmu.Mapper.
func (d *DevMem) MapTo(page mem.Page, frame mem.Frame, flags mmu.Flags, _ mem.FrameAllocator) error {
	if !flags.Has(mmu.NoCache) {
		return fmt.Errorf("%w: %s requested %s", pkg.ErrCacheable, page, flags)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.pages[page]; ok {
		return fmt.Errorf("%w: %s -> %s", pkg.ErrAlreadyMapped, page, m.frame)
	}

	prot := unix.PROT_READ
	if flags.Has(mmu.Writable) {
		prot |= unix.PROT_WRITE
	}
	want := windowPointer(page)
	ptr, err := unix.MmapPtr(d.fd, int64(frame.Address()), want, mem.PageSize,
		prot, unix.MAP_SHARED|unix.MAP_FIXED_NOREPLACE)
	switch {
	case errors.Is(err, unix.EEXIST):
		return fmt.Errorf("%w: %s is occupied in this process", pkg.ErrAlreadyMapped, page)
	case err != nil:
		return fmt.Errorf("mmap %s at %s: %w", d.path, frame, err)
	case ptr != want:
		// Kernels before 4.17 treat MAP_FIXED_NOREPLACE as a hint.
		_ = unix.MunmapPtr(ptr, mem.PageSize)
		return fmt.Errorf("%w: kernel placed %s at %p", pkg.ErrAlreadyMapped, page, ptr)
	}

	d.pages[page] = mapping{frame: frame, flags: flags | mmu.Present, ptr: ptr}
	pkg.LogDebug(pkg.ComponentHAL, "device page mapped",
		"page", page.String(),
		"frame", frame.String(),
		"flags", flags.String())
	return nil
}

// windowPointer returns the fixed address of page as a pointer. The page is
// device memory the kernel maps at our request, never Go heap, so the address
// is formed by offsetting nil rather than converting an integer.
func windowPointer(page mem.Page) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(nil), uintptr(page.Address()))
}

// Unmap implements mmu.Mapper.
func (d *DevMem) Unmap(page mem.Page) (mem.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.pages[page]
	if !ok {
		return 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, page)
	}
	if err := unix.MunmapPtr(m.ptr, mem.PageSize); err != nil {
		return 0, fmt.Errorf("munmap %s: %w", page, err)
	}
	delete(d.pages, page)
	return m.frame, nil
}

// Translate returns the physical address va is mapped to and its flags.
func (d *DevMem) Translate(va mem.VirtAddr) (mem.PhysAddr, mmu.Flags, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.pages[mem.PageContaining(va)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, va)
	}
	return m.frame.Address() + mem.PhysAddr(va.PageOffset()), m.flags, nil
}

// Registers returns register access through the mapping that contains va,
// with offset 0 at va.
func (d *DevMem) Registers(va mem.VirtAddr) (hal.Registers, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.pages[mem.PageContaining(va)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkg.ErrNotMapped, va)
	}
	off := uintptr(va.PageOffset())
	return &MMIO{base: unsafe.Add(m.ptr, off), size: mem.PageSize - off}, nil
}

// Close unmaps every page and closes the device.
func (d *DevMem) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for page, m := range d.pages {
		_ = unix.MunmapPtr(m.ptr, mem.PageSize)
		delete(d.pages, page)
	}
	return unix.Close(d.fd)
}
