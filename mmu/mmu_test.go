package mmu

import (
	"errors"
	"testing"

	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/pkg"
)

// =============================================================================
// Test Doubles
// =============================================================================

// testMemory is sparse physical memory.
type testMemory map[mem.PhysAddr]uint64

func (m testMemory) Read64(addr mem.PhysAddr) uint64         { return m[addr] }
func (m testMemory) Write64(addr mem.PhysAddr, value uint64) { m[addr] = value }

// countingAllocator wraps a BootAllocator and counts successful allocations.
type countingAllocator struct {
	*mem.BootAllocator
	count int
}

func (a *countingAllocator) AllocateFrame() (mem.Frame, bool) {
	f, ok := a.BootAllocator.AllocateFrame()
	if ok {
		a.count++
	}
	return f, ok
}

func newAllocator(frames int) *countingAllocator {
	return &countingAllocator{BootAllocator: mem.NewBootAllocator([]mem.Region{
		{Start: 0x100000, End: mem.PhysAddr(0x100000 + frames*mem.PageSize), Type: mem.RegionUsable},
	})}
}

// fakeMapper records calls and returns a preset error.
type fakeMapper struct {
	err    error
	pages  []mem.Page
	frames []mem.Frame
	flags  []Flags
}

func (f *fakeMapper) MapTo(page mem.Page, frame mem.Frame, flags Flags, frames mem.FrameAllocator) error {
	f.pages = append(f.pages, page)
	f.frames = append(f.frames, frame)
	f.flags = append(f.flags, flags)
	return f.err
}

func (f *fakeMapper) Unmap(page mem.Page) (mem.Frame, error) {
	return 0, f.err
}

// =============================================================================
// Flags Tests
// =============================================================================

func TestFlags_String(t *testing.T) {
	tests := []struct {
		flags    Flags
		expected string
	}{
		{0, "none"},
		{Present, "present"},
		{DeviceFlags, "present|writable|no-cache"},
		{Present | HugePage | NoExecute, "present|huge|no-execute"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.flags.String(); got != tt.expected {
				t.Errorf("Flags(%#x).String() = %q, want %q", uint64(tt.flags), got, tt.expected)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	va := mem.VirtAddr(0xFE00_0000)
	want := map[int]uint64{4: 0, 3: 3, 2: 0x1F0, 1: 0}
	for level, w := range want {
		if got := index(va, level); got != w {
			t.Errorf("index(%s, %d) = %#x, want %#x", va, level, got, w)
		}
	}
}

// =============================================================================
// PageTable Tests
// =============================================================================

func TestPageTable_MapAndTranslate(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, err := NewPageTable(m, frames)
	if err != nil {
		t.Fatalf("NewPageTable() error = %v", err)
	}

	page := mem.PageContaining(DeviceWindow)
	if err := pt.MapTo(page, 0xF000_0000, DeviceFlags, frames); err != nil {
		t.Fatalf("MapTo() error = %v", err)
	}

	// Root plus three intermediate tables.
	if frames.count != 4 {
		t.Errorf("frames allocated = %d, want 4", frames.count)
	}

	phys, flags, err := pt.Translate(DeviceWindow + 0x24)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if phys != 0xF000_0024 {
		t.Errorf("Translate() phys = %s, want 0xf0000024", phys)
	}
	if !flags.Has(DeviceFlags) {
		t.Errorf("Translate() flags = %s, want %s", flags, DeviceFlags)
	}
}

func TestPageTable_ReusesIntermediateTables(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, _ := NewPageTable(m, frames)

	if err := pt.MapTo(0x40_0000, 0x1000, Present, frames); err != nil {
		t.Fatalf("MapTo() error = %v", err)
	}
	before := frames.count
	if err := pt.MapTo(0x40_1000, 0x2000, Present, frames); err != nil {
		t.Fatalf("MapTo() error = %v", err)
	}
	if frames.count != before {
		t.Errorf("second MapTo in same table allocated %d frames, want 0", frames.count-before)
	}
}

func TestPageTable_AlreadyMapped(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, _ := NewPageTable(m, frames)
	page := mem.PageContaining(DeviceWindow)

	if err := pt.MapTo(page, 0xF000_0000, DeviceFlags, frames); err != nil {
		t.Fatalf("first MapTo() error = %v", err)
	}
	err := pt.MapTo(page, 0xE000_0000, DeviceFlags, frames)
	if !errors.Is(err, pkg.ErrAlreadyMapped) {
		t.Fatalf("second MapTo() error = %v, want ErrAlreadyMapped", err)
	}

	phys, _, _ := pt.Translate(page.Address())
	if phys != 0xF000_0000 {
		t.Errorf("mapping changed to %s after rejected MapTo", phys)
	}
}

func TestPageTable_FrameExhausted(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(2)
	pt, err := NewPageTable(m, frames)
	if err != nil {
		t.Fatalf("NewPageTable() error = %v", err)
	}

	err = pt.MapTo(mem.PageContaining(DeviceWindow), 0xF000_0000, DeviceFlags, frames)
	if !errors.Is(err, pkg.ErrFrameExhausted) {
		t.Errorf("MapTo() error = %v, want ErrFrameExhausted", err)
	}
}

func TestPageTable_HugeParent(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, _ := NewPageTable(m, frames)

	// Install a 1 GiB page covering DeviceWindow by hand.
	l3, _ := frames.AllocateFrame()
	zeroTable(m, l3)
	pt.write(pt.root, index(DeviceWindow, 4), makeEntry(l3, Present|Writable))
	pt.write(l3, index(DeviceWindow, 3), makeEntry(0xC000_0000, Present|Writable|HugePage))

	err := pt.MapTo(mem.PageContaining(DeviceWindow), 0xF000_0000, DeviceFlags, frames)
	if !errors.Is(err, pkg.ErrHugePage) {
		t.Errorf("MapTo() error = %v, want ErrHugePage", err)
	}

	phys, _, err := pt.Translate(DeviceWindow)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if phys != 0xFE00_0000 {
		t.Errorf("Translate() through 1 GiB page = %s, want 0xfe000000", phys)
	}
}

func TestPageTable_Unmap(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, _ := NewPageTable(m, frames)
	page := mem.PageContaining(DeviceWindow)

	var flushed []mem.Page
	pt.Flush = func(p mem.Page) { flushed = append(flushed, p) }

	if _, err := pt.Unmap(page); !errors.Is(err, pkg.ErrNotMapped) {
		t.Errorf("Unmap() before MapTo error = %v, want ErrNotMapped", err)
	}

	if err := pt.MapTo(page, 0xF000_0000, DeviceFlags, frames); err != nil {
		t.Fatalf("MapTo() error = %v", err)
	}
	frame, err := pt.Unmap(page)
	if err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}
	if frame != 0xF000_0000 {
		t.Errorf("Unmap() frame = %s, want 0xf0000000", frame)
	}
	if _, _, err := pt.Translate(page.Address()); !errors.Is(err, pkg.ErrNotMapped) {
		t.Errorf("Translate() after Unmap error = %v, want ErrNotMapped", err)
	}
	if len(flushed) != 2 {
		t.Errorf("Flush called %d times, want 2", len(flushed))
	}
}

// =============================================================================
// MapDeviceRegion Tests
// =============================================================================

func TestMapDeviceRegion(t *testing.T) {
	fm := &fakeMapper{}
	va, err := MapDeviceRegion(0xF000_0000, fm, newAllocator(0))
	if err != nil {
		t.Fatalf("MapDeviceRegion() error = %v", err)
	}
	if va != DeviceWindow {
		t.Errorf("MapDeviceRegion() = %s, want %s", va, DeviceWindow)
	}
	if len(fm.pages) != 1 || fm.pages[0] != mem.Page(DeviceWindow) {
		t.Errorf("MapTo pages = %v, want [%s]", fm.pages, DeviceWindow)
	}
	if fm.frames[0] != 0xF000_0000 {
		t.Errorf("MapTo frame = %s, want 0xf0000000", fm.frames[0])
	}
	if !fm.flags[0].Has(NoCache) {
		t.Errorf("MapTo flags = %s, missing no-cache", fm.flags[0])
	}
}

func TestMapDeviceRegion_Unaligned(t *testing.T) {
	fm := &fakeMapper{}
	va, err := MapDeviceRegion(0xF000_0400, fm, newAllocator(0))
	if err != nil {
		t.Fatalf("MapDeviceRegion() error = %v", err)
	}
	if va != DeviceWindow+0x400 {
		t.Errorf("MapDeviceRegion() = %s, want %s", va, DeviceWindow+0x400)
	}
	if fm.frames[0] != 0xF000_0000 {
		t.Errorf("MapTo frame = %s, want 0xf0000000", fm.frames[0])
	}
}

func TestMapDeviceRegion_Errors(t *testing.T) {
	tests := []struct {
		name  string
		cause error
	}{
		{"exhausted", pkg.ErrFrameExhausted},
		{"already mapped", pkg.ErrAlreadyMapped},
		{"huge page", pkg.ErrHugePage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapDeviceRegion(0xF000_0000, &fakeMapper{err: tt.cause}, newAllocator(0))

			var me *MappingError
			if !errors.As(err, &me) {
				t.Fatalf("MapDeviceRegion() error = %T, want *MappingError", err)
			}
			if me.Phys != 0xF000_0000 || me.Virt != DeviceWindow {
				t.Errorf("MappingError = {%s, %s}, want {0xf0000000, %s}", me.Phys, me.Virt, DeviceWindow)
			}
			if !errors.Is(err, pkg.ErrMapping) {
				t.Errorf("errors.Is(err, ErrMapping) = false")
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("errors.Is(err, %v) = false", tt.cause)
			}
		})
	}
}

func TestMapDeviceRegion_TwiceFails(t *testing.T) {
	m := testMemory{}
	frames := newAllocator(16)
	pt, _ := NewPageTable(m, frames)

	if _, err := MapDeviceRegion(0xF000_0000, pt, frames); err != nil {
		t.Fatalf("first MapDeviceRegion() error = %v", err)
	}
	_, err := MapDeviceRegion(0xF000_0000, pt, frames)
	if !errors.Is(err, pkg.ErrAlreadyMapped) {
		t.Fatalf("second MapDeviceRegion() error = %v, want ErrAlreadyMapped", err)
	}

	if err := UnmapDeviceRegion(pt); err != nil {
		t.Fatalf("UnmapDeviceRegion() error = %v", err)
	}
	if _, err := MapDeviceRegion(0xE000_0000, pt, frames); err != nil {
		t.Errorf("MapDeviceRegion() after unmap error = %v", err)
	}
}
