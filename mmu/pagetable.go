package mmu

import (
	"fmt"

	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/pkg"
)

// Page-table geometry.
const (
	entriesPerTable = 512
	entrySize       = 8
	levels          = 4
)

// addrMask selects the physical address bits of an entry.
const addrMask = 0x000F_FFFF_FFFF_F000

// entry is one page-table entry.
type entry uint64

func makeEntry(frame mem.Frame, flags Flags) entry {
	return entry(uint64(frame)&addrMask) | entry(flags&flagMask)
}

func (e entry) present() bool    { return Flags(e)&Present != 0 }
func (e entry) flags() Flags     { return Flags(e) & flagMask }
func (e entry) frame() mem.Frame { return mem.Frame(uint64(e) & addrMask) }

// index returns the table index of va at level (4 is the root).
func index(va mem.VirtAddr, level int) uint64 {
	shift := mem.PageShift + 9*uint(level-1)
	return (uint64(va) >> shift) & (entriesPerTable - 1)
}

// PageTable is a 4-level x86-64 page table stored in physical memory.
//
// Intermediate tables are taken from the frame allocator passed to
// [PageTable.MapTo] and are zeroed before use. PageTable is not safe for
// concurrent use.
type PageTable struct {
	mem  hal.PhysMemory
	root mem.Frame

	// Flush, if set, is called after an entry for page changes. On hardware
	// it issues invlpg.
	Flush func(page mem.Page)
}

// NewPageTable allocates and zeroes a fresh root table.
func NewPageTable(m hal.PhysMemory, frames mem.FrameAllocator) (*PageTable, error) {
	root, ok := frames.AllocateFrame()
	if !ok {
		return nil, fmt.Errorf("%w: root table", pkg.ErrFrameExhausted)
	}
	zeroTable(m, root)
	return &PageTable{mem: m, root: root}, nil
}

// PageTableAt wraps the existing table rooted at root, e.g. the one CR3
// points to.
func PageTableAt(m hal.PhysMemory, root mem.Frame) *PageTable {
	return &PageTable{mem: m, root: root}
}

// Root returns the frame of the level-4 table.
func (pt *PageTable) Root() mem.Frame { return pt.root }

func zeroTable(m hal.PhysMemory, table mem.Frame) {
	for i := 0; i < entriesPerTable; i++ {
		m.Write64(table.Address()+mem.PhysAddr(i*entrySize), 0)
	}
}

func (pt *PageTable) entryAddr(table mem.Frame, i uint64) mem.PhysAddr {
	return table.Address() + mem.PhysAddr(i*entrySize)
}

func (pt *PageTable) read(table mem.Frame, i uint64) entry {
	return entry(pt.mem.Read64(pt.entryAddr(table, i)))
}

func (pt *PageTable) write(table mem.Frame, i uint64, e entry) {
	pt.mem.Write64(pt.entryAddr(table, i), uint64(e))
}

// MapTo binds page to frame with flags. Missing intermediate tables are
// allocated from frames.
//
// It fails with [pkg.ErrAlreadyMapped] if page is already mapped, with
// [pkg.ErrHugePage] if a parent entry maps a huge page, and with
// [pkg.ErrFrameExhausted] if an intermediate table cannot be allocated.
func (pt *PageTable) MapTo(page mem.Page, frame mem.Frame, flags Flags, frames mem.FrameAllocator) error {
	va := page.Address()
	parentFlags := Present | Writable | flags&User

	table := pt.root
	for level := levels; level > 1; level-- {
		i := index(va, level)
		e := pt.read(table, i)
		switch {
		case !e.present():
			next, ok := frames.AllocateFrame()
			if !ok {
				return fmt.Errorf("%w: level %d table for %s", pkg.ErrFrameExhausted, level-1, page)
			}
			zeroTable(pt.mem, next)
			pt.write(table, i, makeEntry(next, parentFlags))
			table = next
		case e.flags()&HugePage != 0:
			return fmt.Errorf("%w: level %d entry for %s", pkg.ErrHugePage, level, page)
		default:
			if e.flags()&parentFlags != parentFlags {
				pt.write(table, i, e|entry(parentFlags))
			}
			table = e.frame()
		}
	}

	i := index(va, 1)
	if e := pt.read(table, i); e.present() {
		return fmt.Errorf("%w: %s -> %s", pkg.ErrAlreadyMapped, page, e.frame())
	}
	pt.write(table, i, makeEntry(frame, flags|Present))
	if pt.Flush != nil {
		pt.Flush(page)
	}
	return nil
}

// Unmap clears the mapping of page and returns the frame it was bound to.
// Intermediate tables are left in place.
func (pt *PageTable) Unmap(page mem.Page) (mem.Frame, error) {
	table, err := pt.leafTable(page.Address())
	if err != nil {
		return 0, err
	}
	i := index(page.Address(), 1)
	e := pt.read(table, i)
	if !e.present() {
		return 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, page)
	}
	pt.write(table, i, 0)
	if pt.Flush != nil {
		pt.Flush(page)
	}
	return e.frame(), nil
}

// Translate returns the physical address va maps to and the flags of the
// final entry. Huge-page mappings are resolved at their level.
func (pt *PageTable) Translate(va mem.VirtAddr) (mem.PhysAddr, Flags, error) {
	table := pt.root
	for level := levels; level >= 1; level-- {
		e := pt.read(table, index(va, level))
		if !e.present() {
			return 0, 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, va)
		}
		if level == 1 || (level <= 3 && e.flags()&HugePage != 0) {
			span := uint64(1) << (mem.PageShift + 9*uint(level-1))
			base := uint64(e.frame()) &^ (span - 1)
			return mem.PhysAddr(base | uint64(va)&(span-1)), e.flags(), nil
		}
		table = e.frame()
	}
	return 0, 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, va)
}

// leafTable walks to the level-1 table covering va without allocating.
func (pt *PageTable) leafTable(va mem.VirtAddr) (mem.Frame, error) {
	table := pt.root
	for level := levels; level > 1; level-- {
		e := pt.read(table, index(va, level))
		if !e.present() {
			return 0, fmt.Errorf("%w: %s", pkg.ErrNotMapped, va)
		}
		if e.flags()&HugePage != 0 {
			return 0, fmt.Errorf("%w: level %d entry for %s", pkg.ErrHugePage, level, va)
		}
		table = e.frame()
	}
	return table, nil
}
