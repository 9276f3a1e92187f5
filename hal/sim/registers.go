package sim

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
)

// Access is one logged register access.
type Access struct {
	Write  bool
	Width  hal.Width
	Offset uintptr
	Value  uint32
}

// String formats the access, e.g. "R32 @0x20 = 0x00000002".
func (a Access) String() string {
	op := 'R'
	if a.Write {
		op = 'W'
	}
	return fmt.Sprintf("%c%d @%#x = 0x%0*x", op, a.Width, a.Offset, int(a.Width/4), a.Value)
}

// Registers is a 4 KiB memory-mapped register bank. It implements
// [hal.Registers] and logs every access with its width.
//
// Accesses that are misaligned for their width or fall outside the bank
// panic. On hardware these are undefined, so the simulation treats them as
// fatal.
type Registers struct {
	mu   sync.Mutex
	data [mem.PageSize]byte
	log  []Access

	// OnRead, if set, runs before a read is served and may change the bank
	// through Poke.
	OnRead func(r *Registers, offset uintptr, width hal.Width)

	// OnWrite, if set, runs after a write is stored.
	OnWrite func(r *Registers, offset uintptr, width hal.Width, value uint32)
}

// NewRegisters returns a zeroed register bank.
func NewRegisters() *Registers {
	return &Registers{}
}

func check(offset uintptr, width hal.Width) {
	size := uintptr(width / 8)
	if offset%size != 0 {
		panic(fmt.Sprintf("sim: misaligned %s register access at %#x", width, offset))
	}
	if offset+size > mem.PageSize {
		panic(fmt.Sprintf("sim: %s register access at %#x outside bank", width, offset))
	}
}

func (r *Registers) read(offset uintptr, width hal.Width) uint32 {
	check(offset, width)
	if r.OnRead != nil {
		r.OnRead(r, offset, width)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.peekLocked(offset, width)
	r.log = append(r.log, Access{Width: width, Offset: offset, Value: v})
	return v
}

func (r *Registers) write(offset uintptr, width hal.Width, value uint32) {
	check(offset, width)
	r.mu.Lock()
	r.pokeLocked(offset, width, value)
	r.log = append(r.log, Access{Write: true, Width: width, Offset: offset, Value: value})
	r.mu.Unlock()
	if r.OnWrite != nil {
		r.OnWrite(r, offset, width, value)
	}
}

func (r *Registers) peekLocked(offset uintptr, width hal.Width) uint32 {
	switch width {
	case hal.Width8:
		return uint32(r.data[offset])
	case hal.Width16:
		return uint32(binary.LittleEndian.Uint16(r.data[offset:]))
	default:
		return binary.LittleEndian.Uint32(r.data[offset:])
	}
}

func (r *Registers) pokeLocked(offset uintptr, width hal.Width, value uint32) {
	switch width {
	case hal.Width8:
		r.data[offset] = uint8(value)
	case hal.Width16:
		binary.LittleEndian.PutUint16(r.data[offset:], uint16(value))
	default:
		binary.LittleEndian.PutUint32(r.data[offset:], value)
	}
}

// Read8 implements hal.Registers.
func (r *Registers) Read8(offset uintptr) uint8 { return uint8(r.read(offset, hal.Width8)) }

// Read16 implements hal.Registers.
func (r *Registers) Read16(offset uintptr) uint16 { return uint16(r.read(offset, hal.Width16)) }

// Read32 implements hal.Registers.
func (r *Registers) Read32(offset uintptr) uint32 { return r.read(offset, hal.Width32) }

// Write8 implements hal.Registers.
func (r *Registers) Write8(offset uintptr, value uint8) { r.write(offset, hal.Width8, uint32(value)) }

// Write16 implements hal.Registers.
func (r *Registers) Write16(offset uintptr, value uint16) {
	r.write(offset, hal.Width16, uint32(value))
}

// Write32 implements hal.Registers.
func (r *Registers) Write32(offset uintptr, value uint32) { r.write(offset, hal.Width32, value) }

// Peek reads the bank without logging or running hooks.
func (r *Registers) Peek(offset uintptr, width hal.Width) uint32 {
	check(offset, width)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peekLocked(offset, width)
}

// Poke writes the bank without logging or running hooks.
func (r *Registers) Poke(offset uintptr, width hal.Width, value uint32) {
	check(offset, width)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pokeLocked(offset, width, value)
}

// Log returns a copy of the access log.
func (r *Registers) Log() []Access {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Access(nil), r.log...)
}

// Count returns how many logged accesses match write, width, and offset.
func (r *Registers) Count(write bool, width hal.Width, offset uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.log {
		if a.Write == write && a.Width == width && a.Offset == offset {
			n++
		}
	}
	return n
}

// ClearLog discards the access log.
func (r *Registers) ClearLog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}
