package sim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/mmu"
	"github.com/ardnew/ehciboot/pci"
	"github.com/ardnew/ehciboot/pkg"
)

// Spec is a machine description: the firmware memory map and the functions
// on the PCI bus.
type Spec struct {
	Memory    []mem.Region `yaml:"memory"`
	Functions []Function   `yaml:"functions"`
}

// DefaultSpec returns a small machine with 64 MiB of RAM, a host bridge,
// and an ICH9-style EHCI controller at 00:1d.7 with BAR0 at 0xF0000000.
func DefaultSpec() Spec {
	ehci := DefaultEHCI()
	return Spec{
		Memory: []mem.Region{
			{Start: 0x0000_0000, End: 0x0000_1000, Type: mem.RegionReserved},
			{Start: 0x0000_1000, End: 0x0009_F000, Type: mem.RegionUsable},
			{Start: 0x0009_F000, End: 0x0010_0000, Type: mem.RegionReserved},
			{Start: 0x0010_0000, End: 0x0040_0000, Type: mem.RegionKernel},
			{Start: 0x0040_0000, End: 0x0400_0000, Type: mem.RegionUsable},
			{Start: 0xF000_0000, End: 0xF000_1000, Type: mem.RegionReserved},
		},
		Functions: []Function{
			{Bus: 0, Slot: 0, Function: 0, VendorID: 0x8086, DeviceID: 0x29C0, Class: 0x06},
			{Bus: 0, Slot: 0x1D, Function: 0, VendorID: 0x8086, DeviceID: 0x2934,
				Class: pci.ClassSerialBus, Subclass: pci.SubclassUSB, ProgIF: pci.ProgIFUHCI,
				HeaderType: 0x80},
			{Bus: 0, Slot: 0x1D, Function: 7, VendorID: 0x8086, DeviceID: 0x293A,
				Class: pci.ClassSerialBus, Subclass: pci.SubclassUSB, ProgIF: pci.ProgIFEHCI,
				BAR0: 0xF000_0000, EHCI: &ehci},
		},
	}
}

// LoadSpec reads a YAML machine description from path.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("parse machine %s: %w", path, err)
	}
	return spec, nil
}

// LoadMachine builds a Machine from the YAML description at path.
func LoadMachine(path string) (*Machine, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return NewMachine(spec)
}

// Machine is a simulated machine built from a Spec: a configuration space,
// physical memory, a frame allocator over the memory map, and one register
// bank per EHCI function.
type Machine struct {
	spec   Spec
	config *ConfigSpace
	memory *Memory
	frames *mem.BootAllocator
	banks  map[mem.Frame]*Registers
}

// NewMachine builds a Machine from spec.
func NewMachine(spec Spec) (*Machine, error) {
	m := &Machine{
		spec:   spec,
		config: NewConfigSpace(),
		memory: NewMemory(),
		frames: mem.NewBootAllocator(spec.Memory),
		banks:  make(map[mem.Frame]*Registers),
	}
	for _, f := range spec.Functions {
		if !f.Address().Valid() {
			return nil, fmt.Errorf("%w: function address %s", pkg.ErrInvalidParameter, f.Address())
		}
		m.config.Add(f)
		if f.EHCI == nil {
			continue
		}
		frame := mem.FrameContaining(mem.PhysAddr(pci.Device{BAR0: f.BAR0}.MemoryBase()))
		if _, dup := m.banks[frame]; dup {
			return nil, fmt.Errorf("%w: two register banks at %s", pkg.ErrInvalidParameter, frame)
		}
		m.banks[frame] = NewEHCIRegisters(*f.EHCI)
	}
	pkg.LogDebug(pkg.ComponentHAL, "simulated machine built",
		"functions", len(spec.Functions),
		"regions", len(spec.Memory),
		"usableFrames", m.frames.UsableFrames())
	return m, nil
}

// Ports returns the configuration port pair.
func (m *Machine) Ports() *ConfigSpace { return m.config }

// Memory returns physical memory.
func (m *Machine) Memory() *Memory { return m.memory }

// Frames returns the boot frame allocator over the machine's memory map.
func (m *Machine) Frames() *mem.BootAllocator { return m.frames }

// Spec returns the description the machine was built from.
func (m *Machine) Spec() Spec { return m.spec }

// Bank returns the register bank decoded at phys, if any.
func (m *Machine) Bank(phys mem.PhysAddr) (*Registers, bool) {
	r, ok := m.banks[mem.FrameContaining(phys)]
	return r, ok
}

// RegistersAt resolves va through pt and returns the register window it
// reaches. The mapping must be uncached.
func (m *Machine) RegistersAt(pt *mmu.PageTable, va mem.VirtAddr) (hal.Registers, error) {
	phys, flags, err := pt.Translate(va)
	if err != nil {
		return nil, err
	}
	if !flags.Has(mmu.NoCache) {
		return nil, fmt.Errorf("%w: %s -> %s (%s)", pkg.ErrCacheable, va, phys, flags)
	}
	bank, ok := m.Bank(phys)
	if !ok {
		return nil, fmt.Errorf("%w: no device decodes %s", pkg.ErrNotFound, phys)
	}
	if off := uintptr(phys.PageOffset()); off != 0 {
		return &window{Registers: bank, base: off}, nil
	}
	return bank, nil
}

// window shifts register offsets by base, for windows that do not start on a
// page boundary.
type window struct {
	*Registers
	base uintptr
}

func (w *window) Read8(offset uintptr) uint8   { return w.Registers.Read8(w.base + offset) }
func (w *window) Read16(offset uintptr) uint16 { return w.Registers.Read16(w.base + offset) }
func (w *window) Read32(offset uintptr) uint32 { return w.Registers.Read32(w.base + offset) }

func (w *window) Write8(offset uintptr, v uint8)   { w.Registers.Write8(w.base+offset, v) }
func (w *window) Write16(offset uintptr, v uint16) { w.Registers.Write16(w.base+offset, v) }
func (w *window) Write32(offset uintptr, v uint32) { w.Registers.Write32(w.base+offset, v) }

// ErrNoController is returned by Controller when the machine has no EHCI bank.
var ErrNoController = errors.New("machine has no EHCI controller")

// Controller returns the register bank of the first EHCI function in the
// description.
func (m *Machine) Controller() (*Registers, error) {
	for _, f := range m.spec.Functions {
		if f.EHCI == nil {
			continue
		}
		if r, ok := m.Bank(mem.PhysAddr(pci.Device{BAR0: f.BAR0}.MemoryBase())); ok {
			return r, nil
		}
	}
	return nil, ErrNoController
}
