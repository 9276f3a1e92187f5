package mem

import (
	"fmt"
	"strings"
)

// RegionType tags a firmware memory map entry.
type RegionType uint8

// Memory region types.
const (
	RegionUsable          RegionType = iota // Free RAM
	RegionReserved                          // Reserved by firmware or hardware
	RegionACPIReclaimable                   // ACPI tables, reclaimable after parsing
	RegionACPINVS                           // ACPI non-volatile storage
	RegionBadMemory                         // Defective RAM
	RegionKernel                            // Kernel image
	RegionBootloader                        // Bootloader data
	RegionPageTable                         // Page tables installed by the bootloader
)

var regionTypeNames = [...]string{
	RegionUsable:          "usable",
	RegionReserved:        "reserved",
	RegionACPIReclaimable: "acpi-reclaimable",
	RegionACPINVS:         "acpi-nvs",
	RegionBadMemory:       "bad-memory",
	RegionKernel:          "kernel",
	RegionBootloader:      "bootloader",
	RegionPageTable:       "page-table",
}

// String returns the region type name.
func (t RegionType) String() string {
	if int(t) < len(regionTypeNames) {
		return regionTypeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// UnmarshalText parses a region type name, as used in machine descriptions.
func (t *RegionType) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range regionTypeNames {
		if n == name {
			*t = RegionType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown memory region type %q", text)
}

// MarshalText returns the region type name.
func (t RegionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Region is one firmware memory map entry covering [Start, End).
type Region struct {
	Start PhysAddr   `yaml:"start"`
	End   PhysAddr   `yaml:"end"`
	Type  RegionType `yaml:"type"`
}

// Usable reports whether the region may be handed out as frames.
func (r Region) Usable() bool { return r.Type == RegionUsable }

// Frames returns the number of whole 4 KiB frames in the region. Frames start
// on 4 KiB boundaries at or above Start and end at or below End.
func (r Region) Frames() uint64 {
	first := (uint64(r.Start) + PageSize - 1) &^ (PageSize - 1)
	if first < uint64(r.Start) || first >= uint64(r.End) {
		return 0
	}
	return (uint64(r.End) - first) / PageSize
}

// frame returns the i-th frame of the region. The caller guarantees
// i < r.Frames().
func (r Region) frame(i uint64) Frame {
	first := (uint64(r.Start) + PageSize - 1) &^ (PageSize - 1)
	return Frame(first + i*PageSize)
}

// String formats the region for diagnostics.
func (r Region) String() string {
	return fmt.Sprintf("[%s-%s) %s", r.Start, r.End, r.Type)
}
