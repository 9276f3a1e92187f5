//go:build linux

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ehciboot/pci"
	"github.com/ardnew/ehciboot/pkg"
)

// =============================================================================
// Configuration Space
// =============================================================================

// SysfsConfig implements [pci.ConfigSpace] over sysfs config files.
//
// Functions without a sysfs entry read as all ones, like an absent function
// on the bus. File descriptors are cached until Close.
type SysfsConfig struct {
	root string

	mu  sync.Mutex
	fds map[pci.Address]int // -1 for absent functions
}

// NewSysfsConfig returns a SysfsConfig rooted at root, or at [SysfsPCIPath]
// if root is empty.
func NewSysfsConfig(root string) *SysfsConfig {
	if root == "" {
		root = SysfsPCIPath
	}
	return &SysfsConfig{root: root, fds: make(map[pci.Address]int)}
}

// FunctionName returns the sysfs name of addr, e.g. "0000:00:1d.7".
func FunctionName(addr pci.Address) string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", PCIDomain, addr.Bus, addr.Slot, addr.Function)
}

// ParseFunctionName parses a sysfs function name. Functions outside
// [PCIDomain] are rejected.
func ParseFunctionName(name string) (pci.Address, error) {
	var domain, bus, slot, fn uint
	if _, err := fmt.Sscanf(name, "%04x:%02x:%02x.%1x", &domain, &bus, &slot, &fn); err != nil {
		return pci.Address{}, fmt.Errorf("%w: function name %q", pkg.ErrInvalidParameter, name)
	}
	addr := pci.Address{Bus: uint8(bus), Slot: uint8(slot), Function: uint8(fn)}
	if domain != PCIDomain || bus > 0xFF || !addr.Valid() {
		return pci.Address{}, fmt.Errorf("%w: function name %q", pkg.ErrInvalidParameter, name)
	}
	return addr, nil
}

func (c *SysfsConfig) fd(addr pci.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fd, ok := c.fds[addr]; ok {
		return fd
	}
	path := filepath.Join(c.root, FunctionName(addr), "config")
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		fd = -1
		if !os.IsNotExist(err) {
			pkg.LogWarn(pkg.ComponentHAL, "open config space", "path", path, "error", err)
		}
	}
	c.fds[addr] = fd
	return fd
}

// ReadConfig32 implements pci.ConfigSpace. Dwords the caller may not read,
// such as those past the first 64 bytes without root, read as all ones.
func (c *SysfsConfig) ReadConfig32(addr pci.Address, offset uint8) uint32 {
	fd := c.fd(addr)
	if fd < 0 {
		return 0xFFFF_FFFF
	}
	var buf [4]byte
	n, err := unix.Pread(fd, buf[:], int64(offset&0xFC))
	if err != nil || n != len(buf) {
		return 0xFFFF_FFFF
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

// Close releases every cached file descriptor.
func (c *SysfsConfig) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for addr, fd := range c.fds {
		if fd >= 0 {
			if err := unix.Close(fd); err != nil && first == nil {
				first = err
			}
		}
		delete(c.fds, addr)
	}
	return first
}

// =============================================================================
// Function Listing
// =============================================================================

// Functions lists the functions present in sysfs, in address order, using
// the kernel's attribute files rather than configuration reads.
func (c *SysfsConfig) Functions() ([]pci.Device, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}

	var devices []pci.Device
	for _, entry := range entries {
		addr, err := ParseFunctionName(entry.Name())
		if err != nil {
			continue // other PCI segments
		}
		dev, err := c.parseFunction(addr)
		if err != nil {
			pkg.LogDebug(pkg.ComponentHAL, "skip function", "name", entry.Name(), "error", err)
			continue
		}
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i].Address, devices[j].Address
		if a.Bus != b.Bus {
			return a.Bus < b.Bus
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Function < b.Function
	})
	return devices, nil
}

func (c *SysfsConfig) parseFunction(addr pci.Address) (pci.Device, error) {
	dir := filepath.Join(c.root, FunctionName(addr))
	dev := pci.Device{Address: addr}

	vendor, err := readSysfsHex(filepath.Join(dir, "vendor"), 16)
	if err != nil {
		return dev, err
	}
	dev.VendorID = uint16(vendor)

	if device, err := readSysfsHex(filepath.Join(dir, "device"), 16); err == nil {
		dev.DeviceID = uint16(device)
	}
	// class is 0xCCSSPP
	if class, err := readSysfsHex(filepath.Join(dir, "class"), 24); err == nil {
		dev.Class = uint8(class >> 16)
		dev.Subclass = uint8(class >> 8)
		dev.ProgIF = uint8(class)
	}
	// The first resource line is "start end flags" for BAR0.
	if res, err := readSysfsString(filepath.Join(dir, "resource")); err == nil {
		dev.BAR0 = parseResourceBAR(res)
	}
	return dev, nil
}

// parseResourceBAR returns the BAR0 base from the first line of a sysfs
// resource file, or 0 if it is not a 32-bit address.
func parseResourceBAR(resource string) uint32 {
	line, _, _ := strings.Cut(resource, "\n")
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return 0
	}
	start, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
	if err != nil || start > 0xFFFF_FFFF {
		return 0
	}
	return uint32(start)
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsHex reads a hexadecimal value from a sysfs attribute file.
func readSysfsHex(path string, bitSize int) (uint64, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, bitSize)
}
