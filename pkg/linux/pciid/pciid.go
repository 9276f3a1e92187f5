//go:build linux

package pciid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ardnew/ehciboot/pkg"
)

// DefaultPaths lists the standard locations for the PCI ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// Database caches names from the PCI ID database.
type Database struct {
	vendors    map[uint16]string // vendor -> name
	devices    map[uint32]string // vendor<<16 | device -> name
	classes    map[uint8]string  // class -> name
	subclasses map[uint16]string // class<<8 | subclass -> name
	progIFs    map[uint32]string // class<<16 | subclass<<8 | prog-if -> name
	loaded     bool
	mu         sync.RWMutex
	paths      []string
}

// New creates a database that searches the default paths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a database that searches paths in order.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors:    make(map[uint16]string),
		devices:    make(map[uint32]string),
		classes:    make(map[uint8]string),
		subclasses: make(map[uint16]string),
		progIFs:    make(map[uint32]string),
		paths:      paths,
	}
}

// Load parses the first database file found that reads cleanly. A file that
// fails mid-read is discarded with a warning and the next path is tried. Load
// is idempotent: later calls do nothing.
//
// Returns true if a database was loaded, now or earlier.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0 || len(db.classes) > 0
	}
	// Mark as loaded even if no file is found to prevent repeated searches.
	db.loaded = true

	for _, path := range db.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.parse(file)
		file.Close()
		if err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "discarding unreadable pci.ids",
				"path", path,
				"error", err)
			db.clear()
			continue
		}
		return true
	}
	return false
}

// clear drops every name parsed so far.
func (db *Database) clear() {
	clear(db.vendors)
	clear(db.devices)
	clear(db.classes)
	clear(db.subclasses)
	clear(db.progIFs)
}

// Parse reads database text from r, adding to any names already loaded.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	return db.parse(r)
}

// parse handles both sections of the format:
//
//	vvvv  Vendor            dddd under a vendor is a device;
//	\tdddd  Device          \t\t lines are subsystems and are skipped.
//	C cc  Class
//	\tss  Subclass
//	\t\tpp  Programming interface
func (db *Database) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var (
		vendor   uint16
		class    uint8
		subclass uint8
		inClass  bool
		inVendor bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		depth := len(line) - len(strings.TrimLeft(line, "\t"))
		body := line[depth:]

		switch {
		case depth == 0 && strings.HasPrefix(body, "C "):
			id, name, ok := splitEntry(body[2:], 8)
			inClass, inVendor = ok, false
			if ok {
				class = uint8(id)
				db.classes[class] = name
			}
		case depth == 0:
			id, name, ok := splitEntry(body, 16)
			inVendor, inClass = ok, false
			if ok {
				vendor = uint16(id)
				db.vendors[vendor] = name
			}
		case depth == 1 && inVendor:
			if id, name, ok := splitEntry(body, 16); ok {
				db.devices[uint32(vendor)<<16|uint32(id)] = name
			}
		case depth == 1 && inClass:
			if id, name, ok := splitEntry(body, 8); ok {
				subclass = uint8(id)
				db.subclasses[uint16(class)<<8|uint16(subclass)] = name
			}
		case depth == 2 && inClass:
			if id, name, ok := splitEntry(body, 8); ok {
				db.progIFs[uint32(class)<<16|uint32(subclass)<<8|uint32(id)] = name
			}
		}
	}
	return scanner.Err()
}

// splitEntry splits "id  name" into its hex id and name.
func splitEntry(s string, bitSize int) (uint64, string, bool) {
	idStr, name, ok := strings.Cut(s, " ")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idStr, 16, bitSize)
	if err != nil {
		return 0, "", false
	}
	return id, strings.TrimLeft(name, " "), true
}

// LookupVendor returns the vendor name, or "" if unknown.
func (db *Database) LookupVendor(vendor uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vendor]
}

// LookupDevice returns the device name, or "" if unknown.
func (db *Database) LookupDevice(vendor, device uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.devices[uint32(vendor)<<16|uint32(device)]
}

// LookupClass returns the most specific known name for a class triple: the
// programming interface, then the subclass, then the class.
func (db *Database) LookupClass(class, subclass, progIF uint8) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if name, ok := db.progIFs[uint32(class)<<16|uint32(subclass)<<8|uint32(progIF)]; ok {
		return name
	}
	if name, ok := db.subclasses[uint16(class)<<8|uint16(subclass)]; ok {
		return name
	}
	return db.classes[class]
}

// IsLoaded returns true once Load or Parse has run.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// VendorCount returns the number of vendors in the database.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// DeviceCount returns the number of devices in the database.
func (db *Database) DeviceCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.devices)
}
