package linux

// SysfsPCIPath is the base path for PCI functions in sysfs.
const SysfsPCIPath = "/sys/bus/pci/devices"

// DevMemPath is the physical memory device.
const DevMemPath = "/dev/mem"

// PCIDomain is the only PCI segment enumerated. Legacy configuration
// mechanism #1 reaches segment 0 only.
const PCIDomain = 0

// configSpaceSize is the size of the conventional configuration header
// readable through sysfs.
const configSpaceSize = 256
