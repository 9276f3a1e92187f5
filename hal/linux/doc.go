// Package linux implements the hardware capabilities on a running Linux
// system.
//
// [SysfsConfig] reads PCI configuration space through
// /sys/bus/pci/devices/*/config. [DevMem] maps device registers from /dev/mem
// into the process at the fixed device window and returns [hal.Registers]
// over the live mapping.
//
// # Requirements
//
// Reading past the first 64 bytes of configuration space and opening
// /dev/mem both require root. Kernels built with CONFIG_STRICT_DEVMEM still
// permit mapping MMIO ranges that no driver has claimed; unbind the ehci-pci
// driver from the controller first.
package linux
