// Package hal defines the hardware access capabilities used by the boot core.
//
// Everything unsafe and non-portable is behind these interfaces: port I/O,
// volatile memory-mapped register access, and raw physical memory for page
// tables. The rest of the core is ordinary Go and never touches hardware
// directly.
//
// # Interface Overview
//
//   - [PortIO]: 32-bit port reads and writes, used for the PCI
//     configuration mechanism (address port 0xCF8, data port 0xCFC).
//   - [Registers]: width-exact, volatile reads and writes of a mapped
//     register window, as 8-, 16-, and 32-bit accesses.
//   - [PhysMemory]: 64-bit physical memory access for page-table entries.
//
// # Backends
//
// A deterministic in-memory backend for tests and simulated boots is
// available in [github.com/ardnew/ehciboot/hal/sim]. A Linux backend using
// sysfs and /dev/mem is available in [github.com/ardnew/ehciboot/hal/linux].
package hal
