// Package sim provides a deterministic in-memory hardware backend.
//
// It stands in for the machine during tests and simulated boots:
//
//   - [ConfigSpace] implements [hal.PortIO] and answers PCI configuration
//     mechanism #1 cycles from per-function 256-byte images.
//   - [Registers] is a 4 KiB register bank implementing [hal.Registers]. It
//     logs every access with its width and offset.
//   - [Memory] is sparse [hal.PhysMemory] that holds page tables.
//   - [Machine] ties these together from a YAML description.
//
// # Machine descriptions
//
// A machine is described in YAML:
//
//	memory:
//	  - {start: 0x1000, end: 0x9f000, type: usable}
//	  - {start: 0x100000, end: 0x400000, type: kernel}
//	  - {start: 0x400000, end: 0x4000000, type: usable}
//	functions:
//	  - bus: 0
//	    slot: 0x1d
//	    function: 7
//	    vendor: 0x8086
//	    device: 0x293a
//	    class: 0x0c
//	    subclass: 0x03
//	    prog_if: 0x20
//	    bar0: 0xf0000000
//	    ehci: {caplength: 0x20, hciversion: 0x0100, reset_polls: 3}
//
// Every function with an ehci block gets a register bank decoded at the
// page containing its BAR0.
package sim
