// Package boot wires the hardware bring-up of a single EHCI controller.
//
// A [Sequence] runs once, single-threaded, before interrupts are enabled:
//
//	report, err := seq.Run(ctx)
//	switch {
//	case errors.Is(err, pkg.ErrNotFound):
//		// no controller, boot continues without USB
//	case err != nil:
//		// device bring-up failed
//	}
//
// [Config] carries the boot settings that can be loaded from YAML.
package boot
