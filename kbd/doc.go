// Package kbd bridges keyboard interrupts to a cooperative task.
//
// The interrupt handler calls [Deliver] with each raw scancode. The keyboard
// task owns the [Stream] returned by [NewStream] and polls it:
//
//	s := kbd.NewStream(kbd.DefaultCapacity)
//	ex.Spawn(kbd.NewPrinter(s, os.Stdout))
//
// Deliveries before NewStream, and deliveries to a full queue, are dropped
// with a warning. NewStream may be called only once; a second call panics.
package kbd
