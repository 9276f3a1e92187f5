package kbd

import (
	"fmt"
	"io"

	"github.com/ardnew/ehciboot/pkg"
	"github.com/ardnew/ehciboot/task"
)

// Printer is a task that drains a Stream and writes one line per scancode.
// Scancodes are not decoded.
type Printer struct {
	stream  *Stream
	out     io.Writer
	stop    byte
	hasStop bool
	count   int
}

// NewPrinter returns a Printer writing scancodes from s to w.
func NewPrinter(s *Stream, w io.Writer) *Printer {
	return &Printer{stream: s, out: w}
}

// StopOn makes the printer finish after it prints scancode b.
func (p *Printer) StopOn(b byte) *Printer {
	p.stop = b
	p.hasStop = true
	return p
}

// Count returns how many scancodes have been printed.
func (p *Printer) Count() int { return p.count }

// Poll implements task.Task.
func (p *Printer) Poll(cx *task.Context) task.Status {
	for {
		b, ok := p.stream.PollNext(cx)
		if !ok {
			return task.Pending
		}
		p.count++
		if _, err := fmt.Fprintf(p.out, "scancode 0x%02x\n", b); err != nil {
			pkg.LogError(pkg.ComponentKbd, "print scancode", "error", err)
		}
		if p.hasStop && b == p.stop {
			pkg.LogDebug(pkg.ComponentKbd, "printer stopped",
				"count", p.count,
				"stats", p.stream.Stats().String())
			return task.Ready
		}
	}
}
