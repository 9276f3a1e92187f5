package boot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/ehciboot/ehci"
	"github.com/ardnew/ehciboot/hal"
	"github.com/ardnew/ehciboot/mem"
	"github.com/ardnew/ehciboot/mmu"
	"github.com/ardnew/ehciboot/pci"
	"github.com/ardnew/ehciboot/pkg"
)

// WindowFunc returns register access for the mapped window at va.
type WindowFunc func(va mem.VirtAddr) (hal.Registers, error)

// Sequence is the device bring-up run before interrupts are enabled:
// enumerate, map, probe, reset.
type Sequence struct {
	Enum   *pci.Enumerator
	Frames mem.FrameAllocator
	Mapper mmu.Mapper
	Window WindowFunc

	// ResetTimeout bounds the reset wait. Zero waits forever.
	ResetTimeout time.Duration

	// SkipReset stops after Probe.
	SkipReset bool
}

// Report describes how far bring-up got.
type Report struct {
	Device       pci.Device
	Virt         mem.VirtAddr
	Capabilities ehci.Capabilities
	State        ehci.State
	ResetPolls   uint64
}

// Run brings up the first EHCI controller.
//
// When no controller exists, Run returns an error matching
// [pkg.ErrNotFound] and a nil Report; the caller should carry on without
// USB. Any other error is fatal for the device and comes with a Report of
// the progress made. ctx only matters when ResetTimeout is set.
func (s *Sequence) Run(ctx context.Context) (*Report, error) {
	dev, err := s.Enum.FindEHCI()
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			pkg.LogWarn(pkg.ComponentBoot, "no EHCI controller found")
		}
		return nil, err
	}
	pkg.LogInfo(pkg.ComponentBoot, "EHCI controller found",
		"address", dev.Address.String(),
		"vendor", fmt.Sprintf("0x%04x", dev.VendorID),
		"device", fmt.Sprintf("0x%04x", dev.DeviceID),
		"bar0", fmt.Sprintf("0x%08x", dev.BAR0))

	ctrl := ehci.New(dev)
	report := &Report{Device: dev, State: ctrl.State()}
	if dev.IsIO() {
		return report, fmt.Errorf("%w: BAR0 %#x decodes I/O space", pkg.ErrNotSupported, dev.BAR0)
	}

	phys := mem.PhysAddr(dev.MemoryBase())
	virt, err := mmu.MapDeviceRegion(phys, s.Mapper, s.Frames)
	if err != nil {
		pkg.LogError(pkg.ComponentBoot, "failed to map EHCI registers", "error", err)
		return report, err
	}
	report.Virt = virt
	pkg.LogInfo(pkg.ComponentBoot, "EHCI registers mapped",
		"phys", phys.String(),
		"virt", virt.String())

	regs, err := s.Window(virt)
	if err != nil {
		return report, fmt.Errorf("register window at %s: %w", virt, err)
	}
	if err := ctrl.Attach(virt, regs); err != nil {
		return report, err
	}
	report.State = ctrl.State()

	caps, err := ctrl.Probe()
	if err != nil {
		return report, err
	}
	report.Capabilities = caps
	report.State = ctrl.State()
	if s.SkipReset {
		return report, nil
	}

	if s.ResetTimeout > 0 {
		rctx, cancel := context.WithTimeout(ctx, s.ResetTimeout)
		err = ctrl.ResetContext(rctx)
		cancel()
	} else {
		err = ctrl.Reset()
	}
	report.State = ctrl.State()
	report.ResetPolls = ctrl.ResetPolls()
	return report, err
}
