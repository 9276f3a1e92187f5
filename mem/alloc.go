package mem

// FrameAllocator supplies physical frames.
type FrameAllocator interface {
	// AllocateFrame returns an unused frame, or false if none remain.
	AllocateFrame() (Frame, bool)
}

// BootAllocator hands out the usable frames of a firmware memory map in
// order. The cursor only moves forward.
type BootAllocator struct {
	regions []Region
	next    uint64
}

// NewBootAllocator returns an allocator over regions. The caller guarantees
// that every frame in a usable region is actually unused. The slice is never
// modified.
func NewBootAllocator(regions []Region) *BootAllocator {
	return &BootAllocator{regions: regions}
}

// AllocateFrame returns the next usable frame. Once the usable frames are
// exhausted it keeps returning false.
func (a *BootAllocator) AllocateFrame() (Frame, bool) {
	n := a.next
	a.next++
	if a.next == 0 {
		// Saturate instead of wrapping back to frame zero.
		a.next--
	}
	return a.nth(n)
}

// nth returns element n of the usable frame sequence, concatenated across
// usable regions in map order.
func (a *BootAllocator) nth(n uint64) (Frame, bool) {
	for _, r := range a.regions {
		if !r.Usable() {
			continue
		}
		count := r.Frames()
		if n < count {
			return r.frame(n), true
		}
		n -= count
	}
	return 0, false
}

// UsableFrames returns the total number of usable frames in the memory map.
func (a *BootAllocator) UsableFrames() uint64 {
	var total uint64
	for _, r := range a.regions {
		if r.Usable() {
			total += r.Frames()
		}
	}
	return total
}

// Allocated returns how many frames have been handed out so far.
func (a *BootAllocator) Allocated() uint64 {
	return min(a.next, a.UsableFrames())
}

// Regions returns the memory map the allocator was built from.
func (a *BootAllocator) Regions() []Region { return a.regions }
