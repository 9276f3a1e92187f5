package pkg

import "errors"

// Enumeration errors.
var (
	// ErrNotFound indicates no function matched the requested signature after
	// the whole configuration space was scanned.
	ErrNotFound = errors.New("device not found")
)

// Memory and mapping errors.
var (
	// ErrMapping indicates a page-table installation failed. Device bring-up
	// cannot continue past it.
	ErrMapping = errors.New("mapping failed")

	// ErrFrameExhausted indicates the frame allocator has no usable frames left.
	ErrFrameExhausted = errors.New("frame allocator exhausted")

	// ErrAlreadyMapped indicates the target virtual page already has a mapping.
	ErrAlreadyMapped = errors.New("page already mapped")

	// ErrNotMapped indicates the virtual page has no mapping.
	ErrNotMapped = errors.New("page not mapped")

	// ErrHugePage indicates a parent entry maps a huge page, so no 4 KiB
	// table exists below it.
	ErrHugePage = errors.New("parent entry maps a huge page")

	// ErrCacheable indicates device memory was reached through a mapping
	// without cache-disable.
	ErrCacheable = errors.New("device memory mapped cacheable")
)

// Interrupt bridge errors. These are reported to the drop hook and never
// returned to the interrupt source.
var (
	// ErrQueueUninitialized indicates a delivery arrived before the consumer
	// initialized the scancode queue.
	ErrQueueUninitialized = errors.New("scancode queue uninitialized")

	// ErrQueueFull indicates the scancode queue was full and the newest byte
	// was dropped.
	ErrQueueFull = errors.New("scancode queue full")
)

// General errors.
var (
	// ErrInvalidState indicates an invalid controller state for the operation.
	ErrInvalidState = errors.New("invalid controller state")

	// ErrTimeout indicates a bounded hardware wait expired.
	ErrTimeout = errors.New("hardware wait timeout")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")
)
