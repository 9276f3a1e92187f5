// Package pkg provides shared utilities for the ehciboot bring-up core.
//
// This package contains common functionality used by every boot component,
// including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for enumeration, mapping, and bridge failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logger is the diagnostic sink for the boot sequence. It reports the
// discovered device, the mapping result, probe register values, and dropped
// keyboard input:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentEHCI, "probe", "caplength", 0x20)
//
// # Errors
//
// Failures are sentinel values, wrapped with context where useful:
//
//	if errors.Is(err, pkg.ErrNotFound) {
//	    // Continue booting without the controller
//	}
package pkg
