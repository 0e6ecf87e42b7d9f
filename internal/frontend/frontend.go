// Package frontend defines the engine-facing notification contract shared by
// the debugger's user interfaces.
package frontend

import "github.com/sudb/sudb/internal/engine"

// Frontend receives engine notifications. Both calls arrive on the engine
// goroutine while execution is suspended; implementations must not call back
// into engine-goroutine-only operations.
type Frontend interface {
	// BreakpointHit announces that execution stopped on the breakpoint bp.
	BreakpointHit(bp engine.BreakPoint)

	// SuspendedAt announces that execution is suspended at file:line for a
	// reason other than a breakpoint (step completion, initial stop). The
	// two notifications are alternatives; a suspension raises exactly one.
	SuspendedAt(file string, line int)
}
