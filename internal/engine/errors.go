package engine

import "errors"

// Sentinel errors for the engine facade.
var (
	// ErrBreakpointExists is returned when a breakpoint is already set at
	// the requested location.
	ErrBreakpointExists = errors.New("breakpoint already set")

	// ErrInvalidLocation is returned when a breakpoint location does not
	// resolve to an executable line.
	ErrInvalidLocation = errors.New("invalid breakpoint location")

	// ErrEvaluation is returned (wrapped) when expression evaluation fails
	// inside the engine.
	ErrEvaluation = errors.New("evaluation failed")

	// ErrStopped is returned when an operation requires a running engine
	// after teardown has begun.
	ErrStopped = errors.New("engine stopped")
)
