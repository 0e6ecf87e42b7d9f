// Package engine defines the contract between the front-end bridge and the
// debug engine that executes the debugged program on its own goroutine.
//
// The bridge consumes this interface; it never implements stepping,
// breakpoint evaluation, or expression semantics itself.
package engine

import "fmt"

// Location identifies a source position for breakpoint placement.
type Location struct {
	// File is the source file path. Backslashes are normalized to forward
	// slashes before the location reaches the engine.
	File string

	// Line is the 1-based line number.
	Line int
}

// String returns the location formatted as "file:line".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BreakPoint is an entry in the engine-owned breakpoint table.
type BreakPoint struct {
	// Index is the unique identifier assigned by the engine when the
	// breakpoint is added. Indices are monotonically increasing and are
	// never reused within a session.
	Index int

	// File is the source file path.
	File string

	// Line is the 1-based line number.
	Line int

	// Enabled indicates whether the breakpoint is active.
	Enabled bool
}

// Location returns the breakpoint position as a Location.
func (bp BreakPoint) Location() Location {
	return Location{File: bp.File, Line: bp.Line}
}

// StackFrame is one frame of the call-stack snapshot taken by the engine at
// a suspension point. Snapshots are immutable; the engine replaces them on
// the next suspension.
type StackFrame struct {
	// Index is the frame position, 0 being the innermost frame.
	Index int

	// File is the source file of the executing line.
	File string

	// Line is the executing line number.
	Line int

	// Name is the display name of the frame (function or method).
	Name string
}

// Variable is a named value produced by a variable or evaluation query.
// Instances are transient: the bridge holds them only long enough to format
// a reply.
type Variable struct {
	// Name is the variable name, or the evaluated expression text for
	// evaluation results.
	Name string

	// Value is the engine's textual rendering of the value.
	Value string

	// Type is the declared or dynamic type name.
	Type string

	// HasChildren indicates the value has nested members that can be
	// requested via ObjectID.
	HasChildren bool

	// ObjectID is an opaque identity token usable with InstanceVariables
	// to request nested members. Rendered in hex on the wire.
	ObjectID uint64
}

// CodeLine is one numbered source line from the engine's view of the file
// currently being executed.
type CodeLine struct {
	// Number is the 1-based line number.
	Number int

	// Text is the raw line content.
	Text string
}

// Engine is the facade exposed by the debug engine.
//
// Thread-safety is an external contract, not enforced by the bridge:
// breakpoint-table and frame accessors must be safe to call from a front-end
// goroutine while the engine goroutine is parked or running. The methods
// marked engine-goroutine-only read live call-stack state and are valid only
// when invoked from the engine goroutine inside a drained deferred call.
type Engine interface {
	// AddBreakPoint registers a breakpoint and returns the stored entry
	// with its assigned index. It fails with ErrBreakpointExists or
	// ErrInvalidLocation.
	AddBreakPoint(loc Location) (BreakPoint, error)

	// RemoveBreakPoint deletes the breakpoint with the given index and
	// reports whether it existed.
	RemoveBreakPoint(index int) bool

	// BreakPoints returns a snapshot of the breakpoint table.
	BreakPoints() []BreakPoint

	// Step arms single-step mode for the next resume.
	Step()

	// StepOver arms step-over mode for the next resume.
	StepOver()

	// StepOut arms step-out mode for the next resume.
	StepOut()

	// Frames returns the call-stack snapshot of the current suspension.
	Frames() []StackFrame

	// ActiveFrameIndex returns the cursor into the current frame snapshot.
	ActiveFrameIndex() int

	// SetActiveFrameIndex moves the frame cursor. Out-of-range values are
	// ignored by the engine.
	SetActiveFrameIndex(n int)

	// ShiftActiveFrame moves the frame cursor one frame up (toward the
	// outermost frame) or down.
	ShiftActiveFrame(up bool)

	// LocalVariables returns the active frame's locals.
	// Engine-goroutine-only.
	LocalVariables() []Variable

	// GlobalVariables returns the global variables.
	// Engine-goroutine-only.
	GlobalVariables() []Variable

	// InstanceVariables returns the nested members of the object
	// identified by objectID. Engine-goroutine-only.
	InstanceVariables(objectID uint64) []Variable

	// Evaluate evaluates an expression in the active frame.
	// Engine-goroutine-only. Failures wrap ErrEvaluation.
	Evaluate(expr string) (Variable, error)

	// CodeLines returns the source lines from..to of the current file.
	// from == 0 && to == 0 requests the engine's default window around the
	// suspension point.
	CodeLines(from, to int) []CodeLine

	// BreakLine returns the line number the engine is suspended at, or 0
	// when running.
	BreakLine() int

	// IsStopped reports whether the engine goroutine is parked at a
	// suspension point.
	IsStopped() bool

	// Stop requests engine teardown. The caller must have issued a resume
	// first so the engine goroutine is not left parked.
	Stop()
}
