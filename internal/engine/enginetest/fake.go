// Package enginetest provides a scriptable Engine implementation for binding
// and dispatcher tests.
package enginetest

import (
	"fmt"
	"sync"

	"github.com/sudb/sudb/internal/engine"
)

// Fake implements engine.Engine with canned state and a call log.
//
// Breakpoint indices are monotonic from zero and never reused, and duplicate
// locations are rejected, matching the contract real engines follow. All
// other state is set directly on the struct before use.
type Fake struct {
	mu sync.Mutex

	breakpoints []engine.BreakPoint
	nextIndex   int

	calls []string

	// FramesVal and ActiveIdx back Frames and the frame cursor.
	FramesVal []engine.StackFrame
	ActiveIdx int

	// Locals, Globals, and Instances back the variable fetches.
	Locals    []engine.Variable
	Globals   []engine.Variable
	Instances map[uint64][]engine.Variable

	// EvalFn backs Evaluate. Nil means every expression fails.
	EvalFn func(expr string) (engine.Variable, error)

	// Lines and BreakLineVal back the source queries.
	Lines        []engine.CodeLine
	BreakLineVal int

	// StoppedVal is returned by IsStopped.
	StoppedVal bool

	stopCalled bool
}

var _ engine.Engine = (*Fake)(nil)

// NewFake returns an empty fake in the suspended state.
func NewFake() *Fake {
	return &Fake{StoppedVal: true}
}

// Calls returns the mutating operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// StopCalled reports whether Stop has been invoked.
func (f *Fake) StopCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalled
}

func (f *Fake) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *Fake) AddBreakPoint(loc engine.Location) (engine.BreakPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("AddBreakPoint(%s)", loc))
	for _, bp := range f.breakpoints {
		if bp.File == loc.File && bp.Line == loc.Line {
			return engine.BreakPoint{}, engine.ErrBreakpointExists
		}
	}
	bp := engine.BreakPoint{
		Index:   f.nextIndex,
		File:    loc.File,
		Line:    loc.Line,
		Enabled: true,
	}
	f.nextIndex++
	f.breakpoints = append(f.breakpoints, bp)
	return bp, nil
}

func (f *Fake) RemoveBreakPoint(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("RemoveBreakPoint(%d)", index))
	for i, bp := range f.breakpoints {
		if bp.Index == index {
			f.breakpoints = append(f.breakpoints[:i], f.breakpoints[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Fake) BreakPoints() []engine.BreakPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.BreakPoint(nil), f.breakpoints...)
}

func (f *Fake) Step() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Step")
}

func (f *Fake) StepOver() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("StepOver")
}

func (f *Fake) StepOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("StepOut")
}

func (f *Fake) Frames() []engine.StackFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.StackFrame(nil), f.FramesVal...)
}

func (f *Fake) ActiveFrameIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ActiveIdx
}

func (f *Fake) SetActiveFrameIndex(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("SetActiveFrameIndex(%d)", index))
	f.ActiveIdx = index
}

func (f *Fake) ShiftActiveFrame(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("ShiftActiveFrame(%t)", up))
	if up && f.ActiveIdx < len(f.FramesVal)-1 {
		f.ActiveIdx++
	}
	if !up && f.ActiveIdx > 0 {
		f.ActiveIdx--
	}
}

func (f *Fake) LocalVariables() []engine.Variable {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LocalVariables")
	return append([]engine.Variable(nil), f.Locals...)
}

func (f *Fake) GlobalVariables() []engine.Variable {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GlobalVariables")
	return append([]engine.Variable(nil), f.Globals...)
}

func (f *Fake) InstanceVariables(objectID uint64) []engine.Variable {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("InstanceVariables(%x)", objectID))
	return append([]engine.Variable(nil), f.Instances[objectID]...)
}

func (f *Fake) Evaluate(expr string) (engine.Variable, error) {
	f.mu.Lock()
	fn := f.EvalFn
	f.record(fmt.Sprintf("Evaluate(%s)", expr))
	f.mu.Unlock()
	if fn == nil {
		return engine.Variable{}, fmt.Errorf("%w: %s", engine.ErrEvaluation, expr)
	}
	return fn(expr)
}

func (f *Fake) CodeLines(from, to int) []engine.CodeLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from == 0 && to == 0 {
		return append([]engine.CodeLine(nil), f.Lines...)
	}
	var out []engine.CodeLine
	for _, ln := range f.Lines {
		if ln.Number >= from && ln.Number <= to {
			out = append(out, ln)
		}
	}
	return out
}

func (f *Fake) BreakLine() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BreakLineVal
}

func (f *Fake) IsStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StoppedVal
}

func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Stop")
	f.stopCalled = true
}
