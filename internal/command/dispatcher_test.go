package command

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sudb/sudb/internal/engine"
	"github.com/sudb/sudb/internal/engine/enginetest"
	"github.com/sudb/sudb/internal/gate"
	"github.com/sudb/sudb/internal/logging"
)

const waitTimeout = 2 * time.Second

// recordingResponder captures responder calls as formatted strings.
type recordingResponder struct {
	mu      sync.Mutex
	entries []string
	signal  chan struct{}
}

func newRecordingResponder() *recordingResponder {
	return &recordingResponder{signal: make(chan struct{}, 16)}
}

func (r *recordingResponder) add(entry string) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *recordingResponder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

// waitFor blocks until an entry containing substr has been recorded.
func (r *recordingResponder) waitFor(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		for _, e := range r.all() {
			if strings.Contains(e, substr) {
				return e
			}
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("no responder entry containing %q; got %v", substr, r.all())
		}
	}
}

func (r *recordingResponder) BreakpointAdded(bp engine.BreakPoint) {
	r.add("added " + bp.Location().String())
}
func (r *recordingResponder) BreakpointAddFailed(loc engine.Location, err error) {
	r.add("addFailed " + loc.String() + ": " + err.Error())
}
func (r *recordingResponder) BreakpointDeleted(index int) { r.add("deleted") }
func (r *recordingResponder) BreakpointDeleteFailed(index int) {
	r.add("deleteFailed")
}
func (r *recordingResponder) BreakpointList(bps []engine.BreakPoint) {
	r.add("list")
}
func (r *recordingResponder) Frames(frames []engine.StackFrame, active int) {
	r.add("frames")
}
func (r *recordingResponder) Threads() { r.add("threads") }
func (r *recordingResponder) Source(lines []engine.CodeLine, current int) {
	r.add("source")
}
func (r *recordingResponder) Variables(kind string, vars []engine.Variable) {
	entry := "variables " + kind
	for _, v := range vars {
		entry += " " + v.Name + "=" + v.Value
	}
	r.add(entry)
}
func (r *recordingResponder) EvalResult(v engine.Variable, err error) {
	if err != nil {
		r.add("evalErr " + err.Error())
		return
	}
	r.add("eval " + v.Value)
}
func (r *recordingResponder) Help()              { r.add("help") }
func (r *recordingResponder) Unknown(cmd string) { r.add("unknown " + cmd) }

func newTestDispatcher(f *enginetest.Fake) (*Dispatcher, *gate.Gate, *recordingResponder) {
	g := gate.New()
	resp := newRecordingResponder()
	d := NewDispatcher(f, g, resp, gate.Direct{}, logging.Nop())
	return d, g, resp
}

// park suspends a fake engine goroutine in the gate.
func park(t *testing.T, g *gate.Gate) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		g.EngineSuspend()
		close(done)
	}()
	deadline := time.Now().Add(waitTimeout)
	for !g.Suspended() {
		if time.Now().After(deadline) {
			t.Fatal("engine never parked")
		}
		time.Sleep(time.Millisecond)
	}
	return done
}

func resumeAndJoin(t *testing.T, g *gate.Gate, done <-chan struct{}) {
	t.Helper()
	g.RequestResume()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("engine never resumed")
	}
}

func TestExecuteAddBreakpoint(t *testing.T) {
	f := enginetest.NewFake()
	d, _, resp := newTestDispatcher(f)

	d.Execute(Action{Op: OpAddBreakpoint, File: "a.rb", Line: 3})
	resp.waitFor(t, "added a.rb:3")

	d.Execute(Action{Op: OpAddBreakpoint, File: "a.rb", Line: 3})
	resp.waitFor(t, "addFailed")
}

func TestExecuteDeleteBreakpoint(t *testing.T) {
	f := enginetest.NewFake()
	d, _, resp := newTestDispatcher(f)

	d.Execute(Action{Op: OpAddBreakpoint, File: "a.rb", Line: 3})
	d.Execute(Action{Op: OpDeleteBreakpoint, Index: 0})
	resp.waitFor(t, "deleted")

	d.Execute(Action{Op: OpDeleteBreakpoint, Index: 9})
	resp.waitFor(t, "deleteFailed")
}

func TestExecuteResumeOps(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		wantCall string
	}{
		{"continue", OpContinue, ""},
		{"step", OpStep, "Step"},
		{"step out", OpStepOut, "StepOut"},
		{"next", OpNext, "StepOver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := enginetest.NewFake()
			d, g, _ := newTestDispatcher(f)
			done := park(t, g)

			d.Execute(Action{Op: tt.op})
			select {
			case <-done:
			case <-time.After(waitTimeout):
				t.Fatal("resume op did not unpark the engine")
			}

			if tt.wantCall != "" {
				calls := f.Calls()
				if len(calls) != 1 || calls[0] != tt.wantCall {
					t.Errorf("engine calls = %v, want [%s]", calls, tt.wantCall)
				}
			}
		})
	}
}

func TestExecuteDeferredVariables(t *testing.T) {
	f := enginetest.NewFake()
	f.Locals = []engine.Variable{{Name: "x", Value: "1"}}
	f.Globals = []engine.Variable{{Name: "$g", Value: "2"}}
	f.Instances = map[uint64][]engine.Variable{0xff: {{Name: "@a", Value: "3"}}}

	d, g, resp := newTestDispatcher(f)
	done := park(t, g)

	d.Execute(Action{Op: OpLocalVariables})
	resp.waitFor(t, "variables local x=1")

	d.Execute(Action{Op: OpGlobalVariables})
	resp.waitFor(t, "variables global $g=2")

	d.Execute(Action{Op: OpInstanceVariables, ObjectID: 0xff})
	resp.waitFor(t, "variables instance @a=3")

	resumeAndJoin(t, g, done)
}

func TestExecuteEvaluate(t *testing.T) {
	f := enginetest.NewFake()
	f.EvalFn = func(expr string) (engine.Variable, error) {
		return engine.Variable{Name: expr, Value: "42"}, nil
	}

	d, g, resp := newTestDispatcher(f)
	done := park(t, g)

	d.Execute(Action{Op: OpEvaluate, Expression: "6*7"})
	resp.waitFor(t, "eval 42")

	resumeAndJoin(t, g, done)
}

func TestExecuteWatchEvaluateError(t *testing.T) {
	f := enginetest.NewFake()

	d, g, resp := newTestDispatcher(f)
	done := park(t, g)

	// Failed watch evaluation reports the error text as the value.
	d.Execute(Action{Op: OpWatchEvaluate, Expression: "boom"})
	resp.waitFor(t, "variables watch boom=")

	resumeAndJoin(t, g, done)
}

func TestExecuteQuit(t *testing.T) {
	f := enginetest.NewFake()
	d, g, _ := newTestDispatcher(f)
	done := park(t, g)

	d.Execute(Action{Op: OpQuit})
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("quit did not unpark the engine")
	}
	if !f.StopCalled() {
		t.Error("quit did not stop the engine")
	}
}

func TestExecuteUnknown(t *testing.T) {
	f := enginetest.NewFake()
	d, _, resp := newTestDispatcher(f)

	d.Execute(Action{Op: OpUnknown, Raw: "flarp"})
	resp.waitFor(t, "unknown flarp")
}
