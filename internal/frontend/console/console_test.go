package console

import (
	"bytes"
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

// syncBuffer makes bytes.Buffer safe for the engine and console goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runConsole feeds input through a plain-reader console and returns the
// output after the input is exhausted.
func runConsole(t *testing.T, f *enginetest.Fake, g *gate.Gate, input string) string {
	t.Helper()
	out := &syncBuffer{}
	c := New(f, g, Config{In: strings.NewReader(input), Out: out}, logging.Nop())
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestIllegalCommand(t *testing.T) {
	f := enginetest.NewFake()
	out := runConsole(t, f, gate.New(), "del 3\n")
	if !strings.Contains(out, "Cannot remove breakpoint") {
		t.Errorf("output missing delete failure: %q", out)
	}

	out = runConsole(t, f, gate.New(), "v bogus\n")
	if !strings.Contains(out, "Illegal command") {
		t.Errorf("output missing illegal command: %q", out)
	}
}

func TestPromptReflectsEngineState(t *testing.T) {
	f := enginetest.NewFake()
	f.StoppedVal = true
	out := runConsole(t, f, gate.New(), "")
	if !strings.Contains(out, "sudb (stopped): ") {
		t.Errorf("prompt missing stopped state: %q", out)
	}

	f.StoppedVal = false
	out = runConsole(t, f, gate.New(), "")
	if !strings.Contains(out, "sudb (running): ") {
		t.Errorf("prompt missing running state: %q", out)
	}
}

func TestBreakpointListing(t *testing.T) {
	f := enginetest.NewFake()
	out := runConsole(t, f, gate.New(), "b\n")
	if !strings.Contains(out, "No breakpoints") {
		t.Errorf("output missing empty listing: %q", out)
	}

	out = runConsole(t, f, gate.New(), "b foo.rb:4\nb\n")
	if !strings.Contains(out, "Added breakpoint:") {
		t.Errorf("output missing add confirmation: %q", out)
	}
	if !strings.Contains(out, "Breakpoints:") || !strings.Contains(out, "  0 foo.rb:4") {
		t.Errorf("output missing listing entry: %q", out)
	}
}

func TestBreakpointAddFailure(t *testing.T) {
	f := enginetest.NewFake()
	out := runConsole(t, f, gate.New(), "b a.rb:1\nb a.rb:1\n")
	if !strings.Contains(out, "Cannot add breakpoint") {
		t.Errorf("output missing add failure: %q", out)
	}
}

func TestFrameDisplay(t *testing.T) {
	f := enginetest.NewFake()
	f.FramesVal = []engine.StackFrame{
		{Index: 0, Name: "inner"},
		{Index: 1, Name: "outer"},
	}
	out := runConsole(t, f, gate.New(), "w\n")
	if !strings.Contains(out, "--> #1 inner") {
		t.Errorf("output missing active frame marker: %q", out)
	}
	if !strings.Contains(out, "    #2 outer") {
		t.Errorf("output missing outer frame: %q", out)
	}
}

func TestSourceListing(t *testing.T) {
	f := enginetest.NewFake()
	f.Lines = []engine.CodeLine{
		{Number: 1, Text: "first"},
		{Number: 2, Text: "second"},
	}
	f.BreakLineVal = 2
	out := runConsole(t, f, gate.New(), "l\n")
	if !strings.Contains(out, "     1  first") {
		t.Errorf("output missing plain line: %q", out)
	}
	if !strings.Contains(out, "=>   2  second") {
		t.Errorf("output missing current-line marker: %q", out)
	}
}

func TestDeferredEvaluation(t *testing.T) {
	f := enginetest.NewFake()
	f.EvalFn = func(expr string) (engine.Variable, error) {
		return engine.Variable{Name: expr, Value: "42"}, nil
	}
	g := gate.New()

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

	out := &syncBuffer{}
	c := New(f, g, Config{In: strings.NewReader("p 6*7\nc\n"), Out: out}, logging.Nop())
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The delivery prints on the engine goroutine; it has run by the time
	// the suspension ends.
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("continue did not resume the engine")
	}
	if got := out.String(); !strings.Contains(got, "\n42\n") {
		t.Errorf("output missing evaluation result: %q", got)
	}
}

func TestDeferredVariables(t *testing.T) {
	f := enginetest.NewFake()
	f.Locals = []engine.Variable{{Name: "x", Value: "1"}}
	g := gate.New()

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

	out := &syncBuffer{}
	c := New(f, g, Config{In: strings.NewReader("v l\nc\n"), Out: out}, logging.Nop())
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("continue did not resume the engine")
	}
	if got := out.String(); !strings.Contains(got, "  x => 1") {
		t.Errorf("output missing variable line: %q", got)
	}
}

func TestHelp(t *testing.T) {
	f := enginetest.NewFake()
	out := runConsole(t, f, gate.New(), "h\n")
	if !strings.Contains(out, "Debugger help") {
		t.Errorf("output missing help: %q", out)
	}
	if !strings.Contains(out, "p expression") {
		t.Errorf("output missing help entries: %q", out)
	}
}

func TestNotificationsPrintSourceLine(t *testing.T) {
	f := enginetest.NewFake()
	f.Lines = []engine.CodeLine{{Number: 1, Text: "set x 1"}}
	f.BreakLineVal = 1

	out := &syncBuffer{}
	c := New(f, gate.New(), Config{In: strings.NewReader(""), Out: out}, logging.Nop())

	c.BreakpointHit(engine.BreakPoint{Index: 0, File: "a.sim", Line: 1})
	if !strings.Contains(out.String(), "BreakPoint 0 at a.sim:1") {
		t.Errorf("output missing breakpoint banner: %q", out.String())
	}
	if !strings.Contains(out.String(), "Line 1: set x 1") {
		t.Errorf("output missing current line: %q", out.String())
	}

	c.SuspendedAt("a.sim", 1)
	if !strings.Contains(out.String(), "Stopped at a.sim:1") {
		t.Errorf("output missing stop banner: %q", out.String())
	}
}
