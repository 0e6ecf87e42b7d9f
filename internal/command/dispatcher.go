package command

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sudb/sudb/internal/engine"
	"github.com/sudb/sudb/internal/gate"
)

// Responder renders dispatcher results in a binding's wire representation.
// Immediate results are produced on the goroutine that called Execute;
// deferred results arrive on the binding's delivery executor.
type Responder interface {
	// BreakpointAdded acknowledges a successful breakpoint add.
	BreakpointAdded(bp engine.BreakPoint)

	// BreakpointAddFailed reports an engine rejection of a breakpoint add.
	BreakpointAddFailed(loc engine.Location, err error)

	// BreakpointDeleted acknowledges a successful breakpoint delete.
	BreakpointDeleted(index int)

	// BreakpointDeleteFailed reports a delete of an unknown index.
	BreakpointDeleteFailed(index int)

	// BreakpointList reports the breakpoint table.
	BreakpointList(bps []engine.BreakPoint)

	// Frames reports the stack snapshot and the active-frame cursor.
	Frames(frames []engine.StackFrame, active int)

	// Threads reports the fixed single synthetic thread.
	Threads()

	// Source reports a source listing; current is the suspension line.
	Source(lines []engine.CodeLine, current int)

	// Variables reports a variable fetch. kind is "local", "global",
	// "instance", or "watch".
	Variables(kind string, vars []engine.Variable)

	// EvalResult reports a plain evaluation (console "p" and bare text).
	EvalResult(v engine.Variable, err error)

	// Help prints the command summary.
	Help()

	// Unknown reports a line that matched no grammar rule.
	Unknown(cmd string)
}

// quitResumeWait bounds how long the quit path waits for the engine to
// acknowledge its resume before teardown proceeds anyway.
const quitResumeWait = 2 * time.Second

// Dispatcher executes parsed actions for one front-end binding.
//
// One instance exists per binding; they share the engine and the gate but
// carry the binding's own responder and delivery executor.
type Dispatcher struct {
	engine engine.Engine
	gate   *gate.Gate
	resp   Responder
	exec   gate.Executor
	log    zerolog.Logger
}

// NewDispatcher creates a dispatcher for one binding. exec is the delivery
// executor handed to the gate with every deferred call; pass gate.Direct{}
// for bindings without thread affinity.
func NewDispatcher(eng engine.Engine, g *gate.Gate, resp Responder, exec gate.Executor, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		engine: eng,
		gate:   g,
		resp:   resp,
		exec:   exec,
		log:    log,
	}
}

// Execute runs one action to completion of its dispatch. For deferred
// actions the reply has not been produced when Execute returns; it arrives
// on the delivery executor after the engine drains its mailbox.
func (d *Dispatcher) Execute(act Action) {
	switch act.Op {
	case OpAddBreakpoint:
		loc := engine.Location{File: act.File, Line: act.Line}
		bp, err := d.engine.AddBreakPoint(loc)
		if err != nil {
			d.log.Debug().Str("location", loc.String()).Err(err).Msg("breakpoint rejected")
			d.resp.BreakpointAddFailed(loc, err)
			return
		}
		d.resp.BreakpointAdded(bp)

	case OpListBreakpoints:
		d.resp.BreakpointList(d.engine.BreakPoints())

	case OpDeleteBreakpoint:
		if !d.engine.RemoveBreakPoint(act.Index) {
			d.resp.BreakpointDeleteFailed(act.Index)
			return
		}
		d.resp.BreakpointDeleted(act.Index)

	case OpContinue:
		d.gate.RequestResume()

	case OpStep:
		d.engine.Step()
		d.gate.RequestResume()

	case OpStepOut:
		d.engine.StepOut()
		d.gate.RequestResume()

	case OpNext:
		d.engine.StepOver()
		d.gate.RequestResume()

	case OpFrames:
		d.resp.Frames(d.engine.Frames(), d.engine.ActiveFrameIndex())

	case OpSelectFrame:
		// No reply: the client re-queries frames itself.
		d.engine.SetActiveFrameIndex(act.FrameIndex)

	case OpFrameUp:
		d.engine.ShiftActiveFrame(true)
		d.resp.Frames(d.engine.Frames(), d.engine.ActiveFrameIndex())

	case OpFrameDown:
		d.engine.ShiftActiveFrame(false)
		d.resp.Frames(d.engine.Frames(), d.engine.ActiveFrameIndex())

	case OpListThreads:
		d.resp.Threads()

	case OpListSource:
		d.resp.Source(d.engine.CodeLines(0, 0), d.engine.BreakLine())

	case OpLocalVariables:
		d.deferFetch("local", d.engine.LocalVariables)

	case OpGlobalVariables:
		d.deferFetch("global", d.engine.GlobalVariables)

	case OpInstanceVariables:
		id := act.ObjectID
		d.deferFetch("instance", func() []engine.Variable {
			return d.engine.InstanceVariables(id)
		})

	case OpEvaluate:
		expr := act.Expression
		var result engine.Variable
		var evalErr error
		d.gate.RequestDeferredCall(
			func() { result, evalErr = d.engine.Evaluate(expr) },
			func() { d.resp.EvalResult(result, evalErr) },
			d.exec,
		)

	case OpWatchEvaluate:
		expr := act.Expression
		var vars []engine.Variable
		d.gate.RequestDeferredCall(
			func() {
				if expr == "" {
					return
				}
				v, err := d.engine.Evaluate(expr)
				if err != nil {
					// Evaluation failures surface as the textual
					// error in place of a value.
					v = engine.Variable{Name: expr, Value: err.Error()}
				}
				vars = []engine.Variable{v}
			},
			func() { d.resp.Variables("watch", vars) },
			d.exec,
		)

	case OpHelp:
		d.resp.Help()

	case OpQuit:
		// Resume first so the engine goroutine is not left parked, and
		// wait for it to acknowledge before teardown is requested.
		d.gate.RequestResume()
		if !d.gate.AwaitResume(quitResumeWait) {
			d.log.Warn().Msg("engine did not acknowledge resume before teardown")
		}
		d.engine.Stop()

	default:
		d.log.Debug().Str("command", act.Raw).Msg("unknown command")
		d.resp.Unknown(act.Raw)
	}
}

// deferFetch queues an engine-goroutine variable fetch and delivers the
// formatted reply on the binding's executor.
func (d *Dispatcher) deferFetch(kind string, fetch func() []engine.Variable) {
	var vars []engine.Variable
	replaced := d.gate.RequestDeferredCall(
		func() { vars = fetch() },
		func() { d.resp.Variables(kind, vars) },
		d.exec,
	)
	if replaced {
		d.log.Debug().Str("kind", kind).Msg("deferred call overwrote a pending request")
	}
}
