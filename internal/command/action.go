// Package command parses debugger command lines into a closed set of actions
// and dispatches them against the engine facade and the rendezvous gate.
//
// Parsing is grammar-table driven: each binding (remote IDE protocol,
// console) has its own table over a shared tokenizer and keyword matcher, and
// both produce the same Action set so classification and execution are
// shared.
package command

// Op identifies one command in the closed grammar.
type Op int

const (
	// OpUnknown is any line matching no grammar rule.
	OpUnknown Op = iota

	// OpAddBreakpoint sets a breakpoint at Action.File/Action.Line.
	OpAddBreakpoint

	// OpListBreakpoints lists the breakpoint table.
	OpListBreakpoints

	// OpDeleteBreakpoint removes the breakpoint Action.Index.
	OpDeleteBreakpoint

	// OpContinue resumes execution.
	OpContinue

	// OpStep resumes in single-step mode.
	OpStep

	// OpStepOut resumes until the current method returns.
	OpStepOut

	// OpNext resumes in step-over mode.
	OpNext

	// OpFrames reports the current stack frames.
	OpFrames

	// OpSelectFrame moves the active-frame cursor to Action.FrameIndex.
	OpSelectFrame

	// OpFrameUp moves the active-frame cursor one frame outward.
	OpFrameUp

	// OpFrameDown moves the active-frame cursor one frame inward.
	OpFrameDown

	// OpListThreads reports the thread list (single synthetic thread).
	OpListThreads

	// OpLocalVariables fetches the active frame's locals.
	OpLocalVariables

	// OpGlobalVariables fetches the globals.
	OpGlobalVariables

	// OpInstanceVariables fetches members of the object Action.ObjectID.
	OpInstanceVariables

	// OpEvaluate evaluates Action.Expression and reports its value.
	OpEvaluate

	// OpWatchEvaluate evaluates Action.Expression as a watch result
	// (remote binding only).
	OpWatchEvaluate

	// OpListSource lists the source around the suspension point.
	OpListSource

	// OpHelp prints the command summary (console binding only).
	OpHelp

	// OpQuit resumes the engine and requests teardown.
	OpQuit
)

// Class partitions operations by where and how they may execute.
type Class int

const (
	// ClassUnknown actions only produce a diagnostic.
	ClassUnknown Class = iota

	// ClassImmediate actions run synchronously on the calling front-end
	// goroutine against engine accessors assumed safe from any goroutine.
	ClassImmediate

	// ClassResume actions flip a step/resume flag and wake the engine.
	ClassResume

	// ClassDeferred actions must run on the engine goroutine because they
	// read live call-stack state; they are queued into the gate's mailbox.
	ClassDeferred
)

// Class returns the execution class of the operation.
func (op Op) Class() Class {
	switch op {
	case OpAddBreakpoint, OpListBreakpoints, OpDeleteBreakpoint,
		OpFrames, OpSelectFrame, OpFrameUp, OpFrameDown,
		OpListThreads, OpListSource, OpHelp:
		return ClassImmediate
	case OpContinue, OpStep, OpStepOut, OpNext, OpQuit:
		return ClassResume
	case OpLocalVariables, OpGlobalVariables, OpInstanceVariables,
		OpEvaluate, OpWatchEvaluate:
		return ClassDeferred
	default:
		return ClassUnknown
	}
}

// Action is one parsed command. Payload fields are populated according to Op.
type Action struct {
	// Op is the operation.
	Op Op

	// File and Line locate a breakpoint for OpAddBreakpoint. File may be
	// empty for a bare-line location.
	File string
	Line int

	// Index is the breakpoint index for OpDeleteBreakpoint.
	Index int

	// FrameIndex is the target frame for OpSelectFrame.
	FrameIndex int

	// ObjectID is the object identity for OpInstanceVariables.
	ObjectID uint64

	// Expression is the text for OpEvaluate and OpWatchEvaluate.
	Expression string

	// Raw is the original command text, kept for diagnostics.
	Raw string
}
