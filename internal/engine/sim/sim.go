// Package sim provides a small scripted engine for exercising the debugger
// end to end without a real language runtime.
//
// The engine executes a line-oriented script. Indentation defines block
// structure: a line ending in ":" opens a block and pushes a stack frame, and
// the block body is the run of more-indented lines below it. Two directives
// mutate state: "set name value" writes a local in the current frame and
// "gset name value" writes a global. Every other non-blank, non-comment line
// is a plain statement.
//
// Execution suspends at the first executable line, at enabled breakpoints,
// and at step targets. Suspension notifies the attached front ends and parks
// the engine goroutine in the rendezvous gate.
package sim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sudb/sudb/internal/engine"
	"github.com/sudb/sudb/internal/frontend"
	"github.com/sudb/sudb/internal/gate"
)

type stepMode int

const (
	modeRun stepMode = iota
	modeStep
	modeNext
	modeStepOut
)

type frameRec struct {
	name   string
	line   int
	indent int
	locals map[string]string
}

// Sim is the scripted engine. It implements engine.Engine; the accessor
// methods are safe from any goroutine, while Run owns execution.
type Sim struct {
	file  string
	lines []string
	g     *gate.Gate
	log   zerolog.Logger

	mu sync.Mutex

	fronts []frontend.Frontend

	breakpoints []engine.BreakPoint
	nextBP      int

	pc     int
	frames []*frameRec
	active int

	globals map[string]string

	mode stepMode
	// stopIndent is the indentation of the line the engine last suspended
	// on; next and step-out targets compare against it.
	stopIndent int

	breakLine int
	stopped   bool
	halted    bool
}

var _ engine.Engine = (*Sim)(nil)

// New creates an engine for the script src, reported under the file name
// file.
func New(file, src string, g *gate.Gate, log zerolog.Logger) *Sim {
	return &Sim{
		file:    file,
		lines:   strings.Split(strings.TrimRight(src, "\n"), "\n"),
		g:       g,
		log:     log,
		globals: map[string]string{},
	}
}

// Attach registers a front end for suspension notifications. Call before
// Run.
func (s *Sim) Attach(f frontend.Frontend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fronts = append(s.fronts, f)
}

// Run executes the script to completion. It blocks across every suspension;
// run it on a dedicated goroutine.
func (s *Sim) Run() {
	s.mu.Lock()
	s.frames = []*frameRec{{name: "main", line: 1, indent: -1, locals: map[string]string{}}}
	s.mu.Unlock()

	first := true
	for {
		s.mu.Lock()
		halted := s.halted
		done := s.pc >= len(s.lines)
		s.mu.Unlock()
		if halted || done {
			s.log.Info().Bool("halted", halted).Msg("script finished")
			return
		}

		raw := s.lines[s.pc]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			s.pc++
			continue
		}

		indent := len(raw) - len(strings.TrimLeft(raw, " "))
		lineNo := s.pc + 1
		s.popFrames(indent)

		if bp, hit, stop := s.shouldStop(lineNo, indent, first); stop {
			s.suspend(lineNo, indent, bp, hit)
			s.mu.Lock()
			halted = s.halted
			s.mu.Unlock()
			if halted {
				s.log.Info().Msg("engine stopped while suspended")
				return
			}
		}
		first = false

		s.execute(trimmed, indent, lineNo)
		s.pc++
	}
}

// popFrames unwinds block frames the current indentation has left.
func (s *Sim) popFrames(indent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.frames) > 1 && s.frames[len(s.frames)-1].indent >= indent {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *Sim) shouldStop(lineNo, indent int, first bool) (engine.BreakPoint, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bp := range s.breakpoints {
		if bp.Enabled && bp.Line == lineNo && (bp.File == "" || bp.File == s.file) {
			return bp, true, true
		}
	}

	if first {
		return engine.BreakPoint{}, false, true
	}

	switch s.mode {
	case modeStep:
		return engine.BreakPoint{}, false, true
	case modeNext:
		return engine.BreakPoint{}, false, indent <= s.stopIndent
	case modeStepOut:
		return engine.BreakPoint{}, false, indent < s.stopIndent
	}
	return engine.BreakPoint{}, false, false
}

// suspend notifies the front ends and parks in the gate until resumed.
func (s *Sim) suspend(lineNo, indent int, bp engine.BreakPoint, hitBP bool) {
	s.mu.Lock()
	s.stopped = true
	s.breakLine = lineNo
	s.stopIndent = indent
	s.active = 0
	s.mode = modeRun
	fronts := append([]frontend.Frontend(nil), s.fronts...)
	s.mu.Unlock()

	s.log.Debug().Int("line", lineNo).Bool("breakpoint", hitBP).Msg("suspended")
	for _, f := range fronts {
		if hitBP {
			f.BreakpointHit(bp)
		} else {
			f.SuspendedAt(s.file, lineNo)
		}
	}

	s.g.EngineSuspend()

	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
}

func (s *Sim) execute(trimmed string, indent, lineNo int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasSuffix(trimmed, ":") {
		s.frames = append(s.frames, &frameRec{
			name:   strings.TrimSuffix(trimmed, ":"),
			line:   lineNo,
			indent: indent,
			locals: map[string]string{},
		})
		return
	}

	fields := strings.Fields(trimmed)
	switch {
	case fields[0] == "set" && len(fields) >= 3:
		s.frames[len(s.frames)-1].locals[fields[1]] = strings.Join(fields[2:], " ")
	case fields[0] == "gset" && len(fields) >= 3:
		s.globals[fields[1]] = strings.Join(fields[2:], " ")
	}
}

func (s *Sim) AddBreakPoint(loc engine.Location) (engine.BreakPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return engine.BreakPoint{}, engine.ErrStopped
	}
	if loc.Line < 1 || loc.Line > len(s.lines) {
		return engine.BreakPoint{}, fmt.Errorf("%w: line %d", engine.ErrInvalidLocation, loc.Line)
	}
	trimmed := strings.TrimSpace(s.lines[loc.Line-1])
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return engine.BreakPoint{}, fmt.Errorf("%w: line %d is not executable", engine.ErrInvalidLocation, loc.Line)
	}
	for _, bp := range s.breakpoints {
		if bp.File == loc.File && bp.Line == loc.Line {
			return engine.BreakPoint{}, engine.ErrBreakpointExists
		}
	}

	bp := engine.BreakPoint{
		Index:   s.nextBP,
		File:    loc.File,
		Line:    loc.Line,
		Enabled: true,
	}
	s.nextBP++
	s.breakpoints = append(s.breakpoints, bp)
	return bp, nil
}

func (s *Sim) RemoveBreakPoint(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, bp := range s.breakpoints {
		if bp.Index == index {
			s.breakpoints = append(s.breakpoints[:i], s.breakpoints[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Sim) BreakPoints() []engine.BreakPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.BreakPoint(nil), s.breakpoints...)
}

func (s *Sim) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = modeStep
}

func (s *Sim) StepOver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = modeNext
}

func (s *Sim) StepOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = modeStepOut
}

// Frames reports the stack innermost first. The innermost frame carries the
// suspension line; outer frames carry their block-header lines.
func (s *Sim) Frames() []engine.StackFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]engine.StackFrame, 0, len(s.frames))
	for i := len(s.frames) - 1; i >= 0; i-- {
		fr := s.frames[i]
		line := fr.line
		if i == len(s.frames)-1 {
			line = s.breakLine
		}
		out = append(out, engine.StackFrame{
			Index: len(out),
			File:  s.file,
			Line:  line,
			Name:  fr.name,
		})
	}
	return out
}

func (s *Sim) ActiveFrameIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Sim) SetActiveFrameIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.frames) {
		s.active = index
	}
}

func (s *Sim) ShiftActiveFrame(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if up && s.active < len(s.frames)-1 {
		s.active++
	}
	if !up && s.active > 0 {
		s.active--
	}
}

// activeFrame maps the innermost-first cursor onto the frame stack. Callers
// hold mu. Before Run has initialized the stack it yields an empty frame.
func (s *Sim) activeFrame() *frameRec {
	if len(s.frames) == 0 {
		return &frameRec{locals: map[string]string{}}
	}
	return s.frames[len(s.frames)-1-s.active]
}

func (s *Sim) LocalVariables() []engine.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedVariables(s.activeFrame().locals)
}

func (s *Sim) GlobalVariables() []engine.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedVariables(s.globals)
}

// InstanceVariables always reports nothing; script values have no members.
func (s *Sim) InstanceVariables(objectID uint64) []engine.Variable {
	return nil
}

// Evaluate resolves a name against the active frame's locals, then the
// globals. Numeric and quoted literals evaluate to themselves.
func (s *Sim) Evaluate(expr string) (engine.Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return engine.Variable{}, engine.ErrStopped
	}
	if v, ok := s.activeFrame().locals[expr]; ok {
		return engine.Variable{Name: expr, Value: v, Type: "String"}, nil
	}
	if v, ok := s.globals[expr]; ok {
		return engine.Variable{Name: expr, Value: v, Type: "String"}, nil
	}
	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return engine.Variable{Name: expr, Value: expr, Type: "Number"}, nil
	}
	if len(expr) >= 2 && expr[0] == '"' && expr[len(expr)-1] == '"' {
		return engine.Variable{Name: expr, Value: expr[1 : len(expr)-1], Type: "String"}, nil
	}
	return engine.Variable{}, fmt.Errorf("%w: undefined name %q", engine.ErrEvaluation, expr)
}

// CodeLines returns the script lines in the inclusive 1-based range; from
// and to both zero means the whole script.
func (s *Sim) CodeLines(from, to int) []engine.CodeLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == 0 && to == 0 {
		from, to = 1, len(s.lines)
	}
	var out []engine.CodeLine
	for n := from; n >= 1 && n <= to && n <= len(s.lines); n++ {
		out = append(out, engine.CodeLine{Number: n, Text: s.lines[n-1]})
	}
	return out
}

func (s *Sim) BreakLine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		return 0
	}
	return s.breakLine
}

func (s *Sim) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop requests termination. The run loop exits at its next iteration; a
// suspended engine must be resumed through the gate first.
func (s *Sim) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
}

func sortedVariables(m map[string]string) []engine.Variable {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]engine.Variable, 0, len(names))
	for _, name := range names {
		out = append(out, engine.Variable{Name: name, Value: m[name], Type: "String"})
	}
	return out
}
