// Package console implements the interactive terminal front-end binding.
//
// The console reads commands from standard input with a readline editor when
// attached to a terminal and a plain line reader otherwise. Engine
// notifications and deferred replies print between prompts; deliveries run
// inline on the engine goroutine, so the binding needs no executor loop.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/sudb/sudb/internal/command"
	"github.com/sudb/sudb/internal/engine"
	"github.com/sudb/sudb/internal/frontend"
	"github.com/sudb/sudb/internal/gate"
)

const banner = "sudb command line debugger"

const helpText = `
Debugger help
Commands
  b[reak] file:line          set breakpoint to some position
  b[reak]                    list breakpoints
  del[ete] n                 delete a breakpoint
  c[ont]                     run until program ends or hits a breakpoint
  s[tep]                     step (into methods) one line
  s[tep] o[ut]               step out of the current method
  n[ext]                     go over one line, stepping over methods
  w[here]                    display frames
  f[rame]                    alias for where
  l[ist]                     list program
  up                         move to higher frame
  down                       move to lower frame
  v[ar] g[lobal]             show global variables
  v[ar] l[ocal]              show local variables
  p expression               evaluate expression and print its value
  h[elp]                     print this help
  <everything else>          evaluate
`

// Config holds console construction options.
type Config struct {
	// In and Out are the command input and display output. Defaults to
	// stdin and stdout.
	In  io.Reader
	Out io.Writer

	// HistoryFile is the readline history path. Empty disables persistent
	// history. Ignored when input is not a terminal.
	HistoryFile string
}

// Console is the terminal front-end. It implements frontend.Frontend.
type Console struct {
	engine engine.Engine
	gate   *gate.Gate
	disp   *command.Dispatcher
	log    zerolog.Logger

	in          io.Reader
	historyFile string

	outMu sync.Mutex
	out   io.Writer
	rl    *readline.Instance

	// willContinue makes the prompt show "running" for the prompt written
	// right after a resume command, before the engine has observably left
	// its suspension.
	willContinue atomic.Bool
}

var _ frontend.Frontend = (*Console)(nil)

// New creates a console bound to the engine and gate.
func New(eng engine.Engine, g *gate.Gate, cfg Config, log zerolog.Logger) *Console {
	c := &Console{
		engine:      eng,
		gate:        g,
		log:         log,
		in:          cfg.In,
		out:         cfg.Out,
		historyFile: cfg.HistoryFile,
	}
	if c.in == nil {
		c.in = os.Stdin
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	c.disp = command.NewDispatcher(eng, g, (*responder)(c), gate.Direct{}, log)
	return c
}

// Run reads and executes commands until input is exhausted. It blocks; run it
// on its own goroutine.
func (c *Console) Run() error {
	fmt.Fprintln(c.out, banner)

	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return c.runReadline()
	}
	return c.runPlain()
}

func (c *Console) runReadline() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 c.prompt(),
		HistoryFile:            c.historyFile,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	c.outMu.Lock()
	c.rl = rl
	c.out = rl.Stdout()
	c.outMu.Unlock()

	for {
		rl.SetPrompt(c.prompt())
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}
		if c.evaluate(line) {
			if err := rl.SaveHistory(line); err != nil {
				c.log.Debug().Err(err).Msg("history save failed")
			}
		}
	}
}

func (c *Console) runPlain() error {
	c.writePrompt()
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.evaluate(scanner.Text())
	}
	return scanner.Err()
}

// evaluate parses and executes one command line. It reports whether the line
// was a legal command, which decides history recording.
func (c *Console) evaluate(line string) bool {
	act := command.ParseConsole(line)
	class := act.Op.Class()

	if class == command.ClassResume {
		c.willContinue.Store(true)
	}

	c.disp.Execute(act)

	// Deferred commands print their reply and re-show the prompt from the
	// delivery; everything else gets the prompt here.
	if class != command.ClassDeferred {
		c.writePrompt()
	}
	c.willContinue.Store(false)

	return act.Op != command.OpUnknown
}

// prompt reflects the engine state: "running" when a resume command was just
// issued or the engine is not suspended, "stopped" otherwise.
func (c *Console) prompt() string {
	state := "stopped"
	if c.willContinue.Load() || !c.engine.IsStopped() {
		state = "running"
	}
	return fmt.Sprintf("\nsudb (%s): ", state)
}

func (c *Console) writePrompt() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.rl != nil {
		c.rl.SetPrompt(c.prompt())
		c.rl.Refresh()
		return
	}
	fmt.Fprint(c.out, c.prompt())
}

// printf writes display output under the output lock.
func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// BreakpointHit announces a breakpoint stop with the source line under it.
// Called on the engine goroutine.
func (c *Console) BreakpointHit(bp engine.BreakPoint) {
	c.printf("\nBreakPoint %d at %s:%d", bp.Index, bp.File, bp.Line)
	c.printCurrentLine()
	c.writePrompt()
}

// SuspendedAt announces a non-breakpoint stop. Called on the engine
// goroutine.
func (c *Console) SuspendedAt(file string, line int) {
	c.printf("\nStopped at %s:%d", file, line)
	c.printCurrentLine()
	c.writePrompt()
}

func (c *Console) printCurrentLine() {
	current := c.engine.BreakLine()
	lines := c.engine.CodeLines(current, current)
	if len(lines) == 0 {
		return
	}
	c.printf("\nLine %d: %s", lines[0].Number, lines[0].Text)
}

// responder renders dispatcher results as the console's plain-text output.
type responder Console

var _ command.Responder = (*responder)(nil)

func (r *responder) console() *Console { return (*Console)(r) }

// writeText prints a message on its own line, the way all console status
// output is framed.
func (r *responder) writeText(msg string) {
	r.console().printf("\n%s\n", msg)
}

func (r *responder) writeBreakpoint(bp engine.BreakPoint) {
	r.console().printf("  %d %s:%d\n", bp.Index, bp.File, bp.Line)
}

func (r *responder) BreakpointAdded(bp engine.BreakPoint) {
	r.writeText("Added breakpoint:")
	r.writeBreakpoint(bp)
}

func (r *responder) BreakpointAddFailed(loc engine.Location, err error) {
	r.writeText("Cannot add breakpoint")
}

// BreakpointDeleted is silent; only failure is reported.
func (r *responder) BreakpointDeleted(index int) {}

func (r *responder) BreakpointDeleteFailed(index int) {
	r.writeText("Cannot remove breakpoint")
}

func (r *responder) BreakpointList(bps []engine.BreakPoint) {
	if len(bps) == 0 {
		r.writeText("No breakpoints")
		return
	}
	r.writeText("Breakpoints:")
	for _, bp := range bps {
		r.writeBreakpoint(bp)
	}
}

func (r *responder) Frames(frames []engine.StackFrame, active int) {
	c := r.console()
	var sb strings.Builder
	sb.WriteString("\n")
	for i, fr := range frames {
		prefix := "    "
		if i == active {
			prefix = "--> "
		}
		fmt.Fprintf(&sb, "%s#%d %s\n", prefix, i+1, fr.Name)
	}
	c.printf("%s", sb.String())
}

// Threads is unreachable from the console grammar.
func (r *responder) Threads() {}

func (r *responder) Source(lines []engine.CodeLine, current int) {
	c := r.console()
	var sb strings.Builder
	sb.WriteString("\n")
	for _, ln := range lines {
		prefix := "  "
		if ln.Number == current {
			prefix = "=>"
		}
		fmt.Fprintf(&sb, "%s%4d  %s\n", prefix, ln.Number, ln.Text)
	}
	c.printf("%s", sb.String())
}

// Variables prints a fetched variable set and re-shows the prompt. Runs on
// the engine goroutine via the direct executor.
func (r *responder) Variables(kind string, vars []engine.Variable) {
	c := r.console()
	var sb strings.Builder
	sb.WriteString("\n")
	for _, v := range vars {
		fmt.Fprintf(&sb, "  %s => %s\n", v.Name, v.Value)
	}
	c.printf("%s", sb.String())
	c.writePrompt()
}

// EvalResult prints an evaluation outcome and re-shows the prompt. Runs on
// the engine goroutine via the direct executor.
func (r *responder) EvalResult(v engine.Variable, err error) {
	if err != nil {
		r.writeText(err.Error())
	} else {
		r.writeText(v.Value)
	}
	r.console().writePrompt()
}

func (r *responder) Help() {
	r.console().printf("%s", helpText)
}

func (r *responder) Unknown(cmd string) {
	r.writeText("Illegal command")
}
