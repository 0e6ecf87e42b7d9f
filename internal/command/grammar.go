package command

import (
	"strconv"
	"strings"
)

// ParseRemoteLine splits one network input line into its ";"-separated
// commands and parses each. Order is preserved; empty segments are dropped.
func ParseRemoteLine(line string) []Action {
	var actions []Action
	for _, cmd := range splitCommands(line) {
		if cmd == "" {
			continue
		}
		actions = append(actions, ParseRemote(cmd))
	}
	return actions
}

// ParseRemote parses a single command in the remote IDE grammar.
//
// Rules are tried in a fixed order; the first match wins. Keyword
// abbreviations accept exactly the short and the long spelling.
func ParseRemote(cmd string) Action {
	act := Action{Op: OpUnknown, Raw: cmd}
	tok := newTokenizer(cmd)
	word := tok.next()
	if word == "" {
		return act
	}

	switch {
	case matchKeyword(word, "b", "break") && !tok.done():
		if file, line, ok := parseLocation(tok.remainder(), false); ok {
			act.Op = OpAddBreakpoint
			act.File = file
			act.Line = line
		}

	case matchKeyword(word, "del", "delete"):
		if n, err := strconv.Atoi(tok.remainder()); err == nil {
			act.Op = OpDeleteBreakpoint
			act.Index = n
		}

	case strings.EqualFold(word, "start") && tok.done():
		act.Op = OpContinue

	case matchKeyword(word, "c", "cont") && tok.done():
		act.Op = OpContinue

	case matchKeyword(word, "exi", "exit") && tok.done():
		act.Op = OpQuit

	case matchKeyword(word, "w", "where") && tok.done():
		act.Op = OpFrames

	case matchKeyword(word, "th", "thread"):
		if matchKeyword(tok.next(), "l", "list") && tok.done() {
			act.Op = OpListThreads
		}

	case matchKeyword(word, "f", "frame"):
		if n, err := strconv.Atoi(tok.remainder()); err == nil {
			act.Op = OpSelectFrame
			act.FrameIndex = n
		}

	case matchKeyword(word, "s", "step") && tok.done():
		act.Op = OpStep

	case matchKeyword(word, "finis", "finish") && tok.done():
		act.Op = OpStepOut

	case matchKeyword(word, "n", "next") && tok.done():
		act.Op = OpNext

	case matchKeyword(word, "v", "var"):
		second := tok.next()
		switch {
		// "v inspect <expr>" accepts only the bare "v" spelling.
		case strings.EqualFold(word, "v") && strings.EqualFold(second, "inspect"):
			act.Op = OpWatchEvaluate
			act.Expression = tok.remainder()
		case matchKeyword(second, "l", "local") && tok.done():
			act.Op = OpLocalVariables
		case matchKeyword(second, "g", "global") && tok.done():
			act.Op = OpGlobalVariables
		case matchKeyword(second, "i", "instance") && !tok.done():
			// A malformed hex id degrades to object 0 rather than
			// rejecting the command.
			id, _ := parseObjectID(tok.remainder())
			act.Op = OpInstanceVariables
			act.ObjectID = id
		}
	}

	return act
}

// ParseConsole parses a single console command line.
//
// The console grammar is more forgiving than the remote one: any line
// beginning with "s" is a step command, and any line matching no rule at all
// is evaluated as an expression.
func ParseConsole(cmd string) Action {
	act := Action{Op: OpUnknown, Raw: cmd}
	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return act
	}

	tok := newTokenizer(cmd)
	word := tok.next()

	switch {
	case matchKeyword(word, "b", "break") && tok.done():
		act.Op = OpListBreakpoints
		return act

	case matchKeyword(word, "del", "delete"):
		if n, err := strconv.Atoi(tok.remainder()); err == nil {
			act.Op = OpDeleteBreakpoint
			act.Index = n
		}
		return act

	case matchKeyword(word, "b", "break"):
		if file, line, ok := parseLocation(tok.remainder(), true); ok {
			act.Op = OpAddBreakpoint
			act.File = file
			act.Line = line
		}
		return act

	case matchKeyword(word, "c", "cont") && tok.done():
		act.Op = OpContinue
		return act
	}

	// Step matches on prefix, before the remaining keywords: "s", "step",
	// and anything starting with them.
	if tail, ok := consoleStepTail(trimmed); ok {
		if matchKeyword(tail, "o", "out") {
			act.Op = OpStepOut
		} else {
			act.Op = OpStep
		}
		return act
	}

	switch {
	case matchKeyword(word, "n", "next") && tok.done():
		act.Op = OpNext

	case matchKeyword(word, "h", "help") && tok.done():
		act.Op = OpHelp

	case matchKeyword(word, "u", "up") && tok.done():
		act.Op = OpFrameUp

	case matchKeyword(word, "dow", "down") && tok.done():
		act.Op = OpFrameDown

	case (matchKeyword(word, "w", "where") || matchKeyword(word, "f", "frame")) && tok.done():
		act.Op = OpFrames

	case matchKeyword(word, "l", "list") && tok.done():
		act.Op = OpListSource

	case strings.EqualFold(word, "p") && !tok.done():
		act.Op = OpEvaluate
		act.Expression = tok.remainder()

	case matchKeyword(word, "v", "var") && !tok.done():
		second := tok.next()
		switch {
		case matchKeyword(second, "g", "global") && tok.done():
			act.Op = OpGlobalVariables
		case matchKeyword(second, "l", "local") && tok.done():
			act.Op = OpLocalVariables
		}
		// "v <anything else>" is an illegal command, not an expression.

	default:
		// Everything else is evaluated.
		act.Op = OpEvaluate
		act.Expression = trimmed
	}

	return act
}

// consoleStepTail matches the console step prefix: "step" or "s" followed by
// at most one whitespace character. It returns the untouched tail after that
// prefix. The tail decides between step and step-out.
func consoleStepTail(trimmed string) (string, bool) {
	lower := strings.ToLower(trimmed)
	var tail string
	switch {
	case strings.HasPrefix(lower, "step"):
		tail = trimmed[len("step"):]
	case strings.HasPrefix(lower, "s"):
		tail = trimmed[1:]
	default:
		return "", false
	}
	if len(tail) > 0 && (tail[0] == ' ' || tail[0] == '\t') {
		tail = tail[1:]
	}
	return tail, true
}

// parseObjectID parses the hex object identity used by "v instance".
func parseObjectID(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
