package command

import (
	"strconv"
	"strings"
)

// tokenizer walks a command line word by word while preserving the untouched
// remainder, so expression commands can take the rest of the line verbatim.
type tokenizer struct {
	rest string
}

func newTokenizer(line string) *tokenizer {
	return &tokenizer{rest: strings.TrimSpace(line)}
}

// next consumes and returns the next whitespace-delimited word, or "" when
// the line is exhausted.
func (t *tokenizer) next() string {
	t.rest = strings.TrimLeft(t.rest, " \t")
	if t.rest == "" {
		return ""
	}
	if i := strings.IndexAny(t.rest, " \t"); i >= 0 {
		word := t.rest[:i]
		t.rest = t.rest[i+1:]
		return word
	}
	word := t.rest
	t.rest = ""
	return word
}

// remainder returns everything not yet consumed, trimmed.
func (t *tokenizer) remainder() string {
	return strings.TrimSpace(t.rest)
}

// done reports whether the line is exhausted.
func (t *tokenizer) done() bool {
	return strings.TrimSpace(t.rest) == ""
}

// matchKeyword reports whether word is the short or the long spelling of a
// keyword. The grammar accepts exactly those two forms: "del" and "delete"
// match, "dele" does not. Matching is case-insensitive.
func matchKeyword(word, short, long string) bool {
	w := strings.ToLower(word)
	return w == short || w == long
}

// splitCommands splits a network input line into its ";"-separated commands.
// Empty segments are preserved as empty strings; callers skip them.
func splitCommands(line string) []string {
	parts := strings.Split(line, ";")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// parseLocation splits a breakpoint argument of the form "file:line" or a
// bare "line". The file part is greedy up to the last colon, so Windows
// drive-letter paths survive. The line text must be a plain token without
// dots or colons; ok is false otherwise. When strict is false a non-numeric
// line text yields line 0 and lets the engine reject the location, matching
// the lenient network parser; when strict is true it fails the parse.
func parseLocation(arg string, strict bool) (file string, line int, ok bool) {
	lineText := arg
	if i := strings.LastIndex(arg, ":"); i >= 0 {
		file = arg[:i]
		lineText = arg[i+1:]
	}
	if lineText == "" || strings.ContainsAny(lineText, ".:") {
		return "", 0, false
	}

	n, err := strconv.Atoi(lineText)
	if err != nil {
		if strict {
			return "", 0, false
		}
		n = 0
	}

	file = strings.ReplaceAll(file, `\`, "/")
	return file, n, true
}
