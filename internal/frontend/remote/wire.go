package remote

import (
	"fmt"
	"strings"

	"github.com/sudb/sudb/internal/engine"
)

// escaper rewrites the five XML-sensitive characters in attribute values.
// The ampersand rule runs first so already-escaped text is not double-escaped
// into nonsense.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
)

// Escape returns s with XML-sensitive characters entity-encoded.
func Escape(s string) string {
	return escaper.Replace(s)
}

// The encode* helpers build the tag-per-line reply payloads of the wire
// protocol. Every payload ends in a newline; multi-element payloads carry an
// opening and a closing tag on their own lines.

func encodeBreakpointAdded(bp engine.BreakPoint) string {
	return fmt.Sprintf("<breakpointAdded no=\"%d\" location=\"%s\"/>\n",
		bp.Index, Escape(bp.Location().String()))
}

func encodeBreakpointDeleted(index int) string {
	return fmt.Sprintf("<breakpointDeleted no=\"%d\" />\n", index)
}

func encodeFrames(frames []engine.StackFrame, active int) string {
	var sb strings.Builder
	sb.WriteString("<frames>\n")
	for i, fr := range frames {
		if i == active {
			fmt.Fprintf(&sb, "<frame no=\"%d\" file=\"%s\" line=\"%d\" current=\"yes\"/>",
				i, Escape(fr.File), fr.Line)
		} else {
			fmt.Fprintf(&sb, "<frame no=\"%d\" file=\"%s\" line=\"%d\"/>",
				i, Escape(fr.File), fr.Line)
		}
	}
	sb.WriteString("</frames>\n")
	return sb.String()
}

func encodeThreads() string {
	return "<threads>\n<thread id=\"1\" status=\"run\"/>\n</threads>\n"
}

func encodeVariables(kind string, vars []engine.Variable) string {
	var sb strings.Builder
	sb.WriteString("<variables>\n")
	for _, v := range vars {
		fmt.Fprintf(&sb,
			"<variable name=\"%s\" kind=\"%s\" value=\"%s\" type=\"%s\" hasChildren=\"%t\" objectId=\"%x\"/>\n",
			Escape(v.Name), kind, Escape(v.Value), v.Type, v.HasChildren, v.ObjectID)
	}
	sb.WriteString("</variables>\n")
	return sb.String()
}

func encodeBreakpointHit(bp engine.BreakPoint) string {
	return fmt.Sprintf("<breakpoint file=\"%s\" line=\"%d\" threadId=\"1\"/>\n",
		Escape(bp.File), bp.Line)
}

func encodeSuspended(file string, line int) string {
	return fmt.Sprintf("<suspended file=\"%s\" line=\"%d\" threadId=\"1\" frames=\"1\"/>\n",
		Escape(file), line)
}
