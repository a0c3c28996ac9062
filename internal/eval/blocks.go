package eval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nickandperla.net/cbs/internal/expr"
	"nickandperla.net/cbs/internal/jsnum"
	"nickandperla.net/cbs/internal/token"
)

// LoopSeparator splits #each input that is not a JSON array.
const LoopSeparator = "§"

func (r *run) block(b expr.Block) string {
	switch name := strings.ToLower(b.Name); name {
	case "#when":
		return r.when(b, name, ModeNormal)
	case "#if":
		return r.when(b, name, ModeLegacy)
	case "#if_pure":
		return r.when(b, name, ModeKeep)
	case "#each":
		return r.each(b)
	case "#pure":
		return b.Body()
	case "#puredisplay", "#pure_display":
		return pureDisplay.Replace(b.Body())
	case "#func":
		if fn := newFunction(b); fn != nil {
			r.funcs.Set(fn)
			return ""
		}
		r.fail(b, name, "missing function name")
		return ""
	case "#code":
		return normalize(strings.TrimSpace(r.nodes(b.Children)))
	case "#escape":
		return htmlEscape.Replace(strings.TrimSpace(b.Body()))
	default:
		r.warn(b, name, fmt.Sprintf("unknown block %q", name))
		return token.Open + b.Value + token.Close + r.nodes(b.Children) + token.Open + b.Close + token.Close
	}
}

// when handles #when, #if and #if_pure. #if trims indentation like the
// legacy mode of #when but still honours :else; #if_pure keeps everything.
func (r *run) when(b expr.Block, name string, base WhitespaceMode) string {
	if len(b.Args) == 0 {
		r.fail(b, name, "missing condition")
		return ""
	}
	args := r.args(b.Value, b.Span, b.Args)
	if r.returned {
		return ""
	}
	ok, mode := Condition(args, r.ctx)

	if name != "#when" {
		then, otherwise := splitElse(b.Children)
		branch := otherwise
		if ok {
			branch = then
		}
		out := r.nodes(branch)
		if base == ModeLegacy && mode != ModeKeep {
			return trimLines(out)
		}
		return out
	}

	if mode == ModeLegacy {
		if !ok {
			return ""
		}
		return trimLines(r.nodes(b.Children))
	}
	then, otherwise := splitElse(b.Children)
	branch := otherwise
	if ok {
		branch = then
	}
	out := r.nodes(branch)
	if mode == ModeKeep || !strings.Contains(out, "\n") {
		return out
	}
	return trimBlankLines(out)
}

// splitElse splits children at the first top-level :else.
func splitElse(children []expr.Node) (then, otherwise []expr.Node) {
	for i, c := range children {
		if cmd, ok := c.(expr.Command); ok && strings.EqualFold(strings.TrimSpace(cmd.Name), token.Else) {
			return children[:i], children[i+1:]
		}
	}
	return children, nil
}

// each handles {{#each EXPR as NAME}}. Without "as" the last word is the
// name. A leading "keep" keeps each iteration's whitespace.
func (r *run) each(b expr.Block) string {
	header := strings.TrimSpace(strings.Join(b.Args, token.Separator))
	keep := false
	if rest, ok := cutWord(header, "keep"); ok {
		keep, header = true, rest
	}
	if _, ok := cutWord(header, "as"); ok || header == "" {
		return ""
	}

	src, name := "", ""
	if i := strings.LastIndex(header, " as "); i >= 0 {
		src, name = header[:i], header[i+len(" as "):]
	} else if i := strings.LastIndexAny(header, " \t\n"); i >= 0 {
		src, name = header[:i], header[i+1:]
	} else {
		r.fail(b, "#each", fmt.Sprintf("expected \"EXPR as NAME\", got %q", header))
		return ""
	}
	src, name = strings.TrimSpace(src), strings.TrimSpace(name)
	if src == "" {
		return ""
	}

	value := r.eval(src, b.Span.Start)
	if r.returned || value == "" {
		return ""
	}
	items := loopItems(value)

	var sb strings.Builder
	for _, item := range items {
		s := jsnum.Text(item)
		r.vars[name] = s
		r.frames = append(r.frames, frame{vars: map[string]string{name: s}})
		out := r.nodes(b.Children)
		r.frames = r.frames[:len(r.frames)-1]
		if !keep {
			out = trimLines(out)
		}
		sb.WriteString(out)
		if r.returned {
			break
		}
	}
	if keep {
		return sb.String()
	}
	return strings.TrimSpace(sb.String())
}

func cutWord(s, word string) (string, bool) {
	if len(s) > len(word) && strings.EqualFold(s[:len(word)], word) && isSpace(s[len(word)]) {
		return strings.TrimSpace(s[len(word):]), true
	}
	return s, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// loopItems decodes a JSON array, falling back to splitting on §.
func loopItems(s string) []any {
	if arr, ok := jsnum.ParseArray(s); ok {
		return arr
	}
	parts := strings.Split(s, LoopSeparator)
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return items
}

// newFunction reads a #func header. "#func name a b" and "#func::name::a::b"
// are both accepted.
func newFunction(b expr.Block) *Function {
	var fields []string
	if len(b.Args) == 1 {
		fields = strings.Fields(b.Args[0])
	} else {
		for _, a := range b.Args {
			if a = strings.TrimSpace(a); a != "" {
				fields = append(fields, a)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &Function{
		Name:   fields[0],
		Params: fields[1:],
		Body:   b.Body(),
		Nodes:  b.Children,
	}
}

// trimLines strips leading whitespace from every line, then the whole.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, " \t\r\f\v")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// trimBlankLines drops whitespace-only lines at either end.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

var (
	pureDisplay = strings.NewReplacer(
		token.Open, string([]rune{token.RuneCurlyOpen, token.RuneCurlyOpen}),
		token.Close, string([]rune{token.RuneCurlyClose, token.RuneCurlyClose}),
	)
	htmlEscape = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
	unicodeEscape = regexp.MustCompile(`\\u([0-9A-Fa-f]{4})`)
	charEscape    = regexp.MustCompile(`\\(.)`)
)

// normalize is the #code transform: drop newlines and tabs, then decode
// \uXXXX and single-character backslash escapes.
func normalize(s string) string {
	s = strings.NewReplacer("\n", "", "\t", "").Replace(s)
	s = unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, _ := strconv.ParseUint(m[2:], 16, 16)
		return string(rune(n))
	})
	return charEscape.ReplaceAllStringFunc(s, func(m string) string {
		switch c := m[1:]; c {
		case "n":
			return "\n"
		case "r":
			return "\r"
		case "t":
			return "\t"
		case "b":
			return "\b"
		case "f":
			return "\f"
		case "v":
			return "\v"
		case "x":
			return "\x00"
		default:
			return c
		}
	})
}
