package cbs

import (
	"fmt"
	"strings"

	"nickandperla.net/cbs/internal/eval"
	"nickandperla.net/cbs/internal/expr"
	"nickandperla.net/cbs/internal/parser"
	"nickandperla.net/cbs/internal/token"
)

// ProblemKind classifies a Problem.
type ProblemKind string

const (
	ProblemSyntax          ProblemKind = "syntax"
	ProblemUnknownCommand  ProblemKind = "unknown-command"
	ProblemUnknownBlock    ProblemKind = "unknown-block"
	ProblemUnknownFunction ProblemKind = "unknown-function"
)

// Problem is something Check found wrong with a template.
type Problem struct {
	Kind       ProblemKind
	Line       int
	Start, End int // Byte offsets after legacy alias rewriting
	Message    string
	Suggestion string // Closest known name, if any
}

func (p Problem) String() string {
	s := fmt.Sprintf("line %d: %s", p.Line, p.Message)
	if p.Suggestion != "" {
		s += fmt.Sprintf(" (did you mean %q?)", p.Suggestion)
	}
	return s
}

// Check reports malformed tags, unknown commands and blocks, and calls to
// functions that neither the prelude nor the template defines. Nothing is
// evaluated, so every branch is inspected.
func (r *Runtime) Check(source string) []Problem {
	src := token.RewriteLegacy(source)
	nodes, diags := parser.ParseWithDiagnostics(source)

	var out []Problem
	for _, d := range diags {
		out = append(out, Problem{
			Kind:    ProblemSyntax,
			Line:    d.Line,
			Start:   d.Span.Start,
			End:     d.Span.End,
			Message: d.Message,
		})
	}

	c := &checker{
		r:     r,
		src:   src,
		funcs: r.evaluator.Functions(source),
	}
	c.walk(nodes)
	return append(out, c.problems...)
}

type checker struct {
	r        *Runtime
	src      string
	funcs    *eval.FunctionTable // Defined by the template itself
	problems []Problem
}

func (c *checker) add(kind ProblemKind, span expr.Span, suggest bool, format string, args ...any) {
	p := Problem{
		Kind:    kind,
		Line:    c.line(span.Start),
		Start:   span.Start,
		End:     span.End,
		Message: fmt.Sprintf(format, args...),
	}
	if suggest {
		name, _ := args[0].(string)
		p.Suggestion = c.r.Suggest(name)
	}
	c.problems = append(c.problems, p)
}

func (c *checker) line(offset int) int {
	offset = min(max(offset, 0), len(c.src))
	return strings.Count(c.src[:offset], "\n") + 1
}

func (c *checker) walk(nodes []expr.Node) {
	for _, n := range nodes {
		switch x := n.(type) {
		case expr.Command:
			c.command(x)
		case expr.Block:
			c.block(x)
		}
	}
}

func (c *checker) command(cmd expr.Command) {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == token.PrefixComment {
		return
	}
	c.args(cmd.Span, cmd.Args)

	switch {
	case name == "" || strings.Contains(name, "{{") || strings.HasPrefix(name, "?"):
		return
	case name == "call":
		fn := strings.TrimSpace(firstArg(cmd.Args))
		if fn == "" || strings.Contains(fn, "{{") {
			return
		}
		if !c.funcs.Has(fn) && !c.r.functions.Has(fn) {
			c.add(ProblemUnknownFunction, cmd.Span, false, "unknown function %q", fn)
		}
		return
	}
	if _, ok := c.r.registry.Lookup(name); !ok {
		c.add(ProblemUnknownCommand, cmd.Span, true, "unknown command %q", name)
	}
}

func (c *checker) block(b expr.Block) {
	name := strings.ToLower(b.Name)
	if _, ok := c.r.registry.Lookup(name); !ok {
		c.add(ProblemUnknownBlock, b.Span, true, "unknown block %q", name)
	}
	c.args(b.Span, b.Args)
	switch name {
	case "#pure", "#puredisplay", "#pure_display", "#escape":
		// Bodies are emitted literally
		return
	}
	c.walk(b.Children)
}

// args checks tags nested in raw arguments, locating each inside span.
func (c *checker) args(span expr.Span, args []string) {
	pos := span.Start
	end := min(span.End, len(c.src))
	for _, a := range args {
		if !strings.Contains(a, "{{") {
			continue
		}
		if pos < end {
			if i := strings.Index(c.src[pos:end], a); i >= 0 {
				pos += i
			}
		}
		c.walk(parser.ParseAt(a, pos))
		pos += len(a)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
