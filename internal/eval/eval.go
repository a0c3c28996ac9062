// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval implements the CBS evaluator: the command registry, the
// condition evaluator and the block control-flow walker.
package eval

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"nickandperla.net/cbs/internal/expr"
	"nickandperla.net/cbs/internal/parser"
	"nickandperla.net/cbs/internal/scanner"
)

// MaxCallDepth is the call:: nesting ceiling.
const MaxCallDepth = 20

// Temp variables the return command uses to stop evaluation.
const (
	VarReturn      = "__return__"
	VarForceReturn = "__force_return__"
)

// Evaluator interprets CBS templates. It holds no per-evaluation state and
// is safe to share between goroutines as long as each call gets its own
// Context.
type Evaluator struct {
	registry  *Registry
	functions *FunctionTable // Predefined functions copied into every run
	logger    *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegistry replaces the builtin command registry.
func WithRegistry(r *Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithFunctions predefines functions for call::. Every evaluation gets its
// own copy of the table.
func WithFunctions(t *FunctionTable) Option {
	return func(e *Evaluator) { e.functions = t }
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: Builtins(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the command registry in use.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Evaluate parses and evaluates source. ctx.ChatVars and ctx.GlobalVars are
// updated in place; temp variables live only for this call.
func (e *Evaluator) Evaluate(source string, ctx *Context) *Result {
	return e.EvaluateNodes(parser.Parse(source), ctx)
}

// EvaluateNodes evaluates an already parsed template.
func (e *Evaluator) EvaluateNodes(nodes []expr.Node, ctx *Context) *Result {
	if ctx == nil {
		ctx = NewContext()
	}
	ctx.ensure()

	vars := maps.Clone(ctx.TempVars)
	if vars == nil {
		vars = make(map[string]string)
	}
	r := &run{
		e:      e,
		ctx:    ctx,
		vars:   vars,
		funcs:  e.functions.Clone(),
		report: &report{},
	}
	out := r.nodes(nodes)
	if r.returned {
		out = r.vars[VarReturn]
	}

	return &Result{
		Output:     out,
		Trace:      r.report.trace,
		Errors:     r.report.errors,
		ChatVars:   maps.Clone(ctx.ChatVars),
		GlobalVars: maps.Clone(ctx.GlobalVars),
		TempVars:   maps.Clone(r.vars),
	}
}

// Functions returns the functions a template defines, without evaluating
// anything else.
func (e *Evaluator) Functions(source string) *FunctionTable {
	t := NewFunctionTable()
	var walk func([]expr.Node)
	walk = func(nodes []expr.Node) {
		for _, n := range nodes {
			b, ok := n.(expr.Block)
			if !ok {
				continue
			}
			if strings.EqualFold(b.Name, "#func") {
				if fn := newFunction(b); fn != nil {
					t.Set(fn)
				}
				continue
			}
			walk(b.Children)
		}
	}
	walk(parser.Parse(source))
	return t
}

// Suggest returns the closest registered command name, or "".
func (e *Evaluator) Suggest(name string) string {
	ranks := fuzzy.RankFindFold(name, e.registry.Names())
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// report collects trace steps and errors across nested call frames.
type report struct {
	trace  []TraceStep
	errors []Error
}

// frame binds loop and call variables for slot:: and arg::.
type frame struct {
	vars map[string]string
	call bool
}

// run is the state of one evaluate() invocation or call:: frame.
type run struct {
	e        *Evaluator
	ctx      *Context
	vars     map[string]string
	funcs    *FunctionTable
	frames   []frame
	report   *report
	returned bool
}

func (r *run) warn(n expr.Node, command, msg string) {
	r.report.errors = append(r.report.errors, Error{
		Message:  msg,
		Command:  command,
		Severity: Warning,
		Span:     n.Position(),
	})
	r.e.logger.Debug("cbs warning",
		zap.String("command", command),
		zap.Int("offset", n.Position().Start),
		zap.String("message", msg))
}

func (r *run) fail(n expr.Node, command, msg string) {
	r.report.errors = append(r.report.errors, Error{
		Message:  msg,
		Command:  command,
		Severity: Severe,
		Span:     n.Position(),
	})
	r.e.logger.Warn("cbs error",
		zap.String("command", command),
		zap.Int("offset", n.Position().Start),
		zap.String("error", msg))
}

// nodes evaluates siblings in order, stopping once a return has fired.
func (r *run) nodes(nodes []expr.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		if r.returned {
			break
		}
		sb.WriteString(r.node(n))
		if r.vars[VarForceReturn] == "1" {
			r.returned = true
		}
	}
	return sb.String()
}

func (r *run) node(n expr.Node) string {
	switch x := n.(type) {
	case expr.Text:
		return x.Value
	case expr.Command:
		return r.command(x)
	case expr.Block:
		return r.block(x)
	}
	return ""
}

// eval evaluates a raw argument that starts at offset in the document.
func (r *run) eval(src string, offset int) string {
	if !scanner.HasTag(src) {
		return src
	}
	return r.nodes(parser.ParseAt(src, offset))
}

// argOffsets locates each argument inside the tag by walking back from the
// end of its content.
func argOffsets(value string, span expr.Span, args []string) []int {
	offsets := make([]int, len(args))
	pos := span.Start + 2 + len(value)
	for i := len(args) - 1; i >= 0; i-- {
		pos -= len(args[i])
		offsets[i] = pos
		pos -= 2
	}
	return offsets
}

// args evaluates every argument, inner tags first.
func (r *run) args(value string, span expr.Span, raw []string) []string {
	offsets := argOffsets(value, span, raw)
	out := make([]string, len(raw))
	for i, a := range raw {
		out[i] = r.eval(a, offsets[i])
	}
	return out
}

func (r *run) command(c expr.Command) string {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	switch name {
	case ":else", "//":
		return ""
	case "slot":
		return r.slot(c)
	case "arg":
		return r.arg(c)
	case "call":
		return r.call(c)
	}

	cmd, ok := r.e.registry.Lookup(name)
	if !ok {
		msg := fmt.Sprintf("unknown command %q", name)
		if s := r.e.Suggest(name); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		r.warn(c, name, msg)
		return c.String()
	}
	if cmd.Kind == KindDocOnly || cmd.Fn == nil {
		return c.String()
	}

	start := time.Now()
	args := r.args(c.Value, c.Span, c.Args)
	if r.returned {
		return ""
	}

	out, err := r.invoke(cmd, args)
	if err != nil {
		r.fail(c, name, err.Error())
		return ""
	}
	text := out.Text
	if out.Decline {
		text = c.String()
	}
	if out.Vars != nil {
		r.vars = out.Vars
	}
	r.report.trace = append(r.report.trace, TraceStep{
		Span:     c.Span,
		Original: c.String(),
		Resolved: text,
		Command:  name,
		Args:     args,
		Duration: time.Since(start),
	})
	return text
}

// invoke runs a callback, turning a panic into an error.
func (r *run) invoke(cmd *Command, args []string) (out Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return cmd.Fn(args, r.ctx, r.vars)
}

// slot resolves a loop or call binding, innermost first, then temp vars.
func (r *run) slot(c expr.Command) string {
	args := r.args(c.Value, c.Span, c.Args)
	name := strings.TrimSpace(argAt(args, 0))
	if name == "" {
		return ""
	}
	for i := len(r.frames) - 1; i >= 0; i-- {
		if v, ok := r.frames[i].vars[name]; ok {
			return v
		}
	}
	return r.vars[name]
}

// arg resolves a call argument by 0-based index or parameter name. Outside
// a call, or for an unknown argument, the tag is left as is.
func (r *run) arg(c expr.Command) string {
	args := r.args(c.Value, c.Span, c.Args)
	key := strings.TrimSpace(argAt(args, 0))
	for i := len(r.frames) - 1; i >= 0; i-- {
		if !r.frames[i].call {
			continue
		}
		if v, ok := r.frames[i].vars[key]; ok {
			return v
		}
		break
	}
	return c.String()
}

func (r *run) call(c expr.Command) string {
	args := r.args(c.Value, c.Span, c.Args)
	if r.returned {
		return ""
	}
	if len(args) == 0 {
		r.fail(c, "call", "missing function name")
		return ""
	}
	name := strings.TrimSpace(args[0])
	fn := r.funcs.Get(name)
	if fn == nil {
		r.warn(c, "call", fmt.Sprintf("unknown function %q", name))
		return c.String()
	}
	if r.ctx.CallStackDepth >= MaxCallDepth {
		r.fail(c, "call", fmt.Sprintf("call stack limit of %d reached in %q", MaxCallDepth, name))
		return CallStackError
	}

	start := time.Now()
	bound := make(map[string]string, 2*len(args))
	for i, a := range args[1:] {
		bound[fmt.Sprint(i)] = a
		if i < len(fn.Params) {
			bound[fn.Params[i]] = a
		}
	}
	child := &run{
		e:      r.e,
		ctx:    r.ctx,
		vars:   make(map[string]string),
		funcs:  r.funcs,
		frames: []frame{{vars: bound, call: true}},
		report: r.report,
	}

	r.ctx.CallStackDepth++
	out := child.nodes(fn.Nodes)
	r.ctx.CallStackDepth--
	if child.returned {
		out = child.vars[VarReturn]
	}

	r.report.trace = append(r.report.trace, TraceStep{
		Span:     c.Span,
		Original: c.String(),
		Resolved: out,
		Command:  "call",
		Args:     args,
		Duration: time.Since(start),
	})
	return out
}
