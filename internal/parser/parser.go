// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package parser turns CBS source into a tree of Text, Command and Block nodes.
//
// Malformed input never fails the parse. An unterminated "{{" leaves the rest
// of the input as text, a close tag with no open block is kept as text, and a
// block that never closes is flattened back into its open tag followed by its
// children. Each of these is reported as a Diagnostic.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"nickandperla.net/cbs/internal/expr"
	"nickandperla.net/cbs/internal/scanner"
	"nickandperla.net/cbs/internal/token"
)

// Kind classifies a Diagnostic.
type Kind int

const (
	UnterminatedTag Kind = iota
	StrayClose
	UnclosedBlock
)

func (k Kind) String() string {
	switch k {
	case UnterminatedTag:
		return "unterminated-tag"
	case StrayClose:
		return "stray-close"
	case UnclosedBlock:
		return "unclosed-block"
	}
	return "unknown"
}

// Diagnostic describes a malformed fragment that was degraded to text.
type Diagnostic struct {
	Kind    Kind
	Message string
	Span    expr.Span
	Line    int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

type frame struct {
	block    expr.Block
	children []expr.Node
	line     int
}

type parser struct {
	scan  *scanner.Scanner
	root  []expr.Node
	stack []*frame
	diags []Diagnostic
}

// Parse parses source into nodes. Legacy <user>/<char>/<bot> aliases are
// rewritten first, so spans refer to the rewritten text.
func Parse(source string) []expr.Node {
	nodes, _ := ParseWithDiagnostics(source)
	return nodes
}

// ParseWithDiagnostics parses source and also returns what was degraded.
func ParseWithDiagnostics(source string) ([]expr.Node, []Diagnostic) {
	p := &parser{scan: scanner.NewFromString(token.RewriteLegacy(source))}
	p.run()
	return p.root, p.diags
}

// ParseAt parses a fragment that starts at offset in some larger source,
// shifting every span accordingly.
func ParseAt(source string, offset int) []expr.Node {
	nodes := Parse(source)
	if offset == 0 {
		return nodes
	}
	return shift(nodes, offset)
}

func shift(nodes []expr.Node, offset int) []expr.Node {
	out := make([]expr.Node, len(nodes))
	for i, n := range nodes {
		switch x := n.(type) {
		case expr.Text:
			x.Span = expr.Span{Start: x.Span.Start + offset, End: x.Span.End + offset}
			out[i] = x
		case expr.Command:
			x.Span = expr.Span{Start: x.Span.Start + offset, End: x.Span.End + offset}
			out[i] = x
		case expr.Block:
			x.Span = expr.Span{Start: x.Span.Start + offset, End: x.Span.End + offset}
			x.Children = shift(x.Children, offset)
			out[i] = x
		default:
			out[i] = n
		}
	}
	return out
}

// Check returns only the diagnostics for source.
func Check(source string) []Diagnostic {
	_, diags := ParseWithDiagnostics(source)
	return diags
}

func (p *parser) current() *[]expr.Node {
	if len(p.stack) == 0 {
		return &p.root
	}
	return &p.stack[len(p.stack)-1].children
}

func (p *parser) appendNode(n expr.Node) {
	cur := p.current()
	if t, ok := n.(expr.Text); ok {
		*cur = expr.AppendText(*cur, t.Value, t.Span)
		return
	}
	*cur = append(*cur, n)
}

func (p *parser) report(kind Kind, span expr.Span, line int, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		Line:    line,
	})
}

func (p *parser) run() {
	for {
		item, err := p.scan.Next()
		if err != nil || item.Token == token.EOF {
			break
		}
		span := expr.Span{Start: item.Start, End: item.End}

		if item.Token == token.TEXT {
			if item.Unterminated {
				p.report(UnterminatedTag, span, item.Line, "unterminated %q", token.Open)
			}
			p.appendNode(expr.Text{Value: item.Value, Span: span})
			continue
		}

		content := item.Value
		switch {
		// Comments first: "//" must never be taken for a close tag.
		case strings.HasPrefix(content, token.PrefixComment):
			p.appendNode(expr.Command{
				Name:  token.PrefixComment,
				Args:  []string{strings.TrimPrefix(content, token.PrefixComment)},
				Value: content,
				Span:  span,
			})
		case strings.HasPrefix(content, token.PrefixBlock):
			p.stack = append(p.stack, &frame{block: newBlock(content, span), line: item.Line})
		case strings.HasPrefix(content, token.PrefixClose):
			p.closeBlock(content, span, item.Line)
		default:
			p.appendNode(newCommand(content, span))
		}
	}

	// Flatten blocks that never closed, innermost first.
	for len(p.stack) > 0 {
		f := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		p.report(UnclosedBlock, f.block.Span, f.line, "block %q is never closed", f.block.Name)
		p.appendNode(expr.Text{Value: token.Open + f.block.Value + token.Close, Span: f.block.Span})
		for _, child := range f.children {
			p.appendNode(child)
		}
	}
}

// closeBlock closes the innermost open block regardless of the close tag's name.
func (p *parser) closeBlock(content string, span expr.Span, line int) {
	if len(p.stack) == 0 {
		p.report(StrayClose, span, line, "close tag %q has no open block", token.Open+content+token.Close)
		p.appendNode(expr.Text{Value: token.Open + content + token.Close, Span: span})
		return
	}
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	b := f.block
	b.Children = f.children
	b.Close = content
	b.Span.End = span.End
	p.appendNode(b)
}

func newCommand(content string, span expr.Span) expr.Command {
	// {{? 1+2}} is shorthand for calc
	if strings.HasPrefix(content, token.PrefixCalc) {
		return expr.Command{
			Name:  "calc",
			Args:  []string{content[len(token.PrefixCalc):]},
			Value: content,
			Span:  span,
		}
	}
	segs := scanner.SplitArgs(content)
	return expr.Command{
		Name:  strings.TrimSpace(segs[0]),
		Args:  segs[1:],
		Value: content,
		Span:  span,
	}
}

// newBlock splits a block header. The name runs up to the first whitespace;
// anything after it becomes the first argument, followed by the "::" segments.
func newBlock(content string, span expr.Span) expr.Block {
	segs := scanner.SplitArgs(content)
	head := segs[0]
	name, rest := head, ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		name, rest = head[:i], strings.TrimSpace(head[i:])
	}

	args := make([]string, 0, len(segs))
	if rest != "" {
		args = append(args, rest)
	}
	args = append(args, segs[1:]...)

	return expr.Block{
		Name:  name,
		Args:  args,
		Value: content,
		Span:  span,
	}
}
