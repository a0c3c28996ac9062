// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines the CBS node tree.
package expr

import (
	"strings"

	"nickandperla.net/cbs/internal/token"
)

// Span is a [Start, End) byte range into the parsed source.
type Span struct {
	Start int
	End   int
}

// Node is the interface all node types implement.
type Node interface {
	// String returns the node's original source text.
	String() string
	// Position returns where the node came from.
	Position() Span
}

// Text represents literal text content.
type Text struct {
	Value string
	Span  Span
}

func (t Text) String() string { return t.Value }
func (t Text) Position() Span { return t.Span }
func (t Text) IsEmpty() bool  { return t.Value == "" }

// Command represents a {{name::arg::...}} tag.
type Command struct {
	Name  string
	Args  []string // Raw argument source, possibly containing nested tags
	Value string   // Tag content between the delimiters
	Span  Span
}

func (c Command) String() string { return wrap(c.Value) }
func (c Command) Position() Span { return c.Span }

// Block represents {{#name args}}children{{/name}}.
type Block struct {
	Name     string
	Args     []string
	Children []Node
	Value    string // Open tag content
	Close    string // Close tag content
	Span     Span
}

func (b Block) String() string {
	var sb strings.Builder
	sb.WriteString(wrap(b.Value))
	sb.WriteString(Source(b.Children))
	sb.WriteString(wrap(b.Close))
	return sb.String()
}
func (b Block) Position() Span { return b.Span }

// Body returns the source text between the open and close tags.
func (b Block) Body() string {
	return Source(b.Children)
}

// Source re-serializes nodes to their original text.
func Source(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.String())
	}
	return sb.String()
}

// AppendText adds literal text to nodes, merging with a trailing Text node.
func AppendText(nodes []Node, value string, span Span) []Node {
	if value == "" {
		return nodes
	}
	if n := len(nodes); n > 0 {
		if t, ok := nodes[n-1].(Text); ok {
			t.Value += value
			t.Span.End = span.End
			nodes[n-1] = t
			return nodes
		}
	}
	return append(nodes, Text{Value: value, Span: span})
}

func wrap(content string) string {
	return token.Open + content + token.Close
}
