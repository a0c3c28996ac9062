// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a streaming, nesting-aware tag scanner for CBS.
package scanner

import (
	"bufio"
	"io"
	"strings"

	"nickandperla.net/cbs/internal/token"
)

// Scanner splits CBS input into TEXT runs and {{...}} tags.
type Scanner struct {
	reader *bufio.Reader
	buf    strings.Builder
	peeked *Item
	offset int // Byte offset of the next unread rune
	line   int // Current line number (1-based)
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string // Tag content without delimiters, or the literal text
	Line  int    // Line number where this token started
	Start int    // Byte offset of the first byte (the "{{" for tags)
	End   int    // Byte offset one past the last byte

	// Unterminated is set on a TEXT item produced from a "{{" that never closed.
	Unterminated bool
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(r),
		line:   1,
	}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// Line returns the current line number (1-based).
func (s *Scanner) Line() int {
	return s.line
}

// Offset returns the byte offset of the next unread rune.
func (s *Scanner) Offset() int {
	return s.offset
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (*Item, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	s.peeked = item
	return item, nil
}

// Next returns the next item from the input.
func (s *Scanner) Next() (*Item, error) {
	if s.peeked != nil {
		item := s.peeked
		s.peeked = nil
		return item, nil
	}

	s.buf.Reset()
	start := s.offset
	startLine := s.line

	for {
		open, err := s.atDelimiter(token.Open)
		if err != nil {
			return nil, err
		}
		if open {
			// Return accumulated text first
			if s.buf.Len() > 0 {
				return &Item{Token: token.TEXT, Value: s.buf.String(), Line: startLine, Start: start, End: s.offset}, nil
			}
			return s.scanTag()
		}

		r, err := s.readRune()
		if err == io.EOF {
			if s.buf.Len() > 0 {
				return &Item{Token: token.TEXT, Value: s.buf.String(), Line: startLine, Start: start, End: s.offset}, nil
			}
			return &Item{Token: token.EOF, Line: s.line, Start: s.offset, End: s.offset}, nil
		}
		if err != nil {
			return nil, err
		}
		s.buf.WriteRune(r)
	}
}

// scanTag consumes a "{{" and everything up to its matching "}}".
// Nested tags are kept verbatim in the content.
func (s *Scanner) scanTag() (*Item, error) {
	start := s.offset
	startLine := s.line
	s.discard(len(token.Open))

	var content strings.Builder
	depth := 1

	for {
		if ok, err := s.atDelimiter(token.Open); err != nil {
			return nil, err
		} else if ok {
			s.discard(len(token.Open))
			content.WriteString(token.Open)
			depth++
			continue
		}
		if ok, err := s.atDelimiter(token.Close); err != nil {
			return nil, err
		} else if ok {
			s.discard(len(token.Close))
			depth--
			if depth == 0 {
				return &Item{Token: token.TAG, Value: content.String(), Line: startLine, Start: start, End: s.offset}, nil
			}
			content.WriteString(token.Close)
			continue
		}

		r, err := s.readRune()
		if err == io.EOF {
			// Unterminated - the rest of the input is literal text
			return &Item{
				Token:        token.TEXT,
				Value:        token.Open + content.String(),
				Line:         startLine,
				Start:        start,
				End:          s.offset,
				Unterminated: true,
			}, nil
		}
		if err != nil {
			return nil, err
		}
		content.WriteRune(r)
	}
}

func (s *Scanner) atDelimiter(delim string) (bool, error) {
	b, err := s.reader.Peek(len(delim))
	if len(b) < len(delim) {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return string(b) == delim, nil
}

// discard skips n ASCII bytes already confirmed by atDelimiter.
func (s *Scanner) discard(n int) {
	s.reader.Discard(n)
	s.offset += n
}

func (s *Scanner) readRune() (rune, error) {
	r, size, err := s.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	s.offset += size
	if r == '\n' {
		s.line++
	}
	return r, nil
}

// SplitArgs splits tag content on top-level "::" separators.
// Separators inside nested {{...}} do not split.
func SplitArgs(content string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(content); {
		switch {
		case strings.HasPrefix(content[i:], token.Open):
			depth++
			i += len(token.Open)
		case strings.HasPrefix(content[i:], token.Close) && depth > 0:
			depth--
			i += len(token.Close)
		case depth == 0 && strings.HasPrefix(content[i:], token.Separator):
			parts = append(parts, content[last:i])
			i += len(token.Separator)
			last = i
		default:
			i++
		}
	}
	return append(parts, content[last:])
}

// HasTag reports whether s contains something that could be a tag.
func HasTag(s string) bool {
	i := strings.Index(s, token.Open)
	return i >= 0 && strings.Contains(s[i+len(token.Open):], token.Close)
}
