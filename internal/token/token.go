// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines CBS tag delimiters and escape code points.
package token

import (
	"regexp"
	"strings"
)

// Token represents a scanned item type.
type Token int

const (
	EOF Token = iota
	TEXT
	TAG // {{ ... }} with the delimiters stripped
)

// Tag delimiters.
const (
	Open      = "{{"
	Close     = "}}"
	Separator = "::"
)

// Tag content prefixes, checked in this order.
const (
	PrefixComment = "//"
	PrefixBlock   = "#"
	PrefixClose   = "/"
	PrefixCalc    = "? "
)

// Else is the branch marker inside #when/#if.
const Else = ":else"

// Private-use runes standing in for already-escaped delimiters.
const (
	RuneCurlyOpen   = '\uE9B8' // {
	RuneCurlyClose  = '\uE9B9' // }
	RuneSquareOpen  = '\uE9BA' // [
	RuneSquareClose = '\uE9BB' // ]
	RuneAngleOpen   = '\uE9BC' // <
	RuneAngleClose  = '\uE9BD' // >
	RuneColon       = '\uE9BE' // :
	RuneSemicolon   = '\uE9BF' // ;
)

var escapeReplacer = strings.NewReplacer(
	"{", string(RuneCurlyOpen),
	"}", string(RuneCurlyClose),
	"[", string(RuneSquareOpen),
	"]", string(RuneSquareClose),
	"<", string(RuneAngleOpen),
	">", string(RuneAngleClose),
	":", string(RuneColon),
	";", string(RuneSemicolon),
)

var unescapeReplacer = strings.NewReplacer(
	string(RuneCurlyOpen), "{",
	string(RuneCurlyClose), "}",
	string(RuneSquareOpen), "[",
	string(RuneSquareClose), "]",
	string(RuneAngleOpen), "<",
	string(RuneAngleClose), ">",
	string(RuneColon), ":",
	string(RuneSemicolon), ";",
)

var braceReplacer = strings.NewReplacer(
	"{", string(RuneCurlyOpen),
	"}", string(RuneCurlyClose),
)

// Escape replaces every delimiter character with its private-use rune.
func Escape(s string) string { return escapeReplacer.Replace(s) }

// EscapeBraces replaces only curly braces, leaving other delimiters alone.
func EscapeBraces(s string) string { return braceReplacer.Replace(s) }

// Unescape is the inverse of Escape. Hosts call it when displaying final output.
func Unescape(s string) string { return unescapeReplacer.Replace(s) }

// IsEscapeRune returns true if r is one of the private-use delimiter runes.
func IsEscapeRune(r rune) bool {
	return r >= RuneCurlyOpen && r <= RuneSemicolon
}

var legacyAlias = regexp.MustCompile(`(?i)<(user|char|bot)>`)

// RewriteLegacy turns <user>, <char> and <bot> into their tag forms.
func RewriteLegacy(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return legacyAlias.ReplaceAllString(s, "{{$1}}")
}

// String returns the string representation of a token.
func (t Token) String() string {
	switch t {
	case EOF:
		return "EOF"
	case TEXT:
		return "TEXT"
	case TAG:
		return "TAG"
	}
	return "UNKNOWN"
}
