// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package calc evaluates the arithmetic and logic expressions used by the
// calc command.
//
// Evaluation never fails: division by zero and malformed operands yield NaN.
package calc

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"nickandperla.net/cbs/internal/jsnum"
)

// Internal single-rune operators. Two-rune spellings are normalized to these.
const (
	opLessEq    = '≤'
	opGreaterEq = '≥'
	opNotEq     = '≠'
)

type opInfo struct {
	prec  int
	right bool
}

var operators = map[rune]opInfo{
	'+': {prec: 2},
	'-': {prec: 2},
	'*': {prec: 3},
	'/': {prec: 3},
	'%': {prec: 3},
	'^': {prec: 4},
	'<': {prec: 1},
	'>': {prec: 1},
	'|': {prec: 1},
	'&': {prec: 1},
	'=': {prec: 1},

	opLessEq:    {prec: 1},
	opGreaterEq: {prec: 1},
	opNotEq:     {prec: 1},

	'!': {prec: 5, right: true},
}

func isOperator(r rune) bool {
	_, ok := operators[r]
	return ok
}

var (
	chatVarRe   = regexp.MustCompile(`\$([a-zA-Z0-9_]+)`)
	globalVarRe = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)
	nullRe      = regexp.MustCompile(`(?i)null`)

	normalizer = strings.NewReplacer(
		"&&", "&",
		"||", "|",
		"<=", string(opLessEq),
		">=", string(opGreaterEq),
		"==", "=",
		"!=", string(opNotEq),
	)
)

// Resolver supplies values for $name (chat) and @name (global) references.
// A nil lookup behaves as if every variable were unset.
type Resolver struct {
	Chat   func(name string) string
	Global func(name string) string
}

// Eval evaluates expression. Parentheses are resolved innermost first by
// evaluating each group and splicing its result back into the text.
func Eval(expression string, r Resolver) float64 {
	depth := []*strings.Builder{{}}
	for _, c := range expression {
		switch {
		case c == '(':
			depth = append(depth, &strings.Builder{})
		case c == ')' && len(depth) > 1:
			inner := depth[len(depth)-1].String()
			depth = depth[:len(depth)-1]
			depth[len(depth)-1].WriteString(jsnum.Format(evalFlat(inner, r)))
		default:
			depth[len(depth)-1].WriteRune(c)
		}
	}

	// Unclosed groups are joined back in order.
	var sb strings.Builder
	for _, b := range depth {
		sb.WriteString(b.String())
	}
	return evalFlat(sb.String(), r)
}

// String evaluates expression and formats the result.
func String(expression string, r Resolver) string {
	return jsnum.Format(Eval(expression, r))
}

// evalFlat evaluates a parenthesis-free expression.
func evalFlat(text string, r Resolver) float64 {
	text = chatVarRe.ReplaceAllStringFunc(text, func(m string) string {
		return varValue(r.Chat, m[1:])
	})
	text = globalVarRe.ReplaceAllStringFunc(text, func(m string) string {
		return varValue(r.Global, m[1:])
	})
	text = normalizer.Replace(text)
	text = nullRe.ReplaceAllString(text, "0")

	return evalRPN(toRPN(tokenize(text)))
}

func varValue(lookup func(string) string, name string) string {
	if lookup == nil {
		return "0"
	}
	v := jsnum.ParseFloat(lookup(name))
	if math.IsNaN(v) {
		return "0"
	}
	return jsnum.Format(v)
}

// tokenize splits text into operands and operators. A '-' at the start or
// right after another operator begins a negative literal. A missing operand
// becomes "0".
func tokenize(text string) []string {
	var runes []rune
	for _, c := range text {
		if !unicode.IsSpace(c) {
			runes = append(runes, c)
		}
	}

	var tokens []string
	var last strings.Builder
	flush := func() {
		if last.Len() > 0 {
			tokens = append(tokens, last.String())
		} else {
			tokens = append(tokens, "0")
		}
		last.Reset()
	}

	for i, c := range runes {
		switch {
		case c == '-' && (i == 0 || isOperator(runes[i-1]) || runes[i-1] == '('):
			last.WriteRune(c)
		case isOperator(c):
			flush()
			tokens = append(tokens, string(c))
		default:
			last.WriteRune(c)
		}
	}
	flush()
	return tokens
}

// toRPN reorders tokens into postfix with shunting-yard.
func toRPN(tokens []string) []string {
	var out, stack []string
	for _, tok := range tokens {
		op, ok := opOf(tok)
		if !ok {
			out = append(out, tok)
			continue
		}
		info := operators[op]
		for len(stack) > 0 {
			top := operators[[]rune(stack[len(stack)-1])[0]]
			if (!info.right && info.prec <= top.prec) || (info.right && info.prec < top.prec) {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
				continue
			}
			break
		}
		stack = append(stack, tok)
	}
	for len(stack) > 0 {
		out = append(out, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return out
}

func opOf(tok string) (rune, bool) {
	runes := []rune(tok)
	if len(runes) != 1 || !isOperator(runes[0]) {
		return 0, false
	}
	return runes[0], true
}

func truthy(f float64) bool {
	return f != 0 && !math.IsNaN(f)
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// evalRPN runs the postfix stream on a numeric stack. Missing operands are 0.
func evalRPN(rpn []string) float64 {
	var stack []float64
	pop := func() float64 {
		if len(stack) == 0 {
			return 0
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, tok := range rpn {
		op, ok := opOf(tok)
		if !ok {
			stack = append(stack, jsnum.ParseFloat(tok))
			continue
		}
		b := pop()
		a := pop()
		var v float64
		switch op {
		case '+':
			v = a + b
		case '-':
			v = a - b
		case '*':
			v = a * b
		case '/':
			if b == 0 {
				v = math.NaN()
			} else {
				v = a / b
			}
		case '%':
			v = math.Mod(a, b)
		case '^':
			v = math.Pow(a, b)
		case '<':
			v = boolNum(a < b)
		case '>':
			v = boolNum(a > b)
		case '|':
			v = boolNum(truthy(a) || truthy(b))
		case '&':
			v = boolNum(truthy(a) && truthy(b))
		case '=':
			v = boolNum(a == b)
		case opLessEq:
			v = boolNum(a <= b)
		case opGreaterEq:
			v = boolNum(a >= b)
		case opNotEq:
			v = boolNum(a != b)
		case '!':
			v = boolNum(!truthy(b))
		}
		stack = append(stack, v)
	}
	return pop()
}
