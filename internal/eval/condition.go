package eval

import (
	"strings"

	"nickandperla.net/cbs/internal/jsnum"
)

// WhitespaceMode controls how a conditional block trims its chosen branch.
type WhitespaceMode int

const (
	// ModeNormal drops leading and trailing blank lines of multi-line output.
	ModeNormal WhitespaceMode = iota
	// ModeKeep leaves the branch untouched.
	ModeKeep
	// ModeLegacy ignores :else and strips indentation from every line.
	ModeLegacy
)

// Condition evaluates #when arguments. Tokens are consumed right to left
// as a stack: pop a value, pop an operator, push the result. Binary
// operators pop their left operand last.
//
//	{{#when::5::>::3}}        5 > 3
//	{{#when::not::x::is::y}}  !(x == y)
//	{{#when::keep::1}}        true, keep whitespace
func Condition(args []string, ctx *Context) (bool, WhitespaceMode) {
	mode := ModeNormal
	if len(args) == 0 {
		return false, mode
	}
	stack := append([]string(nil), args...)
	pop := func() string {
		if len(stack) == 0 {
			return ""
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(b bool) { stack = append(stack, jsnum.Bool(b)) }

	chatVar := func(name string) string {
		if ctx == nil {
			return ""
		}
		return ctx.ChatVars[name]
	}
	toggle := func(name string) string {
		if ctx == nil {
			return ""
		}
		return ctx.GlobalVars["toggle_"+name]
	}
	num := func(a, b string) (float64, float64) {
		return jsnum.Number(a), jsnum.Number(b)
	}

	for len(stack) > 1 {
		cond := pop()
		op := pop()
		switch op {
		case "not":
			push(!jsnum.Truthy(cond))
		case "keep":
			mode = ModeKeep
			stack = append(stack, cond)
		case "legacy":
			mode = ModeLegacy
			stack = append(stack, cond)
		case "and":
			left := pop()
			push(jsnum.Truthy(cond) && jsnum.Truthy(left))
		case "or":
			left := pop()
			push(jsnum.Truthy(cond) || jsnum.Truthy(left))
		case "is":
			push(pop() == cond)
		case "isnot":
			push(pop() != cond)
		case "var":
			push(jsnum.Truthy(chatVar(cond)))
		case "toggle":
			push(jsnum.Truthy(toggle(cond)))
		case "vis":
			push(chatVar(pop()) == cond)
		case "visnot":
			push(chatVar(pop()) != cond)
		case "tis":
			push(toggle(pop()) == cond)
		case "tisnot":
			push(toggle(pop()) != cond)
		case ">":
			a, b := num(pop(), cond)
			push(a > b)
		case "<":
			a, b := num(pop(), cond)
			push(a < b)
		case ">=":
			a, b := num(pop(), cond)
			push(a >= b)
		case "<=":
			a, b := num(pop(), cond)
			push(a <= b)
		default:
			push(jsnum.Truthy(cond))
		}
	}
	return jsnum.Truthy(strings.TrimSpace(argAt(stack, 0))), mode
}
