package eval

import (
	"fmt"
	"math"
	"strings"

	"nickandperla.net/cbs/internal/calc"
	"nickandperla.net/cbs/internal/jsnum"
)

// numeric applies fn to the first argument coerced with Number().
func numeric(fn func(float64) float64) Callback {
	return unary(func(s string) string {
		return jsnum.Format(fn(jsnum.Number(s)))
	})
}

// compare applies a numeric comparison to the first two arguments.
func compare(fn func(a, b float64) bool) Callback {
	return binary(func(a, b string) string {
		return jsnum.Bool(fn(jsnum.Number(a), jsnum.Number(b)))
	})
}

// jsRound rounds half up, so -2.5 becomes -2.
func jsRound(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Floor(f + 0.5)
}

// parseHex reads a leading base-16 integer the way parseInt(s, 16) does.
func parseHex(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var n float64
	digits := 0
scan:
	for _, c := range s {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			break scan
		}
		n = n*16 + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	if neg {
		return -n
	}
	return n
}

var mathCommands = []Command{
	{
		Name:        "calc",
		Description: "Evaluate an arithmetic expression",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(calc.String(argAt(args, 0), calc.Resolver{
				Chat:   func(n string) string { return ctx.ChatVars[n] },
				Global: func(n string) string { return ctx.GlobalVars[n] },
			}))
		},
	},
	{Name: "round", Description: "Round to the nearest integer", Fn: numeric(jsRound)},
	{Name: "floor", Description: "Round down", Fn: numeric(math.Floor)},
	{Name: "ceil", Description: "Round up", Fn: numeric(math.Ceil)},
	{Name: "abs", Description: "Absolute value", Fn: numeric(math.Abs)},
	{
		Name:        "remaind",
		Description: "Remainder of a divided by b",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			a := jsnum.Number(argAt(args, 0))
			b := jsnum.Number(orDefault(args, 1, "1"))
			return Text(jsnum.Format(math.Mod(a, b)))
		},
	},
	{
		Name:        "pow",
		Description: "a raised to b",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			a := jsnum.Number(argAt(args, 0))
			b := jsnum.Number(orDefault(args, 1, "1"))
			return Text(jsnum.Format(math.Pow(a, b)))
		},
	},
	{
		Name:        "min",
		Description: "Smallest of the arguments or of a JSON array",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			m := math.Inf(1)
			for _, n := range numbersArg(args) {
				m = math.Min(m, n)
			}
			return Text(jsnum.Format(m))
		},
	},
	{
		Name:        "max",
		Description: "Largest of the arguments or of a JSON array",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			m := math.Inf(-1)
			for _, n := range numbersArg(args) {
				m = math.Max(m, n)
			}
			return Text(jsnum.Format(m))
		},
	},
	{
		Name:        "sum",
		Description: "Sum of the arguments or of a JSON array",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			var s float64
			for _, n := range numbersArg(args) {
				s += n
			}
			return Text(jsnum.Format(s))
		},
	},
	{
		Name:        "average",
		Description: "Mean of the arguments or of a JSON array",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			nums := numbersArg(args)
			var s float64
			for _, n := range nums {
				s += n
			}
			return Text(jsnum.Format(s / float64(len(nums))))
		},
	},
	{
		Name:        "fixnum",
		Aliases:     []string{"fixnumber"},
		Description: "Format with a fixed number of decimals",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			digits := jsnum.Number(orDefault(args, 1, "0"))
			if math.IsNaN(digits) {
				digits = 0
			}
			if digits < 0 || digits > 100 {
				return Output{}, fmt.Errorf("fixnum: digits %s out of range 0..100", jsnum.Format(digits))
			}
			return Text(jsnum.ToFixed(jsnum.Number(argAt(args, 0)), int(digits)))
		},
	},
	{
		Name:        "tonumber",
		Description: "Number() of the argument, 0 when it is not numeric",
		Fn: unary(func(s string) string {
			n := jsnum.Number(s)
			if math.IsNaN(n) {
				return "0"
			}
			return jsnum.Format(n)
		}),
	},
	{
		Name:        "tohex",
		Description: "Integer part in base 16",
		Fn:          unary(func(s string) string { return jsnum.Radix(jsnum.Number(s), 16) }),
	},
	{
		Name:        "fromhex",
		Description: "Parse a base 16 integer",
		Fn:          unary(func(s string) string { return jsnum.Format(parseHex(s)) }),
	},
	{
		Name:        "hash",
		Description: "Numeric string hash",
		Fn:          unary(func(s string) string { return fmt.Sprint(hash32(s)) }),
	},
}

var logicCommands = []Command{
	{Name: "equal", Description: "1 when both strings are equal", Fn: binary(func(a, b string) string { return jsnum.Bool(a == b) })},
	{Name: "notequal", Aliases: []string{"not_equal"}, Description: "1 when the strings differ", Fn: binary(func(a, b string) string { return jsnum.Bool(a != b) })},
	{Name: "greater", Description: "1 when a > b", Fn: compare(func(a, b float64) bool { return a > b })},
	{Name: "less", Description: "1 when a < b", Fn: compare(func(a, b float64) bool { return a < b })},
	{Name: "greaterequal", Aliases: []string{"greater_equal"}, Description: "1 when a >= b", Fn: compare(func(a, b float64) bool { return a >= b })},
	{Name: "lessequal", Aliases: []string{"less_equal"}, Description: "1 when a <= b", Fn: compare(func(a, b float64) bool { return a <= b })},
	{Name: "and", Description: "1 when both are 1", Fn: binary(func(a, b string) string { return jsnum.Bool(a == "1" && b == "1") })},
	{Name: "or", Description: "1 when either is 1", Fn: binary(func(a, b string) string { return jsnum.Bool(a == "1" || b == "1") })},
	{Name: "not", Description: "0 for 1, otherwise 1", Fn: unary(func(a string) string { return jsnum.Bool(a != "1") })},
	{
		Name:        "?",
		Description: "Second argument when the first is 1, else the third",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			if argAt(args, 0) == "1" {
				return Text(argAt(args, 1))
			}
			return Text(argAt(args, 2))
		},
	},
	{
		Name:        "iserror",
		Description: "1 for NaN, null, undefined or error",
		Fn: unary(func(s string) string {
			switch s {
			case "NaN", "null", "undefined", "error":
				return "1"
			}
			return "0"
		}),
	},
}
