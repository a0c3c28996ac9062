package eval

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf16"

	"nickandperla.net/cbs/internal/jsnum"
)

// Value conversions shared by the builtin groups. Strings are measured in
// UTF-16 code units so lengths and hashes agree with the scripts' host.

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// hash32 is the classic h*31+c hash over UTF-16 units with int32 wraparound.
func hash32(s string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	if h < 0 {
		return -int64(h)
	}
	return int64(h)
}

// toNumber coerces a decoded JSON value.
func toNumber(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		return jsnum.Number(x.String())
	case string:
		return jsnum.Number(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case nil:
		return 0
	case []any:
		switch len(x) {
		case 0:
			return 0
		case 1:
			return toNumber(jsString(x[0]))
		}
	}
	return math.NaN()
}

// jsString is String(v) for a decoded JSON value.
func jsString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return jsnum.Format(jsnum.Number(x.String()))
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	case []any:
		return joinValues(x, ",")
	}
	return "[object Object]"
}

// joinValues is Array.prototype.join: null elements become "".
func joinValues(arr []any, sep string) string {
	parts := make([]string, len(arr))
	for i, v := range arr {
		if v != nil {
			parts[i] = jsString(v)
		}
	}
	return strings.Join(parts, sep)
}

// toIndex truncates toward zero; NaN is 0.
func toIndex(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// at resolves a possibly negative index against n elements.
func at(n int, f float64) (int, bool) {
	i := toIndex(f)
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

// sliceStart resolves the start of slice(start) against n elements.
func sliceStart(n int, f float64) int {
	i := toIndex(f)
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

// arrayArg decodes a JSON array argument; anything else is empty.
func arrayArg(s string) []any {
	if s == "" {
		return []any{}
	}
	arr, ok := jsnum.ParseArray(s)
	if !ok {
		return []any{}
	}
	return arr
}

// numbersArg reads numbers from several arguments, or from one JSON array.
func numbersArg(args []string) []float64 {
	var nums []float64
	if len(args) > 1 {
		for _, a := range args {
			nums = append(nums, jsnum.Number(a))
		}
		return nums
	}
	for _, v := range arrayArg(argAt(args, 0)) {
		nums = append(nums, toNumber(v))
	}
	return nums
}

// orDefault returns args[i], or def when the argument is absent.
func orDefault(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

// orFallback returns args[i] when it is non-empty, else def.
func orFallback(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}
