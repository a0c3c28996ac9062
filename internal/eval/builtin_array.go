package eval

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"nickandperla.net/cbs/internal/jsnum"
)

// MaxRange caps the number of elements the range command produces.
const MaxRange = 10000

// makeDict keeps keys in first-seen order. Duplicate keys keep their first
// position and take the last value.
func makeDict(args []string) string {
	var keys []string
	values := make(map[string]string)
	for _, a := range args {
		i := strings.IndexByte(a, '=')
		if i <= 0 {
			continue
		}
		k := a[:i]
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] = a[i+1:]
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsnum.Stringify(k))
		sb.WriteByte(':')
		sb.WriteString(jsnum.Stringify(values[k]))
	}
	sb.WriteByte('}')
	return sb.String()
}

// lookup reads key from a decoded JSON container. Arrays accept canonical
// integer keys.
func lookup(v any, key string) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		e, ok := x[key]
		return e, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(x) || strconv.Itoa(i) != key {
			return nil, false
		}
		return x[i], true
	}
	return nil, false
}

func truthyValue(v any) bool {
	switch x := v.(type) {
	case string:
		return x == "1" || x == "true"
	case bool:
		return x
	}
	return false
}

var arrayCommands = []Command{
	{
		Name:        "arraylength",
		Description: "Number of elements",
		Fn:          unary(func(s string) string { return strconv.Itoa(len(arrayArg(s))) }),
	},
	{
		Name:        "arrayelement",
		Description: "Element at an index; negative counts from the end",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			arr := arrayArg(argAt(args, 0))
			i, ok := at(len(arr), jsnum.Number(argAt(args, 1)))
			if !ok {
				return Text("null")
			}
			return Text(jsnum.Text(arr[i]))
		},
	},
	{
		Name:        "arraypush",
		Description: "Append an element",
		Fn: binary(func(s, v string) string {
			return jsnum.Stringify(append(arrayArg(s), v))
		}),
	},
	{
		Name:        "arraypop",
		Description: "Drop the last element",
		Fn: unary(func(s string) string {
			arr := arrayArg(s)
			if len(arr) > 0 {
				arr = arr[:len(arr)-1]
			}
			return jsnum.Stringify(arr)
		}),
	},
	{
		Name:        "arrayshift",
		Description: "Drop the first element",
		Fn: unary(func(s string) string {
			arr := arrayArg(s)
			if len(arr) > 0 {
				arr = arr[1:]
			}
			return jsnum.Stringify(arr)
		}),
	},
	{
		Name:        "arraysplice",
		Description: "Remove elements and insert the remaining arguments",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			arr := arrayArg(argAt(args, 0))
			start := sliceStart(len(arr), jsnum.Number(argAt(args, 1)))
			count := toIndex(jsnum.Number(orDefault(args, 2, "1")))
			count = max(0, min(count, len(arr)-start))

			out := make([]any, 0, len(arr))
			out = append(out, arr[:start]...)
			for _, a := range args[min(3, len(args)):] {
				out = append(out, a)
			}
			out = append(out, arr[start+count:]...)
			return Text(jsnum.Stringify(out))
		},
	},
	{
		Name:        "makearray",
		Aliases:     []string{"array", "a"},
		Description: "JSON array of the arguments",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			if args == nil {
				args = []string{}
			}
			return Text(jsnum.Stringify(args))
		},
	},
	{
		Name:        "makedict",
		Aliases:     []string{"dict", "d", "makeobject", "object", "o"},
		Description: "JSON object from key=value arguments",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			return Text(makeDict(args))
		},
	},
	{
		Name:        "dictelement",
		Aliases:     []string{"objectelement"},
		Description: "Value under a key, or null",
		Fn: binary(func(s, key string) string {
			var v any
			dec := json.NewDecoder(strings.NewReader(orFallback([]string{s}, 0, "{}")))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return "null"
			}
			e, ok := lookup(v, key)
			if !ok {
				return "null"
			}
			return jsnum.Text(e)
		}),
	},
	{
		Name:        "spread",
		Description: "Join array elements with a separator",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			return Text(joinValues(arrayArg(argAt(args, 0)), orDefault(args, 1, ", ")))
		},
	},
	{
		Name:        "filter",
		Description: "Keep elements whose condition, with $item and $index substituted, is true",
		Fn: binary(func(s, cond string) string {
			out := []any{}
			for i, v := range arrayArg(s) {
				c := strings.ReplaceAll(cond, "$item", jsString(v))
				c = strings.ReplaceAll(c, "$index", strconv.Itoa(i))
				if jsnum.Truthy(c) {
					out = append(out, v)
				}
			}
			return jsnum.Stringify(out)
		}),
	},
	{
		Name:        "all",
		Description: "1 when every element is true",
		Fn: unary(func(s string) string {
			for _, v := range arrayArg(s) {
				if !truthyValue(v) {
					return "0"
				}
			}
			return "1"
		}),
	},
	{
		Name:        "any",
		Description: "1 when some element is true",
		Fn: unary(func(s string) string {
			for _, v := range arrayArg(s) {
				if truthyValue(v) {
					return "1"
				}
			}
			return "0"
		}),
	},
	{
		Name:        "range",
		Description: "JSON array of numbers from start up to end",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			start := jsnum.Number(orDefault(args, 0, "0"))
			end := jsnum.Number(orDefault(args, 1, "10"))
			step := jsnum.Number(orDefault(args, 2, "1"))
			if math.IsNaN(step) || step <= 0 {
				return Text("[]")
			}
			var parts []string
			for i := start; i < end && len(parts) < MaxRange; i += step {
				parts = append(parts, jsnum.Format(i))
			}
			return Text("[" + strings.Join(parts, ",") + "]")
		},
	},
}
