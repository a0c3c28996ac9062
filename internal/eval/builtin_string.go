package eval

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"nickandperla.net/cbs/internal/jsnum"
)

// maxRepeat bounds commands that repeat output.
const maxRepeat = 1 << 20

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// unicodeEncode writes every UTF-16 unit as \uXXXX.
func unicodeEncode(s string) string {
	var sb strings.Builder
	for _, u := range utf16.Encode([]rune(s)) {
		fmt.Fprintf(&sb, `\u%04x`, u)
	}
	return sb.String()
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// unicodeDecode turns \uXXXX sequences back into text. Consecutive escapes
// are decoded together so surrogate pairs survive.
func unicodeDecode(s string) string {
	var sb strings.Builder
	var units []uint16
	flush := func() {
		if len(units) > 0 {
			sb.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}
	for i := 0; i < len(s); {
		if i+6 <= len(s) && s[i] == '\\' && s[i+1] == 'u' &&
			isHex(s[i+2]) && isHex(s[i+3]) && isHex(s[i+4]) && isHex(s[i+5]) {
			units = append(units, uint16(parseHex(s[i+2:i+6])))
			i += 6
			continue
		}
		flush()
		_, size := utf8.DecodeRuneInString(s[i:])
		sb.WriteString(s[i : i+size])
		i += size
	}
	flush()
	return sb.String()
}

// xorUnits XORs text against a repeating key, both as UTF-16 units.
func xorUnits(text, key []uint16) []uint16 {
	out := make([]uint16, len(text))
	for i, c := range text {
		out[i] = c ^ key[i%len(key)]
	}
	return out
}

// latin1 converts units to bytes, failing on anything above 0xFF.
func latin1(units []uint16) ([]byte, error) {
	b := make([]byte, len(units))
	for i, u := range units {
		if u > 0xFF {
			return nil, fmt.Errorf("character %U outside Latin-1 cannot be encoded", u)
		}
		b[i] = byte(u)
	}
	return b, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

var stringCommands = []Command{
	{Name: "startswith", Description: "1 when a starts with b", Fn: binary(func(a, b string) string { return jsnum.Bool(strings.HasPrefix(a, b)) })},
	{Name: "endswith", Description: "1 when a ends with b", Fn: binary(func(a, b string) string { return jsnum.Bool(strings.HasSuffix(a, b)) })},
	{Name: "contains", Description: "1 when a contains b", Fn: binary(func(a, b string) string { return jsnum.Bool(strings.Contains(a, b)) })},
	{
		Name:        "replace",
		Description: "Replace every occurrence",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			return Text(strings.ReplaceAll(argAt(args, 0), argAt(args, 1), argAt(args, 2)))
		},
	},
	{
		Name:        "split",
		Description: "Split into a JSON array",
		Fn: binary(func(s, sep string) string {
			parts := strings.Split(s, sep)
			if parts == nil {
				parts = []string{}
			}
			return jsnum.Stringify(parts)
		}),
	},
	{
		Name:        "join",
		Description: "Join a JSON array",
		Fn: binary(func(s, sep string) string {
			arr, ok := jsnum.ParseArray(orFallback([]string{s}, 0, "[]"))
			if !ok {
				return ""
			}
			return joinValues(arr, sep)
		}),
	},
	{Name: "trim", Description: "Trim surrounding whitespace", Fn: unary(strings.TrimSpace)},
	{Name: "length", Description: "Length in UTF-16 units", Fn: unary(func(s string) string { return fmt.Sprint(utf16Len(s)) })},
	{Name: "lower", Description: "Lowercase", Fn: unary(strings.ToLower)},
	{Name: "upper", Description: "Uppercase", Fn: unary(strings.ToUpper)},
	{
		Name:        "capitalize",
		Description: "Uppercase the first character",
		Fn: unary(func(s string) string {
			r, size := utf8.DecodeRuneInString(s)
			if size == 0 {
				return s
			}
			return strings.ToUpper(string(r)) + s[size:]
		}),
	},
	{
		Name:        "reverse",
		Description: "Reverse a JSON array or a string",
		Fn: unary(func(s string) string {
			if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
				arr := arrayArg(s)
				for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
					arr[i], arr[j] = arr[j], arr[i]
				}
				return jsnum.Stringify(arr)
			}
			return reverseRunes(s)
		}),
	},
	{Name: "unicodeencode", Aliases: []string{"ue"}, Description: "Escape as \\uXXXX", Fn: unary(unicodeEncode)},
	{Name: "unicodedecode", Aliases: []string{"u"}, Description: "Decode \\uXXXX escapes", Fn: unary(unicodeDecode)},
	{
		Name:        "xor",
		Description: "XOR with a key, base64 encoded",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			text, key := argAt(args, 0), argAt(args, 1)
			if key == "" {
				return Text(text)
			}
			b, err := latin1(xorUnits(utf16.Encode([]rune(text)), utf16.Encode([]rune(key))))
			if err != nil {
				return Output{}, err
			}
			return Text(base64.StdEncoding.EncodeToString(b))
		},
	},
	{
		Name:        "xordecrypt",
		Description: "Reverse xor",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			encoded, key := argAt(args, 0), argAt(args, 1)
			if key == "" {
				return Text(encoded)
			}
			raw, err := decodeBase64(encoded)
			if err != nil {
				return Text("")
			}
			units := make([]uint16, len(raw))
			for i, c := range raw {
				units[i] = uint16(c)
			}
			return Text(string(utf16.Decode(xorUnits(units, utf16.Encode([]rune(key))))))
		},
	},
	{
		Name:        "cbr",
		Description: "Newline when the argument is 1",
		Fn: unary(func(s string) string {
			if s == "1" {
				return "\n"
			}
			return ""
		}),
	},
	{
		Name:        "bkspc",
		Aliases:     []string{"backspace"},
		Description: "Backspace characters",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			n := jsnum.Number(orDefault(args, 0, "1"))
			if math.IsNaN(n) {
				n = 0
			}
			if n < 0 || n > maxRepeat {
				return Output{}, fmt.Errorf("bkspc: invalid count %s", jsnum.Format(n))
			}
			return Text(strings.Repeat("\b", toIndex(n)))
		},
	},
}
