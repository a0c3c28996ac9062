// Package jsnum implements the numeric coercion, number printing and JSON
// text conventions CBS values follow.
package jsnum

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	prefixRe  = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
)

// isSpace matches the whitespace set trimmed before numeric coercion.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// Number coerces s strictly: the whole trimmed string must be numeric.
// An empty string is 0; anything else that does not parse is NaN.
func Number(s string) float64 {
	s = strings.TrimFunc(s, isSpace)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}
	if !decimalRe.MatchString(s) {
		return math.NaN()
	}
	return parse(s)
}

// ParseFloat reads the longest numeric prefix of s, ignoring leading space.
// It returns NaN when no prefix is numeric.
func ParseFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, isSpace)
	m := prefixRe.FindString(s)
	if m == "" {
		return math.NaN()
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	return parse(m)
}

func parse(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values are already ±Inf or 0
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// Format prints f in the shortest form that reads back as the same value.
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}

// FormatInt prints f after truncating it toward zero, or NaN.
func FormatInt(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Format(f)
	}
	return Format(math.Trunc(f))
}

// ToFixed prints f with exactly digits fraction digits, rounding ties away
// from zero on the exact binary value.
func ToFixed(f float64, digits int) string {
	if digits < 0 {
		digits = 0
	}
	if digits > 100 {
		digits = 100
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
		return Format(f)
	}
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	neg := f < 0
	if neg {
		f = -f
	}

	// Exact decimal expansion of the binary value.
	exact := new(big.Float).SetFloat64(f).Text('f', 1100)
	intPart, frac, _ := strings.Cut(exact, ".")
	for len(frac) < digits+1 {
		frac += "0"
	}
	keep := []byte(intPart + frac[:digits])
	if frac[digits] >= '5' {
		i := len(keep) - 1
		for ; i >= 0; i-- {
			if keep[i] == '9' {
				keep[i] = '0'
				continue
			}
			keep[i]++
			break
		}
		if i < 0 {
			keep = append([]byte{'1'}, keep...)
		}
	}

	n := len(keep) - digits
	out := string(keep[:n])
	if digits > 0 {
		out += "." + string(keep[n:])
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Radix prints the integer part of f in the given base.
func Radix(f float64, base int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Format(f)
	}
	i, _ := new(big.Float).SetFloat64(math.Trunc(f)).Int(nil)
	return i.Text(base)
}

// Truthy reports whether s is one of the two truthy spellings.
func Truthy(s string) bool {
	return s == "1" || s == "true"
}

// Bool returns "1" or "0".
func Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Stringify encodes v as compact JSON without HTML escaping.
func Stringify(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// ParseArray decodes a JSON array. ok is false when s is not one.
func ParseArray(s string) (arr []any, ok bool) {
	if err := decode(s, &arr); err != nil || arr == nil {
		return nil, false
	}
	return arr, true
}

// ParseObject decodes a JSON object. ok is false when s is not one.
func ParseObject(s string) (obj map[string]any, ok bool) {
	if err := decode(s, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func decode(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return &json.SyntaxError{Offset: dec.InputOffset()}
	}
	return nil
}

// Text renders a decoded JSON value for substitution: strings as-is,
// everything else as JSON.
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return Format(Number(x.String()))
	case nil:
		return "null"
	}
	return Stringify(v)
}
