package jsnum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  42 ", 42},
		{"-3.5", -3.5},
		{".5", 0.5},
		{"1e3", 1000},
		{"0x1F", 31},
		{"Infinity", math.Inf(1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Number(tt.in), tt.in)
	}
	for _, bad := range []string{"abc", "12px", "1_000", "inf", "NaN", "0x"} {
		assert.True(t, math.IsNaN(Number(bad)), bad)
	}
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 12.0, ParseFloat("12px"))
	assert.Equal(t, -0.5, ParseFloat("  -.5e0abc"))
	assert.True(t, math.IsNaN(ParseFloat("px12")))
	assert.True(t, math.IsNaN(ParseFloat("")))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{14, "14"},
		{-0.0, "0"},
		{0.30000000000000004, "0.30000000000000004"},
		{0.3, "0.3"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{123456789012, "123456789012"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in))
	}
}

func TestToFixed(t *testing.T) {
	assert.Equal(t, "3", ToFixed(2.5, 0))
	assert.Equal(t, "-3", ToFixed(-2.5, 0))
	assert.Equal(t, "1.00", ToFixed(1, 2))
	assert.Equal(t, "1.00", ToFixed(1.005, 2)) // stored just below the tie
	assert.Equal(t, "-0", ToFixed(-0.0001, 0))
	assert.Equal(t, "0", ToFixed(math.Copysign(0, -1), 0))
	assert.Equal(t, "0.00", ToFixed(math.Copysign(0, -1), 2))
	assert.Equal(t, "10.0", ToFixed(9.96, 1))
	assert.Equal(t, "NaN", ToFixed(math.NaN(), 2))
}

func TestRadix(t *testing.T) {
	assert.Equal(t, "ff", Radix(255, 16))
	assert.Equal(t, "-a", Radix(-10, 16))
}

func TestJSON(t *testing.T) {
	assert.Equal(t, `["a","<b>"]`, Stringify([]string{"a", "<b>"}))

	arr, ok := ParseArray(`[1, "two", {"k": 3}, null]`)
	assert.True(t, ok)
	assert.Equal(t, []string{"1", "two", `{"k":3}`, "null"}, []string{Text(arr[0]), Text(arr[1]), Text(arr[2]), Text(arr[3])})

	_, ok = ParseArray(`{"a":1}`)
	assert.False(t, ok)
	_, ok = ParseArray(`[1] trailing`)
	assert.False(t, ok)

	obj, ok := ParseObject(`{"a":"x"}`)
	assert.True(t, ok)
	assert.Equal(t, "x", obj["a"])
}
