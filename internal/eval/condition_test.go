package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition(t *testing.T) {
	ctx := NewContext()
	ctx.ChatVars["mood"] = "happy"
	ctx.ChatVars["on"] = "1"
	ctx.GlobalVars["toggle_dark"] = "true"

	tests := []struct {
		args []string
		want bool
		mode WhitespaceMode
	}{
		{nil, false, ModeNormal},
		{[]string{"1"}, true, ModeNormal},
		{[]string{"true"}, true, ModeNormal},
		{[]string{" 1 "}, true, ModeNormal},
		{[]string{"0"}, false, ModeNormal},
		{[]string{"yes"}, false, ModeNormal},
		{[]string{""}, false, ModeNormal},
		{[]string{"not", "0"}, true, ModeNormal},
		{[]string{"not", "1"}, false, ModeNormal},
		{[]string{"keep", "1"}, true, ModeKeep},
		{[]string{"legacy", "0"}, false, ModeLegacy},
		{[]string{"1", "and", "0"}, false, ModeNormal},
		{[]string{"1", "or", "0"}, true, ModeNormal},
		{[]string{"a", "is", "a"}, true, ModeNormal},
		{[]string{"a", "is", "b"}, false, ModeNormal},
		{[]string{"a", "isnot", "b"}, true, ModeNormal},
		{[]string{"var", "on"}, true, ModeNormal},
		{[]string{"var", "missing"}, false, ModeNormal},
		{[]string{"toggle", "dark"}, true, ModeNormal},
		{[]string{"mood", "vis", "happy"}, true, ModeNormal},
		{[]string{"mood", "visnot", "happy"}, false, ModeNormal},
		{[]string{"dark", "tis", "true"}, true, ModeNormal},
		{[]string{"dark", "tisnot", "true"}, false, ModeNormal},
		{[]string{"10", ">", "9"}, true, ModeNormal},
		{[]string{"10", "<", "9"}, false, ModeNormal},
		{[]string{"9", ">=", "9"}, true, ModeNormal},
		{[]string{"9", "<=", "8.5"}, false, ModeNormal},
		{[]string{"x", ">", "1"}, false, ModeNormal},
		{[]string{"x", "<=", "1"}, false, ModeNormal},
		{[]string{"not", "a", "is", "b"}, true, ModeNormal},
		{[]string{"keep", "not", "0"}, true, ModeKeep},
		{[]string{"1", "and", "1", "and", "0"}, false, ModeNormal},
		// Operators match exactly
		{[]string{"NOT", "0"}, false, ModeNormal},
		{[]string{"0", "AND", "1"}, true, ModeNormal},
		{[]string{"0", " and ", "1"}, true, ModeNormal},
	}
	for _, tt := range tests {
		got, mode := Condition(tt.args, ctx)
		assert.Equal(t, tt.want, got, "%q", tt.args)
		assert.Equal(t, tt.mode, mode, "%q", tt.args)
	}
}

func TestConditionNilContext(t *testing.T) {
	got, _ := Condition([]string{"var", "x"}, nil)
	assert.False(t, got)
}
