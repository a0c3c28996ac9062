package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"((1+1)*(2+2))", 8},
		{"10 - 4 - 3", 3},
		{"2^3^2", 64},
		{"7%3", 1},
		{"-5+3", -2},
		{"2*(0-3)", -6},
		{"2*-3", -6},
		{"3>2", 1},
		{"3<2", 0},
		{"2>=2", 1},
		{"2<=1", 0},
		{"2==2", 1},
		{"2!=2", 0},
		{"1&&0", 0},
		{"1||0", 1},
		{"!0", 1},
		{"!5", 0},
		{"1+!0", 2},
		{"null+1", 1},
		{"NULL*3", 0},
		{"", 0},
		{"5+", 5},
		{"0.1+0.2", 0.30000000000000004},
		{"(1+2", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Eval(tt.expr, Resolver{}), tt.expr)
	}
}

func TestEvalNaN(t *testing.T) {
	for _, expr := range []string{"1/0", "0/0", "abc+1", "(1/0)+1", "5%0"} {
		assert.True(t, math.IsNaN(Eval(expr, Resolver{})), expr)
	}
}

func TestEvalVariables(t *testing.T) {
	chat := map[string]string{"hp": "40", "name": "bob", "pct": "12.5%"}
	global := map[string]string{"bonus": "2"}
	r := Resolver{
		Chat:   func(n string) string { return chat[n] },
		Global: func(n string) string { return global[n] },
	}

	assert.Equal(t, 42.0, Eval("$hp+@bonus", r))
	assert.Equal(t, 0.0, Eval("$name", r))
	assert.Equal(t, 0.0, Eval("$missing", r))
	assert.Equal(t, 25.0, Eval("$pct*2", r))
	assert.Equal(t, 1.0, Eval("($hp+@bonus)>=42", r))
}

func TestString(t *testing.T) {
	assert.Equal(t, "14", String("2+3*4", Resolver{}))
	assert.Equal(t, "NaN", String("1/0", Resolver{}))
	assert.Equal(t, "0.5", String("1/2", Resolver{}))
}
