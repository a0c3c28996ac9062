package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/cbs/internal/token"
)

func collect(t *testing.T, input string) []*Item {
	t.Helper()
	s := NewFromString(input)
	var items []*Item
	for {
		item, err := s.Next()
		require.NoError(t, err)
		if item.Token == token.EOF {
			return items
		}
		items = append(items, item)
	}
}

func TestScannerItems(t *testing.T) {
	items := collect(t, "Hi {{user}},\n{{setvar::a::{{calc::1+1}}}}")
	require.Len(t, items, 4)

	assert.Equal(t, token.TEXT, items[0].Token)
	assert.Equal(t, "Hi ", items[0].Value)

	assert.Equal(t, token.TAG, items[1].Token)
	assert.Equal(t, "user", items[1].Value)
	assert.Equal(t, 3, items[1].Start)
	assert.Equal(t, 11, items[1].End)

	assert.Equal(t, ",\n", items[2].Value)

	assert.Equal(t, token.TAG, items[3].Token)
	assert.Equal(t, "setvar::a::{{calc::1+1}}", items[3].Value)
	assert.Equal(t, 2, items[3].Line)
}

func TestScannerUnterminated(t *testing.T) {
	items := collect(t, "a {{b {{c}}")
	require.Len(t, items, 2)
	assert.Equal(t, "a ", items[0].Value)
	assert.Equal(t, token.TEXT, items[1].Token)
	assert.True(t, items[1].Unterminated)
	assert.Equal(t, "{{b {{c}}", items[1].Value)
}

func TestScannerMultibyteOffsets(t *testing.T) {
	items := collect(t, "héllo{{x}}")
	require.Len(t, items, 2)
	assert.Equal(t, 6, items[1].Start)
	assert.Equal(t, 11, items[1].End)
}

func TestPeek(t *testing.T) {
	s := NewFromString("x{{y}}")
	p, err := s.Peek()
	require.NoError(t, err)
	n, err := s.Next()
	require.NoError(t, err)
	assert.Same(t, p, n)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"user", []string{"user"}},
		{"setvar::a::b", []string{"setvar", "a", "b"}},
		{"setvar::hp::{{calc::50+50}}", []string{"setvar", "hp", "{{calc::50+50}}"}},
		{"a::::b", []string{"a", "", "b"}},
		{"a::", []string{"a", ""}},
		{"x::{{a::{{b::c}}}}::d", []string{"x", "{{a::{{b::c}}}}", "d"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitArgs(tt.in), tt.in)
	}
}

func TestHasTag(t *testing.T) {
	assert.True(t, HasTag("a{{b}}"))
	assert.False(t, HasTag("a}}{{b"))
	assert.False(t, HasTag("plain"))
}
