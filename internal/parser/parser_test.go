package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/cbs/internal/expr"
)

// ignoreSpans compares trees by shape only.
var ignoreSpans = cmp.Options{
	cmpopts.IgnoreTypes(expr.Span{}),
	cmpopts.EquateEmpty(),
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []expr.Node
	}{
		{
			name:  "plain text",
			input: "hello world",
			want:  []expr.Node{expr.Text{Value: "hello world"}},
		},
		{
			name:  "simple command",
			input: "Hi {{user}}!",
			want: []expr.Node{
				expr.Text{Value: "Hi "},
				expr.Command{Name: "user", Value: "user"},
				expr.Text{Value: "!"},
			},
		},
		{
			name:  "nested command stays opaque in args",
			input: "{{setvar::hp::{{calc::50+50}}}}",
			want: []expr.Node{
				expr.Command{
					Name:  "setvar",
					Args:  []string{"hp", "{{calc::50+50}}"},
					Value: "setvar::hp::{{calc::50+50}}",
				},
			},
		},
		{
			name:  "separator inside nested tag does not split",
			input: "{{upper::{{getvar::a::b}}}}",
			want: []expr.Node{
				expr.Command{Name: "upper", Args: []string{"{{getvar::a::b}}"}, Value: "upper::{{getvar::a::b}}"},
			},
		},
		{
			name:  "comment before close",
			input: "{{// note}}x",
			want: []expr.Node{
				expr.Command{Name: "//", Args: []string{" note"}, Value: "// note"},
				expr.Text{Value: "x"},
			},
		},
		{
			name:  "calc shorthand",
			input: "{{? 1+2}}",
			want: []expr.Node{
				expr.Command{Name: "calc", Args: []string{"1+2"}, Value: "? 1+2"},
			},
		},
		{
			name:  "when block with else",
			input: "{{#when 0}}yes{{:else}}no{{/when}}",
			want: []expr.Node{
				expr.Block{
					Name:  "#when",
					Args:  []string{"0"},
					Value: "#when 0",
					Close: "/when",
					Children: []expr.Node{
						expr.Text{Value: "yes"},
						expr.Command{Name: ":else", Value: ":else"},
						expr.Text{Value: "no"},
					},
				},
			},
		},
		{
			name:  "block with separator args",
			input: "{{#when::5::>::3}}greater{{/when}}",
			want: []expr.Node{
				expr.Block{
					Name:     "#when",
					Args:     []string{"5", ">", "3"},
					Value:    "#when::5::>::3",
					Close:    "/when",
					Children: []expr.Node{expr.Text{Value: "greater"}},
				},
			},
		},
		{
			name:  "nested blocks",
			input: "{{#each [1,2] as n}}{{#when 1}}{{slot::n}}{{/when}}{{/each}}",
			want: []expr.Node{
				expr.Block{
					Name:  "#each",
					Args:  []string{"[1,2] as n"},
					Value: "#each [1,2] as n",
					Close: "/each",
					Children: []expr.Node{
						expr.Block{
							Name:     "#when",
							Args:     []string{"1"},
							Value:    "#when 1",
							Close:    "/when",
							Children: []expr.Node{expr.Command{Name: "slot", Args: []string{"n"}, Value: "slot::n"}},
						},
					},
				},
			},
		},
		{
			name:  "legacy alias",
			input: "<USER> and <bot>",
			want: []expr.Node{
				expr.Command{Name: "USER", Value: "USER"},
				expr.Text{Value: " and "},
				expr.Command{Name: "bot", Value: "bot"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if diff := cmp.Diff(tt.want, got, ignoreSpans); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"unterminated open", "a {{user b", UnterminatedTag},
		{"stray close tag", "a {{/when}} b", StrayClose},
		{"unclosed block", "a {{#when 1}}b{{user}}", UnclosedBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, diags := ParseWithDiagnostics(tt.input)
			require.Len(t, diags, 1)
			assert.Equal(t, tt.kind, diags[0].Kind)
			// Degraded input still round-trips to the original text.
			assert.Equal(t, tt.input, expr.Source(nodes))
		})
	}
}

func TestParseStrayBracesAreText(t *testing.T) {
	nodes, diags := ParseWithDiagnostics("a }} b { c")
	assert.Empty(t, diags)
	if diff := cmp.Diff([]expr.Node{expr.Text{Value: "a }} b { c"}}, nodes, ignoreSpans); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSpans(t *testing.T) {
	nodes := Parse("ab{{user}}{{#when 1}}x{{/when}}")
	require.Len(t, nodes, 3)
	assert.Equal(t, expr.Span{Start: 0, End: 2}, nodes[0].Position())
	assert.Equal(t, expr.Span{Start: 2, End: 10}, nodes[1].Position())
	assert.Equal(t, expr.Span{Start: 10, End: 31}, nodes[2].Position())
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []string{
		"{{#pure}}{{getvar::x}} and {{#when 1}}y{{/when}}{{/pure}}",
		"{{#each {{getvar::list}} as item}}- {{slot::item}}\n{{/each}}",
		"{{#func greet name}}Hello {{arg::0}}{{/func}}{{call::greet::Bob}}",
		"text {{unknowncommand::a::b}} more",
	}
	for _, in := range inputs {
		assert.Equal(t, in, expr.Source(Parse(in)))
	}
}
