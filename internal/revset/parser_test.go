package revset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/diag"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a | b & c", "(a | (b & c))"},
		{"a & b | c", "((a & b) | c)"},
		{"a & b ~ c", "(a & (b ~ c))"},
		{"a ~ b ~ c", "((a ~ b) ~ c)"},
		{"a - b", "(a ~ b)"},
		{"~a & b", "(~a & b)"},
		{"-a", "~a"},
		{"~::a", "~::a"},
		{"::a", "::a"},
		{"a::", "a::"},
		{"a::b", "(a::b)"},
		{"::", "(::)"},
		{"a..b", "(a..b)"},
		{"..b", "(..b)"},
		{"a..", "(a..)"},
		{"..", "(..)"},
		{"(a | b)::", "(a | b)::"},
		{"@", "@"},
		{"main-2", "main-2"},
		{"release/1.0", "release/1.0"},
		{"a-b", "a-b"},
		{`"quoted name"`, `"quoted name"`},
		{"f()", "f()"},
		{"f(a, b,)", "f(a, b)"},
		{`description(exact:"fix bug")`, `description(exact:"fix bug")`},
		{`author(glob:"bob*")`, `author(glob:"bob*")`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParseTree(t *testing.T) {
	e, err := Parse("heads(::@ & bookmarks())")
	require.NoError(t, err)
	want := &Tree{Kind: KindFunctionCall, Name: "heads", Args: []*Tree{{
		Kind: KindIntersection,
		Args: []*Tree{
			{Kind: KindAncestors, Args: []*Tree{{Kind: KindWorkingCopy, Name: "@"}}},
			{Kind: KindFunctionCall, Name: "bookmarks"},
		},
	}}}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsPure(t *testing.T) {
	a, err := Parse("::main | feature..@")
	require.NoError(t, err)
	b, err := Parse("::main | feature..@")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a.Tree(), b.Tree()))

	// Whitespace and redundant parentheses do not change structure.
	c, err := Parse("( ::main )|(feature .. @)")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a.Tree(), c.Tree()))
}

func TestParseSpans(t *testing.T) {
	e, err := Parse("main | nope")
	require.NoError(t, err)
	right := e.Arena.Node(e.Node().Args[1])
	assert.Equal(t, diag.Ranging{From: 7, To: 11}, right.Span)
	assert.Equal(t, diag.Ranging{From: 0, To: 11}, e.Node().Span)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in       string
		offset   int
		contains string
	}{
		{"a |", 3, "unexpected end of input, expected expression"},
		{"(a", 2, "expected `)`"},
		{"a::b::c", 4, "range operator `::` is not associative"},
		{"a..b..", 4, "range operator `..` is not associative"},
		{"a b", 2, "unexpected"},
		{"f(a b)", 4, "unexpected"},
		{"a # b", 2, "unexpected character"},
		{`"open`, 0, ""},
		{"exact:", 6, "expected string or identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			de, ok := diag.AsError(err)
			require.True(t, ok, "not a diag.Error: %v", err)
			assert.Equal(t, tt.offset, de.Offset())
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
