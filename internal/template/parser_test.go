package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/diag"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"a"`, `"a"`},
		{"42", "42"},
		{"true", "true"},
		{"a ++ b", "(a ++ b)"},
		{`a "b" c`, `(a ++ "b" ++ c)`},
		{"a || b && c", "(a || (b && c))"},
		{"a && b == c", "(a && (b == c))"},
		{"!a == b", "(!a == b)"},
		{"-1", "-1"},
		{"a ++ b || c", "(a ++ (b || c))"},
		{"(a ++ b) || c", "((a ++ b) || c)"},
		{"x.y().z", "x.y().z"},
		{"author.name()", "author.name()"},
		{`if(a, "b")`, `if(a, "b")`},
		{`if(a, "b", c ++ d)`, `if(a, "b", (c ++ d))`},
		{`label("l", 1)`, `label("l", 1)`},
		{`separate(" ", a, b,)`, `separate(" ", a, b)`},
		{"xs.map(|x| x.upper())", "xs.map(|x| x.upper())"},
		{`xs.filter(|x| x != "").join(",")`, `xs.filter(|x| (x != "")).join(",")`},
		{"commit_id.short(8)", "commit_id.short(8)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParseLambdaScope(t *testing.T) {
	e, err := Parse("parents.map(|p| p.commit_id ++ p) ++ p")
	require.NoError(t, err)
	param := &Tree{Kind: KindLambdaParam, Name: "p"}
	want := &Tree{Kind: KindConcat, Args: []*Tree{
		{Kind: KindListOp, Name: "map", Args: []*Tree{
			{Kind: KindProperty, Name: "parents"},
			{Kind: KindLambda, Params: []string{"p"}, Args: []*Tree{
				{Kind: KindConcat, Args: []*Tree{
					{Kind: KindProperty, Name: "commit_id", Args: []*Tree{param}},
					param,
				}},
			}},
		}},
		{Kind: KindProperty, Name: "p"},
	}}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in       string
		offset   int
		contains string
	}{
		{"if(a)", 0, "if() takes"},
		{`label("x")`, 0, "label() takes"},
		{"xs.map(x)", 7, "expected lambda"},
		{"a.", 2, "expected identifier"},
		{"(a", 2, "expected `)`"},
		{"a @ b", 2, "unexpected character"},
		{`"abc`, 0, "unterminated string"},
		{"f(a b", 5, "unexpected end of input"},
		{"a ++", 4, "expected template"},
		{"99999999999999999999", 0, "out of range"},
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
