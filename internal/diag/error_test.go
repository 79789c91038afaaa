package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	e := &Error{
		Type:     "parse error",
		Message:  "unexpected `)`",
		Expected: []string{"expression"},
		Context:  NewContext("a | )", Ranging{4, 5}),
	}
	assert.Equal(t, "parse error at offset 4: unexpected `)`, expected expression", e.Error())
	assert.Equal(t, 4, e.Offset())
}

func TestErrorAlternatives(t *testing.T) {
	e := &Error{Type: "parse error", Message: "m", Expected: []string{"`,`", "`)`"}}
	assert.Equal(t, "parse error at offset 0: m, expected `,` or `)`", e.Error())

	e.Expected = []string{"a", "b", "c"}
	assert.Contains(t, e.Error(), "expected a, b or c")
}

func TestContextShow(t *testing.T) {
	tests := []struct {
		name   string
		source string
		r      Ranging
		want   string
	}{
		{"single line", "foo & bar(", Ranging{6, 10}, "foo & bar(\n      ^^^^"},
		{"zero width at end", "foo |", Ranging{5, 5}, "foo |\n     ^"},
		{"second line", "a\nb c", Ranging{4, 5}, "b c\n  ^"},
		{"wide runes", "ü | x", Ranging{5, 6}, "ü | x\n    ^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(tt.source, tt.r)
			assert.Equal(t, tt.want, c.Show(""))
		})
	}
}

func TestAsError(t *testing.T) {
	var err error = &Error{Type: "parse error", Message: "x"}
	e, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, "x", e.Message)

	_, ok = AsError(assert.AnError)
	assert.False(t, ok)
}

func TestErrorShow(t *testing.T) {
	e := &Error{
		Type:    "parse error",
		Message: "unexpected `)`",
		Context: NewContext("a | )", MixedRanging(PointRanging(4), Ranging{4, 5})),
	}
	assert.Equal(t, "parse error at offset 4: unexpected `)`\n  a | )\n      ^", e.Show())
}

func TestMixedRanging(t *testing.T) {
	assert.Equal(t, Ranging{2, 9}, MixedRanging(Ranging{2, 4}, Ranging{7, 9}))
	assert.Equal(t, Ranging{3, 3}, MixedRanging(PointRanging(3), PointRanging(3)))
}
