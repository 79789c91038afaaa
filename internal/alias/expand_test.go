package alias

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/diag"
)

// toy is a minimal call-expression language used to exercise the expander
// independently of the revset and template grammars:
//
//	expr := name | name '(' [expr {',' expr}] ')'
type toyNode struct {
	name   string
	isCall bool
	args   []int
}

type toy struct {
	nodes   []toyNode
	builtin map[string]bool
	strict  bool
}

func newToy() *toy {
	return &toy{builtin: map[string]bool{"g": true, "h": true}}
}

func (l *toy) alloc(n toyNode) int {
	l.nodes = append(l.nodes, n)
	return len(l.nodes) - 1
}

func (l *toy) parse(s string) (int, error) {
	s = strings.ReplaceAll(s, " ", "")
	id, rest, err := l.parseExpr(s)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("trailing %q", rest)
	}
	return id, nil
}

func (l *toy) parseExpr(s string) (int, string, error) {
	i := 0
	for i < len(s) && strings.IndexByte("(),", s[i]) < 0 {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("expected name at %q", s)
	}
	name, rest := s[:i], s[i:]
	if !strings.HasPrefix(rest, "(") {
		return l.alloc(toyNode{name: name}), rest, nil
	}
	rest = rest[1:]
	var args []int
	for !strings.HasPrefix(rest, ")") {
		a, r, err := l.parseExpr(rest)
		if err != nil {
			return 0, "", err
		}
		args = append(args, a)
		rest = strings.TrimPrefix(r, ",")
		if rest == "" {
			return 0, "", errors.New("unclosed call")
		}
	}
	return l.alloc(toyNode{name: name, isCall: true, args: args}), rest[1:], nil
}

func (l *toy) String(id int) string {
	n := l.nodes[id]
	if !n.isCall {
		return n.name
	}
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = l.String(a)
	}
	return n.name + "(" + strings.Join(args, ", ") + ")"
}

func (l *toy) Ref(id int) Ref[int] {
	n := l.nodes[id]
	if n.isCall {
		return Ref[int]{Kind: CallRef, Name: n.name, Args: n.args}
	}
	return Ref[int]{Kind: SymbolRef, Name: n.name, Span: diag.PointRanging(0)}
}

func (l *toy) Rebuild(id int, f func(int) (int, error)) (int, error) {
	n := l.nodes[id]
	if !n.isCall {
		return id, nil
	}
	changed := false
	args := make([]int, len(n.args))
	for i, a := range n.args {
		v, err := f(a)
		if err != nil {
			return 0, err
		}
		args[i] = v
		changed = changed || v != a
	}
	if !changed {
		return id, nil
	}
	return l.alloc(toyNode{name: n.name, isCall: true, args: args}), nil
}

func (l *toy) ParseBody(def *Definition) (int, error) { return l.parse(def.Body) }
func (l *toy) IsBuiltin(name string) bool               { return l.builtin[name] }
func (l *toy) StrictCalls() bool                        { return l.strict }

func expandToy(t *testing.T, l *toy, defs map[string]string, src string) (string, error) {
	t.Helper()
	table, err := ParseTable(defs)
	require.NoError(t, err)
	root, err := l.parse(src)
	require.NoError(t, err)
	out, err := Expand[int](l, table, root)
	if err != nil {
		return "", err
	}
	return l.String(out), nil
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		defs map[string]string
		src  string
		want string
	}{
		{"symbol alias", map[string]string{"foo": "bar"}, "g(foo)", "g(bar)"},
		{"function alias", map[string]string{"f(x)": "g(x, x)"}, "f(a)", "g(a, a)"},
		{"nested aliases", map[string]string{"f(x)": "k(x)", "k(y)": "h(y)"}, "f(b)", "h(b)"},
		{"parameter shadows alias", map[string]string{"x": "zzz", "f(x)": "g(x)"}, "f(a)", "g(a)"},
		{"argument expanded in caller scope", map[string]string{"a": "A", "f(x)": "g(x)"}, "f(a)", "g(A)"},
		{"caller parameter reaches callee", map[string]string{"f(x)": "k(x)", "k(x)": "g(x, y)", "y": "Y"}, "f(q)", "g(q, Y)"},
		{"zero arity function", map[string]string{"f()": "g(c)"}, "h(f())", "h(g(c))"},
		{"overload by arity", map[string]string{"f()": "one", "f(x)": "g(x)"}, "h(f(), f(z))", "h(one, g(z))"},
		{"repeated use is not a cycle", map[string]string{"a": "g(b, b)", "b": "c"}, "a", "g(c, c)"},
		{"unknown builtin-like call left alone", map[string]string{"a": "b"}, "nope(a)", "nope(b)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandToy(t, newToy(), tt.defs, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandSharesArguments(t *testing.T) {
	l := newToy()
	table, err := ParseTable(map[string]string{"f(x)": "g(x, x)"})
	require.NoError(t, err)
	root, err := l.parse("f(h(a))")
	require.NoError(t, err)
	out, err := Expand[int](l, table, root)
	require.NoError(t, err)
	args := l.nodes[out].args
	require.Len(t, args, 2)
	assert.Equal(t, args[0], args[1])
}

func TestExpandCycle(t *testing.T) {
	_, err := expandToy(t, newToy(), map[string]string{"foo": "foo"}, "foo")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Cycle, e.Kind)
	assert.Equal(t, []string{"foo", "foo"}, e.Chain)
	assert.Contains(t, err.Error(), "foo -> foo")

	_, err = expandToy(t, newToy(), map[string]string{"a": "g(b)", "b": "h(c(a))"}, "a")
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Cycle, e.Kind)
	assert.Equal(t, []string{"a", "b", "a"}, e.Chain)

	_, err = expandToy(t, newToy(), map[string]string{"f(x)": "f(x)"}, "f(a)")
	assert.True(t, IsKind(err, Cycle))
}

func TestExpandArityMismatch(t *testing.T) {
	_, err := expandToy(t, newToy(), map[string]string{"f(x)": "x"}, "g(f(a, b))")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ArityMismatch, e.Kind)
	assert.Equal(t, []int{1}, e.Arities)
	assert.Equal(t, 2, e.Got)
	assert.EqualError(t, err, `alias "f" expects 1 arguments, got 2`)
}

func TestExpandStrictCalls(t *testing.T) {
	l := newToy()
	l.strict = true
	_, err := expandToy(t, l, map[string]string{"a": "b"}, "nope(a)")
	assert.True(t, IsKind(err, UnknownAlias))

	got, err := expandToy(t, l, map[string]string{"a": "b"}, "g(a)")
	require.NoError(t, err)
	assert.Equal(t, "g(b)", got)
}

func TestExpandBadBody(t *testing.T) {
	_, err := expandToy(t, newToy(), map[string]string{"a": "g("}, "h(a)")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, BadDefinition, e.Kind)
	assert.Contains(t, err.Error(), `in alias "a"`)
}

func TestExpandEmptyTableIsIdentity(t *testing.T) {
	l := newToy()
	root, err := l.parse("g(a)")
	require.NoError(t, err)
	out, err := Expand[int](l, nil, root)
	require.NoError(t, err)
	assert.Equal(t, root, out)
}

func TestExpandStrictCallsWithoutTable(t *testing.T) {
	l := newToy()
	l.strict = true
	root, err := l.parse("g(nope(a))")
	require.NoError(t, err)
	_, err = Expand[int](l, nil, root)
	assert.True(t, IsKind(err, UnknownAlias), "unknown call rejected even with no aliases: %v", err)

	root, err = l.parse("g(h(a))")
	require.NoError(t, err)
	out, err := Expand[int](l, NewTable(), root)
	require.NoError(t, err)
	assert.Equal(t, "g(h(a))", l.String(out))
}

func TestParseDecl(t *testing.T) {
	good := []struct {
		in   string
		want Decl
	}{
		{"foo", Decl{Name: "foo"}},
		{" foo ", Decl{Name: "foo"}},
		{"f()", Decl{Name: "f", IsFunction: true}},
		{"f(a, b)", Decl{Name: "f", Params: []string{"a", "b"}, IsFunction: true}},
		{"format_id( id )", Decl{Name: "format_id", Params: []string{"id"}, IsFunction: true}},
	}
	for _, tt := range good {
		got, err := ParseDecl(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"", "f(a, a)", "f(a", "a-b", "f(a b)", "f(,)", "(x)"} {
		_, err := ParseDecl(in)
		assert.True(t, IsKind(err, BadDeclaration), "ParseDecl(%q) = %v", in, err)
	}
}

func TestTable(t *testing.T) {
	table, err := ParseTable(map[string]string{
		"a":       "x",
		"f(x)":    "x",
		"f(x, y)": "y",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []int{1, 2}, table.FunctionArities("f"))
	_, ok := table.Function("f", 3)
	assert.False(t, ok)
	d, ok := table.Symbol("a")
	require.True(t, ok)
	assert.Equal(t, "x", d.Body)

	var names []string
	for _, d := range table.Definitions() {
		names = append(names, d.Decl.String())
	}
	assert.Equal(t, []string{"a", "f(x)", "f(x, y)"}, names)

	_, err = ParseTable(map[string]string{"bad(": "x"})
	assert.Error(t, err)
}
