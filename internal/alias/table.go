// Package alias expands user-defined aliases in the revset and template
// languages. Both languages share one expansion algorithm; each plugs its own
// AST in through the Language interface.
package alias

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Decl is the left-hand side of an alias definition: `name` declares a
// symbol alias and `name(p1, p2)` a function alias.
type Decl struct {
	Name       string
	Params     []string
	IsFunction bool
}

func (d Decl) String() string {
	if !d.IsFunction {
		return d.Name
	}
	return d.Name + "(" + strings.Join(d.Params, ", ") + ")"
}

// Definition is a declared alias with its unparsed body.
type Definition struct {
	Decl
	Body string
}

// Table holds the aliases of one language. It is built once at startup and
// only read afterwards.
type Table struct {
	symbols   map[string]*Definition
	functions map[string]map[int]*Definition
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		symbols:   make(map[string]*Definition),
		functions: make(map[string]map[int]*Definition),
	}
}

// ParseTable builds a table from declaration -> body pairs as found in the
// configuration. Later definitions for the same declaration are not possible
// since the input is a map; keys are processed in sorted order so errors are
// reported deterministically.
func ParseTable(defs map[string]string) (*Table, error) {
	t := NewTable()
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t.Define(k, defs[k]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Define parses decl and adds it, replacing any alias with the same name and
// arity.
func (t *Table) Define(decl, body string) error {
	d, err := ParseDecl(decl)
	if err != nil {
		return err
	}
	def := &Definition{Decl: d, Body: body}
	if !d.IsFunction {
		t.symbols[d.Name] = def
		return nil
	}
	byArity := t.functions[d.Name]
	if byArity == nil {
		byArity = make(map[int]*Definition)
		t.functions[d.Name] = byArity
	}
	byArity[len(d.Params)] = def
	return nil
}

// Symbol looks up a symbol alias.
func (t *Table) Symbol(name string) (*Definition, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.symbols[name]
	return d, ok
}

// Function looks up a function alias by name and arity.
func (t *Table) Function(name string, arity int) (*Definition, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.functions[name][arity]
	return d, ok
}

// FunctionArities returns the arities name is defined with, in ascending
// order.
func (t *Table) FunctionArities(name string) []int {
	if t == nil {
		return nil
	}
	var out []int
	for n := range t.functions[name] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := len(t.symbols)
	for _, m := range t.functions {
		n += len(m)
	}
	return n
}

// Definitions returns all definitions sorted by declaration.
func (t *Table) Definitions() []*Definition {
	if t == nil {
		return nil
	}
	var out []*Definition
	for _, d := range t.symbols {
		out = append(out, d)
	}
	for _, m := range t.functions {
		for _, d := range m {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Decl.String() < out[j].Decl.String() })
	return out
}

// ParseDecl parses an alias declaration.
func ParseDecl(s string) (Decl, error) {
	bad := func(format string, args ...any) (Decl, error) {
		return Decl{}, &Error{Kind: BadDeclaration, Name: s, Cause: fmt.Errorf(format, args...)}
	}
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if !isIdentifier(s) {
			return bad("%q is not a valid alias name", s)
		}
		return Decl{Name: s}, nil
	}
	name := strings.TrimSpace(s[:open])
	if !isIdentifier(name) {
		return bad("%q is not a valid alias name", name)
	}
	if !strings.HasSuffix(s, ")") {
		return bad("missing closing parenthesis")
	}
	d := Decl{Name: name, IsFunction: true}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return d, nil
	}
	seen := make(map[string]bool)
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		if !isIdentifier(p) {
			return bad("%q is not a valid parameter name", p)
		}
		if seen[p] {
			return bad("redefinition of parameter %q", p)
		}
		seen[p] = true
		d.Params = append(d.Params, p)
	}
	return d, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
