package alias

import (
	"errors"
	"fmt"
	"strings"

	"weave/internal/diag"
)

// RefKind classifies a node for the expander.
type RefKind int

const (
	// NotRef nodes are rebuilt with their children expanded.
	NotRef RefKind = iota
	// SymbolRef is a bare identifier that may name a parameter or a symbol
	// alias.
	SymbolRef
	// CallRef is a function call that may name a function alias.
	CallRef
)

// Ref describes a node that may refer to an alias.
type Ref[ID any] struct {
	Kind RefKind
	Name string
	Args []ID
	Span diag.Ranging
}

// Language adapts an AST to the expander.
type Language[ID comparable] interface {
	// Ref classifies id.
	Ref(id ID) Ref[ID]
	// Rebuild returns id with every child c replaced by f(c), allocating a
	// new node only if some child changed.
	Rebuild(id ID, f func(ID) (ID, error)) (ID, error)
	// ParseBody parses the body of def into the same AST as the expression
	// being expanded.
	ParseBody(def *Definition) (ID, error)
	// IsBuiltin reports whether name is a function of the language itself.
	IsBuiltin(name string) bool
	// StrictCalls reports whether a call that is neither an alias nor a
	// builtin should be rejected during expansion.
	StrictCalls() bool
}

// Expand replaces every alias reference under root with the alias body.
//
// Names are looked up in a fixed order: parameters of the alias being
// expanded, then aliases, then builtins. Arguments are expanded in the
// caller's scope and spliced into the body by reference, so a parameter used
// twice shares one argument subtree.
func Expand[ID comparable](lang Language[ID], table *Table, root ID) (ID, error) {
	if table.Len() == 0 && !lang.StrictCalls() {
		return root, nil
	}
	x := &expander[ID]{lang: lang, table: table}
	return x.expand(root)
}

type frame[ID comparable] struct {
	def *Definition
	env map[string]ID
}

type expander[ID comparable] struct {
	lang  Language[ID]
	table *Table
	chain []frame[ID]
}

func (x *expander[ID]) expand(id ID) (ID, error) {
	var zero ID
	ref := x.lang.Ref(id)
	switch ref.Kind {
	case SymbolRef:
		if v, ok := x.param(ref.Name); ok {
			return v, nil
		}
		if def, ok := x.table.Symbol(ref.Name); ok {
			return x.apply(def, nil, ref.Span)
		}
	case CallRef:
		if def, ok := x.table.Function(ref.Name, len(ref.Args)); ok {
			args := make([]ID, len(ref.Args))
			for i, a := range ref.Args {
				v, err := x.expand(a)
				if err != nil {
					return zero, err
				}
				args[i] = v
			}
			return x.apply(def, args, ref.Span)
		}
		if !x.lang.IsBuiltin(ref.Name) {
			if arities := x.table.FunctionArities(ref.Name); len(arities) > 0 {
				return zero, &Error{
					Kind: ArityMismatch, Name: ref.Name, Chain: x.names(),
					Arities: arities, Got: len(ref.Args), Span: ref.Span,
				}
			}
			if x.lang.StrictCalls() {
				return zero, &Error{Kind: UnknownAlias, Name: ref.Name, Chain: x.names(), Span: ref.Span}
			}
		}
	}
	return x.lang.Rebuild(id, x.expand)
}

func (x *expander[ID]) param(name string) (ID, bool) {
	var zero ID
	if len(x.chain) == 0 {
		return zero, false
	}
	v, ok := x.chain[len(x.chain)-1].env[name]
	return v, ok
}

func (x *expander[ID]) names() []string {
	out := make([]string, len(x.chain))
	for i, f := range x.chain {
		out[i] = f.def.Name
	}
	return out
}

func (x *expander[ID]) apply(def *Definition, args []ID, span diag.Ranging) (ID, error) {
	var zero ID
	for _, f := range x.chain {
		if f.def == def {
			return zero, &Error{Kind: Cycle, Name: def.Name, Chain: append(x.names(), def.Name), Span: span}
		}
	}
	body, err := x.lang.ParseBody(def)
	if err != nil {
		return zero, &Error{Kind: BadDefinition, Name: def.Name, Chain: x.names(), Span: span, Cause: err}
	}
	env := make(map[string]ID, len(def.Params))
	for i, p := range def.Params {
		env[p] = args[i]
	}
	x.chain = append(x.chain, frame[ID]{def, env})
	out, err := x.expand(body)
	x.chain = x.chain[:len(x.chain)-1]
	return out, err
}

// ErrorKind classifies an Error.
type ErrorKind int

const (
	Cycle ErrorKind = iota
	UnknownAlias
	ArityMismatch
	BadDeclaration
	BadDefinition
)

func (k ErrorKind) String() string {
	switch k {
	case Cycle:
		return "cycle"
	case UnknownAlias:
		return "unknown alias"
	case ArityMismatch:
		return "arity mismatch"
	case BadDeclaration:
		return "bad declaration"
	default:
		return "bad definition"
	}
}

// Error is an alias expansion failure.
type Error struct {
	Kind    ErrorKind
	Name    string
	Chain   []string
	Arities []int
	Got     int
	Span    diag.Ranging
	Cause   error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case Cycle:
		msg = fmt.Sprintf("alias %q expands recursively: %s", e.Name, strings.Join(e.Chain, " -> "))
	case UnknownAlias:
		msg = fmt.Sprintf("function or alias %q doesn't exist", e.Name)
	case ArityMismatch:
		want := make([]string, len(e.Arities))
		for i, n := range e.Arities {
			want[i] = fmt.Sprint(n)
		}
		msg = fmt.Sprintf("alias %q expects %s arguments, got %d", e.Name, strings.Join(want, " or "), e.Got)
	case BadDeclaration:
		msg = fmt.Sprintf("bad alias declaration %q: %v", e.Name, e.Cause)
	default:
		msg = fmt.Sprintf("in alias %q: %v", e.Name, e.Cause)
	}
	if e.Kind != Cycle && len(e.Chain) > 0 {
		msg += fmt.Sprintf(" (while expanding %s)", strings.Join(e.Chain, " -> "))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err contains an alias Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == k {
			return true
		}
		if e.Cause == nil {
			return false
		}
		err = e.Cause
	}
	return false
}
