package template

import (
	"weave/internal/alias"
)

type aliasLang struct {
	arena *Arena
}

func (l aliasLang) Ref(id ExprID) alias.Ref[ExprID] {
	n := l.arena.Node(id)
	switch {
	case n.Kind == KindProperty && len(n.Args) == 0:
		return alias.Ref[ExprID]{Kind: alias.SymbolRef, Name: n.Name, Span: n.Span}
	case n.Kind == KindFunctionCall:
		return alias.Ref[ExprID]{Kind: alias.CallRef, Name: n.Name, Args: n.Args, Span: n.Span}
	}
	return alias.Ref[ExprID]{Kind: alias.NotRef}
}

func (l aliasLang) Rebuild(id ExprID, f func(ExprID) (ExprID, error)) (ExprID, error) {
	orig := l.arena.Node(id).Args
	var args []ExprID
	for i, c := range orig {
		v, err := f(c)
		if err != nil {
			return NoExpr, err
		}
		if v != c && args == nil {
			args = append([]ExprID(nil), orig...)
		}
		if args != nil {
			args[i] = v
		}
	}
	if args == nil {
		return id, nil
	}
	rebuilt := *l.arena.Node(id)
	rebuilt.Args = args
	return l.arena.alloc(rebuilt), nil
}

func (l aliasLang) ParseBody(def *alias.Definition) (ExprID, error) {
	e, err := ParseInto(l.arena, def.Name, def.Body)
	if err != nil {
		return NoExpr, err
	}
	return e.Root, nil
}

func (aliasLang) IsBuiltin(name string) bool { return IsFunction(name) }

// StrictCalls is true: a call that is neither an alias nor a global function
// can never render, so it is rejected while expanding.
func (aliasLang) StrictCalls() bool { return true }

// ExpandAliases replaces alias references in e. Expansion works on a copy of
// e's arena, so e stays valid and may be expanded concurrently.
func ExpandAliases(e Expr, table *alias.Table) (Expr, error) {
	arena := e.Arena.clone()
	root, err := alias.Expand[ExprID](aliasLang{arena}, table, e.Root)
	if err != nil {
		return Expr{}, err
	}
	return Expr{Arena: arena, Root: root}, nil
}
