// Package template implements the template language used to format commits:
// parsing, alias expansion and rendering against a CommitContext.
package template

import (
	"weave/internal/alias"
)

// Template is a parsed, alias-expanded template. It is immutable and can be
// rendered concurrently for different commits.
type Template struct {
	expr Expr
}

// Compile parses text and expands its aliases.
func Compile(text string, aliases *alias.Table) (*Template, error) {
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	expanded, err := ExpandAliases(expr, aliases)
	if err != nil {
		return nil, err
	}
	return &Template{expr: expanded}, nil
}

// Expr returns the expanded expression.
func (t *Template) Expr() Expr { return t.expr }

// Uses reports whether t refers to the keyword or method name anywhere,
// including inside lambdas and expanded aliases.
func (t *Template) Uses(name string) bool {
	arena := t.expr.Arena
	seen := make(map[ExprID]bool)
	stack := []ExprID{t.expr.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NoExpr || seen[id] {
			continue
		}
		seen[id] = true
		n := arena.Node(id)
		if (n.Kind == KindProperty || n.Kind == KindMethodCall) && n.Name == name {
			return true
		}
		stack = append(stack, n.Args...)
	}
	return false
}

// Render renders t for one commit.
func (t *Template) Render(ctx *CommitContext) (string, error) {
	return Render(t.expr, ctx)
}

// RenderFormatted renders t for one commit, keeping labels.
func (t *Template) RenderFormatted(ctx *CommitContext) (Formatted, error) {
	return RenderFormatted(t.expr, ctx)
}

// Render evaluates expr against ctx and returns the plain text.
func Render(expr Expr, ctx *CommitContext) (string, error) {
	f, err := RenderFormatted(expr, ctx)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

// RenderFormatted evaluates expr against ctx. Each call starts from fresh
// evaluator state; nothing carries over between commits.
func RenderFormatted(expr Expr, ctx *CommitContext) (Formatted, error) {
	ev := &evaluator{arena: expr.Arena, ctx: ctx}
	f := &formatter{}
	if err := ev.write(f, expr.Root); err != nil {
		return nil, err
	}
	return f.out, nil
}
