package template

import (
	"strconv"
	"strings"

	"weave/internal/diag"
)

// Kind is the kind of an AST node.
type Kind int

const (
	KindLiteral Kind = iota
	KindProperty
	KindMethodCall
	KindFunctionCall
	KindConcat
	KindConditional
	KindListOp
	KindLambda
	KindLambdaParam
	KindLabel
	KindUnary
	KindBinary
)

// ExprID addresses a node in an Arena.
type ExprID int32

// NoExpr marks an absent operand.
const NoExpr ExprID = -1

// Node is an immutable AST node. Operands are stored in Args:
//
//	Property: [] for a keyword, [base] for base.name
//	MethodCall: [base, args...]
//	FunctionCall, Concat: the operands
//	Conditional: [cond, then] or [cond, then, else]
//	ListOp: [base, lambda]; Name is "map" or "filter"
//	Lambda: [body]; Params holds the parameter names
//	Label: [name, body]
//	Unary: [x]; Binary: [x, y]; Name holds the operator
//
// Literal holds a string, int64 or bool.
type Node struct {
	Kind    Kind
	Name    string
	Literal any
	Params  []string
	Args    []ExprID
	Span    diag.Ranging
	Source  int
}

// Source is a text that nodes were parsed from.
type Source struct {
	Alias string
	Text  string
}

// Arena owns the nodes of one template. Nodes only refer to nodes allocated
// before them.
type Arena struct {
	nodes   []Node
	sources []Source
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

func (a *Arena) alloc(n Node) ExprID {
	a.nodes = append(a.nodes, n)
	return ExprID(len(a.nodes) - 1)
}

func (a *Arena) addSource(alias, text string) int {
	a.sources = append(a.sources, Source{Alias: alias, Text: text})
	return len(a.sources) - 1
}

func (a *Arena) clone() *Arena {
	return &Arena{
		nodes:   append([]Node(nil), a.nodes...),
		sources: append([]Source(nil), a.sources...),
	}
}

// Node returns the node for id.
func (a *Arena) Node(id ExprID) *Node { return &a.nodes[id] }

// Len returns the number of allocated nodes.
func (a *Arena) Len() int { return len(a.nodes) }

// Source returns the source a node was parsed from.
func (a *Arena) Source(n *Node) Source { return a.sources[n.Source] }

func (a *Arena) context(n *Node) *diag.Context {
	c := diag.NewContext(a.sources[n.Source].Text, n.Span)
	return &c
}

// Expr is a parsed template.
type Expr struct {
	Arena *Arena
	Root  ExprID
}

// Node returns the root node.
func (e Expr) Node() *Node { return e.Arena.Node(e.Root) }

// String prints the template in a canonical, fully parenthesized form.
func (e Expr) String() string {
	var sb strings.Builder
	e.Arena.write(&sb, e.Root)
	return sb.String()
}

func (a *Arena) write(sb *strings.Builder, id ExprID) {
	n := a.Node(id)
	list := func(ids []ExprID) {
		sb.WriteByte('(')
		for i, c := range ids {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb, c)
		}
		sb.WriteByte(')')
	}
	switch n.Kind {
	case KindLiteral:
		switch v := n.Literal.(type) {
		case string:
			sb.WriteString(strconv.Quote(v))
		case int64:
			sb.WriteString(strconv.FormatInt(v, 10))
		case bool:
			sb.WriteString(strconv.FormatBool(v))
		}
	case KindProperty:
		if len(n.Args) > 0 {
			a.write(sb, n.Args[0])
			sb.WriteByte('.')
		}
		sb.WriteString(n.Name)
	case KindMethodCall, KindListOp:
		a.write(sb, n.Args[0])
		sb.WriteString("." + n.Name)
		list(n.Args[1:])
	case KindFunctionCall:
		sb.WriteString(n.Name)
		list(n.Args)
	case KindConcat:
		sb.WriteByte('(')
		for i, c := range n.Args {
			if i > 0 {
				sb.WriteString(" ++ ")
			}
			a.write(sb, c)
		}
		sb.WriteByte(')')
	case KindConditional:
		sb.WriteString("if")
		list(n.Args)
	case KindLabel:
		sb.WriteString("label")
		list(n.Args)
	case KindLambda:
		sb.WriteString("|" + strings.Join(n.Params, ", ") + "| ")
		a.write(sb, n.Args[0])
	case KindLambdaParam:
		sb.WriteString(n.Name)
	case KindUnary:
		sb.WriteString(n.Name)
		a.write(sb, n.Args[0])
	case KindBinary:
		sb.WriteByte('(')
		a.write(sb, n.Args[0])
		sb.WriteString(" " + n.Name + " ")
		a.write(sb, n.Args[1])
		sb.WriteByte(')')
	}
}

// Tree is a pointer-free copy of a template for structural comparison.
type Tree struct {
	Kind    Kind
	Name    string
	Literal any
	Params  []string
	Args    []*Tree
}

// Tree returns the template as a Tree.
func (e Expr) Tree() *Tree { return e.Arena.tree(e.Root) }

func (a *Arena) tree(id ExprID) *Tree {
	n := a.Node(id)
	t := &Tree{Kind: n.Kind, Name: n.Name, Literal: n.Literal, Params: n.Params}
	for _, c := range n.Args {
		t.Args = append(t.Args, a.tree(c))
	}
	return t
}
