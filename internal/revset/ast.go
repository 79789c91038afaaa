package revset

import (
	"strconv"
	"strings"

	"weave/internal/diag"
	"weave/internal/graph"
)

// Kind is the kind of an AST node.
type Kind int

const (
	KindSymbol Kind = iota
	KindString
	KindPattern
	KindWorkingCopy
	KindCommitRef
	KindUnion
	KindIntersection
	KindDifference
	KindComplement
	KindAncestors
	KindDescendants
	KindDagRange
	KindRange
	KindFunctionCall
)

// ExprID addresses a node in an Arena.
type ExprID int32

// NoExpr marks an absent operand, as in `x..` or `::`.
const NoExpr ExprID = -1

// Node is an immutable AST node. Operands are stored in Args:
//
//	Union, Intersection, Difference, DagRange, Range: [left, right]
//	Complement, Ancestors, Descendants: [operand]
//	FunctionCall: the call arguments
//
// Name holds the identifier, string value, function name or pattern kind;
// Value holds the pattern value.
type Node struct {
	Kind   Kind
	Name   string
	Value  string
	Args   []ExprID
	Span   diag.Ranging
	Source int
}

// Source is a text that nodes were parsed from. Source 0 of an arena is the
// expression itself; alias bodies are appended as they are expanded.
type Source struct {
	Alias string
	Text  string
}

// Arena owns the nodes of one expression. A node only refers to nodes
// allocated before it, so the graph of nodes is acyclic.
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

func (a *Arena) context(n *Node) diag.Context {
	return diag.NewContext(a.sources[n.Source].Text, n.Span)
}

// Expr is a parsed expression: an arena and its root node.
type Expr struct {
	Arena *Arena
	Root  ExprID
}

// Node returns the root node.
func (e Expr) Node() *Node { return e.Arena.Node(e.Root) }

// String prints the expression fully parenthesized. Two expressions with
// the same structure print identically.
func (e Expr) String() string {
	var sb strings.Builder
	e.Arena.write(&sb, e.Root)
	return sb.String()
}

func (a *Arena) write(sb *strings.Builder, id ExprID) {
	if id == NoExpr {
		return
	}
	n := a.Node(id)
	binary := func(op string) {
		sb.WriteByte('(')
		a.write(sb, n.Args[0])
		sb.WriteString(op)
		a.write(sb, n.Args[1])
		sb.WriteByte(')')
	}
	switch n.Kind {
	case KindSymbol:
		sb.WriteString(n.Name)
	case KindString:
		sb.WriteString(strconv.Quote(n.Name))
	case KindPattern:
		sb.WriteString(n.Name)
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(n.Value))
	case KindWorkingCopy:
		sb.WriteByte('@')
	case KindCommitRef:
		sb.WriteString("commit(" + n.Name + ")")
	case KindUnion:
		binary(" | ")
	case KindIntersection:
		binary(" & ")
	case KindDifference:
		binary(" ~ ")
	case KindComplement:
		sb.WriteByte('~')
		a.write(sb, n.Args[0])
	case KindAncestors:
		sb.WriteString("::")
		a.write(sb, n.Args[0])
	case KindDescendants:
		a.write(sb, n.Args[0])
		sb.WriteString("::")
	case KindDagRange:
		binary("::")
	case KindRange:
		binary("..")
	case KindFunctionCall:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, c := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb, c)
		}
		sb.WriteByte(')')
	}
}

// Tree is a pointer-free copy of an expression, convenient for comparing
// expressions structurally.
type Tree struct {
	Kind  Kind
	Name  string
	Value string
	Args  []*Tree
}

// Tree returns the expression as a Tree. Absent operands become nil.
func (e Expr) Tree() *Tree { return e.Arena.tree(e.Root) }

func (a *Arena) tree(id ExprID) *Tree {
	if id == NoExpr {
		return nil
	}
	n := a.Node(id)
	t := &Tree{Kind: n.Kind, Name: n.Name, Value: n.Value}
	for _, c := range n.Args {
		t.Args = append(t.Args, a.tree(c))
	}
	return t
}

// Commits returns an expression naming exactly ids. The ids are not resolved
// as symbols, so they cannot be shadowed by refs of the same name.
func Commits(ids ...graph.CommitID) Expr {
	a := NewArena()
	src := a.addSource("", "")
	if len(ids) == 0 {
		return Expr{Arena: a, Root: a.alloc(Node{Kind: KindFunctionCall, Name: "none", Source: src})}
	}
	root := NoExpr
	for _, id := range ids {
		ref := a.alloc(Node{Kind: KindCommitRef, Name: string(id), Source: src})
		if root == NoExpr {
			root = ref
			continue
		}
		root = a.alloc(Node{Kind: KindUnion, Args: []ExprID{root, ref}, Source: src})
	}
	return Expr{Arena: a, Root: root}
}
