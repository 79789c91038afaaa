package revset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"weave/internal/diag"
	"weave/internal/graph"
	"weave/internal/strpattern"
)

// compiler turns an alias-expanded AST into a query, resolving symbols and
// checking function calls on the way.
type compiler struct {
	env      *Env
	arena    *Arena
	resolver *Resolver
}

func (c *compiler) context(n *Node) *diag.Context {
	ctx := c.arena.context(n)
	return &ctx
}

func (c *compiler) compile(id ExprID) (query, error) {
	n := c.arena.Node(id)
	switch n.Kind {
	case KindSymbol, KindString, KindWorkingCopy:
		return c.resolve(n)
	case KindCommitRef:
		p, ok := c.env.Index.Position(graph.CommitID(n.Name))
		if !ok {
			return nil, &ResolveError{Kind: NoSuchSymbol, Name: n.Name, Context: c.context(n), Alias: c.arena.Source(n).Alias}
		}
		return &commitsQuery{positions: []int{p}}, nil
	case KindPattern:
		return nil, c.argError(n, n.Name, "string pattern %s:%q is not a revision", n.Name, n.Value)
	case KindUnion, KindIntersection, KindDifference:
		a, err := c.compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := c.compile(n.Args[1])
		if err != nil {
			return nil, err
		}
		switch n.Kind {
		case KindUnion:
			return &unionQuery{a, b}, nil
		case KindIntersection:
			return &intersectionQuery{a, b}, nil
		}
		return &differenceQuery{a, b}, nil
	case KindComplement:
		x, err := c.compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		return &differenceQuery{allQuery{}, x}, nil
	case KindAncestors, KindDescendants:
		x, err := c.compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		if n.Kind == KindAncestors {
			return &ancestorsQuery{x, -1}, nil
		}
		return &descendantsQuery{x, -1}, nil
	case KindDagRange:
		from, to, err := c.compileOptional(n)
		if err != nil {
			return nil, err
		}
		switch {
		case from == nil && to == nil:
			return allQuery{}, nil
		case from == nil:
			return &ancestorsQuery{to, -1}, nil
		case to == nil:
			return &descendantsQuery{from, -1}, nil
		}
		return &dagRangeQuery{from, to}, nil
	case KindRange:
		from, to, err := c.compileOptional(n)
		if err != nil {
			return nil, err
		}
		if from == nil {
			from = c.root()
		}
		var up query = allQuery{}
		if to != nil {
			up = &ancestorsQuery{to, -1}
		}
		return &differenceQuery{up, &ancestorsQuery{from, -1}}, nil
	case KindFunctionCall:
		return c.call(n)
	}
	return nil, c.argError(n, "", "unsupported expression")
}

func (c *compiler) compileOptional(n *Node) (from, to query, err error) {
	if n.Args[0] != NoExpr {
		if from, err = c.compile(n.Args[0]); err != nil {
			return nil, nil, err
		}
	}
	if n.Args[1] != NoExpr {
		if to, err = c.compile(n.Args[1]); err != nil {
			return nil, nil, err
		}
	}
	return from, to, nil
}

func (c *compiler) resolve(n *Node) (query, error) {
	ps, err := c.resolver.resolvePositions(n.Name)
	if err != nil {
		var re *ResolveError
		if errors.As(err, &re) {
			re.Context = c.context(n)
			re.Alias = c.arena.Source(n).Alias
			if re.Kind == NoSuchSymbol {
				re.Hints = similar(c.resolver.RefNames(), n.Name)
			}
		}
		return nil, err
	}
	return &commitsQuery{positions: ps}, nil
}

func (c *compiler) root() query {
	if p, ok := c.env.Index.Position(graph.RootCommitID); ok {
		return &commitsQuery{positions: []int{p}}
	}
	return &rootsQuery{allQuery{}}
}

func (c *compiler) call(n *Node) (query, error) {
	f, ok := functions[n.Name]
	if !ok {
		return nil, &EvalError{
			Kind: UnknownFunction, Name: n.Name, Hints: similarFunctions(n.Name),
			Context: c.context(n), Alias: c.arena.Source(n).Alias,
		}
	}
	if len(n.Args) < f.min || len(n.Args) > f.max {
		return nil, &EvalError{
			Kind: ArityMismatch, Name: n.Name, Message: f.arityMessage(len(n.Args)),
			Context: c.context(n), Alias: c.arena.Source(n).Alias,
		}
	}
	return f.compile(c, n)
}

func (c *compiler) argError(n *Node, fn string, format string, args ...any) *EvalError {
	return &EvalError{
		Kind: InvalidArgumentType, Name: fn, Message: fmt.Sprintf(format, args...),
		Context: c.context(n), Alias: c.arena.Source(n).Alias,
	}
}

// intArg reads argument i of call as a non-negative integer, or returns def
// if the argument is absent.
func (c *compiler) intArg(call *Node, i, def int) (int, error) {
	if i >= len(call.Args) {
		return def, nil
	}
	n := c.arena.Node(call.Args[i])
	if n.Kind == KindSymbol || n.Kind == KindString {
		if v, err := strconv.Atoi(n.Name); err == nil && v >= 0 {
			return v, nil
		}
	}
	return 0, c.argError(n, call.Name, "expected a non-negative integer")
}

// patternArg reads argument i of call as a string pattern.
func (c *compiler) patternArg(call *Node, i int, def strpattern.Kind) (*strpattern.Pattern, error) {
	n := c.arena.Node(call.Args[i])
	var (
		p   *strpattern.Pattern
		err error
	)
	switch n.Kind {
	case KindSymbol, KindString:
		p, err = strpattern.Parse("", n.Name, def)
	case KindPattern:
		p, err = strpattern.Parse(n.Name, n.Value, def)
	default:
		return nil, c.argError(n, call.Name, "expected a string pattern")
	}
	if err != nil {
		return nil, c.argError(n, call.Name, "%v", err)
	}
	return p, nil
}

// refsMatching returns the commits named by refs matching p.
func (c *compiler) refsMatching(refs map[string][]graph.CommitID, p *strpattern.Pattern) query {
	var ps []int
	for name, ids := range refs {
		if p != nil && !p.Match(name) {
			continue
		}
		for _, id := range ids {
			if pos, ok := c.env.Index.Position(id); ok {
				ps = append(ps, pos)
			}
		}
	}
	return &commitsQuery{positions: sortDesc(ps)}
}

func similarFunctions(name string) []string {
	return similar(FunctionNames(), name)
}

// similar returns the candidates within two edits of name, sorted.
func similar(candidates []string, name string) []string {
	var out []string
	for _, c := range candidates {
		if c != name && levenshtein(c, name) <= 2 {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
