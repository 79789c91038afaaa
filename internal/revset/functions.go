package revset

import (
	"errors"
	"fmt"
	"strings"

	"weave/internal/graph"
	"weave/internal/strpattern"
)

type function struct {
	min, max int
	compile  func(c *compiler, call *Node) (query, error)
}

func (f *function) arityMessage(got int) string {
	switch {
	case f.min == f.max:
		return fmt.Sprintf("expects %d arguments, got %d", f.min, got)
	case got < f.min:
		return fmt.Sprintf("expects at least %d arguments, got %d", f.min, got)
	}
	return fmt.Sprintf("expects at most %d arguments, got %d", f.max, got)
}

var functions map[string]*function

// IsFunction reports whether name is a builtin revset function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

// FunctionNames returns the builtin function names.
func FunctionNames() []string {
	out := make([]string, 0, len(functions))
	for name := range functions {
		out = append(out, name)
	}
	return out
}

func init() {
	unary := func(build func(x query) query) func(c *compiler, call *Node) (query, error) {
		return func(c *compiler, call *Node) (query, error) {
			x, err := c.compile(call.Args[0])
			if err != nil {
				return nil, err
			}
			return build(x), nil
		}
	}
	constant := func(q func(c *compiler) query) func(c *compiler, call *Node) (query, error) {
		return func(c *compiler, call *Node) (query, error) { return q(c), nil }
	}
	bounded := func(dir graph.Direction) func(c *compiler, call *Node) (query, error) {
		return func(c *compiler, call *Node) (query, error) {
			x, err := c.compile(call.Args[0])
			if err != nil {
				return nil, err
			}
			depth, err := c.intArg(call, 1, -1)
			if err != nil {
				return nil, err
			}
			if dir == graph.ToParents {
				return &ancestorsQuery{x, depth}, nil
			}
			return &descendantsQuery{x, depth}, nil
		}
	}
	refs := func(pick func(st *SymbolTable) map[string][]graph.CommitID) func(c *compiler, call *Node) (query, error) {
		return func(c *compiler, call *Node) (query, error) {
			var p *strpattern.Pattern
			if len(call.Args) > 0 {
				var err error
				if p, err = c.patternArg(call, 0, strpattern.Substring); err != nil {
					return nil, err
				}
			}
			return c.refsMatching(pick(c.resolver.symbols), p), nil
		}
	}
	textFilter := func(fields func(*graph.Commit) []string) func(c *compiler, call *Node) (query, error) {
		return func(c *compiler, call *Node) (query, error) {
			p, err := c.patternArg(call, 0, strpattern.Substring)
			if err != nil {
				return nil, err
			}
			return &filterQuery{allQuery{}, func(commit *graph.Commit) bool {
				for _, f := range fields(commit) {
					if p.Match(f) {
						return true
					}
				}
				return false
			}}, nil
		}
	}
	flagFilter := func(pred func(*graph.Commit) bool) func(c *compiler, call *Node) (query, error) {
		return constant(func(*compiler) query { return &filterQuery{allQuery{}, pred} })
	}

	functions = map[string]*function{
		"all":  {0, 0, constant(func(*compiler) query { return allQuery{} })},
		"none": {0, 0, constant(func(*compiler) query { return noneQuery{} })},
		"root": {0, 0, constant(func(c *compiler) query { return c.root() })},
		"visible_heads": {0, 0, constant(func(c *compiler) query {
			return &commitsQuery{positions: sortDesc(append([]int(nil), c.env.Index.HeadPositions()...))}
		})},
		"ancestors":   {1, 2, bounded(graph.ToParents)},
		"descendants": {1, 2, bounded(graph.ToChildren)},
		"parents":     {1, 1, unary(func(x query) query { return &neighboursQuery{x, graph.ToParents} })},
		"children":    {1, 1, unary(func(x query) query { return &neighboursQuery{x, graph.ToChildren} })},
		"heads":       {1, 1, unary(func(x query) query { return &headsQuery{x} })},
		"roots":       {1, 1, unary(func(x query) query { return &rootsQuery{x} })},
		"present": {1, 1, func(c *compiler, call *Node) (query, error) {
			x, err := c.compile(call.Args[0])
			var re *ResolveError
			if errors.As(err, &re) && re.Kind == NoSuchSymbol {
				return noneQuery{}, nil
			}
			return x, err
		}},
		"latest": {1, 2, func(c *compiler, call *Node) (query, error) {
			x, err := c.compile(call.Args[0])
			if err != nil {
				return nil, err
			}
			n, err := c.intArg(call, 1, 1)
			if err != nil {
				return nil, err
			}
			return &latestQuery{x, n}, nil
		}},
		"bookmarks":   {0, 1, refs(func(st *SymbolTable) map[string][]graph.CommitID { return st.Bookmarks })},
		"tags":        {0, 1, refs(func(st *SymbolTable) map[string][]graph.CommitID { return st.Tags })},
		"description": {1, 1, textFilter(func(c *graph.Commit) []string { return []string{c.Description} })},
		"author": {1, 1, textFilter(func(c *graph.Commit) []string {
			return []string{c.Author.Name, c.Author.Email}
		})},
		"committer": {1, 1, textFilter(func(c *graph.Commit) []string {
			return []string{c.Committer.Name, c.Committer.Email}
		})},
		"mine": {0, 0, func(c *compiler, call *Node) (query, error) {
			email := strings.ToLower(c.env.UserEmail)
			return &filterQuery{allQuery{}, func(commit *graph.Commit) bool {
				return email != "" && strings.ToLower(commit.Author.Email) == email
			}}, nil
		}},
		"empty":     {0, 0, flagFilter(func(c *graph.Commit) bool { return c.Empty && !c.IsRoot() })},
		"conflicts": {0, 0, flagFilter(func(c *graph.Commit) bool { return c.Conflict })},
	}
}
