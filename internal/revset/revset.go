// Package revset implements the revision set language: parsing, alias
// expansion, symbol resolution and lazy evaluation over a commit index.
package revset

import (
	"context"
	"io"
	"log/slog"

	"weave/internal/alias"
	"weave/internal/graph"
)

// Env is everything an expression is evaluated against.
type Env struct {
	Index       *graph.Index
	Symbols     *SymbolTable
	WorkingCopy graph.CommitID
	Aliases     *alias.Table
	// UserEmail is matched by mine().
	UserEmail string
	// Parallel lets independent operands be evaluated concurrently.
	Parallel bool
	Logger   *slog.Logger
}

func (env *Env) logger() *slog.Logger {
	if env.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return env.Logger
}

// Revset is a compiled expression. It can be evaluated any number of times.
type Revset struct {
	env  *Env
	expr Expr
	q    query
}

// Compile expands aliases in expr, resolves its symbols and checks its
// function calls.
func (env *Env) Compile(expr Expr) (*Revset, error) {
	expanded, err := ExpandAliases(expr, env.Aliases)
	if err != nil {
		return nil, err
	}
	c := &compiler{
		env:      env,
		arena:    expanded.Arena,
		resolver: NewResolver(env.Index, env.Symbols, env.WorkingCopy),
	}
	q, err := c.compile(expanded.Root)
	if err != nil {
		return nil, err
	}
	env.logger().Debug("compiled revset", "expr", expr.String(), "expanded", expanded.String())
	return &Revset{env: env, expr: expanded, q: q}, nil
}

// CompileString parses and compiles text.
func (env *Env) CompileString(text string) (*Revset, error) {
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return env.Compile(expr)
}

// Expr returns the alias-expanded expression.
func (r *Revset) Expr() Expr { return r.expr }

// Evaluate starts a lazy evaluation. Commits are produced in descending
// topological order, children before parents. Cancelling ctx makes the
// sequence stop with ctx's error.
func (r *Revset) Evaluate(ctx context.Context) *Sequence {
	ev := &evaluator{ctx: ctx, ix: r.env.Index, parallel: r.env.Parallel}
	return &Sequence{it: r.q.iter(ev), ix: r.env.Index}
}

// Contains evaluates r fully and returns a membership test.
func (r *Revset) Contains(ctx context.Context) (func(graph.CommitID) bool, error) {
	ev := &evaluator{ctx: ctx, ix: r.env.Index, parallel: r.env.Parallel}
	ps, err := ev.materialize(r.q)
	if err != nil {
		return nil, err
	}
	set := graph.NewBitset(r.env.Index.Len())
	for _, p := range ps {
		set.Set(p)
	}
	return func(id graph.CommitID) bool {
		p, ok := r.env.Index.Position(id)
		return ok && set.Has(p)
	}, nil
}

// Evaluate compiles expr against env and starts evaluating it.
func Evaluate(ctx context.Context, expr Expr, env *Env) (*Sequence, error) {
	r, err := env.Compile(expr)
	if err != nil {
		return nil, err
	}
	return r.Evaluate(ctx), nil
}

// Sequence is a lazily evaluated revset. It is not safe for concurrent use.
type Sequence struct {
	it   posIter
	ix   *graph.Index
	err  error
	done bool
}

// Next returns the next commit. It returns false once the sequence is
// exhausted or failed; Err tells the two apart.
func (s *Sequence) Next() (*graph.Commit, bool) {
	if s.done {
		return nil, false
	}
	p, ok, err := s.it.next()
	if err != nil || !ok {
		s.err = err
		s.done = true
		return nil, false
	}
	return s.ix.At(p), true
}

// Err returns the error that ended the sequence, if any.
func (s *Sequence) Err() error { return s.err }

// Collect drains the sequence. limit < 0 means no limit.
func (s *Sequence) Collect(limit int) ([]*graph.Commit, error) {
	var out []*graph.Commit
	for limit < 0 || len(out) < limit {
		c, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out, s.Err()
}

// IDs drains the sequence into commit ids.
func (s *Sequence) IDs() ([]graph.CommitID, error) {
	cs, err := s.Collect(-1)
	ids := make([]graph.CommitID, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids, err
}
