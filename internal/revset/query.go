package revset

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"weave/internal/graph"
)

// query is a compiled revset. Symbols are already resolved, so evaluating a
// query cannot fail except by cancellation.
type query interface {
	iter(ev *evaluator) posIter
}

type evaluator struct {
	ctx      context.Context
	ix       *graph.Index
	parallel bool
}

func (ev *evaluator) poller() *poller { return &poller{ctx: ev.ctx} }

// materialize fully evaluates q.
func (ev *evaluator) materialize(q query) ([]int, error) {
	if c, ok := q.(*commitsQuery); ok {
		return c.positions, nil
	}
	return collect(q.iter(ev))
}

type allQuery struct{}

func (allQuery) iter(ev *evaluator) posIter {
	return &rangeIter{cur: ev.ix.Len(), lo: 0, poll: ev.poller()}
}

type noneQuery struct{}

func (noneQuery) iter(*evaluator) posIter { return emptyIter{} }

// commitsQuery is a resolved, fixed set of commits.
type commitsQuery struct {
	positions []int // descending
}

func (q *commitsQuery) iter(*evaluator) posIter { return &sliceIter{ps: q.positions} }

type unionQuery struct{ a, b query }

func (q *unionQuery) iter(ev *evaluator) posIter {
	if ev.parallel && isHeavy(q.a) && isHeavy(q.b) {
		return &lazyIter{build: func() (posIter, error) {
			ps, err := ev.materializeBoth(q.a, q.b)
			if err != nil {
				return nil, err
			}
			return &unionIter{&peeked{it: &sliceIter{ps: ps[0]}}, &peeked{it: &sliceIter{ps: ps[1]}}}, nil
		}}
	}
	return &unionIter{&peeked{it: q.a.iter(ev)}, &peeked{it: q.b.iter(ev)}}
}

type intersectionQuery struct{ a, b query }

func (q *intersectionQuery) iter(ev *evaluator) posIter {
	return &intersectionIter{&peeked{it: q.a.iter(ev)}, &peeked{it: q.b.iter(ev)}}
}

type differenceQuery struct{ a, b query }

func (q *differenceQuery) iter(ev *evaluator) posIter {
	return &differenceIter{&peeked{it: q.a.iter(ev)}, &peeked{it: q.b.iter(ev)}}
}

// ancestorsQuery is ::x, bounded to depth edges when depth >= 0.
type ancestorsQuery struct {
	x     query
	depth int
}

func (q *ancestorsQuery) iter(ev *evaluator) posIter {
	if q.depth < 0 {
		return newAncestorsIter(ev.ix, q.x.iter(ev), ev.poller())
	}
	return ev.walk(q.x, graph.ToParents, q.depth)
}

// descendantsQuery is x::, bounded to depth edges when depth >= 0.
type descendantsQuery struct {
	x     query
	depth int
}

func (q *descendantsQuery) iter(ev *evaluator) posIter {
	return ev.walk(q.x, graph.ToChildren, q.depth)
}

func (ev *evaluator) walk(x query, dir graph.Direction, depth int) posIter {
	return &lazyIter{build: func() (posIter, error) {
		start, err := ev.materialize(x)
		if err != nil || len(start) == 0 {
			return emptyIter{}, err
		}
		set := graph.NewBitset(ev.ix.Len())
		if err := ev.ix.Walk(ev.ctx, start, dir, depth, set.Set); err != nil {
			return nil, err
		}
		return &sliceIter{ps: bitsetToDesc(set, ev.ix.Len())}, nil
	}}
}

// dagRangeQuery is from::to: descendants of from that are ancestors of to.
type dagRangeQuery struct{ from, to query }

func (q *dagRangeQuery) iter(ev *evaluator) posIter {
	return &lazyIter{build: func() (posIter, error) {
		from, err := ev.materialize(q.from)
		if err != nil || len(from) == 0 {
			return emptyIter{}, err
		}
		to, err := ev.materialize(q.to)
		if err != nil || len(to) == 0 {
			return emptyIter{}, err
		}
		lo, hi := from[len(from)-1], to[0]
		if lo > hi {
			return emptyIter{}, nil
		}
		n := ev.ix.Len()
		down, up := graph.NewBitset(n), graph.NewBitset(n)
		walkDown := func() error {
			return ev.ix.Walk(ev.ctx, from, graph.ToChildren, -1, func(p int) {
				if p <= hi {
					down.Set(p)
				}
			})
		}
		walkUp := func() error {
			return ev.ix.Walk(ev.ctx, to, graph.ToParents, -1, func(p int) {
				if p >= lo {
					up.Set(p)
				}
			})
		}
		if ev.parallel {
			var g errgroup.Group
			g.Go(walkDown)
			g.Go(walkUp)
			err = g.Wait()
		} else if err = walkDown(); err == nil {
			err = walkUp()
		}
		if err != nil {
			return nil, err
		}
		var out []int
		for p := hi; p >= lo; p-- {
			if down.Has(p) && up.Has(p) {
				out = append(out, p)
			}
		}
		return &sliceIter{ps: out}, nil
	}}
}

// headsQuery keeps the members of x that have no descendant in x.
type headsQuery struct{ x query }

func (q *headsQuery) iter(ev *evaluator) posIter {
	return &lazyIter{build: func() (posIter, error) {
		set, err := ev.materialize(q.x)
		if err != nil || len(set) == 0 {
			return emptyIter{}, err
		}
		lo := set[len(set)-1]
		var parents []int
		for _, p := range set {
			parents = append(parents, ev.ix.ParentPositions(p)...)
		}
		covered := graph.NewBitset(ev.ix.Len())
		var starts []int
		for _, p := range parents {
			if p >= lo {
				starts = append(starts, p)
			}
		}
		err = ev.ix.Walk(ev.ctx, starts, graph.ToParents, -1, func(p int) {
			if p >= lo {
				covered.Set(p)
			}
		})
		if err != nil {
			return nil, err
		}
		var out []int
		for _, p := range set {
			if !covered.Has(p) {
				out = append(out, p)
			}
		}
		return &sliceIter{ps: out}, nil
	}}
}

// rootsQuery keeps the members of x that have no ancestor in x.
type rootsQuery struct{ x query }

func (q *rootsQuery) iter(ev *evaluator) posIter {
	return &lazyIter{build: func() (posIter, error) {
		set, err := ev.materialize(q.x)
		if err != nil || len(set) == 0 {
			return emptyIter{}, err
		}
		hi := set[0]
		var starts []int
		for _, p := range set {
			for _, c := range ev.ix.ChildPositions(p) {
				if c <= hi {
					starts = append(starts, c)
				}
			}
		}
		covered := graph.NewBitset(ev.ix.Len())
		err = ev.ix.Walk(ev.ctx, starts, graph.ToChildren, -1, func(p int) {
			if p <= hi {
				covered.Set(p)
			}
		})
		if err != nil {
			return nil, err
		}
		var out []int
		for _, p := range set {
			if !covered.Has(p) {
				out = append(out, p)
			}
		}
		return &sliceIter{ps: out}, nil
	}}
}

// neighboursQuery is parents(x) or children(x).
type neighboursQuery struct {
	x   query
	dir graph.Direction
}

func (q *neighboursQuery) iter(ev *evaluator) posIter {
	return &lazyIter{build: func() (posIter, error) {
		set, err := ev.materialize(q.x)
		if err != nil {
			return nil, err
		}
		var out []int
		for _, p := range set {
			if q.dir == graph.ToParents {
				out = append(out, ev.ix.ParentPositions(p)...)
			} else {
				out = append(out, ev.ix.ChildPositions(p)...)
			}
		}
		return &sliceIter{ps: sortDesc(out)}, nil
	}}
}

// filterQuery keeps the members of x whose commit satisfies pred.
type filterQuery struct {
	x    query
	pred func(*graph.Commit) bool
}

func (q *filterQuery) iter(ev *evaluator) posIter {
	return &filterIter{
		it:   q.x.iter(ev),
		keep: func(p int) bool { return q.pred(ev.ix.At(p)) },
		poll: ev.poller(),
	}
}

// latestQuery keeps the count members of x with the newest committer
// timestamps.
type latestQuery struct {
	x     query
	count int
}

func (q *latestQuery) iter(ev *evaluator) posIter {
	return &lazyIter{build: func() (posIter, error) {
		set, err := ev.materialize(q.x)
		if err != nil || q.count == 0 {
			return emptyIter{}, err
		}
		if len(set) <= q.count {
			return &sliceIter{ps: set}, nil
		}
		byTime := sortedByKey(set, func(a, b int) bool {
			ta, tb := ev.ix.At(a).Committer.Timestamp, ev.ix.At(b).Committer.Timestamp
			if !ta.Equal(tb) {
				return ta.After(tb)
			}
			return a > b
		})
		kept := append([]int(nil), byTime[:q.count]...)
		sort.Sort(sort.Reverse(sort.IntSlice(kept)))
		return &sliceIter{ps: kept}, nil
	}}
}

// isHeavy reports whether evaluating q requires a graph traversal.
func isHeavy(q query) bool {
	switch q := q.(type) {
	case *ancestorsQuery, *descendantsQuery, *dagRangeQuery, *headsQuery, *rootsQuery:
		return true
	case *unionQuery:
		return isHeavy(q.a) || isHeavy(q.b)
	case *intersectionQuery:
		return isHeavy(q.a)
	case *differenceQuery:
		return isHeavy(q.a)
	}
	return false
}

// materializeBoth evaluates a and b concurrently. The graph is read-only, so
// the two evaluations share nothing but the index.
func (ev *evaluator) materializeBoth(a, b query) ([2][]int, error) {
	var out [2][]int
	g, ctx := errgroup.WithContext(ev.ctx)
	for i, q := range []query{a, b} {
		i, q := i, q
		g.Go(func() error {
			sub := &evaluator{ctx: ctx, ix: ev.ix, parallel: ev.parallel}
			ps, err := sub.materialize(q)
			out[i] = ps
			return err
		})
	}
	err := g.Wait()
	return out, err
}
