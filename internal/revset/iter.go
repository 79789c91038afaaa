package revset

import (
	"container/heap"
	"context"
	"sort"

	"weave/internal/graph"
)

// posIter yields commit positions in strictly descending order.
type posIter interface {
	next() (int, bool, error)
}

// poller checks a context every graph.PollInterval ticks.
type poller struct {
	ctx context.Context
	n   int
}

func (p *poller) tick() error {
	p.n++
	if p.n%graph.PollInterval == 0 {
		return p.ctx.Err()
	}
	return nil
}

type emptyIter struct{}

func (emptyIter) next() (int, bool, error) { return 0, false, nil }

type sliceIter struct {
	ps []int
	i  int
}

func (it *sliceIter) next() (int, bool, error) {
	if it.i >= len(it.ps) {
		return 0, false, nil
	}
	it.i++
	return it.ps[it.i-1], true, nil
}

// rangeIter yields hi-1 down to lo.
type rangeIter struct {
	cur, lo int
	poll    *poller
}

func (it *rangeIter) next() (int, bool, error) {
	if it.cur <= it.lo {
		return 0, false, nil
	}
	if err := it.poll.tick(); err != nil {
		return 0, false, err
	}
	it.cur--
	return it.cur, true, nil
}

// lazyIter defers building its iterator until first use, so an operand that
// is never pulled costs nothing.
type lazyIter struct {
	build func() (posIter, error)
	it    posIter
}

func (it *lazyIter) next() (int, bool, error) {
	if it.it == nil {
		inner, err := it.build()
		if err != nil {
			return 0, false, err
		}
		it.it = inner
	}
	return it.it.next()
}

// peeked wraps an iterator with one position of lookahead.
type peeked struct {
	it   posIter
	head int
	ok   bool
	init bool
}

func (p *peeked) peek() (int, bool, error) {
	if !p.init {
		h, ok, err := p.it.next()
		if err != nil {
			return 0, false, err
		}
		p.head, p.ok, p.init = h, ok, true
	}
	return p.head, p.ok, nil
}

func (p *peeked) advance() { p.init = false }

type unionIter struct{ a, b *peeked }

func (it *unionIter) next() (int, bool, error) {
	x, okx, err := it.a.peek()
	if err != nil {
		return 0, false, err
	}
	y, oky, err := it.b.peek()
	if err != nil {
		return 0, false, err
	}
	switch {
	case !okx && !oky:
		return 0, false, nil
	case okx && (!oky || x > y):
		it.a.advance()
		return x, true, nil
	case oky && (!okx || y > x):
		it.b.advance()
		return y, true, nil
	}
	it.a.advance()
	it.b.advance()
	return x, true, nil
}

type intersectionIter struct{ a, b *peeked }

func (it *intersectionIter) next() (int, bool, error) {
	for {
		// a is pulled first so an empty left side never touches b.
		x, ok, err := it.a.peek()
		if err != nil || !ok {
			return 0, false, err
		}
		y, ok, err := it.b.peek()
		if err != nil || !ok {
			return 0, false, err
		}
		switch {
		case x == y:
			it.a.advance()
			it.b.advance()
			return x, true, nil
		case x > y:
			it.a.advance()
		default:
			it.b.advance()
		}
	}
}

type differenceIter struct{ a, b *peeked }

func (it *differenceIter) next() (int, bool, error) {
	for {
		x, ok, err := it.a.peek()
		if err != nil || !ok {
			return 0, false, err
		}
		y, oky, err := it.b.peek()
		if err != nil {
			return 0, false, err
		}
		switch {
		case !oky || y < x:
			it.a.advance()
			return x, true, nil
		case y == x:
			it.a.advance()
			it.b.advance()
		default:
			it.b.advance()
		}
	}
}

type filterIter struct {
	it   posIter
	keep func(int) bool
	poll *poller
}

func (f *filterIter) next() (int, bool, error) {
	for {
		p, ok, err := f.it.next()
		if err != nil || !ok {
			return 0, false, err
		}
		if err := f.poll.tick(); err != nil {
			return 0, false, err
		}
		if f.keep(p) {
			return p, true, nil
		}
	}
}

// ancestorsIter streams the ancestors of its input, including the input, in
// descending order. It only walks as far as it has been pulled.
type ancestorsIter struct {
	ix     *graph.Index
	in     *peeked
	queue  maxHeap
	queued graph.Bitset
	last   int
	poll   *poller
}

func newAncestorsIter(ix *graph.Index, in posIter, poll *poller) *ancestorsIter {
	return &ancestorsIter{ix: ix, in: &peeked{it: in}, queued: graph.NewBitset(ix.Len()), last: -1, poll: poll}
}

func (it *ancestorsIter) next() (int, bool, error) {
	for {
		p, ok, err := it.in.peek()
		if err != nil {
			return 0, false, err
		}
		var cur int
		switch {
		case ok && (it.queue.Len() == 0 || p > it.queue[0]):
			it.in.advance()
			cur = p
		case it.queue.Len() > 0:
			cur = heap.Pop(&it.queue).(int)
		default:
			return 0, false, nil
		}
		if cur == it.last {
			continue
		}
		if err := it.poll.tick(); err != nil {
			return 0, false, err
		}
		it.last = cur
		for _, q := range it.ix.ParentPositions(cur) {
			if !it.queued.Has(q) {
				it.queued.Set(q)
				heap.Push(&it.queue, q)
			}
		}
		return cur, true, nil
	}
}

type maxHeap []int

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *maxHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// collect drains it into a descending slice.
func collect(it posIter) ([]int, error) {
	var out []int
	for {
		p, ok, err := it.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, p)
	}
}

// sortDesc sorts ps in descending order and removes duplicates.
func sortDesc(ps []int) []int { return dedupSorted(ps) }

func bitsetToDesc(b graph.Bitset, n int) []int {
	var out []int
	for p := n - 1; p >= 0; p-- {
		if b.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortedByKey(ps []int, less func(a, b int) bool) []int {
	out := append([]int(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
