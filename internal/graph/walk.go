package graph

import "context"

// PollInterval is how many commits a traversal visits between checks of its
// context.
const PollInterval = 256

// Bitset is a set of positions.
type Bitset []uint64

// NewBitset returns an empty set able to hold positions [0, n).
func NewBitset(n int) Bitset { return make(Bitset, (n+63)/64) }

// Set adds p.
func (b Bitset) Set(p int) { b[p>>6] |= 1 << (uint(p) & 63) }

// Has reports whether p is in the set.
func (b Bitset) Has(p int) bool { return b[p>>6]&(1<<(uint(p)&63)) != 0 }

// Direction selects the edges a walk follows.
type Direction int

const (
	ToParents Direction = iota
	ToChildren
)

// Walk visits every commit reachable from start by following edges in dir,
// including start itself. A non-negative maxDepth limits the number of edges
// followed. The context is polled every PollInterval visits.
func (ix *Index) Walk(ctx context.Context, start []int, dir Direction, maxDepth int, visit func(p int)) error {
	seen := NewBitset(ix.Len())
	frontier := make([]int, 0, len(start))
	for _, p := range start {
		if !seen.Has(p) {
			seen.Set(p)
			frontier = append(frontier, p)
		}
	}
	visited := 0
	for depth := 0; len(frontier) > 0; depth++ {
		var next []int
		for _, p := range frontier {
			visited++
			if visited%PollInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			visit(p)
			if maxDepth >= 0 && depth >= maxDepth {
				continue
			}
			edges := ix.parents[p]
			if dir == ToChildren {
				edges = ix.children[p]
			}
			for _, q := range edges {
				if !seen.Has(q) {
					seen.Set(q)
					next = append(next, q)
				}
			}
		}
		frontier = next
	}
	return nil
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (ix *Index) IsAncestor(a, b int) bool {
	if a > b {
		return false
	}
	found := false
	// Positions below a cannot lead back to a.
	seen := NewBitset(ix.Len())
	stack := []int{b}
	for len(stack) > 0 && !found {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == a {
			found = true
			break
		}
		for _, q := range ix.parents[p] {
			if q >= a && !seen.Has(q) {
				seen.Set(q)
				stack = append(stack, q)
			}
		}
	}
	return found
}
