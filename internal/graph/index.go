package graph

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// Index is an immutable snapshot of a commit DAG. Every commit gets a
// position such that parents come before their children; ties are broken by
// committer timestamp and then by commit id, so the numbering is stable for a
// given set of commits.
type Index struct {
	commits  []*Commit
	pos      map[CommitID]int
	parents  [][]int
	children [][]int
	heads    []int
	byChange map[ChangeID][]int

	// Sorted for prefix lookups.
	commitIDs []idEntry
	changeIDs []idEntry
}

type idEntry struct {
	id  string
	pos int
}

// NewIndex builds an Index from a complete set of commits. Every parent must
// be present in the set.
func NewIndex(commits []*Commit) (*Index, error) {
	byID := make(map[CommitID]*Commit, len(commits))
	for _, c := range commits {
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = c
	}
	pending := make(map[CommitID]int, len(byID))
	kids := make(map[CommitID][]*Commit, len(byID))
	for _, c := range byID {
		seen := make(map[CommitID]bool, len(c.Parents))
		for _, p := range c.Parents {
			if _, ok := byID[p]; !ok {
				return nil, fmt.Errorf("commit %s references unknown parent %s", c.ID, p)
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			pending[c.ID]++
			kids[p] = append(kids[p], c)
		}
	}

	ready := &commitHeap{}
	for _, c := range byID {
		if pending[c.ID] == 0 {
			heap.Push(ready, c)
		}
	}
	ordered := make([]*Commit, 0, len(byID))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*Commit)
		ordered = append(ordered, c)
		for _, k := range kids[c.ID] {
			pending[k.ID]--
			if pending[k.ID] == 0 {
				heap.Push(ready, k)
			}
		}
	}
	if len(ordered) != len(byID) {
		return nil, fmt.Errorf("commit graph contains a cycle")
	}

	ix := &Index{
		commits:  ordered,
		pos:      make(map[CommitID]int, len(ordered)),
		parents:  make([][]int, len(ordered)),
		children: make([][]int, len(ordered)),
		byChange: make(map[ChangeID][]int),
	}
	for i, c := range ordered {
		ix.pos[c.ID] = i
	}
	for i, c := range ordered {
		seen := make(map[int]bool, len(c.Parents))
		for _, p := range c.Parents {
			pp := ix.pos[p]
			if seen[pp] {
				continue
			}
			seen[pp] = true
			ix.parents[i] = append(ix.parents[i], pp)
			ix.children[pp] = append(ix.children[pp], i)
		}
		ix.byChange[c.ChangeID] = append(ix.byChange[c.ChangeID], i)
		ix.commitIDs = append(ix.commitIDs, idEntry{string(c.ID), i})
		ix.changeIDs = append(ix.changeIDs, idEntry{string(c.ChangeID), i})
	}
	for i := range ordered {
		if len(ix.children[i]) == 0 {
			ix.heads = append(ix.heads, i)
		}
	}
	sortEntries(ix.commitIDs)
	sortEntries(ix.changeIDs)
	return ix, nil
}

// Build walks g from its heads and indexes every reachable commit.
func Build(g CommitGraph) (*Index, error) {
	var commits []*Commit
	seen := make(map[CommitID]bool)
	stack := append([]CommitID(nil), g.Heads()...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := g.Commit(id)
		if !ok {
			return nil, fmt.Errorf("commit %s not found", id)
		}
		commits = append(commits, c)
		stack = append(stack, g.Parents(id)...)
	}
	return NewIndex(commits)
}

func sortEntries(es []idEntry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].id != es[j].id {
			return es[i].id < es[j].id
		}
		return es[i].pos < es[j].pos
	})
}

// Len returns the number of indexed commits.
func (ix *Index) Len() int { return len(ix.commits) }

// At returns the commit at position p.
func (ix *Index) At(p int) *Commit { return ix.commits[p] }

// Position returns the position of id.
func (ix *Index) Position(id CommitID) (int, bool) {
	p, ok := ix.pos[id]
	return p, ok
}

// ParentPositions returns the positions of the parents of p.
func (ix *Index) ParentPositions(p int) []int { return ix.parents[p] }

// ChildPositions returns the positions of the children of p.
func (ix *Index) ChildPositions(p int) []int { return ix.children[p] }

// HeadPositions returns the positions of commits without children, in
// ascending order.
func (ix *Index) HeadPositions() []int { return ix.heads }

// ChangePositions returns the commits carrying change id ch.
func (ix *Index) ChangePositions(ch ChangeID) []int { return ix.byChange[ch] }

// MatchCommitPrefix returns the positions of commits whose id starts with
// prefix.
func (ix *Index) MatchCommitPrefix(prefix string) []int {
	return matchPrefix(ix.commitIDs, prefix)
}

// MatchChangePrefix returns the positions of commits whose change id starts
// with prefix.
func (ix *Index) MatchChangePrefix(prefix string) []int {
	return matchPrefix(ix.changeIDs, prefix)
}

func matchPrefix(es []idEntry, prefix string) []int {
	i := sort.Search(len(es), func(i int) bool { return es[i].id >= prefix })
	var out []int
	for ; i < len(es) && strings.HasPrefix(es[i].id, prefix); i++ {
		out = append(out, es[i].pos)
	}
	return out
}

// ShortestCommitPrefix returns the length of the shortest prefix of id that
// matches no other commit id.
func (ix *Index) ShortestCommitPrefix(id CommitID) int {
	return shortestPrefix(ix.commitIDs, string(id))
}

// ShortestChangePrefix is like ShortestCommitPrefix for change ids. Commits
// sharing a change id do not count against each other.
func (ix *Index) ShortestChangePrefix(id ChangeID) int {
	return shortestPrefix(ix.changeIDs, string(id))
}

func shortestPrefix(es []idEntry, id string) int {
	lo := sort.Search(len(es), func(i int) bool { return es[i].id >= id })
	hi := lo
	for hi < len(es) && es[hi].id == id {
		hi++
	}
	n := 1
	if lo > 0 {
		n = max(n, commonPrefixLen(es[lo-1].id, id)+1)
	}
	if hi < len(es) {
		n = max(n, commonPrefixLen(es[hi].id, id)+1)
	}
	return min(n, len(id))
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Commit implements CommitGraph.
func (ix *Index) Commit(id CommitID) (*Commit, bool) {
	p, ok := ix.pos[id]
	if !ok {
		return nil, false
	}
	return ix.commits[p], true
}

// Parents implements CommitGraph.
func (ix *Index) Parents(id CommitID) []CommitID {
	p, ok := ix.pos[id]
	if !ok {
		return nil
	}
	return ix.commits[p].Parents
}

// Heads implements CommitGraph.
func (ix *Index) Heads() []CommitID {
	out := make([]CommitID, len(ix.heads))
	for i, p := range ix.heads {
		out[i] = ix.commits[p].ID
	}
	return out
}

// Contains implements CommitGraph.
func (ix *Index) Contains(id CommitID) bool {
	_, ok := ix.pos[id]
	return ok
}

// LookupPrefix implements CommitGraph.
func (ix *Index) LookupPrefix(prefix string) []CommitID {
	ps := ix.MatchCommitPrefix(prefix)
	out := make([]CommitID, len(ps))
	for i, p := range ps {
		out[i] = ix.commits[p].ID
	}
	return out
}

type commitHeap []*Commit

func (h commitHeap) Len() int { return len(h) }
func (h commitHeap) Less(i, j int) bool {
	ti, tj := h[i].Committer.Timestamp, h[j].Committer.Timestamp
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return h[i].ID < h[j].ID
}
func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *commitHeap) Push(x any)   { *h = append(*h, x.(*Commit)) }
func (h *commitHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}
