package revset

import (
	"sort"
	"strings"

	"weave/internal/graph"
)

// WorkingCopySymbol names the working-copy commit.
const WorkingCopySymbol = "@"

// SymbolTable maps ref names to the commits they point at. A name with more
// than one target is ambiguous.
type SymbolTable struct {
	Bookmarks map[string][]graph.CommitID
	Tags      map[string][]graph.CommitID
}

// BookmarksAt returns the bookmarks pointing at id, sorted.
func (st *SymbolTable) BookmarksAt(id graph.CommitID) []string {
	if st == nil {
		return nil
	}
	return namesAt(st.Bookmarks, id)
}

// TagsAt returns the tags pointing at id, sorted.
func (st *SymbolTable) TagsAt(id graph.CommitID) []string {
	if st == nil {
		return nil
	}
	return namesAt(st.Tags, id)
}

func namesAt(m map[string][]graph.CommitID, id graph.CommitID) []string {
	var out []string
	for name, ids := range m {
		for _, t := range ids {
			if t == id {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Resolver maps symbols to commits.
type Resolver struct {
	index       *graph.Index
	symbols     *SymbolTable
	workingCopy graph.CommitID
}

// NewResolver returns a resolver over ix. workingCopy may be empty when there
// is no checkout.
func NewResolver(ix *graph.Index, symbols *SymbolTable, workingCopy graph.CommitID) *Resolver {
	if symbols == nil {
		symbols = &SymbolTable{}
	}
	return &Resolver{index: ix, symbols: symbols, workingCopy: workingCopy}
}

// Resolve returns the single commit name refers to. Tiers are tried in order
// and the first tier with any match decides: the working-copy marker, full
// commit or change ids, bookmark and tag names, then commit or change id
// prefixes. Several distinct matches within the deciding tier make the name
// ambiguous.
func (r *Resolver) Resolve(name string) (graph.CommitID, error) {
	ps, err := r.resolvePositions(name)
	if err != nil {
		return "", err
	}
	return r.index.At(ps[0]).ID, nil
}

func (r *Resolver) resolvePositions(name string) ([]int, error) {
	if name == "" {
		return nil, &ResolveError{Kind: NoSuchSymbol, Name: name}
	}
	if name == WorkingCopySymbol {
		if p, ok := r.index.Position(r.workingCopy); ok {
			return []int{p}, nil
		}
		return nil, &ResolveError{Kind: NoSuchSymbol, Name: name}
	}

	tiers := []func(string) []int{r.fullID, r.refName, r.idPrefix}
	for _, tier := range tiers {
		ps := dedupSorted(tier(name))
		switch len(ps) {
		case 0:
			continue
		case 1:
			return ps, nil
		}
		cands := make([]graph.CommitID, len(ps))
		for i, p := range ps {
			cands[i] = r.index.At(p).ID
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i] < cands[j] })
		return nil, &ResolveError{Kind: AmbiguousSymbol, Name: name, Candidates: cands}
	}
	return nil, &ResolveError{Kind: NoSuchSymbol, Name: name}
}

func (r *Resolver) fullID(name string) []int {
	var ps []int
	if p, ok := r.index.Position(graph.CommitID(name)); ok {
		ps = append(ps, p)
	}
	return append(ps, r.index.ChangePositions(graph.ChangeID(name))...)
}

func (r *Resolver) refName(name string) []int {
	var ps []int
	for _, m := range []map[string][]graph.CommitID{r.symbols.Bookmarks, r.symbols.Tags} {
		for _, id := range m[name] {
			if p, ok := r.index.Position(id); ok {
				ps = append(ps, p)
			}
		}
	}
	return ps
}

func (r *Resolver) idPrefix(name string) []int {
	var ps []int
	if isHexString(name) {
		ps = append(ps, r.index.MatchCommitPrefix(name)...)
	}
	if isChangeIDString(name) {
		ps = append(ps, r.index.MatchChangePrefix(name)...)
	}
	return ps
}

// RefNames returns every bookmark and tag name, sorted, for diagnostics.
func (r *Resolver) RefNames() []string {
	var out []string
	for name := range r.symbols.Bookmarks {
		out = append(out, name)
	}
	for name := range r.symbols.Tags {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func isHexString(s string) bool {
	return strings.Trim(s, "0123456789abcdef") == ""
}

func isChangeIDString(s string) bool {
	return strings.Trim(s, "zyxwvutsrqponmlk") == ""
}

// dedupSorted sorts ps in descending order and removes duplicates.
func dedupSorted(ps []int) []int {
	if len(ps) < 2 {
		return ps
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ps)))
	out := ps[:1]
	for _, p := range ps[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
