// Package gitimport copies the commits, branches and tags of a git
// repository into a weave store. Git branches become bookmarks.
package gitimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"weave/internal/graph"
	"weave/internal/logging"
	"weave/internal/store"
)

// Stats counts what an import wrote.
type Stats struct {
	Commits   int
	Bookmarks int
	Tags      int
}

// Import reads the git repository at gitPath into st. Only commits reachable
// from a branch, a tag or HEAD are copied. Re-importing is idempotent: commit
// ids are the git hashes.
func Import(ctx context.Context, gitPath string, st *store.Store, log *slog.Logger) (Stats, error) {
	if log == nil {
		log = logging.Discard()
	}
	var stats Stats
	r, err := git.PlainOpen(gitPath)
	if err != nil {
		return stats, fmt.Errorf("opening repository: %w", err)
	}

	bookmarks := make(map[string]graph.CommitID)
	branches, err := r.Branches()
	if err != nil {
		return stats, fmt.Errorf("listing branches: %w", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		bookmarks[ref.Name().Short()] = commitID(ref.Hash())
		return nil
	})
	if err != nil {
		return stats, err
	}

	tags := make(map[string]graph.CommitID)
	tagRefs, err := r.Tags()
	if err != nil {
		return stats, fmt.Errorf("listing tags: %w", err)
	}
	err = tagRefs.ForEach(func(ref *plumbing.Reference) error {
		target, ok, err := tagTarget(r, ref)
		if err != nil || !ok {
			return err
		}
		tags[ref.Name().Short()] = commitID(target)
		return nil
	})
	if err != nil {
		return stats, err
	}

	g := newGitGraph(ctx, r)
	for _, id := range bookmarks {
		g.heads = append(g.heads, id)
	}
	for _, id := range tags {
		g.heads = append(g.heads, id)
	}
	if head, err := r.Head(); err == nil {
		g.heads = append(g.heads, commitID(head.Hash()))
	}
	ix, err := graph.Build(g)
	if g.err != nil {
		return stats, g.err
	}
	if err != nil {
		return stats, fmt.Errorf("walking history: %w", err)
	}

	for p := 0; p < ix.Len(); p++ {
		c := ix.At(p)
		if c.IsRoot() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := st.SaveCommit(c); err != nil {
			return stats, err
		}
		stats.Commits++
		if stats.Commits%graph.PollInterval == 0 {
			log.Debug("importing commits", "done", stats.Commits, "total", ix.Len()-1)
		}
	}

	for name, id := range bookmarks {
		if err := st.SetRef(store.Bookmarks, name, id); err != nil {
			return stats, err
		}
		stats.Bookmarks++
	}
	for name, id := range tags {
		if err := st.SetRef(store.Tags, name, id); err != nil {
			return stats, err
		}
		stats.Tags++
	}

	log.Info("imported git repository", "path", gitPath, "commits", stats.Commits, "bookmarks", stats.Bookmarks, "tags", stats.Tags)
	return stats, nil
}

// tagTarget peels an annotated tag to its commit. Tags of trees or blobs
// are skipped.
func tagTarget(r *git.Repository, ref *plumbing.Reference) (plumbing.Hash, bool, error) {
	tag, err := r.TagObject(ref.Hash())
	switch {
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), true, nil
	case err != nil:
		return plumbing.ZeroHash, false, fmt.Errorf("reading tag %s: %w", ref.Name().Short(), err)
	}
	c, err := tag.Commit()
	if errors.Is(err, object.ErrUnsupportedObject) {
		return plumbing.ZeroHash, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("reading tag %s: %w", ref.Name().Short(), err)
	}
	return c.Hash, true, nil
}

func commitID(h plumbing.Hash) graph.CommitID {
	return graph.CommitID(h.String())
}

// changeID derives a stable change id from the commit hash, read backwards
// so it does not share a prefix with the commit id.
func changeID(h plumbing.Hash) graph.ChangeID {
	b := make([]byte, 16)
	for i := range b {
		b[i] = h[len(h)-1-i]
	}
	return graph.EncodeChangeID(b)
}

func convert(gc *object.Commit) (*graph.Commit, error) {
	c := &graph.Commit{
		ID:          commitID(gc.Hash),
		ChangeID:    changeID(gc.Hash),
		Description: gc.Message,
		Author:      graph.Signature{Name: gc.Author.Name, Email: gc.Author.Email, Timestamp: gc.Author.When},
		Committer:   graph.Signature{Name: gc.Committer.Name, Email: gc.Committer.Email, Timestamp: gc.Committer.When},
	}
	for _, p := range gc.ParentHashes {
		c.Parents = append(c.Parents, commitID(p))
	}
	if len(c.Parents) == 0 {
		c.Parents = []graph.CommitID{graph.RootCommitID}
	}
	empty, err := isEmpty(gc)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", gc.Hash, err)
	}
	c.Empty = empty
	return c, nil
}

// isEmpty reports whether gc leaves its parents' tree unchanged. A root
// commit is empty when its tree has no entries.
func isEmpty(gc *object.Commit) (bool, error) {
	if gc.NumParents() == 0 {
		tree, err := gc.Tree()
		if err != nil {
			return false, err
		}
		return len(tree.Entries) == 0, nil
	}
	empty := true
	err := gc.Parents().ForEach(func(p *object.Commit) error {
		if p.TreeHash != gc.TreeHash {
			empty = false
		}
		return nil
	})
	return empty, err
}

// gitGraph reads a git object database as a commit graph. Commits are
// converted on first access and cached. A read failure is kept in err and
// the commit reported missing, since the interface has no error returns.
type gitGraph struct {
	ctx   context.Context
	repo  *git.Repository
	heads []graph.CommitID
	cache map[graph.CommitID]*graph.Commit
	err   error
}

var _ graph.CommitGraph = (*gitGraph)(nil)

func newGitGraph(ctx context.Context, r *git.Repository) *gitGraph {
	return &gitGraph{ctx: ctx, repo: r, cache: make(map[graph.CommitID]*graph.Commit)}
}

func (g *gitGraph) Commit(id graph.CommitID) (*graph.Commit, bool) {
	if id == graph.RootCommitID {
		return graph.NewRootCommit(), true
	}
	if c, ok := g.cache[id]; ok {
		return c, true
	}
	if g.err != nil {
		return nil, false
	}
	if err := g.ctx.Err(); err != nil {
		g.err = err
		return nil, false
	}
	gc, err := g.repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		g.err = fmt.Errorf("reading commit %s: %w", id, err)
		return nil, false
	}
	c, err := convert(gc)
	if err != nil {
		g.err = err
		return nil, false
	}
	g.cache[id] = c
	return c, true
}

func (g *gitGraph) Parents(id graph.CommitID) []graph.CommitID {
	c, ok := g.Commit(id)
	if !ok {
		return nil
	}
	return c.Parents
}

// Heads returns the ref tips the import starts from. Some of them may be
// ancestors of others.
func (g *gitGraph) Heads() []graph.CommitID { return g.heads }

func (g *gitGraph) Contains(id graph.CommitID) bool {
	if id == graph.RootCommitID {
		return true
	}
	_, err := g.repo.CommitObject(plumbing.NewHash(string(id)))
	return err == nil
}

func (g *gitGraph) LookupPrefix(prefix string) []graph.CommitID {
	var out []graph.CommitID
	iter, err := g.repo.CommitObjects()
	if err != nil {
		return nil
	}
	_ = iter.ForEach(func(gc *object.Commit) error {
		if strings.HasPrefix(gc.Hash.String(), prefix) {
			out = append(out, commitID(gc.Hash))
		}
		return nil
	})
	return out
}
