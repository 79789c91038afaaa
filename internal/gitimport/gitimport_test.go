package gitimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/graph"
	"weave/internal/repo"
	"weave/internal/revset"
	"weave/internal/store"
)

type fixture struct {
	path          string
	first, second plumbing.Hash
}

func gitFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	r, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)

	sig := func(h int) *object.Signature {
		return &object.Signature{Name: "Bob", Email: "bob@example.com", When: time.Date(2024, 2, 1, h, 0, 0, 0, time.UTC)}
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi\n"), 0644))
	_, err = wt.Add("README")
	require.NoError(t, err)
	first, err := wt.Commit("add readme\n", &git.CommitOptions{Author: sig(1), Committer: sig(1)})
	require.NoError(t, err)

	second, err := wt.Commit("nothing changed\n", &git.CommitOptions{Author: sig(2), Committer: sig(2), AllowEmptyCommits: true})
	require.NoError(t, err)

	require.NoError(t, r.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("feature"), first)))
	_, err = r.CreateTag("v1", first, nil)
	require.NoError(t, err)
	_, err = r.CreateTag("v2", second, &git.CreateTagOptions{Message: "release\n", Tagger: sig(3)})
	require.NoError(t, err)

	return fixture{path: dir, first: first, second: second}
}

func TestImport(t *testing.T) {
	fx := gitFixture(t)
	dest := t.TempDir()
	require.NoError(t, repo.InitRepo(dest))
	st := store.Open(dest)

	stats, err := Import(context.Background(), fx.path, st, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Commits: 2, Bookmarks: 2, Tags: 2}, stats)

	ix, err := st.Index()
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	first, ok := ix.Commit(graph.CommitID(fx.first.String()))
	require.True(t, ok)
	assert.Equal(t, []graph.CommitID{graph.RootCommitID}, first.Parents)
	assert.Equal(t, "add readme\n", first.Description)
	assert.Equal(t, "bob@example.com", first.Author.Email)
	assert.False(t, first.Empty)

	second, ok := ix.Commit(graph.CommitID(fx.second.String()))
	require.True(t, ok)
	assert.Equal(t, []graph.CommitID{first.ID}, second.Parents)
	assert.True(t, second.Empty)
	assert.NotEqual(t, first.ChangeID, second.ChangeID)

	symbols, err := st.SymbolTable()
	require.NoError(t, err)
	assert.Equal(t, []graph.CommitID{second.ID}, symbols.Bookmarks["master"])
	assert.Equal(t, []graph.CommitID{first.ID}, symbols.Bookmarks["feature"])
	assert.Equal(t, []graph.CommitID{first.ID}, symbols.Tags["v1"])
	assert.Equal(t, []graph.CommitID{second.ID}, symbols.Tags["v2"], "annotated tag is peeled")

	env := &revset.Env{Index: ix, Symbols: symbols}
	rs, err := env.CompileString("feature::master & empty()")
	require.NoError(t, err)
	ids, err := rs.Evaluate(context.Background()).IDs()
	require.NoError(t, err)
	assert.Equal(t, []graph.CommitID{second.ID}, ids)
}

func TestImportIsIdempotent(t *testing.T) {
	fx := gitFixture(t)
	dest := t.TempDir()
	require.NoError(t, repo.InitRepo(dest))
	st := store.Open(dest)

	_, err := Import(context.Background(), fx.path, st, nil)
	require.NoError(t, err)
	_, err = Import(context.Background(), fx.path, st, nil)
	require.NoError(t, err)

	cs, err := st.ListCommits()
	require.NoError(t, err)
	assert.Len(t, cs, 3)
}

func TestImportCancelled(t *testing.T) {
	fx := gitFixture(t)
	dest := t.TempDir()
	require.NoError(t, repo.InitRepo(dest))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Import(ctx, fx.path, store.Open(dest), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportNotARepository(t *testing.T) {
	_, err := Import(context.Background(), t.TempDir(), store.Open(t.TempDir()), nil)
	assert.ErrorContains(t, err, "opening repository")
}

func TestImportSkipsUnreachableCommits(t *testing.T) {
	fx := gitFixture(t)
	r, err := git.PlainOpen(fx.path)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)
	sig := &object.Signature{Name: "Bob", Email: "bob@example.com", When: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}
	dropped, err := wt.Commit("abandoned\n", &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	require.NoError(t, err)
	require.NoError(t, r.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("master"), fx.second)))

	dest := t.TempDir()
	require.NoError(t, repo.InitRepo(dest))
	st := store.Open(dest)
	stats, err := Import(context.Background(), fx.path, st, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Commits)

	ix, err := st.Index()
	require.NoError(t, err)
	_, ok := ix.Commit(graph.CommitID(dropped.String()))
	assert.False(t, ok, "commit no ref reaches is not imported")
}

func TestGitGraph(t *testing.T) {
	fx := gitFixture(t)
	r, err := git.PlainOpen(fx.path)
	require.NoError(t, err)
	g := newGitGraph(context.Background(), r)
	g.heads = []graph.CommitID{commitID(fx.second)}

	first := commitID(fx.first)
	assert.True(t, g.Contains(first))
	assert.True(t, g.Contains(graph.RootCommitID))
	assert.False(t, g.Contains(graph.CommitID("0123456789abcdef0123456789abcdef01234567")))
	assert.Equal(t, []graph.CommitID{first}, g.LookupPrefix(string(first[:10])))
	assert.Equal(t, []graph.CommitID{first}, g.Parents(commitID(fx.second)))
	assert.Equal(t, []graph.CommitID{graph.RootCommitID}, g.Parents(first))

	ix, err := graph.Build(g)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.NoError(t, g.err)
}

func TestChangeIDIsStable(t *testing.T) {
	h := plumbing.NewHash("0123456789abcdef0123456789abcdef01234567")
	assert.Equal(t, changeID(h), changeID(h))
	assert.Len(t, string(changeID(h)), 32)
}
