package template

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/alias"
	"weave/internal/graph"
)

type refs map[graph.CommitID][]string

func (r refs) BookmarksAt(id graph.CommitID) []string { return r[id] }
func (r refs) TagsAt(graph.CommitID) []string          { return nil }

var when = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func testContext(t *testing.T) *CommitContext {
	t.Helper()
	alice := graph.Signature{Name: "Alice", Email: "alice@example.com", Timestamp: when}
	parent := &graph.Commit{
		ID: "1111aaaa", ChangeID: "ykkk", Description: "initial",
		Parents: []graph.CommitID{graph.RootCommitID}, Author: alice,
		Committer: graph.Signature{Name: "Alice", Email: "alice@example.com", Timestamp: when.Add(-time.Hour)},
	}
	c := &graph.Commit{
		ID: "abcdef0123", ChangeID: "xkkk", Description: "fix lexer\n\nlonger body\n",
		Parents: []graph.CommitID{"1111aaaa"}, Author: alice, Committer: alice,
	}
	ix, err := graph.NewIndex([]*graph.Commit{graph.NewRootCommit(), parent, c})
	require.NoError(t, err)
	return &CommitContext{
		Commit:      c,
		Index:       ix,
		Refs:        refs{"abcdef0123": {"main"}},
		WorkingCopy: "abcdef0123",
		Now:         when.Add(3 * time.Hour),
	}
}

func render(t *testing.T, ctx *CommitContext, text string) string {
	t.Helper()
	tmpl, err := Compile(text, nil)
	require.NoError(t, err, text)
	out, err := tmpl.Render(ctx)
	require.NoError(t, err, text)
	return out
}

func TestRender(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"description.first_line()", "fix lexer"},
		{"description.first_line().upper()", "FIX LEXER"},
		{"description.lines().len()", "3"},
		{`description.contains("lexer") && !empty`, "true"},
		{"commit_id", "abcdef0123"},
		{"commit_id.short(4)", "abcd"},
		{"commit_id.short()", "abcdef0123"},
		{"commit_id.shortest()", "a"},
		{"commit_id.shortest(4)", "abcd"},
		{"commit_id.upper()", "ABCDEF0123"},
		{"change_id", "xkkk"},
		{"change_id.shortest()", "x"},
		{`author.name() ++ " <" ++ author.email() ++ ">"`, "Alice <alice@example.com>"},
		{"author", "Alice <alice@example.com>"},
		{"author.name", "Alice"},
		{`"a" "b" 'c'`, "abc"},
		{`if(conflict, "C", "ok")`, "ok"},
		{`if(empty, "E")`, ""},
		{`if(description, "has description")`, "has description"},
		{`if(tags, "tagged", "untagged")`, "untagged"},
		{`bookmarks.join(", ")`, "main"},
		{"bookmarks.len()", "1"},
		{"bookmarks", "main"},
		{`bookmarks.contains("main")`, "true"},
		{"tags.len() == 0", "true"},
		{`parents.map(|p| p.commit_id().short(4)).join(",")`, "1111"},
		{"parents.map(|p| p.description)", "initial"},
		{"parents.filter(|p| p.selected).len()", "0"},
		{"parents.map(|p| p.parents.map(|q| q.root))", "true"},
		{"selected", "true"},
		{"working_copy", "true"},
		{"root", "false"},
		{`timestamp.utc().format("%Y-%m-%d %H:%M")`, "2024-01-01 10:00"},
		{"timestamp.ago()", "3 hours ago"},
		{"timestamp", "2024-01-01 10:00:00.000 +00:00"},
		{"author.timestamp().ago()", "3 hours ago"},
		{`separate(" ", "a", "", "b")`, "a b"},
		{`separate(", ", bookmarks, tags, "x")`, "main, x"},
		{`coalesce("", "x", "y")`, "x"},
		{`concat("a", 1, true)`, "a1true"},
		{`indent("> ", "a\nb\n")`, "> a\n> b\n"},
		{`label("x", "y")`, "y"},
		{`"héllo".len()`, "5"},
		{`"hello".substr(1, -1)`, "ell"},
		{`"hello".substr(3, 1)`, ""},
		{`"  x ".trim()`, "x"},
		{`"Hello".starts_with("He") ++ "Hello".ends_with("x")`, "truefalse"},
		{"-3", "-3"},
		{"1 == 1", "true"},
		{`"a" != "b"`, "true"},
		{`commit_id == "abcdef0123"`, "true"},
		{"true || missing_keyword", "true"},
		{"false && missing_keyword", "false"},
		{`pad_start(5, "ab")`, "   ab"},
		{`pad_end(4, "ab") ++ "|"`, "ab  |"},
		{`pad_end(1, "abc")`, "abc"},
		{`truncate_end(3, "abcdef")`, "abc"},
		{`truncate_end(3, "日本語")`, "日"},
		{`pad_start(4, "日本")`, "日本"},
	}
	ctx := testContext(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, ctx, tt.in))
		})
	}
}

func TestUntakenBranchIsNotEvaluated(t *testing.T) {
	ctx := testContext(t)
	assert.Equal(t, "ok", render(t, ctx, `if(false, missing_property.upper(), "ok")`))
	assert.Equal(t, "", render(t, ctx, `if(root, commit_id.no_such_method())`))

	tmpl, err := Compile(`if(true, missing_property)`, nil)
	require.NoError(t, err)
	_, err = tmpl.Render(ctx)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NoSuchProperty, re.Kind)
	assert.Equal(t, `keyword "missing_property" doesn't exist (at offset 9)`, err.Error())
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		in       string
		kind     RenderErrorKind
		contains string
	}{
		{"description.nope()", NoSuchProperty, `type String has no method "nope"`},
		{"author.upper()", NoSuchProperty, `type Signature has no method "upper"`},
		{"nope_fn_without_alias", NoSuchProperty, `keyword "nope_fn_without_alias" doesn't exist`},
		{`commit_id.short("x")`, TypeMismatch, "expected an Integer, got String"},
		{`if(author, "x")`, TypeMismatch, "expected a condition, got Signature"},
		{"description.upper(1)", TypeMismatch, `method "upper" expects 0 arguments, got 1`},
		{`1 == "a"`, TypeMismatch, "cannot compare Integer with String"},
		{`-"a"`, TypeMismatch, "operator - cannot be applied to String"},
		{"description.map(|x| x)", TypeMismatch, "map() expects a List, got String"},
		{"parents.map(|a, b| a)", TypeMismatch, "expects a lambda with 1 parameter"},
		{"parents.filter(|p| p.author)", TypeMismatch, "filter() expects a condition"},
		{"separate()", TypeMismatch, "expects at least 1 arguments, got 0"},
		{`indent(author, "x")`, TypeMismatch, "expected a String, got Signature"},
	}
	ctx := testContext(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tmpl, err := Compile(tt.in, nil)
			require.NoError(t, err)
			_, err = tmpl.Render(ctx)
			var re *RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.kind, re.Kind)
			assert.Contains(t, err.Error(), tt.contains)
			assert.NotEmpty(t, re.Excerpt())
		})
	}
}

func TestRenderFormatted(t *testing.T) {
	ctx := testContext(t)
	tmpl, err := Compile(`label("id", commit_id.shortest(4)) ++ " " ++ label("desc error", "x" ++ label("y", "z"))`, nil)
	require.NoError(t, err)
	got, err := tmpl.RenderFormatted(ctx)
	require.NoError(t, err)
	assert.Equal(t, Formatted{
		{Text: "a", Labels: []string{"id", "prefix"}},
		{Text: "bcd", Labels: []string{"id", "rest"}},
		{Text: " "},
		{Text: "x", Labels: []string{"desc", "error"}},
		{Text: "z", Labels: []string{"desc", "error", "y"}},
	}, got)
	assert.Equal(t, "abcd xz", got.String())
}

func TestCompileUnknownFunctionWithoutAliases(t *testing.T) {
	unrelated, err := alias.ParseTable(map[string]string{"unrelated": `"x"`})
	require.NoError(t, err)
	for _, table := range []*alias.Table{nil, alias.NewTable(), unrelated} {
		_, err := Compile(`bogus_fn("x")`, table)
		assert.True(t, alias.IsKind(err, alias.UnknownAlias), "table with %d aliases: %v", table.Len(), err)
	}

	_, err = Compile(`separate(" ", "a", "b")`, nil)
	assert.NoError(t, err)
}

func TestUses(t *testing.T) {
	table, err := alias.ParseTable(map[string]string{"marker": `if(selected, "*")`})
	require.NoError(t, err)
	tests := []struct {
		text string
		want bool
	}{
		{`if(selected, "x")`, true},
		{`parents.map(|p| p.selected()).join(",")`, true},
		{`description ++ marker`, true},
		{`commit_id.short() ++ " " ++ description`, false},
		{`"selected"`, false},
	}
	for _, tt := range tests {
		tmpl, err := Compile(tt.text, table)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, tmpl.Uses("selected"), tt.text)
	}
}

func TestKeywords(t *testing.T) {
	kw := Keywords()
	assert.True(t, sort.StringsAreSorted(kw))
	assert.Contains(t, kw, "commit_id")
	assert.Contains(t, kw, "selected")
	assert.NotContains(t, kw, "separate")
}

func TestTemplateAliases(t *testing.T) {
	table, err := alias.ParseTable(map[string]string{
		"format_short_id(id)": "id.shortest(8)",
		"greeting":            `"hi " ++ author.name()`,
		"loop":                "loop",
		"join2(a, b)":         `a ++ "/" ++ b`,
		"bad":                 "missing_keyword",
		"twice(x)":            "x ++ x",
	})
	require.NoError(t, err)
	ctx := testContext(t)

	renderWith := func(text string) (string, error) {
		tmpl, err := Compile(text, table)
		if err != nil {
			return "", err
		}
		return tmpl.Render(ctx)
	}

	out, err := renderWith("format_short_id(commit_id) ++ \" \" ++ greeting")
	require.NoError(t, err)
	assert.Equal(t, "abcdef01 hi Alice", out)

	out, err = renderWith(`join2(change_id, twice("z"))`)
	require.NoError(t, err)
	assert.Equal(t, "xkkk/zz", out)

	_, err = renderWith("nope(1)")
	assert.True(t, alias.IsKind(err, alias.UnknownAlias), "%v", err)

	_, err = renderWith("loop")
	assert.True(t, alias.IsKind(err, alias.Cycle))

	_, err = renderWith("join2(1)")
	assert.True(t, alias.IsKind(err, alias.ArityMismatch))

	_, err = renderWith("bad")
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "bad", re.Alias)
	assert.Contains(t, err.Error(), `in alias "bad"`)
}

func TestRendersAreIndependent(t *testing.T) {
	ctx := testContext(t)
	tmpl, err := Compile(`parents.map(|p| p.commit_id.short(4)) ++ ":" ++ description.first_line()`, nil)
	require.NoError(t, err)
	first, err := tmpl.Render(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tmpl.Render(ctx)
			if err == nil {
				results[i] = out
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat(first, 16), strings.Join(results, ""))
}
