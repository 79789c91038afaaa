package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"weave/internal/graph"
	"weave/internal/logview"
	"weave/internal/revset"
	"weave/internal/template"
)

// view is a loaded repository snapshot ready for queries.
type view struct {
	ws          *workspace
	index       *graph.Index
	symbols     *revset.SymbolTable
	workingCopy graph.CommitID
	env         *revset.Env
}

func (ws *workspace) view() (*view, error) {
	ix, err := ws.store.Index()
	if err != nil {
		return nil, fmt.Errorf("loading commits: %w", err)
	}
	symbols, err := ws.store.SymbolTable()
	if err != nil {
		return nil, fmt.Errorf("loading refs: %w", err)
	}
	wc, err := ws.store.WorkingCopy()
	if err != nil {
		return nil, err
	}
	aliases, err := ws.cfg.RevsetAliases()
	if err != nil {
		return nil, err
	}
	ws.log.Debug("loaded repository", "commits", ix.Len(), "bookmarks", len(symbols.Bookmarks), "tags", len(symbols.Tags))
	return &view{
		ws:          ws,
		index:       ix,
		symbols:     symbols,
		workingCopy: wc,
		env: &revset.Env{
			Index:       ix,
			Symbols:     symbols,
			WorkingCopy: wc,
			Aliases:     aliases,
			UserEmail:   ws.cfg.String("user.email", ""),
			Parallel:    true,
			Logger:      ws.log,
		},
	}, nil
}

// resolveOne evaluates text and requires exactly one commit.
func (v *view) resolveOne(ctx context.Context, text string) (*graph.Commit, error) {
	rs, err := v.env.CompileString(text)
	if err != nil {
		return nil, err
	}
	cs, err := rs.Evaluate(ctx).Collect(2)
	if err != nil {
		return nil, err
	}
	switch len(cs) {
	case 0:
		return nil, fmt.Errorf("revset %q resolved to no commits", text)
	case 1:
		return cs[0], nil
	}
	return nil, fmt.Errorf("revset %q resolved to more than one commit", text)
}

// logOptions selects how commits are rendered.
type logOptions struct {
	template string
	limit    int
	color    string
}

// render evaluates rs and prints every commit through the template.
func (v *view) render(ctx context.Context, w io.Writer, rs *revset.Revset, opts logOptions) error {
	tmplText := opts.template
	if tmplText == "" {
		tmplText = v.ws.cfg.String("templates.log", "builtin_log_compact")
	}
	tmplAliases, err := v.ws.cfg.TemplateAliases()
	if err != nil {
		return err
	}
	tmpl, err := template.Compile(tmplText, tmplAliases)
	if err != nil {
		return err
	}
	v.ws.log.Debug("compiled template", "template", tmplText, "expanded", tmpl.Expr().String())

	// Membership needs a full evaluation, so it is only computed for
	// templates that ask for it.
	var selected func(graph.CommitID) bool
	if tmpl.Uses("selected") {
		if selected, err = rs.Contains(ctx); err != nil {
			return err
		}
	}

	mode := opts.color
	if mode == "" {
		mode = v.ws.cfg.String("ui.color", "auto")
	}
	var out *os.File
	if f, ok := w.(*os.File); ok {
		out = f
	}
	colorOn, err := logview.ColorEnabled(mode, out)
	if err != nil {
		return err
	}
	colors, err := v.ws.cfg.StringMap("colors")
	if err != nil {
		return err
	}
	palette, err := logview.NewPalette(colors)
	if err != nil {
		return err
	}

	renderCommit := func(c *graph.Commit) (template.Formatted, error) {
		return tmpl.RenderFormatted(&template.CommitContext{
			Commit:      c,
			Index:       v.index,
			Refs:        v.symbols,
			WorkingCopy: v.workingCopy,
			Selected:    selected,
		})
	}
	sink := &logview.TextSink{W: w, Palette: palette, Color: colorOn}
	return logview.Run(ctx, rs.Evaluate(ctx), renderCommit, sink, logview.Options{Limit: opts.limit, Logger: v.ws.log})
}
