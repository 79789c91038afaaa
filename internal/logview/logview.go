// Package logview renders a commit sequence through a template with a pool
// of workers and hands the results to a sink in sequence order.
package logview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"weave/internal/graph"
	"weave/internal/logging"
	"weave/internal/template"
)

// Commits is a lazily produced commit sequence, such as *revset.Sequence.
type Commits interface {
	Next() (*graph.Commit, bool)
	Err() error
}

// Renderer formats one commit.
type Renderer func(c *graph.Commit) (template.Formatted, error)

// Item is one rendered commit. Index is its position in the sequence.
type Item struct {
	Index  int
	Commit *graph.Commit
	Output template.Formatted
}

// Sink consumes rendered commits. Emit is called from a single goroutine,
// in sequence order.
type Sink interface {
	Emit(item Item) error
}

// Options tunes Run.
type Options struct {
	// Workers bounds concurrent renders. Zero means GOMAXPROCS.
	Workers int
	// Limit stops after that many commits. Zero or less means no limit.
	Limit  int
	Logger *slog.Logger
}

type result struct {
	index  int
	commit *graph.Commit
	out    template.Formatted
}

// Run drains commits, renders each with render and emits the results to sink
// in the order the sequence produced them.
//
// The first failure stops the run: a render error, a sink error, the
// sequence's own error or cancellation of ctx. A sink error is reported in
// preference to the cancellation it causes.
func Run(ctx context.Context, commits Commits, render Renderer, sink Sink, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make(chan result, workers)
	// A slot is taken per commit before it is pulled and given back once it
	// is emitted, so at most workers commits wait in the reorder buffer.
	window := make(chan struct{}, workers)
	var sinkErr error
	emitted := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		pending := make(map[int]result)
		next := 0
		for r := range results {
			pending[r.index] = r
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				<-window
				if sinkErr != nil {
					continue
				}
				if err := sink.Emit(Item{Index: r.index, Commit: r.commit, Output: r.out}); err != nil {
					sinkErr = err
					cancel()
					continue
				}
				emitted++
			}
		}
	}()

	produced := 0
	for opts.Limit <= 0 || produced < opts.Limit {
		select {
		case window <- struct{}{}:
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			break
		}
		c, ok := commits.Next()
		if !ok {
			break
		}
		i := produced
		produced++
		g.Go(func() error {
			out, err := render(c)
			if err != nil {
				return fmt.Errorf("rendering commit %s: %w", shortID(c.ID), err)
			}
			select {
			case results <- result{index: i, commit: c, out: out}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	<-done

	log.Debug("rendered log", "produced", produced, "emitted", emitted, "workers", workers, "elapsed", time.Since(start))

	switch {
	case sinkErr != nil:
		return sinkErr
	case err != nil && !errors.Is(err, context.Canceled):
		return err
	}
	if err := commits.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	// The producer may have stopped on a cancelled ctx before any render ran.
	return ctx.Err()
}

func shortID(id graph.CommitID) string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}

// Collector is a Sink that keeps every item.
type Collector struct {
	Items []Item
}

// Emit implements Sink.
func (c *Collector) Emit(item Item) error {
	c.Items = append(c.Items, item)
	return nil
}

// Strings returns the plain text of every collected item.
func (c *Collector) Strings() []string {
	out := make([]string, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.Output.String()
	}
	return out
}
