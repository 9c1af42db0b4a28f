package events

import (
	"context"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veritaschain/veritaschain/internal/model"
)

// Hooks is the uniform set of per-kind callbacks a traversal invokes. Any
// hook left nil is simply skipped. SVO/Clause hooks fire while descending a
// leaf event's statement tree; Leaf/Composite fire once per event, before
// its statement and components are visited.
type Hooks struct {
	Entity    func(ctx context.Context, ref string) error
	Action    func(ctx context.Context, ref string) error
	SVO       func(ctx context.Context, svo model.SVO) error
	Clause    func(ctx context.Context, clause model.LogicalClause) error
	Leaf      func(ctx context.Context, ev model.Event) error
	Composite func(ctx context.Context, ev model.Event) error
}

// TraversalOptions bounds and shapes a traversal run.
type TraversalOptions struct {
	// MaxDepth bounds recursion into components; 0 means use the Resolver's
	// own MaxDepth.
	MaxDepth int
	// Parallel descends into independent components concurrently, bounded
	// by an errgroup. Hook invocation order is then no longer deterministic
	// across siblings — callers whose hooks are not safe for concurrent
	// invocation must synchronize inside the hook or leave Parallel false.
	Parallel bool
}

// TraversalResult reports what a completed (or partially failed) traversal
// covered.
type TraversalResult struct {
	Visited         int
	MaxDepthReached int
	Errors          []error
	Duration        time.Duration
}

// Walk performs an eager traversal of root's statement and (if composite)
// component tree, invoking hooks as it goes, and returns summary counters.
// A hook error is recorded in the result and does not stop the traversal
// (partial progress is preserved for callers doing best-effort indexing).
func (r *Resolver) Walk(ctx context.Context, root model.Event, hooks Hooks, opts TraversalOptions) TraversalResult {
	start := time.Now()
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = r.maxDepth
	}

	res := &walkState{}
	if opts.Parallel {
		r.walkParallel(ctx, root, hooks, maxDepth, 0, res)
	} else {
		r.walkSequential(ctx, root, hooks, maxDepth, 0, res)
	}

	res.mu.Lock()
	defer res.mu.Unlock()
	return TraversalResult{
		Visited:         res.visited,
		MaxDepthReached: res.maxDepthReached,
		Errors:          res.errs,
		Duration:        time.Since(start),
	}
}

type walkState struct {
	mu              sync.Mutex
	visited         int
	maxDepthReached int
	errs            []error
}

func (w *walkState) record(depth int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visited++
	if depth > w.maxDepthReached {
		w.maxDepthReached = depth
	}
	if err != nil {
		w.errs = append(w.errs, err)
	}
}

func (r *Resolver) visitOne(ctx context.Context, ev model.Event, hooks Hooks, depth int, res *walkState) {
	var err error
	if ev.IsComposite() {
		if hooks.Composite != nil {
			err = hooks.Composite(ctx, ev)
		}
	} else {
		if hooks.Leaf != nil {
			err = hooks.Leaf(ctx, ev)
		}
		if err == nil {
			err = r.walkStatement(ctx, ev.Statement, hooks)
		}
	}
	res.record(depth, err)
}

func (r *Resolver) walkStatement(ctx context.Context, s model.Statement, hooks Hooks) error {
	switch {
	case s.IsSVO():
		if hooks.SVO != nil {
			if err := hooks.SVO(ctx, *s.SVO); err != nil {
				return err
			}
		}
		if hooks.Entity != nil {
			if err := hooks.Entity(ctx, s.SVO.SubjectRef); err != nil {
				return err
			}
			if err := hooks.Entity(ctx, s.SVO.ObjectRef); err != nil {
				return err
			}
		}
		if hooks.Action != nil {
			return hooks.Action(ctx, s.SVO.VerbRef)
		}
		return nil
	case s.IsClause():
		if hooks.Clause != nil {
			if err := hooks.Clause(ctx, *s.Clause); err != nil {
				return err
			}
		}
		for _, operand := range s.Clause.Operands {
			if err := r.walkStatement(ctx, operand, hooks); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) walkSequential(ctx context.Context, ev model.Event, hooks Hooks, maxDepth, depth int, res *walkState) {
	r.visitOne(ctx, ev, hooks, depth, res)
	if !ev.IsComposite() || depth >= maxDepth {
		return
	}
	for _, ref := range ev.Components {
		child, err := r.Resolve(ctx, ref)
		if err != nil {
			res.record(depth+1, err)
			continue
		}
		r.walkSequential(ctx, child, hooks, maxDepth, depth+1, res)
	}
}

func (r *Resolver) walkParallel(ctx context.Context, ev model.Event, hooks Hooks, maxDepth, depth int, res *walkState) {
	r.visitOne(ctx, ev, hooks, depth, res)
	if !ev.IsComposite() || depth >= maxDepth {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)
	for _, ref := range ev.Components {
		ref := ref
		g.Go(func() error {
			child, err := r.Resolve(gctx, ref)
			if err != nil {
				res.record(depth+1, err)
				return nil
			}
			r.walkParallel(gctx, child, hooks, maxDepth, depth+1, res)
			return nil
		})
	}
	_ = g.Wait()
}

// Iter returns a lazy, depth-first, generator-style enumeration of root and
// its resolved component tree, stopping early if the
// consumer's yield returns false. A resolution error terminates the
// sequence after yielding the error's originating event's ancestors.
func (r *Resolver) Iter(ctx context.Context, root model.Event, maxDepth int) iter.Seq2[model.Event, error] {
	if maxDepth <= 0 {
		maxDepth = r.maxDepth
	}
	return func(yield func(model.Event, error) bool) {
		r.iterNode(ctx, root, maxDepth, 0, yield)
	}
}

func (r *Resolver) iterNode(ctx context.Context, ev model.Event, maxDepth, depth int, yield func(model.Event, error) bool) bool {
	if !yield(ev, nil) {
		return false
	}
	if !ev.IsComposite() || depth >= maxDepth {
		return true
	}
	for _, ref := range ev.Components {
		child, err := r.Resolve(ctx, ref)
		if err != nil {
			yield(model.Event{}, err)
			return false
		}
		if !r.iterNode(ctx, child, maxDepth, depth+1, yield) {
			return false
		}
	}
	return true
}
