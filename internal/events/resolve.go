// Package events implements the recursive Event algebra (C5): component
// resolution, depth computation with cycle detection, textual formula
// rendering, a uniform traversal visitor, passive pattern observation, and
// migration of legacy MacroEvent payloads.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// DefaultMaxDepth is the recursion cap applied when a Resolver is built
// without an explicit override.
const DefaultMaxDepth = 10

// DefaultMaxParallel bounds concurrent component descent in parallel
// traversal when a Resolver is built without an explicit override.
const DefaultMaxParallel = 8

// Resolver binds component references to their events and derives
// structural properties of the resulting tree (depth, formula, traversal).
// It holds no tree/commit context of its own: resolution goes
// straight through the logical version chain (pinned version, or latest).
type Resolver struct {
	events      store.VersionedStore[model.Event]
	maxDepth    int
	maxParallel int
}

// NewResolver returns a Resolver with the given maxDepth, or DefaultMaxDepth
// when maxDepth <= 0. Parallel traversal is bounded by DefaultMaxParallel;
// use SetMaxParallel to override it.
func NewResolver(events store.VersionedStore[model.Event], maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{events: events, maxDepth: maxDepth, maxParallel: DefaultMaxParallel}
}

// MaxDepth reports the configured recursion cap.
func (r *Resolver) MaxDepth() int { return r.maxDepth }

// SetMaxParallel overrides the worker limit applied to parallel traversal's
// errgroup fan-out. Values <= 0 are ignored.
func (r *Resolver) SetMaxParallel(n int) {
	if n > 0 {
		r.maxParallel = n
	}
}

// MaxParallel reports the configured parallel-descent worker limit.
func (r *Resolver) MaxParallel() int { return r.maxParallel }

// Resolve binds a ComponentRef to its event: a pinned version is looked up
// in the logical version chain; an absent version binds to the current
// latest. Any store-level miss surfaces as MissingComponent.
func (r *Resolver) Resolve(ctx context.Context, ref model.ComponentRef) (model.Event, error) {
	if ref.Version == nil {
		ev, err := r.events.GetLatest(ctx, ref.LogicalID)
		if err != nil {
			if isNotFound(err) {
				return model.Event{}, &verrors.MissingComponent{LogicalID: ref.LogicalID}
			}
			return model.Event{}, fmt.Errorf("events: resolve %s: %w", ref.LogicalID, err)
		}
		return ev, nil
	}

	versions, err := r.events.FindByLogicalID(ctx, ref.LogicalID)
	if err != nil {
		if isNotFound(err) {
			return model.Event{}, &verrors.MissingComponent{LogicalID: ref.LogicalID, Version: *ref.Version}
		}
		return model.Event{}, fmt.Errorf("events: resolve %s@%s: %w", ref.LogicalID, *ref.Version, err)
	}
	for _, v := range versions {
		if v.Version == *ref.Version {
			return v, nil
		}
	}
	return model.Event{}, &verrors.MissingComponent{LogicalID: ref.LogicalID, Version: *ref.Version}
}

// ResolveAll resolves every component of ev in declaration order, including
// weak ones — callers filter weak components out where aggregation (as
// opposed to depth/cycle checks) requires it.
func (r *Resolver) ResolveAll(ctx context.Context, ev model.Event) ([]model.Event, error) {
	out := make([]model.Event, 0, len(ev.Components))
	for _, c := range ev.Components {
		child, err := r.Resolve(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var nf *verrors.NotFound
	return errors.As(err, &nf)
}
