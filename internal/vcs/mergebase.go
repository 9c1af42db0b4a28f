package vcs

import (
	"context"
	"fmt"

	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// DefaultMergeBaseCap bounds the bidirectional BFS frontier expansion,
// satisfying an implementation-defined cap on merge-base discovery.
const DefaultMergeBaseCap = 100000

// MergeBase finds the first common ancestor of a and b by a bidirectional
// breadth-first search over commit parent pointers. Sufficient for
// bi-parent histories; a full LCA algorithm would be needed for
// multi-head/octopus histories, which this core does not produce.
func (e *Engine) MergeBase(ctx context.Context, a, b string) (string, error) {
	if a == b {
		return a, nil
	}

	visitedA := map[string]bool{a: true}
	visitedB := map[string]bool{b: true}
	frontierA := []string{a}
	frontierB := []string{b}

	visited := 0
	for len(frontierA) > 0 || len(frontierB) > 0 {
		if visited > DefaultMergeBaseCap {
			return "", fmt.Errorf("vcs: merge-base search exceeded cap of %d", DefaultMergeBaseCap)
		}

		if len(frontierA) > 0 {
			next, found, err := e.expandFrontier(ctx, frontierA, visitedA, visitedB)
			if err != nil {
				return "", err
			}
			if found != "" {
				return found, nil
			}
			frontierA = next
			visited++
		}
		if len(frontierB) > 0 {
			next, found, err := e.expandFrontier(ctx, frontierB, visitedB, visitedA)
			if err != nil {
				return "", err
			}
			if found != "" {
				return found, nil
			}
			frontierB = next
			visited++
		}
	}
	return "", &verrors.NoBase{A: a, B: b}
}

func (e *Engine) expandFrontier(ctx context.Context, frontier []string, own, other map[string]bool) ([]string, string, error) {
	var next []string
	for _, h := range frontier {
		c, err := e.store.Commits().Get(ctx, h)
		if err != nil {
			return nil, "", fmt.Errorf("vcs: load commit %s: %w", h, err)
		}
		for _, parent := range c.Parents {
			if other[parent] {
				return nil, parent, nil
			}
			if !own[parent] {
				own[parent] = true
				next = append(next, parent)
			}
		}
	}
	return next, "", nil
}
