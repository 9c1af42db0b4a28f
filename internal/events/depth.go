package events

import (
	"context"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// depthKey identifies one exact version of one logical event — the unit of
// memoization and cycle detection.
type depthKey struct {
	logicalID string
	version   string
}

// Depth computes the recursive depth of ev: 0 for a leaf, 1+max(depth(child))
// for a composite. Each (logicalId, version) is visited at most once; a
// re-entry onto the current descent path fails with CircularComposite, and
// exceeding maxDepth fails with DepthExceeded. Weak components are included
// in depth/cycle accounting — only confidence aggregation excludes them.
func (r *Resolver) Depth(ctx context.Context, ev model.Event) (int, error) {
	memo := make(map[depthKey]int)
	return r.depth(ctx, ev, memo, nil)
}

func (r *Resolver) depth(ctx context.Context, ev model.Event, memo map[depthKey]int, path []depthKey) (int, error) {
	key := depthKey{ev.LogicalID, ev.Version}
	if d, ok := memo[key]; ok {
		return d, nil
	}
	for _, p := range path {
		if p == key {
			return 0, &verrors.CircularComposite{Path: cyclePath(path, key)}
		}
	}
	if !ev.IsComposite() {
		memo[key] = 0
		return 0, nil
	}
	if len(path) >= r.maxDepth {
		return 0, &verrors.DepthExceeded{Limit: r.maxDepth}
	}

	nextPath := append(append([]depthKey(nil), path...), key)
	max := 0
	for _, ref := range ev.Components {
		child, err := r.Resolve(ctx, ref)
		if err != nil {
			return 0, err
		}
		d, err := r.depth(ctx, child, memo, nextPath)
		if err != nil {
			return 0, err
		}
		if d+1 > max {
			max = d + 1
		}
	}
	if max > r.maxDepth {
		return 0, &verrors.DepthExceeded{Limit: r.maxDepth}
	}
	memo[key] = max
	return max, nil
}

func cyclePath(path []depthKey, closing depthKey) []string {
	out := make([]string, 0, len(path)+1)
	for _, k := range path {
		out = append(out, k.logicalID)
	}
	out = append(out, closing.logicalID)
	return out
}
