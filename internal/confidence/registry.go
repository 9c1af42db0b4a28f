package confidence

import (
	"context"
	"sync"

	"github.com/veritaschain/veritaschain/internal/verrors"
)

// Aggregator is the pluggable evaluation surface for CUSTOM composite
// aggregation. It is deliberately narrow — a pure
// function over a fixed numeric vector, no I/O, no access to the store —
// so a misbehaving rule cannot block or corrupt anything beyond its own
// return value. Implementations must be safe for concurrent use.
type Aggregator interface {
	Aggregate(ctx context.Context, confidences []float64) (float64, error)
}

// AggregatorFunc adapts a plain function to the Aggregator interface.
type AggregatorFunc func(ctx context.Context, confidences []float64) (float64, error)

func (f AggregatorFunc) Aggregate(ctx context.Context, confidences []float64) (float64, error) {
	return f(ctx, confidences)
}

// Registry maps customRuleId to a registered Aggregator. Lookup on an
// unregistered id fails closed with AggregatorUnknown.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Aggregator
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Aggregator)}
}

// Register installs agg under ruleID, replacing any prior registration.
func (r *Registry) Register(ruleID string, agg Aggregator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ruleID] = agg
}

// Get looks up the Aggregator for ruleID.
func (r *Registry) Get(ruleID string) (Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg, ok := r.byID[ruleID]
	if !ok {
		return nil, &verrors.AggregatorUnknown{RuleID: ruleID}
	}
	return agg, nil
}
