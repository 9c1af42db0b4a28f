package confidence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/veritaschain/veritaschain/internal/events"
	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// HistoryProvider supplies the change history of a logical event, consulted
// by volatility estimation. The version-control component owns the
// commit log this is built from; Engine depends only on this narrow seam.
type HistoryProvider interface {
	History(ctx context.Context, logicalID string) ([]ChangeRecord, error)
}

// Engine computes leaf and composite confidence, with a
// commit-scoped cache and a pluggable CUSTOM aggregator registry.
type Engine struct {
	resolver   *events.Resolver
	history    HistoryProvider
	cache      cacheStore
	registry   *Registry
	volatility float64 // K

	group singleflight.Group
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithVolatilityK overrides the default K divisor used in volatility
// estimation.
func WithVolatilityK(k float64) Option {
	return func(e *Engine) { e.volatility = k }
}

// WithCacheCapacity overrides the LRU ceiling of the commit-scoped cache.
func WithCacheCapacity(capacity int) Option {
	return func(e *Engine) { e.cache = NewCache(capacity) }
}

// WithCache installs a custom cacheStore, e.g. a SQLiteCache for a
// durable commit-scoped cache that survives process restarts.
func WithCache(store cacheStore) Option {
	return func(e *Engine) { e.cache = store }
}

// WithRegistry installs a pre-populated CUSTOM aggregator registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// NewEngine returns an Engine backed by resolver (for component resolution
// and depth/cycle safety) and history (for volatility estimation).
func NewEngine(resolver *events.Resolver, history HistoryProvider, opts ...Option) *Engine {
	e := &Engine{
		resolver:   resolver,
		history:    history,
		cache:      NewCache(DefaultCacheCapacity),
		registry:   NewRegistry(),
		volatility: DefaultVolatilityK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the engine's CUSTOM aggregator registry for callers that
// want to register rules after construction.
func (e *Engine) Registry() *Registry { return e.registry }

// Confidence returns the numeric confidence of ev, leaf or composite,
// implementing events.LeafConfidence so formula rendering can share this
// engine without an import cycle.
func (e *Engine) Confidence(ctx context.Context, ev model.Event) (float64, error) {
	b, err := e.Breakdown(ctx, ev, "")
	if err != nil {
		return 0, err
	}
	return b.Confidence, nil
}

// Breakdown computes (or retrieves from cache) ev's full confidence
// breakdown. commitHash scopes the cache lookup; pass "" to bypass
// caching entirely (e.g. speculative recomputation).
func (e *Engine) Breakdown(ctx context.Context, ev model.Event, commitHash string) (model.ConfidenceBreakdown, error) {
	if !ev.IsComposite() {
		return e.leafBreakdown(ctx, ev)
	}
	return e.compositeBreakdown(ctx, ev, commitHash)
}

func (e *Engine) leafBreakdown(ctx context.Context, ev model.Event) (model.ConfidenceBreakdown, error) {
	history, err := e.history.History(ctx, ev.LogicalID)
	if err != nil {
		return model.ConfidenceBreakdown{}, fmt.Errorf("confidence: history %s: %w", ev.LogicalID, err)
	}
	v := Volatility(history, e.volatility)
	ef, ejust := evidenceFactor(ev.Modifiers.Certainty)
	sf, sjust := sourceFactor(ev.EffectiveKind(), ev.Metadata.Source)
	nf, njust := normForceFactor(ev.EffectiveKind(), ev.Modifiers.Legal)

	confidence := clamp01((1 - v) * ef * sf * nf)
	return model.ConfidenceBreakdown{
		Confidence: confidence,
		Formula:    formulaString(v, ef, sf, nf),
		Factors:    map[string]float64{"V": v, "E": ef, "S": sf, "N": nf},
		Justifications: map[string]string{
			"V": volatilityJustification(v, len(history)),
			"E": ejust,
			"S": sjust,
			"N": njust,
		},
	}, nil
}

func volatilityJustification(v float64, historyLen int) string {
	if historyLen < 2 {
		return "fewer than two history entries, volatility defaults to 0"
	}
	return fmt.Sprintf("stddev of per-day change counts over %d history entries", historyLen)
}

func (e *Engine) compositeBreakdown(ctx context.Context, ev model.Event, commitHash string) (model.ConfidenceBreakdown, error) {
	nonWeak := make([]model.ComponentRef, 0, len(ev.Components))
	for _, c := range ev.Components {
		if !c.Weak {
			nonWeak = append(nonWeak, c)
		}
	}
	if len(nonWeak) == 0 {
		return model.ConfidenceBreakdown{Confidence: 0, Formula: "0 (no non-weak components)"}, nil
	}

	children := make([]model.Event, 0, len(nonWeak))
	for _, ref := range nonWeak {
		child, err := e.resolver.Resolve(ctx, ref)
		if err != nil {
			return model.ConfidenceBreakdown{}, err
		}
		children = append(children, child)
	}

	componentHashes := make([]string, len(children))
	for i, c := range children {
		h, err := hash.Event(c)
		if err != nil {
			return model.ConfidenceBreakdown{}, fmt.Errorf("confidence: hash component %s: %w", c.LogicalID, err)
		}
		componentHashes[i] = h
	}

	if commitHash != "" {
		selfHash, err := hash.Event(ev)
		if err == nil {
			key := hash.CacheKey(selfHash, commitHash)
			if entry, ok := e.cache.Lookup(key, componentHashes); ok {
				return entry.Breakdown, nil
			}
			result, err, _ := e.group.Do(key, func() (any, error) {
				b, err := e.computeComposite(ctx, ev, children, componentHashes)
				if err != nil {
					return nil, err
				}
				e.cache.Store(key, &CacheEntry{
					Aggregated:      b.Confidence,
					Breakdown:       b,
					ComponentHashes: componentHashes,
					CachedAt:        nowFunc(),
				})
				return b, nil
			})
			if err != nil {
				return model.ConfidenceBreakdown{}, err
			}
			return result.(model.ConfidenceBreakdown), nil
		}
	}

	return e.computeComposite(ctx, ev, children, componentHashes)
}

func (e *Engine) computeComposite(ctx context.Context, ev model.Event, children []model.Event, componentHashes []string) (model.ConfidenceBreakdown, error) {
	confidences := make([]float64, len(children))
	formulas := make([]string, len(children))
	for i, child := range children {
		b, err := e.Breakdown(ctx, child, "")
		if err != nil {
			return model.ConfidenceBreakdown{}, err
		}
		confidences[i] = b.Confidence
		formulas[i] = fmt.Sprintf("%.3f", b.Confidence)
	}

	var agg float64
	var formula string
	switch ev.EffectiveAggregation() {
	case model.AggregationALL:
		agg = minOf(confidences)
		formula = fmt.Sprintf("min(%s)", strings.Join(formulas, ", "))
	case model.AggregationANY:
		agg = maxOf(confidences)
		formula = fmt.Sprintf("max(%s)", strings.Join(formulas, ", "))
	case model.AggregationORDERED:
		if err := checkStrictlyIncreasing(children); err != nil {
			return model.ConfidenceBreakdown{}, err
		}
		agg = minOf(confidences)
		formula = fmt.Sprintf("sequence(%s)", strings.Join(formulas, " → "))
	case model.AggregationCUSTOM:
		if ev.CustomRuleID == nil {
			return model.ConfidenceBreakdown{}, &verrors.AggregatorUnknown{RuleID: ""}
		}
		aggregator, err := e.registry.Get(*ev.CustomRuleID)
		if err != nil {
			return model.ConfidenceBreakdown{}, err
		}
		result, err := aggregator.Aggregate(ctx, confidences)
		if err != nil {
			return model.ConfidenceBreakdown{}, &verrors.AggregatorFailed{RuleID: *ev.CustomRuleID, Reason: err.Error()}
		}
		agg = clamp01(result)
		formula = fmt.Sprintf("custom(%s)", strings.Join(formulas, ", "))
	default:
		agg = minOf(confidences)
		formula = fmt.Sprintf("min(%s)", strings.Join(formulas, ", "))
	}

	return model.ConfidenceBreakdown{
		Confidence:      agg,
		Formula:         formula,
		ComponentHashes: componentHashes,
	}, nil
}

func checkStrictlyIncreasing(children []model.Event) error {
	for i := 1; i < len(children); i++ {
		if !children[i].DateOccurred.After(children[i-1].DateOccurred) {
			return &verrors.InvalidStatement{Reason: "ORDERED components are not strictly increasing by dateOccurred"}
		}
	}
	return nil
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// nowFunc is a seam for deterministic testing.
var nowFunc = time.Now
