package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veritaschain/veritaschain/internal/model"
)

// Strategy is one pluggable conflict-resolution rule in the priority
// pipeline. Attempt returns ok=false when the strategy does not
// apply to c or cannot clear its own confidence threshold, letting the
// pipeline fall through to the next strategy in priority order.
type Strategy interface {
	Name() string
	Priority() int
	Attempt(ctx context.Context, c Conflict) (Decision, bool)
}

// StrategyPipeline runs a set of Strategy implementations in descending
// priority order, returning the first one that resolves a given conflict.
type StrategyPipeline struct {
	strategies []Strategy
}

// NewStrategyPipeline returns a pipeline holding strategies sorted by
// descending priority (higher runs first).
func NewStrategyPipeline(strategies ...Strategy) *StrategyPipeline {
	sorted := append([]Strategy(nil), strategies...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Priority() > sorted[j-1].Priority(); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &StrategyPipeline{strategies: sorted}
}

// defaultConfidenceMargin is the fallback confidence-based margin used
// when no tunable override (config or per-merge-call) is supplied.
const defaultConfidenceMargin = 0.05

// DefaultStrategyPipeline returns the built-in strategies at their
// documented priorities: relationship set-union and timeline-span/
// importance auto-merge (95, ahead of everything else since they never
// need a side picked at all), legal hierarchy (90), component version
// (85), confidence-based (80), semantic text merge (70), temporal
// precedence (60). lookup resolves a side's live confidence for the
// confidence-based strategy; pass nil to skip that strategy. margin is
// the confidence-based strategy's minimum |Δ| to fire; <= 0 uses
// defaultConfidenceMargin.
func DefaultStrategyPipeline(lookup ConfidenceLookup, margin float64) *StrategyPipeline {
	if margin <= 0 {
		margin = defaultConfidenceMargin
	}
	strategies := []Strategy{
		relationshipSetUnionStrategy{},
		timelineSpanUnionStrategy{},
		importanceMaxStrategy{},
		legalHierarchyStrategy{},
		componentVersionStrategy{},
		semanticTextMergeStrategy{},
		temporalPrecedenceStrategy{},
	}
	if lookup != nil {
		strategies = append(strategies, confidenceBasedStrategy{lookup: lookup, margin: margin})
	}
	return NewStrategyPipeline(strategies...)
}

// Resolve runs c through the pipeline in priority order, returning the
// first successful Decision and the strategy that made it. ok is false
// when every strategy declined, meaning c requires manual resolution.
func (p *StrategyPipeline) Resolve(ctx context.Context, c Conflict) (Decision, bool) {
	for _, s := range p.strategies {
		if d, ok := s.Attempt(ctx, c); ok {
			d.Strategy = s.Name()
			return d, true
		}
	}
	return Decision{}, false
}

// WithConfidenceMargin returns a copy of p with any confidenceBasedStrategy
// member's margin overridden to margin, leaving every other strategy (and
// the priority order) untouched. Used to apply a per-merge-call
// MergeOptions.ConfidenceThreshold without mutating the engine's shared
// pipeline. margin <= 0 returns p unchanged.
func (p *StrategyPipeline) WithConfidenceMargin(margin float64) *StrategyPipeline {
	if margin <= 0 {
		return p
	}
	out := make([]Strategy, len(p.strategies))
	for i, s := range p.strategies {
		if cb, ok := s.(confidenceBasedStrategy); ok {
			cb.margin = margin
			out[i] = cb
			continue
		}
		out[i] = s
	}
	return &StrategyPipeline{strategies: out}
}

// ConfidenceLookup resolves the live confidence of logicalID as it stands
// on one side of a merge, used by confidenceBasedStrategy.
type ConfidenceLookup func(ctx context.Context, logicalID, side string) (float64, error)

// relationshipSetUnionStrategy auto-merges relationships conflicts by
// taking the set union of both sides, deduplicated by (type, targetId)
// (priority 95: relationships are additive facts, never a pick-a-side
// choice).
type relationshipSetUnionStrategy struct{}

func (relationshipSetUnionStrategy) Name() string  { return "relationship-set-union" }
func (relationshipSetUnionStrategy) Priority() int { return 95 }

func (relationshipSetUnionStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.Type != ConflictRelationship {
		return Decision{}, false
	}
	ours, okO := c.Ours.([]model.Relationship)
	theirs, okT := c.Theirs.([]model.Relationship)
	if !okO || !okT {
		return Decision{}, false
	}
	seen := make(map[string]struct{}, len(ours)+len(theirs))
	merged := make([]model.Relationship, 0, len(ours)+len(theirs))
	for _, r := range append(append([]model.Relationship{}, ours...), theirs...) {
		key := string(r.Type) + "|" + r.TargetID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, r)
	}
	return Decision{ChosenSide: "custom", Value: merged, Confidence: 1, Method: "auto",
		Reasoning: "relationships auto-merged by set union"}, true
}

// timelineSpanUnionStrategy auto-merges timelineSpan conflicts by taking
// the union of both sides' bounds: the earlier start, the later end
// (priority 95).
type timelineSpanUnionStrategy struct{}

func (timelineSpanUnionStrategy) Name() string  { return "timeline-span-union" }
func (timelineSpanUnionStrategy) Priority() int { return 95 }

func (timelineSpanUnionStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.Type != ConflictMetadata || c.Path != "timelineSpan" {
		return Decision{}, false
	}
	ours, okO := c.Ours.(*model.TimelineSpan)
	theirs, okT := c.Theirs.(*model.TimelineSpan)
	if !okO || !okT {
		return Decision{}, false
	}
	if ours == nil {
		return Decision{ChosenSide: "custom", Value: theirs, Confidence: 1, Method: "auto",
			Reasoning: "timelineSpan union: only theirs is set"}, true
	}
	if theirs == nil {
		return Decision{ChosenSide: "custom", Value: ours, Confidence: 1, Method: "auto",
			Reasoning: "timelineSpan union: only ours is set"}, true
	}
	merged := &model.TimelineSpan{Start: ours.Start}
	if theirs.Start.Before(merged.Start) {
		merged.Start = theirs.Start
	}
	switch {
	case ours.End == nil || theirs.End == nil:
		merged.End = nil // open-ended span on either side wins: union has no upper bound.
	case theirs.End.After(*ours.End):
		end := *theirs.End
		merged.End = &end
	default:
		end := *ours.End
		merged.End = &end
	}
	return Decision{ChosenSide: "custom", Value: merged, Confidence: 1, Method: "auto",
		Reasoning: "timelineSpan auto-merged by bound union"}, true
}

// importanceMaxStrategy auto-merges importance conflicts by taking the
// higher of the two values (priority 95).
type importanceMaxStrategy struct{}

func (importanceMaxStrategy) Name() string  { return "importance-max" }
func (importanceMaxStrategy) Priority() int { return 95 }

func (importanceMaxStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.Type != ConflictContent || c.Path != "importance" {
		return Decision{}, false
	}
	ours, okO := c.Ours.(*int)
	theirs, okT := c.Theirs.(*int)
	if !okO || !okT {
		return Decision{}, false
	}
	switch {
	case ours == nil:
		return Decision{ChosenSide: "custom", Value: theirs, Confidence: 1, Method: "auto",
			Reasoning: "importance resolves to the higher value (only theirs is set)"}, true
	case theirs == nil:
		return Decision{ChosenSide: "custom", Value: ours, Confidence: 1, Method: "auto",
			Reasoning: "importance resolves to the higher value (only ours is set)"}, true
	case *theirs > *ours:
		return Decision{ChosenSide: "custom", Value: theirs, Confidence: 1, Method: "auto",
			Reasoning: fmt.Sprintf("importance resolves to the higher value: theirs (%d) over ours (%d)", *theirs, *ours)}, true
	default:
		return Decision{ChosenSide: "custom", Value: ours, Confidence: 1, Method: "auto",
			Reasoning: fmt.Sprintf("importance resolves to the higher value: ours (%d) over theirs (%d)", *ours, *theirs)}, true
	}
}

// legalHierarchyWeight mirrors the confidence engine's source-authority
// table so the merge engine can rank two norm sources without
// importing the confidence package purely for a lookup table.
var legalHierarchyWeight = map[model.LegalType]float64{
	model.LegalConstitution: 1.0,
	model.LegalStatute:      0.95,
	model.LegalRegulation:   0.9,
	model.LegalCaseLaw:      0.85,
	model.LegalContract:     0.8,
	model.LegalPolicy:       0.75,
}

// legalHierarchyStrategy prefers the side whose source sits higher in the
// legal-authority hierarchy (priority 90, the highest-precedence
// side-picking rule: a statute beats a contract regardless of anything
// else in conflict).
type legalHierarchyStrategy struct{}

func (legalHierarchyStrategy) Name() string  { return "legal-hierarchy" }
func (legalHierarchyStrategy) Priority() int { return 90 }

func (legalHierarchyStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.OursSource == nil || c.TheirsSource == nil || c.OursSource.LegalType == nil || c.TheirsSource.LegalType == nil {
		return Decision{}, false
	}
	ow, ok1 := legalHierarchyWeight[*c.OursSource.LegalType]
	tw, ok2 := legalHierarchyWeight[*c.TheirsSource.LegalType]
	if !ok1 || !ok2 || ow == tw {
		return Decision{}, false
	}
	if ow > tw {
		return Decision{ChosenSide: "ours", Value: c.Ours, Confidence: ow, Method: "auto",
			Reasoning: fmt.Sprintf("our source (%s) outranks theirs (%s) in legal hierarchy", *c.OursSource.LegalType, *c.TheirsSource.LegalType)}, true
	}
	return Decision{ChosenSide: "theirs", Value: c.Theirs, Confidence: tw, Method: "auto",
		Reasoning: fmt.Sprintf("their source (%s) outranks ours (%s) in legal hierarchy", *c.TheirsSource.LegalType, *c.OursSource.LegalType)}, true
}

// componentVersionStrategy resolves ConflictComponent by preferring the
// side pinned to (or tracking) the greater version (priority 85).
type componentVersionStrategy struct{}

func (componentVersionStrategy) Name() string  { return "component-version" }
func (componentVersionStrategy) Priority() int { return 85 }

func (componentVersionStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.Type != ConflictComponent {
		return Decision{}, false
	}
	o, okO := c.Ours.(model.ComponentRef)
	t, okT := c.Theirs.(model.ComponentRef)
	if !okO || !okT {
		return Decision{}, false
	}
	switch {
	case o.Version == nil && t.Version != nil:
		return Decision{ChosenSide: "ours", Value: o, Confidence: 1, Method: "auto",
			Reasoning: "our side tracks latest while theirs pins a version; latest wins"}, true
	case t.Version == nil && o.Version != nil:
		return Decision{ChosenSide: "theirs", Value: t, Confidence: 1, Method: "auto",
			Reasoning: "their side tracks latest while ours pins a version; latest wins"}, true
	case o.Version != nil && t.Version != nil:
		cmp := compareSemver(*o.Version, *t.Version)
		if cmp == 0 {
			return Decision{}, false
		}
		if cmp > 0 {
			return Decision{ChosenSide: "ours", Value: o, Confidence: 1, Method: "auto",
				Reasoning: fmt.Sprintf("our pinned version %s is greater than theirs (%s)", *o.Version, *t.Version)}, true
		}
		return Decision{ChosenSide: "theirs", Value: t, Confidence: 1, Method: "auto",
			Reasoning: fmt.Sprintf("their pinned version %s is greater than ours (%s)", *t.Version, *o.Version)}, true
	}
	return Decision{}, false
}

// confidenceBasedStrategy prefers the side whose current aggregated
// confidence is higher, provided the two confidences differ by at least
// the margin (priority 80). Scoped to content/metadata/statement conflicts, per the
// documented strategy table — relationship/component/aggregation
// conflicts have their own dedicated strategies or require manual review.
type confidenceBasedStrategy struct {
	lookup ConfidenceLookup
	margin float64
}

func (confidenceBasedStrategy) Name() string  { return "confidence-based" }
func (confidenceBasedStrategy) Priority() int { return 80 }

func (s confidenceBasedStrategy) Attempt(ctx context.Context, c Conflict) (Decision, bool) {
	switch c.Type {
	case ConflictContent, ConflictMetadata, ConflictStatement:
	default:
		return Decision{}, false
	}
	oc, tc := c.OursConfidence, c.TheirsConfidence
	if (oc == nil || tc == nil) && s.lookup != nil {
		if oc == nil {
			if v, err := s.lookup(ctx, c.LogicalID, "ours"); err == nil {
				oc = &v
			}
		}
		if tc == nil {
			if v, err := s.lookup(ctx, c.LogicalID, "theirs"); err == nil {
				tc = &v
			}
		}
	}
	if oc == nil || tc == nil {
		return Decision{}, false
	}
	margin := s.margin
	if margin <= 0 {
		margin = defaultConfidenceMargin
	}
	diff := *oc - *tc
	if diff < 0 {
		diff = -diff
	}
	if diff < margin {
		return Decision{}, false
	}
	if *oc > *tc {
		return Decision{ChosenSide: "ours", Value: c.Ours, Confidence: *oc, Method: "auto",
			Reasoning: fmt.Sprintf("our confidence %.3f exceeds theirs %.3f", *oc, *tc)}, true
	}
	return Decision{ChosenSide: "theirs", Value: c.Theirs, Confidence: *tc, Method: "auto",
		Reasoning: fmt.Sprintf("their confidence %.3f exceeds ours %.3f", *tc, *oc)}, true
}

// semanticTextMergeStrategy handles free-text content conflicts where one
// side's text is a strict superset of the other's (e.g. a description was
// only extended), merging by keeping the longer, encompassing text
// (priority 70).
type semanticTextMergeStrategy struct{}

func (semanticTextMergeStrategy) Name() string  { return "semantic-text-merge" }
func (semanticTextMergeStrategy) Priority() int { return 70 }

func (semanticTextMergeStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	if c.Type != ConflictContent {
		return Decision{}, false
	}
	os, okO := textOf(c.Ours)
	ts, okT := textOf(c.Theirs)
	if !okO || !okT || os == "" || ts == "" {
		return Decision{}, false
	}
	switch {
	case strings.Contains(os, ts):
		return Decision{ChosenSide: "ours", Value: os, Confidence: 0.8, Method: "auto",
			Reasoning: "our text contains theirs in full; treated as a superseding extension"}, true
	case strings.Contains(ts, os):
		return Decision{ChosenSide: "theirs", Value: ts, Confidence: 0.8, Method: "auto",
			Reasoning: "their text contains ours in full; treated as a superseding extension"}, true
	default:
		return Decision{}, false
	}
}

func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	default:
		return "", false
	}
}

// temporalPrecedenceGap is the minimum timestamp gap temporalPrecedenceStrategy
// requires before it will settle a conflict by recency alone.
const temporalPrecedenceGap = time.Hour

// temporalPrecedenceStrategy is the pipeline's last-resort fallback:
// prefer whichever side was committed more recently, provided the two
// sides are separated by a real time gap (priority 60).
type temporalPrecedenceStrategy struct{}

func (temporalPrecedenceStrategy) Name() string  { return "temporal-precedence" }
func (temporalPrecedenceStrategy) Priority() int { return 60 }

func (temporalPrecedenceStrategy) Attempt(_ context.Context, c Conflict) (Decision, bool) {
	// Critical conflicts (structural shape changes, statement rewrites,
	// aggregation-logic changes) are never safe to settle by recency alone;
	// they fall through the whole pipeline to manual resolution.
	if c.Severity == SeverityCritical {
		return Decision{}, false
	}
	if c.OursTimestamp == nil || c.TheirsTimestamp == nil {
		return Decision{}, false
	}
	gap := c.OursTimestamp.Sub(*c.TheirsTimestamp)
	if gap < 0 {
		gap = -gap
	}
	if gap <= temporalPrecedenceGap {
		return Decision{}, false
	}
	if c.OursTimestamp.After(*c.TheirsTimestamp) {
		return Decision{ChosenSide: "ours", Value: c.Ours, Confidence: 0.6, Method: "auto",
			Reasoning: "our side was committed more recently"}, true
	}
	return Decision{ChosenSide: "theirs", Value: c.Theirs, Confidence: 0.6, Method: "auto",
		Reasoning: "their side was committed more recently"}, true
}
