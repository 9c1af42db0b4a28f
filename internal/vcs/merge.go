package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// Merge three-way-merges theirs into ours:
// equal-heads short-circuit, merge-base lookup, fast-forward detection,
// per-logicalId three-way classification, conflict detection and
// strategy-pipeline resolution, and a merge commit with two parents when
// both sides advanced independently.
func (e *Engine) Merge(ctx context.Context, ours, theirs string, opts MergeOptions) (MergeResult, error) {
	ctx, span := tracer.Start(ctx, "vcs.merge", trace.WithAttributes(
		attribute.String("into", ours),
		attribute.String("from", theirs),
		attribute.String("strategy", string(opts.Strategy)),
	))
	defer span.End()

	oursHead, err := e.branches.Head(ctx, ours)
	if err != nil {
		return MergeResult{}, err
	}
	theirsHead, err := e.branches.Head(ctx, theirs)
	if err != nil {
		return MergeResult{}, err
	}

	if oursHead == theirsHead {
		return MergeResult{UpToDate: true, Message: "already up to date"}, verrors.AlreadyUpToDate
	}

	base, err := e.MergeBase(ctx, oursHead, theirsHead)
	if err != nil {
		return MergeResult{}, err
	}

	if base == theirsHead {
		return MergeResult{UpToDate: true, Message: "their branch is an ancestor of ours"}, verrors.AlreadyUpToDate
	}
	if base == oursHead {
		if opts.Strategy == StrategyManual {
			return MergeResult{}, verrors.FastForwardRequired
		}
		if err := e.branches.advance(ctx, ours, theirsHead); err != nil {
			return MergeResult{}, err
		}
		commit, err := e.store.Commits().Get(ctx, theirsHead)
		if err != nil {
			return MergeResult{}, fmt.Errorf("vcs: load fast-forwarded commit: %w", err)
		}
		return MergeResult{FastForward: true, Commit: &commit, Message: "fast-forward"}, nil
	}

	baseTree, err := e.Tree(ctx, base)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: load base tree: %w", err)
	}
	oursTree, err := e.Tree(ctx, oursHead)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: load our tree: %w", err)
	}
	theirsTree, err := e.Tree(ctx, theirsHead)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: load their tree: %w", err)
	}

	oursCommit, err := e.store.Commits().Get(ctx, oursHead)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: load our commit: %w", err)
	}
	theirsCommit, err := e.store.Commits().Get(ctx, theirsHead)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: load their commit: %w", err)
	}

	pipeline := e.pipeline
	if opts.ConfidenceThreshold > 0 {
		pipeline = pipeline.WithConfidenceMargin(opts.ConfidenceThreshold)
	}

	merged := baseTree.Clone()
	var conflicts []Conflict

	for _, kind := range model.AllObjectKinds {
		kindConflicts, err := e.mergeKind(ctx, kind, baseTree, oursTree, theirsTree, merged, oursCommit.Timestamp, theirsCommit.Timestamp, opts, pipeline)
		if err != nil {
			return MergeResult{}, err
		}
		conflicts = append(conflicts, kindConflicts...)
	}

	if len(conflicts) > 0 {
		return MergeResult{Conflicts: conflicts, Message: "merge has unresolved conflicts"}, &verrors.MergeConflict{Conflicts: anySlice(conflicts)}
	}

	mergeTreeHash, err := hash.Tree(merged)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: hash merge tree: %w", err)
	}
	if err := e.store.Trees().Put(ctx, mergeTreeHash, merged); err != nil {
		return MergeResult{}, fmt.Errorf("vcs: persist merge tree: %w", err)
	}

	commit := model.Commit{
		Timestamp: time.Now(),
		Parents:   []string{oursHead, theirsHead},
		Tree:      mergeTreeHash,
		Author:    opts.Author,
		Message:   opts.Message,
		Changes:   diffChanges(oursTree, merged),
		Branch:    ours,
	}
	commitHash, err := hash.Commit(commit)
	if err != nil {
		return MergeResult{}, fmt.Errorf("vcs: hash merge commit: %w", err)
	}
	commit.ID = commitHash
	if err := e.store.Commits().Put(ctx, commitHash, commit); err != nil {
		return MergeResult{}, fmt.Errorf("vcs: persist merge commit: %w", err)
	}
	if err := e.branches.advance(ctx, ours, commitHash); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Commit: &commit, Message: "merge commit created"}, nil
}

// mergeKind classifies every logicalId of one object kind across base/ours/
// theirs, writing non-conflicting results directly into merged and
// returning any conflicts that survive the strategy pipeline.
func (e *Engine) mergeKind(ctx context.Context, kind model.ObjectKind, baseTree, oursTree, theirsTree, merged model.Tree, oursTime, theirsTime time.Time, opts MergeOptions, pipeline *StrategyPipeline) ([]Conflict, error) {
	ids := unionStringKeys3(baseTree.Map(kind), oursTree.Map(kind), theirsTree.Map(kind))
	var conflicts []Conflict

	for id := range ids {
		baseHash := baseTree.Map(kind)[id]
		oursHash := oursTree.Map(kind)[id]
		theirsHash := theirsTree.Map(kind)[id]

		switch {
		case oursHash == theirsHash:
			setTreeEntry(merged, kind, id, oursHash)
		case oursHash == baseHash:
			setTreeEntry(merged, kind, id, theirsHash)
		case theirsHash == baseHash:
			setTreeEntry(merged, kind, id, oursHash)
		default:
			winner, unresolved, err := e.resolveKindConflict(ctx, kind, id, baseHash, oursHash, theirsHash, oursTime, theirsTime, opts, pipeline)
			if err != nil {
				return nil, err
			}
			if len(unresolved) > 0 {
				conflicts = append(conflicts, unresolved...)
				continue
			}
			setTreeEntry(merged, kind, id, winner)
		}
	}
	return conflicts, nil
}

func setTreeEntry(t model.Tree, kind model.ObjectKind, id, hash string) {
	if hash == "" {
		delete(t.Map(kind), id)
		return
	}
	t.Map(kind)[id] = hash
}

// resolveKindConflict fetches the three concrete objects for one logicalId,
// runs the kind-appropriate detector, and pushes every detected conflict
// through the strategy pipeline, falling back to opts.Strategy's
// ours/theirs bias for whatever the pipeline declines. When every conflict
// resolves, it builds the merged object field-by-field from each
// conflict's Decision.Value, persists it, and returns its new hash; when
// any conflict remains unresolved, it returns the full list for manual
// attention.
func (e *Engine) resolveKindConflict(ctx context.Context, kind model.ObjectKind, id, baseHash, oursHash, theirsHash string, oursTime, theirsTime time.Time, opts MergeOptions, pipeline *StrategyPipeline) (string, []Conflict, error) {
	switch kind {
	case model.KindEntities:
		return e.resolveEntityConflict(ctx, id, baseHash, oursHash, theirsHash, oursTime, theirsTime, opts, pipeline)
	case model.KindActions:
		return e.resolveActionConflict(ctx, id, baseHash, oursHash, theirsHash, oursTime, theirsTime, opts, pipeline)
	case model.KindEvents:
		return e.resolveEventConflict(ctx, id, baseHash, oursHash, theirsHash, oursTime, theirsTime, opts, pipeline)
	}
	return "", nil, fmt.Errorf("vcs: unsupported object kind %s", kind)
}

// resolveConflicts runs every detected conflict through pipeline, applying
// opts.Strategy's ours/theirs bias to whatever it declines, logging every
// resolved decision, and invoking apply for each one in order so the
// caller can fold it into a merged object. It returns the conflicts that
// remain unresolved (manual, or a strategy/bias combination that never
// fired).
func (e *Engine) resolveConflicts(id string, conflicts []Conflict, ctx context.Context, opts MergeOptions, pipeline *StrategyPipeline, apply func(Conflict)) ([]Conflict, error) {
	var unresolved []Conflict
	for i, c := range conflicts {
		d, ok := pipeline.Resolve(ctx, c)
		if !ok {
			d, ok = biasDecision(opts.Strategy, c)
		}
		if !ok {
			unresolved = append(unresolved, c)
			continue
		}
		c.Resolved = &d
		if err := e.resolveLog.Append(fmt.Sprintf("%s:%s:%d", id, c.Path, i), c); err != nil {
			return nil, err
		}
		apply(c)
	}
	return unresolved, nil
}

// biasDecision applies MergeOptions.Strategy as a default auto-resolution
// bias for a conflict the pipeline declined to resolve: "ours"/"theirs"
// force that side; "auto"/"recursive"/"manual" apply no bias (recursive
// merges every field through the same pipeline as auto — it has no
// distinct per-field policy — and manual adds no bias, so whatever the
// pipeline declines stays unresolved).
func biasDecision(strategy MergeStrategy, c Conflict) (Decision, bool) {
	switch strategy {
	case StrategyOurs:
		return Decision{ChosenSide: "ours", Value: c.Ours, Method: "auto",
			Reasoning: "strategy bias: ours", Strategy: "strategy-bias"}, true
	case StrategyTheirs:
		return Decision{ChosenSide: "theirs", Value: c.Theirs, Method: "auto",
			Reasoning: "strategy bias: theirs", Strategy: "strategy-bias"}, true
	default:
		return Decision{}, false
	}
}

func (e *Engine) resolveEntityConflict(ctx context.Context, id, baseHash, oursHash, theirsHash string, oursTime, theirsTime time.Time, opts MergeOptions, pipeline *StrategyPipeline) (string, []Conflict, error) {
	ours, err := e.store.Entities().Get(ctx, oursHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load our entity %s: %w", id, err)
	}
	theirs, err := e.store.Entities().Get(ctx, theirsHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load their entity %s: %w", id, err)
	}
	var base *model.Entity
	if baseHash != "" {
		b, err := e.store.Entities().Get(ctx, baseHash)
		if err != nil {
			return "", nil, fmt.Errorf("vcs: load base entity %s: %w", id, err)
		}
		base = &b
	}
	conflicts := DetectEntityConflicts(id, base, &ours, &theirs)
	if len(conflicts) == 0 {
		return oursHash, nil, nil
	}
	stampTimestamps(conflicts, oursTime, theirsTime)

	merged := ours.Clone()
	unresolved, err := e.resolveConflicts(id, conflicts, ctx, opts, pipeline, func(c Conflict) {
		applyEntityConflict(&merged, ours, theirs, c)
	})
	if err != nil {
		return "", nil, err
	}
	if len(unresolved) > 0 {
		return "", unresolved, nil
	}
	newHash, err := hash.Entity(merged)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: hash merged entity %s: %w", id, err)
	}
	if err := e.store.Entities().Put(ctx, newHash, merged); err != nil {
		return "", nil, fmt.Errorf("vcs: persist merged entity %s: %w", id, err)
	}
	return newHash, nil, nil
}

func (e *Engine) resolveActionConflict(ctx context.Context, id, baseHash, oursHash, theirsHash string, oursTime, theirsTime time.Time, opts MergeOptions, pipeline *StrategyPipeline) (string, []Conflict, error) {
	ours, err := e.store.Actions().Get(ctx, oursHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load our action %s: %w", id, err)
	}
	theirs, err := e.store.Actions().Get(ctx, theirsHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load their action %s: %w", id, err)
	}
	var base *model.Action
	if baseHash != "" {
		b, err := e.store.Actions().Get(ctx, baseHash)
		if err != nil {
			return "", nil, fmt.Errorf("vcs: load base action %s: %w", id, err)
		}
		base = &b
	}
	conflicts := DetectActionConflicts(id, base, &ours, &theirs)
	if len(conflicts) == 0 {
		return oursHash, nil, nil
	}
	stampTimestamps(conflicts, oursTime, theirsTime)

	merged := ours.Clone()
	unresolved, err := e.resolveConflicts(id, conflicts, ctx, opts, pipeline, func(c Conflict) {
		applyActionConflict(&merged, ours, theirs, c)
	})
	if err != nil {
		return "", nil, err
	}
	if len(unresolved) > 0 {
		return "", unresolved, nil
	}
	newHash, err := hash.Action(merged)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: hash merged action %s: %w", id, err)
	}
	if err := e.store.Actions().Put(ctx, newHash, merged); err != nil {
		return "", nil, fmt.Errorf("vcs: persist merged action %s: %w", id, err)
	}
	return newHash, nil, nil
}

func (e *Engine) resolveEventConflict(ctx context.Context, id, baseHash, oursHash, theirsHash string, oursTime, theirsTime time.Time, opts MergeOptions, pipeline *StrategyPipeline) (string, []Conflict, error) {
	ours, err := e.store.Events().Get(ctx, oursHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load our event %s: %w", id, err)
	}
	theirs, err := e.store.Events().Get(ctx, theirsHash)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: load their event %s: %w", id, err)
	}
	var base *model.Event
	if baseHash != "" {
		b, err := e.store.Events().Get(ctx, baseHash)
		if err != nil {
			return "", nil, fmt.Errorf("vcs: load base event %s: %w", id, err)
		}
		base = &b
	}
	conflicts := DetectEventConflicts(id, base, &ours, &theirs)
	if len(conflicts) == 0 {
		return oursHash, nil, nil
	}
	stampTimestamps(conflicts, oursTime, theirsTime)
	if ours.Metadata.Source != nil {
		src := *ours.Metadata.Source
		for i := range conflicts {
			conflicts[i].OursSource = &src
		}
	}
	if theirs.Metadata.Source != nil {
		src := *theirs.Metadata.Source
		for i := range conflicts {
			conflicts[i].TheirsSource = &src
		}
	}

	merged := ours.Clone()
	unresolved, err := e.resolveConflicts(id, conflicts, ctx, opts, pipeline, func(c Conflict) {
		applyEventConflict(&merged, ours, theirs, c)
	})
	if err != nil {
		return "", nil, err
	}
	if len(unresolved) > 0 {
		return "", unresolved, nil
	}
	newHash, err := hash.Event(merged)
	if err != nil {
		return "", nil, fmt.Errorf("vcs: hash merged event %s: %w", id, err)
	}
	if err := e.store.Events().Put(ctx, newHash, merged); err != nil {
		return "", nil, fmt.Errorf("vcs: persist merged event %s: %w", id, err)
	}
	return newHash, nil, nil
}

func stampTimestamps(conflicts []Conflict, oursTime, theirsTime time.Time) {
	for i := range conflicts {
		conflicts[i].OursTimestamp = &oursTime
		conflicts[i].TheirsTimestamp = &theirsTime
	}
}

// applyEntityConflict folds one resolved Conflict into merged, which
// starts life as a clone of ours.
func applyEntityConflict(merged *model.Entity, ours, theirs model.Entity, c Conflict) {
	side := c.Resolved.ChosenSide
	switch {
	case c.Path == "label":
		if side == "theirs" {
			merged.Label = theirs.Label
		} else {
			merged.Label = ours.Label
		}
	case c.Path == "description":
		if side == "theirs" {
			merged.Description = theirs.Description
		} else {
			merged.Description = ours.Description
		}
	case c.Path == "typeHint":
		if side == "theirs" {
			merged.TypeHint = theirs.TypeHint
		} else {
			merged.TypeHint = ours.TypeHint
		}
	case strings.HasPrefix(c.Path, "properties."):
		key := strings.TrimPrefix(c.Path, "properties.")
		if merged.Properties == nil {
			merged.Properties = map[string]any{}
		}
		if side == "theirs" {
			if v, ok := theirs.Properties[key]; ok {
				merged.Properties[key] = v
			} else {
				delete(merged.Properties, key)
			}
		} else {
			if v, ok := ours.Properties[key]; ok {
				merged.Properties[key] = v
			} else {
				delete(merged.Properties, key)
			}
		}
	}
}

// applyActionConflict folds one resolved Conflict into merged, which
// starts life as a clone of ours.
func applyActionConflict(merged *model.Action, ours, theirs model.Action, c Conflict) {
	if c.Path != "modality/valency" {
		return
	}
	if c.Resolved.ChosenSide == "theirs" {
		merged.Modality = theirs.Modality
		merged.Valency = theirs.Valency
		return
	}
	merged.Modality = ours.Modality
	merged.Valency = ours.Valency
}

// applyEventConflict folds one resolved Conflict into merged, which starts
// life as a clone of ours. Custom decisions (set-union / bound-union / max
// strategies) carry their computed field value directly in Decision.Value;
// ours/theirs decisions read the chosen side's own field instead, since not
// every conflict path carries a ready-to-assign Value (e.g. the combined
// "modality/valency" conflict, or the component-presence conflicts below).
func applyEventConflict(merged *model.Event, ours, theirs model.Event, c Conflict) {
	side := c.Resolved.ChosenSide
	switch {
	case c.Path == "components" && c.Type == ConflictStructural:
		// Leaf/composite shape disagreement: only legal hierarchy or a
		// whole-side bias can resolve this, so take the chosen side whole.
		if side == "theirs" {
			*merged = theirs.Clone()
		} else {
			*merged = ours.Clone()
		}
	case c.Path == "statement":
		if side == "theirs" {
			merged.Statement = theirs.Statement
		} else {
			merged.Statement = ours.Statement
		}
	case c.Path == "aggregation":
		if side == "theirs" {
			merged.Aggregation = theirs.Aggregation
		} else {
			merged.Aggregation = ours.Aggregation
		}
	case c.Path == "title":
		if side == "theirs" {
			merged.Title = theirs.Title
		} else {
			merged.Title = ours.Title
		}
	case c.Path == "relationships":
		if side == "custom" {
			merged.Relationships, _ = c.Resolved.Value.([]model.Relationship)
		} else if side == "theirs" {
			merged.Relationships = theirs.Relationships
		} else {
			merged.Relationships = ours.Relationships
		}
	case c.Path == "timelineSpan":
		if side == "custom" {
			merged.TimelineSpan, _ = c.Resolved.Value.(*model.TimelineSpan)
		} else if side == "theirs" {
			merged.TimelineSpan = theirs.TimelineSpan
		} else {
			merged.TimelineSpan = ours.TimelineSpan
		}
	case c.Path == "importance":
		if side == "custom" {
			merged.Importance, _ = c.Resolved.Value.(*int)
		} else if side == "theirs" {
			merged.Importance = theirs.Importance
		} else {
			merged.Importance = ours.Importance
		}
	case c.Path == "customRuleId":
		if side == "theirs" {
			merged.CustomRuleID = theirs.CustomRuleID
		} else {
			merged.CustomRuleID = ours.CustomRuleID
		}
	case strings.HasPrefix(c.Path, "components["):
		id := strings.TrimSuffix(strings.TrimPrefix(c.Path, "components["), "]")
		applyComponentConflict(merged, ours, theirs, id, c)
	}
}

// applyComponentConflict resolves one per-component conflict (present on
// only one side, or a pinned-version mismatch) into merged.Components,
// which starts life as a copy of ours.Components.
func applyComponentConflict(merged *model.Event, ours, theirs model.Event, id string, c Conflict) {
	oRef, hasO := refsByID(ours.Components)[id]
	tRef, hasT := refsByID(theirs.Components)[id]

	// A resolved version-pin conflict (component-version strategy, or a
	// bias applied to one) carries the winning ComponentRef directly.
	if ref, ok := c.Resolved.Value.(model.ComponentRef); ok {
		replaceComponent(merged, id, ref)
		return
	}

	side := c.Resolved.ChosenSide
	switch {
	case side == "ours":
		if hasO {
			replaceComponent(merged, id, oRef)
		} else {
			removeComponent(merged, id)
		}
	case side == "theirs":
		if hasT {
			replaceComponent(merged, id, tRef)
		} else {
			removeComponent(merged, id)
		}
	}
}

func replaceComponent(ev *model.Event, id string, ref model.ComponentRef) {
	for i, r := range ev.Components {
		if r.LogicalID == id {
			ev.Components[i] = ref
			return
		}
	}
	ev.Components = append(ev.Components, ref)
}

func removeComponent(ev *model.Event, id string) {
	out := ev.Components[:0]
	for _, r := range ev.Components {
		if r.LogicalID != id {
			out = append(out, r)
		}
	}
	ev.Components = out
}

func unionStringKeys3(a, b, c map[string]string) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b)+len(c))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	for k := range c {
		out[k] = struct{}{}
	}
	return out
}

// diffChanges reports every logicalId whose hash in after differs from (or
// is absent from) before, grouped by kind, for the merge commit's audit trail.
func diffChanges(before, after model.Tree) model.ChangeSet {
	var cs model.ChangeSet
	for id, h := range after.Entities {
		if before.Entities[id] != h {
			cs.Entities = append(cs.Entities, h)
		}
	}
	for id, h := range after.Actions {
		if before.Actions[id] != h {
			cs.Actions = append(cs.Actions, h)
		}
	}
	for id, h := range after.Events {
		if before.Events[id] != h {
			cs.Events = append(cs.Events, h)
		}
	}
	return cs
}

func anySlice(conflicts []Conflict) []any {
	out := make([]any, len(conflicts))
	for i, c := range conflicts {
		out[i] = c
	}
	return out
}
