package vcs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veritaschain/veritaschain/internal/model"
)

// DetectEntityConflicts implements the Entity conflict policy. base may
// be nil when the logicalId has no common ancestor version.
func DetectEntityConflicts(logicalID string, base, ours, theirs *model.Entity) []Conflict {
	var out []Conflict
	if ours.Label != theirs.Label {
		out = append(out, Conflict{
			Type: ConflictContent, LogicalID: logicalID, Kind: model.KindEntities,
			Path: "label", Base: derefEntity(base, func(e model.Entity) any { return e.Label }),
			Ours: ours.Label, Theirs: theirs.Label,
			Severity: SeverityMedium, AutoResolvable: false, Suggested: ResolutionManual,
			Description: fmt.Sprintf("label differs: %q vs %q", ours.Label, theirs.Label),
		})
	}
	if !strPtrEqual(ours.Description, theirs.Description) {
		out = append(out, Conflict{
			Type: ConflictContent, LogicalID: logicalID, Kind: model.KindEntities,
			Path: "description", Ours: ours.Description, Theirs: theirs.Description,
			Severity: SeverityLow, AutoResolvable: true, Suggested: ResolutionMerge,
			Description: "description differs but is auto-mergeable",
		})
	}
	if !strPtrEqual(ours.TypeHint, theirs.TypeHint) {
		out = append(out, Conflict{
			Type: ConflictStructural, LogicalID: logicalID, Kind: model.KindEntities,
			Path: "typeHint", Ours: ours.TypeHint, Theirs: theirs.TypeHint,
			Severity: SeverityCritical, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "typeHint (structural data type) mismatch",
		})
	}
	for key := range unionKeys(ours.Properties, theirs.Properties) {
		ov, ok1 := ours.Properties[key]
		tv, ok2 := theirs.Properties[key]
		if ok1 != ok2 || !valuesEqual(ov, tv) {
			out = append(out, Conflict{
				Type: ConflictContent, LogicalID: logicalID, Kind: model.KindEntities,
				Path: "properties." + key, Ours: ov, Theirs: tv,
				Severity: SeverityMedium, AutoResolvable: false, Suggested: ResolutionManual,
				Description: fmt.Sprintf("property %q differs", key),
			})
		}
	}
	return out
}

// DetectActionConflicts implements the Action conflict policy.
func DetectActionConflicts(logicalID string, base, ours, theirs *model.Action) []Conflict {
	var out []Conflict
	if !modalityPtrEqual(ours.Modality, theirs.Modality) || !strPtrEqual(ours.Valency, theirs.Valency) {
		out = append(out, Conflict{
			Type: ConflictStructural, LogicalID: logicalID, Kind: model.KindActions,
			Path: "modality/valency", Ours: ours.Modality, Theirs: theirs.Modality,
			Severity: SeverityHigh, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "deontic modality or valency mismatch",
		})
	}
	return out
}

// DetectEventConflicts implements the Event conflict policy, including
// per-component comparison of the two sides' component references.
func DetectEventConflicts(logicalID string, base, ours, theirs *model.Event) []Conflict {
	var out []Conflict

	if ours.IsComposite() != theirs.IsComposite() {
		out = append(out, Conflict{
			Type: ConflictStructural, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "components", Severity: SeverityCritical, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "leaf/composite shape changed on both sides",
		})
		return out
	}

	if !ours.IsComposite() && !statementEqual(ours.Statement, theirs.Statement) {
		out = append(out, Conflict{
			Type: ConflictStatement, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "statement", Severity: SeverityCritical, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "leaf statement differs",
		})
	}

	if ours.IsComposite() && ours.EffectiveAggregation() != theirs.EffectiveAggregation() {
		out = append(out, Conflict{
			Type: ConflictAggregation, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "aggregation", Ours: ours.EffectiveAggregation(), Theirs: theirs.EffectiveAggregation(),
			Severity: SeverityCritical, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "composite aggregation logic differs",
		})
	}

	if ours.Title != theirs.Title {
		out = append(out, Conflict{
			Type: ConflictContent, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "title", Ours: ours.Title, Theirs: theirs.Title,
			Severity: SeverityMedium, AutoResolvable: false, Suggested: ResolutionManual,
			Description: fmt.Sprintf("title differs: %q vs %q", ours.Title, theirs.Title),
		})
	}

	if !relationshipsEqual(ours.Relationships, theirs.Relationships) {
		out = append(out, Conflict{
			Type: ConflictRelationship, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "relationships", Ours: ours.Relationships, Theirs: theirs.Relationships,
			Severity: SeverityMedium, AutoResolvable: true, Suggested: ResolutionMerge,
			Description: "relationships differ, auto-mergeable by set union",
		})
	}

	if !timelineSpanEqual(ours.TimelineSpan, theirs.TimelineSpan) {
		out = append(out, Conflict{
			Type: ConflictMetadata, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "timelineSpan", Ours: ours.TimelineSpan, Theirs: theirs.TimelineSpan,
			Severity: SeverityMedium, AutoResolvable: true, Suggested: ResolutionMerge,
			Description: "timelineSpan differs, auto-mergeable by bound union",
		})
	}

	if !intPtrEqual(ours.Importance, theirs.Importance) {
		out = append(out, Conflict{
			Type: ConflictContent, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "importance", Ours: ours.Importance, Theirs: theirs.Importance,
			Severity: SeverityLow, AutoResolvable: true, Suggested: ResolutionMerge,
			Description: "importance differs, auto-resolves to the higher value",
		})
	}

	if !strPtrEqual(ours.CustomRuleID, theirs.CustomRuleID) {
		out = append(out, Conflict{
			Type: ConflictAggregation, LogicalID: logicalID, Kind: model.KindEvents,
			Path: "customRuleId", Ours: ours.CustomRuleID, Theirs: theirs.CustomRuleID,
			Severity: SeverityHigh, AutoResolvable: false, Suggested: ResolutionManual,
			Description: "customRuleId differs",
		})
	}

	out = append(out, detectComponentConflicts(logicalID, ours.Components, theirs.Components)...)
	return out
}

func detectComponentConflicts(logicalID string, ours, theirs []model.ComponentRef) []Conflict {
	var out []Conflict
	oursByID := refsByID(ours)
	theirsByID := refsByID(theirs)

	for id := range unionStringKeys(oursByID, theirsByID) {
		o, hasO := oursByID[id]
		t, hasT := theirsByID[id]
		switch {
		case hasO && !hasT, hasT && !hasO:
			out = append(out, Conflict{
				Type: ConflictComponent, LogicalID: logicalID, Kind: model.KindEvents,
				Path: "components[" + id + "]", Severity: SeverityMedium, AutoResolvable: false,
				Suggested: ResolutionManual, Description: "component present on only one side",
			})
		case o.Version == nil && t.Version != nil, o.Version != nil && t.Version == nil:
			// one side unpinned (latest) vs the other pinned: prefer latest.
			out = append(out, Conflict{
				Type: ConflictComponent, LogicalID: logicalID, Kind: model.KindEvents,
				Path: "components[" + id + "]", Ours: o, Theirs: t,
				Severity: SeverityLow, AutoResolvable: true, Suggested: ResolutionMerge,
				Description: "one side pins a version while the other tracks latest; latest wins",
			})
		case o.Version != nil && t.Version != nil && *o.Version != *t.Version:
			cmp := compareSemver(*o.Version, *t.Version)
			out = append(out, Conflict{
				Type: ConflictComponent, LogicalID: logicalID, Kind: model.KindEvents,
				Path: "components[" + id + "]", Ours: o, Theirs: t,
				Severity: SeverityMedium, AutoResolvable: cmp != 0,
				Suggested: resolutionFromCompare(cmp),
				Description: "both sides pin different versions of the same component",
			})
		}
	}
	return out
}

func resolutionFromCompare(cmp int) Resolution {
	switch {
	case cmp > 0:
		return ResolutionOurs
	case cmp < 0:
		return ResolutionTheirs
	default:
		return ResolutionManual
	}
}

func refsByID(refs []model.ComponentRef) map[string]model.ComponentRef {
	out := make(map[string]model.ComponentRef, len(refs))
	for _, r := range refs {
		out[r.LogicalID] = r
	}
	return out
}

// compareSemver compares dot-separated numeric version strings, returning
// -1/0/1. Non-numeric segments compare as equal-weight zero, keeping this
// tolerant of the free-form version strings the model allows.
func compareSemver(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func derefEntity(e *model.Entity, get func(model.Entity) any) any {
	if e == nil {
		return nil
	}
	return get(*e)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func modalityPtrEqual(a, b *model.DeonticModality) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func statementEqual(a, b model.Statement) bool {
	switch {
	case a.IsSVO() && b.IsSVO():
		return *a.SVO == *b.SVO
	case a.IsClause() && b.IsClause():
		if a.Clause.Operator != b.Clause.Operator || len(a.Clause.Operands) != len(b.Clause.Operands) {
			return false
		}
		for i := range a.Clause.Operands {
			if !statementEqual(a.Clause.Operands[i], b.Clause.Operands[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func relationshipsEqual(a, b []model.Relationship) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ra := range a {
		matched := false
		for i, rb := range b {
			if !used[i] && relationshipEqual(ra, rb) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func relationshipEqual(a, b model.Relationship) bool {
	if a.Type != b.Type || a.TargetID != b.TargetID {
		return false
	}
	return floatPtrEqual(a.Strength, b.Strength) && floatPtrEqual(a.Confidence, b.Confidence)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timelineSpanEqual(a, b *model.TimelineSpan) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.Start.Equal(b.Start) {
		return false
	}
	if (a.End == nil) != (b.End == nil) {
		return false
	}
	if a.End != nil && !a.End.Equal(*b.End) {
		return false
	}
	return true
}

func unionKeys(a, b map[string]any) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func unionStringKeys[V any](a, b map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func valuesEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
