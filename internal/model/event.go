package model

import "time"

// EventKind distinguishes observed facts from deontic norms. It changes
// which table the confidence engine's S and N factors consult.
type EventKind string

const (
	KindFact EventKind = "fact"
	KindNorm EventKind = "norm"
)

// AggregationLogic is the rule a composite event uses to combine its
// resolved, non-weak component confidences.
type AggregationLogic string

const (
	AggregationALL     AggregationLogic = "ALL"
	AggregationANY     AggregationLogic = "ANY"
	AggregationORDERED AggregationLogic = "ORDERED"
	AggregationCUSTOM  AggregationLogic = "CUSTOM"
)

// ComponentRef addresses another event by logical id, optionally pinned to
// a specific version. An absent Version binds to the latest visible
// version at resolution time. Weak components are excluded from
// confidence aggregation but still count toward depth and cycle detection.
type ComponentRef struct {
	LogicalID string  `json:"logicalId"`
	Version   *string `json:"version,omitempty"`
	Weak      bool    `json:"weak,omitempty"`
}

// TimelineSpan bounds the period an event's statement is asserted to hold.
type TimelineSpan struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// SourceType is the fact-confidence S-factor lookup key.
type SourceType string

const (
	SourceAcademic    SourceType = "Academic"
	SourceGovernment  SourceType = "Government"
	SourceNewsAgency  SourceType = "NewsAgency"
	SourceCorporate   SourceType = "Corporate"
	SourceSocial      SourceType = "Social"
)

// LegalType is the norm-confidence legal-hierarchy-weight lookup key.
type LegalType string

const (
	LegalConstitution LegalType = "constitution"
	LegalStatute      LegalType = "statute"
	LegalRegulation   LegalType = "regulation"
	LegalCaseLaw      LegalType = "case-law"
	LegalContract     LegalType = "contract"
	LegalPolicy       LegalType = "policy"
)

// SourceInfo names the provenance of an event: who produced it and under
// what authority, consulted by the confidence engine's S factor.
type SourceInfo struct {
	Type      *SourceType `json:"type,omitempty"`
	LegalType *LegalType  `json:"legalType,omitempty"`
	Name      *string     `json:"name,omitempty"`
}

// ConfidenceBreakdown is the audit-facing explanation the confidence engine
// returns alongside the numeric result. It is itself a
// derived field and never part of an event's content hash.
type ConfidenceBreakdown struct {
	Confidence      float64           `json:"confidence"`
	Formula         string            `json:"formula"`
	Factors         map[string]float64 `json:"factors,omitempty"`
	Justifications  map[string]string  `json:"justifications,omitempty"`
	ComponentHashes []string          `json:"componentHashes,omitempty"`
}

// EventMetadata bundles provenance and derived-confidence fields.
// DerivedConfidence holds a confidence-engine output and is excluded from
// the content hash (hash.Event strips it); ValidateEvent does not check it.
type EventMetadata struct {
	Source            *SourceInfo           `json:"source,omitempty"`
	Author            *string               `json:"author,omitempty"`
	DerivedConfidence *ConfidenceBreakdown  `json:"confidence,omitempty"`
}

// Event is the atomic semantic unit: a statement plus metadata, modifiers,
// relationships, and optional components. There is no separate leaf/composite
// type — IsComposite reports which shape a given event has.
type Event struct {
	ID              string            `json:"@id,omitempty"`
	LogicalID       string            `json:"logicalId"`
	Version         string            `json:"version"`
	PreviousVersion *string           `json:"previousVersion,omitempty"`
	CommitHash      string            `json:"commitHash,omitempty"`
	Title           string            `json:"title"`
	Description     *string           `json:"description,omitempty"`
	DateOccurred    time.Time         `json:"dateOccurred"`
	DateRecorded    time.Time         `json:"dateRecorded"`
	DateModified    *time.Time        `json:"dateModified,omitempty"`
	Kind            EventKind         `json:"kind"`
	Statement       Statement         `json:"statement"`
	Modifiers       Modifiers         `json:"modifiers"`
	Relationships   []Relationship    `json:"relationships,omitempty"`
	Components      []ComponentRef    `json:"components,omitempty"`
	Aggregation     AggregationLogic  `json:"aggregation,omitempty"`
	CustomRuleID    *string           `json:"customRuleId,omitempty"`
	TimelineSpan    *TimelineSpan     `json:"timelineSpan,omitempty"`
	Importance      *int              `json:"importance,omitempty"`
	Summary         *string           `json:"summary,omitempty"`
	Metadata        EventMetadata     `json:"metadata,omitempty"`

	// CachedDepth is the algebra's memoized depth for this exact (logicalId,
	// version). Derived; excluded from the content hash.
	CachedDepth *int `json:"cachedDepth,omitempty"`
}

// IsComposite reports whether the event is composite (has components) or leaf.
func (e *Event) IsComposite() bool { return len(e.Components) > 0 }

// EffectiveKind returns Kind, defaulting to fact when unset.
func (e *Event) EffectiveKind() EventKind {
	if e.Kind == "" {
		return KindFact
	}
	return e.Kind
}

// EffectiveAggregation returns Aggregation, defaulting to ALL when unset.
func (e *Event) EffectiveAggregation() AggregationLogic {
	if e.Aggregation == "" {
		return AggregationALL
	}
	return e.Aggregation
}

// Clone returns a deep-enough copy safe to mutate independently.
func (e Event) Clone() Event {
	c := e
	if e.PreviousVersion != nil {
		v := *e.PreviousVersion
		c.PreviousVersion = &v
	}
	if e.Description != nil {
		v := *e.Description
		c.Description = &v
	}
	if e.DateModified != nil {
		v := *e.DateModified
		c.DateModified = &v
	}
	if e.Relationships != nil {
		c.Relationships = append([]Relationship(nil), e.Relationships...)
	}
	if e.Components != nil {
		c.Components = append([]ComponentRef(nil), e.Components...)
	}
	if e.CustomRuleID != nil {
		v := *e.CustomRuleID
		c.CustomRuleID = &v
	}
	if e.TimelineSpan != nil {
		v := *e.TimelineSpan
		c.TimelineSpan = &v
	}
	if e.Importance != nil {
		v := *e.Importance
		c.Importance = &v
	}
	if e.Summary != nil {
		v := *e.Summary
		c.Summary = &v
	}
	if e.CachedDepth != nil {
		v := *e.CachedDepth
		c.CachedDepth = &v
	}
	return c
}
