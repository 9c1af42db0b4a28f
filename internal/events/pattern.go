package events

import (
	"sync"
	"time"

	"github.com/veritaschain/veritaschain/internal/model"
)

// patternKey is an SVO pattern expressed as the three reference labels
// rather than resolved entity content — the observer notes shape, not
// meaning.
type patternKey struct {
	subjectRef, verbRef, objectRef string
}

// patternStats is the per-pattern running tally.
type patternStats struct {
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	SampleIDs []string  `json:"sampleIds"`
}

const maxSampleIDs = 5

// Observer is a passive, process-local, best-effort recorder of SVO
// patterns, relationship type usage, inferred type hints, and composite
// aggregation shapes. It never validates or rejects anything; it is purely
// additive.
type Observer struct {
	mu sync.Mutex

	svoPatterns   map[patternKey]*patternStats
	relationships map[model.RelationshipType]int
	typeHints     map[string]int
	aggregations  map[model.AggregationLogic]int
}

// NewObserver returns a zeroed, ready-to-use Observer.
func NewObserver() *Observer {
	return &Observer{
		svoPatterns:   make(map[patternKey]*patternStats),
		relationships: make(map[model.RelationshipType]int),
		typeHints:     make(map[string]int),
		aggregations:  make(map[model.AggregationLogic]int),
	}
}

// Record observes one event: its statement's SVO pattern (recursing into
// logical clauses), its relationship types, and, if composite, its
// aggregation shape.
func (o *Observer) Record(ev model.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.recordStatement(ev.ID, ev.Statement)
	for _, rel := range ev.Relationships {
		o.relationships[rel.Type]++
	}
	if ev.IsComposite() {
		o.aggregations[ev.EffectiveAggregation()]++
	}
}

func (o *Observer) recordStatement(sampleID string, s model.Statement) {
	switch {
	case s.IsSVO():
		key := patternKey{s.SVO.SubjectRef, s.SVO.VerbRef, s.SVO.ObjectRef}
		st, ok := o.svoPatterns[key]
		if !ok {
			st = &patternStats{FirstSeen: nowFunc()}
			o.svoPatterns[key] = st
		}
		st.Count++
		st.LastSeen = nowFunc()
		if len(st.SampleIDs) < maxSampleIDs && sampleID != "" {
			st.SampleIDs = append(st.SampleIDs, sampleID)
		}
	case s.IsClause():
		for _, operand := range s.Clause.Operands {
			o.recordStatement(sampleID, operand)
		}
	}
}

// RecordTypeHint observes an entity or action's inferred TypeHint.
func (o *Observer) RecordTypeHint(hint string) {
	if hint == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typeHints[hint]++
}

// Snapshot exports a point-in-time, immutable copy of every counter, safe
// to serialize or hand to a learning pipeline.
type Snapshot struct {
	SVOPatterns   map[string]patternStats           `json:"svoPatterns"`
	Relationships map[model.RelationshipType]int    `json:"relationships"`
	TypeHints     map[string]int                    `json:"typeHints"`
	Aggregations  map[model.AggregationLogic]int     `json:"aggregations"`
}

func (o *Observer) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	svo := make(map[string]patternStats, len(o.svoPatterns))
	for k, v := range o.svoPatterns {
		svo[k.subjectRef+"|"+k.verbRef+"|"+k.objectRef] = *v
	}
	rel := make(map[model.RelationshipType]int, len(o.relationships))
	for k, v := range o.relationships {
		rel[k] = v
	}
	hints := make(map[string]int, len(o.typeHints))
	for k, v := range o.typeHints {
		hints[k] = v
	}
	agg := make(map[model.AggregationLogic]int, len(o.aggregations))
	for k, v := range o.aggregations {
		agg[k] = v
	}
	return Snapshot{SVOPatterns: svo, Relationships: rel, TypeHints: hints, Aggregations: agg}
}

// nowFunc is a seam for tests that need deterministic timestamps.
var nowFunc = time.Now
