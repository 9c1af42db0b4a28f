package confidence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaschain/veritaschain/internal/confidence"
	"github.com/veritaschain/veritaschain/internal/events"
	"github.com/veritaschain/veritaschain/internal/model"
)

type memEventStore struct {
	byLogical map[string][]model.Event
}

func newMemEventStore() *memEventStore { return &memEventStore{byLogical: map[string][]model.Event{}} }

func (m *memEventStore) put(ev model.Event) { m.byLogical[ev.LogicalID] = append(m.byLogical[ev.LogicalID], ev) }

func (m *memEventStore) Put(ctx context.Context, hash string, obj model.Event) error { return nil }
func (m *memEventStore) Get(ctx context.Context, hash string) (model.Event, error)   { return model.Event{}, nil }
func (m *memEventStore) List(ctx context.Context) ([]model.Event, error)             { return nil, nil }
func (m *memEventStore) RetrieveBatch(ctx context.Context, hashes []string) ([]model.Event, error) {
	return nil, nil
}
func (m *memEventStore) FindByLogicalID(ctx context.Context, id string) ([]model.Event, error) {
	return m.byLogical[id], nil
}
func (m *memEventStore) GetLatest(ctx context.Context, id string) (model.Event, error) {
	v := m.byLogical[id]
	return v[len(v)-1], nil
}

type noHistory struct{}

func (noHistory) History(ctx context.Context, logicalID string) ([]confidence.ChangeRecord, error) {
	return nil, nil
}

func ptr[T any](v T) *T { return &v }

func TestLeafConfidence_ReportedEvidence(t *testing.T) {
	store := newMemEventStore()
	r := events.NewResolver(store, 0)
	engine := confidence.NewEngine(r, noHistory{})

	ev := model.Event{
		LogicalID: "e1",
		Version:   "1.0",
		Kind:      model.KindFact,
		Statement: model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Modifiers: model.Modifiers{
			Certainty: &model.CertaintyModifier{Evidence: ptr(model.EvidenceReported)},
		},
		Metadata: model.EventMetadata{
			Source: &model.SourceInfo{Type: ptr(model.SourceNewsAgency)},
		},
	}

	c, err := engine.Confidence(context.Background(), ev)
	require.NoError(t, err)
	assert.InDelta(t, 0.72, c, 0.0005)
}

func TestCompositeALL(t *testing.T) {
	store := newMemEventStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, evidence model.Evidence) model.Event {
		return model.Event{
			LogicalID:    id,
			Version:      "1.0",
			Kind:         model.KindFact,
			DateOccurred: base,
			Statement:    model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
			Modifiers:    model.Modifiers{Certainty: &model.CertaintyModifier{Evidence: ptr(evidence)}},
			Metadata:     model.EventMetadata{Source: &model.SourceInfo{Type: ptr(model.SourceAcademic)}},
		}
	}
	c1 := mk("c1", model.EvidencePrimary)    // 1.0 * 1.0 = 1.0
	c2 := mk("c2", model.EvidenceConfirmed)  // 0.95 * 1.0 = 0.95
	c3 := mk("c3", model.EvidenceSecondary)  // 0.85 * 1.0 = 0.85
	store.put(c1)
	store.put(c2)
	store.put(c3)

	top := model.Event{
		LogicalID: "top",
		Version:   "1.0",
		Statement: model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Components: []model.ComponentRef{
			{LogicalID: "c1"}, {LogicalID: "c2"}, {LogicalID: "c3"},
		},
		Aggregation: model.AggregationALL,
	}

	r := events.NewResolver(store, 0)
	engine := confidence.NewEngine(r, noHistory{})
	b, err := engine.Breakdown(context.Background(), top, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, b.Confidence, 0.0005)
	assert.Equal(t, "min(1.000, 0.950, 0.850)", b.Formula)
}

func TestCompositeORDERED_RejectsNonIncreasing(t *testing.T) {
	store := newMemEventStore()
	mk := func(id string, when time.Time) model.Event {
		return model.Event{
			LogicalID:    id,
			Version:      "1.0",
			DateOccurred: when,
			Statement:    model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		}
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.put(mk("c1", base))
	store.put(mk("c2", base)) // not strictly increasing
	store.put(mk("c3", base.AddDate(0, 0, 1)))

	top := model.Event{
		LogicalID:   "top",
		Version:     "1.0",
		Statement:   model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Components:  []model.ComponentRef{{LogicalID: "c1"}, {LogicalID: "c2"}, {LogicalID: "c3"}},
		Aggregation: model.AggregationORDERED,
	}

	r := events.NewResolver(store, 0)
	engine := confidence.NewEngine(r, noHistory{})
	_, err := engine.Breakdown(context.Background(), top, "")
	require.Error(t, err)
}

func TestCompositeCUSTOM_UnknownAggregatorFailsClosed(t *testing.T) {
	store := newMemEventStore()
	store.put(model.Event{LogicalID: "c1", Version: "1.0", Statement: model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}}})

	top := model.Event{
		LogicalID:    "top",
		Version:      "1.0",
		Statement:    model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Components:   []model.ComponentRef{{LogicalID: "c1"}},
		Aggregation:  model.AggregationCUSTOM,
		CustomRuleID: ptr("does-not-exist"),
	}

	r := events.NewResolver(store, 0)
	engine := confidence.NewEngine(r, noHistory{})
	_, err := engine.Breakdown(context.Background(), top, "")
	require.Error(t, err)
}

func TestVolatility_FewerThanTwoEntriesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, confidence.Volatility(nil, 10))
	assert.Equal(t, 0.0, confidence.Volatility([]confidence.ChangeRecord{{}}, 10))
}

func TestEmptyComponentsYieldZero(t *testing.T) {
	store := newMemEventStore()
	r := events.NewResolver(store, 0)
	engine := confidence.NewEngine(r, noHistory{})

	top := model.Event{
		LogicalID:   "top",
		Version:     "1.0",
		Statement:   model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Components:  []model.ComponentRef{{LogicalID: "weak1", Weak: true}},
		Aggregation: model.AggregationALL,
	}
	b, err := engine.Breakdown(context.Background(), top, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Confidence)
}
