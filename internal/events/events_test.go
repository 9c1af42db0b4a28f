package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaschain/veritaschain/internal/events"
	"github.com/veritaschain/veritaschain/internal/model"
)

// memStore is a minimal in-memory store.VersionedStore[model.Event] for
// exercising the algebra without the filesystem adapter.
type memStore struct {
	byLogical map[string][]model.Event
}

func newMemStore() *memStore { return &memStore{byLogical: map[string][]model.Event{}} }

func (m *memStore) put(ev model.Event) {
	m.byLogical[ev.LogicalID] = append(m.byLogical[ev.LogicalID], ev)
}

func (m *memStore) Put(ctx context.Context, hash string, obj model.Event) error { return nil }
func (m *memStore) Get(ctx context.Context, hash string) (model.Event, error)   { return model.Event{}, nil }
func (m *memStore) List(ctx context.Context) ([]model.Event, error)             { return nil, nil }
func (m *memStore) RetrieveBatch(ctx context.Context, hashes []string) ([]model.Event, error) {
	return nil, nil
}

func (m *memStore) FindByLogicalID(ctx context.Context, logicalID string) ([]model.Event, error) {
	v, ok := m.byLogical[logicalID]
	if !ok {
		return nil, notFoundErr{}
	}
	return v, nil
}

func (m *memStore) GetLatest(ctx context.Context, logicalID string) (model.Event, error) {
	v, err := m.FindByLogicalID(ctx, logicalID)
	if err != nil {
		return model.Event{}, err
	}
	return v[len(v)-1], nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

func leafEvent(logicalID string) model.Event {
	return model.Event{
		LogicalID: logicalID,
		Version:   "1.0",
		Title:     logicalID,
		Statement: model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
	}
}

func compositeEvent(logicalID string, refs ...string) model.Event {
	comps := make([]model.ComponentRef, len(refs))
	for i, r := range refs {
		comps[i] = model.ComponentRef{LogicalID: r}
	}
	return model.Event{
		LogicalID:  logicalID,
		Version:    "1.0",
		Title:      logicalID,
		Statement:  model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}},
		Components: comps,
	}
}

func TestResolve_Latest(t *testing.T) {
	store := newMemStore()
	store.put(leafEvent("e1"))
	r := events.NewResolver(store, 0)

	ev, err := r.Resolve(context.Background(), model.ComponentRef{LogicalID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, "e1", ev.LogicalID)
}

func TestResolve_MissingComponent(t *testing.T) {
	store := newMemStore()
	r := events.NewResolver(store, 0)
	_, err := r.Resolve(context.Background(), model.ComponentRef{LogicalID: "ghost"})
	require.Error(t, err)
}

func TestDepth_LeafIsZero(t *testing.T) {
	store := newMemStore()
	r := events.NewResolver(store, 0)
	d, err := r.Depth(context.Background(), leafEvent("e1"))
	require.NoError(t, err)
	assert.Equal(t, 0, d)
}

func TestDepth_CompositeChain(t *testing.T) {
	store := newMemStore()
	store.put(leafEvent("c"))
	store.put(compositeEvent("b", "c"))
	store.put(compositeEvent("a", "b"))
	r := events.NewResolver(store, 0)

	d, err := r.Depth(context.Background(), compositeEvent("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, d)
}

func TestDepth_CircularComposite(t *testing.T) {
	store := newMemStore()
	store.put(compositeEvent("a", "b"))
	store.put(compositeEvent("b", "c"))
	store.put(compositeEvent("c", "a"))
	r := events.NewResolver(store, 0)

	_, err := r.Depth(context.Background(), compositeEvent("a", "b"))
	require.Error(t, err)
}

func TestDepth_Exceeded(t *testing.T) {
	store := newMemStore()
	prev := "leaf"
	store.put(leafEvent(prev))
	for i := 0; i < 12; i++ {
		next := "c" + string(rune('a'+i))
		store.put(compositeEvent(next, prev))
		prev = next
	}
	r := events.NewResolver(store, 5)
	_, err := r.Depth(context.Background(), compositeEvent("top", prev))
	require.Error(t, err)
}

type fixedConfidence struct{ v float64 }

func (f fixedConfidence) Confidence(ctx context.Context, ev model.Event) (float64, error) {
	return f.v, nil
}

func TestFormula_Leaf(t *testing.T) {
	store := newMemStore()
	r := events.NewResolver(store, 0)
	s, err := r.Formula(context.Background(), leafEvent("e1"), fixedConfidence{0.9})
	require.NoError(t, err)
	assert.Equal(t, "0.900", s)
}

func TestFormula_CompositeALL(t *testing.T) {
	store := newMemStore()
	store.put(leafEvent("c1"))
	store.put(leafEvent("c2"))
	r := events.NewResolver(store, 0)

	s, err := r.Formula(context.Background(), compositeEvent("top", "c1", "c2"), fixedConfidence{0.85})
	require.NoError(t, err)
	assert.Equal(t, "min(0.850, 0.850)", s)
}

func TestFormula_WeakComponentsOmitted(t *testing.T) {
	store := newMemStore()
	store.put(leafEvent("c1"))
	store.put(leafEvent("c2"))
	r := events.NewResolver(store, 0)

	ev := compositeEvent("top", "c1")
	ev.Components = append(ev.Components, model.ComponentRef{LogicalID: "c2", Weak: true})
	s, err := r.Formula(context.Background(), ev, fixedConfidence{0.5})
	require.NoError(t, err)
	assert.Equal(t, "min(0.500)", s)
}

func TestObserver_RecordAndSnapshot(t *testing.T) {
	o := events.NewObserver()
	o.Record(leafEvent("e1"))
	o.Record(leafEvent("e1"))
	snap := o.Snapshot()
	assert.Len(t, snap.SVOPatterns, 1)
	for _, stats := range snap.SVOPatterns {
		assert.Equal(t, 2, stats.Count)
	}
}

func TestMigrateMacroEvent_Idempotent(t *testing.T) {
	payload := map[string]any{
		"@type":            "MacroEvent",
		"aggregationLogic": "ORDERED_ALL",
		"components":       []any{"sha256:abc"},
	}
	once := events.MigrateMacroEvent(payload)
	assert.Equal(t, "Event", once["@type"])
	assert.Equal(t, "ORDERED", once["aggregation"])
	comps := once["components"].([]any)
	require.Len(t, comps, 1)
	assert.Equal(t, map[string]any{"logicalId": "sha256:abc", "version": "1.0"}, comps[0])

	twice := events.MigrateMacroEvent(once)
	assert.Equal(t, once, twice)
}
