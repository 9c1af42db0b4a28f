package vcs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/vcs"
)

// memStore is a minimal in-process store.ObjectStore good enough to drive
// the vcs engine end to end without a filesystem.
type memStore struct {
	entities map[string]model.Entity
	actions  map[string]model.Action
	events   map[string]model.Event
	commits  map[string]model.Commit
	trees    map[string]model.Tree
	branches map[string]model.Branch
	head     string
}

func newMemStore() *memStore {
	return &memStore{
		entities: map[string]model.Entity{},
		actions:  map[string]model.Action{},
		events:   map[string]model.Event{},
		commits:  map[string]model.Commit{},
		trees:    map[string]model.Tree{},
		branches: map[string]model.Branch{},
	}
}

type versionedKind[T any] struct {
	m map[string]T
}

func (k versionedKind[T]) Put(ctx context.Context, h string, obj T) error { k.m[h] = obj; return nil }
func (k versionedKind[T]) Get(ctx context.Context, h string) (T, error)   { return k.m[h], nil }
func (k versionedKind[T]) List(ctx context.Context) ([]T, error) {
	out := make([]T, 0, len(k.m))
	for _, v := range k.m {
		out = append(out, v)
	}
	return out, nil
}
func (k versionedKind[T]) RetrieveBatch(ctx context.Context, hashes []string) ([]T, error) {
	out := make([]T, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, k.m[h])
	}
	return out, nil
}
func (k versionedKind[T]) FindByLogicalID(ctx context.Context, id string) ([]T, error) { return nil, nil }
func (k versionedKind[T]) GetLatest(ctx context.Context, id string) (T, error)         { var z T; return z, nil }

func (s *memStore) Entities() store.VersionedStore[model.Entity] { return versionedKind[model.Entity]{s.entities} }
func (s *memStore) Actions() store.VersionedStore[model.Action]  { return versionedKind[model.Action]{s.actions} }
func (s *memStore) Events() store.VersionedStore[model.Event]    { return versionedKind[model.Event]{s.events} }

type blobKind[T any] struct{ m map[string]T }

func (k blobKind[T]) Put(ctx context.Context, h string, obj T) error { k.m[h] = obj; return nil }
func (k blobKind[T]) Get(ctx context.Context, h string) (T, error)   { return k.m[h], nil }
func (k blobKind[T]) List(ctx context.Context) ([]T, error) {
	out := make([]T, 0, len(k.m))
	for _, v := range k.m {
		out = append(out, v)
	}
	return out, nil
}
func (k blobKind[T]) RetrieveBatch(ctx context.Context, hashes []string) ([]T, error) {
	out := make([]T, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, k.m[h])
	}
	return out, nil
}

func (s *memStore) Commits() store.BlobStore[model.Commit] { return blobKind[model.Commit]{s.commits} }
func (s *memStore) Trees() store.BlobStore[model.Tree]     { return blobKind[model.Tree]{s.trees} }

func (s *memStore) Repository() store.RepositoryStore { return (*memRepo)(s) }
func (s *memStore) Branches() store.BranchStore        { return (*memBranches)(s) }
func (s *memStore) Close() error                       { return nil }

type memRepo memStore

func (r *memRepo) CurrentBranch(ctx context.Context) (string, error) { return r.head, nil }
func (r *memRepo) SetCurrentBranch(ctx context.Context, name string) error {
	r.head = name
	return nil
}

type memBranches memStore

func (b *memBranches) ListBranches(ctx context.Context) ([]model.Branch, error) {
	out := make([]model.Branch, 0, len(b.branches))
	for _, v := range b.branches {
		out = append(out, v)
	}
	return out, nil
}
func (b *memBranches) CreateBranch(ctx context.Context, br model.Branch) error {
	b.branches[br.Name] = br
	return nil
}
func (b *memBranches) UpdateBranch(ctx context.Context, name, newHead string) error {
	br := b.branches[name]
	br.Head = newHead
	b.branches[name] = br
	return nil
}
func (b *memBranches) GetBranch(ctx context.Context, name string) (model.Branch, error) {
	return b.branches[name], nil
}
func (b *memBranches) DeleteBranch(ctx context.Context, name string) error {
	delete(b.branches, name)
	return nil
}
func (b *memBranches) RenameBranch(ctx context.Context, oldName, newName string) error {
	br := b.branches[oldName]
	br.Name = newName
	b.branches[newName] = br
	delete(b.branches, oldName)
	return nil
}

func newTestEngine(t *testing.T) (*vcs.Engine, *memStore) {
	t.Helper()
	s := newMemStore()
	require.NoError(t, s.Branches().CreateBranch(context.Background(), model.Branch{Name: "main"}))
	require.NoError(t, s.Repository().SetCurrentBranch(context.Background(), "main"))
	return vcs.NewEngine(s, "main", nil), s
}

func putEntity(t *testing.T, s *memStore, e model.Entity) string {
	t.Helper()
	h, err := hash.Entity(e)
	require.NoError(t, err)
	require.NoError(t, s.Entities().Put(context.Background(), h, e))
	return h
}

func putEvent(t *testing.T, s *memStore, e model.Event) string {
	t.Helper()
	h, err := hash.Event(e)
	require.NoError(t, err)
	require.NoError(t, s.Events().Put(context.Background(), h, e))
	return h
}

func svo() model.Statement {
	return model.Statement{SVO: &model.SVO{SubjectRef: "s", VerbRef: "v", ObjectRef: "o"}}
}

func TestCommit_RootAndChild(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h1 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "Acme Corp"})
	c1, err := eng.Commit(ctx, "main", "alice", "add e1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h1}})
	require.NoError(t, err)
	assert.True(t, c1.IsRoot())

	h2 := putEntity(t, s, model.Entity{LogicalID: "e2", Version: "1.0", Label: "Beta LLC"})
	c2, err := eng.Commit(ctx, "main", "alice", "add e2", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e2", Hash: h2}})
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID}, c2.Parents)

	tree, err := eng.Tree(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, h1, tree.Entities["e1"])
	assert.Equal(t, h2, tree.Entities["e2"])
}

func TestMergeBase_LinearHistory(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h1 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "A"})
	c1, err := eng.Commit(ctx, "main", "alice", "c1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h1}})
	require.NoError(t, err)

	require.NoError(t, eng.Branches().Create(ctx, "feature", c1.ID, "alice", false))

	h2 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Label: "A2"})
	c2, err := eng.Commit(ctx, "main", "alice", "c2", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h2}})
	require.NoError(t, err)

	base, err := eng.MergeBase(ctx, c2.ID, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, base)
}

func TestMerge_FastForward(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h1 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "A"})
	c1, err := eng.Commit(ctx, "main", "alice", "c1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h1}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", c1.ID, "alice", false))

	h2 := putEntity(t, s, model.Entity{LogicalID: "e2", Version: "1.0", Label: "B"})
	_, err = eng.Commit(ctx, "feature", "bob", "c2", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e2", Hash: h2}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.NoError(t, err)
	assert.True(t, result.FastForward)
}

func TestMerge_NonConflictingBothSides(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h0 := putEntity(t, s, model.Entity{LogicalID: "e0", Version: "1.0", Label: "base"})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e0", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	h1 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "from-main"})
	_, err = eng.Commit(ctx, "main", "alice", "main change", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h1}})
	require.NoError(t, err)

	h2 := putEntity(t, s, model.Entity{LogicalID: "e2", Version: "1.0", Label: "from-feature"})
	_, err = eng.Commit(ctx, "feature", "bob", "feature change", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e2", Hash: h2}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.NoError(t, err)
	require.NotNil(t, result.Commit)
	assert.Len(t, result.Conflicts, 0)
	assert.Len(t, result.Commit.Parents, 2)

	tree, err := eng.Tree(ctx, result.Commit.ID)
	require.NoError(t, err)
	assert.Equal(t, h1, tree.Entities["e1"])
	assert.Equal(t, h2, tree.Entities["e2"])
}

func TestMerge_ConflictingTypeHintStaysManual(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h0 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "same", TypeHint: strPtr("org")})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	hOurs := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Label: "same", TypeHint: strPtr("organization")})
	_, err = eng.Commit(ctx, "main", "alice", "main retypes e1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: hOurs}})
	require.NoError(t, err)

	hTheirs := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Label: "same", TypeHint: strPtr("person")})
	_, err = eng.Commit(ctx, "feature", "bob", "feature retypes e1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: hTheirs}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.Error(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, vcs.ConflictStructural, result.Conflicts[0].Type)
	assert.Equal(t, vcs.SeverityCritical, result.Conflicts[0].Severity)
	assert.Nil(t, result.Conflicts[0].Resolved)
}

func TestMerge_EventRelationshipsAutoMergeBySetUnion(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h0 := putEvent(t, s, model.Event{LogicalID: "e1", Version: "1.0", Statement: svo()})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	hOurs := putEvent(t, s, model.Event{
		LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(),
		Relationships: []model.Relationship{{Type: model.RelCauses, TargetID: "e2"}},
	})
	_, err = eng.Commit(ctx, "main", "alice", "main adds causal", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hOurs}})
	require.NoError(t, err)

	hTheirs := putEvent(t, s, model.Event{
		LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(),
		Relationships: []model.Relationship{{Type: model.RelSupports, TargetID: "e3"}},
	})
	_, err = eng.Commit(ctx, "feature", "bob", "feature adds informational", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hTheirs}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 0)

	tree, err := eng.Tree(ctx, result.Commit.ID)
	require.NoError(t, err)
	merged, err := s.Events().Get(ctx, tree.Events["e1"])
	require.NoError(t, err)
	assert.Len(t, merged.Relationships, 2)
}

func TestMerge_EventTimelineSpanAutoMergeByBoundUnion(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()
	day := func(n int) time.Time { return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC) }

	h0 := putEvent(t, s, model.Event{LogicalID: "e1", Version: "1.0", Statement: svo()})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	end1 := day(10)
	hOurs := putEvent(t, s, model.Event{
		LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(),
		TimelineSpan: &model.TimelineSpan{Start: day(5), End: &end1},
	})
	_, err = eng.Commit(ctx, "main", "alice", "main narrows span", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hOurs}})
	require.NoError(t, err)

	end2 := day(20)
	hTheirs := putEvent(t, s, model.Event{
		LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(),
		TimelineSpan: &model.TimelineSpan{Start: day(1), End: &end2},
	})
	_, err = eng.Commit(ctx, "feature", "bob", "feature widens span", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hTheirs}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 0)

	tree, err := eng.Tree(ctx, result.Commit.ID)
	require.NoError(t, err)
	merged, err := s.Events().Get(ctx, tree.Events["e1"])
	require.NoError(t, err)
	require.NotNil(t, merged.TimelineSpan)
	assert.True(t, merged.TimelineSpan.Start.Equal(day(1)))
	require.NotNil(t, merged.TimelineSpan.End)
	assert.True(t, merged.TimelineSpan.End.Equal(day(20)))
}

func TestMerge_EventImportanceResolvesToHigher(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h0 := putEvent(t, s, model.Event{LogicalID: "e1", Version: "1.0", Statement: svo()})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	hOurs := putEvent(t, s, model.Event{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(), Importance: intPtr(2)})
	_, err = eng.Commit(ctx, "main", "alice", "main sets importance 2", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hOurs}})
	require.NoError(t, err)

	hTheirs := putEvent(t, s, model.Event{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Statement: svo(), Importance: intPtr(4)})
	_, err = eng.Commit(ctx, "feature", "bob", "feature sets importance 4", []vcs.Change{{Kind: model.KindEvents, LogicalID: "e1", Hash: hTheirs}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge"})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 0)

	tree, err := eng.Tree(ctx, result.Commit.ID)
	require.NoError(t, err)
	merged, err := s.Events().Get(ctx, tree.Events["e1"])
	require.NoError(t, err)
	require.NotNil(t, merged.Importance)
	assert.Equal(t, 4, *merged.Importance)
}

func TestMerge_OursStrategyBiasResolvesManualConflict(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	h0 := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.0", Label: "same", TypeHint: strPtr("org")})
	base, err := eng.Commit(ctx, "main", "alice", "base", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: h0}})
	require.NoError(t, err)
	require.NoError(t, eng.Branches().Create(ctx, "feature", base.ID, "bob", false))

	hOurs := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Label: "same", TypeHint: strPtr("organization")})
	_, err = eng.Commit(ctx, "main", "alice", "main retypes e1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: hOurs}})
	require.NoError(t, err)

	hTheirs := putEntity(t, s, model.Entity{LogicalID: "e1", Version: "1.1", PreviousVersion: strPtr("1.0"), Label: "same", TypeHint: strPtr("person")})
	_, err = eng.Commit(ctx, "feature", "bob", "feature retypes e1", []vcs.Change{{Kind: model.KindEntities, LogicalID: "e1", Hash: hTheirs}})
	require.NoError(t, err)

	result, err := eng.Merge(ctx, "main", "feature", vcs.MergeOptions{Author: "alice", Message: "merge", Strategy: vcs.StrategyOurs})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 0)

	tree, err := eng.Tree(ctx, result.Commit.ID)
	require.NoError(t, err)
	merged, err := s.Entities().Get(ctx, tree.Entities["e1"])
	require.NoError(t, err)
	require.NotNil(t, merged.TypeHint)
	assert.Equal(t, "organization", *merged.TypeHint)
}

func TestBranches_DeleteProtectsDefaultAndCurrent(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	err := eng.Branches().Delete(ctx, "main", false)
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
