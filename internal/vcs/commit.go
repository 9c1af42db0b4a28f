package vcs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/telemetry"
)

var (
	tracer      = telemetry.Tracer(telemetry.InstrumentationScope)
	vcsMeter    = telemetry.Meter(telemetry.InstrumentationScope)
	commitCount otelmetric.Int64Counter
)

func init() {
	var err error
	commitCount, err = vcsMeter.Int64Counter("vcs.commit.count")
	if err != nil {
		commitCount, _ = vcsMeter.Int64Counter("vcs.commit.count.fallback")
	}
}

// Change is one object that changed in a commit, keyed by kind + logicalId
// + its new content hash.
type Change struct {
	Kind      model.ObjectKind
	LogicalID string
	Hash      string
}

// Engine is the version-control façade over an object store: commit
// creation, branch management, merge-base discovery, and three-way merge.
type Engine struct {
	store      store.ObjectStore
	branches   *Branches
	resolveLog *ResolutionLog
	pipeline   *StrategyPipeline
}

// NewEngine returns an Engine operating over store, with defaultBranch
// protected from deletion. resolveLog may be nil, in which case resolution
// audit entries are discarded. The engine starts with the default
// resolution pipeline at the default confidence margin; use SetPipeline to
// override.
func NewEngine(st store.ObjectStore, defaultBranch string, resolveLog *ResolutionLog) *Engine {
	if resolveLog == nil {
		resolveLog = NewDiscardResolutionLog()
	}
	return &Engine{
		store:      st,
		branches:   NewBranches(st.Repository(), st.Branches(), defaultBranch),
		resolveLog: resolveLog,
		pipeline:   DefaultStrategyPipeline(nil, 0),
	}
}

// Branches exposes the branch manager.
func (e *Engine) Branches() *Branches { return e.branches }

// SetPipeline overrides the conflict-resolution strategy pipeline, e.g. to
// supply a ConfidenceLookup backed by a live confidence engine.
func (e *Engine) SetPipeline(p *StrategyPipeline) { e.pipeline = p }

// Commit builds a new tree over branch's current head tree (overlaying
// changes), assembles and persists a commit record, and atomically advances
// the branch head.
func (e *Engine) Commit(ctx context.Context, branch, author, message string, changes []Change) (model.Commit, error) {
	ctx, span := tracer.Start(ctx, "vcs.commit", trace.WithAttributes(
		attribute.String("branch", branch),
		attribute.Int("changes", len(changes)),
	))
	defer span.End()

	headHash, err := e.branches.Head(ctx, branch)
	if err != nil {
		return model.Commit{}, err
	}

	var parentTree model.Tree
	var parents []string
	if headHash != "" {
		parentCommit, err := e.store.Commits().Get(ctx, headHash)
		if err != nil {
			return model.Commit{}, fmt.Errorf("vcs: load parent commit: %w", err)
		}
		parentTree, err = e.store.Trees().Get(ctx, parentCommit.Tree)
		if err != nil {
			return model.Commit{}, fmt.Errorf("vcs: load parent tree: %w", err)
		}
		parents = []string{headHash}
	} else {
		parentTree = model.NewTree()
	}

	tree := parentTree.Clone()
	changeSet := model.ChangeSet{}
	for _, c := range changes {
		tree.Map(c.Kind)[c.LogicalID] = c.Hash
		switch c.Kind {
		case model.KindEntities:
			changeSet.Entities = append(changeSet.Entities, c.Hash)
		case model.KindActions:
			changeSet.Actions = append(changeSet.Actions, c.Hash)
		case model.KindEvents:
			changeSet.Events = append(changeSet.Events, c.Hash)
		}
	}

	treeHash, err := hash.Tree(tree)
	if err != nil {
		return model.Commit{}, fmt.Errorf("vcs: hash tree: %w", err)
	}
	if err := e.store.Trees().Put(ctx, treeHash, tree); err != nil {
		return model.Commit{}, fmt.Errorf("vcs: persist tree: %w", err)
	}

	commit := model.Commit{
		Timestamp: time.Now(),
		Parents:   parents,
		Tree:      treeHash,
		Author:    author,
		Message:   message,
		Changes:   changeSet,
		Branch:    branch,
	}
	commitHash, err := hash.Commit(commit)
	if err != nil {
		return model.Commit{}, fmt.Errorf("vcs: hash commit: %w", err)
	}
	commit.ID = commitHash
	if err := e.store.Commits().Put(ctx, commitHash, commit); err != nil {
		return model.Commit{}, fmt.Errorf("vcs: persist commit: %w", err)
	}
	if err := e.branches.advance(ctx, branch, commitHash); err != nil {
		return model.Commit{}, err
	}
	commitCount.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("branch", branch)))
	return commit, nil
}

// Tree returns the tree a commit points to.
func (e *Engine) Tree(ctx context.Context, commitHash string) (model.Tree, error) {
	c, err := e.store.Commits().Get(ctx, commitHash)
	if err != nil {
		return model.Tree{}, err
	}
	return e.store.Trees().Get(ctx, c.Tree)
}
