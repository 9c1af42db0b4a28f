// Package veritaschain is the public façade over the version-controlled,
// content-addressed store of structured propositions, norms, and events:
// a pluggable object store (filesystem or Postgres), the Git-like
// version-control engine, the recursive event algebra, and the confidence
// engine, wired together behind one Repository handle.
package veritaschain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veritaschain/veritaschain/internal/config"
	"github.com/veritaschain/veritaschain/internal/confidence"
	"github.com/veritaschain/veritaschain/internal/events"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/store/fs"
	"github.com/veritaschain/veritaschain/internal/store/postgres"
	"github.com/veritaschain/veritaschain/internal/vcs"
)

// Repository is the top-level handle: one object store, one version-control
// engine, one event resolver, and one confidence engine, all sharing the
// same underlying store and default branch.
type Repository struct {
	Store      store.ObjectStore
	VCS        *vcs.Engine
	Resolver   *events.Resolver
	Confidence *confidence.Engine

	defaultBranch string
	logger        *slog.Logger
}

type options struct {
	store           store.ObjectStore
	maxDepth        int
	maxParallel     int
	mergeConfidence float64
	cacheCapacity   int
	cacheBackend    config.CacheBackend
	cachePath       string
	volatilityK     float64
	logger          *slog.Logger
	registry        *confidence.Registry
	resolveLog      *vcs.ResolutionLog
	pipeline        *vcs.StrategyPipeline
}

// Option configures Open.
type Option func(*options)

// WithStore supplies a pre-opened store.ObjectStore, bypassing cfg's
// backend selection — chiefly for tests that want an in-memory store.
func WithStore(s store.ObjectStore) Option { return func(o *options) { o.store = s } }

// WithMaxDepth overrides the event-algebra recursion cap.
func WithMaxDepth(n int) Option { return func(o *options) { o.maxDepth = n } }

// WithMaxParallel overrides the worker limit applied to the event
// resolver's parallel traversal mode.
func WithMaxParallel(n int) Option { return func(o *options) { o.maxParallel = n } }

// WithMergeConfidenceThreshold overrides the confidence-margin threshold
// the merge engine's confidence-based strategy resolves conflicts by.
func WithMergeConfidenceThreshold(t float64) Option {
	return func(o *options) { o.mergeConfidence = t }
}

// WithCacheCapacity overrides the confidence engine's commit-scoped LRU cache size.
func WithCacheCapacity(n int) Option { return func(o *options) { o.cacheCapacity = n } }

// WithVolatilityK overrides the volatility divisor K.
func WithVolatilityK(k float64) Option { return func(o *options) { o.volatilityK = k } }

// WithLogger installs a structured logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithAggregatorRegistry installs a pre-populated CUSTOM aggregator
// registry for composite events whose aggregation is customRuleId-based.
func WithAggregatorRegistry(r *confidence.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithResolutionLog routes merge conflict-resolution audit entries to l
// instead of discarding them.
func WithResolutionLog(l *vcs.ResolutionLog) Option { return func(o *options) { o.resolveLog = l } }

// WithStrategyPipeline overrides the merge engine's default conflict-
// resolution strategy pipeline.
func WithStrategyPipeline(p *vcs.StrategyPipeline) Option {
	return func(o *options) { o.pipeline = p }
}

// Open opens a Repository backed by cfg's configured store (filesystem or
// Postgres, per cfg.StoreBackend), wiring the version-control engine,
// event resolver, and confidence engine together over it.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Repository, error) {
	o := &options{
		maxDepth:        cfg.MaxDepth,
		maxParallel:     cfg.MaxParallelDescent,
		mergeConfidence: cfg.MergeConfidenceThreshold,
		cacheCapacity:   cfg.CacheCapacity,
		cacheBackend:    cfg.CacheBackend,
		cachePath:       cfg.CachePath,
		volatilityK:     cfg.VolatilityK,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		st, err := openConfiguredStore(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		o.store = st
	}

	return newRepository(o.store, cfg.DefaultBranch, o)
}

func openConfiguredStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.ObjectStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresURL, cfg.DefaultBranch, logger)
	case config.BackendFilesystem:
		return fs.Open(cfg.RepoPath, cfg.DefaultBranch, logger)
	default:
		return nil, fmt.Errorf("veritaschain: unsupported store backend %q", cfg.StoreBackend)
	}
}

func newRepository(st store.ObjectStore, defaultBranch string, o *options) (*Repository, error) {
	engine := vcs.NewEngine(st, defaultBranch, o.resolveLog)

	resolver := events.NewResolver(st.Events(), o.maxDepth)
	resolver.SetMaxParallel(o.maxParallel)

	var confOpts []confidence.Option
	if o.volatilityK > 0 {
		confOpts = append(confOpts, confidence.WithVolatilityK(o.volatilityK))
	}
	switch o.cacheBackend {
	case config.CacheBackendSQLite:
		sqliteCache, err := confidence.NewSQLiteCache(o.cachePath)
		if err != nil {
			return nil, fmt.Errorf("veritaschain: open sqlite confidence cache: %w", err)
		}
		confOpts = append(confOpts, confidence.WithCache(sqliteCache))
	default:
		if o.cacheCapacity > 0 {
			confOpts = append(confOpts, confidence.WithCacheCapacity(o.cacheCapacity))
		}
	}
	if o.registry != nil {
		confOpts = append(confOpts, confidence.WithRegistry(o.registry))
	}

	history := newCommitHistory(st, defaultBranch)
	confEngine := confidence.NewEngine(resolver, history, confOpts...)

	pipeline := o.pipeline
	if pipeline == nil {
		pipeline = vcs.DefaultStrategyPipeline(confidenceLookup(resolver, confEngine), o.mergeConfidence)
	}
	engine.SetPipeline(pipeline)

	return &Repository{
		Store:         st,
		VCS:           engine,
		Resolver:      resolver,
		Confidence:    confEngine,
		defaultBranch: defaultBranch,
		logger:        o.logger,
	}, nil
}

// confidenceLookup approximates vcs.ConfidenceLookup for the confidence-
// based resolution strategy using the engine's current, already-merged
// view of logicalID: a true per-side lookup would need the in-flight
// ours/theirs object graph a merge is still reconciling, which is not
// available through the store alone. The strategy calls it for each side
// whose conflict carries no confidence value, and Merge never fills those
// values, so every confidence-based decision goes through it. side is
// ignored: both sides get the same value.
func confidenceLookup(resolver *events.Resolver, e *confidence.Engine) vcs.ConfidenceLookup {
	return func(ctx context.Context, logicalID, side string) (float64, error) {
		ev, err := resolver.Resolve(ctx, model.ComponentRef{LogicalID: logicalID})
		if err != nil {
			return 0, err
		}
		return e.Confidence(ctx, ev)
	}
}

// Close releases the underlying store's resources.
func (r *Repository) Close() error { return r.Store.Close() }

// DefaultBranch returns the branch name the repository was opened with.
func (r *Repository) DefaultBranch() string { return r.defaultBranch }
