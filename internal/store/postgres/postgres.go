// Package postgres is an alternate store.ObjectStore adapter over
// PostgreSQL, demonstrating that the Object Store contract is
// genuinely pluggable rather than filesystem-specific. All five kinds
// share one jsonb-per-row "objects" table; branches and HEAD get their
// own small tables (internal/migrations).
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaschain/veritaschain/internal/migrations"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
)

// Store is the PostgreSQL-backed ObjectStore.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	entities *kindStore[model.Entity]
	actions  *kindStore[model.Action]
	events   *kindStore[model.Event]
	commits  *kindStore[model.Commit]
	trees    *kindStore[model.Tree]

	repo     *repoStore
	branches *branchStore
}

// Open connects to url, applies the embedded schema migrations, and
// returns a ready Store pointed at defaultBranch if HEAD has never been
// initialized.
func Open(ctx context.Context, url string, defaultBranch string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{pool: pool, logger: logger}
	s.entities = newKindStore(pool, "entities", logger, entityAdapter{})
	s.actions = newKindStore(pool, "actions", logger, actionAdapter{})
	s.events = newKindStore(pool, "events", logger, eventAdapter{})
	s.commits = newKindStore(pool, "commits", logger, commitAdapter{})
	s.trees = newKindStore(pool, "trees", logger, treeAdapter{})
	s.repo = &repoStore{pool: pool}
	s.branches = &branchStore{pool: pool}

	var head string
	if err := pool.QueryRow(ctx, `SELECT current_branch FROM repo_head WHERE id = 1`).Scan(&head); err != nil {
		if err := s.repo.SetCurrentBranch(ctx, defaultBranch); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: init HEAD: %w", err)
		}
	}
	return s, nil
}

// applyMigrations runs every embedded *.sql file in lexical order. The
// schema is idempotent (CREATE TABLE/INDEX IF NOT EXISTS), so this is safe
// to call on every Open rather than needing a separate migration step.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("postgres: read migrations: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sql, err := migrations.FS.ReadFile(e.Name())
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", e.Name(), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("postgres: apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (s *Store) Entities() store.VersionedStore[model.Entity] { return s.entities }
func (s *Store) Actions() store.VersionedStore[model.Action]  { return s.actions }
func (s *Store) Events() store.VersionedStore[model.Event]    { return s.events }
func (s *Store) Commits() store.BlobStore[model.Commit]       { return s.commits }
func (s *Store) Trees() store.BlobStore[model.Tree]           { return s.trees }
func (s *Store) Repository() store.RepositoryStore            { return s.repo }
func (s *Store) Branches() store.BranchStore                  { return s.branches }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
