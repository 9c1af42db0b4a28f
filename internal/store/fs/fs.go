// Package fs is the reference Object Store implementation: a hidden
// directory rooted at a configurable path, laid out as a reference
// persisted store layout.
package fs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
)

// Store is the filesystem-backed ObjectStore. A single instance serializes
// writes through per-kind mutexes: reads on one kind may proceed while
// a write to a different kind is in flight, but a write to a given kind
// excludes both reads and writes of that same kind.
type Store struct {
	root   string
	logger *slog.Logger

	entities *kindStore[model.Entity]
	actions  *kindStore[model.Action]
	events   *kindStore[model.Event]
	commits  *kindStore[model.Commit]
	trees    *kindStore[model.Tree]

	repo     *repoStore
	branches *branchStore
}

// Open creates (if absent) the on-disk layout rooted at dir and returns a
// ready Store. If dir does not yet contain a HEAD file, it is initialized
// pointing at defaultBranch (not yet created as a ref — the caller's first
// commit creates it).
func Open(dir string, defaultBranch string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, sub := range []string{
		"objects/entities", "objects/actions", "objects/events",
		"objects/commits", "objects/trees", "objects/macro-cache",
		"refs/heads", "history",
	} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("fs: create %s: %w", sub, err)
		}
	}

	s := &Store{root: dir, logger: logger}
	s.entities = newKindStore(dir, "entities", logger, entityAdapter{})
	s.actions = newKindStore(dir, "actions", logger, actionAdapter{})
	s.events = newKindStore(dir, "events", logger, eventAdapter{})
	s.commits = newKindStore(dir, "commits", logger, commitAdapter{})
	s.trees = newKindStore(dir, "trees", logger, treeAdapter{})
	s.repo = &repoStore{root: dir}
	s.branches = &branchStore{root: dir}

	headPath := filepath.Join(dir, "HEAD")
	if _, err := os.Stat(headPath); os.IsNotExist(err) {
		if err := os.WriteFile(headPath, []byte(defaultBranch), 0o644); err != nil {
			return nil, fmt.Errorf("fs: init HEAD: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Entities() store.VersionedStore[model.Entity] { return s.entities }
func (s *Store) Actions() store.VersionedStore[model.Action]  { return s.actions }
func (s *Store) Events() store.VersionedStore[model.Event]    { return s.events }
func (s *Store) Commits() store.BlobStore[model.Commit]       { return s.commits }
func (s *Store) Trees() store.BlobStore[model.Tree]           { return s.trees }
func (s *Store) Repository() store.RepositoryStore            { return s.repo }
func (s *Store) Branches() store.BranchStore                  { return s.branches }

// Close is a no-op for the filesystem backend; durability is delegated to
// the underlying filesystem.
func (s *Store) Close() error { return nil }
