package store

import (
	"context"

	"github.com/veritaschain/veritaschain/internal/model"
)

// RepositoryStore exposes read/update of the current branch (HEAD).
type RepositoryStore interface {
	CurrentBranch(ctx context.Context) (string, error)
	SetCurrentBranch(ctx context.Context, name string) error
}

// BranchStore adds branch enumeration, creation and head updates on top of
// RepositoryStore.
type BranchStore interface {
	ListBranches(ctx context.Context) ([]model.Branch, error)
	CreateBranch(ctx context.Context, b model.Branch) error
	UpdateBranch(ctx context.Context, name, newHead string) error
	GetBranch(ctx context.Context, name string) (model.Branch, error)
	DeleteBranch(ctx context.Context, name string) error
	RenameBranch(ctx context.Context, oldName, newName string) error
}

// ObjectStore is the full adapter surface the version-control engine and
// the event algebra depend on: five content-addressed kind stores plus
// branch/HEAD management.
type ObjectStore interface {
	Entities() VersionedStore[model.Entity]
	Actions() VersionedStore[model.Action]
	Events() VersionedStore[model.Event]
	Commits() BlobStore[model.Commit]
	Trees() BlobStore[model.Tree]

	Repository() RepositoryStore
	Branches() BranchStore

	Close() error
}
