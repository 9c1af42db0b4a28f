// Package vcs implements Git-like version control over the object store
// (C6): branch management, commit creation, merge-base discovery, and
// three-way merge with typed conflict detection and a pluggable
// resolution-strategy pipeline.
package vcs

import (
	"context"
	"fmt"
	"time"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// Branches wraps a store.BranchStore/RepositoryStore pair with the naming
// and protection rules.
type Branches struct {
	repo    store.RepositoryStore
	refs    store.BranchStore
	defaultName string
}

// NewBranches returns a Branches manager. defaultBranch is protected from
// deletion alongside whichever branch is currently checked out.
func NewBranches(repo store.RepositoryStore, refs store.BranchStore, defaultBranch string) *Branches {
	return &Branches{repo: repo, refs: refs, defaultName: defaultBranch}
}

// List returns every branch.
func (b *Branches) List(ctx context.Context) ([]model.Branch, error) {
	return b.refs.ListBranches(ctx)
}

// Current returns the name of the checked-out branch.
func (b *Branches) Current(ctx context.Context) (string, error) {
	return b.repo.CurrentBranch(ctx)
}

// Create makes a new branch named name, pointed at fromCommit (which may be
// "" for a branch with no commits yet — the first commit on it becomes
// root). force allows overwriting an existing branch of the same name.
func (b *Branches) Create(ctx context.Context, name, fromCommit, author string, force bool) error {
	if err := model.ValidateBranchName(name); err != nil {
		return err
	}
	if force {
		_ = b.refs.DeleteBranch(ctx, name)
	}
	return b.refs.CreateBranch(ctx, model.Branch{
		Name:    name,
		Head:    fromCommit,
		Created: time.Now(),
		Author:  author,
	})
}

// SwitchOptions configures Switch.
type SwitchOptions struct {
	Force           bool
	CreateIfMissing bool
	Author          string
}

// Switch checks out name as the current branch, optionally creating it from
// the current HEAD's commit if it does not yet exist.
func (b *Branches) Switch(ctx context.Context, name string, opts SwitchOptions) error {
	if _, err := b.refs.GetBranch(ctx, name); err != nil {
		if _, ok := err.(*verrors.BranchNotFound); ok && opts.CreateIfMissing {
			current, cerr := b.repo.CurrentBranch(ctx)
			if cerr != nil {
				return cerr
			}
			currentBranch, gerr := b.refs.GetBranch(ctx, current)
			if gerr != nil {
				return gerr
			}
			if cerr := b.Create(ctx, name, currentBranch.Head, opts.Author, opts.Force); cerr != nil {
				return cerr
			}
		} else {
			return err
		}
	}
	return b.repo.SetCurrentBranch(ctx, name)
}

// Rename renames oldName to newName, updating HEAD if oldName is current.
func (b *Branches) Rename(ctx context.Context, oldName, newName string, force bool) error {
	if err := model.ValidateBranchName(newName); err != nil {
		return err
	}
	current, err := b.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if force {
		_ = b.refs.DeleteBranch(ctx, newName)
	}
	if err := b.refs.RenameBranch(ctx, oldName, newName); err != nil {
		return err
	}
	if current == oldName {
		return b.repo.SetCurrentBranch(ctx, newName)
	}
	return nil
}

// Delete removes name, refusing to delete the current branch or (unless
// force is set) the configured default branch.
func (b *Branches) Delete(ctx context.Context, name string, force bool) error {
	current, err := b.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if name == current {
		return &verrors.BranchProtected{Name: name}
	}
	if name == b.defaultName && !force {
		return &verrors.BranchProtected{Name: name}
	}
	return b.refs.DeleteBranch(ctx, name)
}

// Head returns the commit hash name's ref currently points to.
func (b *Branches) Head(ctx context.Context, name string) (string, error) {
	br, err := b.refs.GetBranch(ctx, name)
	if err != nil {
		return "", err
	}
	return br.Head, nil
}

// advance moves name's ref to newHead, the only write path commit creation
// and fast-forward/merge use to update a branch.
func (b *Branches) advance(ctx context.Context, name, newHead string) error {
	if err := b.refs.UpdateBranch(ctx, name, newHead); err != nil {
		return fmt.Errorf("vcs: advance branch %s: %w", name, err)
	}
	return nil
}
