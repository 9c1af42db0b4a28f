package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// repoStore implements store.RepositoryStore by reading/writing a plain HEAD
// file at the root of the store directory, Git-fashion: its content is the
// name of the current branch.
type repoStore struct {
	mu   sync.RWMutex
	root string
}

func (r *repoStore) headPath() string { return filepath.Join(r.root, "HEAD") }

func (r *repoStore) CurrentBranch(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, err := os.ReadFile(r.headPath())
	if err != nil {
		return "", fmt.Errorf("repo: read HEAD: %w", err)
	}
	return string(raw), nil
}

func (r *repoStore) SetCurrentBranch(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.WriteFile(r.headPath(), []byte(name), 0o644); err != nil {
		return fmt.Errorf("repo: write HEAD: %w", err)
	}
	return nil
}

// branchStore implements store.BranchStore with one JSON file per branch
// under refs/heads/<name>.json, mirroring Git's one-ref-per-file layout
// while carrying the richer model.Branch metadata.
type branchStore struct {
	mu   sync.RWMutex
	root string
}

func (b *branchStore) refPath(name string) string {
	return filepath.Join(b.root, "refs", "heads", name+".json")
}

func (b *branchStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dir := filepath.Join(b.root, "refs", "heads")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("branches: list: %w", err)
	}
	out := make([]model.Branch, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("branches: read %s: %w", e.Name(), err)
		}
		var br model.Branch
		if err := json.Unmarshal(raw, &br); err != nil {
			return nil, fmt.Errorf("branches: unmarshal %s: %w", e.Name(), err)
		}
		out = append(out, br)
	}
	return out, nil
}

func (b *branchStore) GetBranch(ctx context.Context, name string) (model.Branch, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readBranch(name)
}

func (b *branchStore) readBranch(name string) (model.Branch, error) {
	raw, err := os.ReadFile(b.refPath(name))
	if os.IsNotExist(err) {
		return model.Branch{}, &verrors.BranchNotFound{Name: name}
	} else if err != nil {
		return model.Branch{}, fmt.Errorf("branches: read %s: %w", name, err)
	}
	var br model.Branch
	if err := json.Unmarshal(raw, &br); err != nil {
		return model.Branch{}, fmt.Errorf("branches: unmarshal %s: %w", name, err)
	}
	return br, nil
}

func (b *branchStore) writeBranch(br model.Branch) error {
	raw, err := json.Marshal(br)
	if err != nil {
		return err
	}
	return os.WriteFile(b.refPath(br.Name), raw, 0o644)
}

func (b *branchStore) CreateBranch(ctx context.Context, br model.Branch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := model.ValidateBranchName(br.Name); err != nil {
		return err
	}
	if _, err := os.Stat(b.refPath(br.Name)); err == nil {
		return &verrors.BranchExists{Name: br.Name}
	}
	return b.writeBranch(br)
}

func (b *branchStore) UpdateBranch(ctx context.Context, name, newHead string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	br, err := b.readBranch(name)
	if err != nil {
		return err
	}
	br.Head = newHead
	return b.writeBranch(br)
}

func (b *branchStore) DeleteBranch(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.readBranch(name); err != nil {
		return err
	}
	if err := os.Remove(b.refPath(name)); err != nil {
		return fmt.Errorf("branches: delete %s: %w", name, err)
	}
	return nil
}

func (b *branchStore) RenameBranch(ctx context.Context, oldName, newName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := model.ValidateBranchName(newName); err != nil {
		return err
	}
	br, err := b.readBranch(oldName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(b.refPath(newName)); err == nil {
		return &verrors.BranchExists{Name: newName}
	}
	br.Name = newName
	if err := b.writeBranch(br); err != nil {
		return err
	}
	return os.Remove(b.refPath(oldName))
}
