package veritaschain

import (
	"context"
	"errors"
	"sort"

	"github.com/veritaschain/veritaschain/internal/confidence"
	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// commitHistory implements confidence.HistoryProvider by replaying the
// commit graph reachable from one branch's head, rather than requiring a
// separate change log: the commit log already records every object hash
// that changed in each commit, so a logical event's history is
// exactly the sub-sequence of commits whose ChangeSet.Events mentions one
// of its stored versions.
type commitHistory struct {
	store  store.ObjectStore
	branch string
}

func newCommitHistory(st store.ObjectStore, branch string) *commitHistory {
	return &commitHistory{store: st, branch: branch}
}

func (h *commitHistory) History(ctx context.Context, logicalID string) ([]confidence.ChangeRecord, error) {
	versions, err := h.store.Events().FindByLogicalID(ctx, logicalID)
	if err != nil {
		var nf *verrors.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	hashes := make(map[string]bool, len(versions))
	for _, v := range versions {
		eh, err := hash.Event(v)
		if err != nil {
			return nil, err
		}
		hashes[eh] = true
	}

	br, err := h.store.Branches().GetBranch(ctx, h.branch)
	if err != nil {
		var nf *verrors.BranchNotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}

	commits, err := h.reachableCommits(ctx, br.Head)
	if err != nil {
		return nil, err
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Timestamp.Before(commits[j].Timestamp) })

	var out []confidence.ChangeRecord
	for _, c := range commits {
		for _, eh := range c.Changes.Events {
			if !hashes[eh] {
				continue
			}
			changeType := confidence.ChangeUpdated
			if len(out) == 0 {
				changeType = confidence.ChangeCreated
			}
			out = append(out, confidence.ChangeRecord{
				Timestamp:  c.Timestamp,
				CommitID:   c.ID,
				ChangeType: changeType,
				Author:     c.Author,
			})
			break
		}
	}
	return out, nil
}

// reachableCommits walks every commit reachable from head, following merge
// parents too, visiting each commit hash at most once.
func (h *commitHistory) reachableCommits(ctx context.Context, head string) ([]model.Commit, error) {
	if head == "" {
		return nil, nil
	}
	visited := map[string]bool{}
	var out []model.Commit
	stack := []string{head}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == "" || visited[id] {
			continue
		}
		visited[id] = true
		c, err := h.store.Commits().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		stack = append(stack, c.Parents...)
	}
	return out, nil
}
