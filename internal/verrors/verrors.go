// Package verrors defines the stable, flat error taxonomy shared by every
// core component. Collaborators outside the core (HTTP surface, CLI,
// parser, ...) match on these with errors.Is/errors.As rather than on
// message text.
package verrors

import (
	"errors"
	"fmt"
)

// NotFound means an object of the given kind and id does not exist in the store.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.ID) }

// BadHash means a string presented as a content hash failed format validation.
type BadHash struct {
	Value string
}

func (e *BadHash) Error() string { return fmt.Sprintf("bad hash: %q", e.Value) }

// HashCollision means a put() targeted an existing hash with a different payload.
type HashCollision struct {
	Hash string
}

func (e *HashCollision) Error() string { return fmt.Sprintf("hash collision: %s", e.Hash) }

// MissingComponent means a ComponentRef did not resolve to a stored event.
type MissingComponent struct {
	LogicalID string
	Version   string
}

func (e *MissingComponent) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("missing component: logicalId=%s (latest)", e.LogicalID)
	}
	return fmt.Sprintf("missing component: logicalId=%s version=%s", e.LogicalID, e.Version)
}

// CircularComposite means component resolution re-entered a (logicalId, version)
// already on the current descent path. Path lists the cycle in visitation order.
type CircularComposite struct {
	Path []string
}

func (e *CircularComposite) Error() string { return fmt.Sprintf("circular composite: %v", e.Path) }

// DepthExceeded means composite recursion exceeded the configured maxDepth.
type DepthExceeded struct {
	Limit int
}

func (e *DepthExceeded) Error() string { return fmt.Sprintf("depth exceeded: limit=%d", e.Limit) }

// InvalidStatement means a Statement (SVO or LogicalClause) is structurally malformed.
type InvalidStatement struct {
	Reason string
}

func (e *InvalidStatement) Error() string { return fmt.Sprintf("invalid statement: %s", e.Reason) }

// InvalidModifier means a modifier field held a value outside its enumerated set.
type InvalidModifier struct {
	Field string
}

func (e *InvalidModifier) Error() string { return fmt.Sprintf("invalid modifier: %s", e.Field) }

// BranchNotFound means the named branch has no ref entry.
type BranchNotFound struct {
	Name string
}

func (e *BranchNotFound) Error() string { return fmt.Sprintf("branch not found: %s", e.Name) }

// BranchExists means create() targeted a name that already has a ref entry.
type BranchExists struct {
	Name string
}

func (e *BranchExists) Error() string { return fmt.Sprintf("branch already exists: %s", e.Name) }

// BranchProtected means an operation tried to delete or otherwise remove
// the current branch or the default branch.
type BranchProtected struct {
	Name string
}

func (e *BranchProtected) Error() string { return fmt.Sprintf("branch protected: %s", e.Name) }

// InvalidBranchName means a branch name failed the naming rules.
type InvalidBranchName struct {
	Name string
}

func (e *InvalidBranchName) Error() string { return fmt.Sprintf("invalid branch name: %q", e.Name) }

// NoBase means two commits share no common ancestor.
type NoBase struct {
	A, B string
}

func (e *NoBase) Error() string { return fmt.Sprintf("no merge base between %s and %s", e.A, e.B) }

// MergeConflict carries the full set of unresolved conflicts from a merge attempt.
// vcs.Engine.Merge returns it as the error, next to a MergeResult listing
// the same conflicts; it is never a bare sentinel — callers type-assert to
// read Conflicts.
type MergeConflict struct {
	Conflicts []any // internal/vcs.Conflict; kept as `any` here to avoid an import cycle
}

func (e *MergeConflict) Error() string {
	return fmt.Sprintf("merge conflict: %d unresolved", len(e.Conflicts))
}

// FastForwardRequired means the requested strategy forbade a fast-forward
// that was the only valid outcome.
var FastForwardRequired = errors.New("fast-forward required")

// AlreadyUpToDate means the merge target already contains the source history.
var AlreadyUpToDate = errors.New("already up to date")

// AggregatorUnknown means a composite event named a customRuleId with no
// registered Aggregator. Custom aggregation fails closed.
type AggregatorUnknown struct {
	RuleID string
}

func (e *AggregatorUnknown) Error() string { return fmt.Sprintf("aggregator unknown: %s", e.RuleID) }

// AggregatorFailed means a registered custom Aggregator returned an error.
type AggregatorFailed struct {
	RuleID string
	Reason string
}

func (e *AggregatorFailed) Error() string {
	return fmt.Sprintf("aggregator %s failed: %s", e.RuleID, e.Reason)
}

// StoreIO wraps a transient failure from the underlying storage medium.
type StoreIO struct {
	Cause error
}

func (e *StoreIO) Error() string { return fmt.Sprintf("store io: %v", e.Cause) }
func (e *StoreIO) Unwrap() error { return e.Cause }

// StoreCorrupted means a stored payload failed to decode or its recomputed
// hash does not match its key.
type StoreCorrupted struct {
	Hash string
}

func (e *StoreCorrupted) Error() string { return fmt.Sprintf("store corrupted: %s", e.Hash) }
