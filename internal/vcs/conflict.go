package vcs

import (
	"time"

	"github.com/veritaschain/veritaschain/internal/model"
)

// ConflictType classifies the shape of a three-way merge conflict.
type ConflictType string

const (
	ConflictContent      ConflictType = "content"
	ConflictStructural   ConflictType = "structural"
	ConflictRelationship ConflictType = "relationship"
	ConflictStatement    ConflictType = "statement"
	ConflictMetadata     ConflictType = "metadata"
	ConflictVersion      ConflictType = "version"
	ConflictComponent    ConflictType = "component"
	ConflictAggregation  ConflictType = "aggregation"
)

// Severity ranks how serious a conflict is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Resolution is the suggested or chosen way to settle a conflict.
type Resolution string

const (
	ResolutionOurs    Resolution = "ours"
	ResolutionTheirs  Resolution = "theirs"
	ResolutionMerge   Resolution = "merge"
	ResolutionManual  Resolution = "manual"
)

// Conflict is one unresolved (or auto-resolved) difference found while
// three-way merging a single logicalId.
type Conflict struct {
	Type        ConflictType
	LogicalID   string
	Kind        model.ObjectKind
	Path        string
	Base        any
	Ours        any
	Theirs      any
	Severity    Severity
	AutoResolvable bool
	Suggested   Resolution
	Description string

	// Resolved, if non-nil, carries the outcome of running this conflict
	// through the strategy pipeline.
	Resolved *Decision

	// The following are populated opportunistically by the merge
	// orchestrator before the conflict reaches the strategy pipeline, so
	// individual strategies can consult them without re-fetching objects.
	// Any of them may be nil/zero when the information doesn't apply or
	// wasn't available; a strategy that needs one it doesn't have declines.
	OursSource      *model.SourceInfo
	TheirsSource    *model.SourceInfo
	OursConfidence  *float64
	TheirsConfidence *float64
	OursTimestamp   *time.Time
	TheirsTimestamp *time.Time
}

// Decision is the outcome of resolving one Conflict, logged for audit.
type Decision struct {
	ChosenSide string // "ours" | "theirs" | "custom"
	Value      any
	Reasoning  string
	Confidence float64
	Method     string // "auto" | "manual" | "ai-assisted"
	Strategy   string
}

// ResolutionEntry is one durable resolution-log record.
type ResolutionEntry struct {
	ConflictID string    `json:"conflictId"`
	LogicalID  string    `json:"logicalId"`
	ChosenSide string    `json:"chosenSide"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	Timestamp  string    `json:"timestamp"`
}

// MergeStrategy selects the overall merge behavior.
type MergeStrategy string

const (
	StrategyAuto      MergeStrategy = "auto"
	StrategyOurs      MergeStrategy = "ours"
	StrategyTheirs    MergeStrategy = "theirs"
	StrategyManual    MergeStrategy = "manual"
	StrategyRecursive MergeStrategy = "recursive"
)

// MergeOptions configures a three-way merge attempt.
type MergeOptions struct {
	Strategy            MergeStrategy
	Author              string
	Message             string
	ConfidenceThreshold  float64 // overrides the confidence-based strategy's margin for this merge; 0 keeps the pipeline's margin
}

// MergeResult is the outcome of Engine.Merge.
type MergeResult struct {
	// FastForward is true when the target branch simply advanced with no
	// new merge commit.
	FastForward bool
	// UpToDate is true when the target already contained the source.
	UpToDate bool
	// Commit is populated when a new merge commit was created.
	Commit *model.Commit
	// Conflicts lists every unresolved conflict (empty on a clean/auto-
	// resolved merge).
	Conflicts []Conflict
	Message   string
}
