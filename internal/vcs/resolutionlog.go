package vcs

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// ResolutionLog is the durable, append-only audit trail of merge conflict
// resolutions. It writes one JSON object per line to w, so the
// log can be tailed or replayed independently of the object store. A nil
// *ResolutionLog, or one from NewDiscardResolutionLog, silently drops entries,
// which keeps Engine usable in tests and one-off tools that don't care
// about the audit trail.
type ResolutionLog struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewResolutionLog returns a ResolutionLog that appends JSONL records to w.
func NewResolutionLog(w io.Writer) *ResolutionLog {
	return &ResolutionLog{w: w, now: time.Now}
}

// NewDiscardResolutionLog returns a ResolutionLog that records nothing.
func NewDiscardResolutionLog() *ResolutionLog {
	return &ResolutionLog{w: io.Discard, now: time.Now}
}

// Append writes one resolution record. conflictID is caller-assigned (the
// merge loop derives it from logicalId + path so entries are addressable).
func (l *ResolutionLog) Append(conflictID string, c Conflict) error {
	if l == nil {
		return nil
	}
	if c.Resolved == nil {
		return fmt.Errorf("vcs: cannot log an unresolved conflict: %s", conflictID)
	}
	entry := ResolutionEntry{
		ConflictID: conflictID,
		LogicalID:  c.LogicalID,
		ChosenSide: c.Resolved.ChosenSide,
		Reasoning:  c.Resolved.Reasoning,
		Confidence: c.Resolved.Confidence,
		Method:     c.Resolved.Method,
		Timestamp:  l.now().UTC().Format(time.RFC3339Nano),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.w)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("vcs: write resolution log entry: %w", err)
	}
	return nil
}
