package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/veritaschain/veritaschain/internal/verrors"
)

// Branch is a named pointer to a commit hash, plus creation metadata.
type Branch struct {
	Name        string    `json:"name"`
	Head        string    `json:"head"`
	Created     time.Time `json:"created"`
	Author      string    `json:"author"`
	Description *string   `json:"description,omitempty"`
}

var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// ValidateBranchName enforces the naming rules: must match
// ^[A-Za-z0-9_][A-Za-z0-9_-]*$, must not end in ".lock", must not contain
// whitespace or path separators (the character class above already excludes
// both, but the explicit checks below keep the rule legible and independent
// of the regex in case it is ever loosened).
func ValidateBranchName(name string) error {
	if name == "" || !branchNamePattern.MatchString(name) {
		return &verrors.InvalidBranchName{Name: name}
	}
	if strings.HasSuffix(name, ".lock") {
		return &verrors.InvalidBranchName{Name: name}
	}
	if strings.ContainsAny(name, " \t\n/\\") {
		return &verrors.InvalidBranchName{Name: name}
	}
	return nil
}
