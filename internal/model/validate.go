package model

import "github.com/veritaschain/veritaschain/internal/verrors"

// ValidateEvent checks the structural invariants placed on an event that
// are not already enforced by the Go type system: non-empty logical id, no
// self-referential component, statement well-formedness, importance range,
// and modifier enum closure. It does not resolve components or check
// cross-version cycles — that is the event algebra's job.
func ValidateEvent(e *Event) error {
	if e.LogicalID == "" {
		return &verrors.InvalidModifier{Field: "logicalId"}
	}
	for _, c := range e.Components {
		if c.LogicalID == e.LogicalID {
			return &verrors.InvalidModifier{Field: "components"}
		}
	}
	if err := e.Statement.Validate(); err != nil {
		return err
	}
	if e.Importance != nil && (*e.Importance < 1 || *e.Importance > 5) {
		return &verrors.InvalidModifier{Field: "importance"}
	}
	if e.Kind != "" && e.Kind != KindFact && e.Kind != KindNorm {
		return &verrors.InvalidModifier{Field: "kind"}
	}
	if agg := e.Aggregation; agg != "" {
		switch agg {
		case AggregationALL, AggregationANY, AggregationORDERED, AggregationCUSTOM:
		default:
			return &verrors.InvalidModifier{Field: "aggregation"}
		}
	}
	if e.Aggregation == AggregationCUSTOM && (e.CustomRuleID == nil || *e.CustomRuleID == "") {
		return &verrors.InvalidModifier{Field: "customRuleId"}
	}
	if c := e.Modifiers.Certainty; c != nil && c.Evidence != nil {
		if !validEvidence(*c.Evidence) {
			return &verrors.InvalidModifier{Field: "certainty.evidence"}
		}
	}
	if c := e.Modifiers.Certainty; c != nil && c.Reliability != nil {
		if !validReliability(*c.Reliability) {
			return &verrors.InvalidModifier{Field: "certainty.reliability"}
		}
	}
	if l := e.Modifiers.Legal; l != nil && l.NormForce != nil {
		if !validNormForce(*l.NormForce) {
			return &verrors.InvalidModifier{Field: "legal.normForce"}
		}
	}
	return nil
}

func validEvidence(v Evidence) bool {
	switch v {
	case EvidencePrimary, EvidenceOfficial, EvidenceConfirmed, EvidenceSecondary,
		EvidenceReported, EvidenceRumored, EvidenceSpeculated:
		return true
	}
	return false
}

func validReliability(v Reliability) bool {
	switch v {
	case ReliabilityLow, ReliabilityMedium, ReliabilityHigh, ReliabilityVerified:
		return true
	}
	return false
}

func validNormForce(v NormForce) bool {
	switch v {
	case NormForceMandatory, NormForceDefault, NormForceAdvisory:
		return true
	}
	return false
}
