// Package confidence implements the transparent confidence engine (C4): the
// deterministic leaf formula (1-V)*E*S*N, volatility estimation from change
// history, compositional aggregation over the event algebra's resolved
// components, and a commit-scoped cache.
package confidence

import (
	"fmt"

	"github.com/veritaschain/veritaschain/internal/model"
)

// evidenceFactor implements the E table.
func evidenceFactor(c *model.CertaintyModifier) (float64, string) {
	if c == nil || c.Evidence == nil {
		return 0.7, "no evidence recorded, default 0.7"
	}
	switch *c.Evidence {
	case model.EvidencePrimary:
		return 1.0, "primary evidence"
	case model.EvidenceOfficial:
		return 1.0, "official evidence"
	case model.EvidenceConfirmed:
		return 0.95, "confirmed evidence"
	case model.EvidenceSecondary:
		return 0.85, "secondary evidence"
	case model.EvidenceReported:
		return 0.8, "reported evidence"
	case model.EvidenceRumored:
		return 0.6, "rumored evidence"
	case model.EvidenceSpeculated:
		return 0.4, "speculated evidence"
	default:
		return 0.7, "unrecognized evidence value, default 0.7"
	}
}

// sourceFactor implements the S table (facts) / legal-hierarchy-weight table
// (norms).
func sourceFactor(kind model.EventKind, src *model.SourceInfo) (float64, string) {
	if kind == model.KindNorm {
		return legalHierarchyWeight(src)
	}
	if src == nil || src.Type == nil {
		return 1.0, "no source type recorded, default 1.0"
	}
	switch *src.Type {
	case model.SourceAcademic:
		return 1.0, "academic source"
	case model.SourceGovernment:
		return 0.95, "government source"
	case model.SourceNewsAgency:
		return 0.9, "news agency source"
	case model.SourceCorporate:
		return 0.8, "corporate source"
	case model.SourceSocial:
		return 0.7, "social source"
	default:
		return 1.0, "unrecognized source type, default 1.0"
	}
}

func legalHierarchyWeight(src *model.SourceInfo) (float64, string) {
	if src == nil || src.LegalType == nil {
		return 0.8, "no legal type recorded, default 0.8"
	}
	switch *src.LegalType {
	case model.LegalConstitution:
		return 1.0, "constitutional authority"
	case model.LegalStatute:
		return 0.95, "statutory authority"
	case model.LegalRegulation:
		return 0.9, "regulatory authority"
	case model.LegalCaseLaw:
		return 0.85, "case-law authority"
	case model.LegalContract:
		return 0.8, "contractual authority"
	case model.LegalPolicy:
		return 0.75, "policy authority"
	default:
		return 0.8, "unrecognized legal type, default 0.8"
	}
}

// normForceFactor implements the N table; facts always carry N=1.
func normForceFactor(kind model.EventKind, legal *model.LegalModifier) (float64, string) {
	if kind != model.KindNorm {
		return 1.0, "facts carry no norm-force multiplier"
	}
	if legal == nil || legal.NormForce == nil {
		return 0.7, "no norm force recorded, default to 'default' force 0.7"
	}
	switch *legal.NormForce {
	case model.NormForceMandatory:
		return 1.0, "mandatory norm force"
	case model.NormForceDefault:
		return 0.7, "default norm force"
	case model.NormForceAdvisory:
		return 0.4, "advisory norm force"
	default:
		return 0.7, "unrecognized norm force, default 0.7"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formulaString(v, e, s, n float64) string {
	return fmt.Sprintf("(1 - %.3f) * %.3f * %.3f * %.3f", v, e, s, n)
}
