package model

import "github.com/veritaschain/veritaschain/internal/verrors"

// Operator is a logical-clause tag. Each operator has a fixed arity class
// enforced structurally by Validate, not by a separate type hierarchy.
type Operator string

const (
	OpAND          Operator = "AND"
	OpOR           Operator = "OR"
	OpNOT          Operator = "NOT"
	OpIMPLIES      Operator = "IMPLIES"
	OpIFF          Operator = "IFF"
	OpXOR          Operator = "XOR"
	OpSUBSET       Operator = "SUBSET"
	OpUNION        Operator = "UNION"
	OpINTERSECTION Operator = "INTERSECTION"
	OpEXISTS       Operator = "EXISTS"
	OpFORALL       Operator = "FORALL"
	OpGT           Operator = "GT"
	OpLT           Operator = "LT"
	OpEQ           Operator = "EQ"
	OpNEQ          Operator = "NEQ"
	OpGTE          Operator = "GTE"
	OpLTE          Operator = "LTE"
	OpBEFORE       Operator = "BEFORE"
	OpAFTER        Operator = "AFTER"
	OpDURING       Operator = "DURING"
	OpOVERLAPS     Operator = "OVERLAPS"
)

// arityClass describes how many operands an operator accepts.
type arityClass int

const (
	arityUnary      arityClass = iota // exactly 1
	arityBinary                       // exactly 2
	arityVariadicGE2                  // 2 or more
	arityQuantifier                   // exactly 1, optional Variable/Domain
)

var operatorArity = map[Operator]arityClass{
	OpAND:          arityVariadicGE2,
	OpOR:           arityVariadicGE2,
	OpNOT:          arityUnary,
	OpIMPLIES:      arityBinary,
	OpIFF:          arityBinary,
	OpXOR:          arityBinary,
	OpSUBSET:       arityBinary,
	OpUNION:        arityVariadicGE2,
	OpINTERSECTION: arityVariadicGE2,
	OpEXISTS:       arityQuantifier,
	OpFORALL:       arityQuantifier,
	OpGT:           arityBinary,
	OpLT:           arityBinary,
	OpEQ:           arityBinary,
	OpNEQ:          arityBinary,
	OpGTE:          arityBinary,
	OpLTE:          arityBinary,
	OpBEFORE:       arityBinary,
	OpAFTER:        arityBinary,
	OpDURING:       arityBinary,
	OpOVERLAPS:     arityBinary,
}

// SVO is a subject-verb-object triple of content-hash references.
type SVO struct {
	SubjectRef string `json:"subjectRef"`
	VerbRef    string `json:"verbRef"`
	ObjectRef  string `json:"objectRef"`
}

// LogicalClause is a tagged operator over an ordered list of operand statements.
type LogicalClause struct {
	Operator Operator    `json:"operator"`
	Operands []Statement `json:"operands"`
	Variable *string     `json:"variable,omitempty"`
	Domain   *string     `json:"domain,omitempty"`
}

// Statement is either an SVO or a LogicalClause — a tagged union expressed
// as a struct with mutually exclusive optional fields, since Go has no sum
// types. Exactly one of SVO/Clause must be set; Validate enforces this.
type Statement struct {
	SVO    *SVO           `json:"svo,omitempty"`
	Clause *LogicalClause `json:"clause,omitempty"`
}

// IsSVO reports whether this statement is a leaf SVO triple.
func (s Statement) IsSVO() bool { return s.SVO != nil }

// IsClause reports whether this statement is a logical composition.
func (s Statement) IsClause() bool { return s.Clause != nil }

// Validate enforces the structural invariants of a statement tree:
// exactly one of SVO/Clause set, and operator-specific arity for clauses.
func (s Statement) Validate() error {
	switch {
	case s.SVO != nil && s.Clause != nil:
		return &verrors.InvalidStatement{Reason: "statement has both svo and clause"}
	case s.SVO == nil && s.Clause == nil:
		return &verrors.InvalidStatement{Reason: "statement has neither svo nor clause"}
	case s.SVO != nil:
		if s.SVO.SubjectRef == "" || s.SVO.VerbRef == "" || s.SVO.ObjectRef == "" {
			return &verrors.InvalidStatement{Reason: "svo missing a reference"}
		}
		return nil
	default:
		return s.Clause.validate()
	}
}

func (c *LogicalClause) validate() error {
	class, ok := operatorArity[c.Operator]
	if !ok {
		return &verrors.InvalidStatement{Reason: "unknown operator: " + string(c.Operator)}
	}
	n := len(c.Operands)
	switch class {
	case arityUnary, arityQuantifier:
		if n != 1 {
			return &verrors.InvalidStatement{Reason: string(c.Operator) + " requires exactly 1 operand"}
		}
	case arityBinary:
		if n != 2 {
			return &verrors.InvalidStatement{Reason: string(c.Operator) + " requires exactly 2 operands"}
		}
	case arityVariadicGE2:
		if n < 2 {
			return &verrors.InvalidStatement{Reason: string(c.Operator) + " requires at least 2 operands"}
		}
	}
	for _, op := range c.Operands {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	return nil
}
