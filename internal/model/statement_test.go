package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func svoStatement() Statement {
	return Statement{SVO: &SVO{SubjectRef: "sha256:a", VerbRef: "sha256:b", ObjectRef: "sha256:c"}}
}

func TestStatement_SVOValid(t *testing.T) {
	assert.NoError(t, svoStatement().Validate())
}

func TestStatement_BothSetIsInvalid(t *testing.T) {
	s := svoStatement()
	s.Clause = &LogicalClause{Operator: OpNOT, Operands: []Statement{svoStatement()}}
	assert.Error(t, s.Validate())
}

func TestStatement_NeitherSetIsInvalid(t *testing.T) {
	assert.Error(t, Statement{}.Validate())
}

func TestStatement_OperatorArity(t *testing.T) {
	tests := []struct {
		name     string
		operator Operator
		operands int
		wantErr  bool
	}{
		{"NOT with one operand", OpNOT, 1, false},
		{"NOT with two operands", OpNOT, 2, true},
		{"AND with two operands", OpAND, 2, false},
		{"AND with one operand", OpAND, 1, true},
		{"IMPLIES with two operands", OpIMPLIES, 2, false},
		{"IMPLIES with three operands", OpIMPLIES, 3, true},
		{"EXISTS with one operand", OpEXISTS, 1, false},
		{"UNION with two operands", OpUNION, 2, false},
		{"UNION with zero operands", OpUNION, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			operands := make([]Statement, tc.operands)
			for i := range operands {
				operands[i] = svoStatement()
			}
			s := Statement{Clause: &LogicalClause{Operator: tc.operator, Operands: operands}}
			err := s.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatement_UnknownOperator(t *testing.T) {
	s := Statement{Clause: &LogicalClause{Operator: "BOGUS", Operands: []Statement{svoStatement()}}}
	assert.Error(t, s.Validate())
}

func TestStatement_NestedClauseValidatesChildren(t *testing.T) {
	bad := Statement{Clause: &LogicalClause{Operator: OpNOT}} // zero operands, invalid
	s := Statement{Clause: &LogicalClause{Operator: OpAND, Operands: []Statement{svoStatement(), bad}}}
	assert.Error(t, s.Validate())
}
