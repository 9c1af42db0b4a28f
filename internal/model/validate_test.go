package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validEvent() Event {
	return Event{LogicalID: "e1", Version: "1.0", Statement: svoStatement()}
}

func TestValidateEvent_Valid(t *testing.T) {
	e := validEvent()
	assert.NoError(t, ValidateEvent(&e))
}

func TestValidateEvent_EmptyLogicalIDRejected(t *testing.T) {
	e := validEvent()
	e.LogicalID = ""
	assert.Error(t, ValidateEvent(&e))
}

func TestValidateEvent_SelfReferentialComponentRejected(t *testing.T) {
	e := validEvent()
	e.Components = []ComponentRef{{LogicalID: "e1"}}
	assert.Error(t, ValidateEvent(&e))
}

func TestValidateEvent_DistinctComponentAccepted(t *testing.T) {
	e := validEvent()
	e.Components = []ComponentRef{{LogicalID: "e2"}}
	assert.NoError(t, ValidateEvent(&e))
}

func TestValidateEvent_ImportanceOutOfRangeRejected(t *testing.T) {
	e := validEvent()
	n := 6
	e.Importance = &n
	assert.Error(t, ValidateEvent(&e))
}

func TestValidateEvent_UnknownAggregationRejected(t *testing.T) {
	e := validEvent()
	e.Aggregation = "BOGUS"
	assert.Error(t, ValidateEvent(&e))
}

func TestValidateEvent_CustomAggregationRequiresRuleID(t *testing.T) {
	e := validEvent()
	e.Aggregation = AggregationCUSTOM
	assert.Error(t, ValidateEvent(&e))

	ruleID := "rule-1"
	e.CustomRuleID = &ruleID
	assert.NoError(t, ValidateEvent(&e))
}
