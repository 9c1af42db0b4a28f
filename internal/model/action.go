package model

// DeonticModality is the deontic strength a verb/predicate carries when it
// appears as the verb of a norm statement.
type DeonticModality string

const (
	ModalityShall       DeonticModality = "shall"
	ModalityMay         DeonticModality = "may"
	ModalityMustNot     DeonticModality = "must-not"
	ModalityLiableFor   DeonticModality = "liable-for"
	ModalityEntitledTo  DeonticModality = "entitled-to"
	ModalityShould      DeonticModality = "should"
	ModalityPermitted   DeonticModality = "permitted"
	ModalityProhibited  DeonticModality = "prohibited"
)

// ValidDeonticModality reports whether m is one of the enumerated modalities.
func ValidDeonticModality(m DeonticModality) bool {
	switch m {
	case ModalityShall, ModalityMay, ModalityMustNot, ModalityLiableFor,
		ModalityEntitledTo, ModalityShould, ModalityPermitted, ModalityProhibited:
		return true
	}
	return false
}

// Action represents a verb/predicate concept, analogous to Entity.
type Action struct {
	ID              string           `json:"@id,omitempty"`
	LogicalID       string           `json:"logicalId"`
	Version         string           `json:"version"`
	PreviousVersion *string          `json:"previousVersion,omitempty"`
	CommitHash      string           `json:"commitHash,omitempty"`
	Label           string           `json:"label"`
	Description     *string          `json:"description,omitempty"`
	TypeHint        *string          `json:"typeHint,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Modality        *DeonticModality `json:"modality,omitempty"`
	Valency         *string          `json:"valency,omitempty"`
	Properties      map[string]any   `json:"properties,omitempty"`
	Aliases         []string         `json:"aliases,omitempty"`
}

// Clone returns a deep-enough copy safe to mutate independently.
func (a Action) Clone() Action {
	c := a
	if a.PreviousVersion != nil {
		v := *a.PreviousVersion
		c.PreviousVersion = &v
	}
	if a.Description != nil {
		v := *a.Description
		c.Description = &v
	}
	if a.TypeHint != nil {
		v := *a.TypeHint
		c.TypeHint = &v
	}
	if a.Category != nil {
		v := *a.Category
		c.Category = &v
	}
	if a.Modality != nil {
		v := *a.Modality
		c.Modality = &v
	}
	if a.Valency != nil {
		v := *a.Valency
		c.Valency = &v
	}
	if a.Properties != nil {
		c.Properties = make(map[string]any, len(a.Properties))
		for k, v := range a.Properties {
			c.Properties[k] = v
		}
	}
	if a.Aliases != nil {
		c.Aliases = append([]string(nil), a.Aliases...)
	}
	return c
}
