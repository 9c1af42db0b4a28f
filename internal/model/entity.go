// Package model defines the typed object model shared by every core
// component: entities, actions, statements, events, trees, commits and
// branches. Entities and actions are deliberately opaque property bags
// distinguished by semantics, not by class hierarchy — there is no base
// "Node" type and no inheritance between them.
package model

// Entity represents a noun-like concept: a person, organization, place, or
// any other subject/object participant in a Statement. Entities are
// immutable once stored — a change is always a new version sharing the
// same LogicalID.
type Entity struct {
	ID              string            `json:"@id,omitempty"`
	LogicalID       string            `json:"logicalId"`
	Version         string            `json:"version"`
	PreviousVersion *string           `json:"previousVersion,omitempty"`
	CommitHash      string            `json:"commitHash,omitempty"`
	Label           string            `json:"label"`
	Description     *string           `json:"description,omitempty"`
	TypeHint        *string           `json:"typeHint,omitempty"`
	Properties      map[string]any    `json:"properties,omitempty"`
	Aliases         []string          `json:"aliases,omitempty"`
	Identifiers     map[string]string `json:"identifiers,omitempty"`
}

// Clone returns a deep-enough copy safe to mutate independently (used by
// the merge engine when materializing a merged tree).
func (e Entity) Clone() Entity {
	c := e
	if e.PreviousVersion != nil {
		v := *e.PreviousVersion
		c.PreviousVersion = &v
	}
	if e.Description != nil {
		v := *e.Description
		c.Description = &v
	}
	if e.TypeHint != nil {
		v := *e.TypeHint
		c.TypeHint = &v
	}
	if e.Properties != nil {
		c.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			c.Properties[k] = v
		}
	}
	if e.Aliases != nil {
		c.Aliases = append([]string(nil), e.Aliases...)
	}
	if e.Identifiers != nil {
		c.Identifiers = make(map[string]string, len(e.Identifiers))
		for k, v := range e.Identifiers {
			c.Identifiers[k] = v
		}
	}
	return c
}
