package postgres

import (
	"encoding/json"

	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
)

// adapter is the per-kind projection the generic kindStore needs: how to
// (de)serialize and, for versioned kinds, how to read the logical id and
// version-chain pointer. Mirrors store/fs's adapter so both backends stay
// interchangeable behind store.ObjectStore.
type adapter[T any] interface {
	Marshal(T) ([]byte, error)
	Unmarshal([]byte) (T, error)
	Hash(T) (string, error)
	LogicalID(T) string
	Previous(T) *string
}

func marshalJSON[T any](v T) ([]byte, error) { return json.Marshal(v) }

type entityAdapter struct{}

func (entityAdapter) Marshal(e model.Entity) ([]byte, error) { return marshalJSON(e) }
func (entityAdapter) Unmarshal(b []byte) (model.Entity, error) {
	var e model.Entity
	err := json.Unmarshal(b, &e)
	return e, err
}
func (entityAdapter) Hash(e model.Entity) (string, error) { return hash.Entity(e) }
func (entityAdapter) LogicalID(e model.Entity) string     { return e.LogicalID }
func (entityAdapter) Previous(e model.Entity) *string     { return e.PreviousVersion }

type actionAdapter struct{}

func (actionAdapter) Marshal(a model.Action) ([]byte, error) { return marshalJSON(a) }
func (actionAdapter) Unmarshal(b []byte) (model.Action, error) {
	var a model.Action
	err := json.Unmarshal(b, &a)
	return a, err
}
func (actionAdapter) Hash(a model.Action) (string, error) { return hash.Action(a) }
func (actionAdapter) LogicalID(a model.Action) string     { return a.LogicalID }
func (actionAdapter) Previous(a model.Action) *string     { return a.PreviousVersion }

type eventAdapter struct{}

func (eventAdapter) Marshal(e model.Event) ([]byte, error) { return marshalJSON(e) }
func (eventAdapter) Unmarshal(b []byte) (model.Event, error) {
	var e model.Event
	err := json.Unmarshal(b, &e)
	return e, err
}
func (eventAdapter) Hash(e model.Event) (string, error) { return hash.Event(e) }
func (eventAdapter) LogicalID(e model.Event) string     { return e.LogicalID }
func (eventAdapter) Previous(e model.Event) *string     { return e.PreviousVersion }

type commitAdapter struct{}

func (commitAdapter) Marshal(c model.Commit) ([]byte, error) { return marshalJSON(c) }
func (commitAdapter) Unmarshal(b []byte) (model.Commit, error) {
	var c model.Commit
	err := json.Unmarshal(b, &c)
	return c, err
}
func (commitAdapter) Hash(c model.Commit) (string, error) { return hash.Commit(c) }
func (commitAdapter) LogicalID(model.Commit) string       { return "" }
func (commitAdapter) Previous(model.Commit) *string       { return nil }

type treeAdapter struct{}

func (treeAdapter) Marshal(t model.Tree) ([]byte, error) { return marshalJSON(t) }
func (treeAdapter) Unmarshal(b []byte) (model.Tree, error) {
	var t model.Tree
	err := json.Unmarshal(b, &t)
	return t, err
}
func (treeAdapter) Hash(t model.Tree) (string, error) { return hash.Tree(t) }
func (treeAdapter) LogicalID(model.Tree) string       { return "" }
func (treeAdapter) Previous(model.Tree) *string       { return nil }
