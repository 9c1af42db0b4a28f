package hash

import "github.com/veritaschain/veritaschain/internal/model"

// Derived/self-referential fields excluded from every object's content
// hash. "@id" is self-referential by construction. Each
// object's CommitHash is assigned only after the commit that introduces it
// exists — the write path computes an object's content hash, stores it,
// and only then folds it into a tree and a commit — so CommitHash
// cannot be part of the object's own hash input without a forward
// reference.
var commonStrip = []string{"@id", "commitHash"}

// Entity projects e to its hashable subset and returns its content hash.
func Entity(e model.Entity) (string, error) {
	return Sum(e, commonStrip...)
}

// Action projects a to its hashable subset and returns its content hash.
func Action(a model.Action) (string, error) {
	return Sum(a, commonStrip...)
}

// Event projects ev to its hashable subset and returns its content hash.
// metadata.confidence and cachedDepth are derived-confidence/depth outputs
// of the confidence engine and event algebra respectively
// and are stripped alongside the common fields.
func Event(ev model.Event) (string, error) {
	strip := append(append([]string(nil), commonStrip...), "metadata.confidence", "cachedDepth")
	return Sum(ev, strip...)
}

// Tree returns the content hash of a tree snapshot.
func Tree(t model.Tree) (string, error) {
	return Sum(t, "@id")
}

// Commit returns the content hash of a commit record.
func Commit(c model.Commit) (string, error) {
	return Sum(c, "@id")
}
