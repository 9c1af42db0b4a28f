// Package hash implements deterministic canonical serialization and
// SHA-256 content hashing for every stored object kind. Canonical
// JSON sorts keys at every depth, preserves array order, and encodes
// numbers via their original decimal text (via json.Number) so that
// 1.50 and 1.5 cannot silently diverge in hash terms from how they were
// received — both canonicalize through Go's own float/number formatting
// applied once, not reapplied per round-trip.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/veritaschain/veritaschain/internal/verrors"
)

const prefix = "sha256:"

// Sum returns "sha256:" + the hex SHA-256 digest of the canonical encoding
// of v, after stripping the dotted key paths in strip (each path is
// matched against the generic JSON tree, e.g. "metadata.confidence").
func Sum(v any, strip ...string) (string, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return "", fmt.Errorf("hash: marshal: %w", err)
	}
	for _, path := range strip {
		stripPath(generic, strings.Split(path, "."))
	}
	buf := &bytes.Buffer{}
	if err := encodeCanonical(buf, generic); err != nil {
		return "", fmt.Errorf("hash: canonicalize: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return prefix + hex.EncodeToString(sum[:]), nil
}

// toGeneric marshals v to JSON and decodes it back as a generic tree using
// json.Number for numeric literals, so their original textual form survives
// the round trip undisturbed by float64 rounding.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// stripPath removes the key named by the last element of path from the map
// reached by walking the preceding elements. Missing intermediate keys are
// a no-op (the field was already absent).
func stripPath(v any, path []string) {
	if len(path) == 0 {
		return
	}
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	if len(path) == 1 {
		delete(m, path[0])
		return
	}
	next, ok := m[path[0]]
	if !ok {
		return
	}
	stripPath(next, path[1:])
}

// encodeCanonical writes a deterministic JSON encoding: object keys sorted
// lexicographically at every depth, arrays in original order, strings
// escaped via encoding/json, and numbers written via their preserved
// json.Number text.
func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		buf.WriteString(t.String())
		return nil
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("hash: unsupported type %T in canonical tree", v)
	}
}

// Validate reports whether s has the shape "sha256:" + 64 lowercase hex
// characters. Every read and write boundary calls this.
func Validate(s string) error {
	if !strings.HasPrefix(s, prefix) {
		return &verrors.BadHash{Value: s}
	}
	digest := s[len(prefix):]
	if len(digest) != 64 {
		return &verrors.BadHash{Value: s}
	}
	for _, r := range digest {
		isLowerHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isLowerHex {
			return &verrors.BadHash{Value: s}
		}
	}
	return nil
}
