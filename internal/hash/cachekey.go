package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// CacheKey derives the short key for a confidence cache entry (the LRU key
// and the SQLite row key) from (eventHash, commitHash). blake2b-128 gives a
// short, fast, non-cryptographic-strength-required digest distinct from the
// SHA-256 content-addressing scheme used for objects, so cache keys are
// visually and mechanically distinguishable from object hashes.
func CacheKey(eventHash, commitHash string) string {
	h, _ := blake2b.New(16, nil) // fixed 16-byte digest, no key; error only on bad size/key
	_, _ = h.Write([]byte(eventHash))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(commitHash))
	return hex.EncodeToString(h.Sum(nil))
}
