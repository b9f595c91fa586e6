// Package blob provides content hashing for binary payloads and derivation of
// the cache keys used to deduplicate identification requests.
package blob

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest computes the BLAKE3-256 digest of data, hex encoded. The digest is a
// pure function of the bytes: identical blobs always produce identical
// digests regardless of call order or timing.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey derives the dedupe key for an identification request from the
// original pre-optimization image bytes and the request's context label.
// Keying on the original bytes means repeated submissions of the same photo
// collapse to one key even when optimization parameters change between them.
//
// A zero byte separates data from label so (data, label) pairs cannot collide
// by shifting bytes between the two.
func CacheKey(data []byte, contextLabel string) string {
	h := blake3.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(contextLabel))
	return hex.EncodeToString(h.Sum(nil))
}
