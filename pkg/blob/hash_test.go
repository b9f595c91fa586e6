package blob

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest_Stable(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0xCD}, 512)

	first := Digest(data)
	second := Digest(data)

	assert.Equal(t, first, second, "same bytes must hash identically")
	assert.Len(t, first, 64, "BLAKE3-256 hex digest is 64 characters")
}

func TestDigest_DistinguishesContent(t *testing.T) {
	assert.NotEqual(t, Digest([]byte("leaf photo A")), Digest([]byte("leaf photo B")))
	assert.NotEqual(t, Digest(nil), Digest([]byte{0}))
}

func TestCacheKey_StableAcrossCalls(t *testing.T) {
	image := bytes.Repeat([]byte{0x42}, 2048)

	keys := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		keys[CacheKey(image, "tomato")] = struct{}{}
	}

	assert.Len(t, keys, 1, "identical bytes and label must always produce the same key")
}

func TestCacheKey_LabelChangesKey(t *testing.T) {
	image := []byte("same image bytes")

	assert.NotEqual(t, CacheKey(image, "tomato"), CacheKey(image, "potato"))
	assert.NotEqual(t, CacheKey(image, "tomato"), CacheKey(image, ""))
}

func TestCacheKey_NoBoundaryCollision(t *testing.T) {
	// Shifting bytes between data and label must not collide.
	a := CacheKey([]byte("ab"), "c")
	b := CacheKey([]byte("a"), "bc")

	assert.NotEqual(t, a, b)
}

func TestCacheKey_DiffersFromBareDigest(t *testing.T) {
	image := []byte("same image bytes")

	assert.NotEqual(t, Digest(image), CacheKey(image, "tomato"))
}
