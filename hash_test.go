package kvlite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	fp1, p1, k1 := fingerprint("users", "alice", 255, 255)
	fp2, p2, k2 := fingerprint("users", "alice", 255, 255)
	assert.Equal(t, fp1, fp2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, k1, k2)
}

func TestFingerprintDistinguishesPartitionFromKey(t *testing.T) {
	// Swapping partition and key must not collide, or the high/low halves
	// of the composite identifier would be interchangeable.
	fpA, _, _ := fingerprint("alpha", "beta", 255, 255)
	fpB, _, _ := fingerprint("beta", "alpha", 255, 255)
	assert.NotEqual(t, fpA, fpB)
}

func TestFingerprintTruncatesBeforeHashing(t *testing.T) {
	long := strings.Repeat("x", 300)
	fp, truncPartition, _ := fingerprint(long, "k", 10, 255)
	assert.Len(t, truncPartition, 10)

	fpAgain, _, _ := fingerprint(strings.Repeat("x", 10), "k", 10, 255)
	assert.Equal(t, fpAgain, fp, "truncation must happen before hashing so equal prefixes hash equal")
}

func TestTruncateNoLimitIsNoop(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 0))
	assert.Equal(t, "hello", truncate("hello", -1))
}

func TestTruncateShortensLongStrings(t *testing.T) {
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "hi", truncate("hi", 3))
}
