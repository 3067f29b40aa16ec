package kvlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeIgnoreExpiry(t *testing.T) {
	assert.False(t, ConsiderExpiryDate.ignoreExpiry())
	assert.True(t, IgnoreExpiryDate.ignoreExpiry())
}

func TestLifetimeTagging(t *testing.T) {
	var l Lifetime = Timed{UTCExpiry: 100}
	_, isTimed := l.(Timed)
	assert.True(t, isTimed)

	l = Sliding{IntervalSeconds: 30}
	_, isSliding := l.(Sliding)
	assert.True(t, isSliding)

	l = Static{}
	_, isStatic := l.(Static)
	assert.True(t, isStatic)
}
