package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount_NonEmpty(t *testing.T) {
	assert.Greater(t, Count("the quick brown fox jumps over the lazy dog"), 0)
}

func TestCount_Empty(t *testing.T) {
	assert.Equal(t, 0, Count(""))
}

func TestCount_Monotonic(t *testing.T) {
	short := Count("hello")
	long := Count("hello there, this is a much longer sentence with many more tokens")
	assert.Greater(t, long, short)
}
