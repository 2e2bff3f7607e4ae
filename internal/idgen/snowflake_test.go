package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUnique(t *testing.T) {
	require.NoError(t, Init(7))
	seen := make(map[uint64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestInitRejectsOutOfRangeNode(t *testing.T) {
	assert.Error(t, Init(4096))
}
