package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/model"
)

func TestBM25Index_RanksExactTermMatchHigher(t *testing.T) {
	idx := newBM25Index()
	idx.Rebuild([]model.Chunk{
		{ID: "a", Text: "the quick brown fox jumps over the lazy dog"},
		{ID: "b", Text: "an unrelated sentence about cooking pasta"},
	})

	results := idx.Search("fox jumps", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
}

func TestBM25Index_InvalidateTriggersRebuildFlag(t *testing.T) {
	idx := newBM25Index()
	idx.Rebuild([]model.Chunk{{ID: "a", Text: "hello world"}})
	assert.False(t, idx.needsRebuild())
	idx.Invalidate()
	assert.True(t, idx.needsRebuild())
}

func TestNormalizeByMax_ScalesToUnitRange(t *testing.T) {
	scores := []scoredID{{ID: "a", Score: 4}, {ID: "b", Score: 2}}
	norm := normalizeByMax(scores)
	assert.Equal(t, 1.0, norm["a"])
	assert.Equal(t, 0.5, norm["b"])
}
