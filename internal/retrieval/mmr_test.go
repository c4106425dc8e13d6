package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/model"
)

func TestMMRRerank_PrefersDiverseSecondPick(t *testing.T) {
	pool := []candidate{
		{Chunk: model.Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, Relevance: 1.0},
		{Chunk: model.Chunk{ID: "b", Embedding: []float32{0.99, 0.01, 0}}, Relevance: 0.95},
		{Chunk: model.Chunk{ID: "c", Embedding: []float32{0, 1, 0}}, Relevance: 0.7},
	}
	selected := mmrRerank(pool, 2, 0.5, 0.999)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Chunk.ID)
	assert.Equal(t, "c", selected[1].Chunk.ID)
}

func TestMMRRerank_DropsNearDuplicatesBelowThreshold(t *testing.T) {
	pool := []candidate{
		{Chunk: model.Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, Relevance: 1.0},
		{Chunk: model.Chunk{ID: "b", Embedding: []float32{0.999, 0.001, 0}}, Relevance: 0.9},
	}
	selected := mmrRerank(pool, 2, 0.9, 0.9)
	require.Len(t, selected, 1)
	assert.Equal(t, "a", selected[0].Chunk.ID)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
}
