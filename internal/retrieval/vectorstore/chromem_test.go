package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewChromemStore()
	require.NoError(t, s.CreateCollection(ctx, "size_256"))

	require.NoError(t, s.Upsert(ctx, "size_256", "a", []float32{1, 0, 0}, "alpha text", map[string]string{"source": "doc1"}))
	require.NoError(t, s.Upsert(ctx, "size_256", "b", []float32{0, 1, 0}, "beta text", map[string]string{"source": "doc2"}))

	results, err := s.Search(ctx, "size_256", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestChromemStore_DeleteByMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewChromemStore()
	require.NoError(t, s.Upsert(ctx, "c", "a", []float32{1, 0}, "x", map[string]string{"source": "doc1"}))
	require.NoError(t, s.Upsert(ctx, "c", "b", []float32{0, 1}, "y", map[string]string{"source": "doc2"}))

	require.NoError(t, s.DeleteByMetadata(ctx, "c", map[string]string{"source": "doc1"}))

	results, err := s.Search(ctx, "c", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestChromemStore_SearchOnEmptyCollection(t *testing.T) {
	ctx := context.Background()
	s := NewChromemStore()
	results, err := s.Search(ctx, "empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
