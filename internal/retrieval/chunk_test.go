package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/model"
)

func TestSplitSentences_Basic(t *testing.T) {
	sentences := splitSentences("First sentence. Second sentence! Third one? Yes.")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First sentence.", sentences[0])
}

func TestChunkSentences_RespectsOverlap(t *testing.T) {
	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, fmt.Sprintf("%smarker%d.", strings.Repeat("word ", 9), i))
	}
	chunks := chunkSentences(sentences, 256)
	require.Greater(t, len(chunks), 1)

	// the last sentence of chunk 0 should reappear at the head of chunk 1
	lastOfFirst := sentences[indexOfLastSentenceIn(chunks[0], sentences)]
	assert.Contains(t, chunks[1], lastOfFirst)
}

func indexOfLastSentenceIn(chunk string, sentences []string) int {
	last := -1
	for i, s := range sentences {
		if strings.Contains(chunk, s) {
			last = i
		}
	}
	return last
}

func TestChunkDocument_ProducesAllSizeClasses(t *testing.T) {
	text := strings.Repeat("This is a sentence about science. ", 200)
	byClass := ChunkDocument("doc1", text)

	for _, sc := range SizeClasses() {
		chunks, ok := byClass[sc]
		require.True(t, ok)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.Equal(t, "doc1", c.Source)
			assert.Equal(t, sc, c.SizeClass)
			assert.Greater(t, c.Metadata.WordCount, 0)
		}
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, model.ContentCode, detectContentType("```go\nfunc main() {}\n```"))
	assert.Equal(t, model.ContentTable, detectContentType("| a | b |\n| 1 | 2 |"))
	assert.Equal(t, model.ContentSection, detectContentType("# Introduction\nSome text."))
	assert.Equal(t, model.ContentText, detectContentType("Just a plain paragraph of prose."))
}
