package retrieval

import (
	"math"

	"github.com/paperloom/core/internal/model"
)

// DefaultMMRLambda balances relevance against diversity in the greedy
// selection, per spec.md §4.3 stage 3.
const DefaultMMRLambda = 0.7

type candidate struct {
	Chunk     model.Chunk
	Relevance float64
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// mmrRerank greedily selects up to topK candidates maximizing
// λ·relevance + (1−λ)·diversity, then drops any selected chunk whose
// similarity to an earlier-selected chunk exceeds similarityThreshold.
func mmrRerank(pool []candidate, topK int, lambda, similarityThreshold float64) []candidate {
	if len(pool) == 0 {
		return nil
	}

	remaining := make([]candidate, len(pool))
	copy(remaining, pool)

	var selected []candidate
	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, c := range remaining {
			diversity := 1.0
			for _, s := range selected {
				sim := cosineSimilarity(c.Chunk.Embedding, s.Chunk.Embedding)
				if sim > 1-diversity {
					diversity = 1 - sim
				}
			}
			score := lambda*c.Relevance + (1-lambda)*diversity
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	var deduped []candidate
	for _, c := range selected {
		tooClose := false
		for _, kept := range deduped {
			if cosineSimilarity(c.Chunk.Embedding, kept.Chunk.Embedding) > similarityThreshold {
				tooClose = true
				break
			}
		}
		if !tooClose {
			deduped = append(deduped, c)
		}
	}
	return deduped
}
