package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/paperloom/core/internal/model"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

type bm25Doc struct {
	id     string
	tokens []string
	freq   map[string]int
}

// bm25Index is a lowercased-whitespace-tokenized BM25 index, rebuilt
// lazily when the chunk list it was built from changes. Grounded on the
// teacher's SearchEngine's lazy-rebuild-on-mutation discipline in
// pkg/context/search.go.
type bm25Index struct {
	mu        sync.RWMutex
	docs      []bm25Doc
	docByID   map[string]int
	df        map[string]int
	avgDocLen float64
	dirty     bool
}

func newBM25Index() *bm25Index {
	return &bm25Index{docByID: map[string]int{}, df: map[string]int{}}
}

// Invalidate marks the index stale; the next Search call rebuilds it.
// Callers hold the global retrieval lock while mutating the backing
// chunk list, so rebuild itself does not need its own write lock beyond
// protecting concurrent readers.
func (idx *bm25Index) Invalidate() {
	idx.mu.Lock()
	idx.dirty = true
	idx.mu.Unlock()
}

func (idx *bm25Index) Rebuild(chunks []model.Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.docs = make([]bm25Doc, 0, len(chunks))
	idx.docByID = make(map[string]int, len(chunks))
	idx.df = map[string]int{}

	var totalLen int
	for _, c := range chunks {
		tokens := tokenize(c.Text)
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		doc := bm25Doc{id: c.ID, tokens: tokens, freq: freq}
		idx.docByID[c.ID] = len(idx.docs)
		idx.docs = append(idx.docs, doc)
		totalLen += len(tokens)
		for t := range freq {
			idx.df[t]++
		}
	}
	if len(idx.docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.docs))
	} else {
		idx.avgDocLen = 0
	}
	idx.dirty = false
}

func (idx *bm25Index) needsRebuild() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dirty
}

type scoredID struct {
	ID    string
	Score float64
}

// Search returns the topK highest-scoring documents for query, assuming
// the index is current (callers rebuild first if Invalidate was called).
func (idx *bm25Index) Search(query string, topK int) []scoredID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	qTokens := tokenize(query)
	n := float64(len(idx.docs))
	if n == 0 {
		return nil
	}

	scores := make([]scoredID, 0, len(idx.docs))
	for _, doc := range idx.docs {
		var score float64
		docLen := float64(len(doc.tokens))
		for _, qt := range qTokens {
			f := float64(doc.freq[qt])
			if f == 0 {
				continue
			}
			df := float64(idx.df[qt])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			denom := f + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen)
			score += idf * (f * (bm25K1 + 1)) / denom
		}
		if score > 0 {
			scores = append(scores, scoredID{ID: doc.id, Score: score})
		}
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}

// normalizeByMax rescales scores into [0,1] by dividing by the maximum,
// per spec.md §4.3's "BM25 by max" normalization rule.
func normalizeByMax(scores []scoredID) map[string]float64 {
	out := make(map[string]float64, len(scores))
	var max float64
	for _, s := range scores {
		if s.Score > max {
			max = s.Score
		}
	}
	if max == 0 {
		return out
	}
	for _, s := range scores {
		out[s.ID] = s.Score / max
	}
	return out
}
