package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/model"
	"github.com/paperloom/core/internal/retrieval/vectorstore"
	"github.com/paperloom/core/internal/tokencount"
)

// Embedder is the subset of the LLM Gateway the engine depends on,
// narrowed per spec.md §2's "Retrieval Engine depends on Gateway for
// embeddings".
type Embedder interface {
	Embeddings(ctx context.Context, modelName string, input []string) ([][]float32, error)
}

// Config controls recall, rerank, and packing behavior. All fields have
// the defaults spec.md §4.3/§4.4 names in parentheses.
type Config struct {
	EmbeddingModel      string
	TopK                int     // default 10
	VecWeight           float64 // w_vec, default 0.6
	BM25Weight          float64 // w_bm25, default 0.4
	MMRLambda           float64 // default 0.7
	SimilarityThreshold float64 // near-duplicate drop, default 0.92
	CoverageThreshold   float64 // needs_more trigger, default 0.5
	MaxDocuments        int     // LRU eviction trigger, default 200
}

// DefaultConfig returns the engine defaults named in spec.md §4.3/§4.4.
func DefaultConfig(embeddingModel string) Config {
	return Config{
		EmbeddingModel:      embeddingModel,
		TopK:                10,
		VecWeight:           0.6,
		BM25Weight:          0.4,
		MMRLambda:           DefaultMMRLambda,
		SimilarityThreshold: 0.92,
		CoverageThreshold:   0.5,
		MaxDocuments:        200,
	}
}

type sourceEntry struct {
	lastAccess  time.Time
	isPermanent bool
}

// Engine is the Retrieval Engine (spec.md §4.3): one dense collection and
// one BM25 index per size class, a global retrieval lock serializing all
// writes, and per-source LRU eviction. Grounded on the teacher's
// pkg/context/search.go SearchEngine shape.
type Engine struct {
	cfg      Config
	embedder Embedder
	store    vectorstore.Store
	logger   *slog.Logger
	rewriter *queryRewriter

	mu sync.Mutex // global retrieval lock (spec.md §5)

	bm25   map[model.SizeClass]*bm25Index
	chunks map[model.SizeClass][]model.Chunk

	sourcesMu sync.Mutex
	sources   map[string]*sourceEntry
}

func New(embedder Embedder, store vectorstore.Store, logger *slog.Logger, cfg Config) *Engine {
	bm := make(map[model.SizeClass]*bm25Index, len(SizeClasses()))
	ch := make(map[model.SizeClass][]model.Chunk, len(SizeClasses()))
	for _, sc := range SizeClasses() {
		bm[sc] = newBM25Index()
		ch[sc] = nil
	}
	return &Engine{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		logger:   logger,
		rewriter: newQueryRewriter(),
		bm25:     bm,
		chunks:   ch,
		sources:  map[string]*sourceEntry{},
	}
}

// Ingest normalizes, chunks, embeds, and indexes a document under source
// at every configured size class. Held for the full operation under the
// global retrieval lock so no reader observes a partial index, per
// spec.md §4.3 "Concurrency" and §5.
func (e *Engine) Ingest(ctx context.Context, source, rawText string, isPermanent bool) error {
	normalized := NormalizeDocument(rawText)
	perClass := ChunkDocument(source, normalized)

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sc := range SizeClasses() {
		chunks := perClass[sc]
		if len(chunks) == 0 {
			continue
		}
		coll := collectionName(sc)
		if err := e.store.CreateCollection(ctx, coll); err != nil {
			return fmt.Errorf("retrieval: create collection %s: %w", coll, err)
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := e.embedder.Embeddings(ctx, e.cfg.EmbeddingModel, texts)
		if err != nil {
			return fmt.Errorf("retrieval: embed %s at %s: %w", source, coll, err)
		}

		for i := range chunks {
			chunks[i].Embedding = vectors[i]
			chunks[i].IsPermanent = isPermanent
			meta := map[string]string{
				"source":       source,
				"content_type": string(chunks[i].Metadata.Type),
			}
			if err := e.store.Upsert(ctx, coll, chunks[i].ID, vectors[i], chunks[i].Text, meta); err != nil {
				return fmt.Errorf("retrieval: upsert %s: %w", chunks[i].ID, err)
			}
		}

		e.chunks[sc] = replaceSourceChunks(e.chunks[sc], source, chunks)
		e.bm25[sc].Rebuild(e.chunks[sc])
	}

	e.touchSource(source, isPermanent)
	e.evictIfNeeded(ctx)
	return nil
}

// RemoveSource deletes every chunk belonging to source across all size
// classes, under the global retrieval lock.
func (e *Engine) RemoveSource(ctx context.Context, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeSourceLocked(ctx, source)
}

func (e *Engine) removeSourceLocked(ctx context.Context, source string) error {
	for _, sc := range SizeClasses() {
		coll := collectionName(sc)
		if err := e.store.DeleteByMetadata(ctx, coll, map[string]string{"source": source}); err != nil {
			return fmt.Errorf("retrieval: delete source %s from %s: %w", source, coll, err)
		}
		e.chunks[sc] = replaceSourceChunks(e.chunks[sc], source, nil)
		e.bm25[sc].Rebuild(e.chunks[sc])
	}
	e.sourcesMu.Lock()
	delete(e.sources, source)
	e.sourcesMu.Unlock()
	return nil
}

func replaceSourceChunks(existing []model.Chunk, source string, replacement []model.Chunk) []model.Chunk {
	out := make([]model.Chunk, 0, len(existing)+len(replacement))
	for _, c := range existing {
		if c.Source != source {
			out = append(out, c)
		}
	}
	return append(out, replacement...)
}

func (e *Engine) touchSource(source string, isPermanent bool) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	entry, ok := e.sources[source]
	if !ok {
		entry = &sourceEntry{isPermanent: isPermanent}
		e.sources[source] = entry
	}
	entry.lastAccess = time.Now()
	if isPermanent {
		entry.isPermanent = true
	}
}

// evictIfNeeded drops the least-recently-accessed non-permanent source
// once the document count exceeds MaxDocuments. Callers already hold the
// global retrieval lock.
func (e *Engine) evictIfNeeded(ctx context.Context) {
	e.sourcesMu.Lock()
	if e.cfg.MaxDocuments <= 0 || len(e.sources) <= e.cfg.MaxDocuments {
		e.sourcesMu.Unlock()
		return
	}
	var oldest string
	var oldestAt time.Time
	for src, entry := range e.sources {
		if entry.isPermanent {
			continue
		}
		if oldest == "" || entry.lastAccess.Before(oldestAt) {
			oldest = src
			oldestAt = entry.lastAccess
		}
	}
	e.sourcesMu.Unlock()

	if oldest == "" {
		return
	}
	e.logger.Info("retrieval: evicting source over document limit", "source", oldest, "max_documents", e.cfg.MaxDocuments)
	if err := e.removeSourceLocked(ctx, oldest); err != nil {
		e.logger.Error("retrieval: eviction failed", "source", oldest, "error", err)
	}
}

// indexRaceSignatures are the known transient error substrings from a
// vector backend caught mid-rebuild, per spec.md §4.3 "Concurrency".
var indexRaceSignatures = []string{"hnsw", "nothing found on disk", "segment reader"}

func classifyIndexRace(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	lower := strings.ToLower(err.Error())
	for _, sig := range indexRaceSignatures {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	return "", false
}

var denseRetryBackoff = []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

func (e *Engine) denseSearch(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Result, error) {
	var lastSig string
	for attempt := 0; attempt <= len(denseRetryBackoff); attempt++ {
		results, err := e.store.Search(ctx, collection, vector, topK)
		if err == nil {
			return results, nil
		}
		sig, isRace := classifyIndexRace(err)
		if !isRace {
			return nil, err
		}
		lastSig = sig
		if attempt < len(denseRetryBackoff) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(denseRetryBackoff[attempt]):
			}
		}
	}
	return nil, &errs.RetrievalIndexTransient{Signature: lastSig, Attempts: len(denseRetryBackoff) + 1}
}

// Retrieve runs the four-stage pipeline (rewrite, hybrid recall,
// rerank+MMR, pack+compress) for query against the given size class.
func (e *Engine) Retrieve(ctx context.Context, query string, sc model.SizeClass, maxTokens int) (*model.ContextPack, error) {
	variants := e.rewriter.Rewrite(query)

	e.mu.Lock()
	if e.bm25[sc].needsRebuild() {
		e.bm25[sc].Rebuild(e.chunks[sc])
	}
	chunkByID := make(map[string]model.Chunk, len(e.chunks[sc]))
	for _, c := range e.chunks[sc] {
		chunkByID[c.ID] = c
	}
	e.mu.Unlock()

	recallPoolSize := 2 * e.cfg.TopK
	fused := map[string]float64{}

	for _, variant := range variants {
		vecs, err := e.embedder.Embeddings(ctx, e.cfg.EmbeddingModel, []string{variant})
		if err != nil {
			return nil, fmt.Errorf("retrieval: embed query variant: %w", err)
		}
		denseResults, err := e.denseSearch(ctx, collectionName(sc), vecs[0], e.cfg.TopK)
		if err != nil {
			return nil, err
		}
		for _, r := range denseResults {
			fused[r.ID] += e.cfg.VecWeight * r.Score
		}

		bm25Scores := normalizeByMax(e.bm25[sc].Search(variant, e.cfg.TopK))
		for id, score := range bm25Scores {
			fused[id] += e.cfg.BM25Weight * score
		}
	}

	pool := make([]scoredID, 0, len(fused))
	for id, score := range fused {
		pool = append(pool, scoredID{ID: id, Score: score})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	if len(pool) > recallPoolSize {
		pool = pool[:recallPoolSize]
	}

	candidates := make([]candidate, 0, len(pool))
	for _, p := range pool {
		c, ok := chunkByID[p.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{Chunk: c, Relevance: p.Score})
	}

	selected := mmrRerank(candidates, e.cfg.TopK, e.cfg.MMRLambda, e.cfg.SimilarityThreshold)

	return packAndCompress(query, selected, maxTokens, e.cfg.CoverageThreshold), nil
}

func packAndCompress(query string, selected []candidate, maxTokens int, coverageThreshold float64) *model.ContextPack {
	queryTerms := uniqueTerms(query)

	var b strings.Builder
	var evidence []model.Evidence
	sourceMap := map[string]string{}
	tokenCount := 0
	matchedTerms := map[string]bool{}

	for i, c := range selected {
		entry := fmt.Sprintf("[Evidence %d from %s]\n%s\n", i+1, c.Chunk.Source, c.Chunk.Text)
		entryTokens := tokencount.Count(entry)
		if tokenCount+entryTokens > maxTokens {
			break
		}
		b.WriteString(entry)
		tokenCount += entryTokens

		evidence = append(evidence, model.Evidence{
			ID:       c.Chunk.ID,
			Source:   c.Chunk.Source,
			Text:     c.Chunk.Text,
			Position: c.Chunk.Position,
		})
		if existing, ok := sourceMap[c.Chunk.Source]; ok {
			sourceMap[c.Chunk.Source] = existing + "," + c.Chunk.ID
		} else {
			sourceMap[c.Chunk.Source] = c.Chunk.ID
		}

		for term := range uniqueTerms(c.Chunk.Text) {
			if queryTerms[term] {
				matchedTerms[term] = true
			}
		}
	}

	coverage := 0.0
	if len(queryTerms) > 0 {
		coverage = float64(len(matchedTerms)) / float64(len(queryTerms))
	}
	answerability := coverage * float64(len(evidence)) / 10
	if answerability > 1 {
		answerability = 1
	}

	return &model.ContextPack{
		Text:          b.String(),
		Evidence:      evidence,
		SourceMap:     sourceMap,
		Coverage:      coverage,
		Answerability: answerability,
		NeedsMore:     coverage < coverageThreshold,
		Metadata: model.ContextPackMetadata{
			ChunkCount: len(evidence),
			TokenCount: tokenCount,
		},
	}
}

func uniqueTerms(text string) map[string]bool {
	out := map[string]bool{}
	for _, t := range tokenize(text) {
		out[t] = true
	}
	return out
}
