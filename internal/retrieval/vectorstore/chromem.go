package vectorstore

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is the embedded, zero-config default backend, grounded on
// the teacher's pkg/vector.ChromemProvider.
type ChromemStore struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// NewChromemStore builds an in-memory chromem-go database. Unlike the
// teacher's ChromemConfig.PersistPath, it takes no persistence path: the
// store always runs in-memory and nothing is written to disk.
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

// identityEmbed exists only to satisfy chromem's EmbeddingFunc signature;
// this store always receives pre-computed vectors from the Gateway, so
// it is never actually invoked.
func identityEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("vectorstore: embedding function invoked but vectors are always pre-computed")
}

func (s *ChromemStore) getCollection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	if col, ok := s.collections[name]; ok {
		s.mu.RUnlock()
		return col, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: creating collection %q: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

func (s *ChromemStore) CreateCollection(ctx context.Context, collection string) error {
	_, err := s.getCollection(collection)
	return err
}

func (s *ChromemStore) Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	col, err := s.getCollection(collection)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("vectorstore: upsert %q: %w", id, err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	col, err := s.getCollection(collection)
	if err != nil {
		return nil, err
	}
	if col.Count() == 0 {
		return nil, nil
	}
	if topK > col.Count() {
		topK = col.Count()
	}
	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{ID: r.ID, Score: float64(r.Similarity), Content: r.Content, Metadata: r.Metadata})
	}
	return out, nil
}

func (s *ChromemStore) Delete(ctx context.Context, collection, id string) error {
	col, err := s.getCollection(collection)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, id)
}

func (s *ChromemStore) DeleteByMetadata(ctx context.Context, collection string, filter map[string]string) error {
	col, err := s.getCollection(collection)
	if err != nil {
		return err
	}
	return col.Delete(ctx, filter, nil)
}

func (s *ChromemStore) Close() error { return nil }
