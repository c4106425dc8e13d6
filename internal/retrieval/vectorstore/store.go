// Package vectorstore abstracts the per-size-class dense vector index the
// Retrieval Engine queries (spec.md §4.3). Two backends are provided:
// an embedded chromem-go store (default) and a networked Qdrant store,
// selected by config.RetrievalConfig.VectorBackend.
package vectorstore

import "context"

// Result is one match returned by Search, normalized across backends.
type Result struct {
	ID       string
	Score    float64 // cosine similarity, higher is better
	Content  string
	Metadata map[string]string
}

// Store is the common interface the Retrieval Engine drives, grounded on
// the teacher's pkg/vector.Provider shape (Upsert/Search/Delete/
// CreateCollection/Close).
type Store interface {
	// CreateCollection ensures the named collection exists (one per chunk
	// size class).
	CreateCollection(ctx context.Context, collection string) error

	// Upsert adds or replaces a single vector with its content and
	// metadata.
	Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error

	// Search returns the topK nearest vectors by cosine similarity.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Delete removes a single vector by ID.
	Delete(ctx context.Context, collection, id string) error

	// DeleteByMetadata removes every vector whose metadata matches filter
	// exactly (used to drop all chunks of a removed source).
	DeleteByMetadata(ctx context.Context, collection string, filter map[string]string) error

	Close() error
}
