// Package retrieval implements the four-stage RAG pipeline (rewrite →
// hybrid recall → rerank+MMR → pack+compress) over per-size-class dense
// and BM25 indices, grounded on the teacher's pkg/context/search.go
// SearchEngine shape and pkg/context/chunking overlap mechanics.
package retrieval

import (
	"fmt"

	"github.com/paperloom/core/internal/model"
)

// SizeClasses returns the configured chunk-size classes in cyclic order,
// per model.DefaultSizeClasses (spec.md §3/§4.6).
func SizeClasses() []model.SizeClass {
	return model.DefaultSizeClasses
}

// collectionName maps a size class to the vector store collection that
// backs it, one per class.
func collectionName(sc model.SizeClass) string {
	return fmt.Sprintf("size_%d", int(sc))
}
