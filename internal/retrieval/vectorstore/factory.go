package vectorstore

import "fmt"

// New builds the configured backend: "chromem" (default, embedded) or
// "qdrant" (networked), per SPEC_FULL.md §3.
func New(backend string, qdrantCfg QdrantConfig) (Store, error) {
	switch backend {
	case "", "chromem":
		return NewChromemStore(), nil
	case "qdrant":
		return NewQdrantStore(qdrantCfg)
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", backend)
	}
}
