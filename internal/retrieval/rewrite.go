package retrieval

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRewriteVariants is K in spec.md §4.3 stage 1.
const DefaultRewriteVariants = 3

const rewriteCacheSize = 512

// queryRewriter produces up to K surface-form variants of a query and
// caches them by exact query text, per spec.md §4.3 stage 1.
type queryRewriter struct {
	cache *lru.Cache[string, []string]
}

func newQueryRewriter() *queryRewriter {
	c, _ := lru.New[string, []string](rewriteCacheSize)
	return &queryRewriter{cache: c}
}

// Rewrite returns the query itself plus, for queries of 3 or more words,
// the query with its first word dropped and with its last word dropped.
func (r *queryRewriter) Rewrite(query string) []string {
	if v, ok := r.cache.Get(query); ok {
		return v
	}

	words := strings.Fields(query)
	variants := []string{query}
	if len(words) >= 3 {
		variants = append(variants, strings.Join(words[1:], " "))
		variants = append(variants, strings.Join(words[:len(words)-1], " "))
	}
	if len(variants) > DefaultRewriteVariants {
		variants = variants[:DefaultRewriteVariants]
	}

	r.cache.Add(query, variants)
	return variants
}
