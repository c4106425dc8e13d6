// Package tokencount provides accurate BPE token counting shared by the
// Context Allocator's budget arithmetic and the Retrieval Engine's
// pack/compress stage, replacing the teacher's pkg/utils word-count
// heuristic with a real tiktoken-go encoder.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	mu      sync.Mutex
	encoder *tiktoken.Tiktoken
)

func get() *tiktoken.Tiktoken {
	mu.Lock()
	defer mu.Unlock()
	if encoder != nil {
		return encoder
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// cl100k_base is bundled with the library; this can't realistically
		// fail, but Count must never panic on a nil encoder.
		encoder = nil
		return nil
	}
	encoder = enc
	return encoder
}

// Count returns the exact BPE token count for text, falling back to a
// 4-chars-per-token estimate if the encoder failed to initialize.
func Count(text string) int {
	enc := get()
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
