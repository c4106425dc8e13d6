package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// Submitter generates candidate submissions, cycling through the four
// chunk-size classes on every call (spec.md §4.6 Tier 1: "cyclic
// chunk-size selection per submitter: 256 → 512 → 768 → 1024").
type Submitter struct {
	completer Completer
	parser    Parser

	SubmitterID     string
	RoleID          string
	Model           string
	MaxOutputTokens int

	mu         sync.Mutex
	cycleIndex int
}

// NewSubmitter builds a Submitter that produces submissions attributed to
// submitterID.
func NewSubmitter(completer Completer, parser Parser, submitterID, roleID, modelName string, maxOutputTokens int) *Submitter {
	return &Submitter{
		completer:       completer,
		parser:          parser,
		SubmitterID:     submitterID,
		RoleID:          roleID,
		Model:           modelName,
		MaxOutputTokens: maxOutputTokens,
	}
}

// NextSizeClass advances and returns the next chunk-size class in the
// cyclic rotation, without generating a submission — used by the
// coordinator to choose which Retrieval Engine index to query before
// building the submitter's prompt.
func (s *Submitter) NextSizeClass() model.SizeClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := model.DefaultSizeClasses[s.cycleIndex%len(model.DefaultSizeClasses)]
	s.cycleIndex++
	return sc
}

// Submit runs one submission-generation turn: completes against systemPrompt
// plus userPrompt (already assembled by the Context Allocator), parses the
// result against the Submission schema with conversational retry, and
// stamps submitter/timestamp/chunk-size metadata the model itself never
// produces.
func (s *Submitter) Submit(ctx context.Context, systemPrompt, userPrompt string, chunkSizeUsed model.SizeClass) (model.Submission, error) {
	doc, err := parseWithRetry(ctx, s.completer, s.parser, s.RoleID, s.Model, systemPrompt, userPrompt, s.MaxOutputTokens, jsoncontract.SubmissionSchema)
	if err != nil {
		return model.Submission{}, fmt.Errorf("submitter %s: %w", s.SubmitterID, err)
	}

	content, _ := doc["content"].(string)
	reasoning, _ := doc["reasoning"].(string)
	isDecline, _ := doc["is_decline"].(bool)

	return model.Submission{
		ID:            uuid.NewString(),
		SubmitterID:   s.SubmitterID,
		Content:       content,
		Reasoning:     reasoning,
		Timestamp:     time.Now(),
		ChunkSizeUsed: chunkSizeUsed,
		IsDecline:     isDecline,
	}, nil
}
