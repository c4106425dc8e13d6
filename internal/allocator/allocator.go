// Package allocator implements the Context Allocator (spec.md §4.4): it
// splits a bounded input window between content injected directly into
// the prompt and content offloaded to the Retrieval Engine, in priority
// order, never exceeding the target model's available budget. Grounded
// on the teacher's pkg/context/conversation.go budget-aware message
// assembly (mutex-guarded struct, fmt.Errorf error style).
package allocator

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/model"
	"github.com/paperloom/core/internal/tokencount"
)

// SlotName identifies one named content item competing for budget.
type SlotName string

const (
	SlotUserPrompt            SlotName = "user_prompt"
	SlotJSONSchema            SlotName = "json_schema"
	SlotSystemPrompt          SlotName = "system_prompt"
	SlotSharedTraining        SlotName = "shared_training"
	SlotLocalTraining         SlotName = "local_training"
	SlotRejectionLog          SlotName = "rejection_log"
	SlotUserFiles             SlotName = "user_files"
	SlotSubmissionUnderReview SlotName = "submission_under_review"
)

// SubmitterPriorityOrder is the submitter-like role slot order (spec.md
// §4.4). The first three are mandatory and always direct-injected.
var SubmitterPriorityOrder = []SlotName{
	SlotUserPrompt, SlotJSONSchema, SlotSystemPrompt,
	SlotSharedTraining, SlotLocalTraining, SlotRejectionLog, SlotUserFiles,
}

// ValidatorPriorityOrder is the validator-like role slot order (spec.md
// §4.4).
var ValidatorPriorityOrder = []SlotName{
	SlotUserPrompt, SlotJSONSchema, SlotSystemPrompt,
	SlotSubmissionUnderReview, SlotSharedTraining, SlotUserFiles,
}

var mandatorySlots = map[SlotName]bool{
	SlotUserPrompt:   true,
	SlotJSONSchema:   true,
	SlotSystemPrompt: true,
}

// Slot is one candidate content item. RAGQuery and SizeClass are only
// consulted if the slot ends up offloaded.
type Slot struct {
	Name      SlotName
	Text      string
	RAGQuery  string
	SizeClass model.SizeClass
}

// Budget carries the window arithmetic spec.md §4.4 names:
// available = context_window - max_output_tokens - safety_margin.
type Budget struct {
	ContextWindow      int
	MaxOutputTokens    int
	SafetyMargin       int
	MinRAGReserve      int
	FormattingOverhead int
}

// Available returns the input budget after reserving output and safety.
func (b Budget) Available() int {
	return b.ContextWindow - b.MaxOutputTokens - b.SafetyMargin
}

// Retriever is the narrow dependency on the Retrieval Engine (spec.md
// §2: "Context Allocator depends on Retrieval Engine").
type Retriever interface {
	Retrieve(ctx context.Context, query string, sc model.SizeClass, maxTokens int) (*model.ContextPack, error)
}

// Assembly is the result of allocation: the direct-injected text plus any
// ContextPacks retrieved for offloaded slots, in slot priority order.
type Assembly struct {
	DirectText   string
	Packs        []*model.ContextPack
	OffloadedFor []SlotName
}

// Allocate implements spec.md §4.4's algorithm: mandatory slots are always
// injected; optional slots are injected directly if they fit and still
// leave MinRAGReserve for later RAG, otherwise offloaded. Returns
// ContextAllocationError only if the user prompt alone exceeds budget.
func Allocate(ctx context.Context, retriever Retriever, budget Budget, order []SlotName, slots map[SlotName]Slot) (*Assembly, error) {
	available := budget.Available()

	userPrompt, hasUser := slots[SlotUserPrompt]
	userCost := 0
	if hasUser {
		userCost = tokencount.Count(userPrompt.Text)
	}
	if userCost > available {
		return nil, &errs.ContextAllocationError{Requested: userCost, Available: available}
	}

	var mandatoryCost int
	var direct strings.Builder
	var directOrder []SlotName
	for _, name := range order {
		if !mandatorySlots[name] {
			continue
		}
		slot, ok := slots[name]
		if !ok {
			continue
		}
		cost := tokencount.Count(slot.Text)
		mandatoryCost += cost
		direct.WriteString(slot.Text)
		direct.WriteString("\n")
		directOrder = append(directOrder, name)
	}

	remaining := available - mandatoryCost
	var offloaded []SlotName
	var directInjected int

	for _, name := range order {
		if mandatorySlots[name] {
			continue
		}
		slot, ok := slots[name]
		if !ok {
			continue
		}
		cost := tokencount.Count(slot.Text)
		if cost <= remaining && remaining-cost >= budget.MinRAGReserve {
			direct.WriteString(slot.Text)
			direct.WriteString("\n")
			remaining -= cost
			directInjected += cost
			directOrder = append(directOrder, name)
			continue
		}
		offloaded = append(offloaded, name)
	}

	assembly := &Assembly{DirectText: direct.String(), OffloadedFor: offloaded}
	if len(offloaded) == 0 {
		return assembly, nil
	}

	ragBudget := available - mandatoryCost - directInjected - budget.FormattingOverhead
	if ragBudget < 0 {
		ragBudget = 0
	}

	perSlotBudget := ragBudget / len(offloaded)
	for _, name := range offloaded {
		slot := slots[name]
		pack, err := retriever.Retrieve(ctx, slot.RAGQuery, slot.SizeClass, perSlotBudget)
		if err != nil {
			return nil, fmt.Errorf("allocator: retrieve for slot %q: %w", name, err)
		}
		assembly.Packs = append(assembly.Packs, pack)
	}

	return assembly, nil
}

// AllocateCleanupReview implements the cleanup-review allocator variant
// (spec.md §4.4), which MUST NEVER skip the accepted-submissions dump: if
// it doesn't fit directly, it is offloaded to RAG instead of failing.
func AllocateCleanupReview(ctx context.Context, retriever Retriever, budget Budget, userPrompt, systemPrompt, jsonSchema, acceptedDump string, dumpSizeClass model.SizeClass) (*Assembly, error) {
	slots := map[SlotName]Slot{
		SlotUserPrompt:   {Name: SlotUserPrompt, Text: userPrompt},
		SlotJSONSchema:   {Name: SlotJSONSchema, Text: jsonSchema},
		SlotSystemPrompt: {Name: SlotSystemPrompt, Text: systemPrompt},
		SlotSharedTraining: {
			Name:      SlotSharedTraining,
			Text:      acceptedDump,
			RAGQuery:  userPrompt,
			SizeClass: dumpSizeClass,
		},
	}
	order := []SlotName{SlotUserPrompt, SlotJSONSchema, SlotSystemPrompt, SlotSharedTraining}
	return Allocate(ctx, retriever, budget, order, slots)
}
