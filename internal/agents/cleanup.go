package agents

import (
	"context"
	"fmt"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// minCleanupCandidates mirrors the original's "requires at least 3
// items" guard (original_source/backend/autonomous/validation/
// paper_redundancy_checker.py check_redundancy): a pool smaller than
// that is too small for a redundancy recommendation to be meaningful.
const minCleanupCandidates = 3

// CleanupReviewAgent identifies at most one redundant accepted Shared
// Training entry, grounded on
// original_source/backend/autonomous/validation/paper_redundancy_checker.py's
// check_redundancy: builds a candidate dump, asks the model at low
// temperature, and defaults to no removal on any parse, validation, or
// empty-response failure rather than risk an unintended archive.
type CleanupReviewAgent struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int

	// PromptFn renders the system/user prompt pair for a candidate pool;
	// supplied by the caller, same separation as coordinator.PromptBuilder.
	PromptFn func(researchPrompt string, candidates []model.CleanupCandidate) (system, user string)
}

// NewCleanupReviewAgent builds a CleanupReviewAgent bound to
// roleID/modelName.
func NewCleanupReviewAgent(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int, promptFn func(string, []model.CleanupCandidate) (string, string)) *CleanupReviewAgent {
	return &CleanupReviewAgent{
		completer:       completer,
		parser:          parser,
		RoleID:          roleID,
		Model:           modelName,
		MaxOutputTokens: maxOutputTokens,
		PromptFn:        promptFn,
	}
}

// ReviewForRemoval implements coordinator.CleanupReviewer.
func (a *CleanupReviewAgent) ReviewForRemoval(ctx context.Context, researchPrompt string, candidates []model.CleanupCandidate) (bool, int, string, error) {
	if len(candidates) < minCleanupCandidates {
		return false, 0, fmt.Sprintf("pool too small (%d < %d) for a redundancy recommendation", len(candidates), minCleanupCandidates), nil
	}

	system, user := a.PromptFn(researchPrompt, candidates)
	doc, err := parseWithRetry(ctx, a.completer, a.parser, a.RoleID, a.Model, system, user, a.MaxOutputTokens, jsoncontract.CleanupReviewSchema)
	if err != nil {
		return false, 0, fmt.Sprintf("cleanup review assessment failed, defaulting to no removal: %v", err), nil
	}

	shouldRemove, _ := doc["should_remove"].(bool)
	reasoning, _ := doc["reasoning"].(string)
	if !shouldRemove {
		return false, 0, reasoning, nil
	}

	numF, ok := doc["entry_number"].(float64)
	if !ok {
		return false, 0, "model said should_remove but gave no entry_number; defaulting to no removal", nil
	}
	entryNumber := int(numF)
	for _, c := range candidates {
		if c.Number == entryNumber {
			return true, entryNumber, reasoning, nil
		}
	}
	return false, 0, fmt.Sprintf("model proposed entry #%d which is not in the candidate pool; defaulting to no removal", entryNumber), nil
}

// CleanupApprovalAgent is the second, independent LLM validator that must
// approve a CleanupReviewAgent's specific proposed removal before it is
// archived (spec.md §4.6 Tier 1 "if a second LLM validator approves the
// specific removal"). It reuses ValidationResultSchema since this is,
// structurally, a plain accept/reject judgment on one proposal.
type CleanupApprovalAgent struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int

	PromptFn func(researchPrompt string, candidate model.CleanupCandidate, proposedReasoning string) (system, user string)
}

// NewCleanupApprovalAgent builds a CleanupApprovalAgent bound to
// roleID/modelName. Callers must give it a distinct RoleID/Model pair
// from the CleanupReviewAgent it backstops, so the approval is a genuine
// second, independent opinion rather than the same call repeated.
func NewCleanupApprovalAgent(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int, promptFn func(string, model.CleanupCandidate, string) (string, string)) *CleanupApprovalAgent {
	return &CleanupApprovalAgent{
		completer:       completer,
		parser:          parser,
		RoleID:          roleID,
		Model:           modelName,
		MaxOutputTokens: maxOutputTokens,
		PromptFn:        promptFn,
	}
}

// ApproveRemoval implements coordinator.CleanupApprover.
func (a *CleanupApprovalAgent) ApproveRemoval(ctx context.Context, researchPrompt string, candidate model.CleanupCandidate, reasoning string) (bool, error) {
	system, user := a.PromptFn(researchPrompt, candidate, reasoning)
	doc, err := parseWithRetry(ctx, a.completer, a.parser, a.RoleID, a.Model, system, user, a.MaxOutputTokens, jsoncontract.ValidationResultSchema)
	if err != nil {
		return false, fmt.Errorf("cleanup approver: %w", err)
	}
	decision, _ := doc["decision"].(string)
	return model.Decision(decision) == model.DecisionAccept, nil
}
