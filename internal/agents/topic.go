package agents

import (
	"context"
	"fmt"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// TopicSelector proposes the next research topic before Tier 1
// aggregation starts (SPEC_FULL.md §4.6 Topic Selection, grounded on
// original_source/backend/autonomous/agents/topic_selector.py). Context
// (brainstorm and paper summaries, rejection history) is assembled by the
// caller into userPrompt via the Context Allocator, mirroring the
// original's direct-injection approach.
type TopicSelector struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int
}

// NewTopicSelector builds a TopicSelector bound to roleID/modelName.
func NewTopicSelector(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int) *TopicSelector {
	return &TopicSelector{completer: completer, parser: parser, RoleID: roleID, Model: modelName, MaxOutputTokens: maxOutputTokens}
}

// Propose generates a TopicDecision via conversational-retry JSON parsing.
func (t *TopicSelector) Propose(ctx context.Context, systemPrompt, userPrompt string) (model.TopicDecision, error) {
	doc, err := parseWithRetry(ctx, t.completer, t.parser, t.RoleID, t.Model, systemPrompt, userPrompt, t.MaxOutputTokens, jsoncontract.TopicDecisionSchema)
	if err != nil {
		return model.TopicDecision{}, fmt.Errorf("topic selector: %w", err)
	}
	action, _ := doc["action"].(string)
	topic, _ := doc["topic"].(string)
	reasoning, _ := doc["reasoning"].(string)
	return model.TopicDecision{
		Action:    model.TopicAction(action),
		Topic:     topic,
		Reasoning: reasoning,
	}, nil
}

// TopicValidator accepts or rejects a TopicSelector's proposal before
// aggregation proceeds, grounded on
// original_source/backend/autonomous/agents/topic_validator.py's
// validate() shape (same context as the selector, plus the proposed
// action).
type TopicValidator struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int
}

// NewTopicValidator builds a TopicValidator bound to roleID/modelName.
func NewTopicValidator(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int) *TopicValidator {
	return &TopicValidator{completer: completer, parser: parser, RoleID: roleID, Model: modelName, MaxOutputTokens: maxOutputTokens}
}

// Validate accepts or rejects proposal, returning a ValidationResult keyed
// on the proposed topic text rather than a submission ID (the topic
// selection step precedes any Submission, so there is no submission_id
// to validate against).
func (t *TopicValidator) Validate(ctx context.Context, proposal model.TopicDecision, systemPrompt, userPrompt string) (model.ValidationResult, error) {
	doc, err := parseWithRetry(ctx, t.completer, t.parser, t.RoleID, t.Model, systemPrompt, userPrompt, t.MaxOutputTokens, jsoncontract.ValidationResultSchema)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("topic validator: %w", err)
	}
	decision, _ := doc["decision"].(string)
	reasoning, _ := doc["reasoning"].(string)
	summary, _ := doc["summary"].(string)
	return model.ValidationResult{
		SubmissionID: proposal.Topic,
		Decision:     model.Decision(decision),
		Reasoning:    reasoning,
		Summary:      summary,
		JSONValid:    true,
	}, nil
}
