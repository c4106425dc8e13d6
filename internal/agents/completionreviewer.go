package agents

import (
	"context"
	"fmt"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// CompletionReviewAgent assesses continue-vs-write-paper and then
// re-examines its own assessment with the SAME model (spec.md §4.6 Tier 1
// "self-validation mode"), grounded on
// original_source/backend/autonomous/agents/completion_reviewer.py's
// review_completion/_generate_assessment/_self_validate: on any
// assessment or self-validation failure it defaults to continue rather
// than risk ending the aggregation prematurely.
type CompletionReviewAgent struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int

	AssessPromptFn       func(topicID, sharedTrainingDump string, submissionCount int) (system, user string)
	SelfValidatePromptFn func(topicID, sharedTrainingDump string, assessment model.CompletionAssessment) (system, user string)
}

// NewCompletionReviewAgent builds a CompletionReviewAgent bound to
// roleID/modelName. Both the assessment and the self-validation calls
// use this same RoleID/Model pair — the original's "SAME MODEL - critical
// for self-validation" requirement.
func NewCompletionReviewAgent(
	completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int,
	assessPromptFn func(string, string, int) (string, string),
	selfValidatePromptFn func(string, string, model.CompletionAssessment) (string, string),
) *CompletionReviewAgent {
	return &CompletionReviewAgent{
		completer:            completer,
		parser:               parser,
		RoleID:               roleID,
		Model:                modelName,
		MaxOutputTokens:      maxOutputTokens,
		AssessPromptFn:       assessPromptFn,
		SelfValidatePromptFn: selfValidatePromptFn,
	}
}

// Review implements coordinator.CompletionReviewer: assess, then
// self-validate the assessment with the same model; any failure along
// the way defaults to continue rather than propagating an error, mirroring
// the original's defensive "self-validation failed - defaulting to
// continue" behavior.
func (a *CompletionReviewAgent) Review(ctx context.Context, topicID, sharedTrainingDump string, submissionCount int) (model.CompletionAssessment, error) {
	assessment, err := a.assess(ctx, topicID, sharedTrainingDump, submissionCount)
	if err != nil {
		return model.CompletionAssessment{
			Decision:  model.CompletionContinue,
			Reasoning: fmt.Sprintf("assessment failed, defaulting to continue: %v", err),
		}, nil
	}

	validated, err := a.selfValidate(ctx, topicID, sharedTrainingDump, assessment)
	if err != nil {
		return model.CompletionAssessment{
			Decision:  model.CompletionContinue,
			Reasoning: fmt.Sprintf("self-validation errored (%v); defaulting to continue", err),
		}, nil
	}
	if !validated {
		return model.CompletionAssessment{
			Decision:  model.CompletionContinue,
			Reasoning: "self-validation failed to confirm the assessment; defaulting to continue",
		}, nil
	}
	return assessment, nil
}

func (a *CompletionReviewAgent) assess(ctx context.Context, topicID, sharedTrainingDump string, submissionCount int) (model.CompletionAssessment, error) {
	system, user := a.AssessPromptFn(topicID, sharedTrainingDump, submissionCount)
	doc, err := parseWithRetry(ctx, a.completer, a.parser, a.RoleID, a.Model, system, user, a.MaxOutputTokens, jsoncontract.CompletionAssessmentSchema)
	if err != nil {
		return model.CompletionAssessment{}, err
	}
	decision, _ := doc["decision"].(string)
	reasoning, _ := doc["reasoning"].(string)
	suggested, _ := doc["suggested_additions"].(string)
	return model.CompletionAssessment{
		Decision:           model.CompletionDecision(decision),
		Reasoning:          reasoning,
		SuggestedAdditions: suggested,
	}, nil
}

// selfValidate re-examines assessment using the same RoleID/Model as
// assess — critical, per the original, since a different model wouldn't
// be validating its own reasoning.
func (a *CompletionReviewAgent) selfValidate(ctx context.Context, topicID, sharedTrainingDump string, assessment model.CompletionAssessment) (bool, error) {
	system, user := a.SelfValidatePromptFn(topicID, sharedTrainingDump, assessment)
	doc, err := parseWithRetry(ctx, a.completer, a.parser, a.RoleID, a.Model, system, user, a.MaxOutputTokens, jsoncontract.SelfValidationSchema)
	if err != nil {
		return false, err
	}
	validated, _ := doc["validated"].(bool)
	return validated, nil
}
