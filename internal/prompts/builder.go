package prompts

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// Builder renders the system/user prompt pairs coordinator.PromptBuilder
// needs for each role, merging per-role default Slots with the mandatory
// json_schema slot text (spec.md §4.4) produced by jsoncontract.SchemaText.
type Builder struct {
	SubmitterDefaults      Slots
	ValidatorDefaults      Slots
	TopicSelectorDefaults  Slots
	TopicValidatorDefaults Slots

	// CleanupReviewDefaults/CleanupApprovalDefaults back the Tier 1
	// cleanup review; CompletionAssessDefaults/CompletionSelfValidateDefaults
	// back the Tier 1 completion review; PlacementJudgeDefaults backs the
	// Tier 2 two-stage placement check's second stage (spec.md §4.6).
	CleanupReviewDefaults          Slots
	CleanupApprovalDefaults        Slots
	CompletionAssessDefaults       Slots
	CompletionSelfValidateDefaults Slots
	PlacementJudgeDefaults         Slots

	SubmissionSchema           jsoncontract.Schema
	ValidationSchema           jsoncontract.Schema
	TopicSchema                jsoncontract.Schema
	CleanupReviewSchema        jsoncontract.Schema
	CompletionAssessmentSchema jsoncontract.Schema
	SelfValidationSchema       jsoncontract.Schema
	PlacementJudgmentSchema    jsoncontract.Schema
}

// NewBuilder returns a Builder with the teacher-style default slots
// filled in for each role; callers typically override Additional per
// session via Merge before calling the Prompt* methods if they need
// session-specific customization.
func NewBuilder() *Builder {
	return &Builder{
		SubmitterDefaults: Slots{
			SystemRole:            "You are a research submitter agent contributing findings to a shared brainstorm pool.",
			ReasoningInstructions: "Ground every claim in retrieved context; never restate an already-accepted entry.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		ValidatorDefaults: Slots{
			SystemRole:            "You are a validator agent judging one submission against the shared training log.",
			ReasoningInstructions: "Check novelty, contradiction, and JSON well-formedness before deciding.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		TopicSelectorDefaults: Slots{
			SystemRole:   "You are a topic selector agent choosing the next research focus.",
			OutputFormat: "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		TopicValidatorDefaults: Slots{
			SystemRole:   "You are a topic validator agent reviewing a proposed research focus.",
			OutputFormat: "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		CleanupReviewDefaults: Slots{
			SystemRole:            "You are a cleanup-review agent auditing the shared training log for redundancy.",
			ReasoningInstructions: "Recommend at most one entry for removal, and only when it is genuinely redundant with another entry; when in doubt, recommend none.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		CleanupApprovalDefaults: Slots{
			SystemRole:            "You are a second, independent validator reviewing a proposed removal from the shared training log.",
			ReasoningInstructions: "Approve only if the specific entry is truly redundant; reject if removing it would lose information the other entries don't cover.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		CompletionAssessDefaults: Slots{
			SystemRole:            "You are a completion-reviewer agent deciding whether the shared training log has exhausted a topic.",
			ReasoningInstructions: "Choose write_paper only when further submissions would add nothing new; otherwise choose continue.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		CompletionSelfValidateDefaults: Slots{
			SystemRole:            "You are re-examining your own prior completion assessment.",
			ReasoningInstructions: "Accept your own assessment unless you can name a concrete, specific error in it; do not second-guess it on vague grounds.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		PlacementJudgeDefaults: Slots{
			SystemRole:            "You are judging whether a proposed edit's target location is contextually appropriate.",
			ReasoningInstructions: "The target text already matched exactly once; judge only whether this is the right place for this change, not whether it matched.",
			OutputFormat:          "Reply with a single JSON object matching the schema below. No prose outside the object.",
		},
		SubmissionSchema:           jsoncontract.SubmissionSchema,
		ValidationSchema:           jsoncontract.ValidationResultSchema,
		TopicSchema:                jsoncontract.TopicDecisionSchema,
		CleanupReviewSchema:        jsoncontract.CleanupReviewSchema,
		CompletionAssessmentSchema: jsoncontract.CompletionAssessmentSchema,
		SelfValidationSchema:       jsoncontract.SelfValidationSchema,
		PlacementJudgmentSchema:    jsoncontract.PlacementJudgmentSchema,
	}
}

// renderSystem appends the rendered json_schema text to slots, falling
// back to the slot text alone if schema rendering fails (a malformed
// Schema should never block a prompt render).
func renderSystem(slots Slots, schema jsoncontract.Schema) string {
	text, err := jsoncontract.SchemaText(schema)
	if err != nil {
		return slots.Render()
	}
	return slots.Render() + "\n\nJSON schema:\n" + text
}

// SubmitterPrompt implements coordinator.PromptBuilder.
func (b *Builder) SubmitterPrompt(topicID string, sizeClass model.SizeClass, rejectionContext string) (string, string) {
	system := renderSystem(b.SubmitterDefaults, b.SubmissionSchema)
	user := fmt.Sprintf("Topic: %s\nTarget chunk size: %d tokens\nRecent rejections:\n%s",
		topicID, int(sizeClass), rejectionContext)
	return system, user
}

// ValidatorPrompt implements coordinator.PromptBuilder. The submission
// under review is rendered as a standalone JSON preview built
// incrementally with sjson.SetBytes rather than a struct marshal: the
// submitter schema's content and reasoning, plus the size_class used.
func (b *Builder) ValidatorPrompt(topicID string, sub model.Submission, sharedTrainingDump string) (string, string) {
	system := renderSystem(b.ValidatorDefaults, b.ValidationSchema)

	preview, err := submissionPreviewJSON(sub)
	if err != nil {
		preview = sub.Content // degrade to raw content rather than fail the prompt
	}

	user := fmt.Sprintf("Topic: %s\nSubmission under review:\n%s\n\nAccepted entries so far:\n%s",
		topicID, preview, sharedTrainingDump)
	return system, user
}

// TopicSelectorPrompt implements coordinator.PromptBuilder.
func (b *Builder) TopicSelectorPrompt(researchPrompt string) (string, string) {
	system := renderSystem(b.TopicSelectorDefaults, b.TopicSchema)
	return system, "Research prompt:\n" + researchPrompt
}

// TopicValidatorPrompt implements coordinator.PromptBuilder.
func (b *Builder) TopicValidatorPrompt(proposal model.TopicDecision) (string, string) {
	system := renderSystem(b.TopicValidatorDefaults, b.ValidationSchema)

	preview, err := topicProposalPreviewJSON(proposal)
	if err != nil {
		preview = proposal.Reasoning
	}
	return system, "Proposed topic decision:\n" + preview
}

// CleanupReviewPrompt renders the cleanup-review agent's prompt. The
// candidate pool is dumped in full, never truncated, mirroring
// AllocateCleanupReview's "must never skip" rule at the allocator layer.
func (b *Builder) CleanupReviewPrompt(researchPrompt string, candidates []model.CleanupCandidate) (string, string) {
	system := renderSystem(b.CleanupReviewDefaults, b.CleanupReviewSchema)
	var dump strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&dump, "Entry #%d:\n%s\n\n", c.Number, c.Content)
	}
	user := fmt.Sprintf("Research focus: %s\n\nAccepted entries:\n%s", researchPrompt, dump.String())
	return system, user
}

// CleanupApprovalPrompt renders the second validator's approval prompt
// for a specific proposed removal.
func (b *Builder) CleanupApprovalPrompt(researchPrompt string, candidate model.CleanupCandidate, proposedReasoning string) (string, string) {
	system := renderSystem(b.CleanupApprovalDefaults, b.ValidationSchema)
	user := fmt.Sprintf("Research focus: %s\n\nProposed removal of entry #%d:\n%s\n\nReviewer's reasoning: %s",
		researchPrompt, candidate.Number, candidate.Content, proposedReasoning)
	return system, user
}

// CompletionAssessPrompt renders the completion reviewer's initial
// continue-vs-write-paper assessment prompt, direct-injecting the full
// shared training dump per spec.md §4.6 (never truncated, never RAG'd).
func (b *Builder) CompletionAssessPrompt(topicID, sharedTrainingDump string, submissionCount int) (string, string) {
	system := renderSystem(b.CompletionAssessDefaults, b.CompletionAssessmentSchema)
	user := fmt.Sprintf("Topic: %s\nAccepted submissions so far: %d\n\nFull shared training log:\n%s",
		topicID, submissionCount, sharedTrainingDump)
	return system, user
}

// CompletionSelfValidatePrompt renders the self-validation prompt: the
// same model re-examines its own prior assessment against the same
// context, accepting it unless it can name a concrete, specific error.
func (b *Builder) CompletionSelfValidatePrompt(topicID, sharedTrainingDump string, assessment model.CompletionAssessment) (string, string) {
	system := renderSystem(b.CompletionSelfValidateDefaults, b.SelfValidationSchema)
	user := fmt.Sprintf(
		"Topic: %s\n\nYour prior assessment:\ndecision=%s\nreasoning=%s\n\nFull shared training log:\n%s\n\nRe-examine your assessment. Reply validated=true unless you can name a concrete, specific error in it.",
		topicID, assessment.Decision, assessment.Reasoning, sharedTrainingDump,
	)
	return system, user
}

// PlacementJudgePrompt renders the second stage of the two-stage
// placement check: whether old_string's location is contextually
// appropriate for the proposed edit.
func (b *Builder) PlacementJudgePrompt(currentBody string, op model.EditOp, oldString, newText string) (string, string) {
	system := renderSystem(b.PlacementJudgeDefaults, b.PlacementJudgmentSchema)
	user := fmt.Sprintf(
		"Current body:\n%s\n\nProposed op: %s\nTarget text:\n%s\n\nReplacement/insertion text:\n%s\n\nIs this location contextually appropriate for this edit?",
		currentBody, op, oldString, newText,
	)
	return system, user
}

// submissionPreviewJSON builds `{"content":...,"reasoning":...,"size_class":...}`
// one field at a time via sjson.SetBytes rather than a struct marshal:
// the two fields the submitter schema asks the model to produce, plus the
// chunk size class the submitter used.
func submissionPreviewJSON(sub model.Submission) (string, error) {
	body := []byte(`{}`)
	var err error
	body, err = sjson.SetBytes(body, "content", sub.Content)
	if err != nil {
		return "", fmt.Errorf("prompts: set content: %w", err)
	}
	body, err = sjson.SetBytes(body, "reasoning", sub.Reasoning)
	if err != nil {
		return "", fmt.Errorf("prompts: set reasoning: %w", err)
	}
	body, err = sjson.SetBytes(body, "size_class", int(sub.ChunkSizeUsed))
	if err != nil {
		return "", fmt.Errorf("prompts: set size_class: %w", err)
	}
	return string(body), nil
}

func topicProposalPreviewJSON(proposal model.TopicDecision) (string, error) {
	body := []byte(`{}`)
	var err error
	body, err = sjson.SetBytes(body, "action", string(proposal.Action))
	if err != nil {
		return "", fmt.Errorf("prompts: set action: %w", err)
	}
	body, err = sjson.SetBytes(body, "topic", proposal.Topic)
	if err != nil {
		return "", fmt.Errorf("prompts: set topic: %w", err)
	}
	body, err = sjson.SetBytes(body, "reasoning", proposal.Reasoning)
	if err != nil {
		return "", fmt.Errorf("prompts: set reasoning: %w", err)
	}
	return string(body), nil
}

// ExtractField reads a single top-level field out of a rendered JSON
// preview without a full unmarshal, for callers that only need to log
// or branch on one value (e.g. the coordinator logging the proposed
// action before dispatching to the validator).
func ExtractField(previewJSON, path string) string {
	return gjson.Get(previewJSON, path).String()
}
