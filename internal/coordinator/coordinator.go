// Package coordinator implements the Agent Coordinator (spec.md §4.6):
// the three-tier workflow (aggregation, compilation, final answer) that
// drives the submitter/validator/topic agents against the state stores,
// persisting a resumable WorkflowState on every transition. Grounded on
// the teacher's pkg/task task-state-machine shape and pkg/agent's
// factory/registry wiring, generalized from a single-agent-call model to
// a multi-tier, multi-agent pipeline.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paperloom/core/internal/agents"
	"github.com/paperloom/core/internal/allocator"
	"github.com/paperloom/core/internal/model"
	"github.com/paperloom/core/internal/store"
)

// MaxRetries bounds submission-granularity retries at the coordinator
// level (spec.md §7 "Coordinator-level: retries at submission granularity
// up to MAX_RETRIES").
const MaxRetries = 10

// CleanupReviewEvery triggers a cleanup review after this many completed
// acceptances (spec.md §4.6 Tier 1 "Every N completed acceptances").
const CleanupReviewEvery = 10

// ExhaustionSignalThreshold and ConsecutiveRejectionThreshold are the
// early-trigger rules for completion review (spec.md §4.6 Tier 1).
const (
	ConsecutiveRejectionThreshold = 10
	ExhaustionSignalThreshold     = 2
)

// CompletionReviewEvery runs a periodic completion review absent an
// early trigger (spec.md §4.6 Tier 1 "A completion reviewer periodically
// runs in self-validation mode").
const CompletionReviewEvery = 25

// minCleanupPoolSize mirrors the cleanup-review agent's own pool-size
// guard, checked again here so the coordinator never even builds a
// candidate dump for a log too small to meaningfully audit.
const minCleanupPoolSize = 3

// CleanupReviewer identifies at most one redundant accepted Shared
// Training entry, grounded on
// original_source/backend/autonomous/validation/paper_redundancy_checker.py
// (spec.md §4.6 Tier 1 "cleanup review").
type CleanupReviewer interface {
	ReviewForRemoval(ctx context.Context, researchPrompt string, candidates []model.CleanupCandidate) (shouldRemove bool, entryNumber int, reasoning string, err error)
}

// CleanupApprover is the second, independent LLM validator that must
// approve a CleanupReviewer's specific proposed removal before it is
// archived (spec.md §4.6 Tier 1).
type CleanupApprover interface {
	ApproveRemoval(ctx context.Context, researchPrompt string, candidate model.CleanupCandidate, reasoning string) (approved bool, err error)
}

// CompletionReviewer assesses continue-vs-write-paper in self-validation
// mode (spec.md §4.6 Tier 1, glossary "Self-validation mode").
type CompletionReviewer interface {
	Review(ctx context.Context, topicID, sharedTrainingDump string, submissionCount int) (model.CompletionAssessment, error)
}

// Ingester is the narrow dependency on the Retrieval Engine's ingestion
// path, invoked as the re-chunk callback after Shared Training, Outline,
// or Paper Memory changes.
type Ingester interface {
	Ingest(ctx context.Context, source, rawText string, isPermanent bool) error
}

// Coordinator wires the state stores, agents, allocator, and retrieval
// engine together and drives the tier sequence. One Coordinator instance
// runs one workflow (one session directory) at a time.
type Coordinator struct {
	Logger *slog.Logger

	SharedTraining   *store.SharedTrainingLog
	RejectionMemory  *store.RejectionMemory
	OutlineMemory    *store.OutlineMemory
	PaperMemory      *store.PaperMemory
	Workflow         *store.WorkflowStore
	ResearchMetadata *store.ResearchMetadataStore

	Retriever allocator.Retriever
	Ingester  Ingester
	Budget    allocator.Budget

	Submitters     []*agents.Submitter
	Validator      *agents.Validator
	TopicSelector  *agents.TopicSelector
	TopicValidator *agents.TopicValidator

	// CleanupReviewer and CleanupApprover drive the Tier 1 cleanup review
	// (spec.md §4.6). Either may be left nil (e.g. in unit tests that
	// don't exercise cleanup); RunAggregation then logs and skips it.
	CleanupReviewer CleanupReviewer
	CleanupApprover CleanupApprover

	// CompletionReviewer drives the Tier 1 completion review. If left
	// nil, RunAggregation honors the triggering condition directly
	// (equivalent to "review unconditionally recommends write_paper").
	CompletionReviewer CompletionReviewer

	// PromptBuilder renders the role-specific system/user prompt pair for
	// a given slot assembly; supplied by the caller (cmd/paperloom) since
	// prompt templates are presentation, not coordination, concerns.
	PromptBuilder PromptBuilder
}

// PromptBuilder renders the textual prompts each agent call needs. The
// coordinator only knows which role is being invoked and what data it
// should see; rendering the actual words is delegated so prompt copy can
// change without touching coordination logic.
type PromptBuilder interface {
	SubmitterPrompt(topicID string, sizeClass model.SizeClass, rejectionContext string) (system, user string)
	ValidatorPrompt(topicID string, sub model.Submission, sharedTrainingDump string) (system, user string)
	TopicSelectorPrompt(researchPrompt string) (system, user string)
	TopicValidatorPrompt(proposal model.TopicDecision) (system, user string)
}

// resumeOrStart loads the persisted workflow state, returning it directly
// if resumable (spec.md §4.5 Resumable predicate), or a fresh
// TierAggregation state for topicID otherwise.
func (c *Coordinator) resumeOrStart(topicID string) store.WorkflowState {
	current := c.Workflow.Current()
	if current.Resumable() {
		c.logf("resuming workflow at tier=%s topic=%s phase=%s", current.CurrentTier, current.CurrentTopicID, current.PaperPhase)
		return current
	}
	return store.WorkflowState{
		IsRunning:      true,
		CurrentTier:    model.TierAggregation,
		CurrentTopicID: topicID,
		CheckCounters:  map[string]int{},
	}
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(fmt.Sprintf(format, args...))
}

// SelectTopic runs the Topic Selection supplement (SPEC_FULL.md §4.6):
// the topic selector proposes an action, the topic validator
// accepts/rejects it, retrying proposal generation up to MaxRetries on
// rejection before giving up and returning the last rejection reasoning.
func (c *Coordinator) SelectTopic(ctx context.Context, researchPrompt string) (model.TopicDecision, error) {
	var lastReason string
	for attempt := 0; attempt < MaxRetries; attempt++ {
		selSystem, selUser := c.PromptBuilder.TopicSelectorPrompt(researchPrompt)
		proposal, err := c.TopicSelector.Propose(ctx, selSystem, selUser)
		if err != nil {
			return model.TopicDecision{}, fmt.Errorf("coordinator: topic selection: %w", err)
		}

		valSystem, valUser := c.PromptBuilder.TopicValidatorPrompt(proposal)
		result, err := c.TopicValidator.Validate(ctx, proposal, valSystem, valUser)
		if err != nil {
			return model.TopicDecision{}, fmt.Errorf("coordinator: topic validation: %w", err)
		}
		if result.Decision == model.DecisionAccept {
			return proposal, nil
		}
		lastReason = result.Reasoning
		c.logf("topic proposal rejected: %s", lastReason)
	}
	return model.TopicDecision{}, fmt.Errorf("coordinator: topic selection exhausted %d retries, last reason: %s", MaxRetries, lastReason)
}
