package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperloom/core/internal/agents"
	"github.com/paperloom/core/internal/model"
	"github.com/paperloom/core/internal/store"
)

// AggregationOutcome reports why a RunAggregation call returned: either
// a completion review triggered (early or periodic), or the caller-given
// iteration cap was reached first.
type AggregationOutcome struct {
	AcceptedCount    int
	RejectedCount    int
	CompletionReview bool
	Reason           string
}

// RunAggregation drives Tier 1 (spec.md §4.6) for topicID: each
// submitter in round-robin, cycling its own chunk-size class, generates a
// candidate; the validator's two-phase check accepts or rejects it;
// accepted submissions append to Shared Training and research metadata
// counters update. A completion review runs when an early-trigger
// condition (ConsecutiveRejectionThreshold consecutive rejections, or
// ExhaustionSignalThreshold exhaustion signals) fires, and every
// CompletionReviewEvery rounds. Stops when that review decides to write
// the paper, or after maxIterations rounds; a continue decision resets
// the trigger counters and aggregation goes on.
func (c *Coordinator) RunAggregation(ctx context.Context, topicID string, maxIterations int) (AggregationOutcome, error) {
	state := c.resumeOrStart(topicID)
	state.CurrentTier = model.TierAggregation
	state.CurrentTopicID = topicID
	if state.CheckCounters == nil {
		state.CheckCounters = map[string]int{}
	}

	var outcome AggregationOutcome
	submitterIdx := 0

	for iter := 0; iter < maxIterations; iter++ {
		if len(c.Submitters) == 0 {
			return outcome, fmt.Errorf("coordinator: no submitters configured")
		}
		submitter := c.Submitters[submitterIdx%len(c.Submitters)]
		submitterIdx++

		sub, decision, err := c.aggregationRound(ctx, topicID, submitter)
		if err != nil {
			return outcome, err
		}

		if err := c.Workflow.Save(state); err != nil {
			return outcome, fmt.Errorf("coordinator: persist workflow state: %w", err)
		}

		if decision.Decision == model.DecisionAccept {
			outcome.AcceptedCount++
			state.ConsecutiveRejections = 0
			if outcome.AcceptedCount%CleanupReviewEvery == 0 {
				if err := c.runCleanupReview(ctx, topicID); err != nil {
					return outcome, err
				}
			}
		} else {
			outcome.RejectedCount++
			state.ConsecutiveRejections++
			c.RejectionMemory.Record(submitter.SubmitterID, topicID, decision.Summary, sub.Content)
		}

		if err := c.ResearchMetadata.RecordSubmission(topicID, decision.Decision == model.DecisionAccept); err != nil {
			return outcome, fmt.Errorf("coordinator: record research metadata: %w", err)
		}

		if decision.Decision == model.DecisionReject && isExhaustionSignal(decision.Reasoning) {
			state.ExhaustionSignals++
		}

		triggerReason := ""
		switch {
		case state.ConsecutiveRejections >= ConsecutiveRejectionThreshold:
			triggerReason = fmt.Sprintf("%d consecutive rejections", state.ConsecutiveRejections)
		case state.ExhaustionSignals >= ExhaustionSignalThreshold:
			triggerReason = fmt.Sprintf("%d exhaustion signals", state.ExhaustionSignals)
		case (iter+1)%CompletionReviewEvery == 0:
			triggerReason = fmt.Sprintf("periodic completion review after %d iterations", iter+1)
		}

		if triggerReason != "" {
			assessment, err := c.runCompletionReview(ctx, topicID, outcome.AcceptedCount+outcome.RejectedCount)
			if err != nil {
				return outcome, err
			}
			if assessment.Decision == model.CompletionWritePaper {
				outcome.CompletionReview = true
				outcome.Reason = fmt.Sprintf("%s: %s", triggerReason, assessment.Reasoning)
				break
			}
			// Self-validated (or defaulted) continue: reset the
			// early-trigger counters so the same condition doesn't refire
			// every remaining round, and keep aggregating.
			state.ConsecutiveRejections = 0
			state.ExhaustionSignals = 0
			c.logf("aggregation: completion review (%s) decided continue: %s", triggerReason, assessment.Reasoning)
		}
	}

	if err := c.Workflow.Save(state); err != nil {
		return outcome, fmt.Errorf("coordinator: persist final workflow state: %w", err)
	}
	return outcome, nil
}

// aggregationRound runs one submit+validate cycle, retrying the
// submission itself up to MaxRetries on agent-level failure (spec.md §7
// "Coordinator-level: retries at submission granularity up to
// MAX_RETRIES; persistent failure advances the workflow with a recorded
// decline").
func (c *Coordinator) aggregationRound(ctx context.Context, topicID string, submitter *agents.Submitter) (model.Submission, model.ValidationResult, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		sizeClass := submitter.NextSizeClass()
		rejectionContext := c.RejectionMemory.FormatForContext(submitter.SubmitterID, topicID)
		sysPrompt, userPrompt := c.PromptBuilder.SubmitterPrompt(topicID, sizeClass, rejectionContext)

		sub, err := submitter.Submit(ctx, sysPrompt, userPrompt, sizeClass)
		if err != nil {
			lastErr = err
			continue
		}

		recent := recentAcceptedContent(c.SharedTraining, 20)
		valSystem, valUser := c.PromptBuilder.ValidatorPrompt(topicID, sub, formatSharedTrainingDump(recent))
		result, err := c.Validator.Validate(ctx, sub, recent, valSystem, valUser)
		if err != nil {
			lastErr = err
			continue
		}

		if result.Decision == model.DecisionAccept {
			if _, err := c.SharedTraining.Append(ctx, sub.Content); err != nil {
				return sub, result, fmt.Errorf("coordinator: append accepted submission: %w", err)
			}
		}
		return sub, result, nil
	}
	return model.Submission{}, model.ValidationResult{
		Decision:  model.DecisionReject,
		Reasoning: fmt.Sprintf("recorded decline after %d failed attempts: %v", MaxRetries, lastErr),
	}, nil
}

// runCleanupReview drives the Tier 1 cleanup review (spec.md §4.6): the
// CleanupReviewer identifies at most one redundant accepted entry out of
// the full Shared Training pool; if it recommends one, the CleanupApprover
// — a second, independent validator — must approve that specific removal
// before SharedTraining.Remove archives it. Either collaborator being
// unconfigured skips the review rather than failing aggregation.
func (c *Coordinator) runCleanupReview(ctx context.Context, topicID string) error {
	if c.CleanupReviewer == nil || c.CleanupApprover == nil {
		c.logf("aggregation: cleanup review due but no reviewer/approver configured; skipping")
		return nil
	}

	entries := c.SharedTraining.Entries()
	if len(entries) < minCleanupPoolSize {
		c.logf("aggregation: cleanup review skipped; only %d accepted entries (need >= %d)", len(entries), minCleanupPoolSize)
		return nil
	}
	candidates := make([]model.CleanupCandidate, len(entries))
	for i, e := range entries {
		candidates[i] = model.CleanupCandidate{Number: e.Number, Content: e.Content}
	}

	shouldRemove, entryNumber, reasoning, err := c.CleanupReviewer.ReviewForRemoval(ctx, topicID, candidates)
	if err != nil {
		return fmt.Errorf("coordinator: cleanup review: %w", err)
	}
	if !shouldRemove {
		c.logf("aggregation: cleanup review found nothing redundant: %s", reasoning)
		return nil
	}

	var target *model.CleanupCandidate
	for i := range candidates {
		if candidates[i].Number == entryNumber {
			target = &candidates[i]
			break
		}
	}
	if target == nil {
		c.logf("aggregation: cleanup review proposed unknown entry #%d; discarding", entryNumber)
		return nil
	}

	approved, err := c.CleanupApprover.ApproveRemoval(ctx, topicID, *target, reasoning)
	if err != nil {
		return fmt.Errorf("coordinator: cleanup approval: %w", err)
	}
	if !approved {
		c.logf("aggregation: cleanup review proposed removing #%d but the second validator declined", entryNumber)
		return nil
	}

	if err := c.SharedTraining.Remove(ctx, entryNumber); err != nil {
		return fmt.Errorf("coordinator: cleanup remove entry #%d: %w", entryNumber, err)
	}
	c.logf("aggregation: cleanup review removed redundant entry #%d: %s", entryNumber, reasoning)
	return nil
}

// runCompletionReview drives the Tier 1 completion review (spec.md §4.6):
// the full, never-truncated Shared Training dump is handed to the
// CompletionReviewer, which assesses continue-vs-write-paper and
// self-validates that assessment with the same model. If no
// CompletionReviewer is configured, the triggering condition is honored
// directly (equivalent to an unconditional write_paper recommendation).
func (c *Coordinator) runCompletionReview(ctx context.Context, topicID string, submissionCount int) (model.CompletionAssessment, error) {
	if c.CompletionReviewer == nil {
		return model.CompletionAssessment{
			Decision:  model.CompletionWritePaper,
			Reasoning: "completion review not configured; honoring the triggering condition",
		}, nil
	}
	dump := formatSharedTrainingDump(allAcceptedContent(c.SharedTraining))
	assessment, err := c.CompletionReviewer.Review(ctx, topicID, dump, submissionCount)
	if err != nil {
		return model.CompletionAssessment{}, fmt.Errorf("coordinator: completion review: %w", err)
	}
	return assessment, nil
}

// allAcceptedContent returns every accepted entry's content, unlike
// recentAcceptedContent's bounded window — the completion reviewer must
// never have the Shared Training log truncated out from under it (spec.md
// §4.4 AllocateCleanupReview's "never skip" rule applies equally here).
func allAcceptedContent(log *store.SharedTrainingLog) []string {
	entries := log.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func recentAcceptedContent(log *store.SharedTrainingLog, limit int) []string {
	entries := log.Entries()
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func formatSharedTrainingDump(entries []string) string {
	dump := ""
	for _, e := range entries {
		dump += e + "\n\n"
	}
	return dump
}

// isExhaustionSignal is a cheap heuristic over the validator's reasoning
// text for "we've covered this topic" style rejections, distinct from a
// contradiction/redundancy rejection.
func isExhaustionSignal(reasoning string) bool {
	lower := strings.ToLower(reasoning)
	for _, phrase := range []string{"already covered", "no new", "exhausted", "nothing further"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
