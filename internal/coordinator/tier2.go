package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperloom/core/internal/model"
	"github.com/paperloom/core/internal/store"
)

// phaseOrder is the strict Tier-2 phase sequence after outline-create and
// body (spec.md §4.6: "body → conclusion → introduction → abstract").
var phaseOrder = []model.PaperPhase{model.PhaseConclusion, model.PhaseIntroduction, model.PhaseAbstract}

var phaseToSection = map[model.PaperPhase]store.Section{
	model.PhaseConclusion:   store.SectionConclusion,
	model.PhaseIntroduction: store.SectionIntroduction,
	model.PhaseAbstract:     store.SectionAbstract,
}

// CompilerValidation is the compiler validator's three-independent-check
// result (spec.md §4.6 Tier 2): coherence, rigor, and placement must all
// pass for a phase submission to be accepted.
type CompilerValidation struct {
	Coherence bool
	Rigor     bool
	Placement bool
	Reasoning string
}

func (v CompilerValidation) Accepted() bool { return v.Coherence && v.Rigor && v.Placement }

// CompilerValidator is supplied by the caller (grounded on the same
// jsoncontract/gateway wiring as agents.Validator, but kept separate
// since the three-check shape doesn't match ValidationResultSchema).
type CompilerValidator interface {
	ValidatePhase(ctx context.Context, phase model.PaperPhase, proposedContent string) (CompilerValidation, error)
}

// RunOutlineCreate implements the outline-create loop (spec.md §4.6): the
// submitter proposes an outline, the validator accepts or rejects it, and
// the submitter decides outline_complete. The loop ends when the
// submitter locks the outline (outline_complete=true) or MaxRetries is
// reached, at which point it is force-completed with whatever outline
// currently exists.
func (c *Coordinator) RunOutlineCreate(ctx context.Context, submitter *outlineSubmitter, validator CompilerValidator) error {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastAccepted, _ := c.OutlineMemory.LastAccepted()
		proposal, locked, err := submitter.ProposeOutline(ctx, lastAccepted)
		if err != nil {
			return fmt.Errorf("coordinator: outline proposal: %w", err)
		}

		validation, err := validator.ValidatePhase(ctx, model.PhaseOutlineCreate, proposal)
		if err != nil {
			return fmt.Errorf("coordinator: outline validation: %w", err)
		}

		if err := c.OutlineMemory.Write(proposal); err != nil {
			return fmt.Errorf("coordinator: write outline: %w", err)
		}
		c.OutlineMemory.RecordFeedback(validation.Accepted(), validation.Reasoning, proposal)

		if validation.Accepted() && locked {
			c.OutlineMemory.ClearFeedback()
			return nil
		}
	}
	return nil // forced-complete: whatever outline currently exists stands.
}

// outlineSubmitter is the narrow shape the outline-create loop needs from
// a submitter agent: propose an outline body plus whether to lock it.
type outlineSubmitter interface {
	ProposeOutline(ctx context.Context, lastAccepted string) (outline string, lock bool, err error)
}

// PhaseResult records one phase's outcome for the caller (e.g. tests or a
// progress reporter).
type PhaseResult struct {
	Phase    model.PaperPhase
	Accepted bool
	Attempts int
}

// RunCompilationPhase drives one placeholder-framed phase of the strict
// body → conclusion → introduction → abstract order (body itself is
// driven separately by RunBodyPhase, since it has no placeholder to
// replace). proposeFn generates the phase's candidate content each attempt; it may
// consult the current section/body state via the PaperMemory the
// coordinator already holds.
func (c *Coordinator) RunCompilationPhase(ctx context.Context, phase model.PaperPhase, validator CompilerValidator, proposeFn func(ctx context.Context) (string, error)) (PhaseResult, error) {
	section, ok := phaseToSection[phase]
	if !ok {
		return PhaseResult{}, fmt.Errorf("coordinator: phase %s has no section mapping", phase)
	}

	result := PhaseResult{Phase: phase}
	for attempt := 0; attempt < MaxRetries; attempt++ {
		result.Attempts++
		content, err := proposeFn(ctx)
		if err != nil {
			return result, fmt.Errorf("coordinator: propose phase %s: %w", phase, err)
		}

		validation, err := validator.ValidatePhase(ctx, phase, content)
		if err != nil {
			return result, fmt.Errorf("coordinator: validate phase %s: %w", phase, err)
		}
		if !validation.Accepted() {
			continue
		}

		if err := c.PaperMemory.ReplacePlaceholder(section, content); err != nil {
			return result, fmt.Errorf("coordinator: replace placeholder for phase %s: %w", phase, err)
		}
		result.Accepted = true
		return result, nil
	}
	return result, fmt.Errorf("coordinator: phase %s reached MAX_RETRIES without acceptance; forced-complete path", phase)
}

// RunBodyPhase drives the Tier-2 body phase (spec.md §4.6), the first
// phase of the strict body → conclusion → introduction → abstract order.
// Unlike the placeholder-framed phases, the body has no fixed slot: each
// turn proposeFn supplies one edit op. full_content is the open-ended
// drafting op — it frames the paper via PaperMemory.FrameBody on the
// first turn, and appends via PaperMemory.AppendBody on every turn after
// that — while replace/insert_after/delete make precise mid-draft
// corrections through PaperMemory.ApplyEdit. Each candidate result passes
// the same three-check compiler validation (coherence, rigor, placement)
// before being committed. The loop ends when proposeFn reports done, or
// forced-completes at MaxRetries with whatever was last accepted.
func (c *Coordinator) RunBodyPhase(ctx context.Context, validator CompilerValidator, proposeFn func(ctx context.Context, currentBody string) (op model.EditOp, oldString, newText string, done bool, err error)) (PhaseResult, error) {
	result := PhaseResult{Phase: model.PhaseBody}
	for attempt := 0; attempt < MaxRetries; attempt++ {
		result.Attempts++
		op, oldString, newText, done, err := proposeFn(ctx, c.PaperMemory.Body())
		if err != nil {
			return result, fmt.Errorf("coordinator: propose body edit: %w", err)
		}

		candidate, err := c.previewBodyEdit(op, oldString, newText)
		if err != nil {
			// Placement pre-validation failure (errs.PlacementMatchFailure):
			// the next proposeFn call sees the unchanged body and retries.
			continue
		}

		validation, err := validator.ValidatePhase(ctx, model.PhaseBody, candidate)
		if err != nil {
			return result, fmt.Errorf("coordinator: validate body phase: %w", err)
		}
		if !validation.Accepted() {
			continue
		}

		if err := c.commitBodyEdit(op, oldString, newText); err != nil {
			return result, fmt.Errorf("coordinator: commit body edit: %w", err)
		}
		result.Accepted = true
		if done {
			return result, nil
		}
	}
	if result.Accepted {
		return result, nil // forced-complete with whatever body drafting reached.
	}
	return result, fmt.Errorf("coordinator: body phase reached MAX_RETRIES without any accepted content")
}

// previewBodyEdit computes what the body would become after op without
// mutating PaperMemory, so RunBodyPhase can validate before committing.
func (c *Coordinator) previewBodyEdit(op model.EditOp, oldString, newText string) (string, error) {
	switch {
	case op == model.OpFullContent && !c.PaperMemory.Framed():
		return strings.TrimSpace(newText), nil
	case op == model.OpFullContent:
		current := c.PaperMemory.Body()
		if current == "" {
			return strings.TrimSpace(newText), nil
		}
		return current + "\n\n" + strings.TrimSpace(newText), nil
	default:
		return c.PaperMemory.PreviewEdit(op, oldString, newText)
	}
}

// commitBodyEdit applies the same op previewBodyEdit validated, routing
// to FrameBody, AppendBody, or ApplyEdit as appropriate.
func (c *Coordinator) commitBodyEdit(op model.EditOp, oldString, newText string) error {
	switch {
	case op == model.OpFullContent && !c.PaperMemory.Framed():
		return c.PaperMemory.FrameBody(newText)
	case op == model.OpFullContent:
		return c.PaperMemory.AppendBody(newText)
	default:
		return c.PaperMemory.ApplyEdit(op, oldString, newText)
	}
}

// CritiqueVerdict is one peer-review attempt's judgment (spec.md §4.6
// Tier 2 "peer-review (critique) subphase").
type CritiqueVerdict struct {
	Accept bool
	Notes  string
}

const maxCritiqueAttempts = 5

// RunCritique collects up to maxCritiqueAttempts critiques of the current
// body and returns every verdict gathered (on error, those collected so
// far), so the caller can decide continue | partial_revision |
// total_rewrite.
func RunCritique(ctx context.Context, critique func(ctx context.Context, body string) (CritiqueVerdict, error), body string) ([]CritiqueVerdict, error) {
	var verdicts []CritiqueVerdict
	for i := 0; i < maxCritiqueAttempts; i++ {
		v, err := critique(ctx, body)
		if err != nil {
			return verdicts, fmt.Errorf("coordinator: critique attempt %d: %w", i+1, err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// PlacementJudge is the second stage of the two-stage placement check
// (spec.md §4.6 "two-stage check"): stage one is
// PaperMemory's exact-match-count pre-validation; stage two is
// an LLM judgment on whether old_string's location is contextually
// appropriate for the proposed edit, independent of whether it
// mechanically matched.
type PlacementJudge interface {
	JudgePlacement(ctx context.Context, currentBody string, op model.EditOp, oldString, newText string) (appropriate bool, reasoning string, err error)
}

// RunPartialRevision implements the iterative edit loop (spec.md §4.6):
// the agent proposes ONE edit per turn via proposeEdit. Non-full_content
// edits pass the two-stage placement check — stage one (exact-match-count)
// via PaperMemory.PreviewEdit, and only if that passes, stage two
// (contextual appropriateness) via judge — before being applied through
// PaperMemory.ApplyEdit; judge may be nil to skip both stages here, leaving
// only ApplyEdit's own exact-match check (e.g.
// full_content rewrites, which have no old_string to place). The loop ends
// when moreEditsNeeded returns false or MaxRetries is reached.
func (c *Coordinator) RunPartialRevision(ctx context.Context, judge PlacementJudge, proposeEdit func(ctx context.Context, currentBody string) (op model.EditOp, oldString, newText string, moreEditsNeeded bool, err error)) error {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		op, oldString, newText, more, err := proposeEdit(ctx, c.PaperMemory.Body())
		if err != nil {
			return fmt.Errorf("coordinator: propose edit: %w", err)
		}

		if op != model.OpFullContent && judge != nil {
			if _, err := c.PaperMemory.PreviewEdit(op, oldString, newText); err != nil {
				// Stage one failed (errs.PlacementMatchFailure): the judge is
				// not consulted and the next proposeEdit sees the unchanged body.
				if !more {
					return nil
				}
				continue
			}
			appropriate, reasoning, err := judge.JudgePlacement(ctx, c.PaperMemory.Body(), op, oldString, newText)
			if err != nil {
				return fmt.Errorf("coordinator: judge placement: %w", err)
			}
			if !appropriate {
				c.logf("partial revision: edit rejected by placement judge: %s", reasoning)
				if !more {
					return nil
				}
				continue
			}
		}

		if err := c.PaperMemory.ApplyEdit(op, oldString, newText); err != nil {
			// PlacementMatchFailure converts into a rejection the caller's
			// proposeEdit sees on its next invocation via the unchanged
			// body; the loop simply retries rather than aborting.
			if !more {
				return nil
			}
			continue
		}
		if !more {
			return nil
		}
	}
	return nil
}
