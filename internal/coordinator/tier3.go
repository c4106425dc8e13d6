package coordinator

import (
	"context"
	"fmt"
)

// CertaintyLevel is the certainty assessor's classification of the
// achievable answer (spec.md §4.6 Tier 3).
type CertaintyLevel string

const (
	FullAnswer     CertaintyLevel = "full_answer"
	PartialAnswer  CertaintyLevel = "partial_answer"
	NoAnswerKnown  CertaintyLevel = "no_answer_known"
	OtherCertainty CertaintyLevel = "other"
)

// CertaintyAssessment is the certainty assessor's output.
type CertaintyAssessment struct {
	Level   CertaintyLevel
	Summary string
}

// Format is the format selector's chosen output shape.
type Format string

const (
	ShortForm Format = "short_form"
	LongForm  Format = "long_form"
)

// ChapterKind distinguishes an existing-paper reference from a
// not-yet-written gap in a long-form volume plan.
type ChapterKind string

const (
	ChapterExisting ChapterKind = "existing_paper"
	ChapterGap      ChapterKind = "gap_paper"
)

// Chapter is one entry in the volume organizer's ordered plan.
type Chapter struct {
	Kind    ChapterKind
	PaperID string // set when Kind == ChapterExisting
	Title   string // set when Kind == ChapterGap
}

// VolumePlan is the volume organizer's ordered chapter list: an
// introduction, a sequence of body chapters, and a conclusion (spec.md
// §4.6: "{introduction} ∪ body_chapters ∪ {conclusion}").
type VolumePlan struct {
	Introduction Chapter
	BodyChapters []Chapter
	Conclusion   Chapter
}

// MaxVolumeIterations caps the volume-organizer refinement loop (spec.md
// §4.6 Tier 3, "capped at MAX_ITERATIONS (e.g. 15) after which completion
// is forced").
const MaxVolumeIterations = 15

// CertaintyAssessor scans paper abstracts (and, on request, full content
// of specific papers) to classify the achievable answer.
type CertaintyAssessor interface {
	Assess(ctx context.Context, paperAbstracts map[string]string, expand func(paperID string) (string, error)) (CertaintyAssessment, error)
}

// FormatSelector chooses short_form vs. long_form given a certainty
// assessment.
type FormatSelector interface {
	SelectFormat(ctx context.Context, assessment CertaintyAssessment) (Format, error)
}

// VolumeOrganizer proposes a volume plan and reports whether the
// submitter has locked it (outline_complete=true); the validator decision
// is folded into accepted.
type VolumeOrganizer interface {
	ProposePlan(ctx context.Context, previous *VolumePlan, validatorFeedback string) (plan VolumePlan, accepted bool, locked bool, err error)
}

// FinalAnswerResult is what RunFinalAnswer produces.
type FinalAnswerResult struct {
	Assessment CertaintyAssessment
	Format     Format
	Plan       *VolumePlan // nil when Format == ShortForm
}

// RunFinalAnswer drives Tier 3 (spec.md §4.6): certainty assessment,
// format selection, and — for long form — the volume-organizer
// refinement loop. Operates only on completed papers; brainstorm
// databases are never consulted here.
func RunFinalAnswer(
	ctx context.Context,
	assessor CertaintyAssessor,
	selector FormatSelector,
	organizer VolumeOrganizer,
	paperAbstracts map[string]string,
	expand func(paperID string) (string, error),
) (FinalAnswerResult, error) {
	assessment, err := assessor.Assess(ctx, paperAbstracts, expand)
	if err != nil {
		return FinalAnswerResult{}, fmt.Errorf("coordinator: certainty assessment: %w", err)
	}

	format, err := selector.SelectFormat(ctx, assessment)
	if err != nil {
		return FinalAnswerResult{}, fmt.Errorf("coordinator: format selection: %w", err)
	}

	result := FinalAnswerResult{Assessment: assessment, Format: format}
	if format == ShortForm {
		return result, nil
	}

	var plan *VolumePlan
	var feedback string
	for iter := 0; iter < MaxVolumeIterations; iter++ {
		proposed, accepted, locked, err := organizer.ProposePlan(ctx, plan, feedback)
		if err != nil {
			return result, fmt.Errorf("coordinator: volume organizer iteration %d: %w", iter+1, err)
		}
		plan = &proposed
		if accepted && locked {
			result.Plan = plan
			return result, nil
		}
		if !accepted {
			feedback = "plan rejected; revise chapter ordering and gap coverage"
		}
	}
	// MAX_ITERATIONS reached: force-complete with whatever plan was last
	// proposed rather than hanging (spec.md §8 boundary case).
	result.Plan = plan
	return result, nil
}
