package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// lexicalDuplicateThreshold is the Jaccard word-overlap ratio above which
// the contradiction-heuristics pass short-circuits to a reject without
// spending an LLM call, mirroring (at far lower cost) the Retrieval
// Engine's embedding-based near-duplicate threshold (spec.md §4.3,
// SimilarityThreshold 0.92).
const lexicalDuplicateThreshold = 0.92

// Validator implements the two-phase acceptance check named in spec.md
// §4.6 Tier 1: cheap contradiction heuristics first, then an LLM quality
// assessment. Grounded on the teacher's pkg/reasoning narrow-interface
// shape, same as Submitter.
type Validator struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int
}

// NewValidator builds a Validator bound to roleID/modelName.
func NewValidator(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int) *Validator {
	return &Validator{
		completer:       completer,
		parser:          parser,
		RoleID:          roleID,
		Model:           modelName,
		MaxOutputTokens: maxOutputTokens,
	}
}

// Validate runs the two-phase check against sub. recentAccepted is the
// content of already-accepted Shared Training entries (and, optionally,
// pending in-flight submissions) the contradiction-heuristics pass
// compares sub.Content against before any LLM call is made.
func (v *Validator) Validate(ctx context.Context, sub model.Submission, recentAccepted []string, systemPrompt, userPromptTemplate string) (model.ValidationResult, error) {
	if dup, against := nearDuplicate(sub.Content, recentAccepted); dup {
		return model.ValidationResult{
			SubmissionID:             sub.ID,
			Decision:                 model.DecisionReject,
			Reasoning:                fmt.Sprintf("contradiction heuristic: near-duplicate of an existing entry (%.2f word overlap)", against),
			Summary:                  "rejected by lexical duplicate check before LLM review",
			JSONValid:                true,
			ContradictionCheckPassed: false,
		}, nil
	}

	doc, err := parseWithRetry(ctx, v.completer, v.parser, v.RoleID, v.Model, systemPrompt, userPromptTemplate, v.MaxOutputTokens, jsoncontract.ValidationResultSchema)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("validator: %s: %w", schemaViolationDetail(err), err)
	}

	decision, _ := doc["decision"].(string)
	reasoning, _ := doc["reasoning"].(string)
	summary, _ := doc["summary"].(string)
	jsonValid, jsonValidPresent := doc["json_valid"].(bool)
	if !jsonValidPresent {
		jsonValid = true
	}
	contradictionPassed, contradictionPresent := doc["contradiction_check_passed"].(bool)
	if !contradictionPresent {
		contradictionPassed = true
	}

	result := model.ValidationResult{
		SubmissionID:             sub.ID,
		Decision:                 model.Decision(decision),
		Reasoning:                reasoning,
		Summary:                  summary,
		JSONValid:                jsonValid,
		ContradictionCheckPassed: contradictionPassed,
	}
	if doc["submission_id"] == nil {
		result.SubmissionID = sub.ID
	}
	return result, nil
}

// nearDuplicate reports whether content's word set overlaps any entry in
// against at or above lexicalDuplicateThreshold (Jaccard similarity),
// along with the highest ratio found.
func nearDuplicate(content string, against []string) (bool, float64) {
	target := wordSet(content)
	if len(target) == 0 {
		return false, 0
	}
	best := 0.0
	for _, candidate := range against {
		ratio := jaccard(target, wordSet(candidate))
		if ratio > best {
			best = ratio
		}
	}
	return best >= lexicalDuplicateThreshold, best
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
