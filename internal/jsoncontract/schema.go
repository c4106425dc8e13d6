package jsoncontract

import (
	"fmt"

	"github.com/paperloom/core/internal/errs"
)

// FieldKind is the primitive type a schema field is checked against.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Field describes one validated field of a consumer's expected JSON shape.
// Enum, when non-empty, restricts a string field to a fixed set of values
// (e.g. decision ∈ {accept,reject}), per spec.md §4.1.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Enum     []string
}

// Schema is the field list a consumer validates a decoded JSON value
// against. Schemas are built by hand here rather than compiled from
// invopop/jsonschema output — that package instead generates the schema
// blob injected into the Context Allocator's mandatory slot (SPEC_FULL.md
// §3), a distinct use from this package's field-by-field checker.
type Schema struct {
	Name   string
	Fields []Field
}

// Validate checks doc (already unmarshaled into map[string]any) against s.
// A field whose value is a []any where an object was expected is accepted
// by taking the first element, per spec.md §4.1's "list where object
// expected" rule; the caller should log the warning this implies.
func (s Schema) Validate(doc map[string]any) (took map[string]any, warning string, err error) {
	took = doc
	for _, f := range s.Fields {
		v, present := doc[f.Name]
		if !present {
			if f.Required {
				return nil, "", &errs.SchemaViolation{Field: f.Name, Expected: kindName(f.Kind), Actual: "missing"}
			}
			continue
		}

		if f.Kind == KindObject {
			if arr, ok := v.([]any); ok {
				if len(arr) == 0 {
					return nil, "", &errs.SchemaViolation{Field: f.Name, Expected: "object", Actual: "empty array"}
				}
				obj, ok := arr[0].(map[string]any)
				if !ok {
					return nil, "", &errs.SchemaViolation{Field: f.Name, Expected: "object", Actual: "array of non-object"}
				}
				warning = fmt.Sprintf("field %q: expected object, got list; took first element", f.Name)
				took = cloneWithField(doc, f.Name, obj)
				v = obj
			}
		}

		if !kindMatches(f.Kind, v) {
			return nil, "", &errs.SchemaViolation{Field: f.Name, Expected: kindName(f.Kind), Actual: goTypeName(v)}
		}

		if len(f.Enum) > 0 {
			sv, ok := v.(string)
			if !ok || !contains(f.Enum, sv) {
				return nil, "", &errs.SchemaViolation{Field: f.Name, Expected: fmt.Sprintf("one of %v", f.Enum), Actual: fmt.Sprintf("%v", v)}
			}
		}
	}
	return took, warning, nil
}

func cloneWithField(doc map[string]any, field string, value any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out[field] = value
	return out
}

func kindMatches(k FieldKind, v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	default:
		return false
	}
}

func kindName(k FieldKind) string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

func goTypeName(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// DecisionEnum and ActionEnum are the two enums named
// explicitly in spec.md §4.1.
var (
	DecisionEnum = []string{"accept", "reject"}
	ActionEnum   = []string{"new_topic", "continue_existing", "combine_topics"}
)

// ValidationResultSchema validates the shape consumed from a validator's
// raw JSON output (spec.md §3 ValidationResult).
var ValidationResultSchema = Schema{
	Name: "ValidationResult",
	Fields: []Field{
		{Name: "submission_id", Kind: KindString, Required: true},
		{Name: "decision", Kind: KindString, Required: true, Enum: DecisionEnum},
		{Name: "reasoning", Kind: KindString, Required: true},
		{Name: "summary", Kind: KindString, Required: false},
		{Name: "json_valid", Kind: KindBool, Required: false},
		{Name: "contradiction_check_passed", Kind: KindBool, Required: false},
	},
}

// SubmissionSchema validates a submitter agent's raw JSON output (spec.md
// §3 Submission). submitter_id, timestamp, and chunk_size_used are filled
// in by the agent from call context rather than parsed from the model's
// own output.
var SubmissionSchema = Schema{
	Name: "Submission",
	Fields: []Field{
		{Name: "content", Kind: KindString, Required: true},
		{Name: "reasoning", Kind: KindString, Required: true},
		{Name: "is_decline", Kind: KindBool, Required: false},
	},
}

// TopicDecisionSchema validates the topic-selector's output (SPEC_FULL.md
// §4.6 Topic Selection supplement).
var TopicDecisionSchema = Schema{
	Name: "TopicDecision",
	Fields: []Field{
		{Name: "action", Kind: KindString, Required: true, Enum: ActionEnum},
		{Name: "topic", Kind: KindString, Required: true},
		{Name: "reasoning", Kind: KindString, Required: false},
	},
}

// CleanupReviewSchema validates the cleanup-review agent's raw JSON
// output (spec.md §4.6 Tier 1), grounded on
// original_source/backend/autonomous/validation/paper_redundancy_checker.py's
// {should_remove, paper_id, reasoning} response shape, adapted from
// papers to Shared Training entry numbers.
var CleanupReviewSchema = Schema{
	Name: "CleanupReview",
	Fields: []Field{
		{Name: "should_remove", Kind: KindBool, Required: true},
		{Name: "entry_number", Kind: KindNumber, Required: false},
		{Name: "reasoning", Kind: KindString, Required: true},
	},
}

// CompletionAssessmentSchema validates the completion reviewer's initial
// continue-vs-write-paper assessment (spec.md §4.6 Tier 1), grounded on
// original_source/backend/autonomous/agents/completion_reviewer.py's
// {decision, reasoning, suggested_additions} response.
var CompletionAssessmentSchema = Schema{
	Name: "CompletionAssessment",
	Fields: []Field{
		{Name: "decision", Kind: KindString, Required: true, Enum: []string{"continue", "write_paper"}},
		{Name: "reasoning", Kind: KindString, Required: true},
		{Name: "suggested_additions", Kind: KindString, Required: false},
	},
}

// SelfValidationSchema validates the completion reviewer's second-pass
// self-validation of its own assessment (spec.md §4.6 "self-validation
// mode"; glossary).
var SelfValidationSchema = Schema{
	Name: "SelfValidation",
	Fields: []Field{
		{Name: "validated", Kind: KindBool, Required: true},
		{Name: "reasoning", Kind: KindString, Required: false},
	},
}

// PlacementJudgmentSchema validates the second stage of the two-stage
// placement check (spec.md §4.6): whether an edit's target location is
// contextually appropriate, independent of the mechanical
// exact-match-count pre-validation PaperMemory already ran.
var PlacementJudgmentSchema = Schema{
	Name: "PlacementJudgment",
	Fields: []Field{
		{Name: "appropriate", Kind: KindBool, Required: true},
		{Name: "reasoning", Kind: KindString, Required: false},
	},
}
