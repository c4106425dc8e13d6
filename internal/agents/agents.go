// Package agents implements the submitter and validator roles of the
// Agent Coordinator (spec.md §4.6): narrow, focused service interfaces
// around the LLM Gateway and JSON Contract Layer, grounded on the
// teacher's pkg/reasoning/interfaces.go (LLMService/ToolService-style
// narrow interfaces) and pkg/reasoning/strategy.go (ReasoningStrategy
// tagged-behavior shape).
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/jsoncontract"
)

// Completer is the narrow dependency on the LLM Gateway's completion
// call — agents only need this one method, not the whole Gateway.
type Completer interface {
	Complete(ctx context.Context, roleID, modelName string, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Parser is the narrow dependency on the JSON Contract Layer.
type Parser interface {
	Parse(raw string, schema jsoncontract.Schema) (doc map[string]any, stage string, err error)
}

// MaxConversationalRetries bounds the reprompt-on-parse-failure loop
// (spec.md §4.6 validator's MAX_RETRIES, reused here for any agent that
// must parse its own output).
const MaxConversationalRetries = 10

// truncatedFailurePreview caps how much of a failed raw response is
// echoed back into the reprompt. This fixed cap is the only bound: the
// reprompt's size is not measured against the model's input budget, and
// the failed output is always included.
const truncatedFailurePreview = 2000

// parseWithRetry calls generate, parses the result against schema, and on
// failure reprompts with the truncated failed output appended to
// userPrompt, up to MaxConversationalRetries attempts. Grounded on the
// teacher's reflection.go self-correction loop shape.
func parseWithRetry(
	ctx context.Context,
	completer Completer,
	parser Parser,
	roleID, modelName, systemPrompt, userPrompt string,
	maxTokens int,
	schema jsoncontract.Schema,
) (map[string]any, error) {
	prompt := userPrompt
	var lastErr error
	for attempt := 0; attempt < MaxConversationalRetries; attempt++ {
		raw, err := completer.Complete(ctx, roleID, modelName, systemPrompt, prompt, maxTokens)
		if err != nil {
			return nil, fmt.Errorf("agents: completion failed on attempt %d: %w", attempt+1, err)
		}
		doc, _, err := parser.Parse(raw, schema)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		prompt = reprompt(userPrompt, raw, err)
	}
	return nil, fmt.Errorf("agents: exhausted %d retries parsing %s: %w", MaxConversationalRetries, schema.Name, lastErr)
}

// reprompt renders the {original_prompt, assistant: truncated_failed_output,
// user: "your JSON was invalid..."} conversational-retry shape (spec.md
// §4.6) as a flat transcript, since Completer takes one user turn.
func reprompt(original, failedRaw string, parseErr error) string {
	preview := failedRaw
	if len(preview) > truncatedFailurePreview {
		preview = preview[:truncatedFailurePreview]
	}
	return fmt.Sprintf(
		"%s\n\n[assistant]\n%s\n\n[user]\nyour JSON was invalid: %v. reply with only JSON.",
		original, preview, parseErr,
	)
}

// schemaViolationDetail extracts a human-readable detail for logging,
// preferring the structured errs.SchemaViolation fields when present.
func schemaViolationDetail(err error) string {
	var sv *errs.SchemaViolation
	if errors.As(err, &sv) {
		return fmt.Sprintf("field %q: expected %s, got %s", sv.Field, sv.Expected, sv.Actual)
	}
	return err.Error()
}
