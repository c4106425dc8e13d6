package agents

import (
	"context"

	"github.com/paperloom/core/internal/jsoncontract"
)

// fakeCompleter replays a fixed sequence of raw responses, one per call,
// repeating the last one if called more times than scripted.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(ctx context.Context, roleID, modelName, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	if idx < 0 {
		return "", nil
	}
	return f.responses[idx], err
}

// fakeParser delegates to a real jsoncontract.Contract, so tests run the
// full extract, repair and validate pipeline.
type fakeParser struct {
	contract *jsoncontract.Contract
}

func (f *fakeParser) Parse(raw string, schema jsoncontract.Schema) (map[string]any, string, error) {
	return f.contract.Parse(raw, schema)
}
