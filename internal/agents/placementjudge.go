package agents

import (
	"context"
	"fmt"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

// PlacementJudgeAgent implements the second stage of the two-stage
// placement check (spec.md §4.6): stage one (PaperMemory's
// exact-match-count pre-validation) has already passed by the time this
// runs, so this asks a separate question — is old_string's location the
// contextually right place for the proposed change, not merely whether
// it matched.
type PlacementJudgeAgent struct {
	completer Completer
	parser    Parser

	RoleID          string
	Model           string
	MaxOutputTokens int

	PromptFn func(currentBody string, op model.EditOp, oldString, newText string) (system, user string)
}

// NewPlacementJudgeAgent builds a PlacementJudgeAgent bound to
// roleID/modelName.
func NewPlacementJudgeAgent(completer Completer, parser Parser, roleID, modelName string, maxOutputTokens int, promptFn func(string, model.EditOp, string, string) (string, string)) *PlacementJudgeAgent {
	return &PlacementJudgeAgent{
		completer:       completer,
		parser:          parser,
		RoleID:          roleID,
		Model:           modelName,
		MaxOutputTokens: maxOutputTokens,
		PromptFn:        promptFn,
	}
}

// JudgePlacement implements coordinator.PlacementJudge.
func (a *PlacementJudgeAgent) JudgePlacement(ctx context.Context, currentBody string, op model.EditOp, oldString, newText string) (bool, string, error) {
	system, user := a.PromptFn(currentBody, op, oldString, newText)
	doc, err := parseWithRetry(ctx, a.completer, a.parser, a.RoleID, a.Model, system, user, a.MaxOutputTokens, jsoncontract.PlacementJudgmentSchema)
	if err != nil {
		return false, "", fmt.Errorf("placement judge: %w", err)
	}
	appropriate, _ := doc["appropriate"].(bool)
	reasoning, _ := doc["reasoning"].(string)
	return appropriate, reasoning, nil
}
