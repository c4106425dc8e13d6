package agents

import (
	"context"
	"fmt"

	"github.com/paperloom/core/internal/gateway"
)

// gatewayClient is the subset of *gateway.Gateway a GatewayCompleter
// drives; narrowed so tests can substitute a fake without standing up a
// real Gateway.
type gatewayClient interface {
	Completion(ctx context.Context, req gateway.CompletionRequest, onStart, onDone gateway.TaskCallback) (*gateway.CompletionResponse, error)
}

// GatewayCompleter adapts *gateway.Gateway's message-based completion
// call to the narrow Completer interface agents.go's parseWithRetry
// drives, folding system and user prompt into the two-message turn the
// gateway expects.
type GatewayCompleter struct {
	Gateway gatewayClient

	// Temperature is applied to every completion request; agents in this
	// pipeline want deterministic, low-variance output.
	Temperature float64
}

// NewGatewayCompleter builds a GatewayCompleter against g with a
// temperature of 0 for structured-output roles.
func NewGatewayCompleter(g gatewayClient) *GatewayCompleter {
	return &GatewayCompleter{Gateway: g, Temperature: 0}
}

func (c *GatewayCompleter) Complete(ctx context.Context, roleID, modelName, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	req := gateway.CompletionRequest{
		RoleID: roleID,
		Model:  modelName,
		Messages: []gateway.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.Temperature,
		MaxTokens:   maxTokens,
	}
	resp, err := c.Gateway.Completion(ctx, req, nil, nil)
	if err != nil {
		return "", fmt.Errorf("agents: gateway completion for role %q: %w", roleID, err)
	}
	return resp.Content(), nil
}
