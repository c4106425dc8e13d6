package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/gateway"
)

type fakeGatewayClient struct {
	lastReq gateway.CompletionRequest
	resp    *gateway.CompletionResponse
	err     error
}

func (f *fakeGatewayClient) Completion(ctx context.Context, req gateway.CompletionRequest, onStart, onDone gateway.TaskCallback) (*gateway.CompletionResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestGatewayCompleter_FoldsSystemAndUserPromptIntoTwoMessages(t *testing.T) {
	resp := &gateway.CompletionResponse{Choices: []gateway.Choice{{}}}
	resp.Choices[0].Message.Content = `{"ok":true}`
	client := &fakeGatewayClient{resp: resp}
	c := NewGatewayCompleter(client)

	out, err := c.Complete(context.Background(), "role-submitter", "gpt", "system text", "user text", 500)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, "system", client.lastReq.Messages[0].Role)
	assert.Equal(t, "system text", client.lastReq.Messages[0].Content)
	assert.Equal(t, "user", client.lastReq.Messages[1].Role)
	assert.Equal(t, "user text", client.lastReq.Messages[1].Content)
	assert.Equal(t, 500, client.lastReq.MaxTokens)
}
