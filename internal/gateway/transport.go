package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/paperloom/core/pkg/httpclient"
)

// httpTransport is the default Transport, grounded on the teacher's
// pkg/httpclient.Client for connection pooling and TLS handling. Retries
// are disabled at this layer (httpclient.WithMaxRetries(0)) because the
// gateway's own completeWithRetry loop implements the classification-
// driven retry policy from spec.md §4.2; letting both retry would double
// the backoff.
type httpTransport struct {
	client *httpclient.Client
}

// NewHTTPTransport builds the production Transport.
func NewHTTPTransport() Transport {
	return &httpTransport{
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 0}),
			httpclient.WithMaxRetries(0),
		),
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

func (t *httpTransport) Completion(ctx context.Context, backend Backend, req CompletionRequest) (*CompletionResponse, error) {
	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, backend.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if backend.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+backend.APIKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: reading completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyCompletionError(resp.StatusCode, string(respBody))
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("gateway: decoding completion response: %w", err)
	}
	return &CompletionResponse{Choices: decoded.Choices, Usage: decoded.Usage}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingsResponse struct {
	Data []embeddingDatum `json:"data"`
}

func (t *httpTransport) Embeddings(ctx context.Context, backend Backend, model string, input []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshaling embeddings request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, backend.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: building embeddings request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if backend.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+backend.APIKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: reading embeddings response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyCompletionError(resp.StatusCode, string(respBody))
	}

	var decoded embeddingsResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("gateway: decoding embeddings response: %w", err)
	}

	// Reorder by index, per spec.md §6.
	out := make([][]float32, len(decoded.Data))
	for _, d := range decoded.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

func (t *httpTransport) Available(ctx context.Context, backend Backend) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, backend.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	if backend.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+backend.APIKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	var models struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return false
	}
	return len(models.Data) > 0
}

// LoadedModels shells out to `lms ps` (spec.md §6), parsing the
// human-oriented table: the first whitespace-delimited column of each
// non-header line is the running model id-with-instance-suffix.
func (t *httpTransport) LoadedModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "lms", "ps")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gateway: running lms ps: %w", err)
	}
	return parseLMSPSOutput(string(out)), nil
}

func parseLMSPSOutput(out string) []string {
	lines := strings.Split(out, "\n")
	var models []string
	for i, line := range lines {
		if i == 0 {
			continue // header row
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		models = append(models, fields[0])
	}
	return models
}
