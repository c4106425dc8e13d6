// Package gateway is the backend-agnostic LLM client described in
// spec.md §4.2: completion and embeddings behind per-model single-flight
// discipline, batching, retry, and HTTP-body error classification.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxTokens is substituted when a caller omits max_tokens, per
// spec.md §4.2, to prevent mid-generation context overflow.
const DefaultMaxTokens = 25000

// Message is one OpenAI-chat-compatible turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice mirrors the backend's choices[] entry; consumers read Content,
// falling back to Reasoning when Content is empty (some reasoning models
// place JSON there instead).
type Choice struct {
	Message struct {
		Content   string `json:"content"`
		Reasoning string `json:"reasoning"`
	} `json:"message"`
}

// Usage mirrors the backend's usage block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// CompletionRequest is the gateway's single completion operation
// contract (spec.md §4.2).
type CompletionRequest struct {
	TaskID      string
	RoleID      string
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is what Completion returns.
type CompletionResponse struct {
	Choices []Choice
	Usage   Usage
}

// Content returns the first choice's content, falling back to its
// reasoning field when content is empty.
func (r *CompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	if c := r.Choices[0].Message.Content; c != "" {
		return c
	}
	return r.Choices[0].Message.Reasoning
}

// Backend is one dialable OpenAI-chat-compatible endpoint.
type Backend struct {
	Name    string
	BaseURL string
	APIKey  string
}

// TaskCallback lets the caller drive its own telemetry around a gateway
// call; the gateway invokes it but never owns the telemetry itself
// (spec.md §4.2 "Task tracking").
type TaskCallback func(taskID string)

// Gateway is the concrete client. Construct with New.
type Gateway struct {
	logger *slog.Logger
	client Transport

	primary  Backend
	fallback *Backend
	roleMap  map[string]bool // role_id -> use fallback on primary's non-retriable failure

	maxRetries    int
	retryBaseWait time.Duration

	embedConcurrency int64

	mu              sync.Mutex
	modelSemaphores map[string]*semaphore.Weighted
	embedSemaphore  *semaphore.Weighted
}

// Transport is the HTTP boundary the gateway drives; ground-truth
// implementation is httpTransport in transport.go, a fake is used in
// tests.
type Transport interface {
	Completion(ctx context.Context, backend Backend, req CompletionRequest) (*CompletionResponse, error)
	Embeddings(ctx context.Context, backend Backend, model string, input []string) ([][]float32, error)
	Available(ctx context.Context, backend Backend) bool
	LoadedModels(ctx context.Context) ([]string, error)
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

func WithFallback(b Backend) Option {
	return func(g *Gateway) { g.fallback = &b }
}

func WithRoleFallback(roleIDs ...string) Option {
	return func(g *Gateway) {
		for _, r := range roleIDs {
			g.roleMap[r] = true
		}
	}
}

func WithRetry(maxRetries int, baseWait time.Duration) Option {
	return func(g *Gateway) {
		g.maxRetries = maxRetries
		g.retryBaseWait = baseWait
	}
}

func WithEmbedConcurrency(n int64) Option {
	return func(g *Gateway) { g.embedConcurrency = n }
}

// New builds a Gateway against primary, using transport as the HTTP
// boundary. logger may be nil.
func New(primary Backend, transport Transport, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		logger:           logger,
		client:           transport,
		primary:          primary,
		roleMap:          make(map[string]bool),
		maxRetries:       3,
		retryBaseWait:    500 * time.Millisecond,
		embedConcurrency: 2,
		modelSemaphores:  make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.embedSemaphore = semaphore.NewWeighted(g.embedConcurrency)
	return g
}

// modelSemaphore lazily creates the per-model capacity-1 semaphore under
// the registry lock (spec.md §4.2 "Concurrency discipline").
func (g *Gateway) modelSemaphore(model string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.modelSemaphores[model]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.modelSemaphores[model] = sem
	}
	return sem
}

// Completion issues a single completion call, serialized against any
// other in-flight call for the same model, with fallback-backend retry
// on a non-retriable primary failure and linear-backoff retry on
// transient failures.
func (g *Gateway) Completion(ctx context.Context, req CompletionRequest, onStart, onDone TaskCallback) (*CompletionResponse, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	sem := g.modelSemaphore(req.Model)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("gateway: acquiring model semaphore: %w", err)
	}
	defer sem.Release(1)

	if onStart != nil {
		onStart(req.TaskID)
	}
	if onDone != nil {
		defer onDone(req.TaskID)
	}

	resp, err := g.completeWithRetry(ctx, g.primary, req)
	if err == nil {
		return resp, nil
	}

	if g.fallback != nil && g.roleMap[req.RoleID] && !isRetriable(err) {
		g.logger.Warn("gateway: falling back to secondary backend",
			"role_id", req.RoleID, "model", req.Model, "reason", err)
		return g.completeWithRetry(ctx, *g.fallback, req)
	}
	return nil, err
}

func (g *Gateway) completeWithRetry(ctx context.Context, backend Backend, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err := g.client.Completion(ctx, backend, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetriable(err) {
			return nil, err
		}
		if attempt < g.maxRetries {
			wait := time.Duration(attempt+1) * g.retryBaseWait
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}

// embedBatchSize is the fixed batch size embeddings are split into
// (spec.md §4.2 "Batching").
const embedBatchSize = 100

// Embeddings batches input into fixed-size groups, submitted
// sequentially within the embedding concurrency slot, each with its own
// short retry.
func (g *Gateway) Embeddings(ctx context.Context, model string, input []string) ([][]float32, error) {
	if err := g.embedSemaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("gateway: acquiring embed semaphore: %w", err)
	}
	defer g.embedSemaphore.Release(1)

	out := make([][]float32, 0, len(input))
	for start := 0; start < len(input); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(input) {
			end = len(input)
		}
		batch := input[start:end]

		var vectors [][]float32
		var err error
		for attempt := 0; attempt <= 1; attempt++ {
			vectors, err = g.client.Embeddings(ctx, g.primary, model, batch)
			if err == nil {
				break
			}
			if attempt == 0 {
				time.Sleep(200 * time.Millisecond)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("gateway: embedding batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Available reports whether the primary backend is reachable and has a
// loaded model (spec.md §6 "Availability probe").
func (g *Gateway) Available(ctx context.Context) bool {
	return g.client.Available(ctx, g.primary)
}

// LoadedModels enumerates currently loaded models (spec.md §6
// "Loaded-model enumeration").
func (g *Gateway) LoadedModels(ctx context.Context) ([]string, error) {
	return g.client.LoadedModels(ctx)
}
