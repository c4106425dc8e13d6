// Command paperloom is the CLI entrypoint wiring the Context Allocator,
// Retrieval Engine, LLM Gateway, state stores, agents, and Coordinator
// into a runnable process (spec.md §9 "explicit App struct, no global
// singletons"). Grounded on the teacher's cmd/hector/main.go: flag-driven
// config path, signal-based graceful shutdown, structured logging via
// slog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/paperloom/core/internal/agents"
	"github.com/paperloom/core/internal/allocator"
	"github.com/paperloom/core/internal/config"
	"github.com/paperloom/core/internal/coordinator"
	"github.com/paperloom/core/internal/gateway"
	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/logger"
	"github.com/paperloom/core/internal/prompts"
	"github.com/paperloom/core/internal/retrieval"
	"github.com/paperloom/core/internal/retrieval/vectorstore"
	"github.com/paperloom/core/internal/store"
)

// App holds every long-lived collaborator explicitly; nothing here is a
// package-level singleton, so a second App (e.g. in tests) never
// interferes with the first.
type App struct {
	Logger      *slog.Logger
	Config      *config.Config
	Gateway     *gateway.Gateway
	Retrieval   *retrieval.Engine
	Coordinator *coordinator.Coordinator
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	researchPrompt := flag.String("prompt", "", "research prompt to run the pipeline on")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	log := logger.New(logger.ParseLevel(*logLevel), os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	app, err := buildApp(cfg, log)
	if err != nil {
		log.Error("preflight checks failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *researchPrompt == "" {
		log.Error("missing -prompt")
		os.Exit(1)
	}

	if err := app.Run(ctx, *researchPrompt); err != nil {
		log.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}
}

// buildApp wires every collaborator and runs preflight checks before
// returning a ready-to-run App. Errors creating the session dir or the
// vector store return at once. The preflight checks after that are
// independent of each other (an unreachable gateway doesn't prevent
// checking top_k or the session dir), so they're collected with
// go-multierror instead of failing fast on the first one — a caller
// fixing config wants the whole list in one pass, not one error per
// re-run.
func buildApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.Session.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("paperloom: creating session dir: %w", err)
	}

	transport := gateway.NewHTTPTransport()
	primary := gateway.Backend{
		Name:    "primary",
		BaseURL: cfg.Backends.Primary.BaseURL,
		APIKey:  cfg.Backends.Primary.APIKey,
	}
	var gwOpts []gateway.Option
	if cfg.Backends.OpenRouterEnabled {
		gwOpts = append(gwOpts, gateway.WithFallback(gateway.Backend{
			Name:    "openrouter",
			BaseURL: cfg.Backends.OpenRouter.BaseURL,
			APIKey:  cfg.Backends.OpenRouter.APIKey,
		}))
		var fallbackRoles []string
		for roleID, role := range cfg.Roles {
			if role.UseOpenRouter {
				fallbackRoles = append(fallbackRoles, roleID)
			}
		}
		gwOpts = append(gwOpts, gateway.WithRoleFallback(fallbackRoles...))
	}
	gw := gateway.New(primary, transport, logger, gwOpts...)

	vstore, err := vectorstore.New(cfg.Retrieval.VectorBackend, vectorstore.QdrantConfig{})
	if err != nil {
		return nil, fmt.Errorf("paperloom: building vector store: %w", err)
	}

	embeddingModel := "embedding-default"
	retrievalCfg := retrieval.Config{
		EmbeddingModel:      embeddingModel,
		TopK:                cfg.Retrieval.TopK,
		VecWeight:           cfg.Retrieval.VecWeight,
		BM25Weight:          cfg.Retrieval.BM25Weight,
		MMRLambda:           retrieval.DefaultMMRLambda,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		CoverageThreshold:   cfg.Retrieval.CoverageThreshold,
		MaxDocuments:        cfg.Retrieval.MaxDocuments,
	}
	engine := retrieval.New(gw, vstore, logger, retrievalCfg)

	var preflight *multierror.Error
	if !gw.Available(context.Background()) {
		preflight = multierror.Append(preflight, fmt.Errorf("gateway: primary backend %q unreachable", primary.BaseURL))
	}
	if cfg.Retrieval.TopK <= 0 {
		preflight = multierror.Append(preflight, fmt.Errorf("config: retrieval.top_k must be positive"))
	}
	if _, err := os.Stat(cfg.Session.Dir); err != nil {
		preflight = multierror.Append(preflight, fmt.Errorf("session dir: %w", err))
	}
	if preflight.ErrorOrNil() != nil {
		return nil, preflight.ErrorOrNil()
	}

	coord, err := buildCoordinator(cfg, logger, gw, engine)
	if err != nil {
		return nil, err
	}

	return &App{Logger: logger, Config: cfg, Gateway: gw, Retrieval: engine, Coordinator: coord}, nil
}

// buildCoordinator wires the state stores, the JSON Contract Layer, the
// agents, and the prompt builder into one Coordinator.
func buildCoordinator(cfg *config.Config, logger *slog.Logger, gw *gateway.Gateway, engine *retrieval.Engine) (*coordinator.Coordinator, error) {
	dir := cfg.Session.Dir

	sharedTraining, err := store.NewSharedTrainingLog(filepath.Join(dir, "shared_training.txt"), nil)
	if err != nil {
		return nil, fmt.Errorf("paperloom: shared training log: %w", err)
	}
	workflow, err := store.NewWorkflowStore(filepath.Join(dir, "workflow_state.json"))
	if err != nil {
		return nil, fmt.Errorf("paperloom: workflow store: %w", err)
	}
	research, err := store.NewResearchMetadataStore(filepath.Join(dir, "research_metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("paperloom: research metadata store: %w", err)
	}
	outline, err := store.NewOutlineMemory(filepath.Join(dir, "outline.txt"))
	if err != nil {
		return nil, fmt.Errorf("paperloom: outline memory: %w", err)
	}
	paper, err := store.NewPaperMemory(filepath.Join(dir, "paper.txt"))
	if err != nil {
		return nil, fmt.Errorf("paperloom: paper memory: %w", err)
	}

	contract := jsoncontract.New(nil, logger)
	completer := agents.NewGatewayCompleter(gw)

	submitters := make([]*agents.Submitter, 0, len(cfg.Roles))
	if len(cfg.Roles) == 0 {
		submitters = append(submitters, agents.NewSubmitter(completer, contract, "submitter-1", "role-submitter", "default-model", gateway.DefaultMaxTokens))
	} else {
		i := 0
		for roleID, role := range cfg.Roles {
			i++
			submitters = append(submitters, agents.NewSubmitter(completer, contract, fmt.Sprintf("submitter-%d", i), roleID, role.Model, role.MaxOutputTokens))
		}
	}

	validator := agents.NewValidator(completer, contract, "role-validator", "default-model", gateway.DefaultMaxTokens)
	topicSelector := agents.NewTopicSelector(completer, contract, "role-topic-selector", "default-model", gateway.DefaultMaxTokens)
	topicValidator := agents.NewTopicValidator(completer, contract, "role-topic-validator", "default-model", gateway.DefaultMaxTokens)

	promptBuilder := prompts.NewBuilder()

	// cleanupApprover deliberately uses a distinct RoleID from
	// cleanupReviewer so the archive decision is a genuine second opinion,
	// not the same call repeated (spec.md §4.6 "second LLM validator").
	cleanupReviewer := agents.NewCleanupReviewAgent(completer, contract, "role-cleanup-reviewer", "default-model", gateway.DefaultMaxTokens, promptBuilder.CleanupReviewPrompt)
	cleanupApprover := agents.NewCleanupApprovalAgent(completer, contract, "role-cleanup-approver", "default-model", gateway.DefaultMaxTokens, promptBuilder.CleanupApprovalPrompt)
	completionReviewer := agents.NewCompletionReviewAgent(completer, contract, "role-completion-reviewer", "default-model", gateway.DefaultMaxTokens, promptBuilder.CompletionAssessPrompt, promptBuilder.CompletionSelfValidatePrompt)

	budget := allocator.Budget{
		ContextWindow:      32000,
		MaxOutputTokens:    gateway.DefaultMaxTokens,
		SafetyMargin:       cfg.Allocator.SafetyMargin,
		MinRAGReserve:      cfg.Allocator.MinRAGReserve,
		FormattingOverhead: cfg.Allocator.FormattingOverhead,
	}

	return &coordinator.Coordinator{
		Logger:             logger,
		SharedTraining:     sharedTraining,
		RejectionMemory:    store.NewRejectionMemory(),
		OutlineMemory:      outline,
		PaperMemory:        paper,
		Workflow:           workflow,
		ResearchMetadata:   research,
		Retriever:          engine,
		Ingester:           engine,
		Budget:             budget,
		Submitters:         submitters,
		Validator:          validator,
		TopicSelector:      topicSelector,
		TopicValidator:     topicValidator,
		CleanupReviewer:    cleanupReviewer,
		CleanupApprover:    cleanupApprover,
		CompletionReviewer: completionReviewer,
		PromptBuilder:      promptBuilder,
	}, nil
}

// Run selects a topic and runs Tier 1 aggregation against it; Tiers 2
// and 3 are driven interactively by a caller that supplies the
// phase-specific propose/critique callbacks (spec.md §4.6), so they are
// not invoked from this unattended entrypoint.
func (a *App) Run(ctx context.Context, researchPrompt string) error {
	decision, err := a.Coordinator.SelectTopic(ctx, researchPrompt)
	if err != nil {
		return fmt.Errorf("paperloom: topic selection: %w", err)
	}

	outcome, err := a.Coordinator.RunAggregation(ctx, decision.Topic, 100)
	if err != nil {
		return fmt.Errorf("paperloom: aggregation: %w", err)
	}

	a.Logger.Info("aggregation complete",
		"topic_id", decision.Topic,
		"accepted", outcome.AcceptedCount,
		"rejected", outcome.RejectedCount,
		"completion_review", outcome.CompletionReview,
	)
	return nil
}
