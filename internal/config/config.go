// Package config loads the process-wide configuration described in
// spec.md §6: chunk-size set, overlap ratio, concurrency caps, retrieval
// tuning knobs, per-role context windows, and backend URLs.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/paperloom/core/internal/model"
	"gopkg.in/yaml.v3"
)

// Config is the root process configuration, loaded from YAML with
// environment overrides applied afterward (§6 "CLI / environment").
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Allocator AllocatorConfig `yaml:"allocator"`
	Backends  BackendsConfig  `yaml:"backends"`
	Roles     map[string]RoleConfig `yaml:"roles"`
	Server    ServerConfig    `yaml:"server"`
}

// SessionConfig points at the directory the state stores persist into.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// RetrievalConfig mirrors the "Known options" list in spec §6.
type RetrievalConfig struct {
	VectorBackend           string  `yaml:"vector_backend"` // "chromem" | "qdrant"
	SubmitterChunkIntervals []int   `yaml:"submitter_chunk_intervals"`
	ValidatorChunkSize      int     `yaml:"validator_chunk_size"`
	ChunkOverlapPercentage  float64 `yaml:"chunk_overlap_percentage"`
	MaxDocuments            int     `yaml:"max_documents"`
	MMRLambda               float64 `yaml:"mmr_lambda"`
	SimilarityThreshold     float64 `yaml:"similarity_threshold"`
	CoverageThreshold       float64 `yaml:"coverage_threshold"`
	TopK                    int     `yaml:"top_k"`
	VecWeight               float64 `yaml:"vec_weight"`
	BM25Weight              float64 `yaml:"bm25_weight"`
	RewriteCacheSize        int     `yaml:"rewrite_cache_size"`
	RewriteVariants         int     `yaml:"rewrite_variants"`
}

// AllocatorConfig holds the shared allocator safety knobs.
type AllocatorConfig struct {
	MinRAGReserve      int `yaml:"min_rag_reserve"`
	SafetyMargin       int `yaml:"safety_margin"`
	FormattingOverhead int `yaml:"formatting_overhead"`
}

// BackendsConfig lists the LLM backend URLs the gateway dials.
type BackendsConfig struct {
	Primary          BackendEndpoint `yaml:"primary"`
	OpenRouterEnabled bool            `yaml:"openrouter_enabled"`
	OpenRouter       BackendEndpoint `yaml:"openrouter"`
}

// BackendEndpoint is one dialable OpenAI-chat-compatible backend.
type BackendEndpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// RoleConfig is the per-role_id model/window/backend configuration.
// UseOpenRouter fills the gateway's role fallback table (§4.2).
// ContextWindow is loaded but not read: the allocator budgets use a fixed
// window set in cmd/paperloom.
type RoleConfig struct {
	Model            string `yaml:"model"`
	ContextWindow    int    `yaml:"context_window"`
	MaxOutputTokens  int    `yaml:"max_output_tokens"`
	UseOpenRouter    bool   `yaml:"fallback_to_openrouter"`
}

// ServerConfig carries the out-of-scope HTTP surface's CORS knob, since
// spec §6 names it as a config option even though the surface itself is an
// external collaborator.
type ServerConfig struct {
	CORSOrigins []string `yaml:"cors_origins"`
}

const envCORSOrigins = "CORS_ORIGINS"

// Defaults returns the baseline configuration; Load starts from this and
// overlays the YAML file and environment.
func Defaults() *Config {
	return &Config{
		Session: SessionConfig{Dir: "./session"},
		Retrieval: RetrievalConfig{
			VectorBackend:           "chromem",
			SubmitterChunkIntervals: []int{256, 512, 768, 1024},
			ValidatorChunkSize:      512,
			ChunkOverlapPercentage:  0.20,
			MaxDocuments:            200,
			MMRLambda:               0.5,
			SimilarityThreshold:     0.92,
			CoverageThreshold:       0.6,
			TopK:                    10,
			VecWeight:               0.6,
			BM25Weight:              0.4,
			RewriteCacheSize:        256,
			RewriteVariants:         3,
		},
		Allocator: AllocatorConfig{
			MinRAGReserve:      5000,
			SafetyMargin:       1000,
			FormattingOverhead: 512,
		},
		Roles: map[string]RoleConfig{},
		Server: ServerConfig{
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads a YAML config file, falls back to Defaults on a missing file,
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays CORS_ORIGINS from the environment, per spec §6
// "CLI / environment".
func applyEnv(cfg *Config) {
	if v := os.Getenv(envCORSOrigins); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if len(origins) > 0 {
			cfg.Server.CORSOrigins = origins
		}
	}
}

// Validate rejects configurations that would make downstream components
// misbehave silently (e.g. a zero top-K would make Retrieve a no-op).
func (c *Config) Validate() error {
	if len(c.Retrieval.SubmitterChunkIntervals) == 0 {
		return fmt.Errorf("config: retrieval.submitter_chunk_intervals must not be empty")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("config: retrieval.top_k must be positive")
	}
	if c.Allocator.MinRAGReserve < 0 {
		return fmt.Errorf("config: allocator.min_rag_reserve must not be negative")
	}
	return nil
}

// SizeClasses converts the configured integer intervals into model.SizeClass
// values, falling back to model.DefaultSizeClasses when unset.
func (c *RetrievalConfig) SizeClasses() []model.SizeClass {
	if len(c.SubmitterChunkIntervals) == 0 {
		return model.DefaultSizeClasses
	}
	out := make([]model.SizeClass, 0, len(c.SubmitterChunkIntervals))
	for _, v := range c.SubmitterChunkIntervals {
		out = append(out, model.SizeClass(v))
	}
	return out
}
