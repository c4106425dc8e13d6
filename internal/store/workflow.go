package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/paperloom/core/internal/model"
)

// WorkflowState is the single JSON blob persisted on every state
// transition (spec.md §4.5), letting the coordinator resume after a
// crash or restart.
type WorkflowState struct {
	IsRunning             bool              `json:"is_running"`
	CurrentTier           model.Tier        `json:"current_tier,omitempty"`
	CurrentTopicID        string            `json:"current_topic_id,omitempty"`
	CurrentPaperID        string            `json:"current_paper_id,omitempty"`
	PaperPhase            model.PaperPhase  `json:"paper_phase,omitempty"`
	ConsecutiveRejections int               `json:"consecutive_rejections"`
	ExhaustionSignals     int               `json:"exhaustion_signals"`
	CheckCounters         map[string]int    `json:"check_counters,omitempty"`
	ModelConfig           map[string]string `json:"model_config,omitempty"`
	PapersCompletedCount  int               `json:"papers_completed_count"`
	Tier3Active           bool              `json:"tier3_active"`
}

// Resumable implements spec.md §4.5's predicate: a workflow can resume if
// it has an active tier+topic, has already completed at least one paper,
// or tier 3 is in flight.
func (s WorkflowState) Resumable() bool {
	if s.CurrentTier != "" && s.CurrentTopicID != "" {
		return true
	}
	if s.PapersCompletedCount > 0 {
		return true
	}
	return s.Tier3Active
}

// WorkflowStore persists a WorkflowState to a single JSON file, rewriting
// it in full on every transition (grounded on the teacher's
// pkg/context/checkpoint.go CheckpointManager).
type WorkflowStore struct {
	mu    sync.Mutex
	path  string
	state WorkflowState
}

// NewWorkflowStore loads path if present, or starts with a zero-value
// (not-running, not-resumable) state.
func NewWorkflowStore(path string) (*WorkflowStore, error) {
	s := &WorkflowStore{path: path}
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("workflow: parse %s: %w", path, err)
	}
	return s, nil
}

// Save persists state as the new current blob.
func (s *WorkflowStore) Save(state WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("workflow: save: %w", err)
	}
	s.state = state
	return nil
}

// Current returns a copy of the last-saved (or loaded) state.
func (s *WorkflowStore) Current() WorkflowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.state
	if s.state.CheckCounters != nil {
		cp.CheckCounters = make(map[string]int, len(s.state.CheckCounters))
		for k, v := range s.state.CheckCounters {
			cp.CheckCounters[k] = v
		}
	}
	if s.state.ModelConfig != nil {
		cp.ModelConfig = make(map[string]string, len(s.state.ModelConfig))
		for k, v := range s.state.ModelConfig {
			cp.ModelConfig[k] = v
		}
	}
	return cp
}

// Clear wipes the blob on a clean stop: writes an empty, not-running,
// not-resumable state rather than deleting the file, so a concurrent
// reader never sees a transient "file missing" state.
func (s *WorkflowStore) Clear() error {
	return s.Save(WorkflowState{})
}
