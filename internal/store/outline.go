package store

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// OutlineAnchor is the end-of-outline sentinel. Exactly one occurrence is
// guaranteed at EOF on every write (spec.md §4).
const OutlineAnchor = "OUTLINE_ANCHOR"

// OutlineFeedbackRingSize is the bounded creation-feedback ring length
// (spec.md §4.5).
const OutlineFeedbackRingSize = 5

// OutlineFeedback is one entry in the creation-feedback log: why an
// outline was accepted or rejected, and, for an accepted one, a copy of
// the text so the submitter can see its last accepted outline.
type OutlineFeedback struct {
	Timestamp       time.Time
	Accepted        bool
	Reasoning       string
	AcceptedOutline string
}

// OutlineMemory is the single-writer outline stream (spec.md §4.5): every
// write strips stray anchors and re-appends exactly one, enabling the
// submitter/validator's iterative-lock loop (§8's "outline iterative
// lock" scenario).
type OutlineMemory struct {
	mu       sync.Mutex
	path     string
	content  string
	feedback []OutlineFeedback
}

// NewOutlineMemory loads path if present (repairing its anchor on load)
// or starts with an empty outline.
func NewOutlineMemory(path string) (*OutlineMemory, error) {
	m := &OutlineMemory{path: path}
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	m.content = stripOutlineAnchors(string(data))
	return m, nil
}

func stripOutlineAnchors(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == OutlineAnchor {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// Write replaces the outline body, strips every anchor occurrence, and
// re-appends a single OUTLINE_ANCHOR before persisting.
func (m *OutlineMemory) Write(body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = strings.TrimRight(stripOutlineAnchors(body), "\n")
	return m.persistLocked()
}

func (m *OutlineMemory) persistLocked() error {
	full := m.content + "\n" + OutlineAnchor + "\n"
	if err := writeFileAtomic(m.path, []byte(full), 0o644); err != nil {
		return fmt.Errorf("outline: write: %w", err)
	}
	return nil
}

// EnsureAnchorIntact is the lightweight repair invoked before every edit:
// it rewrites the file from the in-memory outline with exactly one anchor
// at EOF, whatever the on-disk content holds (the file is not read).
func (m *OutlineMemory) EnsureAnchorIntact() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

// Body returns the current outline text (anchor-free).
func (m *OutlineMemory) Body() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// RecordFeedback appends to the creation-feedback ring, evicting the
// oldest entry past OutlineFeedbackRingSize.
func (m *OutlineMemory) RecordFeedback(accepted bool, reasoning, acceptedOutline string) {
	fb := OutlineFeedback{Timestamp: time.Now(), Accepted: accepted, Reasoning: reasoning}
	if accepted {
		fb.AcceptedOutline = acceptedOutline
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, fb)
	if len(m.feedback) > OutlineFeedbackRingSize {
		m.feedback = m.feedback[len(m.feedback)-OutlineFeedbackRingSize:]
	}
}

// Feedback returns a snapshot copy of the creation-feedback ring.
func (m *OutlineMemory) Feedback() []OutlineFeedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutlineFeedback, len(m.feedback))
	copy(out, m.feedback)
	return out
}

// ClearFeedback empties the creation-feedback ring, done once an outline
// is locked (spec.md §8's outline-iterative-lock scenario).
func (m *OutlineMemory) ClearFeedback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = nil
}

// LastAccepted returns the most recently accepted outline text and true,
// or "", false if none has been accepted yet.
func (m *OutlineMemory) LastAccepted() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.feedback) - 1; i >= 0; i-- {
		if m.feedback[i].Accepted {
			return m.feedback[i].AcceptedOutline, true
		}
	}
	return "", false
}
