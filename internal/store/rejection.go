package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/paperloom/core/internal/model"
)

// RejectionRingSize is the bounded ring length named in spec.md §4.5.
const RejectionRingSize = 5

type rejectionKey struct {
	submitterID string
	topicID     string
}

// RejectionMemory keeps, per (submitter, topic), a bounded ring of the
// last RejectionRingSize rejection records so a submitter can "learn from
// these" on its next attempt.
type RejectionMemory struct {
	mu   sync.Mutex
	ring map[rejectionKey][]model.RejectionRecord
}

// NewRejectionMemory returns an empty, ready-to-use in-memory rejection
// ring store. Rejection memory is advisory context, not a durability
// requirement, so unlike the other stores it is not persisted to disk.
func NewRejectionMemory() *RejectionMemory {
	return &RejectionMemory{ring: make(map[rejectionKey][]model.RejectionRecord)}
}

// Record appends a rejection, truncating both fields to the 750-char cap
// and evicting the oldest entry once the ring exceeds RejectionRingSize.
func (m *RejectionMemory) Record(submitterID, topicID string, validatorSummary, submissionPreview string) {
	rec := model.RejectionRecord{
		Timestamp:         time.Now(),
		ValidatorSummary:  model.TruncateField(validatorSummary),
		SubmissionPreview: model.TruncateField(submissionPreview),
	}

	key := rejectionKey{submitterID, topicID}
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append(m.ring[key], rec)
	if len(entries) > RejectionRingSize {
		entries = entries[len(entries)-RejectionRingSize:]
	}
	m.ring[key] = entries
}

// Recent returns a snapshot copy of the current ring for (submitter, topic).
func (m *RejectionMemory) Recent(submitterID, topicID string) []model.RejectionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ring[rejectionKey{submitterID, topicID}]
	out := make([]model.RejectionRecord, len(entries))
	copy(out, entries)
	return out
}

// Clear empties the ring for (submitter, topic) on demand.
func (m *RejectionMemory) Clear(submitterID, topicID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ring, rejectionKey{submitterID, topicID})
}

// FormatForContext renders the ring as a "learn from these" block for
// injection into a submitter's prompt. Returns "" if the ring is empty.
func (m *RejectionMemory) FormatForContext(submitterID, topicID string) string {
	entries := m.Recent(submitterID, topicID)
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Learn from these recent rejections:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s] Validator: %s\n   Submission: %s\n",
			i+1, e.Timestamp.UTC().Format(time.RFC3339), e.ValidatorSummary, e.SubmissionPreview)
	}
	return b.String()
}
