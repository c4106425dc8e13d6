package store

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectionMemory_RingEvictsOldestBeyondCap(t *testing.T) {
	m := NewRejectionMemory()
	for i := 0; i < RejectionRingSize+3; i++ {
		m.Record("sub-1", "topic-a", fmt.Sprintf("summary %d", i), fmt.Sprintf("preview %d", i))
	}
	recent := m.Recent("sub-1", "topic-a")
	require.Len(t, recent, RejectionRingSize)
	// the oldest entries (0,1,2) must have been evicted; the ring keeps the last 5.
	assert.Equal(t, "summary 3", recent[0].ValidatorSummary)
	assert.Equal(t, "summary 7", recent[len(recent)-1].ValidatorSummary)
}

func TestRejectionMemory_TruncatesFieldsAt750Chars(t *testing.T) {
	m := NewRejectionMemory()
	long := strings.Repeat("a", 2000)
	m.Record("sub-1", "topic-a", long, long)
	rec := m.Recent("sub-1", "topic-a")[0]
	assert.Len(t, []rune(rec.ValidatorSummary), 750)
	assert.Len(t, []rune(rec.SubmissionPreview), 750)
}

func TestRejectionMemory_IsolatedPerSubmitterAndTopic(t *testing.T) {
	m := NewRejectionMemory()
	m.Record("sub-1", "topic-a", "a-summary", "a-preview")
	m.Record("sub-2", "topic-a", "b-summary", "b-preview")
	m.Record("sub-1", "topic-b", "c-summary", "c-preview")

	assert.Len(t, m.Recent("sub-1", "topic-a"), 1)
	assert.Len(t, m.Recent("sub-2", "topic-a"), 1)
	assert.Len(t, m.Recent("sub-1", "topic-b"), 1)
	assert.Equal(t, "a-summary", m.Recent("sub-1", "topic-a")[0].ValidatorSummary)
}

func TestRejectionMemory_ClearEmptiesRing(t *testing.T) {
	m := NewRejectionMemory()
	m.Record("sub-1", "topic-a", "s", "p")
	require.Len(t, m.Recent("sub-1", "topic-a"), 1)
	m.Clear("sub-1", "topic-a")
	assert.Empty(t, m.Recent("sub-1", "topic-a"))
}

func TestRejectionMemory_FormatForContext(t *testing.T) {
	m := NewRejectionMemory()
	assert.Empty(t, m.FormatForContext("sub-1", "topic-a"))

	m.Record("sub-1", "topic-a", "too similar to entry 3", "claims X causes Y")
	text := m.FormatForContext("sub-1", "topic-a")
	assert.Contains(t, text, "Learn from these recent rejections")
	assert.Contains(t, text, "too similar to entry 3")
	assert.Contains(t, text, "claims X causes Y")
}
