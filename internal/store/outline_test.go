package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlineMemory_WriteAppendsExactlyOneAnchor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.txt")
	m, err := NewOutlineMemory(path)
	require.NoError(t, err)

	require.NoError(t, m.Write("1. Introduction\n2. Methods"))

	data, err := readFileOrEmpty(path)
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, 1, strings.Count(text, OutlineAnchor))
	assert.True(t, strings.HasSuffix(strings.TrimRight(text, "\n"), OutlineAnchor))
}

func TestOutlineMemory_WriteStripsStrayAnchorsBeforeReappending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.txt")
	m, err := NewOutlineMemory(path)
	require.NoError(t, err)

	body := "1. Intro\n" + OutlineAnchor + "\n2. Body\n" + OutlineAnchor
	require.NoError(t, m.Write(body))

	data, err := readFileOrEmpty(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), OutlineAnchor))
}

func TestOutlineMemory_EnsureAnchorIntactIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.txt")
	m, err := NewOutlineMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.Write("1. Intro"))

	require.NoError(t, m.EnsureAnchorIntact())
	require.NoError(t, m.EnsureAnchorIntact())

	data, err := readFileOrEmpty(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), OutlineAnchor))
}

func TestOutlineMemory_FeedbackRingIterativeLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.txt")
	m, err := NewOutlineMemory(path)
	require.NoError(t, err)

	m.RecordFeedback(false, "missing methods section", "")
	_, ok := m.LastAccepted()
	assert.False(t, ok)

	require.NoError(t, m.Write("1. Intro\n2. Methods\n3. Conclusion"))
	m.RecordFeedback(true, "covers all required sections", m.Body())

	accepted, ok := m.LastAccepted()
	require.True(t, ok)
	assert.Contains(t, accepted, "2. Methods")

	m.ClearFeedback()
	assert.Empty(t, m.Feedback())
}

func TestOutlineMemory_FeedbackRingEvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.txt")
	m, err := NewOutlineMemory(path)
	require.NoError(t, err)

	for i := 0; i < OutlineFeedbackRingSize+2; i++ {
		m.RecordFeedback(false, "rejected attempt", "")
	}
	assert.Len(t, m.Feedback(), OutlineFeedbackRingSize)
}
