package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchMetadataStore_RecordSubmissionTracksPerTopicCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research_metadata.json")
	s, err := NewResearchMetadataStore(path)
	require.NoError(t, err)

	require.NoError(t, s.RecordSubmission("topic-a", true))
	require.NoError(t, s.RecordSubmission("topic-a", false))
	require.NoError(t, s.RecordSubmission("topic-a", true))
	require.NoError(t, s.RecordSubmission("topic-b", false))

	a := s.Counters("topic-a")
	assert.Equal(t, 3, a.TotalSubmissions)
	assert.Equal(t, 2, a.TotalAccepted)
	assert.Equal(t, 1, a.TotalRejected)
	assert.InDelta(t, 2.0/3.0, a.AcceptanceRate(), 1e-9)

	b := s.Counters("topic-b")
	assert.Equal(t, 1, b.TotalSubmissions)
	assert.Equal(t, 0, b.TotalAccepted)
}

func TestResearchMetadataStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research_metadata.json")
	s, err := NewResearchMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSubmission("topic-a", true))

	reloaded, err := NewResearchMetadataStore(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Counters("topic-a").TotalAccepted)
}

func TestTopicCounters_AcceptanceRateZeroWhenNoSubmissions(t *testing.T) {
	assert.Equal(t, 0.0, TopicCounters{}.AcceptanceRate())
}
