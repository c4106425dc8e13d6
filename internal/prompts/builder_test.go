package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/model"
)

func TestBuilder_ValidatorPromptEmbedsSubmissionPreview(t *testing.T) {
	b := NewBuilder()
	sub := model.Submission{ID: "s1", Content: "novel claim", Reasoning: "why it matters", ChunkSizeUsed: model.SizeClass512}

	system, user := b.ValidatorPrompt("topic-1", sub, "no entries yet")
	assert.Contains(t, system, "JSON schema")
	assert.Contains(t, user, "novel claim")
	assert.Contains(t, user, "why it matters")
}

func TestBuilder_TopicValidatorPromptEmbedsProposalPreview(t *testing.T) {
	b := NewBuilder()
	proposal := model.TopicDecision{Action: model.ActionNewTopic, Topic: "quantum dots", Reasoning: "unexplored"}

	_, user := b.TopicValidatorPrompt(proposal)
	assert.Contains(t, user, "quantum dots")
	assert.Contains(t, user, "new_topic")
}

func TestExtractField_ReadsTopLevelValueFromPreview(t *testing.T) {
	preview, err := submissionPreviewJSON(model.Submission{Content: "x", Reasoning: "y", ChunkSizeUsed: model.SizeClass256})
	require.NoError(t, err)
	assert.Equal(t, "x", ExtractField(preview, "content"))
	assert.Equal(t, "256", ExtractField(preview, "size_class"))
}
