package jsoncontract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaText_RendersRequiredFieldsAndEnum(t *testing.T) {
	text, err := SchemaText(ValidationResultSchema)
	require.NoError(t, err)
	assert.Contains(t, text, "submission_id")
	assert.Contains(t, text, "decision")
	assert.True(t, strings.Contains(text, "accept") && strings.Contains(text, "reject"))
}

func TestSchemaText_HandlesFieldsWithoutEnum(t *testing.T) {
	text, err := SchemaText(SubmissionSchema)
	require.NoError(t, err)
	assert.Contains(t, text, "content")
	assert.Contains(t, text, "reasoning")
}
