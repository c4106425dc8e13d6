package jsoncontract

import (
	"testing"

	"github.com/paperloom/core/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate_OK(t *testing.T) {
	doc := map[string]any{
		"submission_id": "s1",
		"decision":      "accept",
		"reasoning":     "looks good",
	}
	got, warning, err := ValidationResultSchema.Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, "accept", got["decision"])
}

func TestSchema_Validate_MissingRequired(t *testing.T) {
	doc := map[string]any{"decision": "accept"}
	_, _, err := ValidationResultSchema.Validate(doc)
	var sv *errs.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "submission_id", sv.Field)
}

func TestSchema_Validate_BadEnum(t *testing.T) {
	doc := map[string]any{
		"submission_id": "s1",
		"decision":      "maybe",
		"reasoning":     "unsure",
	}
	_, _, err := ValidationResultSchema.Validate(doc)
	var sv *errs.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "decision", sv.Field)
}

func TestSchema_Validate_ListWhereObjectExpected(t *testing.T) {
	schema := Schema{
		Name: "wrapper",
		Fields: []Field{
			{Name: "payload", Kind: KindObject, Required: true},
		},
	}
	doc := map[string]any{
		"payload": []any{
			map[string]any{"a": "b"},
			map[string]any{"a": "ignored"},
		},
	}
	got, warning, err := schema.Validate(doc)
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
	assert.Equal(t, map[string]any{"a": "b"}, got["payload"])
}
