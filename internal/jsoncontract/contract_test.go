package jsoncontract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract_Parse_EndToEnd(t *testing.T) {
	c := New(nil, nil)
	raw := "Here's my assessment:\n```json\n{\"submission_id\": \"s1\", \"decision\": \"accept\", \"reasoning\": \"meets bar\"}\n```\n"
	doc, stage, err := c.Parse(raw, ValidationResultSchema)
	require.NoError(t, err)
	assert.Equal(t, StageStrict, stage)
	assert.Equal(t, "accept", doc["decision"])
}

func TestContract_Parse_NoJSON(t *testing.T) {
	c := New(nil, nil)
	_, _, err := c.Parse("just talking, no json here", ValidationResultSchema)
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestContract_Parse_SchemaViolationSurfaces(t *testing.T) {
	c := New(nil, nil)
	raw := `{"submission_id": "s1", "decision": "unsure", "reasoning": "n/a"}`
	_, _, err := c.Parse(raw, ValidationResultSchema)
	require.Error(t, err)
}
