package jsoncontract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedBlock(t *testing.T) {
	raw := "Sure, here you go:\n```json\n{\"decision\": \"accept\", \"reasoning\": \"ok\"}\n```\nLet me know if you need more."
	got, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":"accept","reasoning":"ok"}`, got)
}

func TestExtract_BalancedSpanNoFence(t *testing.T) {
	raw := `prefix noise {"a": [1, 2, {"b": "c}"}]} trailing noise`
	got, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": [1, 2, {"b": "c}"}]}`, got)
}

func TestExtract_NoJSONFound(t *testing.T) {
	_, err := Extract("nothing but prose here")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtract_ArraySpan(t *testing.T) {
	raw := `result: [1, 2, 3] done`
	got, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, got)
}
