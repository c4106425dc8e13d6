package jsoncontract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair_AlreadyValid_Idempotent(t *testing.T) {
	valid := `{"decision":"accept","reasoning":"fine\nmultiline"}`
	fixed, stage, err := Repair(valid)
	require.NoError(t, err)
	assert.Equal(t, StageStrict, stage)

	var a, b any
	require.NoError(t, json.Unmarshal([]byte(valid), &a))
	require.NoError(t, json.Unmarshal([]byte(fixed), &b))
	assert.Equal(t, a, b)
}

func TestRepair_UnicodeEscapeTooShort(t *testing.T) {
	broken := "{\"text\": \"value \\u12 end\"}"
	fixed, stage, err := Repair(broken)
	require.NoError(t, err)
	assert.Equal(t, StageUnicode, stage)
	assert.True(t, json.Valid([]byte(fixed)))
}

func TestRepair_UnicodeEscapeTooLong(t *testing.T) {
	// JSON's \u escape is fixed-width (always exactly 4 hex digits), so a
	// run of 5+ hex digits is already valid JSON — the surplus digits parse
	// as literal text following the escape. The truncation stage is a
	// no-op here; this test documents that the pipeline doesn't need to
	// reach past strict parse for this shape.
	broken := "{\"text\": \"value \\u0041111 end\"}"
	fixed, stage, err := Repair(broken)
	require.NoError(t, err)
	assert.Equal(t, StageStrict, stage)
	assert.True(t, json.Valid([]byte(fixed)))
}

func TestRepair_LaTeXDelimiters(t *testing.T) {
	broken := "{\"text\": \"the answer is \\(x+1\\) by \\frac{a}{b}\"}"
	fixed, stage, err := Repair(broken)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(fixed)))
	assert.Equal(t, StageLaTeX, stage)
}

func TestRepair_StrayBackslashRepairedPastStrict(t *testing.T) {
	broken := "{\"text\": \"a stray \\x backslash\"}"
	fixed, stage, err := Repair(broken)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(fixed)))
	assert.NotEqual(t, StageStrict, stage)
}

func TestMapStringLiterals_LeavesStructureAlone(t *testing.T) {
	in := `{"a": 1, "b": "x"}`
	out := mapStringLiterals(in, func(s string) string { return s + "!" })
	assert.Equal(t, `{"a": 1, "b": "x!"}`, out)
}
