package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLMSPSOutput(t *testing.T) {
	out := "MODEL IDENTIFIER\tSTATUS\tCONTEXT\n" +
		"llama-3.1-8b-instruct:2\tloaded\t8192\n" +
		"qwen2.5-coder-7b:1\tloaded\t4096\n"
	models := parseLMSPSOutput(out)
	assert.Equal(t, []string{"llama-3.1-8b-instruct:2", "qwen2.5-coder-7b:1"}, models)
}

func TestParseLMSPSOutput_EmptyTable(t *testing.T) {
	assert.Empty(t, parseLMSPSOutput("MODEL IDENTIFIER\tSTATUS\n"))
}
