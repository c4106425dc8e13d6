package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDocument_CRLFAndQuotes(t *testing.T) {
	raw := "Title\r\n\r\n“Quoted” — text.\r\nLine two.\r\n\r\n\r\n\r\nLine three."
	got := NormalizeDocument(raw)

	assert.NotContains(t, got, "\r")
	assert.Contains(t, got, `"Quoted" - text.`)
	assert.NotContains(t, got, "\n\n\n")
}

func TestNormalizeDocument_CollapsesRunsOfSpaces(t *testing.T) {
	got := NormalizeDocument("word1    word2\t\tword3")
	assert.Equal(t, "word1 word2 word3", got)
}

func TestNormalizeDocument_TrimsTrailingWhitespacePerLine(t *testing.T) {
	got := NormalizeDocument("first line   \nsecond line\t\n")
	for _, line := range []string{"first line", "second line"} {
		assert.Contains(t, got, line)
	}
	assert.NotContains(t, got, "line   \n")
}
