package retrieval

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	crlf            = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	curlyQuotes     = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
	dashes          = strings.NewReplacer("–", "-", "—", "-")
	multiBlankLines = regexp.MustCompile(`\n{3,}`)
	multiSpaceRun   = regexp.MustCompile(`[ \t]{2,}`)
)

// NormalizeDocument applies NFC unicode normalization, CRLF→LF, quote/dash
// normalization, and whitespace collapsing that preserves paragraph
// breaks, per spec.md §4.3 "Ingestion".
func NormalizeDocument(raw string) string {
	text := norm.NFC.String(raw)
	text = crlf.Replace(text)
	text = curlyQuotes.Replace(text)
	text = dashes.Replace(text)
	text = multiSpaceRun.ReplaceAllString(text, " ")
	text = multiBlankLines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
