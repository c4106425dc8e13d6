// Package jsoncontract extracts and repairs JSON emitted by an LLM, then
// validates it against per-consumer schemas. It has no dependency on any
// other package in this module (spec.md §2: "JSON Contract Layer (pure)").
package jsoncontract

import (
	"errors"
	"regexp"
)

// ErrNoJSONFound is returned when neither a fenced code block nor a
// balanced brace/bracket span could be located in the input text.
var ErrNoJSONFound = errors.New("jsoncontract: no JSON object or array found")

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Extract pulls the single JSON object or array out of free-form LLM
// output. It first tries a fenced ```json code block, then falls back to
// the first balanced {...} or [...] span found by brace counting that
// correctly ignores braces inside string literals.
func Extract(raw string) (string, error) {
	if m := fencedJSONBlock.FindStringSubmatch(raw); m != nil {
		if candidate := trimToBalancedSpan(m[1]); candidate != "" {
			return candidate, nil
		}
	}

	if candidate := trimToBalancedSpan(raw); candidate != "" {
		return candidate, nil
	}

	return "", ErrNoJSONFound
}

// trimToBalancedSpan scans s for the first '{' or '[' and returns the
// substring up to its matching closing brace/bracket, tracking string
// literals (and their escapes) so braces inside quoted text don't affect
// the depth count. Returns "" if no balanced span exists.
func trimToBalancedSpan(s string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		}
		if start != -1 {
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
