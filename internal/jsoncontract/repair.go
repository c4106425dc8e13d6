package jsoncontract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/paperloom/core/internal/errs"
)

// Stage names recorded for observability, per spec.md §4.1.
const (
	StageStrict      = "strict"
	StageUnicode      = "unicode_normalization"
	StageLaTeX        = "latex_escape"
	StagePlaceholder  = "safe_placeholder"
	StageAggressive   = "aggressive"
	StageLibrary      = "library_fallback"
)

// Repair runs the staged repair pipeline on raw JSON text, returning the
// first stage whose output parses, and which stage succeeded (for
// observability, per spec.md §4.1). It is idempotent for already-valid
// input: Repair(x) == x when x is valid JSON (spec.md §8).
func Repair(raw string) (fixed string, stage string, err error) {
	if json.Valid([]byte(raw)) {
		return raw, StageStrict, nil
	}

	text := mapStringLiterals(raw, fixUnicodeEscapes)
	if json.Valid([]byte(text)) {
		return text, StageUnicode, nil
	}

	text = mapStringLiterals(text, fixLaTeXEscapes)
	if json.Valid([]byte(text)) {
		return text, StageLaTeX, nil
	}

	text = mapStringLiterals(text, placeholderRewrite)
	if json.Valid([]byte(text)) {
		return text, StagePlaceholder, nil
	}

	text = mapStringLiterals(text, aggressiveStrip)
	if json.Valid([]byte(text)) {
		return text, StageAggressive, nil
	}

	if repaired, rerr := jsonrepair.JSONRepair(text); rerr == nil && json.Valid([]byte(repaired)) {
		return repaired, StageLibrary, nil
	}

	return "", "", &errs.JSONParseError{Stage: StageLibrary, Detail: "all repair stages exhausted"}
}

// mapStringLiterals walks s byte by byte, leaving everything outside a
// JSON string literal untouched and passing the content of every string
// literal (escapes included, quotes excluded) through walk.
func mapStringLiterals(s string, walk func(content string) string) string {
	var out strings.Builder
	i, n := 0, len(s)
	for i < n {
		if s[i] != '"' {
			out.WriteByte(s[i])
			i++
			continue
		}
		out.WriteByte('"')
		i++
		start := i
		for i < n {
			if s[i] == '\\' && i+1 < n {
				i += 2
				continue
			}
			if s[i] == '"' {
				break
			}
			i++
		}
		out.WriteString(walk(s[start:i]))
		if i < n {
			out.WriteByte('"')
			i++
		}
	}
	return out.String()
}

// walkEscapes scans content, copying non-backslash bytes verbatim and
// delegating every backslash sequence to handle, which returns the
// replacement text and how many source bytes it consumed (at least 1).
func walkEscapes(content string, handle func(rest string) (out string, consumed int)) string {
	var out strings.Builder
	i := 0
	for i < len(content) {
		if content[i] != '\\' {
			out.WriteByte(content[i])
			i++
			continue
		}
		replacement, consumed := handle(content[i:])
		if consumed <= 0 {
			consumed = 1
		}
		out.WriteString(replacement)
		i += consumed
	}
	return out.String()
}

func isHexByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexByte(s[i]) {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// fixUnicodeEscapes implements repair stage 2: rewrite \u escapes whose
// hex run is not exactly length 4. A run of 5+ hex digits is truncated to
// 4, keeping the tail as literal text; a run of 1-3 hex digits is escaped
// as a literal "\u" (the backslash is itself escaped) with the short hex
// run left as literal text. Escapes other than \u pass through untouched.
func fixUnicodeEscapes(content string) string {
	return walkEscapes(content, func(rest string) (string, int) {
		if len(rest) < 2 || rest[1] != 'u' {
			if len(rest) < 2 {
				return rest, len(rest)
			}
			return rest[:2], 2
		}
		j := 2
		for j < len(rest) && j < 10 && isHexByte(rest[j]) {
			j++
		}
		hex := rest[2:j]
		switch {
		case len(hex) == 4:
			return rest[:6], 6
		case len(hex) > 4:
			return "\\u" + hex[:4] + hex[4:], j
		default:
			return "\\\\u" + hex, j
		}
	})
}

// fixLaTeXEscapes implements repair stage 3: LaTeX delimiters (\( \) \[ \]
// \{ \}) and LaTeX commands (\word, \word{) are re-escaped by doubling the
// backslash, unless the sequence is already a valid JSON escape.
func fixLaTeXEscapes(content string) string {
	return walkEscapes(content, func(rest string) (string, int) {
		if len(rest) < 2 {
			return rest, len(rest)
		}
		c := rest[1]
		switch c {
		case '\\', '"', '/', 'b', 'f', 'n', 'r', 't':
			return rest[:2], 2
		case 'u':
			if len(rest) >= 6 && isHex(rest[2:6]) {
				return rest[:6], 6
			}
			return rest[:2], 2
		case '(', ')', '[', ']', '{', '}':
			return "\\\\" + string(c), 2
		default:
			if isASCIILetter(c) {
				j := 1
				for j < len(rest) && isASCIILetter(rest[j]) {
					j++
				}
				word := rest[1:j]
				if j < len(rest) && rest[j] == '{' {
					return "\\\\" + word + "{", j + 1
				}
				return "\\\\" + word, j
			}
			return rest[:2], 2
		}
	})
}

// placeholderRewrite implements repair stage 4: every valid JSON escape in
// the string literal is swapped for a reserved placeholder token, any
// backslash left over (therefore not part of a recognized escape) is
// doubled, and the placeholders are restored. The placeholder indirection
// means the doubling pass below can never re-escape an already-valid
// sequence, even though in this implementation the two passes are fused.
func placeholderRewrite(content string) string {
	placeholders := map[string]string{}
	counter := 0
	rewritten := walkEscapes(content, func(rest string) (string, int) {
		if len(rest) < 2 {
			return "\\\\", 1
		}
		c := rest[1]
		var seq string
		var consumed int
		switch c {
		case '\\', '"', '/', 'b', 'f', 'n', 'r', 't':
			seq, consumed = rest[:2], 2
		case 'u':
			if len(rest) >= 6 && isHex(rest[2:6]) {
				seq, consumed = rest[:6], 6
			} else {
				return "\\\\", 1
			}
		default:
			return "\\\\", 1
		}
		token := fmt.Sprintf("<<<ESC%d>>>", counter)
		counter++
		placeholders[token] = seq
		return token, consumed
	})
	for token, seq := range placeholders {
		rewritten = strings.ReplaceAll(rewritten, token, seq)
	}
	return rewritten
}

// aggressiveStrip implements repair stage 5: walk the string literal and
// keep only backslash sequences that form a recognized JSON escape;
// everything else backslash-prefixed is dropped (the backslash itself is
// discarded, the following character survives as plain literal text).
func aggressiveStrip(content string) string {
	return walkEscapes(content, func(rest string) (string, int) {
		if len(rest) < 2 {
			return "", 1
		}
		c := rest[1]
		switch c {
		case '\\', '"', '/', 'b', 'f', 'n', 'r', 't':
			return rest[:2], 2
		case 'u':
			if len(rest) >= 6 && isHex(rest[2:6]) {
				return rest[:6], 6
			}
			return "", 1
		default:
			return "", 1
		}
	})
}
