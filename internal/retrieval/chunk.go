package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paperloom/core/internal/model"
)

// sentenceBoundary is a deliberately simple sentence splitter: it treats
// '.', '!', '?' followed by whitespace-and-capital (or end of text) as a
// boundary. It is not a full tokenizer, mirroring the teacher's
// line-based OverlappingChunker in spirit — a cheap, predictable
// segmentation rather than an NLP pass.
var sentenceBoundary = regexp.MustCompile(`([.!?])(\s+)([A-Z0-9"'(\x60])`)

// splitSentences breaks normalized text into semantic sentence runs.
func splitSentences(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1$2\x00$3")
	parts := strings.Split(marked, "\x00")
	var sentences []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	if len(sentences) == 0 && strings.TrimSpace(text) != "" {
		sentences = []string{strings.TrimSpace(text)}
	}
	return sentences
}

// overlapFraction is the sentence-boundary-aware overlap carried from the
// end of one chunk into the start of the next, per spec.md §4.3.
const overlapFraction = 0.2

// chunkSentences accumulates sentences up to the target size (measured
// in bytes of sentence text, not in tokens), starting each chunk after
// the first with the last overlapFraction worth of sentences from the
// previous chunk. Adapted from the teacher's
// OverlappingChunker.Chunk backward-scan overlap technique, moved from a
// line unit to a sentence unit.
func chunkSentences(sentences []string, target int) []string {
	if len(sentences) == 0 {
		return nil
	}
	overlapBudget := int(float64(target) * overlapFraction)

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
	}

	for i := 0; i < len(sentences); i++ {
		s := sentences[i]
		sLen := len(s)

		if currentLen > 0 && currentLen+sLen > target {
			flush()

			// carry the trailing overlapBudget worth of sentences backward
			var overlap []string
			overlapLen := 0
			for j := len(current) - 1; j >= 0 && overlapLen < overlapBudget; j-- {
				overlap = append([]string{current[j]}, overlap...)
				overlapLen += len(current[j])
			}
			current = overlap
			currentLen = overlapLen
		}

		current = append(current, s)
		currentLen += sLen
	}
	flush()
	return chunks
}

var (
	codeFence   = regexp.MustCompile("```|^\\s{4,}\\S|;\\s*$|^\\s*(func|def|class|import|package)\\b")
	tableRow    = regexp.MustCompile(`\|.*\|`)
	equationRun = regexp.MustCompile(`\$\$|\\\[|\\\(|[=<>]\s*[-+]?\d`)
	headerLine  = regexp.MustCompile(`(?m)^(#{1,6}\s|[A-Z][A-Za-z0-9 ]{2,60}\n[-=]{3,}$)`)
)

// detectContentType applies the cheap heuristics named in spec.md §4.3:
// a handful of regex signatures checked in a fixed priority order.
func detectContentType(text string) model.ContentType {
	switch {
	case codeFence.MatchString(text):
		return model.ContentCode
	case tableRow.MatchString(text):
		return model.ContentTable
	case equationRun.MatchString(text):
		return model.ContentEquation
	case headerLine.MatchString(text):
		return model.ContentSection
	default:
		return model.ContentText
	}
}

func buildMetadata(text string) model.ChunkMetadata {
	return model.ChunkMetadata{
		CharCount:     len(text),
		WordCount:     len(strings.Fields(text)),
		SentenceCount: len(splitSentences(text)),
		Type:          detectContentType(text),
	}
}

// ChunkDocument segments a normalized document into chunks for every
// configured size class.
func ChunkDocument(source, text string) map[model.SizeClass][]model.Chunk {
	sentences := splitSentences(text)
	out := make(map[model.SizeClass][]model.Chunk, len(SizeClasses()))
	for _, sc := range SizeClasses() {
		bodies := chunkSentences(sentences, int(sc))
		chunks := make([]model.Chunk, 0, len(bodies))
		for i, body := range bodies {
			chunks = append(chunks, model.Chunk{
				ID:        chunkID(source, sc, i),
				Text:      body,
				Source:    source,
				Position:  i,
				SizeClass: sc,
				Metadata:  buildMetadata(body),
			})
		}
		out[sc] = chunks
	}
	return out
}

func chunkID(source string, sc model.SizeClass, position int) string {
	return source + "#" + collectionName(sc) + "#" + strconv.Itoa(position)
}
