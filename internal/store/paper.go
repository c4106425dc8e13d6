package store

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/model"
)

// PaperAnchor is the end-of-paper sentinel: always the last line when the
// paper is non-empty (spec.md §4).
const PaperAnchor = "PAPER_ANCHOR"

// Section identifies one of the three placeholder-framed sections.
type Section string

const (
	SectionIntroduction Section = "Introduction"
	SectionConclusion   Section = "Conclusion"
	SectionAbstract     Section = "Abstract"
)

// sectionOrder is the canonical on-disk order established by FrameBody:
// Introduction, body prose, Conclusion, Abstract, anchor.
var sectionOrder = []Section{SectionIntroduction, SectionConclusion, SectionAbstract}

var sectionHeaderPattern = regexp.MustCompile(`(?m)^(Abstract|Introduction|Conclusion)[ \t]*\r?$`)

const realContentMinLongLen = 300
const realContentMinShortLen = 50

var placeholderKeywords = []string{"placeholder", "will be replaced", "tbd", "todo"}

func placeholderTextFor(s Section) string {
	return fmt.Sprintf("This %s section is a placeholder and will be replaced once that part of the paper is accepted.", strings.ToLower(string(s)))
}

// isRealContent implements spec.md §8's exact rule: real content is
// detected by a preceding section header plus a ≥300-char follow-on, OR
// ≥50 chars that don't contain placeholder keywords.
func isRealContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) >= realContentMinLongLen {
		return true
	}
	if len([]rune(trimmed)) >= realContentMinShortLen && !containsPlaceholderKeyword(trimmed) {
		return true
	}
	return false
}

func containsPlaceholderKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range placeholderKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PaperMemory is the single-writer paper stream (spec.md §4.5), guarded
// by the same anchor discipline as OutlineMemory plus section
// placeholders that frame the body once the first body portion lands.
type PaperMemory struct {
	mu       sync.Mutex
	path     string
	body     string
	sections map[Section]string
	framed   bool
}

// NewPaperMemory loads path if present, or starts with an empty,
// unframed paper.
func NewPaperMemory(path string) (*PaperMemory, error) {
	m := &PaperMemory{path: path, sections: make(map[Section]string)}
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return m, nil
	}
	m.parseLocked(string(data))
	return m, nil
}

func (m *PaperMemory) parseLocked(content string) {
	content = stripAnchor(content, PaperAnchor)
	matches := sectionHeaderPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		m.body = strings.TrimRight(content, "\n")
		m.framed = false
		return
	}
	var bodyParts []string
	seen := make(map[Section]bool)
	prevEnd := 0
	for i, mm := range matches {
		name := Section(content[mm[2]:mm[3]])
		headEnd := mm[1]
		bodyStart := headEnd
		for bodyStart < len(content) && content[bodyStart] == '\n' {
			bodyStart++
		}
		bodyEnd := len(content)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		if mm[0] > prevEnd {
			bodyParts = append(bodyParts, content[prevEnd:mm[0]])
		}
		if !seen[name] {
			seen[name] = true
			m.sections[name] = strings.TrimRight(content[bodyStart:bodyEnd], "\n")
		}
		prevEnd = bodyEnd
	}
	if prevEnd < len(content) {
		bodyParts = append(bodyParts, content[prevEnd:])
	}
	m.body = strings.TrimSpace(strings.Join(bodyParts, "\n"))
	m.framed = true
}

func stripAnchor(text, anchor string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == anchor {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// FrameBody initializes the skeleton around the first body portion:
// Introduction/Conclusion/Abstract placeholders bracketing it. Returns an
// error if the paper is already framed.
func (m *PaperMemory) FrameBody(body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.framed {
		return fmt.Errorf("paper: already framed, body cannot be reframed")
	}
	m.body = strings.TrimSpace(body)
	for _, s := range sectionOrder {
		m.sections[s] = placeholderTextFor(s)
	}
	m.framed = true
	return m.persistLocked()
}

// ReplacePlaceholder replaces the named section's placeholder with
// content exactly once. Errors if the section already holds real content
// or the paper has not been framed yet.
func (m *PaperMemory) ReplacePlaceholder(section Section, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.framed {
		return fmt.Errorf("paper: cannot replace placeholder before FrameBody")
	}
	current, ok := m.sections[section]
	if !ok || isRealContent(current) {
		return fmt.Errorf("paper: section %s already has real content or does not exist", section)
	}
	m.sections[section] = strings.TrimSpace(content)
	return m.persistLocked()
}

func (m *PaperMemory) persistLocked() error {
	var b strings.Builder
	if m.framed {
		b.WriteString(string(SectionIntroduction))
		b.WriteString("\n")
		b.WriteString(m.sections[SectionIntroduction])
		b.WriteString("\n\n")
	}
	if m.body != "" {
		b.WriteString(m.body)
		b.WriteString("\n\n")
	}
	if m.framed {
		b.WriteString(string(SectionConclusion))
		b.WriteString("\n")
		b.WriteString(m.sections[SectionConclusion])
		b.WriteString("\n\n")
		b.WriteString(string(SectionAbstract))
		b.WriteString("\n")
		b.WriteString(m.sections[SectionAbstract])
		b.WriteString("\n\n")
	}
	b.WriteString(PaperAnchor)
	b.WriteString("\n")
	if err := writeFileAtomic(m.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("paper: write: %w", err)
	}
	return nil
}

// AppendBody appends prose to the free-text body region (used by the
// Tier-2 body phase for full_content ops once the paper is framed;
// replace/insert_after/delete go through ApplyEdit).
func (m *PaperMemory) AppendBody(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.body == "" {
		m.body = strings.TrimSpace(text)
	} else {
		m.body = m.body + "\n\n" + strings.TrimSpace(text)
	}
	return m.persistLocked()
}

// computeBodyEdit applies op against body and returns the resulting text,
// without touching any PaperMemory state. full_content replaces the
// whole body unconditionally. replace, insert_after, and delete all
// require oldString to occur exactly once in body (the two-stage
// placement pre-validation named in spec.md §4.6/§7); a zero or multiple
// match returns errs.PlacementMatchFailure.
func computeBodyEdit(body string, op model.EditOp, oldString, newText string) (string, error) {
	if op == model.OpFullContent {
		return strings.TrimSpace(newText), nil
	}

	count := strings.Count(body, oldString)
	if count != 1 {
		return "", &errs.PlacementMatchFailure{OldString: oldString, CountFound: count}
	}
	idx := strings.Index(body, oldString)

	switch op {
	case model.OpReplace:
		body = body[:idx] + newText + body[idx+len(oldString):]
	case model.OpInsertAfter:
		insertAt := idx + len(oldString)
		body = body[:insertAt] + "\n\n" + newText + body[insertAt:]
	case model.OpDelete:
		body = body[:idx] + body[idx+len(oldString):]
	default:
		return "", fmt.Errorf("paper: unknown edit op %q", op)
	}
	return strings.TrimSpace(body), nil
}

// ApplyEdit performs one Tier-2 compiler edit op against the body prose,
// persisting the result.
func (m *PaperMemory) ApplyEdit(op model.EditOp, oldString, newText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	newBody, err := computeBodyEdit(m.body, op, oldString, newText)
	if err != nil {
		return err
	}
	m.body = newBody
	return m.persistLocked()
}

// PreviewEdit computes what Body() would become after applying op
// without committing it, so a caller can validate the resulting content
// before calling ApplyEdit. Uses the same placement pre-validation as
// ApplyEdit.
func (m *PaperMemory) PreviewEdit(op model.EditOp, oldString, newText string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return computeBodyEdit(m.body, op, oldString, newText)
}

// Framed reports whether FrameBody has been called yet.
func (m *PaperMemory) Framed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.framed
}

// Body returns the current free-text body prose.
func (m *PaperMemory) Body() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.body
}

// Section returns the current content of a named section (placeholder or
// real) and whether the paper has been framed.
func (m *PaperMemory) Section(s Section) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sections[s]
	return v, ok
}

// SectionIsReal reports whether a section currently holds real content
// (as opposed to its placeholder).
func (m *PaperMemory) SectionIsReal(s Section) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return isRealContent(m.sections[s])
}

// EnsureMarkersIntact inspects the file and repairs it so that, for each
// of the three canonical sections, EITHER a placeholder OR real content
// is present — never both, never neither — without duplicating any
// existing marker. A second call is always a no-op (spec.md §8).
func (m *PaperMemory) EnsureMarkersIntact() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.framed {
		return nil
	}
	for _, s := range sectionOrder {
		current, ok := m.sections[s]
		if !ok || (strings.TrimSpace(current) == "" ) {
			m.sections[s] = placeholderTextFor(s)
		}
	}
	return m.persistLocked()
}
