package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/model"
)

func TestPaperMemory_FrameBodyInstallsAllThreePlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)

	require.NoError(t, m.FrameBody("Methods: we ran an experiment."))

	for _, s := range sectionOrder {
		assert.False(t, m.SectionIsReal(s))
	}
	data, err := readFileOrEmpty(path)
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, 1, strings.Count(text, PaperAnchor))
	assert.True(t, strings.HasSuffix(strings.TrimRight(text, "\n"), PaperAnchor))
}

func TestPaperMemory_ReplacePlaceholderExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.FrameBody("body prose"))

	longAbstract := strings.Repeat("This paper presents a novel finding. ", 20)
	require.NoError(t, m.ReplacePlaceholder(SectionAbstract, longAbstract))
	assert.True(t, m.SectionIsReal(SectionAbstract))

	err = m.ReplacePlaceholder(SectionAbstract, "a second attempt")
	assert.Error(t, err, "replacing an already-real section must fail")
}

func TestPaperMemory_RealContentClassification(t *testing.T) {
	longProse := strings.Repeat("a", 400)
	assert.True(t, isRealContent(longProse))

	placeholderStub := "This placeholder will be replaced once the abstract is written."
	assert.Less(t, len(placeholderStub), 300)
	assert.False(t, isRealContent(placeholderStub))

	shortRealProse := strings.Repeat("b", 60)
	assert.True(t, isRealContent(shortRealProse))

	tooShort := "short"
	assert.False(t, isRealContent(tooShort))
}

func TestPaperMemory_EnsureMarkersIntactIsFixedPointAfterOneCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.FrameBody("body prose"))

	// simulate corruption: blank out the conclusion section directly.
	m.sections[SectionConclusion] = ""

	require.NoError(t, m.EnsureMarkersIntact())
	assert.NotEmpty(t, m.sections[SectionConclusion])

	before := m.sections[SectionConclusion]
	require.NoError(t, m.EnsureMarkersIntact())
	assert.Equal(t, before, m.sections[SectionConclusion])
}

func TestPaperMemory_RoundTripPreservesRealSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.FrameBody("the experimental body"))

	longIntro := strings.Repeat("Introductory prose sentence. ", 15)
	require.NoError(t, m.ReplacePlaceholder(SectionIntroduction, longIntro))

	reloaded, err := NewPaperMemory(path)
	require.NoError(t, err)
	assert.True(t, reloaded.SectionIsReal(SectionIntroduction))
	got, _ := reloaded.Section(SectionIntroduction)
	assert.Equal(t, strings.TrimSpace(longIntro), got)
	assert.Contains(t, reloaded.Body(), "the experimental body")
}

func TestPaperMemory_ApplyEditReplaceRequiresExactlyOneMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.AppendBody("the cat sat on the mat and the cat slept"))

	err = m.ApplyEdit(model.OpReplace, "the cat", "the dog")
	var pmf *errs.PlacementMatchFailure
	require.Error(t, err)
	require.True(t, errors.As(err, &pmf))
	assert.Equal(t, 2, pmf.CountFound)
}

func TestPaperMemory_ApplyEditReplaceSucceedsOnUniqueMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.AppendBody("a unique phrase appears here"))

	require.NoError(t, m.ApplyEdit(model.OpReplace, "unique phrase", "distinctive wording"))
	assert.Contains(t, m.Body(), "distinctive wording")
	assert.NotContains(t, m.Body(), "unique phrase")
}

func TestPaperMemory_ApplyEditInsertAfterAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.AppendBody("first sentence. second sentence."))

	require.NoError(t, m.ApplyEdit(model.OpInsertAfter, "first sentence.", "inserted sentence."))
	assert.Contains(t, m.Body(), "inserted sentence.")

	require.NoError(t, m.ApplyEdit(model.OpDelete, "inserted sentence.", ""))
	assert.NotContains(t, m.Body(), "inserted sentence.")
}

func TestPaperMemory_ApplyEditFullContentReplacesWholeBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	m, err := NewPaperMemory(path)
	require.NoError(t, err)
	require.NoError(t, m.AppendBody("old content"))

	require.NoError(t, m.ApplyEdit(model.OpFullContent, "", "brand new content"))
	assert.Equal(t, "brand new content", m.Body())
}
