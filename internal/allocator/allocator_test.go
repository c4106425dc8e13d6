package allocator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/errs"
	"github.com/paperloom/core/internal/model"
)

type fakeRetriever struct {
	calls []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ model.SizeClass, maxTokens int) (*model.ContextPack, error) {
	f.calls = append(f.calls, query)
	return &model.ContextPack{
		Text:     "[Evidence 1 from doc]\nretrieved content\n",
		Metadata: model.ContextPackMetadata{ChunkCount: 1, TokenCount: maxTokens / 2},
	}, nil
}

func smallBudget() Budget {
	return Budget{
		ContextWindow:      2000,
		MaxOutputTokens:    500,
		SafetyMargin:       100,
		MinRAGReserve:      50,
		FormattingOverhead: 20,
	}
}

func TestAllocate_AllSlotsFitDirectly(t *testing.T) {
	r := &fakeRetriever{}
	slots := map[SlotName]Slot{
		SlotUserPrompt:     {Name: SlotUserPrompt, Text: "what is the research question"},
		SlotJSONSchema:     {Name: SlotJSONSchema, Text: `{"type":"object"}`},
		SlotSystemPrompt:   {Name: SlotSystemPrompt, Text: "you are a research agent"},
		SlotSharedTraining: {Name: SlotSharedTraining, Text: "prior finding one"},
	}
	assembly, err := Allocate(context.Background(), r, smallBudget(), SubmitterPriorityOrder, slots)
	require.NoError(t, err)
	assert.Empty(t, assembly.OffloadedFor)
	assert.Contains(t, assembly.DirectText, "prior finding one")
	assert.Empty(t, r.calls)
}

func TestAllocate_OversizedOptionalSlotOffloads(t *testing.T) {
	r := &fakeRetriever{}
	huge := strings.Repeat("word ", 10000)
	slots := map[SlotName]Slot{
		SlotUserPrompt:     {Name: SlotUserPrompt, Text: "what is the research question"},
		SlotJSONSchema:     {Name: SlotJSONSchema, Text: `{"type":"object"}`},
		SlotSystemPrompt:   {Name: SlotSystemPrompt, Text: "you are a research agent"},
		SlotSharedTraining: {Name: SlotSharedTraining, Text: huge, RAGQuery: "research question", SizeClass: model.SizeClass512},
	}
	assembly, err := Allocate(context.Background(), r, smallBudget(), SubmitterPriorityOrder, slots)
	require.NoError(t, err)
	require.Len(t, assembly.OffloadedFor, 1)
	assert.Equal(t, SlotSharedTraining, assembly.OffloadedFor[0])
	require.Len(t, assembly.Packs, 1)
	assert.Equal(t, []string{"research question"}, r.calls)
}

func TestAllocate_UserPromptAloneExceedsBudget_Fails(t *testing.T) {
	r := &fakeRetriever{}
	huge := strings.Repeat("word ", 10000)
	slots := map[SlotName]Slot{
		SlotUserPrompt: {Name: SlotUserPrompt, Text: huge},
	}
	_, err := Allocate(context.Background(), r, smallBudget(), SubmitterPriorityOrder, slots)
	require.Error(t, err)

	var allocErr *errs.ContextAllocationError
	require.True(t, errors.As(err, &allocErr))
}

func TestAllocateCleanupReview_NeverFailsOnOversizedDump(t *testing.T) {
	r := &fakeRetriever{}
	huge := strings.Repeat("accepted entry text ", 5000)
	assembly, err := AllocateCleanupReview(context.Background(), r, smallBudget(), "clean up the log", "you are the cleanup reviewer", `{"type":"object"}`, huge, model.SizeClass1024)
	require.NoError(t, err)
	assert.Len(t, assembly.OffloadedFor, 1)
	assert.Len(t, assembly.Packs, 1)
}

func TestValidatorPriorityOrder_PutsSubmissionBeforeSharedTraining(t *testing.T) {
	subIdx, trainIdx := -1, -1
	for i, s := range ValidatorPriorityOrder {
		if s == SlotSubmissionUnderReview {
			subIdx = i
		}
		if s == SlotSharedTraining {
			trainIdx = i
		}
	}
	require.NotEqual(t, -1, subIdx)
	require.NotEqual(t, -1, trainIdx)
	assert.Less(t, subIdx, trainIdx)
}
