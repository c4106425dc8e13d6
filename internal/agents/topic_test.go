package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperloom/core/internal/jsoncontract"
	"github.com/paperloom/core/internal/model"
)

func TestTopicSelector_ProposeNewTopic(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"action":"new_topic","topic":"quantum annealing schedules","reasoning":"unexplored area"}`,
	}}
	parser := &fakeParser{contract: jsoncontract.New(nil, nil)}
	sel := NewTopicSelector(completer, parser, "topic-selector-role", "gpt", 1000)

	decision, err := sel.Propose(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, model.ActionNewTopic, decision.Action)
	assert.Equal(t, "quantum annealing schedules", decision.Topic)
}

func TestTopicSelector_ProposeRejectsInvalidActionViaSchemaEnum(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"action":"do_whatever","topic":"x","reasoning":"y"}`,
	}}
	parser := &fakeParser{contract: jsoncontract.New(nil, nil)}
	sel := NewTopicSelector(completer, parser, "topic-selector-role", "gpt", 1000)

	_, err := sel.Propose(context.Background(), "system", "user")
	require.Error(t, err)
}

func TestTopicValidator_AcceptsProposal(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"submission_id":"ignored","decision":"accept","reasoning":"fits research goal","summary":""}`,
	}}
	parser := &fakeParser{contract: jsoncontract.New(nil, nil)}
	val := NewTopicValidator(completer, parser, "topic-validator-role", "gpt", 1000)

	proposal := model.TopicDecision{Action: model.ActionNewTopic, Topic: "quantum annealing schedules"}
	result, err := val.Validate(context.Background(), proposal, "system", "user")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionAccept, result.Decision)
	assert.Equal(t, "quantum annealing schedules", result.SubmissionID)
}
