// Package prompts builds the system/user prompt pairs the coordinator
// hands to each agent role. Grounded on the teacher's
// pkg/reasoning/prompt_slots.go PromptSlots contract: a fixed set of
// named slots merged role-defaults-then-override, rendered into a single
// system prompt string.
package prompts

import "strings"

// Slots is the teacher's PromptSlots contract, carried over field for
// field: a fixed set of named sections every role's system prompt is
// composed from.
type Slots struct {
	SystemRole            string
	ReasoningInstructions string
	ToolUsage             string
	OutputFormat          string
	CommunicationStyle    string
	Additional            string
}

// Merge overlays other's non-empty fields onto s, returning the result.
func (s Slots) Merge(other Slots) Slots {
	merged := s
	if other.SystemRole != "" {
		merged.SystemRole = other.SystemRole
	}
	if other.ReasoningInstructions != "" {
		merged.ReasoningInstructions = other.ReasoningInstructions
	}
	if other.ToolUsage != "" {
		merged.ToolUsage = other.ToolUsage
	}
	if other.OutputFormat != "" {
		merged.OutputFormat = other.OutputFormat
	}
	if other.CommunicationStyle != "" {
		merged.CommunicationStyle = other.CommunicationStyle
	}
	if other.Additional != "" {
		merged.Additional = other.Additional
	}
	return merged
}

// Render concatenates the non-empty slots, in a fixed order, into one
// system prompt string.
func (s Slots) Render() string {
	var parts []string
	for _, v := range []string{s.SystemRole, s.ReasoningInstructions, s.ToolUsage, s.OutputFormat, s.CommunicationStyle, s.Additional} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n\n")
}
