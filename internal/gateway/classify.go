package gateway

import (
	"errors"
	"strings"

	"github.com/paperloom/core/internal/errs"
)

// classifyCompletionError maps an HTTP status and response body to the
// GatewayError taxonomy in spec.md §4.2 "Error classification". body is
// matched case-insensitively against known substrings from the backend's
// machine-readable error payloads.
func classifyCompletionError(status int, body string) *errs.GatewayError {
	if status == 404 {
		return &errs.GatewayError{Kind: errs.ModelNotLoaded, Message: "model not loaded on backend"}
	}
	if status != 400 {
		return &errs.GatewayError{Kind: errs.Transient, Message: "backend returned unexpected status"}
	}

	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "has crashed"), strings.Contains(lower, "exit code:"):
		return &errs.GatewayError{Kind: errs.ModelCrashed, Message: "model process crashed; reload required"}
	case strings.Contains(lower, "failed to process regex"):
		return &errs.GatewayError{Kind: errs.RegexEngineFailure, Message: "backend regex engine failed"}
	case strings.Contains(lower, "context window"), strings.Contains(lower, "too long"), strings.Contains(lower, "maximum context length"):
		return &errs.GatewayError{Kind: errs.InputOverflow, Message: "prompt exceeds backend context window"}
	case strings.Contains(lower, "exhausted") && strings.Contains(lower, "generat"):
		return &errs.GatewayError{Kind: errs.MidGenerationOverflow, Message: "context exhausted mid-generation"}
	default:
		return &errs.GatewayError{Kind: errs.Transient, Message: "unclassified 400 response, treating as transient"}
	}
}

// isRetriable reports whether err (as returned by the Transport) should
// be retried by completeWithRetry. Connection-class errors that never
// reached classifyCompletionError (plain transport errors) are retriable
// by default.
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	var ge *errs.GatewayError
	if errors.As(err, &ge) {
		return ge.Retriable()
	}
	return true
}
