// Package errs defines the tagged error kinds named in the core design's
// error-handling section. Every kind is a concrete type satisfying error so
// callers dispatch with errors.As instead of string matching, and each
// carries the structured fields a caller needs to decide retry/surface
// policy without re-parsing a message.
package errs

import "fmt"

// ContextAllocationError is returned when the user prompt alone exceeds the
// input budget; it is non-retriable and must be surfaced to the user.
type ContextAllocationError struct {
	Requested int
	Available int
}

func (e *ContextAllocationError) Error() string {
	return fmt.Sprintf("context allocation failed: user prompt needs %d tokens but only %d available", e.Requested, e.Available)
}

// JSONParseError records which repair stage was attempted last before the
// JSON Contract Layer gave up.
type JSONParseError struct {
	Stage  string
	Detail string
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("json parse failed at stage %q: %s", e.Stage, e.Detail)
}

// SchemaViolation is returned by schema validation when a field is absent,
// has the wrong primitive type, or holds a value outside its enum.
type SchemaViolation struct {
	Field    string
	Expected string
	Actual   string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation on field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// GatewayErrorKind classifies a backend completion failure per the
// gateway's HTTP-body pattern matcher.
type GatewayErrorKind string

const (
	ModelCrashed          GatewayErrorKind = "model_crashed"
	RegexEngineFailure    GatewayErrorKind = "regex_engine_failure"
	InputOverflow         GatewayErrorKind = "input_overflow"
	MidGenerationOverflow GatewayErrorKind = "mid_generation_overflow"
	ModelNotLoaded        GatewayErrorKind = "model_not_loaded"
	Transient             GatewayErrorKind = "transient"
)

// GatewayError wraps a classified backend failure.
type GatewayError struct {
	Kind    GatewayErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error [%s]: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error [%s]: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retriable reports whether the gateway should retry this call. Only
// Transient failures are retriable; everything else (including
// MidGenerationOverflow, which the design treats as an internal bug) is
// not.
func (e *GatewayError) Retriable() bool { return e.Kind == Transient }

// PlacementMatchFailure is returned by the compiler's placement
// pre-validation when old_string occurs zero or more than once.
type PlacementMatchFailure struct {
	OldString string
	CountFound int
}

func (e *PlacementMatchFailure) Error() string {
	return fmt.Sprintf("placement pre-validation failed: old_string found %d times (want exactly 1)", e.CountFound)
}

// RetrievalIndexTransient signals a known index-race error signature
// ("hnsw", "nothing found on disk", "segment reader"); the retrieval
// engine retries internally and only surfaces this after exhausting its
// backoff schedule.
type RetrievalIndexTransient struct {
	Signature string
	Attempts  int
}

func (e *RetrievalIndexTransient) Error() string {
	return fmt.Sprintf("retrieval index transient error %q after %d attempts", e.Signature, e.Attempts)
}
