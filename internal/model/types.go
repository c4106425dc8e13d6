// Package model defines the data shapes shared across the pipeline: chunks
// produced by ingestion, retrieval packs consumed by the context allocator,
// and the submission/validation records that flow between agents and the
// shared state stores.
package model

import "time"

// SizeClass is one of the fixed chunk-token-size buckets the retrieval
// engine maintains a separate index for.
type SizeClass int

const (
	SizeClass256  SizeClass = 256
	SizeClass512  SizeClass = 512
	SizeClass768  SizeClass = 768
	SizeClass1024 SizeClass = 1024
)

// DefaultSizeClasses is the cyclic chunk-size order submitters rotate
// through (spec §4.6 Tier 1: "cyclic chunk-size selection per submitter").
var DefaultSizeClasses = []SizeClass{SizeClass256, SizeClass512, SizeClass768, SizeClass1024}

// ContentType classifies the detected shape of a chunk's source text.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentCode     ContentType = "code"
	ContentTable    ContentType = "table"
	ContentEquation ContentType = "equation"
	ContentSection  ContentType = "section"
)

// ChunkMetadata carries the counts and detected type recorded at chunk time.
type ChunkMetadata struct {
	CharCount     int         `json:"char_count"`
	WordCount     int         `json:"word_count"`
	SentenceCount int         `json:"sentence_count"`
	Type          ContentType `json:"type"`
}

// Chunk is an immutable unit of retrievable text. Once indexed a chunk is
// never mutated; it is destroyed only when its source is removed or the
// source is re-chunked (which atomically replaces the whole size-class set
// for that source).
type Chunk struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	Source      string        `json:"source"`
	Position    int           `json:"position"`
	SizeClass   SizeClass     `json:"size_class"`
	Embedding   []float32     `json:"embedding,omitempty"`
	Tokens      []string      `json:"tokens,omitempty"`
	Metadata    ChunkMetadata `json:"metadata"`
	IsPermanent bool          `json:"is_permanent"`
}

// Evidence is one ranked, packed entry inside a ContextPack's text.
type Evidence struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// ContextPackMetadata records accounting information about a pack.
type ContextPackMetadata struct {
	ChunkCount int `json:"chunk_count"`
	TokenCount int `json:"token_count"`
}

// ContextPack is the immutable output of a single Retrieve call.
type ContextPack struct {
	Text          string               `json:"text"`
	Evidence      []Evidence           `json:"evidence"`
	SourceMap     map[string]string    `json:"source_map"`
	Coverage      float64              `json:"coverage"`
	Answerability float64              `json:"answerability"`
	NeedsMore     bool                 `json:"needs_more"`
	Metadata      ContextPackMetadata  `json:"metadata"`
}

// Submission is emitted by an agent and consumed exactly once by a
// validator.
type Submission struct {
	ID            string    `json:"id"`
	SubmitterID   string    `json:"submitter_id"`
	Content       string    `json:"content"`
	Reasoning     string    `json:"reasoning"`
	Timestamp     time.Time `json:"timestamp"`
	ChunkSizeUsed SizeClass `json:"chunk_size_used"`
	IsDecline     bool      `json:"is_decline"`
}

// Decision is the validator's accept/reject verdict on a Submission.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ValidationResult is produced by a validator for a given Submission.
type ValidationResult struct {
	SubmissionID            string   `json:"submission_id"`
	Decision                Decision `json:"decision"`
	Reasoning                string   `json:"reasoning"`
	Summary                 string   `json:"summary"`
	JSONValid               bool     `json:"json_valid"`
	ContradictionCheckPassed bool     `json:"contradiction_check_passed"`
}

// AcceptedEntry is one line in the gap-free Shared Training log. Its
// Content is never truncated, by design (spec §4.5).
type AcceptedEntry struct {
	Number    int       `json:"number"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// RejectionRecord is one entry in a submitter's bounded rejection ring.
type RejectionRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	ValidatorSummary   string    `json:"validator_summary"`
	SubmissionPreview  string    `json:"submission_preview"`
}

const rejectionFieldCap = 750

// TruncateField clips a rejection-ring field to the 750-char cap named in
// spec §4.5, on runes rather than bytes so multi-byte text doesn't split.
func TruncateField(s string) string {
	r := []rune(s)
	if len(r) <= rejectionFieldCap {
		return s
	}
	return string(r[:rejectionFieldCap])
}

// PaperPhase is one stage of the strict Tier-2 phase order.
type PaperPhase string

const (
	PhaseOutlineCreate PaperPhase = "outline_create"
	PhaseBody          PaperPhase = "body"
	PhaseCritique      PaperPhase = "critique"
	PhasePartialRevise PaperPhase = "partial_revision"
	PhaseConclusion    PaperPhase = "conclusion"
	PhaseIntroduction  PaperPhase = "introduction"
	PhaseAbstract      PaperPhase = "abstract"
	PhaseRigor         PaperPhase = "rigor"
	PhaseReview        PaperPhase = "review"
	PhaseDone          PaperPhase = "done"
)

// EditOp is a per-turn compiler operation on the paper stream.
type EditOp string

const (
	OpFullContent EditOp = "full_content"
	OpReplace     EditOp = "replace"
	OpInsertAfter EditOp = "insert_after"
	OpDelete      EditOp = "delete"
)

// Tier identifies which coordinator stage a workflow is in.
type Tier string

const (
	TierAggregation Tier = "tier1_aggregation"
	TierCompilation Tier = "tier2_compilation"
	TierFinalAnswer Tier = "tier3_final_answer"
)

// TopicAction is the topic-selector's proposed action (SPEC_FULL.md §4.6
// Topic Selection supplement), reusing the action enum spec.md §4.1
// names as a schema-validation example.
type TopicAction string

const (
	ActionNewTopic         TopicAction = "new_topic"
	ActionContinueExisting TopicAction = "continue_existing"
	ActionCombineTopics    TopicAction = "combine_topics"
)

// TopicDecision is a topic-selector agent's proposal, subject to a
// topic-validator agent's accept/reject before Tier 1 aggregation starts.
type TopicDecision struct {
	Action    TopicAction `json:"action"`
	Topic     string      `json:"topic"`
	Reasoning string      `json:"reasoning"`
}

// CleanupCandidate is one accepted Shared Training entry offered to the
// cleanup-review agent as a removal candidate (spec.md §4.6 Tier 1).
type CleanupCandidate struct {
	Number  int
	Content string
}

// CompletionDecision is the completion reviewer's continue-vs-write-paper
// verdict (spec.md §4.6 Tier 1).
type CompletionDecision string

const (
	CompletionContinue   CompletionDecision = "continue"
	CompletionWritePaper CompletionDecision = "write_paper"
)

// CompletionAssessment is the completion reviewer's assessment, produced
// either by its own LLM call or by the self-validation default (spec.md
// §4.6 Tier 1 "self-validation mode").
type CompletionAssessment struct {
	Decision           CompletionDecision `json:"decision"`
	Reasoning          string             `json:"reasoning"`
	SuggestedAdditions string             `json:"suggested_additions"`
}
