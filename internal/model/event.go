package model

import "time"

// CreationEvent is emitted once per filesystem entry observed coming into
// existence under the watch root. Duplicate deliveries for the same path are
// possible and tolerated downstream.
type CreationEvent struct {
	Path      string
	IsDir     bool
	Timestamp time.Time
}

type CompletionResult string

const (
	CompletionStable   CompletionResult = "STABLE"
	CompletionTimedOut CompletionResult = "TIMED_OUT"
)

type CopyOutcome string

const (
	OutcomeCopied          CopyOutcome = "COPIED"
	OutcomeSkippedExists   CopyOutcome = "SKIPPED_EXISTS"
	OutcomeSkippedTimedOut CopyOutcome = "SKIPPED_TIMED_OUT"
	OutcomeFailed          CopyOutcome = "FAILED"
)

type MirrorResult struct {
	Event   CreationEvent
	SrcPath string
	DstPath string
	Outcome CopyOutcome
	Err     error
}
