package core

import "errors"

var (
	// ErrRetrievalUnavailable means the retrieval tool could not produce
	// context (embedding or index failure). The orchestrator still lets
	// the model answer from history alone.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrModelInvocation means a chat completion call failed or returned
	// a malformed structure. No partial message is committed.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrCheckpoint means a thread persistence read or write failed.
	ErrCheckpoint = errors.New("checkpoint failure")

	ErrCaseNotFound    = errors.New("case not found")
	ErrStageOutOfRange = errors.New("stage out of range")
)
