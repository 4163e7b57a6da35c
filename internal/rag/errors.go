package rag

import "errors"

// Error taxonomy for the retrieval pipeline. Callers classify failures with
// errors.Is; every public operation fails with exactly one of these wrapped
// into a descriptive message and leaves state unchanged.
var (
	// ErrInvalidConfig marks bad chunking parameters or vector dimension
	// mismatches. Fatal: the caller must fix its input.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedFileType is returned for uploads the loader cannot handle.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrDocumentParse is returned when an upload is corrupt or unreadable.
	ErrDocumentParse = errors.New("document parse error")

	// ErrEmbeddingUnavailable marks a transient embedding backend failure.
	// Safe to retry with backoff.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable marks a transient generation backend failure.
	// Safe to retry with backoff.
	ErrLLMUnavailable = errors.New("llm service unavailable")

	// ErrLLMGeneration marks a malformed or error response from the
	// generation endpoint. Not retried automatically.
	ErrLLMGeneration = errors.New("llm generation error")
)
